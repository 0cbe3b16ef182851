/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/lookupd/pkg/logger"
)

var errMissingPrefix = errors.New("uri_prefix is required")

type testServiceConfig struct {
	ListenAddr    string         `json:"listen_addr"`
	URIPrefix     string         `json:"uri_prefix"`
	SweepInterval time.Duration  `json:"sweep_interval"`
	Debug         bool           `json:"debug"`
	Logger        *loggerSection `json:"logger"`
	Tags          []string       `json:"tags"`
	validated     bool
}

type loggerSection struct {
	Level string `json:"level"`
}

func (c *testServiceConfig) Validate() error {
	c.validated = true

	if c.URIPrefix == "" {
		return errMissingPrefix
	}

	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}

	return nil
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lookupd.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateFromFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"listen_addr": ":8090",
		"uri_prefix": "lookup",
		"sweep_interval": 30000000000,
		"logger": {"level": "debug"},
		"tags": ["a", "b"]
	}`)

	var cfg testServiceConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, "lookup", cfg.URIPrefix)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
	require.NotNil(t, cfg.Logger)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.validated)
}

func TestLoadAndValidateAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `{"uri_prefix": "lookup"}`)

	var cfg testServiceConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoadAndValidateFailsValidation(t *testing.T) {
	path := writeConfigFile(t, `{"listen_addr": ":8090"}`)

	var cfg testServiceConfig

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), path, &cfg)
	assert.ErrorIs(t, err, errMissingPrefix)
}

func TestEnvOverridesFileValues(t *testing.T) {
	path := writeConfigFile(t, `{"uri_prefix": "lookup", "listen_addr": ":8090"}`)

	t.Setenv("LOOKUPD_LISTEN_ADDR", ":9999")
	t.Setenv("LOOKUPD_DEBUG", "true")
	t.Setenv("LOOKUPD_SWEEP_INTERVAL", "45s")
	t.Setenv("LOOKUPD_LOGGER_LEVEL", "trace")

	var cfg testServiceConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 45*time.Second, cfg.SweepInterval)
	require.NotNil(t, cfg.Logger)
	assert.Equal(t, "trace", cfg.Logger.Level)

	// Untouched fields keep the file values.
	assert.Equal(t, "lookup", cfg.URIPrefix)
}

func TestEnvOnlySource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("LOOKUPD_URI_PREFIX", "lookup")

	var cfg testServiceConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), "/nonexistent.json", &cfg))

	assert.Equal(t, "lookup", cfg.URIPrefix)
}

func TestConfigJSONEnvOverridesEverything(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("LOOKUPD_CONFIG_JSON", `{"uri_prefix": "fromjson", "listen_addr": ":1"}`)

	var cfg testServiceConfig

	c := NewConfig(logger.NewTestLogger())
	require.NoError(t, c.LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "fromjson", cfg.URIPrefix)
	assert.Equal(t, ":1", cfg.ListenAddr)
}

func TestInvalidConfigSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg testServiceConfig

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), "ignored.json", &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consul")
}

func TestMissingFileFails(t *testing.T) {
	var cfg testServiceConfig

	c := NewConfig(logger.NewTestLogger())
	err := c.LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "absent.json"), &cfg)
	assert.Error(t, err)
}
