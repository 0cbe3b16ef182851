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

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/lookupd/pkg/docstore"
	"github.com/carverauto/lookupd/pkg/failover"
	"github.com/carverauto/lookupd/pkg/logger"
)

const (
	backendMemory   = "memory"
	backendNats     = "nats"
	backendPostgres = "postgres"

	defaultURIPrefix = "lookup"
)

var (
	errUnknownBackend    = errors.New("unknown docstore backend")
	errMissingNatsConfig = errors.New("nats backend selected but nats section missing")
	errMissingPgConfig   = errors.New("postgres backend selected but postgres section missing")
)

// Config is the lookupd service configuration.
type Config struct {
	ListenAddr       string                   `json:"listen_addr"`
	URIPrefix        string                   `json:"uri_prefix"`
	Backend          string                   `json:"backend"`
	Nats             *docstore.NatsConfig     `json:"nats"`
	Postgres         *docstore.PostgresConfig `json:"postgres"`
	SweepInterval    time.Duration            `json:"sweep_interval"`
	RecoveryInterval time.Duration            `json:"recovery_interval"`
	Logger           *logger.Config           `json:"logger"`
}

// Validate applies defaults and checks backend wiring.
func (c *Config) Validate() error {
	if c.URIPrefix == "" {
		c.URIPrefix = defaultURIPrefix
	}

	if c.SweepInterval <= 0 {
		c.SweepInterval = failover.DefaultSweepInterval
	}

	if c.RecoveryInterval <= 0 {
		c.RecoveryInterval = failover.DefaultRecoveryInterval
	}

	if c.Logger == nil {
		c.Logger = logger.DefaultConfig()
	}

	switch c.Backend {
	case "", backendMemory:
		c.Backend = backendMemory
	case backendNats:
		if c.Nats == nil || c.Nats.URL == "" {
			return errMissingNatsConfig
		}

		if c.Nats.Bucket == "" {
			c.Nats.Bucket = "lookupd-records"
		}
	case backendPostgres:
		if c.Postgres == nil || c.Postgres.DSN == "" {
			return errMissingPgConfig
		}
	default:
		return fmt.Errorf("%w: %s", errUnknownBackend, c.Backend)
	}

	return nil
}
