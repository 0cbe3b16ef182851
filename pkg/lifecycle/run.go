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

// Package lifecycle runs a service until it is signalled to stop, then
// shuts its parts down in order.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/lookupd/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Runner is the long-running part of the service, typically the
// failure-recovery scheduler.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

// Options wires the parts Run manages. Closers are closed last, in order,
// after the runner has stopped.
type Options struct {
	ServiceName     string
	Runner          Runner
	Closers         []io.Closer
	ShutdownTimeout time.Duration
	Log             logger.Logger
}

// Run starts the runner and blocks until the context is cancelled or the
// process receives SIGINT/SIGTERM. Shutdown stops the runner under a
// timeout, then closes every closer.
func Run(ctx context.Context, opts *Options) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Runner != nil {
		if err := opts.Runner.Start(sigCtx); err != nil {
			return fmt.Errorf("starting %s: %w", opts.ServiceName, err)
		}
	}

	opts.Log.Info().Str("service", opts.ServiceName).Msg("service started")

	<-sigCtx.Done()

	opts.Log.Info().Str("service", opts.ServiceName).Msg("shutdown signal received")

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if opts.Runner != nil {
		opts.Runner.Stop(stopCtx)
	}

	for _, c := range opts.Closers {
		if err := c.Close(); err != nil {
			opts.Log.Error().Err(err).Str("service", opts.ServiceName).Msg("close failed during shutdown")
		}
	}

	opts.Log.Info().Str("service", opts.ServiceName).Msg("service stopped")

	return nil
}
