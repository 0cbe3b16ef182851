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

package failover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/lookupd/pkg/logger"
)

const (
	// DefaultRecoveryInterval is how often a recovery endpoint reconciles
	// when no interval is configured.
	DefaultRecoveryInterval = 120 * time.Second

	// DefaultSweepInterval is how often the expiry sweep runs when no
	// interval is configured.
	DefaultSweepInterval = 60 * time.Second
)

var errAlreadyStarted = errors.New("scheduler already started")

type entry struct {
	cache    Cache
	interval time.Duration
}

// Scheduler drives the registered recovery endpoints: each one runs its
// Recover pass immediately on start and then on its own interval. A tick
// that lands while the previous pass is still in flight is dropped rather
// than queued, so a slow pass never causes a burst of catch-up runs.
type Scheduler struct {
	log logger.Logger

	mu      sync.Mutex
	entries []entry
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(log logger.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// Register adds an endpoint. A non-positive interval falls back to
// DefaultRecoveryInterval. Registration after Start is refused silently;
// endpoints are wired before the service comes up.
func (s *Scheduler) Register(cache Cache, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRecoveryInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warn().Str("endpoint", cache.Name()).Msg("endpoint registered after start, ignoring")

		return
	}

	s.entries = append(s.entries, entry{cache: cache, interval: interval})
}

// Start brings up every endpoint and launches its recovery loop. A failed
// endpoint Start aborts the whole scheduler start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)

	for _, e := range s.entries {
		if err := e.cache.Start(runCtx); err != nil {
			cancel()

			return fmt.Errorf("starting endpoint %s: %w", e.cache.Name(), err)
		}
	}

	for _, e := range s.entries {
		s.wg.Add(1)

		go s.run(runCtx, e)
	}

	s.started = true
	s.cancel = cancel

	s.log.Info().Int("endpoints", len(s.entries)).Msg("failure-recovery scheduler started")

	return nil
}

// Stop cancels every recovery loop, waits for in-flight passes to finish,
// then stops the endpoints in registration order.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()

	if !s.started {
		s.mu.Unlock()

		return
	}

	cancel := s.cancel
	s.started = false
	s.cancel = nil
	entries := s.entries
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	for _, e := range entries {
		if err := e.cache.Stop(ctx); err != nil {
			s.log.Error().Err(err).Str("endpoint", e.cache.Name()).Msg("endpoint stop failed")
		}
	}

	s.log.Info().Msg("failure-recovery scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, e entry) {
	defer s.wg.Done()

	s.recoverOnce(ctx, e.cache)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.recoverOnce(ctx, e.cache)

			// Drop the tick that may have accumulated while the pass ran;
			// a slow pass must not trigger an immediate follow-up.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (s *Scheduler) recoverOnce(ctx context.Context, cache Cache) {
	if ctx.Err() != nil {
		return
	}

	if err := cache.Recover(ctx); err != nil {
		s.log.Error().Err(err).Str("endpoint", cache.Name()).Msg("recovery pass failed")

		return
	}

	s.log.Debug().Str("endpoint", cache.Name()).Msg("recovery pass completed")
}
