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
	"encoding/json"
	"sync"

	"github.com/carverauto/lookupd/pkg/logger"
	"github.com/carverauto/lookupd/pkg/models"
	"github.com/carverauto/lookupd/pkg/pubsub"
)

// ReplayCache mirrors the registry into a fingerprint map and re-publishes
// any record whose stored state diverged from what was last fanned out.
// A notification lost between a write and its push is replayed on the next
// recovery pass instead of being gone for good.
type ReplayCache struct {
	source Snapshotter
	fanout Fanout
	log    logger.Logger

	mu     sync.Mutex
	mirror map[string]string // uri -> record fingerprint
}

func NewReplayCache(source Snapshotter, fanout Fanout, log logger.Logger) *ReplayCache {
	return &ReplayCache{
		source: source,
		fanout: fanout,
		log:    log,
		mirror: make(map[string]string),
	}
}

func (*ReplayCache) Name() string {
	return "subscription-replay"
}

// Start primes the mirror from the current registry state without pushing
// anything; only divergence observed after start is replayed.
func (c *ReplayCache) Start(ctx context.Context) error {
	records, err := c.source.Snapshot(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range records {
		c.mirror[rec.URI()] = fingerprint(rec)
	}

	return nil
}

func (c *ReplayCache) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mirror = make(map[string]string)

	return nil
}

// Recover reconciles the mirror against the registry: changed or new
// records are fanned out again, vanished records are forgotten.
func (c *ReplayCache) Recover(ctx context.Context) error {
	records, err := c.source.Snapshot(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	replayed := 0
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		uri := rec.URI()
		seen[uri] = struct{}{}

		fp := fingerprint(rec)
		if c.mirror[uri] == fp {
			continue
		}

		c.fanout.Publish(ctx, rec)
		c.mirror[uri] = fp
		replayed++
	}

	for uri := range c.mirror {
		if _, ok := seen[uri]; !ok {
			delete(c.mirror, uri)
		}
	}

	if replayed > 0 {
		c.log.Info().Int("replayed", replayed).Msg("diverged records re-published to subscription queues")
	}

	return nil
}

// fingerprint digests the record's full field content; any change to a
// field, lease, or state yields a different fingerprint.
func fingerprint(rec *models.Record) string {
	data, err := json.Marshal(rec)
	if err != nil {
		return ""
	}

	return pubsub.Digest(string(data))
}

var _ Cache = (*ReplayCache)(nil)
