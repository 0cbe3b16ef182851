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

// Package failover runs the periodic recovery endpoints that restore
// confidence after lost notifications and prune lapsed leases.
package failover

import (
	"context"
	"time"

	"github.com/carverauto/lookupd/pkg/models"
)

// Cache is a failure-recovery endpoint. The scheduler starts it once,
// invokes Recover periodically, and stops it on shutdown.
type Cache interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Recover(ctx context.Context) error
}

// Snapshotter supplies the authoritative record set a recovery pass
// reconciles against.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]*models.Record, error)
}

// Sweeper removes records whose lease lapsed before the cutoff.
type Sweeper interface {
	DeleteExpired(ctx context.Context, asOf time.Time) (int, error)
}

// Fanout delivers a record to every subscription queue it matches.
type Fanout interface {
	Publish(ctx context.Context, rec *models.Record)
}
