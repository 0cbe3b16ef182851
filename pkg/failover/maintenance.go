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
	"time"

	"github.com/carverauto/lookupd/pkg/logger"
)

// MaintenanceJob prunes lapsed leases on the scheduler's cadence. It is a
// Cache so the expiry sweep shares the recovery loop machinery.
type MaintenanceJob struct {
	store Sweeper
	log   logger.Logger
	now   func() time.Time
}

func NewMaintenanceJob(store Sweeper, log logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{store: store, log: log, now: time.Now}
}

func (*MaintenanceJob) Name() string {
	return "registry-maintenance"
}

func (*MaintenanceJob) Start(context.Context) error {
	return nil
}

func (*MaintenanceJob) Stop(context.Context) error {
	return nil
}

// Recover removes every record whose lease lapsed before now.
func (j *MaintenanceJob) Recover(ctx context.Context) error {
	removed, err := j.store.DeleteExpired(ctx, j.now())
	if err != nil {
		return err
	}

	if removed > 0 {
		j.log.Info().Int("removed", removed).Msg("expiry sweep pruned lapsed records")
	}

	return nil
}

var _ Cache = (*MaintenanceJob)(nil)
