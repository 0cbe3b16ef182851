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

package registry

import (
	"fmt"
	"time"

	"github.com/carverauto/lookupd/pkg/models"
)

// LeaseManager computes a record's liveness window from its ttl field.
// It is stateless: the same manager serves every concurrent registration.
type LeaseManager struct {
	now func() time.Time
}

func NewLeaseManager() *LeaseManager {
	return &LeaseManager{now: time.Now}
}

// RequestLease parses the record's ttl and stamps expires = now + ttl.
// The record must not be persisted if the lease is refused.
func (m *LeaseManager) RequestLease(rec *models.Record) error {
	ttl, ok := rec.TTL()
	if !ok {
		return fmt.Errorf("%w: ttl field absent", ErrLeaseInvalid)
	}

	d, err := models.ParseTTL(ttl)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrLeaseInvalid, err)
	}

	rec.SetExpires(m.now().UTC().Add(d))

	return nil
}
