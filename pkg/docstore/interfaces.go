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

//go:generate mockgen -destination=mock_docstore.go -package=docstore github.com/carverauto/lookupd/pkg/docstore Service

// Package docstore is the boundary to the persistent document store backing
// the record registry. Backends must provide atomic create-if-absent
// semantics for identity reservations; everything else is plain indexed
// reads and writes.
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/lookupd/pkg/models"
)

var (
	// ErrIdentityTaken indicates an insert whose identity reservation is
	// already held by another record.
	ErrIdentityTaken = errors.New("record identity already reserved")

	// ErrNoSuchRecord indicates an update against a uri that is not stored.
	ErrNoSuchRecord = errors.New("no record stored under uri")
)

// Service is the document store contract the registry consumes.
type Service interface {
	// Get returns the record stored under uri, or nil with no error when
	// absent.
	Get(ctx context.Context, uri string) (*models.Record, error)

	// FindOne returns the first record matching the identity query, or nil
	// with no error when none matches.
	FindOne(ctx context.Context, identity *models.Query) (*models.Record, error)

	// Insert atomically reserves identityKey and stores the record under
	// its uri. Returns ErrIdentityTaken if the reservation is held.
	Insert(ctx context.Context, identityKey string, rec *models.Record) error

	// Update replaces the record stored under uri. Returns ErrNoSuchRecord
	// when absent.
	Update(ctx context.Context, uri string, rec *models.Record) error

	// Delete removes the record under uri and returns it, or nil with no
	// error when absent.
	Delete(ctx context.Context, uri string) (*models.Record, error)

	// RemoveIfExpired deletes the record under uri only if its lease had
	// already lapsed before asOf at the time of the delete. Returns the
	// removed record, or nil when the record is gone, still live, or was
	// renewed concurrently.
	RemoveIfExpired(ctx context.Context, uri string, asOf time.Time) (*models.Record, error)

	// ReserveIdentity atomically takes the identity reservation for uri
	// without touching any record. Returns ErrIdentityTaken when another
	// uri holds it; reserving for the current holder is a no-op.
	ReserveIdentity(ctx context.Context, identityKey, uri string) error

	// ReleaseIdentity drops the identity reservation, but only while it
	// still points at the given uri. An empty uri releases the reservation
	// unconditionally (recovery from a reservation whose record is gone).
	// Releasing never removes a record.
	ReleaseIdentity(ctx context.Context, identityKey, uri string) error

	// RangeScan returns records whose expiry falls in [start, end].
	RangeScan(ctx context.Context, start, end time.Time) ([]*models.Record, error)

	// List returns every stored record.
	List(ctx context.Context) ([]*models.Record, error)

	Close() error
}
