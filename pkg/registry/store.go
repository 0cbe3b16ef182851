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

// Package registry owns the authoritative record set: lease-governed
// registration, renewal, deletion, and expiry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/lookupd/pkg/docstore"
	"github.com/carverauto/lookupd/pkg/logger"
	"github.com/carverauto/lookupd/pkg/models"
	"github.com/carverauto/lookupd/pkg/pubsub"
)

// Notifier receives every record that was successfully written, so that
// matching subscriptions can be told about it.
type Notifier interface {
	Publish(ctx context.Context, rec *models.Record)
}

// Store is the record store: it enforces identity uniqueness via the
// document store's create-if-absent reservation and drives lease state.
type Store struct {
	db        docstore.Service
	leases    *LeaseManager
	notifier  Notifier
	uriPrefix string
	log       logger.Logger

	now   func() time.Time
	newID func() string
}

// NewStore creates a record store. notifier may be nil when no
// subscription fan-out is wired (e.g. maintenance tooling).
func NewStore(db docstore.Service, leases *LeaseManager, notifier Notifier, uriPrefix string, log logger.Logger) *Store {
	return &Store{
		db:        db,
		leases:    leases,
		notifier:  notifier,
		uriPrefix: uriPrefix,
		log:       log,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// IdentityQuery builds the duplicate-detection query from a record: every
// caller-supplied field combined under the all operator. Reserved fields
// (uri, state, ttl, expires) are transient and never part of identity.
func IdentityQuery(rec *models.Record) *models.Query {
	q := models.NewQuery()
	q.SetOperator(models.OperatorAll)

	for _, key := range rec.Keys() {
		if models.IsReservedKey(key) {
			continue
		}

		v, _ := rec.Get(key)
		q.Add(key, models.OperatorAll, v)
	}

	return q
}

// IdentityKey is the digest under which a record's identity is reserved
// in the document store.
func IdentityKey(rec *models.Record) string {
	return pubsub.Digest(pubsub.Normalize(IdentityQuery(rec)))
}

// Publish registers a new record: lease first, then an atomic
// reserve-and-insert keyed by the record's identity. A live record with
// the same identity rejects the registration with ErrDuplicateEntry.
func (s *Store) Publish(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if rec.Type() == "" {
		return nil, ErrMissingRecordType
	}

	stored := rec.Clone()

	if err := s.leases.RequestLease(stored); err != nil {
		return nil, err
	}

	identity := IdentityQuery(stored)
	key := pubsub.Digest(pubsub.Normalize(identity))

	stored.SetURI(fmt.Sprintf("%s/%s/%s", s.uriPrefix, stored.Type(), s.newID()))
	stored.SetState(models.StateRegistered)

	err := s.db.Insert(ctx, key, stored)
	if errors.Is(err, docstore.ErrIdentityTaken) {
		return s.reclaimAndRetry(ctx, key, identity, stored)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	s.log.Info().
		Str("uri", stored.URI()).
		Str("type", stored.Type()).
		Msg("record registered")

	s.notify(ctx, stored)

	return stored, nil
}

// reclaimAndRetry handles an identity reservation held by a record that is
// no longer live (lease lapsed, sweep not yet run): the stale reservation
// is released and the insert retried exactly once. Losing that retry means
// a concurrent registrant won; that is a genuine duplicate.
func (s *Store) reclaimAndRetry(ctx context.Context, key string, identity *models.Query, stored *models.Record) (*models.Record, error) {
	existing, err := s.db.FindOne(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	if existing != nil && existing.IsLive(s.now()) {
		return nil, ErrDuplicateEntry
	}

	holder := ""
	if existing != nil {
		holder = existing.URI()
	}

	if err := s.db.ReleaseIdentity(ctx, key, holder); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	err = s.db.Insert(ctx, key, stored)
	if errors.Is(err, docstore.ErrIdentityTaken) {
		return nil, ErrDuplicateEntry
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	s.log.Info().
		Str("uri", stored.URI()).
		Str("type", stored.Type()).
		Msg("record registered after reclaiming stale identity")

	s.notify(ctx, stored)

	return stored, nil
}

// Update renews a live record: merges the new fields, recomputes the lease
// relative to the renewal time, and marks the record renewed.
func (s *Store) Update(ctx context.Context, uri string, fields *models.Record) (*models.Record, error) {
	current, err := s.db.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	if current == nil || !current.IsLive(s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, uri)
	}

	merged := current.Clone()

	if fields != nil {
		for _, key := range fields.Keys() {
			switch key {
			case models.KeyURI, models.KeyState, models.KeyExpires:
				continue
			}

			v, _ := fields.Get(key)
			merged.Set(key, v)
		}
	}

	if err := s.leases.RequestLease(merged); err != nil {
		return nil, err
	}

	merged.SetState(models.StateRenewed)

	// A field merge can change the record's identity. The reservation has
	// to move with it, or a later registration under the old identity
	// would coexist with this record.
	oldKey := IdentityKey(current)
	newKey := IdentityKey(merged)

	if newKey != oldKey {
		if err := s.claimIdentity(ctx, newKey, IdentityQuery(merged), uri); err != nil {
			return nil, err
		}
	}

	err = s.db.Update(ctx, uri, merged)
	if err != nil {
		if newKey != oldKey {
			if rerr := s.db.ReleaseIdentity(ctx, newKey, uri); rerr != nil {
				s.log.Error().Err(rerr).Str("uri", uri).Msg("failed to release identity after aborted renewal")
			}
		}

		if errors.Is(err, docstore.ErrNoSuchRecord) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, uri)
		}

		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	if newKey != oldKey {
		if err := s.db.ReleaseIdentity(ctx, oldKey, uri); err != nil {
			s.log.Error().Err(err).Str("uri", uri).Msg("failed to release previous identity of renewed record")
		}
	}

	s.log.Debug().Str("uri", uri).Msg("record renewed")

	s.notify(ctx, merged)

	return merged, nil
}

// claimIdentity reserves key for uri, reclaiming the reservation first
// when its current holder is gone or its lease has lapsed. A live holder
// means the renewal collides with another registration.
func (s *Store) claimIdentity(ctx context.Context, key string, identity *models.Query, uri string) error {
	err := s.db.ReserveIdentity(ctx, key, uri)
	if err == nil {
		return nil
	}

	if !errors.Is(err, docstore.ErrIdentityTaken) {
		return fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	existing, err := s.db.FindOne(ctx, identity)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	if existing != nil && existing.IsLive(s.now()) {
		return ErrDuplicateEntry
	}

	holder := ""
	if existing != nil {
		holder = existing.URI()
	}

	if err := s.db.ReleaseIdentity(ctx, key, holder); err != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	err = s.db.ReserveIdentity(ctx, key, uri)
	if errors.Is(err, docstore.ErrIdentityTaken) {
		return ErrDuplicateEntry
	}

	if err != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	return nil
}

// BulkRenew applies a batch of renewals. Every referenced uri is validated
// for existence before any write is committed; one unknown uri fails the
// whole batch with no partial state.
func (s *Store) BulkRenew(ctx context.Context, updates map[string]*models.Record) (int, error) {
	for uri := range updates {
		current, err := s.db.Get(ctx, uri)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrStoreFailure, err)
		}

		if current == nil || !current.IsLive(s.now()) {
			return 0, fmt.Errorf("%w: batch references unknown uri %s", ErrStoreFailure, uri)
		}
	}

	renewed := 0

	for uri, fields := range updates {
		if _, err := s.Update(ctx, uri, fields); err != nil {
			return renewed, err
		}

		renewed++
	}

	return renewed, nil
}

// Delete removes the record under uri and frees its identity so the same
// service can re-register.
func (s *Store) Delete(ctx context.Context, uri string) (*models.Record, error) {
	deleted, err := s.db.Delete(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	if deleted == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, uri)
	}

	if err := s.db.ReleaseIdentity(ctx, IdentityKey(deleted), uri); err != nil {
		s.log.Error().Err(err).Str("uri", uri).Msg("failed to release identity of deleted record")
	}

	deleted.SetState(models.StateDeleted)

	s.log.Info().Str("uri", uri).Msg("record deleted")

	return deleted, nil
}

// GetByURI returns the record under uri, or nil when absent. Absence is a
// normal empty result, not an error.
func (s *Store) GetByURI(ctx context.Context, uri string) (*models.Record, error) {
	rec, err := s.db.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	return rec, nil
}

// FindInTimeRange returns records whose expiry falls in [start, end].
func (s *Store) FindInTimeRange(ctx context.Context, start, end time.Time) ([]*models.Record, error) {
	records, err := s.db.RangeScan(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	return records, nil
}

// Snapshot returns every stored record; the failure-recovery endpoints use
// it to re-derive expected notification state.
func (s *Store) Snapshot(ctx context.Context) ([]*models.Record, error) {
	records, err := s.db.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	return records, nil
}

// DeleteExpired removes records whose lease lapsed before asOf and returns
// how many were removed. Each removal re-checks expiry at delete time, so
// a record renewed after the scan survives. Running the sweep twice with
// the same cutoff removes nothing the second time.
func (s *Store) DeleteExpired(ctx context.Context, asOf time.Time) (int, error) {
	candidates, err := s.db.RangeScan(ctx, time.Time{}, asOf)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrStoreFailure, err)
	}

	removed := 0

	for _, rec := range candidates {
		if rec.State() == models.StateDeleted {
			continue
		}

		gone, err := s.db.RemoveIfExpired(ctx, rec.URI(), asOf)
		if err != nil {
			return removed, fmt.Errorf("%w: %s", ErrStoreFailure, err)
		}

		if gone == nil {
			continue // renewed since the scan, or already removed
		}

		if err := s.db.ReleaseIdentity(ctx, IdentityKey(gone), gone.URI()); err != nil {
			s.log.Error().Err(err).Str("uri", gone.URI()).Msg("failed to release identity of expired record")
		}

		removed++
	}

	if removed > 0 {
		s.log.Info().Int("count", removed).Time("as_of", asOf).Msg("expired records removed")
	}

	return removed, nil
}

func (s *Store) notify(ctx context.Context, rec *models.Record) {
	if s.notifier == nil {
		return
	}

	s.notifier.Publish(ctx, rec)
}
