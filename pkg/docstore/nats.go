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

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/lookupd/pkg/models"
)

// NatsStore persists records in two JetStream KV buckets: one keyed by
// record uri, one holding identity reservations keyed by identity digest.
// KV Create on the reservation bucket supplies the atomic create-if-absent
// the registry's uniqueness check relies on.
type NatsStore struct {
	nc         *nats.Conn
	records    jetstream.KeyValue
	identities jetstream.KeyValue
}

type NatsConfig struct {
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
}

func NewNatsStore(ctx context.Context, cfg NatsConfig) (*NatsStore, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	records, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: cfg.Bucket})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create records bucket: %w", err)
	}

	identities, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: cfg.Bucket + "-identity"})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create identity bucket: %w", err)
	}

	return &NatsStore{nc: nc, records: records, identities: identities}, nil
}

func (s *NatsStore) Get(ctx context.Context, uri string) (*models.Record, error) {
	entry, err := s.records.Get(ctx, uri)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", uri, err)
	}

	return decodeRecord(entry.Value())
}

func (s *NatsStore) FindOne(ctx context.Context, identity *models.Query) (*models.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if identity.Matches(rec) {
			return rec, nil
		}
	}

	return nil, nil
}

func (s *NatsStore) Insert(ctx context.Context, identityKey string, rec *models.Record) error {
	if err := s.ReserveIdentity(ctx, identityKey, rec.URI()); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.URI(), err)
	}

	if _, err := s.records.Put(ctx, rec.URI(), data); err != nil {
		return fmt.Errorf("failed to store record %s: %w", rec.URI(), err)
	}

	return nil
}

func (s *NatsStore) Update(ctx context.Context, uri string, rec *models.Record) error {
	entry, err := s.records.Get(ctx, uri)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return ErrNoSuchRecord
	}

	if err != nil {
		return fmt.Errorf("failed to get record %s: %w", uri, err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", uri, err)
	}

	if _, err := s.records.Update(ctx, uri, data, entry.Revision()); err != nil {
		return fmt.Errorf("failed to update record %s: %w", uri, err)
	}

	return nil
}

func (s *NatsStore) Delete(ctx context.Context, uri string) (*models.Record, error) {
	entry, err := s.records.Get(ctx, uri)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", uri, err)
	}

	rec, err := decodeRecord(entry.Value())
	if err != nil {
		return nil, err
	}

	if err := s.records.Delete(ctx, uri); err != nil {
		return nil, fmt.Errorf("failed to delete record %s: %w", uri, err)
	}

	return rec, nil
}

func (s *NatsStore) RemoveIfExpired(ctx context.Context, uri string, asOf time.Time) (*models.Record, error) {
	entry, err := s.records.Get(ctx, uri)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", uri, err)
	}

	rec, err := decodeRecord(entry.Value())
	if err != nil {
		return nil, err
	}

	expires, ok := rec.Expires()
	if !ok || !expires.Before(asOf) || rec.State() == models.StateDeleted {
		return nil, nil
	}

	// Revision-guarded delete: a renewal that landed after our read bumps
	// the revision and the delete is dropped.
	err = s.records.Delete(ctx, uri, jetstream.LastRevision(entry.Revision()))
	if err != nil {
		if isWrongLastSequence(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to delete expired record %s: %w", uri, err)
	}

	return rec, nil
}

func (s *NatsStore) ReserveIdentity(ctx context.Context, identityKey, uri string) error {
	_, err := s.identities.Create(ctx, identityKey, []byte(uri))
	if errors.Is(err, jetstream.ErrKeyExists) {
		entry, gerr := s.identities.Get(ctx, identityKey)
		if gerr == nil && string(entry.Value()) == uri {
			return nil
		}

		return ErrIdentityTaken
	}

	if err != nil {
		return fmt.Errorf("failed to reserve identity %s: %w", identityKey, err)
	}

	return nil
}

func (s *NatsStore) ReleaseIdentity(ctx context.Context, identityKey, uri string) error {
	entry, err := s.identities.Get(ctx, identityKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get identity %s: %w", identityKey, err)
	}

	if uri != "" && string(entry.Value()) != uri {
		return nil
	}

	err = s.identities.Delete(ctx, identityKey, jetstream.LastRevision(entry.Revision()))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) && !isWrongLastSequence(err) {
		return fmt.Errorf("failed to release identity %s: %w", identityKey, err)
	}

	return nil
}

func (s *NatsStore) RangeScan(ctx context.Context, start, end time.Time) ([]*models.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []*models.Record

	for _, rec := range records {
		expires, ok := rec.Expires()
		if !ok {
			continue
		}

		if !expires.Before(start) && !expires.After(end) {
			out = append(out, rec)
		}
	}

	return out, nil
}

func (s *NatsStore) List(ctx context.Context) ([]*models.Record, error) {
	lister, err := s.records.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list record keys: %w", err)
	}

	var out []*models.Record

	for key := range lister.Keys() {
		entry, err := s.records.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue // deleted between list and get
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get record %s: %w", key, err)
		}

		rec, err := decodeRecord(entry.Value())
		if err != nil {
			return nil, err
		}

		out = append(out, rec)
	}

	return out, nil
}

func (s *NatsStore) Close() error {
	s.nc.Close()

	return nil
}

func decodeRecord(data []byte) (*models.Record, error) {
	rec := models.NewRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode stored record: %w", err)
	}

	return rec, nil
}

func isWrongLastSequence(err error) bool {
	var apiErr *jetstream.APIError

	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

var _ Service = (*NatsStore)(nil)
