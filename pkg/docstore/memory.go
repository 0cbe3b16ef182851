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
	"sort"
	"sync"
	"time"

	"github.com/carverauto/lookupd/pkg/models"
)

// MemoryStore is an in-process Service used for tests and single-node
// development. All operations are atomic under one mutex.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]*models.Record
	identities map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:    make(map[string]*models.Record),
		identities: make(map[string]string),
	}
}

func (s *MemoryStore) Get(_ context.Context, uri string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[uri]
	if !ok {
		return nil, nil
	}

	return rec.Clone(), nil
}

func (s *MemoryStore) FindOne(_ context.Context, identity *models.Query) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, uri := range s.sortedURIs() {
		if identity.Matches(s.records[uri]) {
			return s.records[uri].Clone(), nil
		}
	}

	return nil, nil
}

func (s *MemoryStore) Insert(_ context.Context, identityKey string, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.identities[identityKey]; taken {
		return ErrIdentityTaken
	}

	s.identities[identityKey] = rec.URI()
	s.records[rec.URI()] = rec.Clone()

	return nil
}

func (s *MemoryStore) Update(_ context.Context, uri string, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[uri]; !ok {
		return ErrNoSuchRecord
	}

	s.records[uri] = rec.Clone()

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, uri string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[uri]
	if !ok {
		return nil, nil
	}

	delete(s.records, uri)

	return rec, nil
}

func (s *MemoryStore) RemoveIfExpired(_ context.Context, uri string, asOf time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[uri]
	if !ok {
		return nil, nil
	}

	// Re-checked under the lock: a concurrent renewal between the sweep's
	// scan and this call must win.
	expires, ok := rec.Expires()
	if !ok || !expires.Before(asOf) || rec.State() == models.StateDeleted {
		return nil, nil
	}

	delete(s.records, uri)

	return rec, nil
}

func (s *MemoryStore) ReserveIdentity(_ context.Context, identityKey, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.identities[identityKey]; ok {
		if held == uri {
			return nil
		}

		return ErrIdentityTaken
	}

	s.identities[identityKey] = uri

	return nil
}

func (s *MemoryStore) ReleaseIdentity(_ context.Context, identityKey, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.identities[identityKey]; ok && (uri == "" || held == uri) {
		delete(s.identities, identityKey)
	}

	return nil
}

func (s *MemoryStore) RangeScan(_ context.Context, start, end time.Time) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Record

	for _, uri := range s.sortedURIs() {
		rec := s.records[uri]

		expires, ok := rec.Expires()
		if !ok {
			continue
		}

		if !expires.Before(start) && !expires.After(end) {
			out = append(out, rec.Clone())
		}
	}

	return out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, 0, len(s.records))
	for _, uri := range s.sortedURIs() {
		out = append(out, s.records[uri].Clone())
	}

	return out, nil
}

func (*MemoryStore) Close() error {
	return nil
}

// sortedURIs keeps scan order deterministic. Callers must hold the lock.
func (s *MemoryStore) sortedURIs() []string {
	uris := make([]string, 0, len(s.records))
	for uri := range s.records {
		uris = append(uris, uri)
	}

	sort.Strings(uris)

	return uris
}

var _ Service = (*MemoryStore)(nil)
