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

package pubsub

import (
	"errors"
	"sync"
	"time"

	"github.com/carverauto/lookupd/pkg/logger"
	"github.com/carverauto/lookupd/pkg/models"
)

// ErrEmptyQuery rejects a subscription whose query has no constraints; an
// empty query would otherwise alias every subscriber onto one queue.
var ErrEmptyQuery = errors.New("empty query cannot be subscribed")

// QueueManager maps queries to notification queues, one queue per distinct
// normalized query. All table access happens under a single lock; queue
// creation is check-then-act and must not race.
type QueueManager struct {
	mu       sync.RWMutex
	queues   map[string]*Queue          // queue id -> queue
	queryIDs map[string]string          // normalized query -> queue id
	origins  map[string][]*models.Query // normalized query -> original queries
	created  map[string]time.Time       // normalized query -> creation time

	log logger.Logger
	now func() time.Time
}

func NewQueueManager(log logger.Logger) *QueueManager {
	return &QueueManager{
		queues:   make(map[string]*Queue),
		queryIDs: make(map[string]string),
		origins:  make(map[string][]*models.Query),
		created:  make(map[string]time.Time),
		log:      log,
		now:      time.Now,
	}
}

// GetQueues returns the queue ids serving the query, creating the queue on
// first subscription. The mapping is 1:1 per normalized query, so the
// slice always holds exactly one id. The original query is retained for
// introspection and re-matching.
func (m *QueueManager) GetQueues(query *models.Query) ([]string, error) {
	normalized := Normalize(query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.queryIDs[normalized]; ok {
		m.origins[normalized] = append(m.origins[normalized], query.Clone())

		return []string{id}, nil
	}

	id := Digest(normalized)
	now := m.now()

	m.queues[id] = newQueue(id, now)
	m.queryIDs[normalized] = id
	m.origins[normalized] = []*models.Query{query.Clone()}
	m.created[normalized] = now

	m.log.Debug().
		Str("queue_id", id).
		Str("query", normalized).
		Msg("subscription queue created")

	return []string{id}, nil
}

// HasQueues reports whether a queue already exists for the query.
func (m *QueueManager) HasQueues(query *models.Query) bool {
	normalized := Normalize(query)
	if normalized == "" {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.queryIDs[normalized]

	return ok
}

// Push appends messages to the queue. A push against a queue id that is
// gone indicates a broken mapping: it is logged and the dangling entries
// are cleaned up, never surfaced to the pusher.
func (m *QueueManager) Push(queueID string, msgs []*models.Record) {
	m.mu.RLock()
	queue, ok := m.queues[queueID]
	m.mu.RUnlock()

	if ok {
		queue.Push(msgs)

		m.log.Debug().
			Str("queue_id", queueID).
			Int("count", len(msgs)).
			Msg("notifications pushed")

		return
	}

	m.log.Error().Str("queue_id", queueID).Msg("push to missing queue, cleaning up mapping")

	m.mu.Lock()
	m.cleanUp(queueID)
	m.mu.Unlock()
}

// QueueIDFor resolves the queue id for a query without registering a new
// subscription. Used by the publisher on the hot path.
func (m *QueueManager) QueueIDFor(query *models.Query) (string, bool) {
	normalized := Normalize(query)
	if normalized == "" {
		return "", false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.queryIDs[normalized]

	return id, ok
}

// Queue returns the queue object for direct inspection or draining.
func (m *QueueManager) Queue(queueID string) (*Queue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.queues[queueID]

	return q, ok
}

// GetAllQueries returns the original query objects across all live
// queues, for recovery and re-matching.
func (m *QueueManager) GetAllQueries() []*models.Query {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Query

	for normalized := range m.queryIDs {
		for _, q := range m.origins[normalized] {
			out = append(out, q.Clone())
		}
	}

	return out
}

// QueueCreationTime returns when the queue serving the query was created.
func (m *QueueManager) QueueCreationTime(query *models.Query) (time.Time, bool) {
	normalized := Normalize(query)
	if normalized == "" {
		return time.Time{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.created[normalized]

	return t, ok
}

// DropQueue tears down a queue destination (subscriber endpoint gone).
// Any query mapping still pointing at the id heals on the next push.
func (m *QueueManager) DropQueue(queueID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.queues, queueID)
}

// cleanUp removes the queue and every table entry pointing at it.
// Callers must hold the write lock.
func (m *QueueManager) cleanUp(queueID string) {
	delete(m.queues, queueID)

	for normalized, id := range m.queryIDs {
		if id != queueID {
			continue
		}

		delete(m.queryIDs, normalized)
		delete(m.origins, normalized)
		delete(m.created, normalized)
	}
}
