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
	"sync"
	"time"

	"github.com/carverauto/lookupd/pkg/models"
)

// Queue is the per-distinct-query mailbox of pending notifications.
// Appends are ordered per pusher; consumers drain in arrival order.
type Queue struct {
	id      string
	created time.Time

	mu      sync.Mutex
	pending []*models.Record
}

func newQueue(id string, created time.Time) *Queue {
	return &Queue{id: id, created: created}
}

func (q *Queue) ID() string {
	return q.id
}

func (q *Queue) CreatedAt() time.Time {
	return q.created
}

func (q *Queue) Push(msgs []*models.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, msgs...)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// Pending returns a copy of the queued notifications without consuming
// them.
func (q *Queue) Pending() []*models.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	cp := make([]*models.Record, len(q.pending))
	copy(cp, q.pending)

	return cp
}

// Drain removes and returns every pending notification.
func (q *Queue) Drain() []*models.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil

	return out
}
