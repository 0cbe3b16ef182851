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
	"context"

	"github.com/carverauto/lookupd/pkg/logger"
	"github.com/carverauto/lookupd/pkg/models"
)

// Publisher fans a written record out to every subscription queue whose
// query it satisfies. Delivery is fire-and-forget: confidence after a
// failed push is restored by the failure-recovery sweep, not by retries.
type Publisher struct {
	queues *QueueManager
	log    logger.Logger
}

func NewPublisher(queues *QueueManager, log logger.Logger) *Publisher {
	return &Publisher{queues: queues, log: log}
}

// Publish evaluates every live subscription against the record and pushes
// one notification per matching queue. Multiple original queries that
// normalized onto the same queue produce a single push.
func (p *Publisher) Publish(_ context.Context, rec *models.Record) {
	if rec == nil {
		return
	}

	pushed := make(map[string]struct{})

	for _, query := range p.queues.GetAllQueries() {
		if !query.Matches(rec) {
			continue
		}

		id, ok := p.queues.QueueIDFor(query)
		if !ok {
			continue
		}

		if _, done := pushed[id]; done {
			continue
		}

		pushed[id] = struct{}{}

		p.queues.Push(id, []*models.Record{rec.Clone()})
	}

	if len(pushed) > 0 {
		p.log.Debug().
			Str("uri", rec.URI()).
			Int("queues", len(pushed)).
			Msg("record change published to matching queues")
	}
}
