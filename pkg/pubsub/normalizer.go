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

// Package pubsub implements the subscription side of the registry: query
// normalization, per-query notification queues, and the publisher that
// fans a record change out to every matching queue.
package pubsub

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/carverauto/lookupd/pkg/models"
)

// Normalize renders a query in canonical form: constraints sorted by key,
// then operator, then canonical value, prefixed with the top-level
// operator. Two queries with equal constraint sets normalize identically
// regardless of insertion order. The empty query normalizes to "".
func Normalize(q *models.Query) string {
	if q == nil || q.Len() == 0 {
		return ""
	}

	constraints := q.Constraints()

	sort.Slice(constraints, func(i, j int) bool {
		a, b := constraints[i], constraints[j]

		if a.Key != b.Key {
			return a.Key < b.Key
		}

		if a.Op != b.Op {
			return a.Op < b.Op
		}

		return a.Value.Canonical() < b.Value.Canonical()
	})

	parts := make([]string, 0, len(constraints)+1)
	parts = append(parts, string(q.Operator()))

	for _, c := range constraints {
		parts = append(parts, c.Key+"="+string(c.Op)+"="+c.Value.Canonical())
	}

	return strings.Join(parts, ";")
}

// Digest derives the fixed-length queue identifier for a normalized query:
// the hex-encoded SHA-256 of its content. The same query yields the same
// id across restarts and across manager instances.
func Digest(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(sum[:])
}
