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

package models

// Operator selects how a query combines its constraints, and how a single
// constraint treats multi-valued record fields.
type Operator string

const (
	OperatorAll Operator = "all"
	OperatorAny Operator = "any"

	// OperatorDefault applies when a query or constraint does not name one.
	OperatorDefault = OperatorAll
)

// Constraint is one (key, operator, value) match condition.
type Constraint struct {
	Key   string
	Op    Operator
	Value Value
}

// Query is an ordered set of constraints combined under a top-level
// operator: all (conjunction, default) or any (disjunction).
type Query struct {
	operator    Operator
	constraints []Constraint
}

func NewQuery() *Query {
	return &Query{operator: OperatorDefault}
}

func (q *Query) SetOperator(op Operator) {
	if op != OperatorAll && op != OperatorAny {
		op = OperatorDefault
	}

	q.operator = op
}

func (q *Query) Operator() Operator {
	if q.operator == "" {
		return OperatorDefault
	}

	return q.operator
}

// Add appends a constraint. An empty op defaults to all.
func (q *Query) Add(key string, op Operator, value Value) {
	if op != OperatorAll && op != OperatorAny {
		op = OperatorDefault
	}

	q.constraints = append(q.constraints, Constraint{Key: key, Op: op, Value: value})
}

func (q *Query) Len() int {
	return len(q.constraints)
}

func (q *Query) Constraints() []Constraint {
	cp := make([]Constraint, len(q.constraints))
	copy(cp, q.constraints)

	return cp
}

func (q *Query) Clone() *Query {
	cp := NewQuery()
	cp.operator = q.Operator()
	cp.constraints = q.Constraints()

	return cp
}

// Matches evaluates the query against a record: under all, every constraint
// must be satisfied; under any, at least one.
func (q *Query) Matches(rec *Record) bool {
	if rec == nil || len(q.constraints) == 0 {
		return false
	}

	for _, c := range q.constraints {
		matched := c.matches(rec)

		if q.Operator() == OperatorAny {
			if matched {
				return true
			}

			continue
		}

		if !matched {
			return false
		}
	}

	return q.Operator() == OperatorAll
}

func (c Constraint) matches(rec *Record) bool {
	field, ok := rec.Get(c.Key)
	if !ok {
		return false
	}

	// Multi-valued record fields: the constraint operator decides whether
	// every requested value must be present or just one.
	if field.Kind() == KindStringSlice {
		return matchSlice(c, field)
	}

	return field.Equal(c.Value)
}

func matchSlice(c Constraint, field Value) bool {
	have := make(map[string]struct{})
	for _, s := range field.Strings() {
		have[s] = struct{}{}
	}

	wanted := c.Value.Strings()
	if c.Value.Kind() != KindStringSlice {
		wanted = []string{c.Value.Canonical()}
	}

	if len(wanted) == 0 {
		return false
	}

	matches := 0

	for _, w := range wanted {
		if _, ok := have[w]; ok {
			matches++
		}
	}

	if c.Op == OperatorAny {
		return matches > 0
	}

	return matches == len(wanted)
}
