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

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind discriminates the scalar kinds a record field can hold.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindTime
	KindStringSlice
)

// Value is a small tagged union used uniformly for record fields,
// query constraint values, and notification payloads.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	ts   time.Time
	list []string
}

func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

func TimeValue(t time.Time) Value {
	return Value{kind: KindTime, ts: t.UTC()}
}

func StringsValue(list []string) Value {
	cp := make([]string, len(list))
	copy(cp, list)

	return Value{kind: KindStringSlice, list: cp}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) String() string { return v.str }

func (v Value) Number() float64 { return v.num }

func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.ts, true
	case KindString:
		// Timestamps survive a JSON round trip as strings.
		if t, err := time.Parse(time.RFC3339Nano, v.str); err == nil {
			return t, true
		}
	case KindNumber, KindStringSlice:
	}

	return time.Time{}, false
}

func (v Value) Strings() []string {
	if v.kind != KindStringSlice {
		return nil
	}

	cp := make([]string, len(v.list))
	copy(cp, v.list)

	return cp
}

// Canonical renders the value in the stable form used for query
// normalization and equality checks.
func (v Value) Canonical() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTime:
		return v.ts.UTC().Format(time.RFC3339Nano)
	case KindStringSlice:
		return strings.Join(v.list, ",")
	}

	return ""
}

// Equal reports whether two values are equal under canonical formatting.
func (v Value) Equal(other Value) bool {
	return v.Canonical() == other.Canonical()
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindTime:
		return json.Marshal(v.ts.UTC().Format(time.RFC3339Nano))
	case KindStringSlice:
		return json.Marshal(v.list)
	}

	return nil, fmt.Errorf("%w: kind %d", errUnsupportedValue, v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	decoded, err := valueFromInterface(raw)
	if err != nil {
		return err
	}

	*v = decoded

	return nil
}

func valueFromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case []interface{}:
		list := make([]string, 0, len(t))

		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: list element %T", errUnsupportedValue, item)
			}

			list = append(list, s)
		}

		return StringsValue(list), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", errUnsupportedValue, raw)
	}
}
