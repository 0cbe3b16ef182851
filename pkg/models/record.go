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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	errUnsupportedValue = errors.New("unsupported field value")
	errNotAnObject      = errors.New("record must be a JSON object")
)

// Record is an insertion-ordered mapping of string keys to tagged values.
// A registered record carries the reserved uri/state/ttl/expires fields in
// addition to the caller-supplied attributes.
type Record struct {
	keys   []string
	fields map[string]Value
}

func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

// Set stores the value under key, preserving first-insertion order.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}

	r.fields[key] = v
}

func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.fields[key]
	return v, ok
}

func (r *Record) Delete(key string) {
	if _, ok := r.fields[key]; !ok {
		return
	}

	delete(r.fields, key)

	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

func (r *Record) Len() int {
	return len(r.keys)
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	cp := make([]string, len(r.keys))
	copy(cp, r.keys)

	return cp
}

func (r *Record) Clone() *Record {
	cp := NewRecord()
	for _, k := range r.keys {
		cp.Set(k, r.fields[k])
	}

	return cp
}

// Merge copies every field of other into r, overwriting existing keys.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}

	for _, k := range other.keys {
		r.Set(k, other.fields[k])
	}
}

func (r *Record) URI() string {
	v, ok := r.fields[KeyURI]
	if !ok {
		return ""
	}

	return v.String()
}

func (r *Record) SetURI(uri string) {
	r.Set(KeyURI, StringValue(uri))
}

func (r *Record) Type() string {
	v, ok := r.fields[KeyType]
	if !ok {
		return ""
	}

	return v.String()
}

func (r *Record) State() string {
	v, ok := r.fields[KeyState]
	if !ok {
		return ""
	}

	return v.String()
}

func (r *Record) SetState(state string) {
	r.Set(KeyState, StringValue(state))
}

// TTL returns the raw lease duration string, e.g. "PT10M".
func (r *Record) TTL() (string, bool) {
	v, ok := r.fields[KeyTTL]
	if !ok || v.Kind() != KindString {
		return "", false
	}

	return v.String(), true
}

func (r *Record) Expires() (time.Time, bool) {
	v, ok := r.fields[KeyExpires]
	if !ok {
		return time.Time{}, false
	}

	return v.Time()
}

func (r *Record) SetExpires(t time.Time) {
	r.Set(KeyExpires, TimeValue(t))
}

// IsLive reports whether the record is matchable as of the given instant:
// not deleted, not expired, and within its lease window.
func (r *Record) IsLive(asOf time.Time) bool {
	switch r.State() {
	case StateDeleted, StateExpired:
		return false
	}

	expires, ok := r.Expires()
	if !ok {
		return false
	}

	return expires.After(asOf)
}

// MarshalJSON renders the record as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}

		buf.Write(name)
		buf.WriteByte(':')

		val, err := json.Marshal(r.fields[k])
		if err != nil {
			return nil, err
		}

		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object token by token so that the original
// key order is preserved.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotAnObject
	}

	rec := NewRecord()

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyTok.(string)
		if !ok {
			return errNotAnObject
		}

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		val, err := valueFromDecoded(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}

		rec.Set(key, val)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = *rec

	return nil
}

func valueFromDecoded(raw interface{}) (Value, error) {
	if num, ok := raw.(json.Number); ok {
		f, err := num.Float64()
		if err != nil {
			return Value{}, err
		}

		return NumberValue(f), nil
	}

	if list, ok := raw.([]interface{}); ok {
		strs := make([]string, 0, len(list))

		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: list element %T", errUnsupportedValue, item)
			}

			strs = append(strs, s)
		}

		return StringsValue(strs), nil
	}

	return valueFromInterface(raw)
}
