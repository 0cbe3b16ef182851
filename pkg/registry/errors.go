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

package registry

import "errors"

var (
	// ErrDuplicateEntry rejects a registration whose identity is already
	// held by a live record.
	ErrDuplicateEntry = errors.New("record with the same identity is already registered")

	// ErrRecordNotFound indicates an update or delete against a uri that
	// is absent or no longer live.
	ErrRecordNotFound = errors.New("record not found")

	// ErrLeaseInvalid rejects a registration whose ttl is absent or not a
	// valid ISO-8601 duration.
	ErrLeaseInvalid = errors.New("invalid or missing record ttl")

	// ErrMissingRecordType rejects a registration without a record type;
	// the type names the uri namespace.
	ErrMissingRecordType = errors.New("record type is required")

	// ErrStoreFailure wraps document store errors surfaced to callers.
	ErrStoreFailure = errors.New("document store operation failed")
)
