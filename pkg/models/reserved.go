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

// Reserved record keys. These are assigned or consumed by the engine and
// never participate in a record's identity.
const (
	KeyURI      = "uri"
	KeyType     = "type"
	KeyState    = "state"
	KeyTTL      = "ttl"
	KeyExpires  = "expires"
	KeyOperator = "record-operator"
)

// Record lifecycle states.
const (
	StateRegistered = "registered"
	StateRenewed    = "renewed"
	StateDeleted    = "deleted"
	StateExpired    = "expired"
)

// Well-known record types.
const (
	TypeService   = "service"
	TypeHost      = "host"
	TypeInterface = "interface"
	TypePerson    = "person"
)

// IsReservedKey reports whether key is managed by the engine rather than
// supplied by the caller as an identity or matchable attribute.
func IsReservedKey(key string) bool {
	switch key {
	case KeyURI, KeyState, KeyTTL, KeyExpires, KeyOperator:
		return true
	default:
		return false
	}
}
