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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration indicates a ttl string that is not a valid ISO-8601
// duration.
var ErrInvalidDuration = errors.New("invalid ISO-8601 duration")

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// ParseTTL parses an ISO-8601 duration of the form PnWnDTnHnMnS, e.g.
// "PT10M" or "P1DT12H". Years and months are rejected: leases are short
// lived and calendar arithmetic has no place here.
func ParseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	}

	rest, ok := strings.CutPrefix(s, "P")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	datePart := rest
	timePart := ""

	if idx := strings.IndexByte(rest, 'T'); idx >= 0 {
		datePart = rest[:idx]
		timePart = rest[idx+1:]

		if timePart == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
	}

	if datePart == "" && timePart == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var total time.Duration

	dateUnits := map[byte]time.Duration{'W': week, 'D': day}

	d, err := parseComponents(datePart, "WD", dateUnits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	total += d

	timeUnits := map[byte]time.Duration{'H': time.Hour, 'M': time.Minute, 'S': time.Second}

	d, err = parseComponents(timePart, "HMS", timeUnits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	total += d

	if total <= 0 {
		return 0, fmt.Errorf("%w: non-positive %q", ErrInvalidDuration, s)
	}

	return total, nil
}

// parseComponents consumes number+designator pairs in the given designator
// order, e.g. "1D" or "10M30S".
func parseComponents(part, order string, units map[byte]time.Duration) (time.Duration, error) {
	var total time.Duration

	pos := 0

	for part != "" {
		idx := strings.IndexAny(part, order[pos:])
		if idx < 0 {
			return 0, ErrInvalidDuration
		}

		numEnd := 0
		for numEnd < len(part) && (part[numEnd] >= '0' && part[numEnd] <= '9' || part[numEnd] == '.') {
			numEnd++
		}

		if numEnd == 0 || numEnd >= len(part) {
			return 0, ErrInvalidDuration
		}

		designator := part[numEnd]

		unit, ok := units[designator]
		if !ok {
			return 0, ErrInvalidDuration
		}

		// Designators must appear in canonical order, each at most once.
		offset := strings.IndexByte(order[pos:], designator)
		if offset < 0 {
			return 0, ErrInvalidDuration
		}

		pos += offset + 1

		n, err := strconv.ParseFloat(part[:numEnd], 64)
		if err != nil {
			return 0, ErrInvalidDuration
		}

		total += time.Duration(n * float64(unit))
		part = part[numEnd+1:]
	}

	return total, nil
}

// FormatTTL renders a duration in canonical ISO-8601 form, e.g. "PT10M".
func FormatTTL(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}

	var b strings.Builder

	b.WriteString("P")

	if days := d / day; days > 0 {
		fmt.Fprintf(&b, "%dD", days)
		d -= days * day
	}

	if d == 0 {
		return b.String()
	}

	b.WriteString("T")

	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}

	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}

	if s := d.Seconds(); s > 0 {
		fmt.Fprintf(&b, "%gS", s)
	}

	return b.String()
}
