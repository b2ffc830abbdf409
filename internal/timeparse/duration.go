// Package timeparse parses the release-age filters accepted by the CLI.
package timeparse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

var units = map[string]time.Duration{
	"h":      time.Hour,
	"hour":   time.Hour,
	"hours":  time.Hour,
	"d":      day,
	"day":    day,
	"days":   day,
	"w":      week,
	"week":   week,
	"weeks":  week,
	"mo":     month,
	"month":  month,
	"months": month,
	"y":      year,
	"year":   year,
	"years":  year,
}

// ParseAge parses a release age such as "36h", "2weeks", "6mo" or "1y".
// Months are 30 days and years 365 days. Minutes and seconds are not
// accepted because release dates are not that precise.
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty age")
	}

	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	switch i {
	case 0:
		return 0, fmt.Errorf("invalid age %q: missing number", s)
	case -1:
		return 0, fmt.Errorf("invalid age %q: missing unit", s)
	}

	num, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", s, err)
	}

	name := strings.ToLower(strings.TrimSpace(s[i:]))
	unit, ok := units[name]
	if !ok {
		return 0, fmt.Errorf("invalid age %q: unknown unit %q", s, name)
	}
	if num > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("invalid age %q: value too large", s)
	}

	return time.Duration(num) * unit, nil
}
