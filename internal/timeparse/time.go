package timeparse

import (
	"fmt"
	"time"
)

// layouts are tried in order. Values without a zone are UTC, matching the
// dates MetaCPAN reports.
var layouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseTime parses an absolute date: YYYY-MM-DD, YYYY-MM-DD HH:MM:SS,
// YYYY-MM-DDTHH:MM:SS or RFC3339.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD, YYYY-MM-DD HH:MM:SS, or RFC3339)", s)
}

// ParseCutoff resolves a filter bound given either as an age relative to
// now ("2w") or as an absolute date ("2024-01-31").
func ParseCutoff(s string, now time.Time) (time.Time, error) {
	if age, err := ParseAge(s); err == nil {
		return now.Add(-age), nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cutoff %q: expected an age like 2w or a date like 2024-01-31", s)
	}
	return t, nil
}
