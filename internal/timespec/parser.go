package timespec

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form accepted besides RFC3339.
const DateLayout = "2006-01-02"

// Parse parses a time specification relative to now.
// Supports three formats:
//   - Go duration format: "24h", "30m", "1h30m" (that long before now)
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//   - calendar dates: "2025-10-29" (midnight UTC)
func Parse(spec string, now time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, ok := ParseTimestamp(spec); ok {
		return t, nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use duration like '24h', RFC3339 like '2025-10-29T13:00:00Z' or a date like '2025-10-29')", spec)
}

// ParseTimestamp reads an absolute point in time written as RFC3339 or as a
// calendar date. Papers carry free-form submit times, so a value in neither
// form is reported with ok=false rather than an error.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseRange parses both --since and --until flags into a time range.
// Zero values indicate "no bound" for that end of the range.
//
// Validates that since < until if both are specified.
func ParseRange(since, until string, now time.Time) (time.Time, time.Time, error) {
	var sinceT, untilT time.Time
	var err error

	if since != "" {
		sinceT, err = Parse(since, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilT, err = Parse(until, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if !sinceT.IsZero() && !untilT.IsZero() && !sinceT.Before(untilT) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}

	return sinceT, untilT, nil
}
