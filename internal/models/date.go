package models

import (
	"strings"
	"time"
)

// Date is a canonical calendar date formatted as YYYY-MM-DD. The zero value
// marks a value that could not be parsed.
type Date string

const dateLayout = "2006-01-02"

// timestampLayouts are tried in order. The Fitbit export mixes US month-first
// numeric dates with 12-hour clocks and ISO timestamps written by SQLite.
var timestampLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseTimestamp parses a raw date/time cell in any known layout.
// Returns false when no layout matches.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate returns the canonical calendar date of a raw date/time cell,
// dropping any time of day. Returns false for unparsable input.
func ParseDate(raw string) (Date, bool) {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return "", false
	}
	return DateOf(t), true
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Valid reports whether d holds a parsed date.
func (d Date) Valid() bool {
	return d != ""
}

// Time returns midnight UTC of d. The zero time is returned for invalid dates.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Weekend reports whether d falls on a Saturday or Sunday.
func (d Date) Weekend() bool {
	switch d.Time().Weekday() {
	case time.Saturday, time.Sunday:
		return d.Valid()
	}
	return false
}

// Within reports whether d lies in the inclusive range [start, end].
// Empty bounds are open.
func (d Date) Within(start, end Date) bool {
	if start != "" && d < start {
		return false
	}
	if end != "" && d > end {
		return false
	}
	return true
}

// DaysBetween returns the absolute number of days between a and b.
func DaysBetween(a, b Date) int {
	diff := a.Time().Sub(b.Time())
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}
