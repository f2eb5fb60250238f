package models

import (
	"fmt"
	"strings"
)

// Fitbit minute_sleep state codes.
const (
	SleepStateAsleep   = 1
	SleepStateRestless = 2
	SleepStateAwake    = 3
)

// SleepPolicy decides which minute samples count toward sleep duration.
type SleepPolicy string

const (
	// SleepAnyPositive counts every sample whose state code is greater than zero.
	SleepAnyPositive SleepPolicy = "any_positive"
	// SleepAsleepOnly counts only samples flagged asleep (code 1).
	SleepAsleepOnly SleepPolicy = "asleep_only"
)

// sleepStateNames maps the state labels seen in exports to their codes.
var sleepStateNames = map[string]int{
	"asleep":   SleepStateAsleep,
	"restless": SleepStateRestless,
	"awake":    SleepStateAwake,
	"1":        SleepStateAsleep,
	"2":        SleepStateRestless,
	"3":        SleepStateAwake,
}

// ParseSleepState maps a state label or numeric code to its state code.
// Returns false for unknown labels.
func ParseSleepState(raw string) (int, bool) {
	code, ok := sleepStateNames[strings.ToLower(strings.TrimSpace(raw))]
	return code, ok
}

// ParseSleepPolicy validates a configured policy name. Empty selects SleepAnyPositive.
func ParseSleepPolicy(s string) (SleepPolicy, error) {
	switch SleepPolicy(s) {
	case "":
		return SleepAnyPositive, nil
	case SleepAnyPositive, SleepAsleepOnly:
		return SleepPolicy(s), nil
	}
	return "", fmt.Errorf("unknown sleep policy %q", s)
}

// Qualifies reports whether a sample with the given state code counts as a
// minute of sleep under p.
func (p SleepPolicy) Qualifies(code int) bool {
	if p == SleepAsleepOnly {
		return code == SleepStateAsleep
	}
	return code > 0
}
