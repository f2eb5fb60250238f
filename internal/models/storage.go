package models

import (
	"fmt"
	"strconv"
	"strings"
)

// DailyActivity is one row of the daily-activity spine, as read from the
// flat file or the daily_activity table.
type DailyActivity struct {
	UserID               int64   `json:"user_id"`
	ActivityDate         string  `json:"activity_date"`
	TotalSteps           float64 `json:"total_steps"`
	TotalDistance        float64 `json:"total_distance"`
	Calories             float64 `json:"calories"`
	SedentaryMinutes     float64 `json:"sedentary_minutes"`
	LightlyActiveMinutes float64 `json:"lightly_active_minutes"`
	FairlyActiveMinutes  float64 `json:"fairly_active_minutes"`
	VeryActiveMinutes    float64 `json:"very_active_minutes"`
}

// HeartRateRow is one heart_rate sample (seconds granularity).
type HeartRateRow struct {
	UserID int64
	Time   string
	Value  float64
}

// HourlySample is one row of hourly_calories or hourly_steps.
type HourlySample struct {
	UserID       int64
	ActivityHour string
	Value        float64
}

// HourlyIntensityRow is one row of hourly_intensity. AverageIntensity is nil
// when the source does not carry the column.
type HourlyIntensityRow struct {
	UserID           int64
	ActivityHour     string
	TotalIntensity   float64
	AverageIntensity *float64
}

// MinuteSleepRow is one per-minute sleep sample.
type MinuteSleepRow struct {
	UserID int64
	Date   string
	Value  int
	LogID  *int64
}

// WeightLogRow is one weight_log entry. Any measurement may be absent.
type WeightLogRow struct {
	UserID   int64
	Date     string
	WeightKg *float64
	BMI      *float64
	Fat      *float64
}

// SleepDailyTotal is the summed sleep minutes of one user on one date.
type SleepDailyTotal struct {
	UserID  int64
	Date    Date
	Minutes float64
}

// Filter narrows source queries. Zero values mean no restriction.
type Filter struct {
	UserIDs []int64 `json:"user_ids,omitempty"`
	Start   Date    `json:"start,omitempty"`
	End     Date    `json:"end,omitempty"`
}

// Allows reports whether a user/date pair passes the filter.
func (f Filter) Allows(userID int64, d Date) bool {
	if !f.AllowsUser(userID) {
		return false
	}
	return d.Within(f.Start, f.End)
}

// AllowsUser reports whether userID passes the user restriction.
func (f Filter) AllowsUser(userID int64) bool {
	if len(f.UserIDs) == 0 {
		return true
	}
	for _, id := range f.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Or returns f with every unset field taken from base.
func (f Filter) Or(base Filter) Filter {
	if len(f.UserIDs) == 0 {
		f.UserIDs = base.UserIDs
	}
	if f.Start == "" {
		f.Start = base.Start
	}
	if f.End == "" {
		f.End = base.End
	}
	return f
}

// ParseFilter builds a filter from raw query values: a comma-separated user
// list and optional start/end dates in any known layout.
func ParseFilter(users, start, end string) (Filter, error) {
	var f Filter
	for _, raw := range strings.Split(users, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid user id %q", raw)
		}
		f.UserIDs = append(f.UserIDs, id)
	}
	for _, b := range []struct {
		raw string
		dst *Date
	}{{start, &f.Start}, {end, &f.End}} {
		if b.raw == "" {
			continue
		}
		d, ok := ParseDate(b.raw)
		if !ok {
			return Filter{}, fmt.Errorf("invalid date %q", b.raw)
		}
		*b.dst = d
	}
	if f.Start != "" && f.End != "" && f.End < f.Start {
		return Filter{}, fmt.Errorf("end %s is before start %s", f.End, f.Start)
	}
	return f, nil
}
