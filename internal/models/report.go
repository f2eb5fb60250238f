package models

import (
	"encoding/json"
	"math"
)

// Tracked leaderboard metrics.
const (
	MetricTotalSteps        = "total_steps"
	MetricTotalDistance     = "total_distance"
	MetricTotalCalories     = "total_calories"
	MetricAverageIntensity  = "average_intensity"
	MetricTotalRestfulSleep = "total_restful_sleep"
	MetricVeryActiveMinutes = "very_active_minutes"
)

// ChampionMetrics lists the leaderboard metrics in display order.
var ChampionMetrics = []string{
	MetricTotalSteps,
	MetricTotalDistance,
	MetricTotalCalories,
	MetricAverageIntensity,
	MetricTotalRestfulSleep,
	MetricVeryActiveMinutes,
}

// Intraday curve metrics.
const (
	MetricSteps      = "steps"
	MetricCalories   = "calories"
	MetricSleepHours = "sleep_hours"
)

// BucketLabels are the six fixed 4-hour windows in output order.
var BucketLabels = []string{"0-4", "4-8", "8-12", "12-16", "16-20", "20-24"}

// UserSummary holds one arithmetic mean per tracked metric for a user.
type UserSummary struct {
	UserID               int64   `json:"user_id"`
	Days                 int     `json:"days"`
	Tier                 Tier    `json:"tier"`
	TotalSteps           float64 `json:"total_steps"`
	TotalDistance        float64 `json:"total_distance"`
	Calories             float64 `json:"calories"`
	SedentaryMinutes     float64 `json:"sedentary_minutes"`
	LightlyActiveMinutes float64 `json:"lightly_active_minutes"`
	FairlyActiveMinutes  float64 `json:"fairly_active_minutes"`
	VeryActiveMinutes    float64 `json:"very_active_minutes"`
	SleepMinutes         float64 `json:"sleep_minutes"`
	HourlyCalories       float64 `json:"hourly_calories"`
	TotalIntensity       float64 `json:"total_intensity"`
	AverageIntensity     float64 `json:"average_intensity"`
	HourlySteps          float64 `json:"hourly_steps"`
	WeightKg             float64 `json:"weight_kg"`
	BMI                  float64 `json:"bmi"`
	HeartRate            float64 `json:"heart_rate"`
}

// MetricStats is the (mean, median, std) triple of one metric.
type MetricStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

// UserStatistics is the per-user statistics block over a fixed metric list.
type UserStatistics struct {
	UserID           int64       `json:"user_id"`
	TotalSteps       MetricStats `json:"total_steps"`
	Calories         MetricStats `json:"calories"`
	SedentaryMinutes MetricStats `json:"sedentary_minutes"`
	SleepMinutes     MetricStats `json:"sleep_minutes"`
	WeightKg         MetricStats `json:"weight_kg"`
	BMI              MetricStats `json:"bmi"`
}

// LeaderMetrics holds one user's totals over the observation window.
type LeaderMetrics struct {
	UserID            int64   `json:"user_id"`
	TotalSteps        float64 `json:"total_steps"`
	TotalDistance     float64 `json:"total_distance"`
	TotalCalories     float64 `json:"total_calories"`
	AverageIntensity  float64 `json:"average_intensity"`
	TotalRestfulSleep float64 `json:"total_restful_sleep"`
	VeryActiveMinutes float64 `json:"very_active_minutes"`
	FirstDate         Date    `json:"first_date"`
	LastDate          Date    `json:"last_date"`
	UsageDays         int     `json:"usage_days"`
}

// Metric returns the value of a named leaderboard metric.
func (m LeaderMetrics) Metric(name string) (float64, bool) {
	switch name {
	case MetricTotalSteps:
		return m.TotalSteps, true
	case MetricTotalDistance:
		return m.TotalDistance, true
	case MetricTotalCalories:
		return m.TotalCalories, true
	case MetricAverageIntensity:
		return m.AverageIntensity, true
	case MetricTotalRestfulSleep:
		return m.TotalRestfulSleep, true
	case MetricVeryActiveMinutes:
		return m.VeryActiveMinutes, true
	}
	return 0, false
}

// ChampionEntry names the holder of the maximum value of one metric.
type ChampionEntry struct {
	Metric string  `json:"metric"`
	UserID int64   `json:"user_id"`
	Value  float64 `json:"value"`
}

// TimeBucketAverage is the population value of one metric in one 4-hour window.
// Value is NaN when no sample fell in the bucket.
type TimeBucketAverage struct {
	Metric  string  `json:"metric"`
	Bucket  string  `json:"bucket"`
	Value   float64 `json:"value"`
	Samples int     `json:"samples"`
}

// MarshalJSON encodes a NaN value as null.
func (b TimeBucketAverage) MarshalJSON() ([]byte, error) {
	var value *float64
	if !math.IsNaN(b.Value) {
		value = &b.Value
	}
	return json.Marshal(struct {
		Metric  string   `json:"metric"`
		Bucket  string   `json:"bucket"`
		Value   *float64 `json:"value"`
		Samples int      `json:"samples"`
	}{b.Metric, b.Bucket, value, b.Samples})
}

// UnmarshalJSON decodes a null value as NaN.
func (b *TimeBucketAverage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Metric  string   `json:"metric"`
		Bucket  string   `json:"bucket"`
		Value   *float64 `json:"value"`
		Samples int      `json:"samples"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = TimeBucketAverage{Metric: raw.Metric, Bucket: raw.Bucket, Value: math.NaN(), Samples: raw.Samples}
	if raw.Value != nil {
		b.Value = *raw.Value
	}
	return nil
}

// WeekpartComparison holds weekday or weekend means across all users.
type WeekpartComparison struct {
	Weekend      bool    `json:"weekend"`
	Days         int     `json:"days"`
	TotalSteps   float64 `json:"total_steps"`
	SleepMinutes float64 `json:"sleep_minutes"`
	Calories     float64 `json:"calories"`
}

// DiagnosticKind classifies a non-fatal data problem.
type DiagnosticKind string

const (
	DiagMalformedDate  DiagnosticKind = "malformed_date"
	DiagEmptyResult    DiagnosticKind = "empty_result"
	DiagMissingColumn  DiagnosticKind = "missing_column"
	DiagNoObservations DiagnosticKind = "no_observations"
	DiagStepMismatch   DiagnosticKind = "step_mismatch"
	DiagRejectedRow    DiagnosticKind = "rejected_row"
)

// Diagnostic is a non-fatal problem found during a run, with enough context
// to locate the offending source.
type Diagnostic struct {
	Stage   string         `json:"stage"`
	Source  string         `json:"source"`
	Kind    DiagnosticKind `json:"kind"`
	Count   int            `json:"count,omitempty"`
	Message string         `json:"message"`
}
