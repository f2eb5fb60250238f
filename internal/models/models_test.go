package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

// TestParseDateLayouts verifies that every layout found in the Fitbit export
// collapses to the same canonical calendar date.
func TestParseDateLayouts(t *testing.T) {
	cases := []struct {
		input string
		want  Date
	}{
		{"4/12/2016", "2016-04-12"},
		{"4/12/2016 12:00:00 AM", "2016-04-12"},
		{"4/12/2016 11:59:00 PM", "2016-04-12"},
		{"12/1/2016 3:05 PM", "2016-12-01"},
		{"2016-04-12", "2016-04-12"},
		{"2016-04-12 07:15:00", "2016-04-12"},
		{"2016-04-12T07:15:00", "2016-04-12"},
		{"2016-04-12T07:15:00Z", "2016-04-12"},
		{"  2016-04-12  ", "2016-04-12"},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.input)
		if !ok {
			t.Errorf("ParseDate(%q): expected ok=true", tc.input)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDate(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// TestParseDateInvalid verifies that unparsable cells are reported as invalid
// instead of failing.
func TestParseDateInvalid(t *testing.T) {
	for _, input := range []string{"", "yesterday", "13/45/2016", "2016-02-30"} {
		d, ok := ParseDate(input)
		if ok {
			t.Errorf("ParseDate(%q) = %q, expected ok=false", input, d)
		}
		if d.Valid() {
			t.Errorf("ParseDate(%q) returned a valid date", input)
		}
	}
}

// TestParseTimestampHour verifies the 12-hour clock is read correctly, since
// the time-bucket engine depends on the hour of day.
func TestParseTimestampHour(t *testing.T) {
	cases := []struct {
		input string
		hour  int
	}{
		{"4/12/2016 12:00:00 AM", 0},
		{"4/12/2016 1:00:00 AM", 1},
		{"4/12/2016 12:00:00 PM", 12},
		{"4/12/2016 9:00:00 PM", 21},
		{"2016-04-12 17:00:00", 17},
	}
	for _, tc := range cases {
		ts, ok := ParseTimestamp(tc.input)
		if !ok {
			t.Fatalf("ParseTimestamp(%q): expected ok=true", tc.input)
		}
		if ts.Hour() != tc.hour {
			t.Errorf("ParseTimestamp(%q).Hour() = %d, want %d", tc.input, ts.Hour(), tc.hour)
		}
	}
}

// TestDateHelpers covers range checks, weekend detection and day distance.
func TestDateHelpers(t *testing.T) {
	d := Date("2016-04-16") // Saturday
	if !d.Weekend() {
		t.Error("2016-04-16 should be a weekend day")
	}
	if Date("2016-04-18").Weekend() {
		t.Error("2016-04-18 should be a weekday")
	}
	if Date("").Weekend() {
		t.Error("invalid date should not be a weekend")
	}
	if !d.Within("", "") {
		t.Error("open range should contain every date")
	}
	if !d.Within("2016-04-16", "2016-04-16") {
		t.Error("range bounds are inclusive")
	}
	if d.Within("2016-04-17", "") {
		t.Error("date before start should be outside")
	}
	if got := DaysBetween("2016-04-10", "2016-04-16"); got != 6 {
		t.Errorf("DaysBetween = %d, want 6", got)
	}
}

// TestSleepPolicyQualifies verifies the two state-code policies.
func TestSleepPolicyQualifies(t *testing.T) {
	cases := []struct {
		policy SleepPolicy
		code   int
		want   bool
	}{
		{SleepAnyPositive, 0, false},
		{SleepAnyPositive, 1, true},
		{SleepAnyPositive, 2, true},
		{SleepAnyPositive, 3, true},
		{SleepAsleepOnly, 1, true},
		{SleepAsleepOnly, 2, false},
		{SleepAsleepOnly, 3, false},
	}
	for _, tc := range cases {
		if got := tc.policy.Qualifies(tc.code); got != tc.want {
			t.Errorf("%s.Qualifies(%d) = %v, want %v", tc.policy, tc.code, got, tc.want)
		}
	}
}

// TestParseSleepPolicy verifies defaults and rejection of unknown names.
func TestParseSleepPolicy(t *testing.T) {
	p, err := ParseSleepPolicy("")
	if err != nil || p != SleepAnyPositive {
		t.Errorf("ParseSleepPolicy(\"\") = %q, %v", p, err)
	}
	if _, err := ParseSleepPolicy("deep_only"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

// TestParseSleepState verifies label and numeric lookup, case-insensitively.
func TestParseSleepState(t *testing.T) {
	cases := map[string]int{"Asleep": 1, "RESTLESS": 2, " awake ": 3, "1": 1}
	for input, want := range cases {
		got, ok := ParseSleepState(input)
		if !ok || got != want {
			t.Errorf("ParseSleepState(%q) = %d, %v; want %d", input, got, ok, want)
		}
	}
	if _, ok := ParseSleepState("dozing"); ok {
		t.Error("expected unknown label to be rejected")
	}
}

// TestTimeBucketAverageJSONNaN verifies empty buckets encode as null so the
// JSON encoder does not fail on NaN.
func TestTimeBucketAverageJSONNaN(t *testing.T) {
	data, err := json.Marshal(TimeBucketAverage{Metric: MetricSteps, Bucket: "0-4", Value: math.NaN()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"value":null`) {
		t.Errorf("got %s, want null value", data)
	}

	data, err = json.Marshal(TimeBucketAverage{Metric: MetricSteps, Bucket: "0-4", Value: 12.5, Samples: 2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"value":12.5`) {
		t.Errorf("got %s, want 12.5", data)
	}
}

// TestParseTier verifies round-tripping of tier names.
func TestParseTier(t *testing.T) {
	for _, tier := range []Tier{TierLight, TierModerate, TierHeavy} {
		got, err := ParseTier(tier.String())
		if err != nil || got != tier {
			t.Errorf("ParseTier(%q) = %v, %v", tier.String(), got, err)
		}
	}
	if _, err := ParseTier("Extreme"); err == nil {
		t.Error("expected error for unknown tier")
	}
}

// TestTimeBucketAverageJSONNull verifies a null value decodes back to NaN.
func TestTimeBucketAverageJSONNull(t *testing.T) {
	var b TimeBucketAverage
	if err := json.Unmarshal([]byte(`{"metric":"steps","bucket":"4-8","value":null,"samples":0}`), &b); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(b.Value) || b.Bucket != "4-8" {
		t.Errorf("got %+v, want NaN value", b)
	}
}

// TestParseFilter covers user lists, date layouts and window validation.
func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("1503960366, 1624580081", "4/12/2016", "2016-05-12")
	if err != nil {
		t.Fatal(err)
	}
	if len(f.UserIDs) != 2 || f.UserIDs[1] != 1624580081 || f.Start != "2016-04-12" || f.End != "2016-05-12" {
		t.Errorf("got %+v", f)
	}

	if f, err := ParseFilter("", "", ""); err != nil || len(f.UserIDs) != 0 || f.Start != "" {
		t.Errorf("empty input: %+v, %v", f, err)
	}

	for _, bad := range [][3]string{{"abc", "", ""}, {"", "someday", ""}, {"", "2016-05-01", "2016-04-01"}} {
		if _, err := ParseFilter(bad[0], bad[1], bad[2]); err == nil {
			t.Errorf("ParseFilter(%q) expected error", bad)
		}
	}
}

// TestFilterOr verifies request values override configured defaults.
func TestFilterOr(t *testing.T) {
	base := Filter{UserIDs: []int64{1}, Start: "2016-04-01", End: "2016-04-30"}
	got := Filter{Start: "2016-04-10"}.Or(base)
	if got.Start != "2016-04-10" || got.End != "2016-04-30" || len(got.UserIDs) != 1 {
		t.Errorf("got %+v", got)
	}
}

// TestLeaderMetric verifies every leaderboard metric resolves to its field.
func TestLeaderMetric(t *testing.T) {
	m := LeaderMetrics{
		TotalSteps:        1,
		TotalDistance:     2,
		TotalCalories:     3,
		AverageIntensity:  4,
		TotalRestfulSleep: 5,
		VeryActiveMinutes: 6,
	}
	want := map[string]float64{
		MetricTotalSteps:        1,
		MetricTotalDistance:     2,
		MetricTotalCalories:     3,
		MetricAverageIntensity:  4,
		MetricTotalRestfulSleep: 5,
		MetricVeryActiveMinutes: 6,
	}
	if len(ChampionMetrics) != len(want) {
		t.Fatalf("got %d champion metrics, want %d", len(ChampionMetrics), len(want))
	}
	for _, name := range ChampionMetrics {
		got, ok := m.Metric(name)
		if !ok || got != want[name] {
			t.Errorf("Metric(%q) = %v, %v; want %v", name, got, ok, want[name])
		}
	}
	if _, ok := m.Metric("heart_rate"); ok {
		t.Error("unknown metric should not resolve")
	}
}
