package models

import "fmt"

// Provenance records where a continuous value came from.
type Provenance string

const (
	// ProvenanceNone marks a cell that is still null.
	ProvenanceNone Provenance = ""
	// ProvenanceMeasured is a value read from the source.
	ProvenanceMeasured Provenance = "measured"
	// ProvenanceMedian is the dataset-wide median fill.
	ProvenanceMedian Provenance = "median"
	// ProvenanceBandEstimate is the coarse weight/BMI band heuristic. Consumers
	// that need measured values only should exclude it.
	ProvenanceBandEstimate Provenance = "band_estimate"
)

// Tier is a per-user activity classification.
type Tier int

const (
	TierLight Tier = iota
	TierModerate
	TierHeavy
)

var tierNames = [...]string{"Light", "Moderate", "Heavy"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier maps a tier name back to its value.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// MergedDailyRecord is one reconciled row per (user, date) of the spine.
// Pointer fields are null until the imputer runs.
type MergedDailyRecord struct {
	UserID int64 `json:"user_id"`
	Date   Date  `json:"date"`

	TotalSteps           float64 `json:"total_steps"`
	TotalDistance        float64 `json:"total_distance"`
	Calories             float64 `json:"calories"`
	SedentaryMinutes     float64 `json:"sedentary_minutes"`
	LightlyActiveMinutes float64 `json:"lightly_active_minutes"`
	FairlyActiveMinutes  float64 `json:"fairly_active_minutes"`
	VeryActiveMinutes    float64 `json:"very_active_minutes"`

	SleepMinutes     *float64 `json:"sleep_minutes"`
	HourlyCalories   *float64 `json:"hourly_calories"`
	TotalIntensity   *float64 `json:"total_intensity"`
	AverageIntensity *float64 `json:"average_intensity"`
	HourlySteps      *float64 `json:"hourly_steps"`

	WeightKg  *float64 `json:"weight_kg"`
	BMI       *float64 `json:"bmi"`
	FatPct    *float64 `json:"fat_pct"`
	HeartRate *float64 `json:"heart_rate"`

	WeightSource    Provenance `json:"weight_source,omitempty"`
	BMISource       Provenance `json:"bmi_source,omitempty"`
	FatSource       Provenance `json:"fat_source,omitempty"`
	HeartRateSource Provenance `json:"heart_rate_source,omitempty"`

	Tier Tier `json:"tier"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Value dereferences p, returning 0 for nil.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
