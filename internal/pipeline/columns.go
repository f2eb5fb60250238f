package pipeline

import "github.com/meltforce/fitjoin/internal/models"

// column is one nullable field of the merged record.
type column int

const (
	colSleepMinutes column = iota
	colHourlyCalories
	colTotalIntensity
	colAverageIntensity
	colHourlySteps
	colWeightKg
	colBMI
	colFatPct
	colHeartRate
)

var columnNames = [...]string{
	"sleep_minutes",
	"hourly_calories",
	"total_intensity",
	"average_intensity",
	"hourly_steps",
	"weight_kg",
	"bmi",
	"fat_pct",
	"heart_rate",
}

func (c column) String() string { return columnNames[c] }

// countColumns are zero-filled; continuousColumns are median-filled.
var (
	countColumns      = []column{colSleepMinutes, colHourlyCalories, colTotalIntensity, colAverageIntensity, colHourlySteps}
	continuousColumns = []column{colWeightKg, colBMI, colFatPct, colHeartRate}
)

func (c column) value(r *models.MergedDailyRecord) **float64 {
	switch c {
	case colSleepMinutes:
		return &r.SleepMinutes
	case colHourlyCalories:
		return &r.HourlyCalories
	case colTotalIntensity:
		return &r.TotalIntensity
	case colAverageIntensity:
		return &r.AverageIntensity
	case colHourlySteps:
		return &r.HourlySteps
	case colWeightKg:
		return &r.WeightKg
	case colBMI:
		return &r.BMI
	case colFatPct:
		return &r.FatPct
	default:
		return &r.HeartRate
	}
}

// source returns the provenance tag of a continuous column, nil for counts.
func (c column) source(r *models.MergedDailyRecord) *models.Provenance {
	switch c {
	case colWeightKg:
		return &r.WeightSource
	case colBMI:
		return &r.BMISource
	case colFatPct:
		return &r.FatSource
	case colHeartRate:
		return &r.HeartRateSource
	}
	return nil
}

// columnSet marks columns whose source is unavailable for this run.
type columnSet map[column]bool
