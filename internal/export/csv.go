package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/pipeline"
)

type table struct {
	header []string
	rows   [][]string
}

func (t table) write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return err
	}
	return cw.Error()
}

// statisticsMetrics fixes the row order of the long-form statistics table.
var statisticsMetrics = []string{"total_steps", "calories", "sedentary_minutes", "sleep_minutes", "weight_kg", "bmi"}

func csvTable(rep *pipeline.Report, name string) (table, error) {
	var t table
	switch name {
	case TableMergedRecords:
		t.header = []string{
			"user_id", "date", "total_steps", "total_distance", "calories", "sedentary_minutes",
			"lightly_active_minutes", "fairly_active_minutes", "very_active_minutes",
			"sleep_minutes", "hourly_calories", "total_intensity", "average_intensity", "hourly_steps",
			"weight_kg", "bmi", "fat_pct", "heart_rate",
			"weight_source", "bmi_source", "fat_source", "heart_rate_source", "tier",
		}
		for _, r := range rep.MergedRecords {
			t.rows = append(t.rows, []string{
				formatID(r.UserID), string(r.Date),
				formatFloat(r.TotalSteps), formatFloat(r.TotalDistance), formatFloat(r.Calories),
				formatFloat(r.SedentaryMinutes), formatFloat(r.LightlyActiveMinutes),
				formatFloat(r.FairlyActiveMinutes), formatFloat(r.VeryActiveMinutes),
				formatFloatPtr(r.SleepMinutes), formatFloatPtr(r.HourlyCalories),
				formatFloatPtr(r.TotalIntensity), formatFloatPtr(r.AverageIntensity),
				formatFloatPtr(r.HourlySteps), formatFloatPtr(r.WeightKg), formatFloatPtr(r.BMI),
				formatFloatPtr(r.FatPct), formatFloatPtr(r.HeartRate),
				string(r.WeightSource), string(r.BMISource), string(r.FatSource), string(r.HeartRateSource),
				r.Tier.String(),
			})
		}
	case TableSummaries:
		t.header = []string{
			"user_id", "days", "tier", "total_steps", "total_distance", "calories", "sedentary_minutes",
			"lightly_active_minutes", "fairly_active_minutes", "very_active_minutes", "sleep_minutes",
			"hourly_calories", "total_intensity", "average_intensity", "hourly_steps", "weight_kg", "bmi", "heart_rate",
		}
		for _, s := range rep.Summaries {
			t.rows = append(t.rows, []string{
				formatID(s.UserID), strconv.Itoa(s.Days), s.Tier.String(),
				formatFloat(s.TotalSteps), formatFloat(s.TotalDistance), formatFloat(s.Calories),
				formatFloat(s.SedentaryMinutes), formatFloat(s.LightlyActiveMinutes),
				formatFloat(s.FairlyActiveMinutes), formatFloat(s.VeryActiveMinutes),
				formatFloat(s.SleepMinutes), formatFloat(s.HourlyCalories), formatFloat(s.TotalIntensity),
				formatFloat(s.AverageIntensity), formatFloat(s.HourlySteps), formatFloat(s.WeightKg),
				formatFloat(s.BMI), formatFloat(s.HeartRate),
			})
		}
	case TableStatistics:
		t.header = []string{"user_id", "metric", "mean", "median", "std"}
		for _, s := range rep.Statistics {
			for i, m := range statisticBlocks(s) {
				t.rows = append(t.rows, []string{
					formatID(s.UserID), statisticsMetrics[i],
					formatFloat(m.Mean), formatFloat(m.Median), formatFloat(m.Std),
				})
			}
		}
	case TableLeaderMetrics:
		t.header = []string{
			"user_id", "total_steps", "total_distance", "total_calories", "average_intensity",
			"total_restful_sleep", "very_active_minutes", "first_date", "last_date", "usage_days",
		}
		for _, l := range rep.LeaderMetrics {
			t.rows = append(t.rows, []string{
				formatID(l.UserID), formatFloat(l.TotalSteps), formatFloat(l.TotalDistance),
				formatFloat(l.TotalCalories), formatFloat(l.AverageIntensity),
				formatFloat(l.TotalRestfulSleep), formatFloat(l.VeryActiveMinutes),
				string(l.FirstDate), string(l.LastDate), strconv.Itoa(l.UsageDays),
			})
		}
	case TableChampions:
		t.header = []string{"metric", "user_id", "value"}
		for _, c := range rep.Champions {
			t.rows = append(t.rows, []string{c.Metric, formatID(c.UserID), formatFloat(c.Value)})
		}
	case TableTimeBuckets:
		t.header = []string{"metric", "bucket", "value", "samples"}
		for _, b := range rep.TimeBuckets {
			t.rows = append(t.rows, []string{b.Metric, b.Bucket, formatFloat(b.Value), strconv.Itoa(b.Samples)})
		}
	case TableWeekpart:
		t.header = []string{"weekend", "days", "total_steps", "sleep_minutes", "calories"}
		for _, w := range rep.Weekpart {
			t.rows = append(t.rows, []string{
				strconv.FormatBool(w.Weekend), strconv.Itoa(w.Days),
				formatFloat(w.TotalSteps), formatFloat(w.SleepMinutes), formatFloat(w.Calories),
			})
		}
	case TableDiagnostics:
		t.header = []string{"stage", "source", "kind", "count", "message"}
		for _, d := range rep.Diagnostics {
			t.rows = append(t.rows, []string{d.Stage, d.Source, string(d.Kind), strconv.Itoa(d.Count), d.Message})
		}
	default:
		return t, &UnknownTableError{Table: name}
	}
	return t, nil
}

func statisticBlocks(s models.UserStatistics) []models.MetricStats {
	return []models.MetricStats{s.TotalSteps, s.Calories, s.SedentaryMinutes, s.SleepMinutes, s.WeightKg, s.BMI}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// formatFloat writes NaN as an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
