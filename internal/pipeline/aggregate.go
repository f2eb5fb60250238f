package pipeline

import (
	"sort"

	"github.com/meltforce/fitjoin/internal/models"
)

type group []*models.MergedDailyRecord

// byUser groups records per user, preserving record order, and returns the
// user ids in ascending order.
func byUser(records []models.MergedDailyRecord) ([]int64, map[int64]group) {
	groups := map[int64]group{}
	for i := range records {
		r := &records[i]
		groups[r.UserID] = append(groups[r.UserID], r)
	}
	users := make([]int64, 0, len(groups))
	for u := range groups {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, groups
}

// spine extracts a non-nullable spine field.
func (g group) spine(get func(*models.MergedDailyRecord) float64) []float64 {
	out := make([]float64, len(g))
	for i, r := range g {
		out[i] = get(r)
	}
	return out
}

// joined extracts a nullable column, skipping null cells.
func (g group) joined(c column) []float64 {
	out := make([]float64, 0, len(g))
	for _, r := range g {
		if v := *c.value(r); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

var (
	getSteps     = func(r *models.MergedDailyRecord) float64 { return r.TotalSteps }
	getDistance  = func(r *models.MergedDailyRecord) float64 { return r.TotalDistance }
	getCalories  = func(r *models.MergedDailyRecord) float64 { return r.Calories }
	getSedentary = func(r *models.MergedDailyRecord) float64 { return r.SedentaryMinutes }
	getLightly   = func(r *models.MergedDailyRecord) float64 { return r.LightlyActiveMinutes }
	getFairly    = func(r *models.MergedDailyRecord) float64 { return r.FairlyActiveMinutes }
	getVery      = func(r *models.MergedDailyRecord) float64 { return r.VeryActiveMinutes }
)

// Summarize computes the per-user mean of every tracked metric, sorted by user.
// A column with no values for the user averages to 0.
func Summarize(records []models.MergedDailyRecord) []models.UserSummary {
	users, groups := byUser(records)
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		g := groups[u]
		out = append(out, models.UserSummary{
			UserID:               u,
			Days:                 len(g),
			Tier:                 g[0].Tier,
			TotalSteps:           mean(g.spine(getSteps)),
			TotalDistance:        mean(g.spine(getDistance)),
			Calories:             mean(g.spine(getCalories)),
			SedentaryMinutes:     mean(g.spine(getSedentary)),
			LightlyActiveMinutes: mean(g.spine(getLightly)),
			FairlyActiveMinutes:  mean(g.spine(getFairly)),
			VeryActiveMinutes:    mean(g.spine(getVery)),
			SleepMinutes:         mean(g.joined(colSleepMinutes)),
			HourlyCalories:       mean(g.joined(colHourlyCalories)),
			TotalIntensity:       mean(g.joined(colTotalIntensity)),
			AverageIntensity:     mean(g.joined(colAverageIntensity)),
			HourlySteps:          mean(g.joined(colHourlySteps)),
			WeightKg:             mean(g.joined(colWeightKg)),
			BMI:                  mean(g.joined(colBMI)),
			HeartRate:            mean(g.joined(colHeartRate)),
		})
	}
	return out
}

func metricStats(values []float64) models.MetricStats {
	return models.MetricStats{Mean: mean(values), Median: median(values), Std: sampleStd(values)}
}

// Statistics computes mean, median and sample std for the fixed metric list.
func Statistics(records []models.MergedDailyRecord) []models.UserStatistics {
	users, groups := byUser(records)
	out := make([]models.UserStatistics, 0, len(users))
	for _, u := range users {
		g := groups[u]
		out = append(out, models.UserStatistics{
			UserID:           u,
			TotalSteps:       metricStats(g.spine(getSteps)),
			Calories:         metricStats(g.spine(getCalories)),
			SedentaryMinutes: metricStats(g.spine(getSedentary)),
			SleepMinutes:     metricStats(g.joined(colSleepMinutes)),
			WeightKg:         metricStats(g.joined(colWeightKg)),
			BMI:              metricStats(g.joined(colBMI)),
		})
	}
	return out
}

// CompareWeekpart averages steps, sleep and calories over weekday rows and
// over weekend rows across all users. Weekdays come first; an empty group is
// omitted.
func CompareWeekpart(records []models.MergedDailyRecord) []models.WeekpartComparison {
	var parts [2]group
	for i := range records {
		idx := 0
		if records[i].Date.Weekend() {
			idx = 1
		}
		parts[idx] = append(parts[idx], &records[i])
	}

	out := []models.WeekpartComparison{}
	for idx, g := range parts {
		if len(g) == 0 {
			continue
		}
		out = append(out, models.WeekpartComparison{
			Weekend:      idx == 1,
			Days:         len(g),
			TotalSteps:   mean(g.spine(getSteps)),
			SleepMinutes: mean(g.joined(colSleepMinutes)),
			Calories:     mean(g.spine(getCalories)),
		})
	}
	return out
}
