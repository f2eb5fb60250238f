package pipeline

import (
	"math"

	"github.com/meltforce/fitjoin/internal/models"
)

const bucketHours = 4

// BucketStats counts skipped samples per series.
type BucketStats struct {
	MalformedSteps    int
	MalformedCalories int
	MalformedSleep    int
}

// TimeBuckets builds the population intraday curves from raw series, ignoring
// the calendar date. Steps and calories are averaged per 4-hour window across
// all users and days; an empty window is NaN. Sleep is qualifying minutes
// divided by 60, 0 when empty. Output is steps, calories, then sleep hours,
// each in BucketLabels order.
func TimeBuckets(steps, calories []models.HourlySample, sleep []models.MinuteSleepRow, policy models.SleepPolicy, f models.Filter) ([]models.TimeBucketAverage, BucketStats) {
	var stats BucketStats
	out := make([]models.TimeBucketAverage, 0, 3*len(models.BucketLabels))

	var malformed int
	out = append(out, meanBuckets(models.MetricSteps, steps, f, &malformed)...)
	stats.MalformedSteps = malformed

	malformed = 0
	out = append(out, meanBuckets(models.MetricCalories, calories, f, &malformed)...)
	stats.MalformedCalories = malformed

	var minutes [6]float64
	for _, s := range sleep {
		ts, ok := models.ParseTimestamp(s.Date)
		if !ok {
			stats.MalformedSleep++
			continue
		}
		if !f.Allows(s.UserID, models.DateOf(ts)) || !policy.Qualifies(s.Value) {
			continue
		}
		minutes[ts.Hour()/bucketHours]++
	}
	for i, label := range models.BucketLabels {
		out = append(out, models.TimeBucketAverage{
			Metric:  models.MetricSleepHours,
			Bucket:  label,
			Value:   minutes[i] / 60,
			Samples: int(minutes[i]),
		})
	}
	return out, stats
}

func meanBuckets(metric string, samples []models.HourlySample, f models.Filter, malformed *int) []models.TimeBucketAverage {
	var sums [6]float64
	var counts [6]int
	for _, s := range samples {
		ts, ok := models.ParseTimestamp(s.ActivityHour)
		if !ok {
			*malformed++
			continue
		}
		if !f.Allows(s.UserID, models.DateOf(ts)) {
			continue
		}
		b := ts.Hour() / bucketHours
		sums[b] += s.Value
		counts[b]++
	}

	out := make([]models.TimeBucketAverage, len(models.BucketLabels))
	for i, label := range models.BucketLabels {
		v := math.NaN()
		if counts[i] > 0 {
			v = sums[i] / float64(counts[i])
		}
		out[i] = models.TimeBucketAverage{Metric: metric, Bucket: label, Value: v, Samples: counts[i]}
	}
	return out
}
