package pipeline

import (
	"github.com/meltforce/fitjoin/internal/models"
)

// Sources holds the same-day rollups joined onto the spine. A nil map marks a
// source that is unavailable for the run; its columns stay null.
type Sources struct {
	Sleep            map[Key]float64
	HourlyCalories   map[Key]float64
	TotalIntensity   map[Key]float64
	AverageIntensity map[Key]float64
	HourlySteps      map[Key]float64
	HeartRate        map[Key]float64
	Weights          map[int64][]WeightEntry
}

// JoinStats summarizes one join.
type JoinStats struct {
	SpineRows      int
	MalformedDates int
	DuplicateKeys  int
	OutsideWindow  int
}

// Join left-joins every source onto the spine by (user, canonical date). The
// output has exactly one row per distinct valid spine key, in spine order.
// Spine rows with an unparsable date are dropped and counted; duplicate keys
// keep the first occurrence. Rows only present in other sources never appear.
func Join(spine []models.DailyActivity, src Sources, match WeightMatch, f models.Filter) ([]models.MergedDailyRecord, JoinStats) {
	stats := JoinStats{SpineRows: len(spine)}
	seen := make(map[Key]bool, len(spine))
	out := make([]models.MergedDailyRecord, 0, len(spine))

	for _, a := range spine {
		d, ok := models.ParseDate(a.ActivityDate)
		if !ok {
			stats.MalformedDates++
			continue
		}
		if !f.Allows(a.UserID, d) {
			stats.OutsideWindow++
			continue
		}
		k := Key{a.UserID, d}
		if seen[k] {
			stats.DuplicateKeys++
			continue
		}
		seen[k] = true

		rec := models.MergedDailyRecord{
			UserID:               a.UserID,
			Date:                 d,
			TotalSteps:           a.TotalSteps,
			TotalDistance:        a.TotalDistance,
			Calories:             a.Calories,
			SedentaryMinutes:     a.SedentaryMinutes,
			LightlyActiveMinutes: a.LightlyActiveMinutes,
			FairlyActiveMinutes:  a.FairlyActiveMinutes,
			VeryActiveMinutes:    a.VeryActiveMinutes,
			SleepMinutes:         lookup(src.Sleep, k),
			HourlyCalories:       lookup(src.HourlyCalories, k),
			TotalIntensity:       lookup(src.TotalIntensity, k),
			AverageIntensity:     lookup(src.AverageIntensity, k),
			HourlySteps:          lookup(src.HourlySteps, k),
			HeartRate:            lookup(src.HeartRate, k),
		}
		if rec.HeartRate != nil {
			rec.HeartRateSource = models.ProvenanceMeasured
		}
		if w, ok := matchWeight(src.Weights[a.UserID], d, match); ok {
			rec.WeightKg = copyFloat(w.WeightKg)
			rec.BMI = copyFloat(w.BMI)
			rec.FatPct = copyFloat(w.Fat)
		}
		for _, c := range []column{colWeightKg, colBMI, colFatPct} {
			if *c.value(&rec) != nil {
				*c.source(&rec) = models.ProvenanceMeasured
			}
		}
		out = append(out, rec)
	}
	return out, stats
}

func lookup(m map[Key]float64, k Key) *float64 {
	v, ok := m[k]
	if !ok {
		return nil
	}
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// matchWeight picks the entry for date d from a user's date-sorted entries.
// Same-day matching takes the first entry on d. Nearest matching takes the
// smallest day distance, keeping the earlier entry on ties.
func matchWeight(entries []WeightEntry, d models.Date, match WeightMatch) (WeightEntry, bool) {
	if len(entries) == 0 {
		return WeightEntry{}, false
	}
	if match != WeightNearest {
		for _, e := range entries {
			if e.Date == d {
				return e, true
			}
		}
		return WeightEntry{}, false
	}

	best := -1
	bestDist := 0
	for i, e := range entries {
		dist := models.DaysBetween(d, e.Date)
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return entries[best], true
}
