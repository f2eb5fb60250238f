package pipeline

import (
	"sort"

	"github.com/meltforce/fitjoin/internal/models"
)

// Key identifies one user-day.
type Key struct {
	UserID int64
	Date   models.Date
}

// rollup accumulates a same-day sum and sample count.
type rollup struct {
	sum float64
	n   int
}

// dailySums reduces hourly samples to same-day sums.
func dailySums(samples []models.HourlySample, f models.Filter) (map[Key]float64, int) {
	out := map[Key]float64{}
	malformed := 0
	for _, s := range samples {
		d, ok := models.ParseDate(s.ActivityHour)
		if !ok {
			malformed++
			continue
		}
		if !f.Allows(s.UserID, d) {
			continue
		}
		out[Key{s.UserID, d}] += s.Value
	}
	return out, malformed
}

// dailyIntensity sums TotalIntensity and averages AverageIntensity per day.
// The average map stays empty when no sample carries the column.
func dailyIntensity(rows []models.HourlyIntensityRow, f models.Filter) (total, average map[Key]float64, malformed int) {
	total = map[Key]float64{}
	acc := map[Key]*rollup{}
	for _, r := range rows {
		d, ok := models.ParseDate(r.ActivityHour)
		if !ok {
			malformed++
			continue
		}
		if !f.Allows(r.UserID, d) {
			continue
		}
		k := Key{r.UserID, d}
		total[k] += r.TotalIntensity
		if r.AverageIntensity != nil {
			a := acc[k]
			if a == nil {
				a = &rollup{}
				acc[k] = a
			}
			a.sum += *r.AverageIntensity
			a.n++
		}
	}
	average = make(map[Key]float64, len(acc))
	for k, a := range acc {
		average[k] = a.sum / float64(a.n)
	}
	return total, average, malformed
}

// dailyHeartRate averages heart-rate readings per day.
func dailyHeartRate(rows []models.HeartRateRow, f models.Filter) (map[Key]float64, int) {
	acc := map[Key]*rollup{}
	malformed := 0
	for _, r := range rows {
		d, ok := models.ParseDate(r.Time)
		if !ok {
			malformed++
			continue
		}
		if !f.Allows(r.UserID, d) {
			continue
		}
		k := Key{r.UserID, d}
		a := acc[k]
		if a == nil {
			a = &rollup{}
			acc[k] = a
		}
		a.sum += r.Value
		a.n++
	}
	out := make(map[Key]float64, len(acc))
	for k, a := range acc {
		out[k] = a.sum / float64(a.n)
	}
	return out, malformed
}

// WeightEntry is a weight_log row keyed by canonical date.
type WeightEntry struct {
	Date     models.Date
	WeightKg *float64
	BMI      *float64
	Fat      *float64
}

// weightsByUser groups weight entries per user, sorted by date. The date
// filter is not applied here so nearest matching can reach outside the window.
func weightsByUser(rows []models.WeightLogRow, f models.Filter) (map[int64][]WeightEntry, int) {
	out := map[int64][]WeightEntry{}
	malformed := 0
	for _, r := range rows {
		d, ok := models.ParseDate(r.Date)
		if !ok {
			malformed++
			continue
		}
		if !f.AllowsUser(r.UserID) {
			continue
		}
		out[r.UserID] = append(out[r.UserID], WeightEntry{Date: d, WeightKg: r.WeightKg, BMI: r.BMI, Fat: r.Fat})
	}
	for _, entries := range out {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	}
	return out, malformed
}

// sleepMap indexes sleep totals by user-day.
func sleepMap(totals []models.SleepDailyTotal) map[Key]float64 {
	out := make(map[Key]float64, len(totals))
	for _, t := range totals {
		out[Key{t.UserID, t.Date}] += t.Minutes
	}
	return out
}
