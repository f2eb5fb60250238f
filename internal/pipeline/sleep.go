package pipeline

import (
	"sort"

	"github.com/meltforce/fitjoin/internal/models"
)

// AggregateSleep collapses minute samples into one total per (user, canonical
// date). Each qualifying sample counts as one minute. Samples whose timestamp
// cannot be parsed are skipped and counted in malformed.
func AggregateSleep(rows []models.MinuteSleepRow, policy models.SleepPolicy, f models.Filter) (totals []models.SleepDailyTotal, malformed int) {
	sums := map[Key]float64{}
	for _, r := range rows {
		d, ok := models.ParseDate(r.Date)
		if !ok {
			malformed++
			continue
		}
		if !f.Allows(r.UserID, d) || !policy.Qualifies(r.Value) {
			continue
		}
		sums[Key{r.UserID, d}]++
	}

	totals = make([]models.SleepDailyTotal, 0, len(sums))
	for k, v := range sums {
		totals = append(totals, models.SleepDailyTotal{UserID: k.UserID, Date: k.Date, Minutes: v})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].UserID != totals[j].UserID {
			return totals[i].UserID < totals[j].UserID
		}
		return totals[i].Date < totals[j].Date
	})
	return totals, malformed
}
