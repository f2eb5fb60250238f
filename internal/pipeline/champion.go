package pipeline

import "github.com/meltforce/fitjoin/internal/models"

// Leaders computes each user's totals over the observation window, sorted by
// user. Average intensity is the mean of the daily AverageIntensity. Restful
// sleep is read from restful, the asleep-only minute totals per day, so it
// does not follow the sleep policy used for SleepMinutes.
func Leaders(records []models.MergedDailyRecord, restful map[Key]float64) []models.LeaderMetrics {
	users, groups := byUser(records)
	out := make([]models.LeaderMetrics, 0, len(users))
	for _, u := range users {
		g := groups[u]
		m := models.LeaderMetrics{
			UserID:           u,
			AverageIntensity: mean(g.joined(colAverageIntensity)),
			UsageDays:        len(g),
		}
		for _, r := range g {
			m.TotalSteps += r.TotalSteps
			m.TotalDistance += r.TotalDistance
			m.TotalCalories += r.Calories
			m.VeryActiveMinutes += r.VeryActiveMinutes
			m.TotalRestfulSleep += restful[Key{r.UserID, r.Date}]
			if m.FirstDate == "" || r.Date < m.FirstDate {
				m.FirstDate = r.Date
			}
			if r.Date > m.LastDate {
				m.LastDate = r.Date
			}
		}
		out = append(out, m)
	}
	return out
}

// Champions selects the holder of the maximum value for every tracked metric.
// Ties go to the lowest user id. An empty table yields an empty result.
func Champions(leaders []models.LeaderMetrics) []models.ChampionEntry {
	out := []models.ChampionEntry{}
	if len(leaders) == 0 {
		return out
	}
	for _, metric := range models.ChampionMetrics {
		var best *models.ChampionEntry
		for _, l := range leaders {
			v, _ := l.Metric(metric)
			if best == nil || v > best.Value || (v == best.Value && l.UserID < best.UserID) {
				best = &models.ChampionEntry{Metric: metric, UserID: l.UserID, Value: v}
			}
		}
		out = append(out, *best)
	}
	return out
}
