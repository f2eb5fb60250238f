package pipeline

import "github.com/meltforce/fitjoin/internal/models"

// Classify assigns one tier per user and writes it to each of that user's
// records. The measure is chosen by policy and held for the whole dataset.
func Classify(records []models.MergedDailyRecord, p Policy) map[int64]models.Tier {
	days := map[int64]map[models.Date]bool{}
	veryActive := map[int64]float64{}
	rows := map[int64]int{}
	for _, r := range records {
		if days[r.UserID] == nil {
			days[r.UserID] = map[models.Date]bool{}
		}
		days[r.UserID][r.Date] = true
		veryActive[r.UserID] += r.VeryActiveMinutes
		rows[r.UserID]++
	}

	tiers := make(map[int64]models.Tier, len(days))
	for user, set := range days {
		var measure float64
		switch p.TierMeasure {
		case TierMeanVeryActive:
			measure = veryActive[user] / float64(rows[user])
		default:
			measure = float64(len(set))
		}
		tiers[user] = TierFor(measure, p.TierBreaks)
	}

	for i := range records {
		records[i].Tier = tiers[records[i].UserID]
	}
	return tiers
}

// TierFor thresholds a measure against inclusive upper bounds. Zero and
// negative measures are Light.
func TierFor(measure float64, breaks [2]float64) models.Tier {
	switch {
	case measure <= breaks[0]:
		return models.TierLight
	case measure <= breaks[1]:
		return models.TierModerate
	default:
		return models.TierHeavy
	}
}
