package pipeline

import (
	"fmt"
	"math"

	"github.com/meltforce/fitjoin/internal/models"
)

// stepTolerance absorbs rounding in exported step totals.
const stepTolerance = 0.5

// VerifySteps compares each user's spine step total with the sum of their
// hourly steps over the same days and reports every disagreement.
func VerifySteps(records []models.MergedDailyRecord, hourly map[Key]float64) []models.Diagnostic {
	users, groups := byUser(records)
	var diags []models.Diagnostic
	for _, u := range users {
		var spine, fromHourly float64
		for _, r := range groups[u] {
			spine += r.TotalSteps
			fromHourly += hourly[Key{r.UserID, r.Date}]
		}
		if math.Abs(spine-fromHourly) <= stepTolerance {
			continue
		}
		diags = append(diags, models.Diagnostic{
			Stage:   "verify",
			Source:  hourlyStepsSource,
			Kind:    models.DiagStepMismatch,
			Message: fmt.Sprintf("user %d: daily total %.0f steps, hourly total %.0f steps", u, spine, fromHourly),
		})
	}
	return diags
}
