package pipeline

import (
	"context"

	"github.com/meltforce/fitjoin/internal/models"
)

// Runner produces a report for a filter. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, f models.Filter) (*Report, error)
}

var _ Runner = (*Pipeline)(nil)

// Leaderboard pairs the per-user totals with the champion of each metric.
type Leaderboard struct {
	Metrics   []models.LeaderMetrics `json:"metrics"`
	Champions []models.ChampionEntry `json:"champions"`
}

// UserDetail gathers every per-user table for one user.
type UserDetail struct {
	Summary    models.UserSummary    `json:"summary"`
	Statistics models.UserStatistics `json:"statistics"`
	Leader     models.LeaderMetrics  `json:"leader"`
}

// RunDiagnostics is the diagnostics list with the run that produced it.
type RunDiagnostics struct {
	RunID       string              `json:"run_id"`
	Policy      Policy              `json:"policy"`
	Filter      models.Filter       `json:"filter"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

// Leaderboard returns the leader metrics and champions.
func (r *Report) Leaderboard() Leaderboard {
	return Leaderboard{Metrics: r.LeaderMetrics, Champions: r.Champions}
}

// RunDiagnostics returns the diagnostics of the run.
func (r *Report) RunDiagnostics() RunDiagnostics {
	return RunDiagnostics{RunID: r.RunID, Policy: r.Policy, Filter: r.Filter, Diagnostics: r.Diagnostics}
}

// UserDetail returns the tables of one user. False when the user has no
// spine rows in the run.
func (r *Report) UserDetail(userID int64) (UserDetail, bool) {
	s, ok := r.Summary(userID)
	if !ok {
		return UserDetail{}, false
	}
	d := UserDetail{Summary: s}
	for _, st := range r.Statistics {
		if st.UserID == userID {
			d.Statistics = st
			break
		}
	}
	for _, l := range r.LeaderMetrics {
		if l.UserID == userID {
			d.Leader = l
			break
		}
	}
	return d, true
}
