package mcp

import (
	"context"
	"errors"

	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/pipeline"
)

// ErrUserNotFound is returned when a user has no spine rows in the window.
var ErrUserNotFound = errors.New("user not found")

// DataSource abstracts the report layer for MCP tools. Local (in-process
// pipeline) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Leaderboard(ctx context.Context, f models.Filter) (*pipeline.Leaderboard, error)
	UserDetail(ctx context.Context, userID int64, f models.Filter) (*pipeline.UserDetail, error)
	TimeBuckets(ctx context.Context, f models.Filter) ([]models.TimeBucketAverage, error)
	Records(ctx context.Context, f models.Filter) ([]models.MergedDailyRecord, error)
	Diagnostics(ctx context.Context, f models.Filter) (*pipeline.RunDiagnostics, error)
	Users(ctx context.Context, f models.Filter) ([]int64, error)
}

// Local serves tools from an in-process pipeline. Every call runs the
// pipeline once with the call filter layered over defaults.
type Local struct {
	run      pipeline.Runner
	defaults models.Filter
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

// NewLocal returns a DataSource over run.
func NewLocal(run pipeline.Runner, defaults models.Filter) *Local {
	return &Local{run: run, defaults: defaults}
}

func (l *Local) report(ctx context.Context, f models.Filter) (*pipeline.Report, error) {
	return l.run.Run(ctx, f.Or(l.defaults))
}

func (l *Local) Leaderboard(ctx context.Context, f models.Filter) (*pipeline.Leaderboard, error) {
	rep, err := l.report(ctx, f)
	if err != nil {
		return nil, err
	}
	lb := rep.Leaderboard()
	return &lb, nil
}

func (l *Local) UserDetail(ctx context.Context, userID int64, f models.Filter) (*pipeline.UserDetail, error) {
	rep, err := l.report(ctx, f)
	if err != nil {
		return nil, err
	}
	d, ok := rep.UserDetail(userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	return &d, nil
}

func (l *Local) TimeBuckets(ctx context.Context, f models.Filter) ([]models.TimeBucketAverage, error) {
	rep, err := l.report(ctx, f)
	if err != nil {
		return nil, err
	}
	return rep.TimeBuckets, nil
}

func (l *Local) Records(ctx context.Context, f models.Filter) ([]models.MergedDailyRecord, error) {
	rep, err := l.report(ctx, f)
	if err != nil {
		return nil, err
	}
	return rep.MergedRecords, nil
}

func (l *Local) Diagnostics(ctx context.Context, f models.Filter) (*pipeline.RunDiagnostics, error) {
	rep, err := l.report(ctx, f)
	if err != nil {
		return nil, err
	}
	d := rep.RunDiagnostics()
	return &d, nil
}

func (l *Local) Users(ctx context.Context, f models.Filter) ([]int64, error) {
	rep, err := l.report(ctx, f)
	if err != nil {
		return nil, err
	}
	return rep.Users(), nil
}
