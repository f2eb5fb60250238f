// Package pipeline reconciles the telemetry sources into one record per user
// and day, imputes gaps, classifies users and builds the report tables.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fitjoin/internal/ingest/csvfile"
	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/observability"
	"github.com/meltforce/fitjoin/internal/storage"
)

// Source is the read-only backing store. Each query returns its rows and the
// optional columns that were absent and read as NULL. A missing table or key
// column is reported as *storage.MissingColumnError.
type Source interface {
	QueryDailyActivity(ctx context.Context, f models.Filter) ([]models.DailyActivity, []string, error)
	QueryHeartRate(ctx context.Context, f models.Filter) ([]models.HeartRateRow, []string, error)
	QueryHourlyCalories(ctx context.Context, f models.Filter) ([]models.HourlySample, []string, error)
	QueryHourlySteps(ctx context.Context, f models.Filter) ([]models.HourlySample, []string, error)
	QueryHourlyIntensity(ctx context.Context, f models.Filter) ([]models.HourlyIntensityRow, []string, error)
	QueryMinuteSleep(ctx context.Context, f models.Filter) ([]models.MinuteSleepRow, []string, error)
	QueryWeightLog(ctx context.Context, f models.Filter) ([]models.WeightLogRow, []string, error)
}

var (
	_ Source = (*storage.SQLite)(nil)
	_ Source = (*storage.DB)(nil)
)

// Source names used in diagnostics and errors.
const (
	spineFileSource       = "activity_csv"
	dailyActivitySource   = "daily_activity"
	heartRateSource       = "heart_rate"
	hourlyCaloriesSource  = "hourly_calories"
	hourlyIntensitySource = "hourly_intensity"
	hourlyStepsSource     = "hourly_steps"
	minuteSleepSource     = "minute_sleep"
	weightLogSource       = "weight_log"
)

// Report is the full output of one run.
type Report struct {
	RunID         string                      `json:"run_id"`
	GeneratedAt   time.Time                   `json:"generated_at"`
	Policy        Policy                      `json:"policy"`
	Filter        models.Filter               `json:"filter"`
	MergedRecords []models.MergedDailyRecord  `json:"merged_records"`
	Summaries     []models.UserSummary        `json:"summaries"`
	Statistics    []models.UserStatistics     `json:"statistics"`
	LeaderMetrics []models.LeaderMetrics      `json:"leader_metrics"`
	Champions     []models.ChampionEntry      `json:"champions"`
	TimeBuckets   []models.TimeBucketAverage  `json:"time_buckets"`
	Weekpart      []models.WeekpartComparison `json:"weekpart"`
	Diagnostics   []models.Diagnostic         `json:"diagnostics"`
}

// Users returns the distinct spine users in ascending order.
func (r *Report) Users() []int64 {
	out := make([]int64, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		out = append(out, s.UserID)
	}
	return out
}

// Summary returns the summary row of one user.
func (r *Report) Summary(userID int64) (models.UserSummary, bool) {
	i := sort.Search(len(r.Summaries), func(i int) bool { return r.Summaries[i].UserID >= userID })
	if i < len(r.Summaries) && r.Summaries[i].UserID == userID {
		return r.Summaries[i], true
	}
	return models.UserSummary{}, false
}

// Pipeline holds the immutable configuration of a run. It is safe for
// concurrent use; every Run builds its own state.
type Pipeline struct {
	source    Source
	spineFile string
	policy    Policy
	logger    *slog.Logger
}

// New validates the policy and returns a pipeline over src. When spineFile is
// set the daily-activity spine is loaded from that CSV instead of the store.
func New(src Source, spineFile string, policy Policy, logger *slog.Logger) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("pipeline: nil source")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline policy: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{source: src, spineFile: spineFile, policy: policy, logger: logger}, nil
}

// Policy returns the validated policy.
func (p *Pipeline) Policy() Policy { return p.policy }

// run carries the per-run state.
type run struct {
	id     string
	filter models.Filter
	diags  []models.Diagnostic
	skip   columnSet
	logger *slog.Logger
}

func (r *run) diag(stage, source string, kind models.DiagnosticKind, count int, format string, args ...any) {
	d := models.Diagnostic{Stage: stage, Source: source, Kind: kind, Count: count, Message: fmt.Sprintf(format, args...)}
	r.diags = append(r.diags, d)
	observability.RecordDiagnostic(source, string(kind))
	r.logger.Warn("diagnostic", "stage", stage, "source", source, "kind", kind, "count", count, "message", d.Message)
}

// Run executes every stage once and returns the report. A source failure
// aborts the run with a *SourceError and no partial report.
func (p *Pipeline) Run(ctx context.Context, f models.Filter) (rep *Report, err error) {
	started := time.Now()
	defer func() { observability.RecordRun(started, err) }()

	r := &run{id: uuid.NewString(), filter: f, skip: columnSet{}}
	r.logger = p.logger.With("run_id", r.id)
	r.logger.Info("pipeline run started", "sleep_state", p.policy.SleepState,
		"weight_match", p.policy.WeightMatch, "tier_measure", p.policy.TierMeasure)

	spine, err := p.loadSpine(ctx, r)
	if err != nil {
		return nil, err
	}

	in, err := p.readSources(ctx, r)
	if err != nil {
		return nil, err
	}

	// Sleep is the only sub-daily source reduced before the join.
	var src Sources
	var restful map[Key]float64
	if in.sleep != nil {
		totals, malformed := AggregateSleep(in.sleep, p.policy.SleepState, f)
		r.malformed(minuteSleepSource, malformed)
		src.Sleep = sleepMap(totals)
		observability.RecordStage("sleep", len(totals))
		asleep, _ := AggregateSleep(in.sleep, models.SleepAsleepOnly, f)
		restful = sleepMap(asleep)
	}
	if in.calories != nil {
		var malformed int
		src.HourlyCalories, malformed = dailySums(in.calories, f)
		r.malformed(hourlyCaloriesSource, malformed)
	}
	if in.steps != nil {
		var malformed int
		src.HourlySteps, malformed = dailySums(in.steps, f)
		r.malformed(hourlyStepsSource, malformed)
	}
	if in.intensity != nil {
		var malformed int
		src.TotalIntensity, src.AverageIntensity, malformed = dailyIntensity(in.intensity, f)
		r.malformed(hourlyIntensitySource, malformed)
		if r.skip[colAverageIntensity] {
			src.AverageIntensity = nil
		}
		if r.skip[colTotalIntensity] {
			src.TotalIntensity = nil
		}
	}
	if in.heartRate != nil {
		var malformed int
		src.HeartRate, malformed = dailyHeartRate(in.heartRate, f)
		r.malformed(heartRateSource, malformed)
	}
	if in.weights != nil {
		var malformed int
		src.Weights, malformed = weightsByUser(in.weights, f)
		r.malformed(weightLogSource, malformed)
	}

	merged, js := Join(spine, src, p.policy.WeightMatch, f)
	r.malformed(p.spineSource(), js.MalformedDates)
	observability.RecordStage("join", len(merged))
	r.logger.Info("joined sources", "spine_rows", js.SpineRows, "merged", len(merged),
		"duplicate_keys", js.DuplicateKeys, "outside_window", js.OutsideWindow)
	if len(merged) == 0 {
		r.diag("join", p.spineSource(), models.DiagEmptyResult, 0, "no spine rows inside the window")
	}

	is, diags := Impute(merged, r.skip)
	for _, d := range diags {
		r.diag(d.Stage, d.Source, d.Kind, d.Count, "%s", d.Message)
	}
	r.logger.Info("imputed", "zero_filled", is.ZeroFilled, "median_filled", is.MedianFilled, "band_estimated", is.BandEstimated)

	tiers := Classify(merged, p.policy)
	r.logger.Info("classified users", "users", len(tiers))

	if src.HourlySteps != nil {
		for _, d := range VerifySteps(merged, src.HourlySteps) {
			r.diag(d.Stage, d.Source, d.Kind, d.Count, "%s", d.Message)
		}
	}

	leaders := Leaders(merged, restful)
	buckets, bs := TimeBuckets(in.steps, in.calories, in.sleep, p.policy.SleepState, f)
	r.malformedAt("buckets", hourlyStepsSource, bs.MalformedSteps)
	r.malformedAt("buckets", hourlyCaloriesSource, bs.MalformedCalories)
	r.malformedAt("buckets", minuteSleepSource, bs.MalformedSleep)

	rep = &Report{
		RunID:         r.id,
		GeneratedAt:   time.Now().UTC(),
		Policy:        p.policy,
		Filter:        f,
		MergedRecords: merged,
		Summaries:     Summarize(merged),
		Statistics:    Statistics(merged),
		LeaderMetrics: leaders,
		Champions:     Champions(leaders),
		TimeBuckets:   buckets,
		Weekpart:      CompareWeekpart(merged),
		Diagnostics:   r.diags,
	}
	if rep.Diagnostics == nil {
		rep.Diagnostics = []models.Diagnostic{}
	}
	observability.RecordStage("summaries", len(rep.Summaries))
	r.logger.Info("pipeline run finished", "records", len(merged), "users", len(rep.Summaries),
		"diagnostics", len(rep.Diagnostics), "duration", time.Since(started))
	return rep, nil
}

func (r *run) malformed(source string, n int) {
	r.malformedAt("normalize", source, n)
}

func (r *run) malformedAt(stage, source string, n int) {
	if n > 0 {
		r.diag(stage, source, models.DiagMalformedDate, n, "%d rows with an unparsable date excluded", n)
	}
}

func (p *Pipeline) spineSource() string {
	if p.spineFile != "" {
		return spineFileSource
	}
	return dailyActivitySource
}

// loadSpine reads the daily-activity spine from the CSV file or the store.
// Any failure here is fatal since the spine defines the output rows.
func (p *Pipeline) loadSpine(ctx context.Context, r *run) ([]models.DailyActivity, error) {
	if p.spineFile != "" {
		res, err := csvfile.Load(p.spineFile)
		if err != nil {
			return nil, &SourceError{Source: spineFileSource, Stage: "read", Err: err}
		}
		if res.Duplicates > 0 {
			r.logger.Info("dropped duplicate spine rows", "count", res.Duplicates)
		}
		if res.Rejected > 0 {
			r.diag("read", spineFileSource, models.DiagRejectedRow, res.Rejected, "%d rows with an unreadable Id dropped", res.Rejected)
		}
		if res.BadCells > 0 {
			r.diag("read", spineFileSource, models.DiagRejectedRow, res.BadCells, "%d non-numeric metric cells read as 0", res.BadCells)
		}
		p.reportMissing(r, spineFileSource, res.Missing)
		rows := filterUsers(res.Rows, r.filter)
		p.reportEmpty(r, spineFileSource, len(rows))
		observability.RecordStage("spine", len(rows))
		return rows, nil
	}

	rows, missing, err := p.source.QueryDailyActivity(ctx, r.filter)
	if err != nil {
		return nil, &SourceError{Source: dailyActivitySource, Stage: "read", Err: err}
	}
	p.reportMissing(r, dailyActivitySource, missing)
	p.reportEmpty(r, dailyActivitySource, len(rows))
	observability.RecordStage("spine", len(rows))
	return rows, nil
}

func filterUsers(rows []models.DailyActivity, f models.Filter) []models.DailyActivity {
	if len(f.UserIDs) == 0 {
		return rows
	}
	out := rows[:0:0]
	for _, a := range rows {
		if f.AllowsUser(a.UserID) {
			out = append(out, a)
		}
	}
	return out
}

// inputs holds the raw non-spine sources. A nil slice marks a source that
// could not be used.
type inputs struct {
	heartRate []models.HeartRateRow
	calories  []models.HourlySample
	steps     []models.HourlySample
	intensity []models.HourlyIntensityRow
	sleep     []models.MinuteSleepRow
	weights   []models.WeightLogRow
}

// sourceColumns lists the merged columns fed by each source.
var sourceColumns = map[string][]column{
	heartRateSource:       {colHeartRate},
	hourlyCaloriesSource:  {colHourlyCalories},
	hourlyStepsSource:     {colHourlySteps},
	hourlyIntensitySource: {colTotalIntensity, colAverageIntensity},
	minuteSleepSource:     {colSleepMinutes},
	weightLogSource:       {colWeightKg, colBMI, colFatPct},
}

// optionalColumns maps a source column that may be absent to the merged
// column it feeds.
var optionalColumns = map[string]column{
	"totalintensity":    colTotalIntensity,
	"total_intensity":   colTotalIntensity,
	"averageintensity":  colAverageIntensity,
	"average_intensity": colAverageIntensity,
	"weightkg":          colWeightKg,
	"weight_kg":         colWeightKg,
	"bmi":               colBMI,
	"fat":               colFatPct,
}

func (p *Pipeline) readSources(ctx context.Context, r *run) (*inputs, error) {
	in := &inputs{}
	var err error
	if in.heartRate, err = readOne(ctx, p, r, heartRateSource, p.source.QueryHeartRate); err != nil {
		return nil, err
	}
	if in.calories, err = readOne(ctx, p, r, hourlyCaloriesSource, p.source.QueryHourlyCalories); err != nil {
		return nil, err
	}
	if in.steps, err = readOne(ctx, p, r, hourlyStepsSource, p.source.QueryHourlySteps); err != nil {
		return nil, err
	}
	if in.intensity, err = readOne(ctx, p, r, hourlyIntensitySource, p.source.QueryHourlyIntensity); err != nil {
		return nil, err
	}
	if in.sleep, err = readOne(ctx, p, r, minuteSleepSource, p.source.QueryMinuteSleep); err != nil {
		return nil, err
	}
	if in.weights, err = readOne(ctx, p, r, weightLogSource, p.source.QueryWeightLog); err != nil {
		return nil, err
	}
	return in, nil
}

// readOne runs one source query. A missing table or key column skips the
// source and its columns for the run; any other error is fatal. The returned
// slice is non-nil whenever the source is usable, even if it is empty.
func readOne[T any](ctx context.Context, p *Pipeline, r *run, name string,
	query func(context.Context, models.Filter) ([]T, []string, error)) ([]T, error) {
	rows, missing, err := query(ctx, r.filter)
	var mc *storage.MissingColumnError
	if errors.As(err, &mc) {
		for _, c := range sourceColumns[name] {
			r.skip[c] = true
		}
		r.diag("read", name, models.DiagMissingColumn, 0, "%v; source skipped", mc)
		return nil, nil
	}
	if err != nil {
		return nil, &SourceError{Source: name, Stage: "read", Err: err}
	}
	for _, m := range missing {
		if c, ok := optionalColumns[strings.ToLower(m)]; ok {
			r.skip[c] = true
		}
	}
	p.reportMissing(r, name, missing)
	p.reportEmpty(r, name, len(rows))
	if rows == nil {
		rows = []T{}
	}
	r.logger.Debug("read source", "source", name, "rows", len(rows))
	return rows, nil
}

func (p *Pipeline) reportMissing(r *run, source string, missing []string) {
	if len(missing) > 0 {
		r.diag("read", source, models.DiagMissingColumn, len(missing), "columns %s absent", strings.Join(missing, ", "))
	}
}

func (p *Pipeline) reportEmpty(r *run, source string, n int) {
	if n == 0 {
		r.diag("read", source, models.DiagEmptyResult, 0, "source returned no rows")
	}
}
