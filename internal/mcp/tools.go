package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/fitjoin/internal/models"
)

// filterFromRequest reads the users, start and end arguments shared by every tool.
func filterFromRequest(req mcp.CallToolRequest) (models.Filter, error) {
	return models.ParseFilter(req.GetString("users", ""), req.GetString("start", ""), req.GetString("end", ""))
}

// parseLimit reads a positive row limit, 0 meaning unlimited.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

// --- Tool definitions ---

var toolGetLeaderboard = mcp.NewTool("get_leaderboard",
	mcp.WithDescription("Per-user totals over the window (steps, distance, calories, mean intensity, restful sleep minutes, usage days) and the champion of each metric. With metric set, returns the users ranked by that metric instead. Ties go to the lowest user id."),
	mcp.WithString("metric", mcp.Description("Rank by this metric"), mcp.Enum(models.ChampionMetrics...)),
	mcp.WithString("limit", mcp.Description("Maximum ranked rows when metric is set. Defaults to all.")),
	mcp.WithString("users", mcp.Description("Comma-separated user ids. Defaults to all users.")),
	mcp.WithString("start", mcp.Description("Start date (YYYY-MM-DD). Defaults to the configured window.")),
	mcp.WithString("end", mcp.Description("End date (YYYY-MM-DD). Defaults to the configured window.")),
)

var toolGetUserSummary = mcp.NewTool("get_user_summary",
	mcp.WithDescription("One user's activity tier, per-metric daily means, mean/median/std statistics and window totals."),
	mcp.WithString("user", mcp.Required(), mcp.Description("Fitbit user id")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to the configured window.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to the configured window.")),
)

var toolGetIntradayCurve = mcp.NewTool("get_intraday_curve",
	mcp.WithDescription("Population curve over six 4-hour windows of the day (0-4 ... 20-24). Steps and calories are mean hourly values (null for an empty window); sleep_hours is total qualifying sleep minutes divided by 60."),
	mcp.WithString("metric", mcp.Description("Restrict to one curve. Defaults to all three."), mcp.Enum(models.MetricSteps, models.MetricCalories, models.MetricSleepHours)),
	mcp.WithString("users", mcp.Description("Comma-separated user ids. Defaults to all users.")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to the configured window.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to the configured window.")),
)

var toolGetDailyRecords = mcp.NewTool("get_daily_records",
	mcp.WithDescription("Merged per-day records: spine activity, sleep minutes, hourly rollups, weight/BMI/fat and mean heart rate. Continuous values carry a source tag (measured, median, band_estimate)."),
	mcp.WithString("users", mcp.Description("Comma-separated user ids. Defaults to all users.")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to the configured window.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to the configured window.")),
	mcp.WithString("limit", mcp.Description("Maximum rows. Defaults to all.")),
)

var toolGetDiagnostics = mcp.NewTool("get_diagnostics",
	mcp.WithDescription("Data quality findings of a run: malformed dates, empty or missing sources and columns, columns without observations, step total mismatches. Includes the run id and policy."),
	mcp.WithString("kind", mcp.Description("Restrict to one kind"), mcp.Enum(
		string(models.DiagMalformedDate), string(models.DiagEmptyResult), string(models.DiagMissingColumn),
		string(models.DiagNoObservations), string(models.DiagStepMismatch), string(models.DiagRejectedRow),
	)),
	mcp.WithString("users", mcp.Description("Comma-separated user ids. Defaults to all users.")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to the configured window.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to the configured window.")),
)

var toolListUsers = mcp.NewTool("list_users",
	mcp.WithDescription("List the user ids present in the daily activity spine."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to the configured window.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to the configured window.")),
)

// --- Tool handlers ---

// rankedUser is one row of a single-metric ranking.
type rankedUser struct {
	Rank   int     `json:"rank"`
	UserID int64   `json:"user_id"`
	Value  float64 `json:"value"`
}

func (h *handlers) getLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := filterFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, err := parseLimit(req.GetString("limit", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lb, err := h.ds.Leaderboard(ctx, f)
	if err != nil {
		h.log.Error("mcp get_leaderboard", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	metric := req.GetString("metric", "")
	if metric == "" {
		return jsonResult(lb)
	}

	ranking := make([]rankedUser, 0, len(lb.Metrics))
	for _, m := range lb.Metrics {
		v, ok := m.Metric(metric)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown metric %q", metric)), nil
		}
		ranking = append(ranking, rankedUser{UserID: m.UserID, Value: v})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].Value != ranking[j].Value {
			return ranking[i].Value > ranking[j].Value
		}
		return ranking[i].UserID < ranking[j].UserID
	})
	for i := range ranking {
		ranking[i].Rank = i + 1
	}
	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return jsonResult(map[string]any{"metric": metric, "ranking": ranking})
}

func (h *handlers) getUserSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError("user parameter is required"), nil
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return mcp.NewToolResultError("invalid user id: " + raw), nil
	}
	f, err := filterFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := h.ds.UserDetail(ctx, userID, f)
	if errors.Is(err, ErrUserNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("user %d has no records in the window", userID)), nil
	}
	if err != nil {
		h.log.Error("mcp get_user_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(d)
}

func (h *handlers) getIntradayCurve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := filterFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	buckets, err := h.ds.TimeBuckets(ctx, f)
	if err != nil {
		h.log.Error("mcp get_intraday_curve", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if metric := req.GetString("metric", ""); metric != "" {
		out := buckets[:0:0]
		for _, b := range buckets {
			if b.Metric == metric {
				out = append(out, b)
			}
		}
		buckets = out
	}
	return jsonResult(buckets)
}

func (h *handlers) getDailyRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := filterFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, err := parseLimit(req.GetString("limit", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	records, err := h.ds.Records(ctx, f)
	if err != nil {
		h.log.Error("mcp get_daily_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return jsonResult(records)
}

func (h *handlers) getDiagnostics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := filterFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := h.ds.Diagnostics(ctx, f)
	if err != nil {
		h.log.Error("mcp get_diagnostics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if kind := models.DiagnosticKind(req.GetString("kind", "")); kind != "" {
		out := []models.Diagnostic{}
		for _, diag := range d.Diagnostics {
			if diag.Kind == kind {
				out = append(out, diag)
			}
		}
		d.Diagnostics = out
	}
	return jsonResult(d)
}

func (h *handlers) listUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := filterFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	users, err := h.ds.Users(ctx, f)
	if err != nil {
		h.log.Error("mcp list_users", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(users)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
