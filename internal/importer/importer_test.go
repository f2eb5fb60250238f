package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeExport creates an export directory holding the given files.
func writeExport(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// memSink records inserted rows per source and implements Journal.
type memSink struct {
	rows      map[string][][]any
	truncated []string
	logs      []storage.ImportLog
	failOn    string
}

func newMemSink() *memSink {
	return &memSink{rows: map[string][][]any{}}
}

func (m *memSink) Truncate(_ context.Context, source string) error {
	m.truncated = append(m.truncated, source)
	delete(m.rows, source)
	return nil
}

func (m *memSink) InsertRows(_ context.Context, source string, rows [][]any) (int64, error) {
	if source == m.failOn {
		return 0, errors.New("disk full")
	}
	m.rows[source] = append(m.rows[source], rows...)
	return int64(len(rows)), nil
}

func (m *memSink) InsertImportLog(_ context.Context, log storage.ImportLog) (int64, error) {
	m.logs = append(m.logs, log)
	return int64(len(m.logs)), nil
}

func (m *memSink) UpdateImportLog(_ context.Context, id int64, log storage.ImportLog) error {
	m.logs[id-1] = log
	return nil
}

const hourlyStepsCSV = "\ufeffId,ActivityHour,StepTotal\n" +
	"1503960366,4/12/2016 12:00:00 AM,373\n" +
	"1503960366,4/12/2016 1:00:00 AM,160\n" +
	"bad,4/12/2016 2:00:00 AM,10\n" +
	"1503960366,someday,10\n"

const weightCSV = "Id,Date,WeightKg,WeightPounds,Fat,BMI,IsManualReport,LogId\n" +
	"1503960366,5/2/2016 11:59:59 PM,52.6,115.96,22,22.65,True,1462233599000\n" +
	"1927972279,4/13/2016 1:08:52 AM,133.5,294.32,,47.54,False,1460509732000\n"

// TestImportConvertsRows verifies typing, rejection of bad rows, missing
// optional cells and per-table counts.
func TestImportConvertsRows(t *testing.T) {
	dir := writeExport(t, map[string]string{
		"hourlySteps_merged.csv":   hourlyStepsCSV,
		"weightLogInfo_merged.csv": weightCSV,
	})
	sink := newMemSink()
	stats, err := New(sink, quietLogger(), Options{}).Import(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if stats.FilesProcessed != 2 || stats.FilesSkipped != len(exportFiles)-2 {
		t.Errorf("files = %+v", stats)
	}
	if stats.RowsInserted != 4 || stats.RowsRejected != 2 {
		t.Errorf("rows inserted=%d rejected=%d, want 4 and 2", stats.RowsInserted, stats.RowsRejected)
	}
	if stats.Tables["hourly_steps"] != 2 || stats.Tables["weight_log"] != 2 {
		t.Errorf("tables = %v", stats.Tables)
	}

	steps := sink.rows["hourly_steps"]
	if steps[0][0] != int64(1503960366) || steps[0][2] != 373.0 {
		t.Errorf("first step row = %v", steps[0])
	}
	if ts := steps[1][1].(time.Time); ts.Hour() != 1 || ts.Day() != 12 {
		t.Errorf("activity hour = %v", ts)
	}

	// weight_log columns: Id, Date, WeightKg, BMI, Fat
	w := sink.rows["weight_log"][1]
	if w[2] != 133.5 || w[3] != 47.54 || w[4] != nil {
		t.Errorf("weight row = %v", w)
	}
}

// TestImportDryRun verifies a dry run counts rows without a sink.
func TestImportDryRun(t *testing.T) {
	dir := writeExport(t, map[string]string{"hourlySteps_merged.csv": hourlyStepsCSV})
	stats, err := New(nil, quietLogger(), Options{DryRun: true, Replace: true}).Import(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.RowsInserted != 2 || stats.RowsRejected != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestImportMissingKeyColumn verifies a file without a key column is counted
// as errored and does not stop the import.
func TestImportMissingKeyColumn(t *testing.T) {
	dir := writeExport(t, map[string]string{
		"hourlyCalories_merged.csv": "Id,Calories\n1503960366,81\n",
		"hourlySteps_merged.csv":    hourlyStepsCSV,
		"minuteSleep_merged.csv":    "",
	})
	sink := newMemSink()
	stats, err := New(sink, quietLogger(), Options{}).Import(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesErrored != 2 || stats.FilesProcessed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if _, ok := sink.rows["hourly_calories"]; ok {
		t.Error("hourly_calories should not be loaded")
	}
}

// TestImportReplaceAndBatches verifies truncation and batch flushing.
func TestImportReplaceAndBatches(t *testing.T) {
	dir := writeExport(t, map[string]string{"hourlySteps_merged.csv": hourlyStepsCSV})
	sink := newMemSink()
	sink.rows["hourly_steps"] = [][]any{{int64(1), time.Now(), 1.0}}

	stats, err := New(sink, quietLogger(), Options{Replace: true, BatchSize: 1}).Import(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(sink.truncated) != 1 || len(sink.rows["hourly_steps"]) != 2 || stats.RowsInserted != 2 {
		t.Errorf("truncated=%v rows=%d", sink.truncated, len(sink.rows["hourly_steps"]))
	}
}

// TestImportJournal verifies the import log moves from running to its
// final status.
func TestImportJournal(t *testing.T) {
	dir := writeExport(t, map[string]string{"hourlySteps_merged.csv": hourlyStepsCSV})

	sink := newMemSink()
	if _, err := New(sink, quietLogger(), Options{}).Import(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	if len(sink.logs) != 1 || sink.logs[0].Status != "success" || sink.logs[0].RowsInserted != 2 {
		t.Errorf("log = %+v", sink.logs)
	}
	if sink.logs[0].DurationMs == nil || sink.logs[0].Metadata == nil {
		t.Error("expected duration and metadata")
	}

	failing := newMemSink()
	failing.failOn = "hourly_steps"
	if _, err := New(failing, quietLogger(), Options{}).Import(context.Background(), dir); err == nil {
		t.Fatal("expected insert error")
	}
	if failing.logs[0].Status != "error" || failing.logs[0].ErrorMessage == nil {
		t.Errorf("log = %+v", failing.logs[0])
	}
}

// TestImportIntoSQLite loads an export into a fresh SQLite file and reads it
// back through the source readers.
func TestImportIntoSQLite(t *testing.T) {
	ctx := context.Background()
	dir := writeExport(t, map[string]string{
		"hourlySteps_merged.csv":   hourlyStepsCSV,
		"weightLogInfo_merged.csv": weightCSV,
		"dailyActivity_merged.csv": "Id,ActivityDate,TotalSteps,TotalDistance,TrackerDistance,Calories\n" +
			"1503960366,4/12/2016,13162,8.5,8.5,1985\n",
	})

	db, err := storage.CreateSQLite(ctx, filepath.Join(t.TempDir(), "fitbit.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := New(db, quietLogger(), Options{}).Import(ctx, dir); err != nil {
		t.Fatal(err)
	}

	steps, missing, err := db.QueryHourlySteps(ctx, models.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 || len(steps) != 2 || steps[1].ActivityHour != "2016-04-12 01:00:00" || steps[1].Value != 160 {
		t.Errorf("steps = %+v missing = %v", steps, missing)
	}

	weights, _, err := db.QueryWeightLog(ctx, models.Filter{UserIDs: []int64{1927972279}})
	if err != nil {
		t.Fatal(err)
	}
	if len(weights) != 1 || weights[0].Fat != nil || *weights[0].BMI != 47.54 {
		t.Errorf("weights = %+v", weights)
	}

	days, _, err := db.QueryDailyActivity(ctx, models.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0].ActivityDate != "2016-04-12" {
		t.Errorf("days = %+v", days)
	}

	// A second load with Replace leaves one copy.
	if _, err := New(db, quietLogger(), Options{Replace: true}).Import(ctx, dir); err != nil {
		t.Fatal(err)
	}
	steps, _, _ = db.QueryHourlySteps(ctx, models.Filter{})
	if len(steps) != 2 {
		t.Errorf("after replace: %d rows, want 2", len(steps))
	}
}
