package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meltforce/fitjoin/internal/models"
)

// newFitbitDB creates a temp SQLite file populated by the given statements and
// returns an opened reader over it.
func newFitbitDB(t *testing.T, stmts ...string) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fitbit.db")
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, s := range stmts {
		if _, err := raw.Exec(s); err != nil {
			raw.Close()
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	raw.Close()

	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestOpenSQLiteMissingFile verifies a missing file is an error rather than a
// freshly created empty database.
func TestOpenSQLiteMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	if _, err := OpenSQLite(context.Background(), path); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("OpenSQLite should not create the file")
	}
}

// TestSQLiteDailyActivity reads the spine table with the export's column names.
func TestSQLiteDailyActivity(t *testing.T) {
	s := newFitbitDB(t,
		`CREATE TABLE daily_activity (Id INTEGER, ActivityDate TEXT, TotalSteps INTEGER, TotalDistance REAL,
			Calories INTEGER, SedentaryMinutes INTEGER, LightlyActiveMinutes INTEGER,
			FairlyActiveMinutes INTEGER, VeryActiveMinutes INTEGER)`,
		`INSERT INTO daily_activity VALUES (1503960366, '4/12/2016', 13162, 8.5, 1985, 728, 328, 13, 25)`,
		`INSERT INTO daily_activity VALUES (1624580081, '4/12/2016', 8163, 5.31, 1432, 1217, 146, 0, 0)`,
	)

	rows, missing, err := s.QueryDailyActivity(context.Background(), models.Filter{})
	if err != nil {
		t.Fatalf("QueryDailyActivity: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	r := rows[0]
	if r.UserID != 1503960366 || r.ActivityDate != "4/12/2016" || r.TotalSteps != 13162 || r.VeryActiveMinutes != 25 {
		t.Errorf("unexpected row: %+v", r)
	}
}

// TestSQLiteUserFilter verifies the user restriction is applied in the query.
func TestSQLiteUserFilter(t *testing.T) {
	s := newFitbitDB(t,
		`CREATE TABLE hourly_steps (Id INTEGER, ActivityHour TEXT, StepTotal INTEGER)`,
		`INSERT INTO hourly_steps VALUES (1, '4/12/2016 1:00:00 AM', 10)`,
		`INSERT INTO hourly_steps VALUES (2, '4/12/2016 1:00:00 AM', 20)`,
		`INSERT INTO hourly_steps VALUES (3, '4/12/2016 1:00:00 AM', 30)`,
	)

	rows, _, err := s.QueryHourlySteps(context.Background(), models.Filter{UserIDs: []int64{1, 3}})
	if err != nil {
		t.Fatalf("QueryHourlySteps: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if r.UserID == 2 {
			t.Error("user 2 should be filtered out")
		}
	}
}

// TestSQLiteMissingOptionalColumn verifies absent optional columns read as NULL
// and are reported.
func TestSQLiteMissingOptionalColumn(t *testing.T) {
	s := newFitbitDB(t,
		`CREATE TABLE weight_log (Id INTEGER, Date TEXT, WeightKg REAL, BMI REAL)`,
		`INSERT INTO weight_log VALUES (1, '4/12/2016 11:59:59 PM', 52.6, 22.65)`,
		`INSERT INTO weight_log VALUES (2, '4/13/2016 11:59:59 PM', NULL, 25.1)`,
	)

	rows, missing, err := s.QueryWeightLog(context.Background(), models.Filter{})
	if err != nil {
		t.Fatalf("QueryWeightLog: %v", err)
	}
	if len(missing) != 1 || missing[0] != "Fat" {
		t.Errorf("missing = %v, want [Fat]", missing)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Fat != nil {
		t.Error("Fat should be nil when the column is absent")
	}
	if rows[0].WeightKg == nil || *rows[0].WeightKg != 52.6 {
		t.Errorf("WeightKg = %v, want 52.6", rows[0].WeightKg)
	}
	if rows[1].WeightKg != nil {
		t.Error("NULL weight should stay nil")
	}
}

// TestSQLiteMissingKeyColumn verifies a source without a key column is
// rejected with a MissingColumnError.
func TestSQLiteMissingKeyColumn(t *testing.T) {
	s := newFitbitDB(t,
		`CREATE TABLE heart_rate (Id INTEGER, Time TEXT)`,
	)

	_, _, err := s.QueryHeartRate(context.Background(), models.Filter{})
	var mc *MissingColumnError
	if !errors.As(err, &mc) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if mc.Table != "heart_rate" || mc.Column != "Value" {
		t.Errorf("got %+v", mc)
	}
}

// TestSQLiteMissingTable verifies an absent table reports as a missing source.
func TestSQLiteMissingTable(t *testing.T) {
	s := newFitbitDB(t, `CREATE TABLE unrelated (x INTEGER)`)

	_, _, err := s.QueryMinuteSleep(context.Background(), models.Filter{})
	var mc *MissingColumnError
	if !errors.As(err, &mc) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if !strings.Contains(mc.Error(), "not found") {
		t.Errorf("error = %q", mc.Error())
	}
}

// TestSQLiteMinuteSleepAndIntensity covers integer state codes, optional logId
// and the nullable AverageIntensity column.
func TestSQLiteMinuteSleepAndIntensity(t *testing.T) {
	s := newFitbitDB(t,
		`CREATE TABLE minute_sleep (Id INTEGER, date TEXT, value INTEGER, logId INTEGER)`,
		`INSERT INTO minute_sleep VALUES (1, '4/12/2016 2:47:30 AM', 3, 11380564589)`,
		`INSERT INTO minute_sleep VALUES (1, '4/12/2016 2:48:30 AM', 2, NULL)`,
		`CREATE TABLE hourly_intensity (Id INTEGER, ActivityHour TEXT, TotalIntensity INTEGER)`,
		`INSERT INTO hourly_intensity VALUES (1, '4/12/2016 1:00:00 AM', 17)`,
	)
	ctx := context.Background()

	sleep, _, err := s.QueryMinuteSleep(ctx, models.Filter{})
	if err != nil {
		t.Fatalf("QueryMinuteSleep: %v", err)
	}
	if len(sleep) != 2 || sleep[0].Value != 3 || sleep[0].LogID == nil || sleep[1].LogID != nil {
		t.Errorf("unexpected sleep rows: %+v", sleep)
	}

	intensity, missing, err := s.QueryHourlyIntensity(ctx, models.Filter{})
	if err != nil {
		t.Fatalf("QueryHourlyIntensity: %v", err)
	}
	if len(missing) != 1 || missing[0] != "AverageIntensity" {
		t.Errorf("missing = %v", missing)
	}
	if len(intensity) != 1 || intensity[0].TotalIntensity != 17 || intensity[0].AverageIntensity != nil {
		t.Errorf("unexpected intensity rows: %+v", intensity)
	}
}

// TestPlanPostgres checks the generated PostgreSQL projection, including typed
// NULLs for absent columns and the ANY() user filter.
func TestPlanPostgres(t *testing.T) {
	present := map[string]bool{"user_id": true, "logged_at": true, "weight_kg": true}
	p, args, err := weightLogTable.plan(dialectPostgres, present, []int64{7})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, want := range []string{
		"to_char(logged_at, 'YYYY-MM-DD HH24:MI:SS')",
		"weight_kg::double precision",
		"NULL::double precision",
		"FROM weight_log WHERE user_id = ANY($1)",
	} {
		if !strings.Contains(p.query, want) {
			t.Errorf("query %q missing %q", p.query, want)
		}
	}
	if len(p.missing) != 2 {
		t.Errorf("missing = %v, want bmi and fat", p.missing)
	}
	if len(args) != 1 {
		t.Errorf("args = %v", args)
	}
}

// TestPostgresReader runs the readers against a live database when
// FITJOIN_TEST_POSTGRES_DSN is set.
func TestPostgresReader(t *testing.T) {
	dsn := os.Getenv("FITJOIN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FITJOIN_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	if err := RunMigrations(dsn, "../../migrations"); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	db, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	if _, err := db.Pool.Exec(ctx, `DELETE FROM hourly_steps WHERE user_id = 42`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO hourly_steps (user_id, activity_hour, step_total) VALUES (42, '2016-04-12 13:00:00', 250)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, missing, err := db.QueryHourlySteps(ctx, models.Filter{UserIDs: []int64{42}})
	if err != nil {
		t.Fatalf("QueryHourlySteps: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v", missing)
	}
	if len(rows) != 1 || rows[0].ActivityHour != "2016-04-12 13:00:00" || rows[0].Value != 250 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

// TestColumns verifies loadable columns follow the table definition and
// unknown sources are rejected.
func TestColumns(t *testing.T) {
	cols, err := Columns("weight_log")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Id", "Date", "WeightKg", "BMI", "Fat"}
	if len(cols) != len(want) {
		t.Fatalf("got %d columns, want %d", len(cols), len(want))
	}
	for i, c := range cols {
		if c.Name != want[i] {
			t.Errorf("column %d = %s, want %s", i, c.Name, want[i])
		}
	}
	if !cols[0].Key || cols[4].Key || cols[1].Kind != KindTime {
		t.Errorf("unexpected flags: %+v", cols)
	}

	var ue *UnknownSourceError
	if _, err := Columns("workouts"); !errors.As(err, &ue) {
		t.Errorf("got %v, want UnknownSourceError", err)
	}
}

// TestCreateSQLiteRoundTrip verifies a created store accepts rows and reads
// them back, and that Truncate empties a table.
func TestCreateSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "new.db")
	db, err := CreateSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	logID := int64(11380564589)
	rows := [][]any{
		{int64(7), time.Date(2016, 4, 12, 2, 47, 30, 0, time.UTC), int64(1), logID},
		{int64(7), time.Date(2016, 4, 12, 2, 48, 30, 0, time.UTC), int64(2), nil},
	}
	if n, err := db.InsertRows(ctx, "minute_sleep", rows); err != nil || n != 2 {
		t.Fatalf("InsertRows = %d, %v", n, err)
	}

	got, missing, err := db.QueryMinuteSleep(ctx, models.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 || len(got) != 2 {
		t.Fatalf("got %+v missing %v", got, missing)
	}
	if got[0].Date != "2016-04-12 02:47:30" || got[0].LogID == nil || *got[0].LogID != logID || got[1].LogID != nil {
		t.Errorf("rows = %+v", got)
	}

	if err := db.Truncate(ctx, "minute_sleep"); err != nil {
		t.Fatal(err)
	}
	got, _, _ = db.QueryMinuteSleep(ctx, models.Filter{})
	if len(got) != 0 {
		t.Errorf("after truncate: %d rows", len(got))
	}

	// The created file also opens with OpenSQLite.
	again, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite on created file: %v", err)
	}
	again.Close()
}
