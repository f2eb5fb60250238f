package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Column is one loadable source column, named by its Fitbit export header.
type Column struct {
	Name string
	Kind Kind
	Key  bool
}

// UnknownSourceError reports a source name with no table behind it.
type UnknownSourceError struct {
	Source string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source table %q", e.Source)
}

var sourceTables = []table{
	dailyActivityTable,
	heartRateTable,
	hourlyCaloriesTable,
	hourlyIntensityTable,
	hourlyStepsTable,
	minuteSleepTable,
	weightLogTable,
}

func lookupTable(source string) (table, error) {
	for _, t := range sourceTables {
		if t.name == source {
			return t, nil
		}
	}
	return table{}, &UnknownSourceError{Source: source}
}

// Columns returns the columns of a source table in insert order. Rows passed
// to InsertRows carry one value per column in this order.
func Columns(source string) ([]Column, error) {
	t, err := lookupTable(source)
	if err != nil {
		return nil, err
	}
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = Column{Name: c.sqlite, Kind: c.kind, Key: c.key}
	}
	return cols, nil
}

// Truncate removes every row of a source table.
func (db *DB) Truncate(ctx context.Context, source string) error {
	t, err := lookupTable(source)
	if err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, "TRUNCATE TABLE "+pgx.Identifier{t.postgres}.Sanitize()); err != nil {
		return fmt.Errorf("truncating %s: %w", t.postgres, err)
	}
	return nil
}

// InsertRows bulk-copies rows into a source table. Times and dates are
// time.Time values, nil is NULL.
func (db *DB) InsertRows(ctx context.Context, source string, rows [][]any) (int64, error) {
	t, err := lookupTable(source)
	if err != nil {
		return 0, err
	}
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.postgres
	}
	n, err := db.Pool.CopyFrom(ctx, pgx.Identifier{t.postgres}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copying into %s: %w", t.postgres, err)
	}
	return n, nil
}

// CreateSQLite opens the SQLite file at path, creating the file and any
// missing source tables.
func CreateSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, t := range sourceTables {
		if _, err := db.db.ExecContext(ctx, t.createSQLite()); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table %s: %w", t.sqlite, err)
		}
	}
	return db, nil
}

func (t table) createSQLite() string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		typ := "INTEGER"
		switch c.kind {
		case KindTime, KindDate:
			typ = "TEXT"
		case KindFloat:
			typ = "REAL"
		}
		defs[i] = fmt.Sprintf(`"%s" %s`, c.sqlite, typ)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (%s)`, t.sqlite, strings.Join(defs, ", "))
}

// Truncate removes every row of a source table.
func (s *SQLite) Truncate(ctx context.Context, source string) error {
	t, err := lookupTable(source)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM "%s"`, t.sqlite)); err != nil {
		return fmt.Errorf("truncating %s: %w", t.sqlite, err)
	}
	return nil
}

// InsertRows inserts rows into a source table in one transaction. Times are
// stored as text in the layout the readers parse back.
func (s *SQLite) InsertRows(ctx context.Context, source string, rows [][]any) (int64, error) {
	t, err := lookupTable(source)
	if err != nil {
		return 0, err
	}
	names := make([]string, len(t.columns))
	marks := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = `"` + c.sqlite + `"`
		marks[i] = "?"
	}
	q := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`, t.sqlite, strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning insert into %s: %w", t.sqlite, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("preparing insert into %s: %w", t.sqlite, err)
	}
	defer stmt.Close()

	args := make([]any, len(t.columns))
	for _, row := range rows {
		for i, c := range t.columns {
			args[i] = sqliteValue(row[i], c.kind)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("inserting into %s: %w", t.sqlite, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s: %w", t.sqlite, err)
	}
	return int64(len(rows)), nil
}

func sqliteValue(v any, kind Kind) any {
	ts, ok := v.(time.Time)
	if !ok {
		return v
	}
	if kind == KindDate {
		return ts.Format("2006-01-02")
	}
	return ts.Format("2006-01-02 15:04:05")
}
