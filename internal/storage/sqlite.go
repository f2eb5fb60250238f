package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite reads the Fitbit export database. Tables and columns keep the
// export's own names (Id, ActivityDate, StepTotal, ...).
type SQLite struct {
	reader
	db *sql.DB
}

// OpenSQLite opens an existing SQLite file. It never creates one.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	return openSQLite(ctx, path)
}

func openSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite %s: %w", path, err)
	}
	s := &SQLite{db: db}
	s.reader = reader{b: sqliteBackend{db: db}}
	return s, nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqliteBackend struct {
	db *sql.DB
}

func (sqliteBackend) dialect() dialect { return dialectSQLite }

// tableColumns returns the lowercased column names of a table, or an empty set
// when the table does not exist.
func (b sqliteBackend) tableColumns(ctx context.Context, name string) (map[string]bool, error) {
	rs, err := b.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, name)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	cols := map[string]bool{}
	for rs.Next() {
		var col string
		if err := rs.Scan(&col); err != nil {
			return nil, err
		}
		cols[strings.ToLower(col)] = true
	}
	return cols, rs.Err()
}

func (b sqliteBackend) query(ctx context.Context, q string, args ...any) (rows, func(), error) {
	rs, err := b.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { rs.Close() }, nil
}
