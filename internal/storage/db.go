package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgxpool.Pool and reads the telemetry tables created by migrations/.
type DB struct {
	reader
	Pool *pgxpool.Pool
}

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	db := &DB{Pool: pool}
	db.reader = reader{b: pgBackend{pool: pool}}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

type pgBackend struct {
	pool *pgxpool.Pool
}

func (pgBackend) dialect() dialect { return dialectPostgres }

func (b pgBackend) tableColumns(ctx context.Context, name string) (map[string]bool, error) {
	rs, err := b.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1`, name)
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

func (b pgBackend) query(ctx context.Context, q string, args ...any) (rows, func(), error) {
	rs, err := b.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	return rs, rs.Close, nil
}
