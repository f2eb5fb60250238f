package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/fitjoin/internal/config"
	"github.com/meltforce/fitjoin/internal/importer"
	"github.com/meltforce/fitjoin/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "path to the Fitbit CSV export directory (required)")
	dryRun := flag.Bool("dry-run", false, "parse files and report counts without writing to the store")
	replace := flag.Bool("replace", false, "empty each table before loading its file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitjoin-import -config config.yaml -path /path/to/export [-dry-run] [-replace]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Verify export directory exists
	info, err := os.Stat(*exportPath)
	if err != nil || !info.IsDir() {
		log.Error("export path does not exist or is not a directory", "path", *exportPath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the store")
	}

	var sink importer.Sink
	if !*dryRun {
		s, closeSink, err := openSink(ctx, cfg, log)
		if err != nil {
			log.Error("failed to open store", "driver", cfg.Source.Driver, "error", err)
			os.Exit(1)
		}
		defer closeSink()
		sink = s
	}

	// Run import
	imp := importer.New(sink, log, importer.Options{DryRun: *dryRun, Replace: *replace})
	stats, err := imp.Import(ctx, *exportPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

// openSink creates the target store: the SQLite file is created when absent,
// PostgreSQL gets its migrations applied first.
func openSink(ctx context.Context, cfg *config.Config, log *slog.Logger) (importer.Sink, func(), error) {
	if cfg.Source.Driver == config.DriverPostgres {
		dsn := cfg.Source.Database.DSN()
		if err := storage.RunMigrations(dsn, cfg.Source.Migrations); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied")
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database connected")
		return db, db.Close, nil
	}
	db, err := storage.CreateSQLite(ctx, cfg.Source.Path)
	if err != nil {
		return nil, nil, err
	}
	log.Info("sqlite store ready", "path", cfg.Source.Path)
	return db, func() { _ = db.Close() }, nil
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"rows_inserted", stats.RowsInserted,
		"rows_rejected", stats.RowsRejected,
	)
	for table, n := range stats.Tables {
		log.Info("table loaded", "table", table, "rows", n)
	}
}
