package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/fitjoin/internal/config"
	"github.com/meltforce/fitjoin/internal/export"
	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/pipeline"
	"github.com/meltforce/fitjoin/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	outDir := flag.String("out", "", "output directory (default: export.dir from config)")
	format := flag.String("format", "", "output format: parquet, csv or json (default: export.format from config)")
	users := flag.String("users", "", "comma-separated user ids (default: pipeline.users from config)")
	start := flag.String("start", "", "window start YYYY-MM-DD")
	end := flag.String("end", "", "window end YYYY-MM-DD")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitjoin-report", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *outDir == "" {
		*outDir = cfg.Export.Dir
	}
	if *format == "" {
		*format = cfg.Export.Format
	}
	fmtOut, err := export.ParseFormat(*format)
	if err != nil {
		log.Error("invalid format", "error", err)
		os.Exit(1)
	}

	override, err := models.ParseFilter(*users, *start, *end)
	if err != nil {
		log.Error("invalid filter", "error", err)
		os.Exit(1)
	}
	defaults, _ := cfg.Pipeline.Filter()
	filter := override.Or(defaults)

	ctx := context.Background()
	src, closeSrc, err := openSource(ctx, cfg)
	if err != nil {
		log.Error("failed to open source", "driver", cfg.Source.Driver, "error", err)
		os.Exit(1)
	}
	defer closeSrc()

	policy, _ := cfg.Pipeline.Policy()
	pipe, err := pipeline.New(src, cfg.Source.ActivityCSV, policy, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	rep, err := pipe.Run(ctx, filter)
	if err != nil {
		log.Error("pipeline run failed", "error", err)
		closeSrc()
		os.Exit(1)
	}

	files, err := export.WriteDir(*outDir, rep, fmtOut)
	if err != nil {
		log.Error("export failed", "dir", *outDir, "error", err)
		closeSrc()
		os.Exit(1)
	}

	log.Info("report written",
		"run_id", rep.RunID,
		"dir", *outDir,
		"format", fmtOut,
		"files", len(files),
		"users", len(rep.Summaries),
		"records", len(rep.MergedRecords),
		"diagnostics", len(rep.Diagnostics),
	)
	for _, c := range rep.Champions {
		fmt.Printf("%-22s user %d (%.2f)\n", c.Metric, c.UserID, c.Value)
	}
}

func openSource(ctx context.Context, cfg *config.Config) (pipeline.Source, func(), error) {
	if cfg.Source.Driver == config.DriverPostgres {
		db, err := storage.New(ctx, cfg.Source.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	db, err := storage.OpenSQLite(ctx, cfg.Source.Path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}
