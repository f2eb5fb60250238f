package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/meltforce/fitjoin/internal/config"
	fjmcp "github.com/meltforce/fitjoin/internal/mcp"
	"github.com/meltforce/fitjoin/internal/pipeline"
	fjserver "github.com/meltforce/fitjoin/internal/server"
	"github.com/meltforce/fitjoin/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit (postgres only)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("fitjoin starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	src, closeSrc, err := openSource(ctx, cfg, *migrateOnly, log)
	if err != nil {
		log.Error("failed to open source", "driver", cfg.Source.Driver, "error", err)
		os.Exit(1)
	}
	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}
	defer closeSrc()

	policy, _ := cfg.Pipeline.Policy()
	defaults, _ := cfg.Pipeline.Filter()
	pipe, err := pipeline.New(src, cfg.Source.ActivityCSV, policy, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	pol := pipe.Policy()
	log.Info("pipeline ready", "sleep_state", pol.SleepState, "weight_match", pol.WeightMatch,
		"tier_measure", pol.TierMeasure, "activity_csv", cfg.Source.ActivityCSV)

	srv := fjserver.New(pipe, defaults, cfg.Auth.APIKey, log)
	if logs, ok := src.(fjserver.ImportLogs); ok {
		srv.SetImportLogs(logs)
	}

	mcpServer := fjmcp.New(fjmcp.NewLocal(pipe, defaults), Version, log)
	srv.SetMCP(server.NewStreamableHTTPServer(mcpServer))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openSource connects the configured backing store. Migrations run for the
// postgres driver only; with migrateOnly the store is not opened.
func openSource(ctx context.Context, cfg *config.Config, migrateOnly bool, log *slog.Logger) (pipeline.Source, func(), error) {
	switch cfg.Source.Driver {
	case config.DriverPostgres:
		dsn := cfg.Source.Database.DSN()
		if err := storage.RunMigrations(dsn, cfg.Source.Migrations); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied")
		if migrateOnly {
			return nil, func() {}, nil
		}
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database connected")
		return db, db.Close, nil
	default:
		if migrateOnly {
			return nil, func() {}, nil
		}
		db, err := storage.OpenSQLite(ctx, cfg.Source.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("sqlite source opened", "path", cfg.Source.Path)
		return db, func() { _ = db.Close() }, nil
	}
}
