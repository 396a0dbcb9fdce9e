package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fedask/fedask/internal/config"
	"github.com/fedask/fedask/internal/observability"
	"github.com/fedask/fedask/internal/pipeline"
	"github.com/fedask/fedask/internal/storage"
	s3store "github.com/fedask/fedask/internal/storage/s3"
	"github.com/fedask/fedask/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv("fedask-pipeline")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := pipeline.Dependencies{Migrate: cfg.Store.MigrateOnStart}
	if cfg.Pipeline.StoreEnabled {
		deps.Dialect, err = store.DialectFor(cfg.Store.Driver)
		if err != nil {
			logger.Error("store sink needs a sql driver", slog.Any("error", err))
			os.Exit(1)
		}
		var db *sql.DB
		db, err = store.Open(ctx, store.ConfigFrom(cfg.Store))
		if err != nil {
			logger.Error("failed to open documents store", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		deps.DB = db
	}
	if cfg.Pipeline.SnapshotEnabled || cfg.Pipeline.ArchiveEnabled {
		var objectStore storage.ObjectStore
		objectStore, err = s3store.New(ctx, s3store.ConfigFrom(cfg.ObjectStore))
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		deps.ObjectStore = objectStore
	}

	svc, err := pipeline.New(cfg.Pipeline, deps, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	if *once {
		if _, err := svc.RunOnce(ctx); err != nil {
			logger.Error("pipeline run failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	logger.Info("pipeline worker started",
		slog.String("source", cfg.Pipeline.Source),
		slog.Int("lookback_days", cfg.Pipeline.LookbackDays),
		slog.Duration("interval", cfg.Pipeline.Interval),
	)
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pipeline worker failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("pipeline worker stopped")
}
