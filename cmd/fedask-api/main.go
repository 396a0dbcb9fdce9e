package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fedask/fedask/internal/agent"
	"github.com/fedask/fedask/internal/api"
	"github.com/fedask/fedask/internal/api/uistatic"
	"github.com/fedask/fedask/internal/config"
	"github.com/fedask/fedask/internal/generation"
	"github.com/fedask/fedask/internal/migrations"
	"github.com/fedask/fedask/internal/observability"
	"github.com/fedask/fedask/internal/pipeline"
	"github.com/fedask/fedask/internal/query"
	duckdbengine "github.com/fedask/fedask/internal/query/duckdb"
	"github.com/fedask/fedask/internal/query/sqlstore"
	"github.com/fedask/fedask/internal/storage"
	s3store "github.com/fedask/fedask/internal/storage/s3"
	"github.com/fedask/fedask/internal/store"
)

func main() {
	cfg, err := config.LoadFromEnv("fedask-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db          *sql.DB
		dialect     store.Dialect
		objectStore storage.ObjectStore
		executor    query.Executor
		readiness   []api.ReadinessCheck
	)
	if cfg.Store.Driver == "duckdb" || cfg.Pipeline.SnapshotEnabled || cfg.Pipeline.ArchiveEnabled {
		objectStore, err = s3store.New(ctx, s3store.ConfigFrom(cfg.ObjectStore))
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		readiness = append(readiness, api.CheckObjectStoreConfig(cfg), api.CheckObjectStore(objectStore))
	}

	if cfg.Store.Driver == "duckdb" {
		executor = duckdbengine.NewEngine(objectStore)
	} else {
		dialect, err = store.DialectFor(cfg.Store.Driver)
		if err != nil {
			logger.Error("invalid store driver", slog.Any("error", err))
			os.Exit(1)
		}
		db, err = store.Open(ctx, store.ConfigFrom(cfg.Store))
		if err != nil {
			logger.Error("failed to open documents store", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		if cfg.Store.MigrateOnStart {
			applied, err := migrations.NewRunner(dialect).Up(ctx, db, 0)
			if err != nil {
				logger.Error("failed to apply migrations", slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("migrations applied", slog.Int("count", applied))
		}
		executor = sqlstore.NewExecutor(db)
		readiness = append(readiness, store.NewDocumentRepository(db, dialect).HealthCheck)
	}

	generator, err := generation.New(cfg.Generator)
	if err != nil {
		logger.Error("failed to initialize generator", slog.Any("error", err))
		os.Exit(1)
	}

	answerer := &agent.Agent{
		Generator:       generator,
		Executor:        executor,
		Logger:          logger,
		GenerateTimeout: cfg.Generator.Timeout,
		ExecuteTimeout:  cfg.Agent.ExecuteTimeout,
	}
	if cfg.Agent.ReadOnly {
		answerer.Guard = agent.ReadOnlyGuard
	}

	deps := api.Dependencies{
		Logger:            logger,
		Agent:             answerer,
		Schema:            agent.DocumentsSchema,
		UI:                uistatic.Handler(),
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
	}
	if !cfg.Pipeline.StoreEnabled || db != nil {
		runner, err := pipeline.New(cfg.Pipeline, pipeline.Dependencies{
			DB:          db,
			Dialect:     dialect,
			Migrate:     cfg.Store.MigrateOnStart,
			ObjectStore: objectStore,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize pipeline", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Pipeline = runner
	} else {
		logger.Warn("pipeline trigger disabled: store sink needs a sql driver")
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewHandler(cfg, deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("driver", cfg.Store.Driver),
			slog.String("generator", cfg.Generator.Backend),
			slog.Bool("read_only", cfg.Agent.ReadOnly),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
