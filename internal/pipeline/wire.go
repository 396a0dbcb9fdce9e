package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fedask/fedask/internal/config"
	"github.com/fedask/fedask/internal/migrations"
	"github.com/fedask/fedask/internal/storage"
	"github.com/fedask/fedask/internal/store"
)

// Dependencies are the opened resources a pipeline may write to. DB is
// required when the store sink is enabled, ObjectStore when the snapshot or
// archive sink is.
type Dependencies struct {
	DB          *sql.DB
	Dialect     store.Dialect
	Migrate     bool
	ObjectStore storage.ObjectStore
}

// New builds the service for cfg with sinks in the order csv, store,
// snapshot, archive.
func New(cfg config.PipelineConfig, deps Dependencies, logger *slog.Logger) (*Service, error) {
	source, err := NewSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	var sinks []Sink
	if cfg.CSVPath != "" {
		sinks = append(sinks, &CSVSink{Path: cfg.CSVPath})
	}
	if cfg.StoreEnabled {
		if deps.DB == nil {
			return nil, fmt.Errorf("store sink requires a database")
		}
		sink := &StoreSink{Writer: store.NewDocumentRepository(deps.DB, deps.Dialect)}
		if deps.Migrate {
			runner := migrations.NewRunner(deps.Dialect)
			db := deps.DB
			sink.Migrate = func(ctx context.Context) error {
				_, err := runner.Up(ctx, db, 0)
				return err
			}
		}
		sinks = append(sinks, sink)
	}
	if cfg.SnapshotEnabled || cfg.ArchiveEnabled {
		if deps.ObjectStore == nil {
			return nil, fmt.Errorf("snapshot and archive sinks require an object store")
		}
	}
	if cfg.SnapshotEnabled {
		sinks = append(sinks, &SnapshotSink{Store: deps.ObjectStore})
	}
	if cfg.ArchiveEnabled {
		sinks = append(sinks, &ArchiveSink{Store: deps.ObjectStore})
	}

	return NewService(ServiceConfig{
		LookbackDays: cfg.LookbackDays,
		Schedule:     cfg.Schedule,
		Interval:     cfg.Interval,
	}, source, sinks, logger)
}
