package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/fedask/fedask/internal/store"
)

type DocumentWriter interface {
	InsertDocuments(ctx context.Context, docs []store.Document) (int, error)
}

// StoreSink appends documents to the documents table. Migrate, when set,
// runs once before the first insert.
type StoreSink struct {
	Writer  DocumentWriter
	Migrate func(ctx context.Context) error

	mu       sync.Mutex
	migrated bool
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Write(ctx context.Context, batch Batch) (int, error) {
	if s.Writer == nil {
		return 0, fmt.Errorf("document writer is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return 0, err
	}
	inserted, err := s.Writer.InsertDocuments(ctx, batch.Documents)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *StoreSink) ensureSchema(ctx context.Context) error {
	if s.Migrate == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated {
		return nil
	}
	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate documents schema: %w", err)
	}
	s.migrated = true
	return nil
}
