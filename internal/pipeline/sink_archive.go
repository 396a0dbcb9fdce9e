package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fedask/fedask/internal/storage"
)

// ArchiveSink stores the unmodified upstream results of a run as a JSON
// array.
type ArchiveSink struct {
	Store storage.ObjectStore
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) Write(ctx context.Context, batch Batch) (int, error) {
	if s.Store == nil {
		return 0, fmt.Errorf("object store is required")
	}

	items := make([]json.RawMessage, 0, len(batch.Raw))
	for _, doc := range batch.Raw {
		if len(doc.Raw) > 0 {
			items = append(items, doc.Raw)
			continue
		}
		encoded, err := json.Marshal(struct {
			DocumentNumber  string `json:"document_number"`
			Title           string `json:"title"`
			Type            string `json:"type"`
			PublicationDate string `json:"publication_date"`
		}{doc.DocumentNumber, doc.Title, doc.Type, doc.PublicationDate})
		if err != nil {
			return 0, fmt.Errorf("encode raw document: %w", err)
		}
		items = append(items, encoded)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return 0, fmt.Errorf("encode raw archive: %w", err)
	}

	key, err := storage.BuildRawArchivePath(batch.Day, batch.RunID)
	if err != nil {
		return 0, err
	}
	if _, err := storage.PutBytes(ctx, s.Store, key, data, "application/json"); err != nil {
		return 0, fmt.Errorf("upload raw archive: %w", err)
	}
	return len(items), nil
}
