package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/fedask/fedask/internal/storage"
	"github.com/fedask/fedask/internal/store"
)

type snapshotRow struct {
	ID              int64   `parquet:"id"`
	DocumentNumber  string  `parquet:"document_number"`
	Title           string  `parquet:"title"`
	DocType         string  `parquet:"doc_type"`
	PublicationDate *string `parquet:"publication_date"`
}

// EncodeDocumentsToParquet writes docs as one Parquet part. IDs continue
// from firstID so parts can be read together as one table. Dates are stored
// as YYYY-MM-DD text and typed when the snapshot is queried.
func EncodeDocumentsToParquet(docs []store.Document, firstID int64) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("documents are required")
	}

	rows := make([]snapshotRow, 0, len(docs))
	for i, doc := range docs {
		row := snapshotRow{
			ID:             firstID + int64(i),
			DocumentNumber: doc.DocumentNumber,
			Title:          doc.Title,
			DocType:        doc.DocType,
		}
		if doc.PublicationDate != nil {
			published := doc.PublicationDate.UTC().Format(time.DateOnly)
			row.PublicationDate = &published
		}
		rows = append(rows, row)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[snapshotRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// SnapshotSink adds the batch as a new Parquet part and records it in the
// manifest that the DuckDB executor reads.
type SnapshotSink struct {
	Store storage.ObjectStore
	Now   func() time.Time
}

func (s *SnapshotSink) Name() string { return "snapshot" }

func (s *SnapshotSink) Write(ctx context.Context, batch Batch) (int, error) {
	if s.Store == nil {
		return 0, fmt.Errorf("object store is required")
	}
	if len(batch.Documents) == 0 {
		return 0, nil
	}

	manifest, err := storage.ReadManifest(ctx, s.Store)
	if err != nil {
		return 0, err
	}
	var existing int64
	for _, part := range manifest.Parts {
		existing += part.Rows
	}

	data, err := EncodeDocumentsToParquet(batch.Documents, existing+1)
	if err != nil {
		return 0, err
	}
	key, err := storage.BuildDocumentPartPath(batch.Day, batch.RunID)
	if err != nil {
		return 0, err
	}
	info, err := storage.PutBytes(ctx, s.Store, key, data, "application/vnd.apache.parquet")
	if err != nil {
		return 0, fmt.Errorf("upload snapshot part: %w", err)
	}

	now := s.now()
	size := info.Size
	if size == 0 {
		size = int64(len(data))
	}
	manifest.Parts = append(manifest.Parts, storage.ManifestPart{
		Path:      key,
		RunID:     batch.RunID,
		Rows:      int64(len(batch.Documents)),
		SizeBytes: size,
		CreatedAt: now,
	})
	manifest.UpdatedAt = now
	if err := storage.WriteManifest(ctx, s.Store, manifest); err != nil {
		// The part is unreachable without a manifest entry.
		_ = s.Store.Delete(ctx, key)
		return 0, err
	}
	return len(batch.Documents), nil
}

func (s *SnapshotSink) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
