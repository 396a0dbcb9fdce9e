package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var csvHeader = []string{"document_number", "title", "doc_type", "publication_date"}

// CSVSink overwrites Path with the cleaned documents of the latest run.
type CSVSink struct {
	Path string
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(ctx context.Context, batch Batch) (int, error) {
	if s.Path == "" {
		return 0, fmt.Errorf("csv path is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return 0, fmt.Errorf("create csv temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, doc := range batch.Documents {
		published := ""
		if doc.PublicationDate != nil {
			published = doc.PublicationDate.Format(time.DateOnly)
		}
		if err := writer.Write([]string{doc.DocumentNumber, doc.Title, doc.DocType, published}); err != nil {
			_ = tmp.Close()
			return 0, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close csv temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return 0, fmt.Errorf("replace csv file: %w", err)
	}
	return len(batch.Documents), nil
}
