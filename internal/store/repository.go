package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Document is one cleaned Federal Register row. A nil PublicationDate is
// stored as NULL.
type Document struct {
	DocumentNumber  string
	Title           string
	DocType         string
	PublicationDate *time.Time
}

type DocumentRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewDocumentRepository(db *sql.DB, dialect Dialect) *DocumentRepository {
	return &DocumentRepository{db: db, dialect: dialect}
}

// InsertDocuments appends docs in a single transaction.
func (r *DocumentRepository) InsertDocuments(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statement := fmt.Sprintf(
		`INSERT INTO documents (document_number, title, doc_type, publication_date) VALUES (%s)`,
		strings.Join([]string{
			r.dialect.Placeholder(1),
			r.dialect.Placeholder(2),
			r.dialect.Placeholder(3),
			r.dialect.Placeholder(4),
		}, ", "),
	)
	stmt, err := tx.PrepareContext(ctx, statement)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, doc := range docs {
		var published any
		if doc.PublicationDate != nil {
			published = doc.PublicationDate.UTC().Format(time.DateOnly)
		}
		if _, err := stmt.ExecContext(ctx, doc.DocumentNumber, doc.Title, doc.DocType, published); err != nil {
			return 0, fmt.Errorf("insert document %q: %w", doc.DocumentNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit documents: %w", err)
	}
	return len(docs), nil
}

func (r *DocumentRepository) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (r *DocumentRepository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store db: %w", err)
	}
	return nil
}
