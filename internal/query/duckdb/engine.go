// Package duckdb answers candidate queries from the Parquet snapshot of the
// documents table kept in object storage.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/fedask/fedask/internal/query"
	"github.com/fedask/fedask/internal/storage"
)

type Engine struct {
	Store storage.ObjectStore
	// TempDir is the parent for per-call work dirs; empty uses os.TempDir.
	TempDir string
}

func NewEngine(store storage.ObjectStore) *Engine {
	return &Engine{Store: store}
}

// Execute loads the current manifest, stages its parts locally and runs
// sqlText verbatim against an in-memory DuckDB with a documents view.
func (e *Engine) Execute(ctx context.Context, sqlText string) (query.ResultSet, error) {
	if strings.TrimSpace(sqlText) == "" {
		return query.ResultSet{}, &query.ExecutionError{Message: "sql is required"}
	}
	if e.Store == nil {
		return query.ResultSet{}, &query.ExecutionError{Message: "object store is not configured"}
	}

	manifest, err := storage.ReadManifest(ctx, e.Store)
	if err != nil {
		return query.ResultSet{}, query.NewExecutionError(err)
	}
	if len(manifest.Parts) == 0 {
		return query.ResultSet{}, &query.ExecutionError{Message: "documents snapshot is empty"}
	}

	workDir, err := os.MkdirTemp(e.TempDir, "fedask-snapshot-")
	if err != nil {
		return query.ResultSet{}, query.NewExecutionError(fmt.Errorf("create snapshot temp dir: %w", err))
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPaths := make([]string, 0, len(manifest.Parts))
	for index, part := range manifest.Parts {
		localPath := filepath.Join(workDir, fmt.Sprintf("part_%05d.parquet", index))
		if err := e.stage(ctx, part.Path, localPath); err != nil {
			return query.ResultSet{}, query.NewExecutionError(err)
		}
		localPaths = append(localPaths, localPath)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.ResultSet{}, query.NewExecutionError(fmt.Errorf("open duckdb: %w", err))
	}
	defer func() { _ = db.Close() }()

	conn, err := db.Conn(ctx)
	if err != nil {
		return query.ResultSet{}, query.NewExecutionError(fmt.Errorf("acquire duckdb connection: %w", err))
	}
	defer func() { _ = conn.Close() }()

	viewSQL := fmt.Sprintf(
		`CREATE OR REPLACE VIEW %s AS SELECT * REPLACE (TRY_CAST(publication_date AS DATE) AS publication_date) FROM read_parquet(%s, union_by_name = true)`,
		quoteIdent(manifest.Table),
		quoteStringArray(localPaths),
	)
	if _, err := conn.ExecContext(ctx, viewSQL); err != nil {
		return query.ResultSet{}, query.NewExecutionError(fmt.Errorf("create view %q: %w", manifest.Table, err))
	}

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return query.ResultSet{}, query.NewExecutionError(err)
	}
	result, err := query.Materialize(rows)
	if err != nil {
		return query.ResultSet{}, query.NewExecutionError(err)
	}
	return result, nil
}

func (e *Engine) stage(ctx context.Context, objectPath, localPath string) error {
	data, err := storage.GetBytes(ctx, e.Store, objectPath)
	if err != nil {
		return fmt.Errorf("get object %q: %w", objectPath, err)
	}
	if err := os.WriteFile(localPath, data, 0o600); err != nil {
		return fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	return nil
}

func quoteIdent(value string) string {
	if value == "" {
		value = "documents"
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
