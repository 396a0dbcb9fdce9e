package query

import (
	"context"
	"database/sql"
	"fmt"
)

// ResultSet is the materialized output of one query. Every row holds exactly
// len(Columns) values.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

type Executor interface {
	Execute(ctx context.Context, sql string) (ResultSet, error)
}

// ExecutionError carries the store's message for a failed query.
type ExecutionError struct {
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewExecutionError(err error) *ExecutionError {
	if err == nil {
		return &ExecutionError{Message: "unknown execution error"}
	}
	return &ExecutionError{Message: err.Error(), Err: err}
}

// Materialize drains rows into a ResultSet and closes them.
func Materialize(rows *sql.Rows) (ResultSet, error) {
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return ResultSet{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return ResultSet{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, NormalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}
	return ResultSet{Columns: columns, Rows: resultRows}, nil
}

func NormalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
