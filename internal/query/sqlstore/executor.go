// Package sqlstore executes candidate queries against the relational store.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fedask/fedask/internal/query"
)

type Executor struct {
	DB *sql.DB
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{DB: db}
}

// Execute runs sqlText verbatim on a connection held only for this call.
func (e *Executor) Execute(ctx context.Context, sqlText string) (query.ResultSet, error) {
	if e == nil || e.DB == nil {
		return query.ResultSet{}, &query.ExecutionError{Message: "database is not configured"}
	}
	if strings.TrimSpace(sqlText) == "" {
		return query.ResultSet{}, &query.ExecutionError{Message: "sql is required"}
	}

	conn, err := e.DB.Conn(ctx)
	if err != nil {
		return query.ResultSet{}, query.NewExecutionError(fmt.Errorf("acquire connection: %w", err))
	}
	defer func() { _ = conn.Close() }()

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
