package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

//nolint:lll // ok for interface
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
	_ Querier = (*sql.Conn)(nil)
)

var ErrNotFound = errors.New("not found")

// Scanner is implemented by *sql.Row and *sql.Rows
type Scanner interface {
	Scan(dest ...any) error
}

// NotFound maps sql.ErrNoRows to ErrNotFound, other errors are returned
// unchanged.
func NotFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// BatchInsert inserts n rows with one statement per batch of batchSize rows.
// prefix is the statement up to and including "values", args returns the
// column values of row i.
func BatchInsert(
	ctx context.Context,
	conn Querier,
	prefix string,
	numCols, n, batchSize int,
	args func(i int) []any,
) error {
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		var sb strings.Builder
		sb.WriteString(prefix)
		values := make([]any, 0, (end-start)*numCols)
		for i := start; i < end; i++ {
			if i > start {
				sb.WriteString(",")
			}
			sb.WriteString(placeholders(len(values)+1, numCols))
			values = append(values, args(i)...)
		}
		if _, err := conn.ExecContext(ctx, sb.String(), values...); err != nil {
			return err
		}
	}
	return nil
}

// placeholders returns "($first,...,$first+cnt-1)"
func placeholders(first, cnt int) string {
	parts := make([]string, cnt)
	for i := range cnt {
		parts[i] = fmt.Sprintf("$%d", first+i)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
