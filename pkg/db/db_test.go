package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		url         string
		wantDialect Dialect
		wantSource  string
	}{
		{"postgres://u:p@host:5432/db", DialectPostgres, "postgres://u:p@host:5432/db"},
		{"postgresql://u:p@host/db", DialectPostgres, "postgresql://u:p@host/db"},
		{"sqlite://racecoach.db", DialectSQLite, "racecoach.db"},
		{"sqlite://:memory:", DialectSQLite, ":memory:"},
		{"data/racecoach.db", DialectSQLite, "data/racecoach.db"},
		{":memory:", DialectSQLite, ":memory:"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			dialect, source := ParseURL(tt.url)
			assert.Equal(t, tt.wantDialect, dialect)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, DialectSQLite, d.Dialect)

	_, err = d.ExecContext(ctx, "create table x (v integer)")
	require.NoError(t, err)

	errBoom := errors.New("boom")
	err = WithTx(ctx, d.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "insert into x (v) values ($1)", 1); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	err = WithTx(ctx, d.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "insert into x (v) values ($1)", 2)
		return err
	})
	require.NoError(t, err)

	var sum int
	require.NoError(t, d.QueryRowContext(ctx, "select sum(v) from x").Scan(&sum))
	assert.Equal(t, 2, sum)
}
