package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mpapenbr/racecoach/pkg/db/postgres"
	"github.com/mpapenbr/racecoach/pkg/db/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB is a database handle together with the dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

type (
	Option  func(*options)
	options struct {
		pgOpts []postgres.ConfigOption
	}
)

// WithPostgresOptions are applied when url points to a postgres database.
func WithPostgresOptions(opts ...postgres.ConfigOption) Option {
	return func(o *options) {
		o.pgOpts = append(o.pgOpts, opts...)
	}
}

// ParseURL returns the dialect of url and the remaining data source.
// postgres:// and postgresql:// urls are kept as they are, sqlite://path and
// plain paths select SQLite.
func ParseURL(url string) (Dialect, string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DialectPostgres, url
	case strings.HasPrefix(url, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(url, "sqlite://")
	default:
		return DialectSQLite, url
	}
}

// Open connects to the database referenced by url.
func Open(ctx context.Context, url string, opts ...Option) (*DB, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	dialect, source := ParseURL(url)
	var (
		sqlDB *sql.DB
		err   error
	)
	switch dialect {
	case DialectPostgres:
		sqlDB, err = postgres.Open(ctx, source, o.pgOpts...)
	default:
		sqlDB, err = sqlite.Open(ctx, source)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

// WithTx runs fn inside a transaction. The transaction is committed if fn
// returns nil and rolled back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		//nolint:errcheck // original error is more important
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
