package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/mpapenbr/racecoach/log"
)

type ConfigOption func(cfg *pgx.ConnConfig)

// WithTracer logs every statement with the given logger on level.
func WithTracer(logger *log.Logger, level log.Level) ConfigOption {
	return func(cfg *pgx.ConnConfig) {
		cfg.Tracer = &queryTracer{log: logger, level: level}
	}
}

// WithOtlpTracer creates spans for each statement.
func WithOtlpTracer() ConfigOption {
	return func(cfg *pgx.ConnConfig) {
		cfg.Tracer = otelpgx.NewTracer()
	}
}

// Open connects to url via the pgx database/sql driver.
func Open(ctx context.Context, url string, opts ...ConfigOption) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to get a valid database connection: %w", err)
	}
	return db, nil
}

type queryTracer struct {
	log   *log.Logger
	level log.Level
}

func (t *queryTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	t.log.Log(t.level, "Executing", log.String("sql", data.SQL), log.Any("args", data.Args))
	return ctx
}

//nolint:whitespace // can't make the linters happy
func (t *queryTracer) TraceQueryEnd(
	_ context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	if data.Err != nil {
		t.log.Log(t.level, "Query failed", log.ErrorField(data.Err))
	}
}
