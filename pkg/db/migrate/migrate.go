package migrate

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/db"
)

//go:embed migrations
var migrations embed.FS

// MigrateDB applies all pending migrations for the dialect of d.
func MigrateDB(d *db.DB) error {
	m, err := newMigrate(d)
	if err != nil {
		return err
	}
	// m is not closed, it would close d as well
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version returns the current schema version, 0 if nothing was applied yet.
func Version(d *db.DB) (version uint, dirty bool, err error) {
	m, err := newMigrate(d)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrate(d *db.DB) (*migrate.Migrate, error) {
	dir := "migrations/" + string(d.Dialect)
	source, err := iofs.New(migrations, dir)
	if err != nil {
		return nil, err
	}
	var driver database.Driver
	switch d.Dialect {
	case db.DialectPostgres:
		driver, err = migratepgx.WithInstance(d.DB, &migratepgx.Config{})
	default:
		driver, err = migratesqlite.WithInstance(d.DB, &migratesqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", d.Dialect, err)
	}
	m, err := migrate.NewWithInstance("iofs", source, string(d.Dialect), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{l: log.Default().Named("migrate")}
	return m, nil
}

type migrateLogger struct {
	l *log.Logger
}

func (ml *migrateLogger) Printf(format string, v ...any) {
	ml.l.Debug(fmt.Sprintf(format, v...))
}

func (ml *migrateLogger) Verbose() bool {
	return ml.l.Enabled(log.DebugLevel)
}
