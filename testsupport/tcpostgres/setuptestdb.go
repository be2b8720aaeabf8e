// Package tcpostgres provides a shared postgres test container.
package tcpostgres

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/db/migrate"
)

const (
	containerName = "racecoach-test"
	defaultImage  = "postgres:15"
	user          = "racecoach"
	password      = "racecoach"
	database      = "racecoach"
)

// tables in delete order
var tables = []string{
	"analysis", "lap", "track_position", "telemetry_frame", "session",
}

// SetupTestDb starts (or reuses) the postgres test container, applies the
// migrations and returns a connection to it. RCOACH_TC_IMAGE overrides the
// postgres image.
func SetupTestDb(ctx context.Context) (*db.DB, error) {
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		return nil, err
	}
	image := os.Getenv("RCOACH_TC_IMAGE")
	if image == "" {
		image = defaultImage
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Name:         containerName,
				Image:        image,
				ExposedPorts: []string{port.Port()},
				Env: map[string]string{
					"POSTGRES_USER":     user,
					"POSTGRES_PASSWORD": password,
					"POSTGRES_DB":       database,
				},
				// test data only
				Cmd: []string{"postgres", "-c", "fsync=off"},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30 * time.Second),
			},
			Started: true,
			Reuse:   true,
		})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", image, err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return nil, err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	d, err := db.Open(ctx, fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		user, password, host, mapped.Port(), database))
	if err != nil {
		return nil, err
	}
	if err := migrate.MigrateDB(d); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// ClearAllTables removes all rows written by previous tests.
func ClearAllTables(ctx context.Context, d *db.DB) error {
	for _, t := range tables {
		if _, err := d.ExecContext(ctx, "delete from "+t); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	return nil
}
