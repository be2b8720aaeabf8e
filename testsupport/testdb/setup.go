package testdb

import (
	"context"
	"os"
	"testing"

	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/db/migrate"
	tcpg "github.com/mpapenbr/racecoach/testsupport/tcpostgres"
)

// InitTestDb returns an empty, migrated database.
// By default this is a private in-memory SQLite database. With
// RCOACH_TC_POSTGRES=1 the shared postgres test container is used instead.
func InitTestDb(t testing.TB) *db.DB {
	t.Helper()
	if os.Getenv("RCOACH_TC_POSTGRES") == "1" {
		ctx := context.Background()
		d, err := tcpg.SetupTestDb(ctx)
		if err != nil {
			t.Fatalf("initTestDb: %v", err)
		}
		if err := tcpg.ClearAllTables(ctx, d); err != nil {
			t.Fatalf("initTestDb: %v", err)
		}
		t.Cleanup(func() { d.Close() })
		return d
	}
	d, err := db.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("initTestDb: %v", err)
	}
	if err := migrate.MigrateDB(d); err != nil {
		t.Fatalf("initTestDb: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}
