package tcpostgres

import (
	"context"
	"os"
	"testing"

	"gotest.tools/v3/assert"
)

func TestSetupTestDb(t *testing.T) {
	if os.Getenv("RCOACH_TC_POSTGRES") != "1" {
		t.Skip("set RCOACH_TC_POSTGRES=1 to run against a postgres container")
	}
	ctx := context.Background()
	d, err := SetupTestDb(ctx)
	assert.NilError(t, err)
	defer d.Close()

	_, err = d.ExecContext(ctx,
		"insert into session (session_key, track, car, created_at) values ($1,$2,$3,$4)",
		"tc", "spa", "gt3", 0)
	assert.NilError(t, err)
	assert.NilError(t, ClearAllTables(ctx, d))

	var cnt int
	assert.NilError(t, d.QueryRowContext(ctx, "select count(*) from session").Scan(&cnt))
	assert.Equal(t, cnt, 0)
}
