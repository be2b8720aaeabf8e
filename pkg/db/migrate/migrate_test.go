package migrate

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/racecoach/pkg/db"
)

func TestMigrateDB(t *testing.T) {
	ctx := context.Background()
	d, err := db.Open(ctx, ":memory:")
	assert.NilError(t, err)
	defer d.Close()

	v, _, err := Version(d)
	assert.NilError(t, err)
	assert.Equal(t, v, uint(0))

	assert.NilError(t, MigrateDB(d))
	// applying twice is a no-op
	assert.NilError(t, MigrateDB(d))

	v, dirty, err := Version(d)
	assert.NilError(t, err)
	assert.Equal(t, v, uint(1))
	assert.Assert(t, !dirty)

	for _, table := range []string{"session", "telemetry_frame", "track_position", "lap", "analysis"} {
		var cnt int
		err := d.QueryRowContext(ctx,
			"select count(*) from sqlite_master where type='table' and name=$1", table).Scan(&cnt)
		assert.NilError(t, err)
		assert.Equal(t, cnt, 1, table)
	}
}
