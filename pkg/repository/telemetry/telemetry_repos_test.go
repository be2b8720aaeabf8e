//nolint:funlen // ok for test code
package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository"
	"github.com/mpapenbr/racecoach/testsupport/testdb"
)

func TestEnsureSession(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()

	id, err := EnsureSession(ctx, d, "s1", "spa", "gt3")
	assert.NilError(t, err)
	again, err := EnsureSession(ctx, d, "s1", "other", "other")
	assert.NilError(t, err)
	assert.Equal(t, id, again)

	other, err := EnsureSession(ctx, d, "s2", "spa", "gt3")
	assert.NilError(t, err)
	assert.Assert(t, other != id)

	_, err = SessionID(ctx, d, "unknown")
	assert.Assert(t, errors.Is(err, repository.ErrNotFound))
}

func TestSaveAndLoadLap(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()

	// more rows than one batch, stored in reverse order
	const n = 1300
	frames := make([]*model.FrameRow, 0, 2*n)
	for lap := 1; lap <= 2; lap++ {
		for i := n - 1; i >= 0; i-- {
			frames = append(frames, &model.FrameRow{
				LapNumber:  lap,
				Timestamp:  float64(i) / 10,
				Speed:      40,
				Throttle:   model.ScaleFactor,
				Brake:      i % 7,
				Gear:       4,
				RPM:        7000,
				GForceLat:  0.5,
				LapDistPct: i * model.ScaleFactor / n,
				LapTime:    float64(i) / 10,
			})
		}
	}
	err := db.WithTx(ctx, d.DB, func(tx *sql.Tx) error {
		id, err := EnsureSession(ctx, tx, "s1", "spa", "gt3")
		if err != nil {
			return err
		}
		return SaveFrames(ctx, tx, id, frames)
	})
	assert.NilError(t, err)

	got, err := LoadLap(ctx, d, "s1", 2)
	assert.NilError(t, err)
	assert.Equal(t, len(got), n)
	for i := 1; i < len(got); i++ {
		assert.Assert(t, got[i-1].LapTime <= got[i].LapTime, "index %d", i)
	}
	assert.Equal(t, got[0].LapNumber, 2)
	assert.Equal(t, got[0].Throttle, model.ScaleFactor)
	assert.Equal(t, got[0].Gear, 4)
	assert.Equal(t, got[10].Brake, 10%7)

	none, err := LoadLap(ctx, d, "s1", 3)
	assert.NilError(t, err)
	assert.Equal(t, len(none), 0)

	laps, err := ListLaps(ctx, d, "s1")
	assert.NilError(t, err)
	assert.DeepEqual(t, laps, []int{1, 2})
}

func TestSaveAndLoadTrackPoints(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()
	id, err := EnsureSession(ctx, d, "s1", "spa", "gt3")
	assert.NilError(t, err)

	points := []model.TrackPoint{
		{LapDistPct: 0.5, X: 5, Y: -5},
		{LapDistPct: 0.1, X: 1, Y: -1},
		{LapDistPct: 0.9, X: 9, Y: -9},
	}
	assert.NilError(t, SavePositions(ctx, d, id, 3, points))
	assert.NilError(t, SavePositions(ctx, d, id, 4, points[:1]))

	got, err := LoadTrackPoints(ctx, d, "s1", 3)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []model.TrackPoint{
		{LapDistPct: 0.1, X: 1, Y: -1},
		{LapDistPct: 0.5, X: 5, Y: -5},
		{LapDistPct: 0.9, X: 9, Y: -9},
	})

	got, err = LoadTrackPoints(ctx, d, "unknown", 3)
	assert.NilError(t, err)
	assert.Equal(t, len(got), 0)
}

func TestDeleteSession(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()
	id, err := EnsureSession(ctx, d, "s1", "spa", "gt3")
	assert.NilError(t, err)
	assert.NilError(t, SaveFrames(ctx, d, id, []*model.FrameRow{{LapNumber: 1}}))
	assert.NilError(t, SavePositions(ctx, d, id, 1, []model.TrackPoint{{X: 1}}))

	cnt, err := DeleteSession(ctx, d, "s1")
	assert.NilError(t, err)
	assert.Equal(t, cnt, 1)

	laps, err := ListLaps(ctx, d, "s1")
	assert.NilError(t, err)
	assert.Equal(t, len(laps), 0)

	cnt, err = DeleteSession(ctx, d, "s1")
	assert.NilError(t, err)
	assert.Equal(t, cnt, 0)
}
