//nolint:funlen // ok for test code
package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/repository"
	"github.com/mpapenbr/racecoach/pkg/repository/lap"
	"github.com/mpapenbr/racecoach/pkg/repository/telemetry"
	"github.com/mpapenbr/racecoach/testsupport/testdb"
)

const shortCSV = `lap,lap_dist_pct,lap_time,speed,throttle,brake,steering_angle,x,y
1, 0.0, 0.0, 40, 1, 0, 0, 0, 0
1, 0.99, 58.0, 41, 1, 0, 0, 1, 0
`

func importString(t *testing.T, d *db.DB, data string, opts *Options) {
	t.Helper()
	f, err := ParseCSV(strings.NewReader(data))
	assert.NilError(t, err)
	assert.NilError(t, Import(context.Background(), d, f, opts))
}

func lapTimes(t *testing.T, d *db.DB) []float64 {
	t.Helper()
	infos, err := lap.ListByTrackCar(context.Background(), d, "spa", "gt3")
	assert.NilError(t, err)
	ret := make([]float64, 0)
	for _, l := range infos {
		ret = append(ret, l.LapTimeS)
	}
	return ret
}

func TestImport(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()
	importString(t, d, sampleCSV,
		&Options{SessionKey: "s1", Track: "spa", Car: "gt3", AutoReference: true})

	laps, err := telemetry.ListLaps(ctx, d, "s1")
	assert.NilError(t, err)
	assert.DeepEqual(t, laps, []int{1, 2})

	frames, err := telemetry.LoadLap(ctx, d, "s1", 1)
	assert.NilError(t, err)
	assert.Equal(t, len(frames), 3)

	points, err := telemetry.LoadTrackPoints(ctx, d, "s1", 1)
	assert.NilError(t, err)
	assert.Equal(t, len(points), 3)

	got := lapTimes(t, d)
	assert.Assert(t, cmp.Equal(got, []float64{59.5, 61.0}), cmp.Diff([]float64{59.5, 61.0}, got))

	ref, err := lap.GetReference(ctx, d, "spa", "gt3")
	assert.NilError(t, err)
	assert.Equal(t, ref.LapNumber, 2)
}

func TestImportReplacesSession(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()
	opts := &Options{SessionKey: "s1", Track: "spa", Car: "gt3"}

	importString(t, d, sampleCSV, opts)
	importString(t, d, sampleCSV, opts)

	frames, err := telemetry.LoadLap(ctx, d, "s1", 1)
	assert.NilError(t, err)
	assert.Equal(t, len(frames), 3)
	points, err := telemetry.LoadTrackPoints(ctx, d, "s1", 1)
	assert.NilError(t, err)
	assert.Equal(t, len(points), 3)
	assert.Equal(t, len(lapTimes(t, d)), 2)

	// a shorter file drops lap 2 and updates the time of lap 1
	importString(t, d, shortCSV, opts)
	laps, err := telemetry.ListLaps(ctx, d, "s1")
	assert.NilError(t, err)
	assert.DeepEqual(t, laps, []int{1})
	frames, err = telemetry.LoadLap(ctx, d, "s1", 1)
	assert.NilError(t, err)
	assert.Equal(t, len(frames), 2)
	assert.DeepEqual(t, lapTimes(t, d), []float64{58.0})
	_, err = lap.Load(ctx, d, "s1", 2)
	assert.Assert(t, errors.Is(err, repository.ErrNotFound))
}

func TestImportKeepsOtherSessions(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()
	importString(t, d, sampleCSV, &Options{SessionKey: "s1", Track: "spa", Car: "gt3"})
	importString(t, d, shortCSV, &Options{SessionKey: "s2", Track: "spa", Car: "gt3"})
	importString(t, d, sampleCSV, &Options{SessionKey: "s1", Track: "spa", Car: "gt3"})

	frames, err := telemetry.LoadLap(ctx, d, "s2", 1)
	assert.NilError(t, err)
	assert.Equal(t, len(frames), 2)
	assert.Equal(t, len(lapTimes(t, d)), 3)
}

func TestImportFile(t *testing.T) {
	d := testdb.InitTestDb(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "run1.csv")
	assert.NilError(t, os.WriteFile(file, []byte(sampleCSV), 0o600))

	got, err := ImportFile(context.Background(), d, file,
		&Options{SessionKey: "run1", Track: "spa", Car: "gt3"})
	assert.NilError(t, err)
	assert.Equal(t, len(got.Frames), 5)

	bad := filepath.Join(dir, "bad.csv")
	assert.NilError(t, os.WriteFile(bad, []byte("lap\n1\n"), 0o600))
	_, err = ImportFile(context.Background(), d, bad,
		&Options{SessionKey: "bad", Track: "spa", Car: "gt3"})
	assert.Assert(t, errors.Is(err, ErrMissingColumn))
	assert.ErrorContains(t, err, "bad.csv")

	_, err = ImportFile(context.Background(), d, filepath.Join(dir, "missing.csv"),
		&Options{SessionKey: "missing", Track: "spa", Car: "gt3"})
	assert.Assert(t, errors.Is(err, os.ErrNotExist))
}
