package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racecoach/pkg/importer"
	"github.com/mpapenbr/racecoach/pkg/repository/telemetry"
	svc "github.com/mpapenbr/racecoach/pkg/service/analysis"
	"github.com/mpapenbr/racecoach/testsupport/testdb"
)

const lapCSV = `lap,lap_dist_pct,lap_time,speed,throttle,brake,steering_angle,x,y
1, 0.0, 0.0, 40, 1, 0, 0, 0, 0
1, 0.5, 30.0, 38, 0.5, 0.2, 0, 10, 5
1, 0.99, 60.0, 41, 1, 0, 0, 1, 0
`

func TestStartWatcher(t *testing.T) {
	d := testdb.InitTestDb(t)
	service, err := svc.NewService(d, svc.WithCornerCache(time.Minute))
	require.NoError(t, err)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done, err := startWatcher(ctx, d, service,
		&watchOptions{dir: dir, track: "spa", car: "gt3"},
		importer.WithSettleDelay(20*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hotlap.csv"), []byte(lapCSV), 0o600))
	assert.Eventually(t, func() bool {
		laps, err := telemetry.ListLaps(ctx, d, "hotlap")
		return err == nil && len(laps) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestStartWatcherErrors(t *testing.T) {
	d := testdb.InitTestDb(t)
	service, err := svc.NewService(d)
	require.NoError(t, err)

	tests := []struct {
		name string
		opts watchOptions
	}{
		{name: "missing track", opts: watchOptions{dir: t.TempDir(), car: "gt3"}},
		{name: "missing dir", opts: watchOptions{
			dir: filepath.Join(t.TempDir(), "missing"), track: "spa", car: "gt3",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := startWatcher(context.Background(), d, service, &tt.opts)
			assert.Error(t, err)
		})
	}
}
