//nolint:funlen // ok for test code
package importer

import (
	"errors"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/racecoach/pkg/model"
)

const sampleCSV = `lap,lap_dist_pct,lap_time,speed,throttle,brake,steering_angle,x,y,gear
1, 0.0, 0.0, 40, 1, 0, 0.01, 0, 0, 3
1, 0.5, 30.5, 38, 0.4, 0.2, -0.02, 10, 5, 4
1, 0.99, 61.0, 41, 1, 0, 0, 1, 0,
2, 0.0, 0.0, 40, 1, 0, 0, 0, 0, 3
2, 0.98, 59.5, 42, 1, 0, 0, 1, 1, 5
`

func TestParseCSV(t *testing.T) {
	got, err := ParseCSV(strings.NewReader(sampleCSV))
	assert.NilError(t, err)
	assert.Equal(t, len(got.Frames), 5)
	assert.DeepEqual(t, got.Laps(), []int{1, 2})
	assert.DeepEqual(t, got.LapTimes, map[int]float64{1: 61.0, 2: 59.5})

	second := got.Frames[1]
	assert.DeepEqual(t, second, &model.FrameRow{
		LapNumber:     1,
		Timestamp:     30.5,
		Speed:         38,
		Throttle:      4000,
		Brake:         2000,
		SteeringAngle: -0.02,
		Gear:          4,
		LapDistPct:    5000,
		LapTime:       30.5,
	})
	assert.Equal(t, got.Frames[2].Gear, 0)
	assert.DeepEqual(t, got.Positions[2], []model.TrackPoint{
		{LapDistPct: 0, X: 0, Y: 0},
		{LapDistPct: 0.98, X: 1, Y: 1},
	})
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "empty", data: "", wantErr: "read header"},
		{
			name:    "missing column",
			data:    "lap,lap_dist_pct,lap_time,speed,throttle,brake\n1,0,0,0,0,0\n",
			wantErr: "steering_angle",
		},
		{
			name:    "invalid number",
			data:    "lap,lap_dist_pct,lap_time,speed,throttle,brake,steering_angle\n1,0,abc,0,0,0,0\n",
			wantErr: "line 2: column lap_time",
		},
		{
			name:    "wrong number of fields",
			data:    "lap,lap_dist_pct,lap_time,speed,throttle,brake,steering_angle\n1,0,0\n",
			wantErr: "wrong number of fields",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.data))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
	_, err := ParseCSV(strings.NewReader("lap\n1\n"))
	assert.Assert(t, errors.Is(err, ErrMissingColumn))
}

func TestParseCSVWithoutPositions(t *testing.T) {
	data := "steering_angle,brake,throttle,speed,lap_time,lap_dist_pct,lap\n0,0,1,40,10,0.5,3\n"
	got, err := ParseCSV(strings.NewReader(data))
	assert.NilError(t, err)
	assert.Equal(t, len(got.Positions), 0)
	assert.Equal(t, got.Frames[0].LapNumber, 3)
	assert.Equal(t, got.Frames[0].Timestamp, 10.0)
}
