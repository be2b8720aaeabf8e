//nolint:funlen // readability
package track

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/testsupport/sampledata"
)

func rmsDeviationFromCircle(points []model.TrackPoint, radius float64) float64 {
	sum := 0.0
	for _, p := range points {
		d := math.Hypot(p.X, p.Y) - radius
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(points)))
}

func mustExtractor(t *testing.T, numBins, smooth int) *Extractor {
	t.Helper()
	e, err := NewExtractor(ExtractorConfig{NumBins: numBins, SmoothWindow: smooth})
	require.NoError(t, err)
	return e
}

func TestNewExtractor(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ExtractorConfig
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultExtractorConfig()},
		{name: "single bin", cfg: ExtractorConfig{NumBins: 1}},
		{name: "zero bins", cfg: ExtractorConfig{NumBins: 0}, wantErr: true},
		{name: "negative bins", cfg: ExtractorConfig{NumBins: -3}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name    string
		numBins int
		smooth  int
		laps    [][]model.TrackPoint
		checks  func(t *testing.T, got []model.TrackPoint)
	}{
		{
			name:    "clean circle stays on circle",
			numBins: 100,
			smooth:  3,
			laps:    [][]model.TrackPoint{sampledata.CircleLap(200, 100, 0, 1)},
			checks: func(t *testing.T, got []model.TrackPoint) {
				assert.NotEmpty(t, got)
				assert.Less(t, rmsDeviationFromCircle(got, 100), 2.0)
			},
		},
		{
			name:    "one point per bin",
			numBins: 64,
			smooth:  3,
			laps:    [][]model.TrackPoint{sampledata.CircleLap(200, 100, 0, 1)},
			checks: func(t *testing.T, got []model.TrackPoint) {
				assert.Len(t, got, 64)
			},
		},
		{
			name:    "closed loop",
			numBins: 200,
			smooth:  5,
			laps:    [][]model.TrackPoint{sampledata.CircleLap(500, 100, 0, 1)},
			checks: func(t *testing.T, got []model.TrackPoint) {
				first, last := got[0], got[len(got)-1]
				binWidth := 2 * math.Pi * 100 / 200
				assert.Less(t, math.Hypot(first.X-last.X, first.Y-last.Y), 2*binWidth)
			},
		},
		{
			name:    "empty bins are dropped",
			numBins: 10,
			smooth:  0,
			laps: [][]model.TrackPoint{{
				{LapDistPct: 0.05, X: 1, Y: 1},
				{LapDistPct: 0.55, X: 3, Y: 3},
			}},
			checks: func(t *testing.T, got []model.TrackPoint) {
				want := []model.TrackPoint{
					{LapDistPct: 0.05, X: 1, Y: 1},
					{LapDistPct: 0.55, X: 3, Y: 3},
				}
				assert.Empty(t, cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)))
			},
		},
		{
			name:    "bucket mean across laps",
			numBins: 4,
			smooth:  0,
			laps: [][]model.TrackPoint{
				{{LapDistPct: 0.1, X: 0, Y: 2}},
				{{LapDistPct: 0.2, X: 4, Y: 4}},
				{{LapDistPct: 1.1, X: 2, Y: 6}}, // wraps into the first bucket
			},
			checks: func(t *testing.T, got []model.TrackPoint) {
				want := []model.TrackPoint{{LapDistPct: 0.125, X: 2, Y: 4}}
				assert.Empty(t, cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)))
			},
		},
		{
			name:    "negative pct wraps to last bucket",
			numBins: 4,
			smooth:  0,
			laps:    [][]model.TrackPoint{{{LapDistPct: -0.1, X: 1, Y: 1}}},
			checks: func(t *testing.T, got []model.TrackPoint) {
				require.Len(t, got, 1)
				assert.InDelta(t, 0.875, got[0].LapDistPct, 1e-12)
			},
		},
		{
			name:    "single point is returned as is",
			numBins: 10,
			smooth:  1,
			laps:    [][]model.TrackPoint{{{LapDistPct: 0.5, X: 7, Y: -2}}},
			checks: func(t *testing.T, got []model.TrackPoint) {
				want := []model.TrackPoint{{LapDistPct: 0.55, X: 7, Y: -2}}
				assert.Empty(t, cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)))
			},
		},
		{
			name:    "smoothing wraps around",
			numBins: 4,
			smooth:  1,
			laps: [][]model.TrackPoint{{
				{LapDistPct: 0.0, X: 3},
				{LapDistPct: 0.25, X: 0},
				{LapDistPct: 0.5, X: 0},
				{LapDistPct: 0.75, X: 0},
			}},
			checks: func(t *testing.T, got []model.TrackPoint) {
				require.Len(t, got, 4)
				wantX := []float64{1, 1, 0, 1}
				for i := range got {
					assert.InDelta(t, wantX[i], got[i].X, 1e-12, "index %d", i)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustExtractor(t, tt.numBins, tt.smooth)
			got, err := e.Extract(tt.laps)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), tt.numBins)
			for i := 1; i < len(got); i++ {
				assert.Less(t, got[i-1].LapDistPct, got[i].LapDistPct)
			}
			tt.checks(t, got)
		})
	}
}

func TestExtractor_ExtractNoLaps(t *testing.T) {
	e := mustExtractor(t, 10, 1)
	got, err := e.Extract(nil)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestExtractor_MultiLapReducesNoise(t *testing.T) {
	const radius, noise = 100.0, 3.0
	laps := make([][]model.TrackPoint, 3)
	singleRms := 0.0
	for i := range laps {
		laps[i] = sampledata.CircleLap(200, radius, noise, uint64(i+1))
		singleRms += rmsDeviationFromCircle(laps[i], radius)
	}
	singleRms /= float64(len(laps))

	got, err := mustExtractor(t, 100, 1).Extract(laps)
	require.NoError(t, err)
	assert.Less(t, rmsDeviationFromCircle(got, radius), singleRms)
}

func TestCircularMovingAverage(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		half   int
		want   []float64
	}{
		{name: "empty", values: nil, half: 2, want: []float64{}},
		{name: "no smoothing", values: []float64{1, 2, 3}, half: 0, want: []float64{1, 2, 3}},
		{name: "wrap", values: []float64{3, 0, 0, 0, 0, 0}, half: 1, want: []float64{1, 1, 0, 0, 0, 1}},
		{name: "window larger than values", values: []float64{1, 2}, half: 2, want: []float64{1.4, 1.6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := circularMovingAverage(tt.values, tt.half)
			assert.Empty(t, cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)))
		})
	}
}

func TestRingIndex(t *testing.T) {
	r := newRing([]int{10, 20, 30})
	tests := []struct {
		i    int
		want int
	}{
		{-4, 30}, {-1, 30}, {0, 10}, {2, 30}, {3, 10}, {7, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.at(tt.i), "index %d", tt.i)
	}
	assert.Equal(t, 3, r.len())
}
