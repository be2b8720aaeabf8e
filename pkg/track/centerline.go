package track

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mpapenbr/racecoach/pkg/model"
)

type ExtractorConfig struct {
	// number of equally sized lap_dist_pct buckets
	NumBins int
	// half width of the moving average kernel (kernel = 2*SmoothWindow+1).
	// 0 disables smoothing.
	SmoothWindow int
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{NumBins: 512, SmoothWindow: 10}
}

// Extractor builds a smooth track centerline from the position samples of
// one or more laps.
type Extractor struct {
	cfg ExtractorConfig
}

func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if cfg.NumBins < 1 {
		return nil, fmt.Errorf("numBins must be >= 1, got %d: %w",
			cfg.NumBins, ErrInvalidArgument)
	}
	return &Extractor{cfg: cfg}, nil
}

func (e *Extractor) Config() ExtractorConfig {
	return e.cfg
}

// Extract bins all samples by lap_dist_pct, averages x and y per bin and
// smooths the result with a circular moving average.
// Empty bins are dropped, so the result may have fewer than NumBins points.
func (e *Extractor) Extract(laps [][]model.TrackPoint) ([]model.TrackPoint, error) {
	if len(laps) == 0 {
		return nil, fmt.Errorf("at least one lap is required: %w", ErrInvalidArgument)
	}
	n := e.cfg.NumBins
	xs := make([][]float64, n)
	ys := make([][]float64, n)
	for _, lap := range laps {
		for _, p := range lap {
			idx := e.binIndex(p.LapDistPct)
			xs[idx] = append(xs[idx], p.X)
			ys[idx] = append(ys[idx], p.Y)
		}
	}

	raw := make([]model.TrackPoint, 0, n)
	for i := range n {
		if len(xs[i]) == 0 {
			continue
		}
		cnt := float64(len(xs[i]))
		raw = append(raw, model.TrackPoint{
			LapDistPct: (float64(i) + 0.5) / float64(n),
			X:          floats.Sum(xs[i]) / cnt,
			Y:          floats.Sum(ys[i]) / cnt,
		})
	}

	if e.cfg.SmoothWindow > 0 && len(raw) > 1 {
		return smoothPoints(raw, e.cfg.SmoothWindow), nil
	}
	return raw, nil
}

func (e *Extractor) binIndex(pct float64) int {
	n := e.cfg.NumBins
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	idx := int(math.Floor(pct * float64(n)))
	return ((idx % n) + n) % n
}

func smoothPoints(points []model.TrackPoint, halfWindow int) []model.TrackPoint {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i := range points {
		xs[i] = points[i].X
		ys[i] = points[i].Y
	}
	xs = circularMovingAverage(xs, halfWindow)
	ys = circularMovingAverage(ys, halfWindow)
	ret := make([]model.TrackPoint, len(points))
	for i := range points {
		ret[i] = model.TrackPoint{LapDistPct: points[i].LapDistPct, X: xs[i], Y: ys[i]}
	}
	return ret
}
