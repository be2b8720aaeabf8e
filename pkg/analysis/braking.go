package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mpapenbr/racecoach/pkg/model"
)

type BrakingConfig struct {
	// brake values above this count as braking
	BrakeThreshold float64
	// the braking window starts this lap fraction before the corner entry
	LookbackFraction float64
	// deceleration (m/s²) above which a wheel lock is assumed
	LockDecelThreshold float64
	// minimum brake pressure for the lock check. For each pair of
	// consecutive braking frames only the later frame's pressure is
	// compared, the earlier frame may be below it.
	LockBrakeMin float64
}

func DefaultBrakingConfig() BrakingConfig {
	return BrakingConfig{
		BrakeThreshold:     0.05,
		LookbackFraction:   0.05,
		LockDecelThreshold: 12.0,
		LockBrakeMin:       0.5,
	}
}

// BrakingAnalyzer inspects the braking zone in front of each corner.
type BrakingAnalyzer struct {
	cfg BrakingConfig
}

func NewBrakingAnalyzer(cfg BrakingConfig) *BrakingAnalyzer {
	return &BrakingAnalyzer{cfg: cfg}
}

func (a *BrakingAnalyzer) Config() BrakingConfig {
	return a.cfg
}

// Analyze returns one BrakingEvent per corner in corner order.
// trackLengthM converts the brake point difference into meters.
func (a *BrakingAnalyzer) Analyze(
	user, ref []model.LapFrame,
	corners []model.Corner,
	trackLengthM float64,
) []model.BrakingEvent {
	ret := make([]model.BrakingEvent, len(corners))
	for i := range corners {
		ret[i] = a.AnalyzeCorner(user, ref, &corners[i], trackLengthM)
	}
	return ret
}

func (a *BrakingAnalyzer) AnalyzeCorner(
	user, ref []model.LapFrame,
	corner *model.Corner,
	trackLengthM float64,
) model.BrakingEvent {
	userZone := a.brakeZone(user, corner)
	refZone := a.brakeZone(ref, corner)

	userBP := a.brakePoint(userZone, corner.EntryPct)
	refBP := a.brakePoint(refZone, corner.EntryPct)

	braking := a.brakingFrames(userZone)
	peak, timeToPeak := peakPressure(braking)

	return model.BrakingEvent{
		CornerID:            corner.ID,
		BrakePointPct:       userBP,
		RefBrakePointPct:    refBP,
		BrakePointDeltaM:    (userBP - refBP) * trackLengthM,
		PeakPressure:        peak,
		TimeToPeakS:         timeToPeak,
		TrailBrakeLinearity: trailBrakeLinearity(braking),
		LockDetected:        a.detectLock(braking),
	}
}

// brakeZone covers [entry - lookback, apexStart].
func (a *BrakingAnalyzer) brakeZone(frames []model.LapFrame, corner *model.Corner) []model.LapFrame {
	from := math.Max(0, corner.EntryPct-a.cfg.LookbackFraction)
	return framesBetween(frames, from, corner.ApexStart)
}

func (a *BrakingAnalyzer) brakePoint(zone []model.LapFrame, fallback float64) float64 {
	for i := range zone {
		if zone[i].Brake > a.cfg.BrakeThreshold {
			return zone[i].LapDistPct
		}
	}
	return fallback
}

func (a *BrakingAnalyzer) brakingFrames(zone []model.LapFrame) []model.LapFrame {
	ret := make([]model.LapFrame, 0, len(zone))
	for i := range zone {
		if zone[i].Brake > a.cfg.BrakeThreshold {
			ret = append(ret, zone[i])
		}
	}
	return ret
}

// detectLock reports a lock if the deceleration between two consecutive
// braking frames exceeds the threshold while the brake of the later frame
// is pressed with at least LockBrakeMin. Pairs without a positive time step
// are ignored.
func (a *BrakingAnalyzer) detectLock(braking []model.LapFrame) bool {
	for i := 1; i < len(braking); i++ {
		dt := braking[i].LapTime - braking[i-1].LapTime
		if dt <= 0 {
			continue
		}
		if braking[i].Brake < a.cfg.LockBrakeMin {
			continue
		}
		decel := (braking[i-1].Speed - braking[i].Speed) / dt
		if decel > a.cfg.LockDecelThreshold {
			return true
		}
	}
	return false
}

// peakPressure returns the maximum brake value and the time from the first
// braking frame to the (first) frame with that value.
func peakPressure(braking []model.LapFrame) (peak, timeToPeak float64) {
	if len(braking) == 0 {
		return 0, 0
	}
	idx := peakIndex(braking)
	return braking[idx].Brake, math.Max(0, braking[idx].LapTime-braking[0].LapTime)
}

func peakIndex(braking []model.LapFrame) int {
	idx := 0
	for i := range braking {
		if braking[i].Brake > braking[idx].Brake {
			idx = i
		}
	}
	return idx
}

// stepReleaseMin is the minimal brake decrease over the observed release.
// Less than that means the pedal was held and dropped outside the window.
const stepReleaseMin = 0.1

// trailBrakeLinearity scores the release phase, from the peak onwards.
// 1.0 is a perfectly linear release, 0.0 a step release.
func trailBrakeLinearity(braking []model.LapFrame) float64 {
	if len(braking) < 3 {
		return 1.0
	}
	idx := peakIndex(braking)
	release := make([]float64, 0, len(braking)-idx)
	for i := idx; i < len(braking); i++ {
		release = append(release, braking[i].Brake)
	}
	if len(release) < 3 {
		return 1.0
	}
	if release[0]-release[len(release)-1] < stepReleaseMin {
		return 0.0
	}
	return linearRSquared(release)
}

// linearRSquared is the coefficient of determination of a least squares
// line through values, using the sample index as x.
// Constant series count as a perfect fit.
func linearRSquared(values []float64) float64 {
	n := len(values)
	if n < 3 {
		return 1.0
	}
	xs := make([]float64, n)
	floats.Span(xs, 0, float64(n-1))

	mean := stat.Mean(values, nil)
	ssTot := 0.0
	for _, v := range values {
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot < bracketEps {
		return 1.0
	}
	alpha, beta := stat.LinearRegression(xs, values, nil, false)
	r2 := stat.RSquared(xs, values, nil, alpha, beta)
	if math.IsNaN(r2) {
		return 0
	}
	return math.Max(0, r2)
}
