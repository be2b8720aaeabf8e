package analysis

import (
	"math"

	"github.com/mpapenbr/racecoach/pkg/model"
)

type ThrottleConfig struct {
	// throttle values above this count as applied
	ThrottleThreshold float64
	// throttle values at or above this count as full throttle
	FullThrottleLevel float64
	// full throttle with more steering (radians) than this is too early
	FullThrottleSteerThreshold float64
	// brake and throttle above these values at the same time are an overlap
	BrakeOverlapMin    float64
	ThrottleOverlapMin float64
}

func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		ThrottleThreshold:          0.05,
		FullThrottleLevel:          0.99,
		FullThrottleSteerThreshold: 0.1,
		BrakeOverlapMin:            0.05,
		ThrottleOverlapMin:         0.05,
	}
}

// ThrottleAnalyzer inspects the throttle application on corner exit.
type ThrottleAnalyzer struct {
	cfg ThrottleConfig
}

func NewThrottleAnalyzer(cfg ThrottleConfig) *ThrottleAnalyzer {
	return &ThrottleAnalyzer{cfg: cfg}
}

func (a *ThrottleAnalyzer) Config() ThrottleConfig {
	return a.cfg
}

// Analyze returns one ThrottleEvent per corner in corner order.
// Only the user lap is inspected, ref is accepted for symmetry with the
// other analyzers.
func (a *ThrottleAnalyzer) Analyze(
	user, ref []model.LapFrame,
	corners []model.Corner,
) []model.ThrottleEvent {
	ret := make([]model.ThrottleEvent, len(corners))
	for i := range corners {
		ret[i] = a.AnalyzeCorner(user, ref, &corners[i])
	}
	return ret
}

func (a *ThrottleAnalyzer) AnalyzeCorner(
	user, _ []model.LapFrame,
	corner *model.Corner,
) model.ThrottleEvent {
	exitZone := framesBetween(user, corner.ApexEnd, corner.ExitPct)
	return model.ThrottleEvent{
		CornerID:             corner.ID,
		ThrottlePointPct:     a.throttlePoint(exitZone, corner.ExitPct),
		TooEarlyFullThrottle: a.earlyFullThrottle(exitZone),
		OverlapCount:         a.overlapCount(framesBetween(user, corner.EntryPct, corner.ExitPct)),
	}
}

func (a *ThrottleAnalyzer) throttlePoint(zone []model.LapFrame, fallback float64) float64 {
	for i := range zone {
		if zone[i].Throttle > a.cfg.ThrottleThreshold {
			return zone[i].LapDistPct
		}
	}
	return fallback
}

// earlyFullThrottle is true if full throttle is used while still steering.
func (a *ThrottleAnalyzer) earlyFullThrottle(zone []model.LapFrame) bool {
	for i := range zone {
		if zone[i].Throttle >= a.cfg.FullThrottleLevel &&
			math.Abs(zone[i].SteeringAngle) > a.cfg.FullThrottleSteerThreshold {
			return true
		}
	}
	return false
}

func (a *ThrottleAnalyzer) overlapCount(frames []model.LapFrame) int {
	cnt := 0
	for i := range frames {
		if frames[i].Brake > a.cfg.BrakeOverlapMin && frames[i].Throttle > a.cfg.ThrottleOverlapMin {
			cnt++
		}
	}
	return cnt
}
