package analysis

import (
	"math"

	"github.com/mpapenbr/racecoach/pkg/model"
)

const mpsToKph = 3.6

type ApexConfig struct {
	// a speed deficit (km/h) larger than this marks the apex as too slow
	TooSlowThresholdKph float64
}

func DefaultApexConfig() ApexConfig {
	return ApexConfig{TooSlowThresholdKph: 5.0}
}

// ApexSpeedAnalyzer compares the minimum speed in the apex zone.
type ApexSpeedAnalyzer struct {
	cfg ApexConfig
}

func NewApexSpeedAnalyzer(cfg ApexConfig) *ApexSpeedAnalyzer {
	return &ApexSpeedAnalyzer{cfg: cfg}
}

func (a *ApexSpeedAnalyzer) Config() ApexConfig {
	return a.cfg
}

func (a *ApexSpeedAnalyzer) Analyze(
	user, ref []model.LapFrame,
	corners []model.Corner,
) []model.ApexSpeedResult {
	ret := make([]model.ApexSpeedResult, len(corners))
	for i := range corners {
		ret[i] = a.AnalyzeCorner(user, ref, &corners[i])
	}
	return ret
}

func (a *ApexSpeedAnalyzer) AnalyzeCorner(
	user, ref []model.LapFrame,
	corner *model.Corner,
) model.ApexSpeedResult {
	userMin := apexMinSpeed(user, corner)
	refMin := apexMinSpeed(ref, corner)
	deltaKph := (userMin - refMin) * mpsToKph
	return model.ApexSpeedResult{
		CornerID:       corner.ID,
		MinSpeedMps:    userMin,
		RefMinSpeedMps: refMin,
		DeltaKph:       deltaKph,
		TooSlow:        deltaKph < -a.cfg.TooSlowThresholdKph,
	}
}

// apexMinSpeed is the minimum speed in [ApexStart, ApexEnd], 0 if the lap
// has no frames there.
func apexMinSpeed(frames []model.LapFrame, corner *model.Corner) float64 {
	zone := framesBetween(frames, corner.ApexStart, corner.ApexEnd)
	if len(zone) == 0 {
		return 0
	}
	ret := math.Inf(1)
	for i := range zone {
		ret = math.Min(ret, zone[i].Speed)
	}
	return ret
}
