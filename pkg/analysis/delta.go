package analysis

import (
	"github.com/mpapenbr/racecoach/pkg/model"
)

type DeltaConfig struct {
	// number of evenly spaced positions in [0,1] used by ComputePointDeltas
	GridSize int
}

func DefaultDeltaConfig() DeltaConfig {
	return DeltaConfig{GridSize: 101}
}

// DeltaCalculator computes the time gap between a user lap and a reference
// lap. Both laps are interpolated by position, so differing sample rates
// do not matter.
type DeltaCalculator struct {
	cfg DeltaConfig
}

func NewDeltaCalculator(cfg DeltaConfig) *DeltaCalculator {
	return &DeltaCalculator{cfg: cfg}
}

func (c *DeltaCalculator) Config() DeltaConfig {
	return c.cfg
}

// ComputePointDeltas returns the delta on GridSize positions from 0 to 1.
func (c *DeltaCalculator) ComputePointDeltas(user, ref []model.LapFrame) []model.PointDelta {
	n := c.cfg.GridSize
	if n < 1 {
		return []model.PointDelta{}
	}
	step := 1.0
	if n > 1 {
		step = 1.0 / float64(n-1)
	}
	ret := make([]model.PointDelta, n)
	for i := range n {
		p := float64(i) * step
		ret[i] = model.PointDelta{Pct: p, Delta: deltaAt(user, ref, p)}
	}
	return ret
}

// ComputeCornerDeltas returns one CornerDelta per corner in corner order.
func (c *DeltaCalculator) ComputeCornerDeltas(
	user, ref []model.LapFrame,
	corners []model.Corner,
) []model.CornerDelta {
	ret := make([]model.CornerDelta, len(corners))
	for i := range corners {
		ret[i] = c.CornerDelta(user, ref, &corners[i])
	}
	return ret
}

// CornerDelta evaluates the delta at the entry, apex and exit of corner.
func (c *DeltaCalculator) CornerDelta(user, ref []model.LapFrame, corner *model.Corner) model.CornerDelta {
	entry := deltaAt(user, ref, corner.EntryPct)
	exit := deltaAt(user, ref, corner.ExitPct)
	return model.CornerDelta{
		CornerID:   corner.ID,
		DeltaEntry: entry,
		DeltaApex:  deltaAt(user, ref, corner.ApexPct),
		DeltaExit:  exit,
		DeltaTotal: exit - entry,
	}
}

// TotalDelta is the delta at the end of the lap.
func (c *DeltaCalculator) TotalDelta(user, ref []model.LapFrame) float64 {
	return deltaAt(user, ref, 1.0)
}

func deltaAt(user, ref []model.LapFrame, pct float64) float64 {
	return interpolateTime(user, pct) - interpolateTime(ref, pct)
}
