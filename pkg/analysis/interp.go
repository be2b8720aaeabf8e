package analysis

import (
	"sort"

	"github.com/mpapenbr/racecoach/pkg/model"
)

const bracketEps = 1e-12

// interpolateTime returns the lap_time at pct by linear interpolation between
// the two frames bracketing pct. Positions outside the observed range clamp
// to the first or last frame. An empty lap yields 0.
func interpolateTime(frames []model.LapFrame, pct float64) float64 {
	n := len(frames)
	if n == 0 {
		return 0
	}
	if pct <= frames[0].LapDistPct {
		return frames[0].LapTime
	}
	if pct >= frames[n-1].LapDistPct {
		return frames[n-1].LapTime
	}
	// first frame strictly after pct
	idx := sort.Search(n, func(i int) bool { return frames[i].LapDistPct > pct })
	f0, f1 := frames[idx-1], frames[idx]
	span := f1.LapDistPct - f0.LapDistPct
	if span < bracketEps {
		return f0.LapTime
	}
	t := (pct - f0.LapDistPct) / span
	return f0.LapTime + t*(f1.LapTime-f0.LapTime)
}

// framesBetween returns the frames with from <= lap_dist_pct <= to, keeping
// their order.
func framesBetween(frames []model.LapFrame, from, to float64) []model.LapFrame {
	ret := make([]model.LapFrame, 0)
	for i := range frames {
		if from <= frames[i].LapDistPct && frames[i].LapDistPct <= to {
			ret = append(ret, frames[i])
		}
	}
	return ret
}
