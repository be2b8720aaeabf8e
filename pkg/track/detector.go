package track

import (
	"math"

	"github.com/mpapenbr/racecoach/pkg/model"
)

const degenerateEps = 1e-12

type DetectorConfig struct {
	// minimum |curvature| (1/m) for a point to be part of a corner
	CurvatureThreshold float64
	// half window of the curvature smoothing kernel
	SmoothWindow int
	// regions shorter than this fraction of the lap are discarded
	MinCornerFraction float64
	// a point belongs to the apex zone if |curvature| >= ApexFraction * peak
	ApexFraction float64
	// same direction regions closer than this lap fraction are merged
	MergeGap float64
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		CurvatureThreshold: 0.005,
		SmoothWindow:       5,
		MinCornerFraction:  0.005,
		ApexFraction:       0.7,
		MergeGap:           0.02,
	}
}

// Detector finds corners on a centerline and splits them into entry, apex
// and exit phases.
type Detector struct {
	cfg DetectorConfig
}

type region struct {
	start, end float64 // lap_dist_pct, inclusive
}

func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

func (d *Detector) Config() DetectorConfig {
	return d.cfg
}

// Detect returns the corners of centerline ordered by EntryPct.
// Centerlines with fewer than 3 points have no corners.
func (d *Detector) Detect(centerline []model.TrackPoint) []model.Corner {
	if len(centerline) < 3 {
		return []model.Corner{}
	}
	curvatures := d.Curvature(centerline)

	regions := d.findRegions(curvatures, centerline)
	regions = d.filterShort(regions)
	regions = d.mergeRegions(regions, curvatures, centerline)

	corners := make([]model.Corner, 0, len(regions))
	for _, r := range regions {
		if c, ok := d.buildCorner(len(corners)+1, r, centerline, curvatures); ok {
			corners = append(corners, c)
		}
	}
	return corners
}

// Curvature returns the smoothed signed curvature for each centerline point.
// Positive values are left turns.
func (d *Detector) Curvature(centerline []model.TrackPoint) []float64 {
	n := len(centerline)
	if n < 3 {
		return make([]float64, n)
	}
	r := newRing(centerline)
	raw := make([]float64, n)
	for i := range n {
		raw[i] = signedMengerCurvature(r.at(i-1), r.at(i), r.at(i+1))
	}
	return circularMovingAverage(raw, d.cfg.SmoothWindow)
}

// signedMengerCurvature is the curvature (1/R) of the circle through p1,p2,p3.
// Counterclockwise (left) turns are positive. Returns 0 for degenerate
// triangles.
func signedMengerCurvature(p1, p2, p3 model.TrackPoint) float64 {
	ax, ay := p2.X-p1.X, p2.Y-p1.Y
	bx, by := p3.X-p2.X, p3.Y-p2.Y
	cx, cy := p3.X-p1.X, p3.Y-p1.Y

	denom := math.Hypot(ax, ay) * math.Hypot(bx, by) * math.Hypot(cx, cy)
	if denom < degenerateEps {
		return 0
	}
	crossZ := ax*by - ay*bx
	return 2 * crossZ / denom
}

// findRegions collects runs of points above the threshold. A run ends when
// the curvature drops below the threshold or changes its sign, so an S-bend
// always produces two regions.
func (d *Detector) findRegions(curvatures []float64, centerline []model.TrackPoint) []region {
	n := len(curvatures)
	ret := []region{}
	i := 0
	for i < n {
		for i < n && math.Abs(curvatures[i]) <= d.cfg.CurvatureThreshold {
			i++
		}
		if i >= n {
			break
		}
		startIdx := i
		positive := curvatures[i] > 0
		for i < n {
			k := curvatures[i]
			if math.Abs(k) <= d.cfg.CurvatureThreshold || (k > 0) != positive {
				break
			}
			i++
		}
		startPct := centerline[startIdx].LapDistPct
		endPct := centerline[i-1].LapDistPct
		if endPct > startPct {
			ret = append(ret, region{start: startPct, end: endPct})
		}
	}
	return ret
}

func (d *Detector) filterShort(regions []region) []region {
	ret := make([]region, 0, len(regions))
	for _, r := range regions {
		if r.end-r.start >= d.cfg.MinCornerFraction {
			ret = append(ret, r)
		}
	}
	return ret
}

// regionDirection is the sign of the summed curvature of all points inside r.
// A sum within degenerateEps of zero resolves to right.
func regionDirection(r region, curvatures []float64, centerline []model.TrackPoint) model.Direction {
	total := 0.0
	for i := range centerline {
		if r.start <= centerline[i].LapDistPct && centerline[i].LapDistPct <= r.end {
			total += curvatures[i]
		}
	}
	if total > degenerateEps {
		return model.DirectionLeft
	}
	return model.DirectionRight
}

func (d *Detector) mergeRegions(
	regions []region,
	curvatures []float64,
	centerline []model.TrackPoint,
) []region {
	if len(regions) == 0 {
		return regions
	}
	merged := []region{regions[0]}
	for _, r := range regions[1:] {
		prev := &merged[len(merged)-1]
		gap := r.start - prev.end
		if gap < d.cfg.MergeGap &&
			regionDirection(*prev, curvatures, centerline) ==
				regionDirection(r, curvatures, centerline) {
			prev.end = r.end
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func (d *Detector) buildCorner(
	id int,
	r region,
	centerline []model.TrackPoint,
	curvatures []float64,
) (model.Corner, bool) {
	apexIdx := -1
	for i := range centerline {
		pct := centerline[i].LapDistPct
		if pct < r.start || pct > r.end {
			continue
		}
		if apexIdx < 0 || math.Abs(curvatures[i]) > math.Abs(curvatures[apexIdx]) {
			apexIdx = i
		}
	}
	if apexIdx < 0 {
		return model.Corner{}, false
	}
	apexPct := centerline[apexIdx].LapDistPct
	dir := model.DirectionLeft
	if curvatures[apexIdx] < 0 {
		dir = model.DirectionRight
	}

	limit := d.cfg.ApexFraction * math.Abs(curvatures[apexIdx])
	zoneFirst, zoneLast := -1, -1
	for i := range centerline {
		pct := centerline[i].LapDistPct
		if pct < r.start || pct > r.end || math.Abs(curvatures[i]) < limit {
			continue
		}
		if zoneFirst < 0 {
			zoneFirst = i
		}
		zoneLast = i
	}
	apexStart, apexEnd := apexPct, apexPct
	if zoneFirst >= 0 {
		apexStart = centerline[zoneFirst].LapDistPct
		apexEnd = centerline[zoneLast].LapDistPct
	}
	apexStart = math.Max(apexStart, r.start)
	apexEnd = math.Min(apexEnd, r.end)

	return model.Corner{
		ID:        id,
		EntryPct:  r.start,
		ApexPct:   apexPct,
		ExitPct:   r.end,
		Direction: dir,
		ApexStart: apexStart,
		ApexEnd:   apexEnd,
	}, true
}
