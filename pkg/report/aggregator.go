package report

import (
	"sort"

	"github.com/samber/lo"

	"github.com/mpapenbr/racecoach/pkg/model"
)

// LapMeta identifies the analyzed lap.
type LapMeta struct {
	SessionKey   string
	LapNumber    int
	RefLap       int
	Track        string
	Car          string
	TrackLengthM float64
	TotalDeltaS  float64
}

type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate merges the analyzer results by corner id. Every corner delta
// yields one CornerReport, the other results are optional.
// Corners are sorted by DeltaTotal, largest loss first. Corners with equal
// DeltaTotal keep the order of deltas.
func (a *Aggregator) Aggregate(
	meta LapMeta,
	deltas []model.CornerDelta,
	braking []model.BrakingEvent,
	throttle []model.ThrottleEvent,
	apex []model.ApexSpeedResult,
) *model.LapReport {
	brakingByID := lo.KeyBy(braking, func(e model.BrakingEvent) int { return e.CornerID })
	throttleByID := lo.KeyBy(throttle, func(e model.ThrottleEvent) int { return e.CornerID })
	apexByID := lo.KeyBy(apex, func(r model.ApexSpeedResult) int { return r.CornerID })

	corners := make([]model.CornerReport, len(deltas))
	for i, d := range deltas {
		corners[i] = model.CornerReport{
			CornerID:   d.CornerID,
			DeltaEntry: d.DeltaEntry,
			DeltaApex:  d.DeltaApex,
			DeltaExit:  d.DeltaExit,
			DeltaTotal: d.DeltaTotal,
			Braking:    lookup(brakingByID, d.CornerID),
			Throttle:   lookup(throttleByID, d.CornerID),
			ApexSpeed:  lookup(apexByID, d.CornerID),
		}
	}
	sort.SliceStable(corners, func(i, j int) bool {
		return corners[i].DeltaTotal > corners[j].DeltaTotal
	})

	return &model.LapReport{
		SessionKey:   meta.SessionKey,
		LapNumber:    meta.LapNumber,
		RefLap:       meta.RefLap,
		Track:        meta.Track,
		Car:          meta.Car,
		TrackLengthM: meta.TrackLengthM,
		TotalDeltaS:  meta.TotalDeltaS,
		Corners:      corners,
	}
}

// SumCornerDeltas is the time lost (or gained) inside all corners.
func SumCornerDeltas(deltas []model.CornerDelta) float64 {
	return lo.SumBy(deltas, func(d model.CornerDelta) float64 { return d.DeltaTotal })
}

func lookup[T any](m map[int]T, id int) *T {
	if v, ok := m[id]; ok {
		return &v
	}
	return nil
}
