package model

import "math"

// ScaleFactor is used to store bounded [0,1] values as integers.
// A precision of 0.0001 exceeds the resolution of the sim sensors.
const ScaleFactor = 10_000

// LapFrame is one sampled instant of a lap as consumed by the analyzers.
type LapFrame struct {
	LapDistPct    float64 `json:"lap_dist_pct"`   // [0,1]
	LapTime       float64 `json:"lap_time"`       // seconds since start/finish
	Speed         float64 `json:"speed"`          // m/s
	Throttle      float64 `json:"throttle"`       // [0,1]
	Brake         float64 `json:"brake"`          // [0,1]
	SteeringAngle float64 `json:"steering_angle"` // radians, signed
}

// FrameRow is a telemetry frame as persisted by the storage layer.
type FrameRow struct {
	LapNumber     int
	Timestamp     float64
	Speed         float64
	Throttle      int // scaled by ScaleFactor
	Brake         int // scaled by ScaleFactor
	SteeringAngle float64
	Gear          int
	RPM           float64
	GForceLon     float64
	GForceLat     float64
	LapDistPct    int // scaled by ScaleFactor
	LapTime       float64
}

// LapFrameFromRow converts a stored row into a LapFrame.
//
// Clamping policy:
//
//	lap_dist_pct    descale, clamp to [0,1]
//	lap_time        clamp to >= 0
//	speed           clamp to >= 0
//	throttle, brake descale, clamp to [0,1]
//	steering_angle  unchanged
//
// NaN and Inf map to 0 for every field.
func LapFrameFromRow(r *FrameRow) LapFrame {
	return LapFrame{
		LapDistPct:    clampUnit(Descale(r.LapDistPct)),
		LapTime:       clampNonNegative(r.LapTime),
		Speed:         clampNonNegative(r.Speed),
		Throttle:      clampUnit(Descale(r.Throttle)),
		Brake:         clampUnit(Descale(r.Brake)),
		SteeringAngle: finiteOrZero(r.SteeringAngle),
	}
}

// LapFramesFromRows converts rows in order.
func LapFramesFromRows(rows []*FrameRow) []LapFrame {
	ret := make([]LapFrame, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, LapFrameFromRow(r))
	}
	return ret
}

// FrameRowFromLapFrame is the inverse of LapFrameFromRow for the fields
// a LapFrame carries.
func FrameRowFromLapFrame(lap int, f *LapFrame) *FrameRow {
	return &FrameRow{
		LapNumber:     lap,
		Timestamp:     f.LapTime,
		Speed:         f.Speed,
		Throttle:      Scale(f.Throttle),
		Brake:         Scale(f.Brake),
		SteeringAngle: f.SteeringAngle,
		LapDistPct:    Scale(f.LapDistPct),
		LapTime:       f.LapTime,
	}
}

func Scale(v float64) int {
	return int(math.Round(finiteOrZero(v) * ScaleFactor))
}

func Descale(v int) float64 {
	return float64(v) / ScaleFactor
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, finiteOrZero(v)))
}

func clampNonNegative(v float64) float64 {
	return math.Max(0, finiteOrZero(v))
}
