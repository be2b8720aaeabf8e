// Package sampledata generates synthetic laps for tests.
package sampledata

import (
	"math"
	"math/rand/v2"

	"github.com/mpapenbr/racecoach/pkg/model"
)

// CircleLap samples n points on a circle around the origin.
// Gaussian noise with the given standard deviation is added to x and y,
// using a generator seeded with seed.
func CircleLap(n int, radius, noise float64, seed uint64) []model.TrackPoint {
	rnd := rand.New(rand.NewPCG(seed, seed^0x5eed))
	ret := make([]model.TrackPoint, n)
	for i := range n {
		pct := float64(i) / float64(n)
		angle := 2 * math.Pi * pct
		ret[i] = model.TrackPoint{
			LapDistPct: pct,
			X:          radius*math.Cos(angle) + noise*rnd.NormFloat64(),
			Y:          radius*math.Sin(angle) + noise*rnd.NormFloat64(),
		}
	}
	return ret
}

// Arc is a section of constant curvature between two lap positions.
type Arc struct {
	From, To  float64 // lap_dist_pct
	Curvature float64 // 1/m, positive turns left
}

// Centerline builds an open polyline of n points with spacing ds by
// integrating the heading. Outside of arcs the line runs straight.
func Centerline(n int, ds float64, arcs ...Arc) []model.TrackPoint {
	ret := make([]model.TrackPoint, n)
	x, y, heading := 0.0, 0.0, 0.0
	for i := range n {
		pct := float64(i) / float64(n)
		ret[i] = model.TrackPoint{LapDistPct: pct, X: x, Y: y}
		heading += curvatureAt(pct, arcs) * ds
		x += ds * math.Cos(heading)
		y += ds * math.Sin(heading)
	}
	return ret
}

func curvatureAt(pct float64, arcs []Arc) float64 {
	for _, a := range arcs {
		if a.From <= pct && pct < a.To {
			return a.Curvature
		}
	}
	return 0
}

// BrakeProfile describes a braking event by lap positions.
// The brake ramps 0 -> 1 between Start and Peak, then releases 1 -> 0
// until ReleaseEnd.
type BrakeProfile struct {
	Start      float64
	Peak       float64
	ReleaseEnd float64
}

// ApproachLap generates numFrames frames with a single braking event.
// lap_time runs from 0 to 60s and speed drops linearly from 60 m/s to 30 m/s.
// When lockAt >= 0 the speed of that frame drops by 15 m/s.
func ApproachLap(p BrakeProfile, numFrames, lockAt int) []model.LapFrame {
	ret := make([]model.LapFrame, numFrames)
	for i := range numFrames {
		pct := float64(i) / float64(numFrames-1)
		var brake float64
		switch {
		case pct < p.Start:
			brake = 0
		case pct <= p.Peak:
			brake = (pct - p.Start) / math.Max(p.Peak-p.Start, 1e-9)
		case pct <= p.ReleaseEnd:
			brake = 1 - (pct-p.Peak)/math.Max(p.ReleaseEnd-p.Peak, 1e-9)
		}
		speed := math.Max(0, 60-pct*30)
		if i == lockAt {
			speed = math.Max(0, speed-15)
		}
		ret[i] = model.LapFrame{
			LapDistPct:    pct,
			LapTime:       pct * 60,
			Speed:         speed,
			Brake:         brake,
			SteeringAngle: 0.05,
		}
	}
	return ret
}

// StepReleaseLap is like ApproachLap but holds the brake at 1 after the peak
// and drops it to 0 instantly at ReleaseEnd.
func StepReleaseLap(p BrakeProfile, numFrames int) []model.LapFrame {
	ret := make([]model.LapFrame, numFrames)
	for i := range numFrames {
		pct := float64(i) / float64(numFrames-1)
		var brake float64
		switch {
		case pct < p.Start:
			brake = 0
		case pct <= p.Peak:
			brake = (pct - p.Start) / math.Max(p.Peak-p.Start, 1e-9)
		case pct < p.ReleaseEnd:
			brake = 1
		}
		ret[i] = model.LapFrame{
			LapDistPct:    pct,
			LapTime:       pct * 60,
			Speed:         math.Max(0, 60-pct*30),
			Brake:         brake,
			SteeringAngle: 0.05,
		}
	}
	return ret
}

// UniformLap generates numFrames frames of a constant speed lap that takes
// lapTime seconds.
func UniformLap(numFrames int, lapTime, speed float64) []model.LapFrame {
	ret := make([]model.LapFrame, numFrames)
	for i := range numFrames {
		pct := float64(i) / float64(numFrames-1)
		ret[i] = model.LapFrame{
			LapDistPct: pct,
			LapTime:    pct * lapTime,
			Speed:      speed,
			Throttle:   1,
		}
	}
	return ret
}

// WithFrames returns a copy of frames where fn has been applied to every
// frame.
func WithFrames(frames []model.LapFrame, fn func(i int, f *model.LapFrame)) []model.LapFrame {
	ret := make([]model.LapFrame, len(frames))
	copy(ret, frames)
	for i := range ret {
		fn(i, &ret[i])
	}
	return ret
}

// LapPositions converts a centerline into the position samples of a lap,
// shifted by offset in x and y.
func LapPositions(centerline []model.TrackPoint, offset float64) []model.TrackPoint {
	ret := make([]model.TrackPoint, len(centerline))
	for i, p := range centerline {
		ret[i] = model.TrackPoint{LapDistPct: p.LapDistPct, X: p.X + offset, Y: p.Y + offset}
	}
	return ret
}
