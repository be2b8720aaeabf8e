package model

import "fmt"

type Direction string

const (
	DirectionLeft  Direction = "L"
	DirectionRight Direction = "R"
)

type Phase int

const (
	PhaseNone Phase = iota
	PhaseEntry
	PhaseApex
	PhaseExit
)

func (p Phase) String() string {
	switch p {
	case PhaseEntry:
		return "entry"
	case PhaseApex:
		return "apex"
	case PhaseExit:
		return "exit"
	default:
		return "none"
	}
}

// TrackPoint is a single sample of the track in planar world coordinates.
// Units of X and Y are whatever the source provides (usually meters).
type TrackPoint struct {
	LapDistPct float64 `json:"lap_dist_pct"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Corner is a detected turn divided into entry, apex and exit phases.
//
//	EntryPct --[entry]-- ApexStart --[apex]-- ApexEnd --[exit]-- ExitPct
//
// The phases are adjacent and cover the whole corner.
type Corner struct {
	ID        int       `json:"id"`
	EntryPct  float64   `json:"entry_pct"`
	ApexPct   float64   `json:"apex_pct"`
	ExitPct   float64   `json:"exit_pct"`
	Direction Direction `json:"direction"`
	ApexStart float64   `json:"apex_start"`
	ApexEnd   float64   `json:"apex_end"`
}

func (c *Corner) Contains(pct float64) bool {
	return c.EntryPct <= pct && pct <= c.ExitPct
}

// Phase returns the phase pct belongs to. Boundaries belong to the later phase
// except for ExitPct itself.
func (c *Corner) Phase(pct float64) Phase {
	switch {
	case !c.Contains(pct):
		return PhaseNone
	case pct < c.ApexStart:
		return PhaseEntry
	case pct < c.ApexEnd || (c.ApexStart == c.ApexEnd && pct == c.ApexEnd):
		return PhaseApex
	default:
		return PhaseExit
	}
}

// Validate checks the ordering of the phase boundaries
func (c *Corner) Validate() error {
	if !(c.EntryPct <= c.ApexStart &&
		c.ApexStart <= c.ApexPct &&
		c.ApexPct <= c.ApexEnd &&
		c.ApexEnd <= c.ExitPct) {
		return fmt.Errorf("corner %d: phase bounds out of order "+
			"(entry=%.4f apexStart=%.4f apex=%.4f apexEnd=%.4f exit=%.4f)",
			c.ID, c.EntryPct, c.ApexStart, c.ApexPct, c.ApexEnd, c.ExitPct)
	}
	if c.Direction != DirectionLeft && c.Direction != DirectionRight {
		return fmt.Errorf("corner %d: invalid direction %q", c.ID, c.Direction)
	}
	return nil
}
