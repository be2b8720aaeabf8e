package model

// CornerReport combines the analyzer results of one corner.
// Analyzer results are optional.
type CornerReport struct {
	CornerID   int              `json:"corner_id"`
	DeltaEntry float64          `json:"delta_entry"`
	DeltaApex  float64          `json:"delta_apex"`
	DeltaExit  float64          `json:"delta_exit"`
	DeltaTotal float64          `json:"delta_total"`
	Braking    *BrakingEvent    `json:"braking,omitempty"`
	Throttle   *ThrottleEvent   `json:"throttle,omitempty"`
	ApexSpeed  *ApexSpeedResult `json:"apex_speed,omitempty"`
}

// LapReport is the result of comparing one lap against a reference lap.
// Corners are sorted by DeltaTotal, largest time loss first.
type LapReport struct {
	SessionKey   string         `json:"session_key"`
	LapNumber    int            `json:"lap_number"`
	RefLap       int            `json:"ref_lap"`
	Track        string         `json:"track"`
	Car          string         `json:"car"`
	TrackLengthM float64        `json:"track_length_m"`
	TotalDeltaS  float64        `json:"total_delta_s"`
	Corners      []CornerReport `json:"corners"`
}
