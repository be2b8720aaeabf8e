package model

// PointDelta is the time gap at one lap position. Positive means the user
// is slower than the reference.
type PointDelta struct {
	Pct   float64 `json:"pct"`
	Delta float64 `json:"delta"`
}

// CornerDelta summarizes the time gap for a single corner.
// All values are user minus reference in seconds.
type CornerDelta struct {
	CornerID   int     `json:"corner_id"`
	DeltaEntry float64 `json:"delta_entry"`
	DeltaApex  float64 `json:"delta_apex"`
	DeltaExit  float64 `json:"delta_exit"`
	// time lost (positive) or gained inside the corner: DeltaExit - DeltaEntry
	DeltaTotal float64 `json:"delta_total"`
}

type BrakingEvent struct {
	CornerID         int     `json:"corner_id"`
	BrakePointPct    float64 `json:"brake_point_pct"`
	RefBrakePointPct float64 `json:"ref_brake_point_pct"`
	// positive: user braked later than the reference
	BrakePointDeltaM float64 `json:"brake_point_delta_m"`
	PeakPressure     float64 `json:"peak_pressure"`
	TimeToPeakS      float64 `json:"time_to_peak_s"`
	// R² of the release phase, 1.0 smooth linear release, 0.0 step release
	TrailBrakeLinearity float64 `json:"trail_brake_linearity"`
	LockDetected        bool    `json:"lock_detected"`
}

type ThrottleEvent struct {
	CornerID             int     `json:"corner_id"`
	ThrottlePointPct     float64 `json:"throttle_point_pct"`
	TooEarlyFullThrottle bool    `json:"too_early_full_throttle"`
	OverlapCount         int     `json:"overlap_count"`
}

type ApexSpeedResult struct {
	CornerID       int     `json:"corner_id"`
	MinSpeedMps    float64 `json:"min_speed_mps"`
	RefMinSpeedMps float64 `json:"ref_min_speed_mps"`
	DeltaKph       float64 `json:"delta_kph"` // negative: user slower at apex
	TooSlow        bool    `json:"too_slow"`
}
