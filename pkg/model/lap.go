package model

import "time"

// LapInfo is the bookkeeping entry of a completed lap.
type LapInfo struct {
	SessionKey  string  `json:"session_key"`
	LapNumber   int     `json:"lap_number"`
	Track       string  `json:"track"`
	Car         string  `json:"car"`
	LapTimeS    float64 `json:"lap_time_s"`
	IsReference bool    `json:"is_reference"`
}

// AnalysisRecord is a persisted analysis.
type AnalysisRecord struct {
	ID           int       `json:"id"`
	SessionKey   string    `json:"session_key"`
	LapNumber    int       `json:"lap_number"`
	RefLap       int       `json:"ref_lap"`
	Track        string    `json:"track"`
	Car          string    `json:"car"`
	TrackLengthM float64   `json:"track_length_m"`
	TotalDeltaS  float64   `json:"total_delta_s"`
	CreatedAt    time.Time `json:"created_at"`
	ReportJSON   string    `json:"-"`
}
