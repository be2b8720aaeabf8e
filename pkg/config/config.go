package config

import (
	"github.com/mpapenbr/racecoach/pkg/analysis"
	"github.com/mpapenbr/racecoach/pkg/track"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                string // connection string for the database (sqlite path or postgres url)
	LogLevel          string // sets the log level (zap log level values)
	SQLLogLevel       string // sets the log level for sql subsystem
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules, e.g. "*:* -debug:sql*"
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry, "stdout" prints to console
	NatsURL           string // url of the NATS server, empty disables publishing
	ServerAddr        string // listen addr for the HTTP API
	CornerCacheTTL    string // duration corner models are kept in the cache
	WaitForServices   string // duration to wait for database and NATS to become reachable
)

// AnalysisConfig bundles the tunables of the analysis pipeline.
type AnalysisConfig struct {
	Extractor track.ExtractorConfig
	Detector  track.DetectorConfig
	Delta     analysis.DeltaConfig
	Braking   analysis.BrakingConfig
	Throttle  analysis.ThrottleConfig
	Apex      analysis.ApexConfig
}

func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Extractor: track.DefaultExtractorConfig(),
		Detector:  track.DefaultDetectorConfig(),
		Delta:     analysis.DefaultDeltaConfig(),
		Braking:   analysis.DefaultBrakingConfig(),
		Throttle:  analysis.DefaultThrottleConfig(),
		Apex:      analysis.DefaultApexConfig(),
	}
}
