package util

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/config"
	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/db/postgres"
	"github.com/mpapenbr/racecoach/pkg/utils"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger configures the default logger from the log flags and returns
// the logger used for sql statements.
func SetupLogger() *log.Logger {
	var opts []log.Option
	opts = append(opts, log.WithCaller(true), log.AddCallerSkip(1))
	if config.LogFilter != "" {
		if filter, err := log.WithFilter(config.LogFilter); err == nil {
			opts = append(opts, filter)
		} else {
			log.Warn("Invalid log filter, ignoring", log.ErrorField(err))
		}
	}
	var logger, sqlLogger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel), opts...)
		sqlLogger = log.New(os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel), opts...)
	default:
		logger = log.DevLogger(os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel), opts...)
		sqlLogger = log.DevLogger(os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel), opts...)
	}
	log.ResetDefault(logger)
	return sqlLogger.Named("sql")
}

// SetupTelemetry starts the otel providers if telemetry is enabled.
// The returned value is nil otherwise.
func SetupTelemetry(ctx context.Context) *config.Telemetry {
	if !config.EnableTelemetry {
		return nil
	}
	log.Info("Enabling telemetry")
	telemetry, err := config.SetupTelemetry(ctx)
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return nil
	}
	return telemetry
}

// OpenDB connects to config.DB. Postgres statements are traced via otel if
// telemetry is active, otherwise they are logged by sqlLogger.
func OpenDB(ctx context.Context, sqlLogger *log.Logger, telemetry *config.Telemetry) (
	*db.DB, error,
) {
	pgTraceOption := postgres.WithTracer(sqlLogger, log.DebugLevel)
	if telemetry != nil {
		pgTraceOption = postgres.WithOtlpTracer()
	}
	return db.Open(ctx, config.DB, db.WithPostgresOptions(pgTraceOption))
}

// WaitForRequiredServices blocks until the database and the NATS server
// (if configured) are reachable.
func WaitForRequiredServices(ctx context.Context) error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	addrs := make([]string, 0, 2)
	if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
		addrs = append(addrs, addr)
	}
	if addr := utils.ExtractFromNatsURL(config.NatsURL); addr != "" {
		addrs = append(addrs, addr)
	}
	errs := make([]error, len(addrs))
	wg := sync.WaitGroup{}
	for i, addr := range addrs {
		wg.Go(func() {
			errs[i] = utils.WaitForTCP(ctx, addr, timeout)
		})
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	log.Debug("Required services are available")
	return nil
}

// AddAnalysisFlags exposes the tunables of cfg as flags of cmd.
func AddAnalysisFlags(cmd *cobra.Command, cfg *config.AnalysisConfig) {
	f := cmd.Flags()
	f.IntVar(&cfg.Extractor.NumBins, "num-bins", cfg.Extractor.NumBins,
		"number of centerline buckets")
	f.IntVar(&cfg.Extractor.SmoothWindow, "centerline-smooth", cfg.Extractor.SmoothWindow,
		"half window of the centerline smoothing")
	f.Float64Var(&cfg.Detector.CurvatureThreshold, "curvature-threshold",
		cfg.Detector.CurvatureThreshold, "minimum curvature (1/m) of a corner")
	f.IntVar(&cfg.Detector.SmoothWindow, "curvature-smooth", cfg.Detector.SmoothWindow,
		"half window of the curvature smoothing")
	f.Float64Var(&cfg.Detector.MinCornerFraction, "min-corner-fraction",
		cfg.Detector.MinCornerFraction, "minimum corner length as lap fraction")
	f.Float64Var(&cfg.Detector.ApexFraction, "apex-fraction", cfg.Detector.ApexFraction,
		"fraction of the peak curvature that belongs to the apex zone")
	f.Float64Var(&cfg.Detector.MergeGap, "merge-gap", cfg.Detector.MergeGap,
		"same direction corners closer than this lap fraction are merged")
	f.IntVar(&cfg.Delta.GridSize, "delta-grid", cfg.Delta.GridSize,
		"number of points of the delta trace")
	f.Float64Var(&cfg.Braking.BrakeThreshold, "brake-threshold", cfg.Braking.BrakeThreshold,
		"brake values above count as braking")
	f.Float64Var(&cfg.Braking.LockDecelThreshold, "lock-decel", cfg.Braking.LockDecelThreshold,
		"deceleration (m/s²) considered a wheel lock")
	f.Float64Var(&cfg.Throttle.ThrottleThreshold, "throttle-threshold",
		cfg.Throttle.ThrottleThreshold, "throttle values above count as applied")
	f.Float64Var(&cfg.Throttle.FullThrottleSteerThreshold, "full-throttle-steer",
		cfg.Throttle.FullThrottleSteerThreshold,
		"steering angle (rad) above which full throttle is too early")
	f.Float64Var(&cfg.Apex.TooSlowThresholdKph, "apex-too-slow", cfg.Apex.TooSlowThresholdKph,
		"apex speed deficit (km/h) that is flagged")
}
