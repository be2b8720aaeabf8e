//nolint:whitespace //can't make both the linter and editor happy :(
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/racecoach/log"
	core "github.com/mpapenbr/racecoach/pkg/analysis"
	"github.com/mpapenbr/racecoach/pkg/config"
	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/report"
	"github.com/mpapenbr/racecoach/pkg/repository"
	analysisrepo "github.com/mpapenbr/racecoach/pkg/repository/analysis"
	"github.com/mpapenbr/racecoach/pkg/repository/lap"
	"github.com/mpapenbr/racecoach/pkg/repository/telemetry"
	"github.com/mpapenbr/racecoach/pkg/track"
	"github.com/mpapenbr/racecoach/pkg/utils/cache"
	"github.com/mpapenbr/racecoach/pkg/utils/cache/loadercache"
)

// DefaultTrackLengthM is used by the callers if no track length is given.
const DefaultTrackLengthM = 4000.0

var (
	ErrNoFrames    = errors.New("no telemetry frames")
	ErrNoPositions = errors.New("no track positions")
	ErrNoCorners   = errors.New("no corners detected")
)

var (
	tracer = otel.Tracer("racecoach")
	meter  = otel.Meter("racecoach")
)

type (
	// Publisher receives every computed report when publishing is requested.
	Publisher interface {
		PublishReport(ctx context.Context, r *model.LapReport) error
	}
	// LapRef references a lap of a session.
	LapRef struct {
		SessionKey string `json:"session_key"`
		Lap        int    `json:"lap"`
	}
	Request struct {
		SessionKey string
		Lap        int
		// RefSessionKey defaults to SessionKey
		RefSessionKey string
		// RefLap <= 0 uses the stored reference lap of Track and Car
		RefLap       int
		Track        string
		Car          string
		TrackLengthM float64
		Save         bool
		Publish      bool
	}
	Result struct {
		Report      *model.LapReport
		Record      *model.AnalysisRecord // set if the report was saved
		Corners     []model.Corner
		PointDeltas []model.PointDelta
	}
	// TrackModel is the geometry derived from one or more laps.
	TrackModel struct {
		Laps       []LapRef           `json:"laps"`
		Centerline []model.TrackPoint `json:"centerline"`
		Curvature  []float64          `json:"curvature"` // smoothed, one per centerline point
		Corners    []model.Corner     `json:"corners"`
	}
)

type (
	Option  func(*Service)
	Service struct {
		conn       repository.Querier
		cfg        config.AnalysisConfig
		publisher  Publisher
		l          *log.Logger
		cacheTTL   time.Duration
		models     cache.Cache[string, TrackModel]
		aggregator *report.Aggregator
		runs       metric.Int64Counter
		duration   metric.Float64Histogram
	}
)

func WithConfig(cfg config.AnalysisConfig) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.l = l
	}
}

// WithCornerCache keeps track models for ttl. A ttl <= 0 disables the cache.
func WithCornerCache(ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

func NewService(conn repository.Querier, opts ...Option) (*Service, error) {
	ret := &Service{
		conn:       conn,
		cfg:        config.DefaultAnalysisConfig(),
		l:          log.Default().Named("service.analysis"),
		aggregator: report.NewAggregator(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if _, err := track.NewExtractor(ret.cfg.Extractor); err != nil {
		return nil, err
	}
	if ret.cacheTTL > 0 {
		ret.models = loadercache.New(
			loadercache.WithLoader[string, TrackModel](ret.loadTrackModel),
			loadercache.WithExpiration[string, TrackModel](ret.cacheTTL),
			loadercache.WithLogger[string, TrackModel](ret.l.Named("cache")),
		)
	}
	var err error
	if ret.runs, err = meter.Int64Counter("analysis_runs",
		metric.WithDescription("number of lap analyses")); err != nil {
		return nil, err
	}
	if ret.duration, err = meter.Float64Histogram("analysis_duration",
		metric.WithDescription("duration of a lap analysis"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return ret, nil
}

// Run compares a lap against its reference lap.
//
//nolint:funlen // pipeline steps are easier to follow in one place
func (s *Service) Run(ctx context.Context, req *Request) (ret *Result, err error) {
	ctx, span := tracer.Start(ctx, "analyze lap",
		trace.WithAttributes(
			attribute.String("session", req.SessionKey),
			attribute.Int("lap", req.Lap)))
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		attrs := metric.WithAttributes(attribute.String("status", status))
		s.runs.Add(ctx, 1, attrs)
		s.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		span.End()
	}()

	user := LapRef{SessionKey: req.SessionKey, Lap: req.Lap}
	ref, err := s.resolveReference(ctx, req)
	if err != nil {
		return nil, err
	}
	s.l.Debug("running analysis",
		log.String("session", user.SessionKey), log.Int("lap", user.Lap),
		log.String("refSession", ref.SessionKey), log.Int("refLap", ref.Lap))

	userFrames, err := s.loadFrames(ctx, user)
	if err != nil {
		return nil, err
	}
	refFrames, err := s.loadFrames(ctx, ref)
	if err != nil {
		return nil, err
	}

	tm, err := s.TrackModel(ctx, []LapRef{user, ref})
	if err != nil {
		return nil, err
	}
	if len(tm.Corners) == 0 {
		return nil, ErrNoCorners
	}

	results, err := s.analyze(ctx, userFrames, refFrames, tm.Corners, req.TrackLengthM)
	if err != nil {
		return nil, err
	}

	delta := core.NewDeltaCalculator(s.cfg.Delta)
	lapReport := s.aggregator.Aggregate(report.LapMeta{
		SessionKey:   req.SessionKey,
		LapNumber:    req.Lap,
		RefLap:       ref.Lap,
		Track:        req.Track,
		Car:          req.Car,
		TrackLengthM: req.TrackLengthM,
		TotalDeltaS:  delta.TotalDelta(userFrames, refFrames),
	}, results.deltas, results.braking, results.throttle, results.apex)

	ret = &Result{
		Report:      lapReport,
		Corners:     tm.Corners,
		PointDeltas: delta.ComputePointDeltas(userFrames, refFrames),
	}
	if req.Save {
		if ret.Record, err = analysisrepo.Save(ctx, s.conn, lapReport); err != nil {
			return nil, fmt.Errorf("save analysis: %w", err)
		}
	}
	if req.Publish && s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, lapReport); err != nil {
			return nil, fmt.Errorf("publish analysis: %w", err)
		}
	}
	s.l.Info("analysis done",
		log.String("session", req.SessionKey), log.Int("lap", req.Lap),
		log.Int("corners", len(lapReport.Corners)),
		log.Float64("totalDelta", lapReport.TotalDeltaS))
	return ret, nil
}

// TrackModel returns centerline and corners built from the positions of laps.
// Laps without positions are skipped. ErrNoPositions is returned if none of
// the laps has positions.
func (s *Service) TrackModel(ctx context.Context, laps []LapRef) (*TrackModel, error) {
	if s.models != nil {
		return s.models.Get(ctx, cacheKey(laps))
	}
	return s.buildTrackModel(ctx, laps)
}

// InvalidateTrackModels drops all cached track models.
// Call it after positions of stored laps changed.
func (s *Service) InvalidateTrackModels(ctx context.Context) {
	if s.models == nil {
		return
	}
	s.models.InvalidateAll(ctx)
	s.l.Debug("track models invalidated")
}

func (s *Service) loadTrackModel(ctx context.Context, key string) (*TrackModel, error) {
	laps, err := parseCacheKey(key)
	if err != nil {
		return nil, err
	}
	return s.buildTrackModel(ctx, laps)
}

func (s *Service) buildTrackModel(ctx context.Context, laps []LapRef) (*TrackModel, error) {
	ctx, span := tracer.Start(ctx, "build track model")
	defer span.End()

	positions := make([][]model.TrackPoint, 0, len(laps))
	for _, l := range laps {
		points, err := telemetry.LoadTrackPoints(ctx, s.conn, l.SessionKey, l.Lap)
		if err != nil {
			return nil, fmt.Errorf("load positions %s/%d: %w", l.SessionKey, l.Lap, err)
		}
		if len(points) > 0 {
			positions = append(positions, points)
		}
	}
	if len(positions) == 0 {
		return nil, ErrNoPositions
	}
	extractor, err := track.NewExtractor(s.cfg.Extractor)
	if err != nil {
		return nil, err
	}
	centerline, err := extractor.Extract(positions)
	if err != nil {
		return nil, err
	}
	detector := track.NewDetector(s.cfg.Detector)
	corners := detector.Detect(centerline)
	s.l.Debug("track model built",
		log.Int("points", len(centerline)), log.Int("corners", len(corners)))
	return &TrackModel{
		Laps:       laps,
		Centerline: centerline,
		Curvature:  detector.Curvature(centerline),
		Corners:    corners,
	}, nil
}

func (s *Service) resolveReference(ctx context.Context, req *Request) (LapRef, error) {
	if req.RefLap > 0 {
		refSession := req.RefSessionKey
		if refSession == "" {
			refSession = req.SessionKey
		}
		return LapRef{SessionKey: refSession, Lap: req.RefLap}, nil
	}
	info, err := lap.GetReference(ctx, s.conn, req.Track, req.Car)
	if err != nil {
		return LapRef{}, fmt.Errorf("reference lap: %w", err)
	}
	return LapRef{SessionKey: info.SessionKey, Lap: info.LapNumber}, nil
}

func (s *Service) loadFrames(ctx context.Context, l LapRef) ([]model.LapFrame, error) {
	rows, err := telemetry.LoadLap(ctx, s.conn, l.SessionKey, l.Lap)
	if err != nil {
		return nil, fmt.Errorf("load frames %s/%d: %w", l.SessionKey, l.Lap, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s/%d: %w", l.SessionKey, l.Lap, ErrNoFrames)
	}
	return model.LapFramesFromRows(rows), nil
}

type analyzerResults struct {
	deltas   []model.CornerDelta
	braking  []model.BrakingEvent
	throttle []model.ThrottleEvent
	apex     []model.ApexSpeedResult
}

// analyze runs the four analyzers concurrently. Each one stops at the next
// corner once ctx is done.
func (s *Service) analyze(
	ctx context.Context,
	user, ref []model.LapFrame,
	corners []model.Corner,
	trackLengthM float64,
) (*analyzerResults, error) {
	_, span := tracer.Start(ctx, "run analyzers",
		trace.WithAttributes(attribute.Int("corners", len(corners))))
	defer span.End()

	delta := core.NewDeltaCalculator(s.cfg.Delta)
	braking := core.NewBrakingAnalyzer(s.cfg.Braking)
	throttle := core.NewThrottleAnalyzer(s.cfg.Throttle)
	apex := core.NewApexSpeedAnalyzer(s.cfg.Apex)

	n := len(corners)
	ret := &analyzerResults{
		deltas:   make([]model.CornerDelta, 0, n),
		braking:  make([]model.BrakingEvent, 0, n),
		throttle: make([]model.ThrottleEvent, 0, n),
		apex:     make([]model.ApexSpeedResult, 0, n),
	}
	var wg sync.WaitGroup
	wg.Go(func() {
		for i := range corners {
			if ctx.Err() != nil {
				return
			}
			ret.deltas = append(ret.deltas, delta.CornerDelta(user, ref, &corners[i]))
		}
	})
	wg.Go(func() {
		for i := range corners {
			if ctx.Err() != nil {
				return
			}
			ret.braking = append(ret.braking,
				braking.AnalyzeCorner(user, ref, &corners[i], trackLengthM))
		}
	})
	wg.Go(func() {
		for i := range corners {
			if ctx.Err() != nil {
				return
			}
			ret.throttle = append(ret.throttle, throttle.AnalyzeCorner(user, ref, &corners[i]))
		}
	})
	wg.Go(func() {
		for i := range corners {
			if ctx.Err() != nil {
				return
			}
			ret.apex = append(ret.apex, apex.AnalyzeCorner(user, ref, &corners[i]))
		}
	})
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// cacheKey encodes laps as a json array. Session keys are free text.
func cacheKey(laps []LapRef) string {
	data, err := json.Marshal(laps)
	if err != nil {
		// LapRef always marshals
		panic(err)
	}
	return string(data)
}

func parseCacheKey(key string) ([]LapRef, error) {
	var ret []LapRef
	if err := json.Unmarshal([]byte(key), &ret); err != nil {
		return nil, fmt.Errorf("invalid cache key %q: %w", key, err)
	}
	return ret, nil
}
