package web

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/db"
	svc "github.com/mpapenbr/racecoach/pkg/service/analysis"
)

type (
	Option func(*Server)
	Server struct {
		db      *db.DB
		service *svc.Service
		addr    string
		publish bool
		l       *log.Logger
	}
)

func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

// WithPublish publishes every report computed via the API.
func WithPublish(publish bool) Option {
	return func(s *Server) {
		s.publish = publish
	}
}

func NewServer(d *db.DB, service *svc.Service, opts ...Option) *Server {
	ret := &Server{
		db:      d,
		service: service,
		addr:    "localhost:8080",
		l:       log.Default().Named("web"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Handler returns the API routes including CORS and h2c support.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/analyze", s.analyze)
	mux.HandleFunc("GET /api/analyses", s.listAnalyses)
	mux.HandleFunc("GET /api/analyses/{id}", s.getAnalysis)
	mux.HandleFunc("GET /api/laps", s.listLaps)
	mux.HandleFunc("PUT /api/reference", s.setReference)
	mux.HandleFunc("GET /api/track", s.trackModel)
	return h2c.NewHandler(newCORS().Handler(s.logRequests(mux)), &http2.Server{})
}

// Start serves the API until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		s.l.Info("Starting HTTP server", log.String("addr", s.addr))
		errChan <- server.ListenAndServe()
	}()
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.l.Debug("request",
			log.String("method", r.Method),
			log.String("path", r.URL.Path),
			log.Duration("duration", time.Since(start)))
	})
}

func newCORS() *cors.Cors {
	// the API is meant for local tools, any origin is accepted
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
