package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/cmd/util"
	"github.com/mpapenbr/racecoach/pkg/config"
	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/db/migrate"
	"github.com/mpapenbr/racecoach/pkg/importer"
	natspub "github.com/mpapenbr/racecoach/pkg/publish/nats"
	svc "github.com/mpapenbr/racecoach/pkg/service/analysis"
	"github.com/mpapenbr/racecoach/pkg/web"
)

type serverOptions struct {
	publish   bool
	noMigrate bool
	cfg       config.AnalysisConfig
	watch     watchOptions
}

type watchOptions struct {
	dir           string
	track         string
	car           string
	autoReference bool
}

func NewServerCmd() *cobra.Command {
	opts := serverOptions{cfg: config.DefaultAnalysisConfig()}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context(), &opts)
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"server-addr",
		"a",
		"localhost:8080",
		"HTTP server listen address")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"url of the NATS server, reports are published if set together with --publish")
	cmd.Flags().StringVar(&config.CornerCacheTTL,
		"corner-cache-ttl",
		"10m",
		"duration corner models are cached (0 disables the cache)")
	cmd.Flags().BoolVar(&opts.publish,
		"publish",
		false,
		"publish every computed report to NATS")
	cmd.Flags().BoolVar(&opts.noMigrate,
		"no-migrate",
		false,
		"do not apply database migrations on startup")
	cmd.Flags().StringVar(&opts.watch.dir,
		"watch-dir",
		"",
		"import CSV files written to this directory (session key is the file name)")
	cmd.Flags().StringVar(&opts.watch.track,
		"watch-track",
		"",
		"track of files imported from --watch-dir")
	cmd.Flags().StringVar(&opts.watch.car,
		"watch-car",
		"",
		"car of files imported from --watch-dir")
	cmd.Flags().BoolVar(&opts.watch.autoReference,
		"watch-auto-reference",
		false,
		"update the reference lap after each import from --watch-dir")
	util.AddAnalysisFlags(cmd, &opts.cfg)
	return cmd
}

//nolint:funlen // by design
func startServer(ctx context.Context, opts *serverOptions) error {
	sqlLogger := util.SetupLogger()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry := util.SetupTelemetry(ctx)
	if telemetry != nil {
		defer telemetry.Shutdown()
	}
	if opts.publish && config.NatsURL == "" {
		return fmt.Errorf("--publish requires --nats-url")
	}
	if err := util.WaitForRequiredServices(ctx); err != nil {
		return err
	}
	d, err := util.OpenDB(ctx, sqlLogger, telemetry)
	if err != nil {
		return err
	}
	defer d.Close()
	if !opts.noMigrate {
		if err := migrate.MigrateDB(d); err != nil {
			return err
		}
	}

	ttl, err := time.ParseDuration(config.CornerCacheTTL)
	if err != nil {
		log.Warn("Invalid corner cache duration. Disabling cache", log.ErrorField(err))
		ttl = 0
	}
	log.Debug("init with corner cache", log.Duration("ttl", ttl))
	svcOpts := []svc.Option{
		svc.WithConfig(opts.cfg),
		svc.WithCornerCache(ttl),
	}
	if config.NatsURL != "" {
		conn, err := natspub.Connect(config.NatsURL)
		if err != nil {
			return err
		}
		defer conn.Drain() //nolint:errcheck // shutting down anyway
		svcOpts = append(svcOpts, svc.WithPublisher(natspub.NewPublisher(conn)))
	}
	service, err := svc.NewService(d, svcOpts...)
	if err != nil {
		return err
	}
	if opts.watch.dir != "" {
		done, err := startWatcher(ctx, d, service, &opts.watch)
		if err != nil {
			return err
		}
		defer func() { <-done }()
	}

	server := web.NewServer(d, service,
		web.WithAddr(config.ServerAddr),
		web.WithPublish(opts.publish))
	log.Info("Starting server")
	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", log.ErrorField(err))
		return err
	}
	log.Info("Server terminated")
	return nil
}

// startWatcher imports CSV files from the watch directory until ctx is done.
// Cached track models are dropped after each import. The returned channel is
// closed once the watcher stopped.
func startWatcher(
	ctx context.Context,
	d *db.DB,
	service *svc.Service,
	opts *watchOptions,
	extra ...importer.WatcherOption,
) (<-chan struct{}, error) {
	wOpts := append([]importer.WatcherOption{
		importer.WithTrackCar(opts.track, opts.car),
		importer.WithAutoReference(opts.autoReference),
		importer.WithOnImport(func(ctx context.Context, sessionKey string) {
			service.InvalidateTrackModels(ctx)
		}),
	}, extra...)
	w, err := importer.NewWatcher(opts.dir, d, wOpts...)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", opts.dir, err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			log.Error("watcher stopped", log.ErrorField(err))
		}
	}()
	return done, nil
}
