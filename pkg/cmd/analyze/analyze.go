package analyze

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/cmd/util"
	"github.com/mpapenbr/racecoach/pkg/config"
	"github.com/mpapenbr/racecoach/pkg/model"
	natspub "github.com/mpapenbr/racecoach/pkg/publish/nats"
	svc "github.com/mpapenbr/racecoach/pkg/service/analysis"
)

type analyzeOptions struct {
	req        svc.Request
	jsonOutput bool
	cfg        config.AnalysisConfig
}

func NewAnalyzeCmd() *cobra.Command {
	opts := analyzeOptions{cfg: config.DefaultAnalysisConfig()}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "compares a lap against a reference lap",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, &opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.req.SessionKey, "session", "", "session key of the lap")
	f.IntVar(&opts.req.Lap, "lap", 0, "lap number")
	f.StringVar(&opts.req.RefSessionKey, "ref-session", "",
		"session key of the reference lap (default: --session)")
	f.IntVar(&opts.req.RefLap, "ref-lap", 0,
		"reference lap number (default: stored reference of track and car)")
	f.StringVar(&opts.req.Track, "track", "", "track name")
	f.StringVar(&opts.req.Car, "car", "", "car name")
	f.Float64Var(&opts.req.TrackLengthM, "track-length-m", svc.DefaultTrackLengthM,
		"track length in meters")
	f.BoolVar(&opts.req.Save, "save", false, "store the report")
	f.BoolVar(&opts.req.Publish, "publish", false, "publish the report to NATS")
	f.BoolVar(&opts.jsonOutput, "json", false, "print the report as JSON")
	f.StringVar(&config.NatsURL, "nats-url", "", "url of the NATS server")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("lap")
	util.AddAnalysisFlags(cmd, &opts.cfg)
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	sqlLogger := util.SetupLogger()
	ctx := cmd.Context()
	telemetry := util.SetupTelemetry(ctx)
	if telemetry != nil {
		defer telemetry.Shutdown()
	}
	if err := validateOptions(opts); err != nil {
		return err
	}
	if err := util.WaitForRequiredServices(ctx); err != nil {
		return err
	}
	d, err := util.OpenDB(ctx, sqlLogger, telemetry)
	if err != nil {
		return err
	}
	defer d.Close()

	svcOpts := []svc.Option{svc.WithConfig(opts.cfg)}
	if opts.req.Publish {
		conn, err := natspub.Connect(config.NatsURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		svcOpts = append(svcOpts, svc.WithPublisher(natspub.NewPublisher(conn)))
	}
	service, err := svc.NewService(d, svcOpts...)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := service.Run(ctx, &opts.req)
	if err != nil {
		return err
	}
	log.Debug("analysis finished", log.Duration("duration", time.Since(start)))
	if res.Record != nil {
		log.Info("Report saved", log.Int("id", res.Record.ID))
	}
	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res.Report)
	}
	return printReport(cmd.OutOrStdout(), res.Report, res.Corners)
}

func validateOptions(opts *analyzeOptions) error {
	if opts.req.TrackLengthM <= 0 {
		return fmt.Errorf("--track-length-m must be > 0, got %v", opts.req.TrackLengthM)
	}
	if opts.req.Publish && config.NatsURL == "" {
		return fmt.Errorf("--publish requires --nats-url")
	}
	return nil
}

// printReport writes one line per corner, largest time loss first.
func printReport(w io.Writer, r *model.LapReport, corners []model.Corner) error {
	byID := lo.KeyBy(corners, func(c model.Corner) int { return c.ID })
	fmt.Fprintf(w, "%s/%s lap %d vs lap %d: %+.3fs\n\n",
		r.Track, r.Car, r.LapNumber, r.RefLap, r.TotalDeltaS)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "corner\tdir\tentry\tdelta\tbrake Δm\tlock\ttrail\tthrottle\tapex Δkm/h")
	for i := range r.Corners {
		c := &r.Corners[i]
		corner := byID[c.CornerID]
		brakeDelta, lock, trail := "-", "-", "-"
		if c.Braking != nil {
			brakeDelta = fmt.Sprintf("%+.1f", c.Braking.BrakePointDeltaM)
			lock = fmt.Sprintf("%t", c.Braking.LockDetected)
			trail = fmt.Sprintf("%.2f", c.Braking.TrailBrakeLinearity)
		}
		throttle := "-"
		if c.Throttle != nil {
			throttle = fmt.Sprintf("%.3f", c.Throttle.ThrottlePointPct)
			if c.Throttle.TooEarlyFullThrottle {
				throttle += " (early)"
			}
		}
		apex := "-"
		if c.ApexSpeed != nil {
			apex = fmt.Sprintf("%+.1f", c.ApexSpeed.DeltaKph)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%+.3f\t%s\t%s\t%s\t%s\t%s\n",
			c.CornerID, corner.Direction, corner.EntryPct, c.DeltaTotal,
			brakeDelta, lock, trail, throttle, apex)
	}
	return tw.Flush()
}
