package importcmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/cmd/util"
	"github.com/mpapenbr/racecoach/pkg/importer"
)

func NewImportCmd() *cobra.Command {
	opts := importer.Options{}
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "imports telemetry frames from a CSV file",
		Long: `Imports telemetry frames from a CSV file.

Required columns: lap, lap_dist_pct, lap_time, speed, throttle, brake, steering_angle
Optional columns: x, y, ts, gear, rpm, g_lon, g_lat

Importing into an existing session replaces its frames, positions and laps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], &opts)
		},
	}
	cmd.Flags().StringVar(&opts.SessionKey, "session", "",
		"session key (a new one is generated if empty)")
	cmd.Flags().StringVar(&opts.Track, "track", "", "track name")
	cmd.Flags().StringVar(&opts.Car, "car", "", "car name")
	cmd.Flags().BoolVar(&opts.AutoReference, "auto-reference", false,
		"make the fastest lap of track and car the reference after the import")
	_ = cmd.MarkFlagRequired("track")
	_ = cmd.MarkFlagRequired("car")
	return cmd
}

func runImport(cmd *cobra.Command, file string, opts *importer.Options) error {
	sqlLogger := util.SetupLogger()
	ctx := cmd.Context()
	if err := util.WaitForRequiredServices(ctx); err != nil {
		return err
	}
	d, err := util.OpenDB(ctx, sqlLogger, nil)
	if err != nil {
		return err
	}
	defer d.Close()

	if opts.SessionKey == "" {
		opts.SessionKey = uuid.NewString()
	}
	data, err := importer.ImportFile(ctx, d, file, opts)
	if err != nil {
		return err
	}
	log.Info("Import done",
		log.String("session", opts.SessionKey),
		log.Int("frames", len(data.Frames)),
		log.Int("laps", len(data.LapTimes)))
	fmt.Fprintln(cmd.OutOrStdout(), opts.SessionKey)
	return nil
}
