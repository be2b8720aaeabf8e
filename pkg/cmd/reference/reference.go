package reference

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racecoach/pkg/cmd/util"
	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository/lap"
)

var (
	track string
	car   string
)

func NewReferenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "manages reference laps",
	}
	cmd.PersistentFlags().StringVar(&track, "track", "", "track name")
	cmd.PersistentFlags().StringVar(&car, "car", "", "car name")

	cmd.AddCommand(&cobra.Command{
		Use:   "set <session> <lap>",
		Short: "makes a lap the reference for its track and car",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var lapNum int
			if _, err := fmt.Sscanf(args[1], "%d", &lapNum); err != nil {
				return fmt.Errorf("invalid lap %q: %w", args[1], err)
			}
			return withDB(cmd, func(ctx context.Context, d *db.DB) error {
				return setReference(ctx, cmd.OutOrStdout(), d, args[0], lapNum)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "makes the fastest lap the reference for --track and --car",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, d *db.DB) error {
				return autoReference(ctx, cmd.OutOrStdout(), d, track, car)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "shows the reference lap of --track and --car",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, d *db.DB) error {
				ref, err := lap.GetReference(ctx, d, track, car)
				if err != nil {
					return err
				}
				return printLaps(cmd.OutOrStdout(), []*model.LapInfo{ref})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "lists the recorded laps of --track and --car, fastest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, d *db.DB) error {
				laps, err := lap.ListByTrackCar(ctx, d, track, car)
				if err != nil {
					return err
				}
				return printLaps(cmd.OutOrStdout(), laps)
			})
		},
	})
	return cmd
}

func withDB(cmd *cobra.Command, fn func(ctx context.Context, d *db.DB) error) error {
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
	return fn(ctx, d)
}

func setReference(ctx context.Context, w io.Writer, d *db.DB, session string, lapNum int) error {
	var ref *model.LapInfo
	if err := db.WithTx(ctx, d.DB, func(tx *sql.Tx) error {
		var err error
		ref, err = lap.SetReference(ctx, tx, session, lapNum)
		return err
	}); err != nil {
		return err
	}
	return printLaps(w, []*model.LapInfo{ref})
}

func autoReference(ctx context.Context, w io.Writer, d *db.DB, track, car string) error {
	var ref *model.LapInfo
	if err := db.WithTx(ctx, d.DB, func(tx *sql.Tx) error {
		var err error
		ref, err = lap.AutoSetReference(ctx, tx, track, car)
		return err
	}); err != nil {
		return err
	}
	return printLaps(w, []*model.LapInfo{ref})
}

func printLaps(w io.Writer, laps []*model.LapInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "session\tlap\ttrack\tcar\tlap time\treference")
	for _, l := range laps {
		ref := ""
		if l.IsReference {
			ref = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			l.SessionKey, l.LapNumber, l.Track, l.Car, formatLapTime(l.LapTimeS), ref)
	}
	return tw.Flush()
}

// formatLapTime returns m:ss.mmm
func formatLapTime(secs float64) string {
	millis := int64(secs*1000 + 0.5)
	return fmt.Sprintf("%d:%02d.%03d", millis/60000, (millis/1000)%60, millis%1000)
}
