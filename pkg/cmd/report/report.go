package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racecoach/pkg/cmd/util"
	"github.com/mpapenbr/racecoach/pkg/repository"
	"github.com/mpapenbr/racecoach/pkg/repository/analysis"
)

var (
	track    string
	car      string
	id       int
	jsonPath string
)

func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "shows stored analyses",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "lists the analyses of --track and --car, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, conn repository.Querier) error {
				return listReports(ctx, cmd.OutOrStdout(), conn, track, car)
			})
		},
	}
	listCmd.Flags().StringVar(&track, "track", "", "track name")
	listCmd.Flags().StringVar(&car, "car", "", "car name")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "prints a stored report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, conn repository.Querier) error {
				return showReport(ctx, cmd.OutOrStdout(), conn, id, jsonPath)
			})
		},
	}
	showCmd.Flags().IntVar(&id, "id", 0, "id of the analysis")
	showCmd.Flags().StringVar(&jsonPath, "jsonpath", "",
		"print only the values selected by this JSONPath, e.g. $.corners[*].delta_total")
	_ = showCmd.MarkFlagRequired("id")

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func withDB(cmd *cobra.Command, fn func(ctx context.Context, conn repository.Querier) error) error {
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

func listReports(ctx context.Context, w io.Writer, conn repository.Querier, track, car string) error {
	records, err := analysis.ListByTrackCar(ctx, conn, track, car)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tcreated\tsession\tlap\tref lap\tdelta")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%+.3f\n",
			r.ID, r.CreatedAt.Format(time.DateTime), r.SessionKey, r.LapNumber, r.RefLap,
			r.TotalDeltaS)
	}
	return tw.Flush()
}

func showReport(ctx context.Context, w io.Writer, conn repository.Querier, id int, expr string) error {
	rec, err := analysis.LoadByID(ctx, conn, id)
	if err != nil {
		return err
	}
	if expr == "" {
		return writeJSON(w, rec.ReportJSON)
	}
	values, err := selectPath(rec.ReportJSON, expr)
	if err != nil {
		return err
	}
	for _, v := range values {
		if _, err := fmt.Fprintln(w, oj.JSON(v, &ojg.Options{Sort: true})); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, data string) error {
	obj, err := oj.ParseString(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, oj.JSON(obj, &ojg.Options{Indent: 2, Sort: true}))
	return err
}

// selectPath returns the values of data matched by the JSONPath expr.
func selectPath(data, expr string) ([]any, error) {
	obj, err := oj.ParseString(data)
	if err != nil {
		return nil, err
	}
	path, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", expr, err)
	}
	return path.Get(obj), nil
}
