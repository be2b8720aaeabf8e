package migrate

import (
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/cmd/util"
	"github.com/mpapenbr/racecoach/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd)
		},
	}
	return cmd
}

func startMigration(cmd *cobra.Command) error {
	sqlLogger := util.SetupLogger()
	if err := util.WaitForRequiredServices(cmd.Context()); err != nil {
		return err
	}
	d, err := util.OpenDB(cmd.Context(), sqlLogger, nil)
	if err != nil {
		return err
	}
	defer d.Close()

	before, _, err := migrate.Version(d)
	if err != nil {
		return err
	}
	if err := migrate.MigrateDB(d); err != nil {
		return err
	}
	after, _, err := migrate.Version(d)
	if err != nil {
		return err
	}
	if before == after {
		log.Info("No Migration required", log.Int("version", int(after)))
	} else {
		log.Info("Migration done", log.Int("from", int(before)), log.Int("to", int(after)))
	}
	return nil
}
