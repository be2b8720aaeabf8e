// Package importer stores telemetry CSV files as sessions.
package importer

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository/lap"
	"github.com/mpapenbr/racecoach/pkg/repository/telemetry"
)

type Options struct {
	SessionKey string
	Track      string
	Car        string
	// AutoReference makes the fastest lap of Track and Car the reference
	AutoReference bool
}

// Import stores data as session opts.SessionKey within one transaction.
// An existing session with that key is replaced. Laps of the session which
// are not part of data are removed, lap times of remaining laps are updated.
//
//nolint:funlen // one transaction
func Import(ctx context.Context, d *db.DB, data *File, opts *Options) error {
	return db.WithTx(ctx, d.DB, func(tx *sql.Tx) error {
		replaced, err := telemetry.DeleteSession(ctx, tx, opts.SessionKey)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if replaced > 0 {
			log.Info("Replacing existing session", log.String("session", opts.SessionKey))
		}
		sessionID, err := telemetry.EnsureSession(ctx, tx, opts.SessionKey, opts.Track, opts.Car)
		if err != nil {
			return err
		}
		if err := telemetry.SaveFrames(ctx, tx, sessionID, data.Frames); err != nil {
			return fmt.Errorf("save frames: %w", err)
		}
		laps := data.Laps()
		for _, lapNum := range laps {
			if points, ok := data.Positions[lapNum]; ok {
				if err := telemetry.SavePositions(ctx, tx, sessionID, lapNum, points); err != nil {
					return fmt.Errorf("save positions of lap %d: %w", lapNum, err)
				}
			}
			if err := lap.Record(ctx, tx, &model.LapInfo{
				SessionKey: opts.SessionKey,
				LapNumber:  lapNum,
				Track:      opts.Track,
				Car:        opts.Car,
				LapTimeS:   data.LapTimes[lapNum],
			}); err != nil {
				return err
			}
		}
		removed, err := lap.DeleteOthers(ctx, tx, opts.SessionKey, laps)
		if err != nil {
			return fmt.Errorf("delete stale laps: %w", err)
		}
		if removed > 0 {
			log.Debug("Removed stale laps",
				log.String("session", opts.SessionKey), log.Int("laps", removed))
		}
		if opts.AutoReference && len(laps) > 0 {
			ref, err := lap.AutoSetReference(ctx, tx, opts.Track, opts.Car)
			if err != nil {
				return err
			}
			log.Info("Reference lap set",
				log.String("session", ref.SessionKey), log.Int("lap", ref.LapNumber))
		}
		return nil
	})
}

// ImportFile parses the CSV file and imports it.
func ImportFile(ctx context.Context, d *db.DB, file string, opts *Options) (*File, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := Import(ctx, d, data, opts); err != nil {
		return nil, err
	}
	return data, nil
}
