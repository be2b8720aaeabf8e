//nolint:whitespace //can't make both the linter and editor happy :(
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository"
)

const selector = `select id, session_key, lap_number, ref_lap, track, car,
track_length_m, total_delta_s, report, created_at from analysis`

// Save stores report and returns the new record.
func Save(ctx context.Context, conn repository.Querier, report *model.LapReport) (
	*model.AnalysisRecord, error,
) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	entry := &model.AnalysisRecord{
		SessionKey:   report.SessionKey,
		LapNumber:    report.LapNumber,
		RefLap:       report.RefLap,
		Track:        report.Track,
		Car:          report.Car,
		TrackLengthM: report.TrackLengthM,
		TotalDeltaS:  report.TotalDeltaS,
		CreatedAt:    time.UnixMilli(time.Now().UnixMilli()),
		ReportJSON:   string(data),
	}
	row := conn.QueryRowContext(ctx, `
	insert into analysis (session_key, lap_number, ref_lap, track, car,
	track_length_m, total_delta_s, report, created_at)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	returning id
	`, entry.SessionKey, entry.LapNumber, entry.RefLap, entry.Track, entry.Car,
		entry.TrackLengthM, entry.TotalDeltaS, entry.ReportJSON, entry.CreatedAt.UnixMilli())

	if err := row.Scan(&entry.ID); err != nil {
		return nil, err
	}
	return entry, nil
}

func LoadByID(ctx context.Context, conn repository.Querier, id int) (
	*model.AnalysisRecord, error,
) {
	row := conn.QueryRowContext(ctx, fmt.Sprintf("%s where id=$1", selector), id)
	var item model.AnalysisRecord
	if err := scan(&item, row); err != nil {
		return nil, repository.NotFound(err, fmt.Sprintf("analysis %d", id))
	}
	return &item, nil
}

// LoadReport returns the stored report of analysis id.
func LoadReport(ctx context.Context, conn repository.Querier, id int) (
	*model.LapReport, error,
) {
	rec, err := LoadByID(ctx, conn, id)
	if err != nil {
		return nil, err
	}
	var ret model.LapReport
	if err := json.Unmarshal([]byte(rec.ReportJSON), &ret); err != nil {
		return nil, fmt.Errorf("analysis %d: %w", id, err)
	}
	return &ret, nil
}

type (
	ListOption func(*listFilter)
	listFilter struct {
		from  time.Time
		until time.Time
	}
)

// WithCreatedFrom restricts the list to analyses created at or after t.
func WithCreatedFrom(t time.Time) ListOption {
	return func(f *listFilter) {
		f.from = t
	}
}

// WithCreatedBefore restricts the list to analyses created before t.
func WithCreatedBefore(t time.Time) ListOption {
	return func(f *listFilter) {
		f.until = t
	}
}

// ListByTrackCar returns the analyses for track and car, newest first.
func ListByTrackCar(ctx context.Context, conn repository.Querier, track, car string,
	opts ...ListOption,
) ([]*model.AnalysisRecord, error) {
	f := listFilter{}
	for _, opt := range opts {
		opt(&f)
	}
	where := []string{"track=$1", "car=$2"}
	args := []any{track, car}
	if !f.from.IsZero() {
		args = append(args, f.from.UnixMilli())
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.until.IsZero() {
		args = append(args, f.until.UnixMilli())
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	rows, err := conn.QueryContext(ctx,
		fmt.Sprintf("%s where %s order by created_at desc, id desc",
			selector, strings.Join(where, " and ")),
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.AnalysisRecord, 0)
	for rows.Next() {
		var item model.AnalysisRecord
		if err := scan(&item, rows); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

func scan(e *model.AnalysisRecord, row repository.Scanner) error {
	var created int64
	if err := row.Scan(&e.ID, &e.SessionKey, &e.LapNumber, &e.RefLap, &e.Track, &e.Car,
		&e.TrackLengthM, &e.TotalDeltaS, &e.ReportJSON, &created); err != nil {
		return err
	}
	e.CreatedAt = time.UnixMilli(created)
	return nil
}
