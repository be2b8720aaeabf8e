package lap

import (
	"context"
	"fmt"
	"slices"

	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository"
)

const selector = `select session_key, lap_number, track, car, lap_time_s, is_reference
from lap`

// Record registers a completed lap. Recording the same session lap again
// updates its lap time and keeps the reference flag.
func Record(ctx context.Context, conn repository.Querier, l *model.LapInfo) error {
	_, err := conn.ExecContext(ctx, `
	insert into lap (session_key, lap_number, track, car, lap_time_s)
	values ($1,$2,$3,$4,$5)
	on conflict (session_key, lap_number) do update set lap_time_s=excluded.lap_time_s`,
		l.SessionKey, l.LapNumber, l.Track, l.Car, l.LapTimeS)
	return err
}

// DeleteOthers removes the laps of sessionKey whose number is not in keep.
// The number of deleted laps is returned.
func DeleteOthers(ctx context.Context, conn repository.Querier, sessionKey string, keep []int) (
	int, error,
) {
	existing, err := conn.QueryContext(ctx,
		"select lap_number from lap where session_key=$1", sessionKey)
	if err != nil {
		return 0, err
	}
	var stale []int
	for existing.Next() {
		var n int
		if err := existing.Scan(&n); err != nil {
			existing.Close()
			return 0, err
		}
		if !slices.Contains(keep, n) {
			stale = append(stale, n)
		}
	}
	existing.Close()
	if err := existing.Err(); err != nil {
		return 0, err
	}
	for _, n := range stale {
		if _, err := conn.ExecContext(ctx,
			"delete from lap where session_key=$1 and lap_number=$2", sessionKey, n); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

func Load(ctx context.Context, conn repository.Querier, sessionKey string, lapNum int) (
	*model.LapInfo, error,
) {
	row := conn.QueryRowContext(ctx,
		fmt.Sprintf("%s where session_key=$1 and lap_number=$2", selector),
		sessionKey, lapNum)
	var item model.LapInfo
	if err := scan(&item, row); err != nil {
		return nil, repository.NotFound(err, fmt.Sprintf("lap %s/%d", sessionKey, lapNum))
	}
	return &item, nil
}

// SetReference makes the given lap the reference for its track and car.
// A previous reference of the same track and car is cleared.
// Should be called within a transaction.
func SetReference(ctx context.Context, conn repository.Querier, sessionKey string, lapNum int) (
	*model.LapInfo, error,
) {
	l, err := Load(ctx, conn, sessionKey, lapNum)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx,
		"update lap set is_reference=false where track=$1 and car=$2 and is_reference=true",
		l.Track, l.Car); err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx,
		"update lap set is_reference=true where session_key=$1 and lap_number=$2",
		sessionKey, lapNum); err != nil {
		return nil, err
	}
	l.IsReference = true
	return l, nil
}

func GetReference(ctx context.Context, conn repository.Querier, track, car string) (
	*model.LapInfo, error,
) {
	row := conn.QueryRowContext(ctx,
		fmt.Sprintf("%s where track=$1 and car=$2 and is_reference=true", selector),
		track, car)
	var item model.LapInfo
	if err := scan(&item, row); err != nil {
		return nil, repository.NotFound(err, fmt.Sprintf("reference %s/%s", track, car))
	}
	return &item, nil
}

// AutoSetReference makes the fastest recorded lap of track and car the
// reference.
func AutoSetReference(ctx context.Context, conn repository.Querier, track, car string) (
	*model.LapInfo, error,
) {
	laps, err := ListByTrackCar(ctx, conn, track, car)
	if err != nil {
		return nil, err
	}
	if len(laps) == 0 {
		return nil, fmt.Errorf("laps %s/%s: %w", track, car, repository.ErrNotFound)
	}
	return SetReference(ctx, conn, laps[0].SessionKey, laps[0].LapNumber)
}

// ListByTrackCar returns all laps of track and car, fastest first.
func ListByTrackCar(ctx context.Context, conn repository.Querier, track, car string) (
	[]*model.LapInfo, error,
) {
	rows, err := conn.QueryContext(ctx,
		fmt.Sprintf("%s where track=$1 and car=$2 order by lap_time_s, session_key, lap_number",
			selector),
		track, car)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.LapInfo, 0)
	for rows.Next() {
		var item model.LapInfo
		if err := scan(&item, rows); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

func scan(l *model.LapInfo, row repository.Scanner) error {
	return row.Scan(&l.SessionKey, &l.LapNumber, &l.Track, &l.Car, &l.LapTimeS, &l.IsReference)
}
