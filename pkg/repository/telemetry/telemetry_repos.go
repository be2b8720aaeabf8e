package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository"
)

// rows per insert statement
const batchSize = 600

const frameSelector = `select f.lap_number, f.ts, f.speed, f.throttle, f.brake,
f.steering_angle, f.gear, f.rpm, f.g_lon, f.g_lat, f.lap_dist_pct, f.lap_time
from telemetry_frame f join session s on s.id=f.session_id`

// EnsureSession returns the id of the session with sessionKey. The session is
// created if it does not exist yet.
func EnsureSession(
	ctx context.Context,
	conn repository.Querier,
	sessionKey, track, car string,
) (int, error) {
	_, err := conn.ExecContext(ctx, `
	insert into session (session_key, track, car, created_at) values ($1,$2,$3,$4)
	on conflict do nothing`,
		sessionKey, track, car, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return SessionID(ctx, conn, sessionKey)
}

func SessionID(ctx context.Context, conn repository.Querier, sessionKey string) (int, error) {
	var id int
	err := conn.QueryRowContext(ctx,
		"select id from session where session_key=$1", sessionKey).Scan(&id)
	if err != nil {
		return 0, repository.NotFound(err, fmt.Sprintf("session %s", sessionKey))
	}
	return id, nil
}

// SaveFrames stores frames for sessionID. Callers should run this inside a
// transaction when storing larger amounts of data.
func SaveFrames(
	ctx context.Context,
	conn repository.Querier,
	sessionID int,
	frames []*model.FrameRow,
) error {
	return repository.BatchInsert(ctx, conn, `
	insert into telemetry_frame (session_id, lap_number, ts, speed, throttle, brake,
	steering_angle, gear, rpm, g_lon, g_lat, lap_dist_pct, lap_time) values `,
		13, len(frames), batchSize,
		func(i int) []any {
			f := frames[i]
			return []any{
				sessionID, f.LapNumber, f.Timestamp, f.Speed, f.Throttle, f.Brake,
				f.SteeringAngle, f.Gear, f.RPM, f.GForceLon, f.GForceLat,
				f.LapDistPct, f.LapTime,
			}
		})
}

// SavePositions stores the world coordinates of lap.
func SavePositions(
	ctx context.Context,
	conn repository.Querier,
	sessionID, lap int,
	points []model.TrackPoint,
) error {
	return repository.BatchInsert(ctx, conn, `
	insert into track_position (session_id, lap_number, lap_dist_pct, x, y) values `,
		5, len(points), batchSize,
		func(i int) []any {
			return []any{sessionID, lap, points[i].LapDistPct, points[i].X, points[i].Y}
		})
}

// LoadLap returns the frames of a lap ordered by lap time and position.
// An unknown session or lap results in an empty slice.
func LoadLap(
	ctx context.Context,
	conn repository.Querier,
	sessionKey string,
	lap int,
) ([]*model.FrameRow, error) {
	rows, err := conn.QueryContext(ctx,
		fmt.Sprintf("%s where s.session_key=$1 and f.lap_number=$2 order by f.lap_time, f.lap_dist_pct",
			frameSelector),
		sessionKey, lap)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.FrameRow, 0)
	for rows.Next() {
		var item model.FrameRow
		if err := scanFrame(&item, rows); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

// LoadTrackPoints returns the positions of a lap ordered by lap_dist_pct.
func LoadTrackPoints(
	ctx context.Context,
	conn repository.Querier,
	sessionKey string,
	lap int,
) ([]model.TrackPoint, error) {
	rows, err := conn.QueryContext(ctx, `
	select p.lap_dist_pct, p.x, p.y from track_position p
	join session s on s.id=p.session_id
	where s.session_key=$1 and p.lap_number=$2
	order by p.lap_dist_pct`,
		sessionKey, lap)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.TrackPoint, 0)
	for rows.Next() {
		var p model.TrackPoint
		if err := rows.Scan(&p.LapDistPct, &p.X, &p.Y); err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, rows.Err()
}

// ListLaps returns the lap numbers with frames in ascending order.
func ListLaps(ctx context.Context, conn repository.Querier, sessionKey string) ([]int, error) {
	rows, err := conn.QueryContext(ctx, `
	select distinct f.lap_number from telemetry_frame f
	join session s on s.id=f.session_id
	where s.session_key=$1 order by f.lap_number`,
		sessionKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]int, 0)
	for rows.Next() {
		var lap int
		if err := rows.Scan(&lap); err != nil {
			return nil, err
		}
		ret = append(ret, lap)
	}
	return ret, rows.Err()
}

// DeleteSession removes a session together with its frames and positions.
// The number of deleted sessions is returned.
func DeleteSession(ctx context.Context, conn repository.Querier, sessionKey string) (int, error) {
	var id int
	err := conn.QueryRowContext(ctx,
		"select id from session where session_key=$1", sessionKey).Scan(&id)
	if err != nil {
		if repository.IsNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	for _, stmt := range []string{
		"delete from telemetry_frame where session_id=$1",
		"delete from track_position where session_id=$1",
		"delete from session where id=$1",
	} {
		if _, err := conn.ExecContext(ctx, stmt, id); err != nil {
			return 0, err
		}
	}
	return 1, nil
}

func scanFrame(f *model.FrameRow, row repository.Scanner) error {
	return row.Scan(
		&f.LapNumber, &f.Timestamp, &f.Speed, &f.Throttle, &f.Brake,
		&f.SteeringAngle, &f.Gear, &f.RPM, &f.GForceLon, &f.GForceLat,
		&f.LapDistPct, &f.LapTime,
	)
}
