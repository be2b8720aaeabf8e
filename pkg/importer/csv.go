package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/racecoach/pkg/model"
)

var (
	requiredColumns = []string{
		"lap", "lap_dist_pct", "lap_time", "speed", "throttle", "brake", "steering_angle",
	}
	ErrMissingColumn = errors.New("missing column")
)

// File is the content of a telemetry CSV file.
type File struct {
	Frames    []*model.FrameRow
	Positions map[int][]model.TrackPoint // only laps with x and y columns
	LapTimes  map[int]float64            // max lap_time per lap
}

// Laps returns the lap numbers in ascending order.
func (t *File) Laps() []int {
	ret := lo.Keys(t.LapTimes)
	slices.Sort(ret)
	return ret
}

// ParseCSV reads telemetry frames. The first record is the header, column
// order is free and unknown columns are ignored. Positions are only read if
// both x and y are present.
//
//nolint:funlen,cyclop // column handling
func ParseCSV(r io.Reader) (*File, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	_, hasX := cols["x"]
	_, hasY := cols["y"]
	withPositions := hasX && hasY

	ret := &File{
		Frames:    make([]*model.FrameRow, 0),
		Positions: make(map[int][]model.TrackPoint),
		LapTimes:  make(map[int]float64),
	}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		p := fieldParser{record: record, cols: cols}
		lapNum := int(p.float("lap"))
		frame := model.LapFrame{
			LapDistPct:    p.float("lap_dist_pct"),
			LapTime:       p.float("lap_time"),
			Speed:         p.float("speed"),
			Throttle:      p.float("throttle"),
			Brake:         p.float("brake"),
			SteeringAngle: p.float("steering_angle"),
		}
		row := model.FrameRowFromLapFrame(lapNum, &frame)
		row.Gear = int(p.optFloat("gear"))
		row.RPM = p.optFloat("rpm")
		row.GForceLon = p.optFloat("g_lon")
		row.GForceLat = p.optFloat("g_lat")
		if _, ok := cols["ts"]; ok {
			row.Timestamp = p.float("ts")
		}
		var pos model.TrackPoint
		if withPositions {
			pos = model.TrackPoint{
				LapDistPct: frame.LapDistPct,
				X:          p.float("x"),
				Y:          p.float("y"),
			}
		}
		if p.err != nil {
			return nil, fmt.Errorf("line %d: %w", line, p.err)
		}
		ret.Frames = append(ret.Frames, row)
		if withPositions {
			ret.Positions[lapNum] = append(ret.Positions[lapNum], pos)
		}
		ret.LapTimes[lapNum] = max(ret.LapTimes[lapNum], frame.LapTime)
	}
	return ret, nil
}

// fieldParser keeps the first conversion error.
type fieldParser struct {
	record []string
	cols   map[string]int
	err    error
}

func (p *fieldParser) float(name string) float64 {
	idx := p.cols[name]
	if idx >= len(p.record) {
		p.setErr(fmt.Errorf("%w: %s", ErrMissingColumn, name))
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.record[idx]), 64)
	if err != nil {
		p.setErr(fmt.Errorf("column %s: %w", name, err))
		return 0
	}
	return v
}

func (p *fieldParser) optFloat(name string) float64 {
	if idx, ok := p.cols[name]; !ok || idx >= len(p.record) || p.record[idx] == "" {
		return 0
	}
	return p.float(name)
}

func (p *fieldParser) setErr(err error) {
	if p.err == nil {
		p.err = err
	}
}
