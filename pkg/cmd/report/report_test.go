package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository"
	"github.com/mpapenbr/racecoach/pkg/repository/analysis"
	"github.com/mpapenbr/racecoach/testsupport/testdb"
)

const sampleReport = `{
	"session_key": "s1",
	"lap_number": 3,
	"corners": [
		{"corner_id": 1, "delta_total": 0.25},
		{"corner_id": 2, "delta_total": -0.5}
	]
}`

func TestSelectPath(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    []any
		wantErr bool
	}{
		{name: "scalar", expr: "$.session_key", want: []any{"s1"}},
		{name: "wildcard", expr: "$.corners[*].corner_id", want: []any{int64(1), int64(2)}},
		{name: "filter", expr: "$.corners[?(@.delta_total < 0)].corner_id", want: []any{int64(2)}},
		{name: "no match", expr: "$.missing", want: nil},
		{name: "invalid", expr: "$.corners[", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectPath(sampleReport, tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), len(got))
			for i := range tt.want {
				assert.Equal(t, tt.want[i], got[i])
			}
		})
	}
}

func TestShowReport(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()
	rec, err := analysis.Save(ctx, d, &model.LapReport{
		SessionKey: "s1", LapNumber: 3, RefLap: 1, Track: "spa", Car: "gt3",
		TotalDeltaS: 0.75,
		Corners: []model.CornerReport{
			{CornerID: 1, DeltaTotal: 0.25},
			{CornerID: 2, DeltaTotal: 0.5},
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, showReport(ctx, &buf, d, rec.ID, "$.corners[*].corner_id"))
	assert.Equal(t, "1\n2\n", buf.String())

	buf.Reset()
	require.NoError(t, showReport(ctx, &buf, d, rec.ID, ""))
	assert.Contains(t, buf.String(), `"total_delta_s": 0.75`)

	buf.Reset()
	require.NoError(t, listReports(ctx, &buf, d, "spa", "gt3"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "+0.750")

	err = showReport(ctx, &buf, d, rec.ID+1, "")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}
