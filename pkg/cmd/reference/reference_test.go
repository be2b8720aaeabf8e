package reference

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository"
	"github.com/mpapenbr/racecoach/pkg/repository/lap"
	"github.com/mpapenbr/racecoach/testsupport/testdb"
)

func TestFormatLapTime(t *testing.T) {
	tests := []struct {
		secs float64
		want string
	}{
		{secs: 0, want: "0:00.000"},
		{secs: 59.9996, want: "1:00.000"},
		{secs: 138.234, want: "2:18.234"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, formatLapTime(tt.secs), tt.want)
		})
	}
}

func TestReferenceCommands(t *testing.T) {
	d := testdb.InitTestDb(t)
	ctx := context.Background()
	for _, l := range []model.LapInfo{
		{SessionKey: "s1", LapNumber: 1, Track: "spa", Car: "gt3", LapTimeS: 140},
		{SessionKey: "s1", LapNumber: 2, Track: "spa", Car: "gt3", LapTimeS: 138.5},
	} {
		assert.NilError(t, lap.Record(ctx, d, &l))
	}

	var buf bytes.Buffer
	assert.NilError(t, setReference(ctx, &buf, d, "s1", 1))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, len(lines), 2)
	assert.DeepEqual(t, strings.Fields(lines[1]), []string{"s1", "1", "spa", "gt3", "2:20.000", "*"})

	buf.Reset()
	assert.NilError(t, autoReference(ctx, &buf, d, "spa", "gt3"))
	assert.Assert(t, strings.Contains(buf.String(), "2:18.500"))
	ref, err := lap.GetReference(ctx, d, "spa", "gt3")
	assert.NilError(t, err)
	assert.Equal(t, ref.LapNumber, 2)

	err = setReference(ctx, &buf, d, "s1", 9)
	assert.Assert(t, errors.Is(err, repository.ErrNotFound))
	err = autoReference(ctx, &buf, d, "monza", "gt3")
	assert.Assert(t, errors.Is(err, repository.ErrNotFound))
}
