package log

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFilter(t *testing.T) {
	tests := []struct {
		name    string
		rules   string
		want    []string
		notWant []string
	}{
		{
			name:    "suppress sql debug",
			rules:   "*:* -debug:sql*",
			want:    []string{"web debug", "sql info"},
			notWant: []string{"sql debug"},
		},
		{
			name:    "sql only",
			rules:   "*:sql",
			want:    []string{"sql debug", "sql info"},
			notWant: []string{"web debug"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			filter, err := WithFilter(tt.rules)
			require.NoError(t, err)
			l := New(&buf, DebugLevel, filter)
			l.Named("web").Debug("web debug")
			l.Named("sql").Debug("sql debug")
			l.Named("sql").Info("sql info")
			out := buf.String()
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, InfoLevel)
	named := l.Named("child")
	l.Debug("hidden")
	assert.False(t, named.Enabled(DebugLevel))

	// level is shared with derived loggers
	l.SetLevel(DebugLevel)
	named.Debug("visible", String("key", "value"))
	assert.Equal(t, DebugLevel, named.Level())
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"key":"value"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestContext(t *testing.T) {
	l := New(&bytes.Buffer{}, WarnLevel)
	assert.Same(t, Default(), GetFromContext(context.Background()))
	assert.Same(t, l, GetFromContext(AddToContext(context.Background(), l)))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, lvl)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
