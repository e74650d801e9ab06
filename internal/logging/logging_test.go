package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("evaluate", Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	l.Debug().Int("rows", 3).Msg("starting")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "evaluate", entry["component"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "starting", entry["message"])
	assert.EqualValues(t, 3, entry["rows"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("server", Options{Level: "warn", Format: "json", Output: &buf})
	require.NoError(t, err)

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("ingest", Options{Output: &buf})
	require.NoError(t, err)

	l.Info().Str("symbol", "TCS.NS").Msg("fetched")
	out := buf.String()
	assert.Contains(t, out, "fetched")
	assert.Contains(t, out, "component=ingest")
	assert.Contains(t, out, "symbol=TCS.NS")
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New("x", Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New("x", Options{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.in), func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
