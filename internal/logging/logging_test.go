package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerHonoursLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger, err := newWithWriter(Config{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Int64("workflow_id", 4).Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "kept", line["message"])
	require.Equal(t, "warn", line["level"])
	require.EqualValues(t, 4, line["workflow_id"])
	require.Contains(t, line, "time")
}

func TestConsoleFormat(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger, err := newWithWriter(Config{Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hello")
	require.Contains(t, buf.String(), "hello")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestRejectsInvalidSettings(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.ErrorContains(t, err, "invalid log level")

	_, err = New(Config{Format: "xml"})
	require.ErrorContains(t, err, "invalid log format")

	_, err = New(Config{Output: "syslog"})
	require.ErrorContains(t, err, "invalid log output")
}
