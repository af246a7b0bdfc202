package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New("debug", "json", buf)
	require.NoError(t, err)

	log.Info().Str("board", "b1").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "b1", line["board"])
	assert.Contains(t, line, "time")
}

func TestNewFiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New("warn", "", buf)
	require.NoError(t, err)

	log.Info().Msg("quiet")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("loud")
	assert.NotZero(t, buf.Len())
}

func TestNewConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New("info", "console", buf)
	require.NoError(t, err)

	log.Info().Msg("pretty")
	assert.Contains(t, buf.String(), "pretty")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New("loud", "json", nil)
	require.Error(t, err)

	_, err = New("info", "xml", nil)
	require.Error(t, err)
}
