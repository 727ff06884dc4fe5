package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Output: &buf}).With(map[string]any{"run_id": "r1"})
	l.Info("state changed", "state", "resolving_basemap")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "r1", line["run_id"])
	assert.Equal(t, "resolving_basemap", line["state"])
	assert.Equal(t, "state changed", line["message"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "json", Output: &buf})
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Error(errors.New("boom"), "export failed")
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestNop(t *testing.T) {
	Nop().Info("nothing", "k", 1)
}
