package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactsSecretAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.With("api_key", "vt-123").Info("scan submitted",
		"url", "https://paylink.example",
		slog.Group("keystore", "passphrase", "hunter2", "dir", "/data"),
	)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, redacted, line["api_key"])
	assert.Equal(t, "https://paylink.example", line["url"])
	group, ok := line["keystore"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, redacted, group["passphrase"])
	assert.Equal(t, "/data", group["dir"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
