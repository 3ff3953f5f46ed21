package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "json", Output: &buf, ServiceName: "uiconf", Version: "1.4"})

	logger.Info("Test message")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Test message", entries[0]["message"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "uiconf", entries[0]["service"])
	assert.Equal(t, "1.4", entries[0]["version"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LevelWarn, Format: "json", Output: &buf})

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Errorf("error %d", 1)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["message"])
	assert.Equal(t, "error 1", entries[1]["message"])
}

func TestLogger_SimpleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "simple", Output: &buf})

	logger.Warn("ratio sync skipped")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[WARN]("), out)
	assert.Contains(t, out, "): ratio sync skipped")
}

func TestLogger_MasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "json", Output: &buf, SensitiveFields: []string{"Upstream_Key"}})

	logger.WithFields(map[string]any{
		"Password":     "hunter2",
		"upstream_key": "sk-123",
		"model":        "gpt-4o",
	}).WithField("jwt_secret", "s").Info("masked")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, constants.RedactedPlaceholder, entries[0]["Password"])
	assert.Equal(t, constants.RedactedPlaceholder, entries[0]["upstream_key"])
	assert.Equal(t, constants.RedactedPlaceholder, entries[0]["jwt_secret"])
	assert.Equal(t, "gpt-4o", entries[0]["model"])
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "json", Output: &buf})

	assert.Same(t, logger, logger.WithContext(context.Background()))

	ctx := SetRequestID(context.Background(), "req-1")
	logger.WithContext(ctx).Info("with id")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0]["request_id"])
}

func TestLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "main.log")
	logger := NewLogger(LoggerConfig{FilePath: path, Format: "simple"})

	logger.Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO](")
	assert.Contains(t, string(data), "to file")
}

func TestRequestLogger_Middleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "json", Output: &buf})
	rl := NewRequestLogger(logger, constants.RouteHealth)

	var seenID string
	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/task", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rec.Header().Get(constants.HeaderRequestID))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "/api/task", entries[0]["path"])
	assert.EqualValues(t, http.StatusNotFound, entries[0]["status"])
	assert.EqualValues(t, 4, entries[0]["bytes"])
	assert.Equal(t, seenID, entries[0]["request_id"])
}

func TestRequestLogger_KeepsIncomingIDAndSkipsPaths(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRequestLogger(NewLogger(LoggerConfig{Format: "json", Output: &buf}), constants.RouteHealth)

	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "incoming", GetRequestID(r.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, constants.RouteHealth, nil)
	req.Header.Set(constants.HeaderRequestID, "incoming")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, "incoming", rec.Header().Get(constants.HeaderRequestID))
	assert.Empty(t, buf.String())
}
