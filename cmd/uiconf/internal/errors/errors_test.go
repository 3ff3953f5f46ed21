package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
)

func newTestHandler(showInternal bool) (*ErrorHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewErrorHandler(ErrorHandlerConfig{
		ShowInternalErrors: showInternal,
		Logger:             logging.NewLogger(logging.LoggerConfig{Format: "json", Output: &buf}),
	}), &buf
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAPIError_ErrorAndUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewDatabaseError(cause)

	assert.Equal(t, "Database error: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Task not found", NewNotFoundError("Task").Error())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   ErrorCode
	}{
		{"bad request", NewBadRequestError("x"), http.StatusBadRequest, CodeBadRequest},
		{"validation", NewValidationError("x", nil), http.StatusBadRequest, CodeValidationFailed},
		{"unauthorized", NewUnauthorizedError("x"), http.StatusUnauthorized, CodeUnauthorized},
		{"forbidden", NewForbiddenError("x"), http.StatusForbidden, CodeForbidden},
		{"not found", NewNotFoundError("x"), http.StatusNotFound, CodeNotFound},
		{"conflict", NewConflictError("x"), http.StatusConflict, CodeConflict},
		{"internal", NewInternalError("x"), http.StatusInternalServerError, CodeInternalError},
		{"unavailable", NewServiceUnavailableError("x"), http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"invalid page", NewAPIError(http.StatusBadRequest, CodeInvalidPage, "x"), http.StatusBadRequest, CodeInvalidPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.code, tt.err.ErrorCode)
		})
	}
}

func TestWriteError_Envelope(t *testing.T) {
	h, logs := newTestHandler(false)

	req := httptest.NewRequest(http.MethodGet, "/api/task", nil)
	req = req.WithContext(SetRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	h.WriteError(rec, req, NewAPIError(http.StatusBadRequest, CodeInvalidTaskAction, "invalid task action").
		WithDetails(map[string]any{"action": "draw"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, constants.MIMEApplicationJSON, rec.Header().Get(constants.HeaderContentType))

	resp := decodeError(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid task action", resp.Error)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, CodeInvalidTaskAction, resp.ErrorCode)
	assert.Equal(t, "draw", resp.Details["action"])
	assert.Equal(t, "req-42", resp.RequestID)
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestWriteError_InternalDetails(t *testing.T) {
	cause := stderrors.New("connection reset")

	hidden, _ := newTestHandler(false)
	rec := httptest.NewRecorder()
	hidden.WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), NewDatabaseError(cause))
	assert.Nil(t, decodeError(t, rec).Details)

	shown, logs := newTestHandler(true)
	rec = httptest.NewRecorder()
	shown.WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), NewDatabaseError(cause))
	assert.Equal(t, "connection reset", decodeError(t, rec).Details["internal_error"])
	assert.Contains(t, logs.String(), `"level":"error"`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h, logs := newTestHandler(false)

	handler := h.RecoveryMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	})

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.Contains(t, logs.String(), "PANIC: nil map")
}

func TestMapDatabaseError(t *testing.T) {
	tests := []struct {
		err  string
		code ErrorCode
	}{
		{"UNIQUE constraint failed: tasks.id", CodeConflict},
		{"pq: duplicate key value violates unique constraint", CodeConflict},
		{"NOT NULL constraint failed: tasks.action", CodeBadRequest},
		{"dial tcp: connection refused", CodeServiceUnavailable},
		{"syntax error near FROM", CodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.code, MapDatabaseError(stderrors.New(tt.err)).ErrorCode)
		})
	}
}
