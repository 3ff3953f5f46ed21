// Package errors provides centralized error handling and HTTP error
// responses: standard error codes, the APIError type, and middleware for
// panic recovery.
package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
)

// ErrorCode represents a standard error code
type ErrorCode string

const (
	// Validation errors
	CodeValidationFailed  ErrorCode = "VALIDATION_ERROR"
	CodeInvalidJSON       ErrorCode = "INVALID_JSON"
	CodeInvalidULID       ErrorCode = "INVALID_ULID"
	CodeInvalidPage       ErrorCode = "INVALID_PAGE"
	CodeInvalidTaskAction ErrorCode = "INVALID_TASK_ACTION"
	CodeUnknownEndpoint   ErrorCode = "UNKNOWN_ENDPOINT"
	CodeInvalidUpstream   ErrorCode = "INVALID_UPSTREAM"

	// Authentication and authorization errors
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeMissingToken ErrorCode = "MISSING_TOKEN"
	CodeForbidden    ErrorCode = "FORBIDDEN"

	// Resource errors
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeConflict              ErrorCode = "CONFLICT"
	CodeRatioExposureDisabled ErrorCode = "RATIO_EXPOSURE_DISABLED"

	// Server errors
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Request errors
	CodeBadRequest ErrorCode = "BAD_REQUEST"
)

// ErrorResponse is the JSON body of every error response. Success is
// always false; the web console branches on it the same way it does for
// successful envelopes.
type ErrorResponse struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error"`
	Code      int            `json:"code"`
	ErrorCode ErrorCode      `json:"error_code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// APIError represents an application error
type APIError struct {
	Message    string
	StatusCode int
	ErrorCode  ErrorCode
	Details    map[string]any
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *APIError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.Details = details
	return e
}

// Wrap wraps an error with additional context
func (e *APIError) Wrap(err error) *APIError {
	e.Err = err
	return e
}

// NewAPIError creates a new API error
func NewAPIError(statusCode int, errorCode ErrorCode, message string) *APIError {
	return &APIError{
		Message:    message,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
	}
}

func NewBadRequestError(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, CodeBadRequest, message)
}

func NewValidationError(message string, details map[string]any) *APIError {
	return NewAPIError(http.StatusBadRequest, CodeValidationFailed, message).WithDetails(details)
}

func NewUnauthorizedError(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func NewForbiddenError(message string) *APIError {
	return NewAPIError(http.StatusForbidden, CodeForbidden, message)
}

// NewNotFoundError creates a 404 for the named resource.
func NewNotFoundError(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func NewConflictError(message string) *APIError {
	return NewAPIError(http.StatusConflict, CodeConflict, message)
}

func NewInternalError(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, CodeInternalError, message)
}

// NewDatabaseError hides err from the client and keeps it for logging.
func NewDatabaseError(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, CodeDatabaseError, "Database error").Wrap(err)
}

func NewServiceUnavailableError(message string) *APIError {
	return NewAPIError(http.StatusServiceUnavailable, CodeServiceUnavailable, message)
}

// ErrorHandlerConfig holds configuration for error handling
type ErrorHandlerConfig struct {
	// ShowInternalErrors adds wrapped error text to responses.
	// Keep false in production.
	ShowInternalErrors bool

	// LogStackTrace logs stack traces for panics
	LogStackTrace bool

	// Logger defaults to the global logger
	Logger *logging.Logger
}

// ErrorHandler provides error handling middleware and utilities
type ErrorHandler struct {
	config ErrorHandlerConfig
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(config ErrorHandlerConfig) *ErrorHandler {
	return &ErrorHandler{config: config}
}

func (h *ErrorHandler) logger() *logging.Logger {
	if h.config.Logger != nil {
		return h.config.Logger
	}
	return logging.GetLogger()
}

// RecoveryMiddleware catches panics and converts them to 500 errors
func (h *ErrorHandler) RecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log := h.logger().WithContext(r.Context())
				if h.config.LogStackTrace {
					log.Errorf("PANIC: %v\n%s", rec, debug.Stack())
				} else {
					log.Errorf("PANIC: %v", rec)
				}

				message := "Internal server error"
				if h.config.ShowInternalErrors {
					message = fmt.Sprintf("Internal server error: %v", rec)
				}
				h.WriteError(w, r, NewInternalError(message))
			}
		}()

		next(w, r)
	}
}

// WriteError writes err as an ErrorResponse and logs it.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err *APIError) {
	requestID := GetRequestID(r)

	response := ErrorResponse{
		Error:     err.Message,
		Code:      err.StatusCode,
		ErrorCode: err.ErrorCode,
		Details:   err.Details,
		RequestID: requestID,
	}

	if h.config.ShowInternalErrors && err.Err != nil {
		details := make(map[string]any, len(err.Details)+1)
		for k, v := range err.Details {
			details[k] = v
		}
		details["internal_error"] = err.Err.Error()
		response.Details = details
	}

	log := h.logger().WithContext(r.Context())
	if err.StatusCode >= 500 {
		log.Errorf("%d %s: %s", err.StatusCode, err.ErrorCode, err.Message)
		if err.Err != nil {
			log.ErrorWithErr("Caused by", err.Err)
		}
	} else {
		log.Warnf("%d %s: %s", err.StatusCode, err.ErrorCode, err.Message)
	}

	w.Header().Set(constants.HeaderContentType, constants.MIMEApplicationJSON)
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(response)
}

// SetRequestID stores the request id where both this package and the
// logging package can read it.
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return logging.SetRequestID(ctx, requestID)
}

// GetRequestID gets the request ID from the request context
func GetRequestID(r *http.Request) string {
	return logging.GetRequestID(r.Context())
}

// MapDatabaseError maps database errors to appropriate API errors
func MapDatabaseError(err error) *APIError {
	errStr := err.Error()

	if containsAny(errStr, constants.DuplicateKeyPatterns) {
		return NewConflictError("Resource already exists")
	}

	if containsAny(errStr, []string{"not null", "NOT NULL"}) {
		return NewBadRequestError("Required field is missing")
	}

	if containsAny(errStr, constants.ConnectionErrorPatterns) {
		return NewServiceUnavailableError("Database unavailable")
	}

	return NewDatabaseError(err)
}

func containsAny(s string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
