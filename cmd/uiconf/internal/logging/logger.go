// Package logging provides structured logging with zerolog.
// It supports json, console and simple text formats, optional file
// output, request id tracking and masking of sensitive fields.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
)

// simpleWriter formats zerolog JSON lines as: [LEVEL](TIMESTAMP): {MESSAGE}
type simpleWriter struct {
	out io.Writer
}

func (sw *simpleWriter) Write(p []byte) (int, error) {
	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		return sw.out.Write(p)
	}

	level, _ := entry["level"].(string)
	timestamp, _ := entry["time"].(string)
	message, _ := entry["message"].(string)

	if _, err := fmt.Fprintf(sw.out, "[%s](%s): %s\n", strings.ToUpper(level), timestamp, message); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Level represents logging levels
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(s)) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	// Level is the minimum log level
	Level Level

	// Format is json, console or simple (default)
	Format string

	// Output is the writer for logs (default: os.Stdout)
	Output io.Writer

	// FilePath is a log file. Without DualOutput it replaces Output.
	FilePath string

	// DualOutput writes console format to stdout and simple format to FilePath
	DualOutput bool

	ServiceName string
	Version     string

	// SensitiveFields are extra field names to mask
	SensitiveFields []string
}

// Logger wraps zerolog for structured logging
type Logger struct {
	logger          zerolog.Logger
	level           Level
	sensitiveFields map[string]bool
}

// openLogFile creates the log directory and opens path for appending.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, constants.FilePermissions)
}

// NewLogger creates a new structured logger. File errors fall back to stdout.
func NewLogger(config LoggerConfig) *Logger {
	if config.Level == "" {
		config.Level = LevelInfo
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	var writer io.Writer
	switch {
	case config.FilePath != "":
		file, err := openLogFile(config.FilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", config.FilePath, err)
			writer = formatWriter(out, config.Format)
		} else if config.DualOutput {
			writer = zerolog.MultiLevelWriter(
				zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339},
				&simpleWriter{out: file},
			)
		} else {
			writer = formatWriter(file, config.Format)
		}
	default:
		writer = formatWriter(out, config.Format)
	}

	ctx := zerolog.New(writer).Level(config.Level.zerolog()).With().Timestamp()
	if config.ServiceName != "" {
		ctx = ctx.Str("service", config.ServiceName)
	}
	if config.Version != "" {
		ctx = ctx.Str("version", config.Version)
	}

	sensitive := make(map[string]bool)
	for _, field := range constants.SensitiveFields {
		sensitive[field] = true
	}
	for _, field := range config.SensitiveFields {
		sensitive[strings.ToLower(field)] = true
	}

	return &Logger{
		logger:          ctx.Logger(),
		level:           config.Level,
		sensitiveFields: sensitive,
	}
}

func formatWriter(out io.Writer, format string) io.Writer {
	switch format {
	case "json":
		return out
	case "console":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return &simpleWriter{out: out}
	}
}

// WithContext returns a logger carrying the request id from ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	requestID := GetRequestID(ctx)
	if requestID == "" {
		return l
	}
	newLogger := *l
	newLogger.logger = l.logger.With().Str(constants.ContextKeyRequestID, requestID).Logger()
	return &newLogger
}

// WithField returns a logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	newLogger := *l
	newLogger.logger = l.logger.With().Interface(key, l.maskSensitive(key, value)).Logger()
	return &newLogger
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	newLogger := *l
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, l.maskSensitive(key, value))
	}
	newLogger.logger = ctx.Logger()
	return &newLogger
}

func (l *Logger) maskSensitive(key string, value any) any {
	if l.sensitiveFields[strings.ToLower(key)] {
		return constants.RedactedPlaceholder
	}
	return value
}

func (l *Logger) Debug(msg string)                   { l.logger.Debug().Msg(msg) }
func (l *Logger) Debugf(format string, args ...any)  { l.logger.Debug().Msgf(format, args...) }
func (l *Logger) Info(msg string)                    { l.logger.Info().Msg(msg) }
func (l *Logger) Infof(format string, args ...any)   { l.logger.Info().Msgf(format, args...) }
func (l *Logger) Warn(msg string)                    { l.logger.Warn().Msg(msg) }
func (l *Logger) Warnf(format string, args ...any)   { l.logger.Warn().Msgf(format, args...) }
func (l *Logger) Error(msg string)                   { l.logger.Error().Msg(msg) }
func (l *Logger) Errorf(format string, args ...any)  { l.logger.Error().Msgf(format, args...) }
func (l *Logger) ErrorWithErr(msg string, err error) { l.logger.Error().Err(err).Msg(msg) }

type contextKey string

const requestIDKey contextKey = constants.ContextKeyRequestID

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID gets the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger is middleware for logging HTTP requests
type RequestLogger struct {
	logger    *Logger
	skipPaths map[string]bool
}

// NewRequestLogger creates request logging middleware. Requests to
// skipPaths (health checks) are served but not logged.
func NewRequestLogger(logger *Logger, skipPaths ...string) *RequestLogger {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &RequestLogger{logger: logger, skipPaths: skip}
}

// Middleware assigns a request id, then logs one line per completed request.
func (rl *RequestLogger) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(constants.HeaderRequestID, requestID)
		r = r.WithContext(SetRequestID(r.Context(), requestID))

		if rl.skipPaths[r.URL.Path] {
			next(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if rl.logger.level == LevelDebug {
			rl.logger.WithContext(r.Context()).WithFields(map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"query":  r.URL.RawQuery,
			}).Debug("Request started")
		}

		next(rw, r)

		event := rl.logger.logger.Info()
		if rw.statusCode >= 500 {
			event = rl.logger.logger.Error()
		} else if rw.statusCode >= 400 {
			event = rl.logger.logger.Warn()
		}

		event.
			Str(constants.ContextKeyRequestID, requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Int("bytes", rw.bytesWritten).
			Str("remote_addr", r.RemoteAddr).
			Msg("Request completed")
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and bytes
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

var globalLogger *Logger

// Init initializes the global logger
func Init(config LoggerConfig) {
	globalLogger = NewLogger(config)
}

// GetLogger returns the global logger, creating a json stdout logger if
// Init was never called.
func GetLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(LoggerConfig{Level: LevelInfo, Format: "json"})
	}
	return globalLogger
}

func Debug(msg string)                   { GetLogger().Debug(msg) }
func Debugf(format string, args ...any)  { GetLogger().Debugf(format, args...) }
func Info(msg string)                    { GetLogger().Info(msg) }
func Infof(format string, args ...any)   { GetLogger().Infof(format, args...) }
func Warn(msg string)                    { GetLogger().Warn(msg) }
func Warnf(format string, args ...any)   { GetLogger().Warnf(format, args...) }
func Error(msg string)                   { GetLogger().Error(msg) }
func Errorf(format string, args ...any)  { GetLogger().Errorf(format, args...) }
func ErrorWithErr(msg string, err error) { GetLogger().ErrorWithErr(msg, err) }
