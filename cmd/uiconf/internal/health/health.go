// Package health serves the liveness and readiness checks.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Time    time.Time     `json:"time"`
	Latency time.Duration `json:"latency,omitempty"`
}

// HealthResponse is the response for /health endpoint
type HealthResponse struct {
	Status    Status    `json:"status"`
	Database  string    `json:"database,omitempty"`
	Models    int       `json:"models"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadinessResponse is the response for /health/ready endpoint
type ReadinessResponse struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
}

// Checker is a function that performs a health check
type Checker func(ctx context.Context) CheckResult

// DatabaseChecker is satisfied by database.Driver.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// ModelCounter reports how many model ratios are stored.
type ModelCounter interface {
	Count(ctx context.Context) (int, error)
}

// Config holds configuration for the health checker
type Config struct {
	// Timeout bounds each check
	Timeout time.Duration

	Version  string
	Database string // dialect name shown in liveness responses
}

// Service provides health check functionality
type Service struct {
	config   Config
	db       DatabaseChecker
	models   ModelCounter
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewService creates a health service. db and models may be nil.
func NewService(config Config, db DatabaseChecker, models ModelCounter) *Service {
	if config.Timeout <= 0 {
		config.Timeout = constants.HealthCheckTimeout
	}
	return &Service{
		config:   config,
		db:       db,
		models:   models,
		checkers: make(map[string]Checker),
	}
}

// RegisterChecker adds a named readiness check.
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// LivenessHandler returns 200 while the database answers pings.
func (s *Service) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()

	response := HealthResponse{
		Status:    StatusHealthy,
		Database:  s.config.Database,
		Timestamp: time.Now().UTC(),
		Version:   s.config.Version,
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			response.Status = StatusUnhealthy
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	if s.models != nil {
		if n, err := s.models.Count(ctx); err == nil {
			response.Models = n
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// ReadinessHandler runs every check. A failing database or custom check
// makes the service unhealthy; an unreadable ratio table only degrades it.
func (s *Service) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult),
		Timestamp: time.Now().UTC(),
	}

	if s.db != nil {
		response.add("database", FuncChecker("Database", s.db.Ping)(ctx))
	}
	if s.models != nil {
		response.add("ratios", s.checkModels(ctx))
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = s.checkers[name]
	}
	s.mu.RUnlock()

	for i, checker := range checkers {
		response.add(names[i], checker(ctx))
	}

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}

func (r *ReadinessResponse) add(name string, result CheckResult) {
	r.Checks[name] = result
	switch {
	case result.Status == StatusUnhealthy:
		r.Status = StatusUnhealthy
	case result.Status == StatusDegraded && r.Status == StatusHealthy:
		r.Status = StatusDegraded
	}
}

func (s *Service) checkModels(ctx context.Context) CheckResult {
	start := time.Now()
	n, err := s.models.Count(ctx)
	if err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "Model ratios unavailable: " + err.Error(),
			Time:    start,
			Latency: time.Since(start),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d model ratios", n),
		Time:    start,
		Latency: time.Since(start),
	}
}

// FuncChecker wraps a check function; a non-nil error is unhealthy.
func FuncChecker(name string, check func(ctx context.Context) error) Checker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		if err := check(ctx); err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: name + " is unavailable: " + err.Error(),
				Time:    start,
				Latency: time.Since(start),
			}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Message: name + " is available",
			Time:    start,
			Latency: time.Since(start),
		}
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set(constants.HeaderContentType, constants.MIMEApplicationJSON)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
