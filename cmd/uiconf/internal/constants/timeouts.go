package constants

import "time"

// Timeout and duration constants.
const (
	// ShutdownTimeout is the maximum time allowed for graceful shutdown.
	// Used in: server/server.go
	ShutdownTimeout = 30 * time.Second

	// HTTPReadTimeout bounds reading the whole request including the body.
	HTTPReadTimeout = 15 * time.Second

	// HTTPWriteTimeout bounds writing the response. It must exceed
	// RatioSyncTimeout because the sync handler waits on upstreams.
	HTTPWriteTimeout = 30 * time.Second

	// HTTPIdleTimeout is the keep-alive idle limit.
	HTTPIdleTimeout = 60 * time.Second

	// HealthCheckTimeout bounds a single health check.
	// Used in: health/health.go
	HealthCheckTimeout = 5 * time.Second

	// JWTClockSkew is the leeway applied to exp/nbf/iat validation.
	// Used in: middleware/auth.go
	JWTClockSkew = 30 * time.Second

	// RatioSyncTimeout is the default per-upstream fetch timeout.
	// Used in: ratiosync/ratiosync.go, config/config.go
	RatioSyncTimeout = 10 * time.Second
)

// RatioSyncConcurrency is the default number of upstreams fetched at once.
const RatioSyncConcurrency = 4
