package constants

// DefaultEndpoint is the ratio config route used when no explicit
// endpoint is configured, both for serving local ratios and for fetching
// them from upstream instances.
// Used in: config/config.go, ratiosync/ratiosync.go, handlers/frontend.go
const DefaultEndpoint = "/api/ratio_config"

// HTTP routes served by uiconf. The server prepends server.prefix.
const (
	// RouteHealth is the liveness check.
	RouteHealth = "/health"

	// RouteHealthReady is the readiness check.
	RouteHealthReady = "/health/ready"

	// RouteFrontendConstants publishes this package's console table so the
	// web console does not keep its own copy of the literals.
	RouteFrontendConstants = "/api/frontend/constants"

	// RouteRatioModels lists and edits individual model ratio entries.
	RouteRatioModels = "/api/ratio_config/models"

	// RouteRatioSyncFetch compares local ratios against upstream instances.
	RouteRatioSyncFetch = "/api/ratio_sync/fetch"

	// RouteTask creates and lists task records.
	RouteTask = "/api/task"

	// RouteLog pages through the activity log.
	RouteLog = "/api/log"
)

// IsReservedRoute reports whether path is one of the fixed routes above
// or the root, which a configured ratio endpoint must not shadow.
func IsReservedRoute(path string) bool {
	switch path {
	case "/", RouteHealth, RouteHealthReady, RouteFrontendConstants,
		RouteRatioModels, RouteRatioSyncFetch, RouteTask, RouteLog:
		return true
	}
	return false
}

// Default file and directory paths.
const (
	// DefaultConfigPath is read when --config is not given.
	DefaultConfigPath = "/etc/uiconf.conf"

	// DefaultLogDirectory holds LogFileName.
	DefaultLogDirectory = "/var/log/uiconf"

	// LogFileName is the service log inside logging.path.
	LogFileName = "main.log"

	// DefaultSQLitePath is the database file for the default sqlite connection.
	DefaultSQLitePath = "/opt/uiconf/uiconf.db"
)
