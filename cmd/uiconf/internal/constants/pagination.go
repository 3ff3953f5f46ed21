package constants

// Pagination constants shared by the web console and every paginated
// backend list endpoint.
const (
	// ItemsPerPage is the page size used by the web console list views.
	// The backend list handlers default to the same value and config
	// validation refuses any other pagination.page_size, so the console
	// and the server cannot drift apart.
	// Used in: pagination/pagination.go, config/config.go, handlers/frontend.go
	// Default: 10 records
	ItemsPerPage = 10

	// MaxPageSize caps the page_size query parameter.
	// Used in: pagination/pagination.go, config/config.go
	// Default: 100 records
	MaxPageSize = 100
)

// Query parameter names for pagination and filtering.
const (
	// QueryParamPage is the 1-based page number.
	QueryParamPage = "p"

	// QueryParamPageSize overrides ItemsPerPage for a single request.
	QueryParamPageSize = "page_size"

	// QueryParamAction filters task lists by task action.
	QueryParamAction = "action"

	// Activity log filters. Timestamps are unix seconds.
	QueryParamLogType        = "type"
	QueryParamUserID         = "user_id"
	QueryParamModelName      = "model_name"
	QueryParamStartTimestamp = "start_timestamp"
	QueryParamEndTimestamp   = "end_timestamp"
)
