// Package constants holds the values shared between the uiconf server and
// the web console: the console table (page size, ratio config endpoint,
// storage key, API routes, task actions) plus the server's own headers,
// timeouts and paths.
package constants

// HTTP header names.
const (
	// HeaderRequestID carries the request correlation id.
	// Used in: errors/errors.go, logging/logger.go
	HeaderRequestID = "X-Request-ID"

	// HeaderAuthorization carries "Bearer <jwt>".
	// Used in: middleware/auth.go
	HeaderAuthorization = "Authorization"

	// HeaderContentType is the standard HTTP Content-Type header.
	HeaderContentType = "Content-Type"
)

// MIME types used in HTTP responses.
const (
	MIMEApplicationJSON = "application/json"
	MIMETextPlain       = "text/plain; charset=utf-8"
)

// AuthSchemeBearer is the Authorization scheme for JWTs.
const AuthSchemeBearer = "Bearer"

// RoleAdmin is the JWT role allowed to edit ratios and run upstream syncs.
const RoleAdmin = "admin"
