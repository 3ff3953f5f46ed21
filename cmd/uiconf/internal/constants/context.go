package constants

// Context key names. The logging, errors and middleware packages wrap
// these in their own unexported key types.
const (
	// ContextKeyRequestID stores the request id.
	ContextKeyRequestID = "request_id"

	// ContextKeyUserClaims stores the authenticated JWT claims.
	ContextKeyUserClaims = "user_claims"
)
