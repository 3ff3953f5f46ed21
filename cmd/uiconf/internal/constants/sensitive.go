package constants

// SensitiveFields are log field names whose values are replaced with
// RedactedPlaceholder. Matching is case-insensitive.
var SensitiveFields = []string{
	"password",
	"token",
	"secret",
	"jwt_secret",
	"authorization",
}

// RedactedPlaceholder replaces sensitive values in logs.
const RedactedPlaceholder = "***REDACTED***"
