package constants

// Database error detection patterns, matched against driver error
// messages by errors.MapDatabaseError.
var (
	DuplicateKeyPatterns = []string{
		"duplicate",
		"unique constraint",
		"UNIQUE constraint",
	}

	ConnectionErrorPatterns = []string{
		"connection refused",
		"no such host",
		"timeout",
	}
)
