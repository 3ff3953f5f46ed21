package constants

import "os"

// File modes for directories and files created at startup.
// Used in: logging/logger.go, preflight/preflight.go
const (
	DirPermissions  os.FileMode = 0755
	FilePermissions os.FileMode = 0644
)
