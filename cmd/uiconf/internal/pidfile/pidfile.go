// Package pidfile records the serving process id so init scripts can
// find and signal it.
package pidfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
)

// ErrAlreadyRunning is returned when the PID file names a live process.
var ErrAlreadyRunning = errors.New("uiconf already running")

// Write stores the current PID in path. A stale file left by a dead
// process is replaced.
func Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	if pid, err := Read(path); err == nil && pid != os.Getpid() && alive(pid) {
		return fmt.Errorf("%w with PID %d", ErrAlreadyRunning, pid)
	}

	content := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, content, constants.FilePermissions); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Read returns the PID stored in path.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file %s: %w", path, err)
	}
	return pid, nil
}

// Remove deletes the PID file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// alive sends signal 0, which checks for existence without delivering.
// EPERM means the process exists but belongs to another user.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
