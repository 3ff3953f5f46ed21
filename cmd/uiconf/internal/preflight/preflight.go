// Package preflight prepares the directories and files uiconf needs
// before the server starts.
package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
)

// FileCheck represents a required file or directory
type FileCheck struct {
	Path      string
	IsDir     bool
	FailFatal bool // failure makes ValidateAndCreate return an error
}

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Path    string
	Exists  bool
	Created bool
	Error   error
}

// ValidateAndCreate makes sure every checked path exists with the right
// type, creating missing ones. The first fatal failure is returned after
// all checks have run.
func ValidateAndCreate(checks []FileCheck) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(checks))
	var fatal error

	for _, check := range checks {
		result := run(check)
		if result.Error != nil && check.FailFatal && fatal == nil {
			fatal = result.Error
		}
		results = append(results, result)
	}

	return results, fatal
}

func run(check FileCheck) CheckResult {
	result := CheckResult{Path: check.Path}

	info, err := os.Stat(check.Path)
	switch {
	case err == nil:
		result.Exists = true
		if check.IsDir && !info.IsDir() {
			result.Error = fmt.Errorf("path exists but is not a directory: %s", check.Path)
		} else if !check.IsDir && info.IsDir() {
			result.Error = fmt.Errorf("path exists but is a directory: %s", check.Path)
		}
	case errors.Is(err, fs.ErrNotExist):
		if check.IsDir {
			err = os.MkdirAll(check.Path, constants.DirPermissions)
		} else {
			err = touch(check.Path)
		}
		if err != nil {
			result.Error = fmt.Errorf("failed to create %s: %w", check.Path, err)
		} else {
			result.Created = true
		}
	default:
		result.Error = fmt.Errorf("failed to check path %s: %w", check.Path, err)
	}

	return result
}

// touch creates an empty file and its parent directories. It never
// overwrites an existing file.
func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return err
	}
	return f.Close()
}

// Writable reports an error unless a file can be created in dir.
func Writable(dir string) error {
	f, err := os.CreateTemp(dir, ".uiconf-preflight-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
