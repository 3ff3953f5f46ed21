// Package ulid generates and validates the ULIDs used as task ids.
// Ids from one process sort by creation order, including ids created in
// the same millisecond.
package ulid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrInvalidULID indicates that a ULID string is malformed or invalid
var ErrInvalidULID = errors.New("invalid ULID format")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// GenerateWithTime creates a ULID for t. Calls within the same
// millisecond return increasing ids.
func GenerateWithTime(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Validate checks that str is a canonical 26 character ULID.
func Validate(str string) error {
	if len(str) != ulid.EncodedSize {
		return fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidULID, ulid.EncodedSize, len(str))
	}
	if _, err := ulid.ParseStrict(str); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidULID, err)
	}
	return nil
}
