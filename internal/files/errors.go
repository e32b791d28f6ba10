package files

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the referenced name does not exist in the
// queried bucket.
var ErrNotFound = errors.New("file not found")

// ErrInvalidImage is returned when uploaded or staged bytes are not a
// decodable image. Never worth retrying.
var ErrInvalidImage = errors.New("invalid image")

// ProfileError reports a processing run where one or more per-profile
// operations failed. Succeeded profiles are durably stored; callers should
// retry only the failed ones.
type ProfileError struct {
	Succeeded []string
	Failed    []string
	err       error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("profiles failed: %s (succeeded: %s): %v",
		strings.Join(e.Failed, ", "), strings.Join(e.Succeeded, ", "), e.err)
}

func (e *ProfileError) Unwrap() error {
	return e.err
}
