package fontcache

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFaces is returned for font files that contain no faces.
	ErrNoFaces = errors.New("font file contains no faces")
	// ErrNoFamily is returned for faces without a family name.
	ErrNoFamily = errors.New("font face has no family name")
	// ErrChanged is returned when a font file no longer matches the content it was registered with.
	ErrChanged = errors.New("font file changed since it was registered")
	// ErrNoPayload is returned for entries whose bytes can no longer be read.
	ErrNoPayload = errors.New("font entry has no readable source")
)

// FontError reports a font source that could not be read or parsed.
type FontError struct {
	Path string
	Err  error
}

func (e *FontError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("font: %v", e.Err)
	}
	return fmt.Sprintf("font %s: %v", e.Path, e.Err)
}

func (e *FontError) Unwrap() error { return e.Err }
