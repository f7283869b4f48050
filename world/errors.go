package world

import (
	"errors"
	"strings"
)

var (
	ErrNoInput           = errors.New("no input selected")
	ErrRootNotFound      = errors.New("project root not found")
	ErrEntryNotFound     = errors.New("entry file not found")
	ErrEntryOutsideRoot  = errors.New("entry file is outside the project root")
	ErrFontPathNotFound  = errors.New("font path not found")
	ErrDuplicateKey      = errors.New("duplicate custom data key")
	ErrInvalidKey        = errors.New("invalid custom data key")
	ErrInvalidValue      = errors.New("invalid custom data value")
	ErrInvalidPPI        = errors.New("pixels per inch must be positive")
	ErrPackageStore      = errors.New("package store unavailable")
	ErrConflictingInputs = errors.New("more than one input selected")
)

// BuildError lists every precondition Build found violated.
type BuildError struct {
	Violations []error
}

func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return "world: invalid configuration: " + strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is and errors.As see each violation.
func (e *BuildError) Unwrap() []error { return e.Violations }
