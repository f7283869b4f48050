package pkgstore

import (
	"errors"
	"fmt"
)

// Kind classifies resolution failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindNetwork
	KindStatus
	KindArchive
	KindFilesystem
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindNetwork:
		return "network failure"
	case KindStatus:
		return "bad status"
	case KindArchive:
		return "malformed archive"
	case KindFilesystem:
		return "filesystem failure"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrNotFound   = errors.New("package not found")
	ErrNetwork    = errors.New("package download failed")
	ErrStatus     = errors.New("package registry returned an error status")
	ErrArchive    = errors.New("package archive is malformed")
	ErrFilesystem = errors.New("package could not be stored")
)

// Error is a failed resolution of one reference.
type Error struct {
	Kind   Kind
	Ref    Reference
	Status int // HTTP status for KindStatus and KindNotFound from the registry
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("package %s: %s", e.Ref, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrStatus:
		return e.Kind == KindStatus
	case ErrArchive:
		return e.Kind == KindArchive
	case ErrFilesystem:
		return e.Kind == KindFilesystem
	}
	return false
}

func newError(kind Kind, ref Reference, err error) *Error {
	return &Error{Kind: kind, Ref: ref, Err: err}
}
