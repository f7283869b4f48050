package engine

import "errors"

var (
	ErrNotFound     = errors.New("file not found")
	ErrAccessDenied = errors.New("access denied")
	ErrIsDirectory  = errors.New("is a directory")
	ErrNotSource    = errors.New("file is not valid UTF-8")
	ErrBadPath      = errors.New("malformed file reference")
)
