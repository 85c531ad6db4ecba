package models

import "errors"

var (
	// ErrInvalidArgument is returned for malformed input. Maps to HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidFileType is returned when an upload's extension is not allowed.
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrEmptyText is returned when no text could be extracted from a file.
	ErrEmptyText = errors.New("no text found in file, check file")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstream wraps failures of the embedder or vector index. Maps to HTTP 502.
	ErrUpstream = errors.New("upstream dependency failed")
)

// IsValidation reports whether err is a client input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrInvalidFileType) || errors.Is(err, ErrEmptyText)
}
