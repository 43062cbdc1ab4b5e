package profile

import "errors"

var (
	// ErrNotFound is returned when no record exists for the subject id.
	ErrNotFound = errors.New("profile: record not found")

	// ErrEmptyID is returned for operations without a subject id.
	ErrEmptyID = errors.New("profile: empty subject id")
)
