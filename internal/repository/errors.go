package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a unique-key violation on create or update.
	ErrConflict = errors.New("repository: conflict")
)
