package storage

import "errors"

// Error kinds returned by every store. Callers branch with errors.Is and the
// HTTP layer maps each kind to a status code.
var (
	// ErrNotFound means the addressed row does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists means a unique key (email, CPF) is taken
	ErrAlreadyExists = errors.New("already exists")

	// ErrInUse means the row is still referenced and cannot be removed
	ErrInUse = errors.New("in use")

	// ErrInvalidReference means a foreign key points at a missing row
	ErrInvalidReference = errors.New("invalid reference")
)
