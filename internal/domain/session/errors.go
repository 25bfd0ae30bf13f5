package session

import "errors"

var (
	// ErrNotAuthenticated indicates an operation that needs a live session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
)
