package task

import "errors"

var (
	// ErrTaskNotFound indicates the task isn't in the current page.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidInput indicates invalid task input.
	ErrInvalidInput = errors.New("invalid task input")
)
