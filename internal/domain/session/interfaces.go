package session

import "context"

// API is the slice of the remote tracker the session manager needs.
type API interface {
	Me(ctx context.Context) (*Principal, error)
	DeleteAccount(ctx context.Context) error
}

// Notifier surfaces user-visible notices ("session expired", "logged out").
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}
