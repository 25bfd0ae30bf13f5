// Package credstore persists the authentication credential across process
// restarts. The session manager is the sole writer; everything else only
// reads at request-construction time.
package credstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no credential is stored.
var ErrNotFound = errors.New("credential not found")

// Credential is the stored token plus the instant it was issued to us.
// The token is opaque; nothing here inspects it.
type Credential struct {
	Token   string
	LoginAt time.Time
}

// Store is durable key-value storage for a single credential.
type Store interface {
	Save(ctx context.Context, cred Credential) error
	Read(ctx context.Context) (Credential, error)
	Clear(ctx context.Context) error
}
