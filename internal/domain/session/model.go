package session

import "time"

// Phase represents where the session is in its lifecycle.
type Phase string

const (
	// PhaseLoading covers the initial principal resolution after startup
	// with a stored credential.
	PhaseLoading Phase = "loading"
	// PhaseUnauthenticated means no usable credential is held.
	PhaseUnauthenticated Phase = "unauthenticated"
	// PhaseAuthenticated means a credential is held and the principal has
	// been resolved at least once since it was set, or the session was
	// optimistically committed by login.
	PhaseAuthenticated Phase = "authenticated"
)

// Principal is the resolved user identity behind the credential.
type Principal struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Snapshot is a consistent copy of the session for render paths.
type Snapshot struct {
	Phase     Phase
	Principal *Principal
	LoginAt   time.Time
}

// Authenticated reports whether the snapshot represents a live session.
func (s Snapshot) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}
