package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ganot/taskdeck/internal/credstore"
)

const (
	defaultLifetime      = 2 * time.Hour
	defaultCheckInterval = time.Minute
)

// Manager owns the one session of a running client: the credential, the
// resolved principal, the phase state machine, and the expiry schedule. It
// is the sole writer of the credential store.
type Manager struct {
	api      API
	store    credstore.Store
	logger   *slog.Logger
	notifier Notifier

	lifetime      time.Duration
	checkInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	phase     Phase
	token     string
	loginAt   time.Time
	principal *Principal
	// epoch increments on every credential change and teardown. Async
	// results apply only when the epoch they started under still holds,
	// so a stale response can never resurrect a dead session.
	epoch    uint64
	inflight *principalFetch

	stop     chan struct{}
	stopOnce sync.Once
	started  bool
}

// principalFetch is one in-flight principal resolution. Concurrent callers
// for the same token share it instead of issuing duplicate requests.
type principalFetch struct {
	token     string
	done      chan struct{}
	principal *Principal
	err       error
}

// NewManager creates a session manager. It does nothing until Start.
func NewManager(api API, store credstore.Store, opts ...Option) *Manager {
	m := &Manager{
		api:           api,
		store:         store,
		logger:        slog.New(slog.DiscardHandler),
		notifier:      noopNotifier{},
		lifetime:      defaultLifetime,
		checkInterval: defaultCheckInterval,
		now:           time.Now,
		phase:         PhaseUnauthenticated,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start restores the session from the credential store and launches the
// expiry schedule. A stored credential that fails resolution is cleared;
// unavailable storage degrades to unauthenticated. Never fatal.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	defer m.startExpiryLoop()

	cred, err := m.store.Read(ctx)
	if err != nil {
		// Absence and unavailable storage look the same from here.
		m.mu.Lock()
		m.phase = PhaseUnauthenticated
		m.mu.Unlock()
		return nil
	}

	if m.now().Sub(cred.LoginAt) >= m.lifetime {
		m.logger.Info("stored credential already expired")
		m.clearStore(ctx)
		return nil
	}

	m.mu.Lock()
	m.token = cred.Token
	m.loginAt = cred.LoginAt
	m.phase = PhaseLoading
	epoch := m.epoch
	fetch := m.ensureFetchLocked(cred.Token)
	m.mu.Unlock()

	if _, err := m.await(ctx, fetch); err != nil {
		m.logger.Info("stored credential rejected", "error", err)
		m.teardownIfEpoch(epoch)
	}

	return nil
}

// Login installs a freshly issued credential. The session is committed
// optimistically: principal resolution runs in the background, and a
// resolution failure only surfaces a warning, it does not revert the login.
func (m *Manager) Login(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidInput
	}

	loginAt := m.now()
	if err := m.store.Save(ctx, credstore.Credential{Token: token, LoginAt: loginAt}); err != nil {
		// Degrade to a non-durable session rather than failing the login.
		m.logger.Warn("persisting credential", "error", err)
	}

	m.mu.Lock()
	m.token = token
	m.loginAt = loginAt
	m.principal = nil
	m.phase = PhaseAuthenticated
	m.epoch++
	fetch := m.ensureFetchLocked(token)
	m.mu.Unlock()

	go func() {
		if _, err := m.await(context.Background(), fetch); err != nil {
			m.notifier.Error("Failed to load user")
		}
	}()

	return nil
}

// Logout tears the session down. Calling it twice is a no-op the second
// time.
func (m *Manager) Logout(ctx context.Context) {
	if m.teardown(ctx) {
		m.notifier.Info("Logged out successfully")
	}
}

// HandleAuthRejected is the credential-rejection path wired to the HTTP
// client's 401 hook. Teardown happens at most once per session no matter
// how many rejected responses arrive.
func (m *Manager) HandleAuthRejected() {
	if m.teardown(context.Background()) {
		m.notifier.Error("Session expired, please log in again")
	}
}

// DeleteAccount deletes the account server-side, then tears the session
// down. On failure the session is left untouched.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	m.mu.Lock()
	authed := m.phase == PhaseAuthenticated
	m.mu.Unlock()
	if !authed {
		return ErrNotAuthenticated
	}

	if err := m.api.DeleteAccount(ctx); err != nil {
		m.notifier.Error("Failed to delete account")
		return fmt.Errorf("deleting account: %w", err)
	}

	if m.teardown(ctx) {
		m.notifier.Success("Account deleted")
	}
	return nil
}

// RefreshPrincipal re-resolves the principal for the current credential,
// sharing any resolution already in flight for the same token.
func (m *Manager) RefreshPrincipal(ctx context.Context) (*Principal, error) {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	fetch := m.ensureFetchLocked(m.token)
	m.mu.Unlock()

	return m.await(ctx, fetch)
}

// Token returns the current credential, or "" when logged out. Callers must
// not cache it beyond a single request.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Snapshot returns a consistent copy of the session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{Phase: m.phase, LoginAt: m.loginAt}
	if m.principal != nil {
		p := *m.principal
		snap.Principal = &p
	}
	return snap
}

// Close stops the expiry schedule. The manager must not be reused after.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// ensureFetchLocked returns the in-flight resolution for token, starting
// one if none exists. Caller holds m.mu.
func (m *Manager) ensureFetchLocked(token string) *principalFetch {
	if m.inflight != nil && m.inflight.token == token {
		return m.inflight
	}
	fetch := &principalFetch{token: token, done: make(chan struct{})}
	m.inflight = fetch
	go m.runFetch(fetch, m.epoch)
	return fetch
}

// runFetch resolves the principal and applies the result only if the
// session hasn't moved on since the fetch began.
func (m *Manager) runFetch(fetch *principalFetch, epoch uint64) {
	principal, err := m.api.Me(context.Background())
	fetch.principal, fetch.err = principal, err

	m.mu.Lock()
	if m.inflight == fetch {
		m.inflight = nil
	}
	if err == nil && m.epoch == epoch && m.token == fetch.token {
		m.principal = principal
		m.phase = PhaseAuthenticated
	}
	m.mu.Unlock()

	close(fetch.done)
}

func (m *Manager) await(ctx context.Context, fetch *principalFetch) (*Principal, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fetch.done:
		if fetch.err != nil {
			return nil, fmt.Errorf("resolving principal: %w", fetch.err)
		}
		return fetch.principal, nil
	}
}

// teardown clears the credential store and resets the in-memory session.
// Returns false when there was nothing to tear down.
func (m *Manager) teardown(ctx context.Context) bool {
	m.mu.Lock()
	torn := m.teardownLocked()
	m.mu.Unlock()

	if torn {
		m.clearStore(ctx)
	}
	return torn
}

// teardownIfEpoch tears down only if the session hasn't changed since
// epoch was captured; a login that raced ahead is left alone.
func (m *Manager) teardownIfEpoch(epoch uint64) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	torn := m.teardownLocked()
	m.mu.Unlock()

	if torn {
		m.clearStore(context.Background())
	}
	return torn
}

func (m *Manager) teardownLocked() bool {
	if m.phase == PhaseUnauthenticated && m.token == "" {
		return false
	}
	m.token = ""
	m.loginAt = time.Time{}
	m.principal = nil
	m.phase = PhaseUnauthenticated
	m.epoch++
	return true
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("clearing credential store", "error", err)
	}
}

func (m *Manager) startExpiryLoop() {
	go func() {
		ticker := time.NewTicker(m.checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.checkExpiry()
			}
		}
	}()
}

func (m *Manager) checkExpiry() {
	m.mu.Lock()
	expired := m.phase == PhaseAuthenticated &&
		!m.loginAt.IsZero() &&
		m.now().Sub(m.loginAt) >= m.lifetime
	m.mu.Unlock()

	if !expired {
		return
	}
	if m.teardown(context.Background()) {
		m.logger.Info("session lifetime exceeded")
		m.notifier.Error("Session expired, please log in again")
	}
}

type noopNotifier struct{}

func (noopNotifier) Info(string)    {}
func (noopNotifier) Success(string) {}
func (noopNotifier) Error(string)   {}
