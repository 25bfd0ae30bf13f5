package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ganot/taskdeck/internal/credstore"
	"github.com/ganot/taskdeck/internal/domain/session"
	"github.com/stretchr/testify/require"
)

// gatedAPI is a session.API double whose Me can be held open to model an
// in-flight principal fetch.
type gatedAPI struct {
	mu        sync.Mutex
	meCalls   int
	gate      chan struct{}
	principal *session.Principal
	meErr     error
	deleteErr error
}

func (a *gatedAPI) Me(context.Context) (*session.Principal, error) {
	a.mu.Lock()
	a.meCalls++
	gate := a.gate
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.principal, a.meErr
}

func (a *gatedAPI) DeleteAccount(context.Context) error {
	return a.deleteErr
}

func (a *gatedAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meCalls
}

type recordingNotifier struct {
	mu        sync.Mutex
	infos     []string
	successes []string
	errs      []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	n.infos = append(n.infos, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	n.successes = append(n.successes, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	n.errs = append(n.errs, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

func (n *recordingNotifier) infoCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.infos)
}

func TestManager_StartWithoutCredential(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{}
	store := credstore.NewMemoryStore()

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)

	require.NoError(t, m.Start(ctx))
	require.Equal(t, session.PhaseUnauthenticated, m.Snapshot().Phase)
	require.Zero(t, api.calls())
}

func TestManager_StartRestoresSession(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{principal: &session.Principal{ID: 1, Name: "Ada", Email: "ada@example.com"}}
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(ctx, credstore.Credential{Token: "tok", LoginAt: time.Now()}))

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)

	require.NoError(t, m.Start(ctx))
	snap := m.Snapshot()
	require.Equal(t, session.PhaseAuthenticated, snap.Phase)
	require.NotNil(t, snap.Principal)
	require.Equal(t, "ada@example.com", snap.Principal.Email)
}

func TestManager_StartRejectedCredentialClearsStore(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{meErr: errors.New("401")}
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(ctx, credstore.Credential{Token: "stale", LoginAt: time.Now()}))

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)

	require.NoError(t, m.Start(ctx))
	require.Equal(t, session.PhaseUnauthenticated, m.Snapshot().Phase)
	_, err := store.Read(ctx)
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestManager_StartExpiredCredential(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{principal: &session.Principal{ID: 1}}
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(ctx, credstore.Credential{
		Token:   "old",
		LoginAt: time.Now().Add(-3 * time.Hour),
	}))

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)

	require.NoError(t, m.Start(ctx))
	require.Equal(t, session.PhaseUnauthenticated, m.Snapshot().Phase)
	require.Zero(t, api.calls())
	_, err := store.Read(ctx)
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestManager_LoginThenLogoutLeavesStoreEmpty(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{principal: &session.Principal{ID: 1}}
	store := credstore.NewMemoryStore()

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))

	require.NoError(t, m.Login(ctx, "tok-1"))
	require.Equal(t, session.PhaseAuthenticated, m.Snapshot().Phase)

	cred, err := store.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1", cred.Token)

	m.Logout(ctx)
	require.Equal(t, session.PhaseUnauthenticated, m.Snapshot().Phase)
	_, err = store.Read(ctx)
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestManager_LoginKeepsSessionWhenProfileFetchFails(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{meErr: errors.New("boom")}
	store := credstore.NewMemoryStore()
	notifier := &recordingNotifier{}

	m := session.NewManager(api, store, session.WithNotifier(notifier))
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))

	require.NoError(t, m.Login(ctx, "tok"))

	require.Eventually(t, func() bool {
		return notifier.errorCount() == 1
	}, time.Second, 5*time.Millisecond)

	// The login stands; only a warning was surfaced.
	snap := m.Snapshot()
	require.Equal(t, session.PhaseAuthenticated, snap.Phase)
	require.Nil(t, snap.Principal)
}

func TestManager_ExpiryForcesLogout(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{principal: &session.Principal{ID: 1}}
	store := credstore.NewMemoryStore()
	notifier := &recordingNotifier{}

	var clockMu sync.Mutex
	current := time.Now()
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return current
	}

	m := session.NewManager(api, store,
		session.WithNotifier(notifier),
		session.WithClock(clock),
		session.WithLifetime(time.Minute),
		session.WithCheckInterval(5*time.Millisecond),
	)
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Login(ctx, "tok"))

	clockMu.Lock()
	current = current.Add(2 * time.Minute)
	clockMu.Unlock()

	require.Eventually(t, func() bool {
		return m.Snapshot().Phase == session.PhaseUnauthenticated
	}, time.Second, 5*time.Millisecond)

	_, err := store.Read(ctx)
	require.ErrorIs(t, err, credstore.ErrNotFound)
	require.Eventually(t, func() bool {
		return notifier.errorCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestManager_AuthRejectedTeardownHappensOnce(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{principal: &session.Principal{ID: 1}}
	store := credstore.NewMemoryStore()
	notifier := &recordingNotifier{}

	m := session.NewManager(api, store, session.WithNotifier(notifier))
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Login(ctx, "tok"))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.HandleAuthRejected()
		}()
	}
	wg.Wait()

	require.Equal(t, session.PhaseUnauthenticated, m.Snapshot().Phase)
	require.Equal(t, 1, notifier.errorCount())
}

func TestManager_NoDuplicatePrincipalFetchInFlight(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	api := &gatedAPI{principal: &session.Principal{ID: 1}, gate: gate}
	store := credstore.NewMemoryStore()

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Login(ctx, "tok"))

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.RefreshPrincipal(ctx)
		}()
	}

	// Give the refreshers a moment to pile onto the shared fetch.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, 1, api.calls())
	require.Equal(t, session.PhaseAuthenticated, m.Snapshot().Phase)
}

func TestManager_StaleFetchAfterLogoutIsDiscarded(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	api := &gatedAPI{principal: &session.Principal{ID: 1, Name: "Ghost"}, gate: gate}
	store := credstore.NewMemoryStore()

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Login(ctx, "tok"))

	// Logout while the principal fetch is still in flight.
	m.Logout(ctx)
	close(gate)

	require.Never(t, func() bool {
		snap := m.Snapshot()
		return snap.Phase == session.PhaseAuthenticated || snap.Principal != nil
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestManager_LogoutTwiceSecondIsNoop(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{principal: &session.Principal{ID: 1}}
	store := credstore.NewMemoryStore()
	notifier := &recordingNotifier{}

	m := session.NewManager(api, store, session.WithNotifier(notifier))
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Login(ctx, "tok"))

	m.Logout(ctx)
	m.Logout(ctx)
	require.Equal(t, 1, notifier.infoCount())
}

func TestManager_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{principal: &session.Principal{ID: 1}}
	store := credstore.NewMemoryStore()

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Login(ctx, "tok"))

	require.NoError(t, m.DeleteAccount(ctx))
	require.Equal(t, session.PhaseUnauthenticated, m.Snapshot().Phase)
	_, err := store.Read(ctx)
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestManager_DeleteAccountFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	api := &gatedAPI{principal: &session.Principal{ID: 1}, deleteErr: errors.New("5xx")}
	store := credstore.NewMemoryStore()

	m := session.NewManager(api, store)
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Login(ctx, "tok"))

	require.Error(t, m.DeleteAccount(ctx))
	require.Equal(t, session.PhaseAuthenticated, m.Snapshot().Phase)

	cred, err := store.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok", cred.Token)
}

func TestManager_DeleteAccountRequiresSession(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(&gatedAPI{}, credstore.NewMemoryStore())
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(ctx))

	require.ErrorIs(t, m.DeleteAccount(ctx), session.ErrNotAuthenticated)
}

func TestManager_LoginRejectsEmptyToken(t *testing.T) {
	m := session.NewManager(&gatedAPI{}, credstore.NewMemoryStore())
	t.Cleanup(m.Close)
	require.ErrorIs(t, m.Login(context.Background(), ""), session.ErrInvalidInput)
}
