package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ganot/taskdeck/internal/api"
	"github.com/ganot/taskdeck/internal/domain/project"
	"github.com/ganot/taskdeck/internal/domain/task"
	"github.com/ganot/taskdeck/internal/testserver"
)

func staticToken(token string) api.TokenSource {
	return func() string { return token }
}

func TestClient_LoginReturnsToken(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")

	client := api.NewClient(ts.URL(), nil)
	token, err := client.Login(context.Background(), "ada@example.com", "secret123")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestClient_LoginRejectsBadPassword(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")

	client := api.NewClient(ts.URL(), nil)
	_, err := client.Login(context.Background(), "ada@example.com", "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"Invalid email or password"}, apiErr.Messages)
}

func TestClient_LoginRequiresTokenInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, nil)
	_, err := client.Login(context.Background(), "ada@example.com", "secret123")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
}

func TestClient_SignupSurfacesValidationMessages(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")

	client := api.NewClient(ts.URL(), nil)
	err := client.Signup(context.Background(), api.SignupRequest{
		Name:                 "Ada",
		Email:                "ada@example.com",
		Password:             "short",
		PasswordConfirmation: "different",
	})

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Messages, "Email has already been taken")
	assert.Contains(t, apiErr.Messages, "Password confirmation doesn't match Password")
}

func TestClient_AttachesBearerToken(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")

	client := api.NewClient(ts.URL(), staticToken(token))
	principal, err := client.Me(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", principal.Email)
	assert.Equal(t, "Ada", principal.Name)
}

func TestClient_RejectedTokenFiresHookOnceAndReturnsError(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	ts.RevokeToken(token)

	var fired atomic.Int32
	client := api.NewClient(ts.URL(), staticToken(token))
	client.SetAuthRejectedHook(func() { fired.Add(1) })

	_, err := client.Me(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, int32(1), fired.Load())
}

func TestClient_NoHookStill401s(t *testing.T) {
	ts := testserver.New(t)

	client := api.NewClient(ts.URL(), staticToken("bogus"))
	_, err := client.Me(context.Background())

	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestClient_ListProjectsEnvelope(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	for _, name := range []string{"alpha", "beta", "gamma"} {
		ts.AddProject(name, "example.com", "")
	}

	client := api.NewClient(ts.URL(), staticToken(token))
	page, err := client.ListProjects(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Len(t, page.Projects, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Size)
}

func TestClient_ListProjectsBareArray(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	ts.AddProject("alpha", "example.com", "")
	ts.AddProject("beta", "example.com", "")
	ts.LegacyArrays = true

	client := api.NewClient(ts.URL(), staticToken(token))
	page, err := client.ListProjects(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.Len(t, page.Projects, 2)
	assert.Equal(t, 2, page.Total)
}

func TestClient_GetProjectDirectObject(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	seeded := ts.AddProject("alpha", "example.com", "the first one")

	client := api.NewClient(ts.URL(), staticToken(token))
	got, err := client.GetProject(context.Background(), seeded.ID)

	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)
	assert.Equal(t, "alpha", got.Name)
}

func TestClient_GetProjectEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"project": map[string]any{"id": 42, "name": "wrapped", "domain": "example.com"},
		})
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, staticToken("token"))
	got, err := client.GetProject(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "wrapped", got.Name)
}

func TestClient_CreateUpdateDeleteProject(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	ctx := context.Background()

	client := api.NewClient(ts.URL(), staticToken(token))

	created, err := client.CreateProject(ctx, project.CreateRequest{Name: "alpha", Domain: "example.com"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	newName := "alpha-renamed"
	updated, err := client.UpdateProject(ctx, created.ID, project.UpdateRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "alpha-renamed", updated.Name)
	assert.Equal(t, "example.com", updated.Domain)

	require.NoError(t, client.DeleteProject(ctx, created.ID))

	_, err = client.GetProject(ctx, created.ID)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClient_ListTasksEnvelope(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	p := ts.AddProject("alpha", "example.com", "")
	ts.AddTask(p.ID, "write docs", "pending")
	ts.AddTask(p.ID, "ship it", "completed")
	ts.AddTask(p.ID, "celebrate", "pending")

	client := api.NewClient(ts.URL(), staticToken(token))
	page, err := client.ListTasks(context.Background(), p.ID, 1, 2)

	require.NoError(t, err)
	assert.Len(t, page.Tasks, 2)
	assert.Equal(t, 3, page.Total)
}

func TestClient_ListTasksBareArray(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	p := ts.AddProject("alpha", "example.com", "")
	ts.AddTask(p.ID, "write docs", "pending")
	ts.LegacyArrays = true

	client := api.NewClient(ts.URL(), staticToken(token))
	page, err := client.ListTasks(context.Background(), p.ID, 1, 10)

	require.NoError(t, err)
	assert.Len(t, page.Tasks, 1)
	assert.Equal(t, 1, page.Total)
}

func TestClient_TaskLifecycle(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	p := ts.AddProject("alpha", "example.com", "")
	ctx := context.Background()

	client := api.NewClient(ts.URL(), staticToken(token))

	created, err := client.CreateTask(ctx, p.ID, task.CreateRequest{Title: "write docs"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, created.Status)

	done := task.StatusCompleted
	updated, err := client.UpdateTask(ctx, p.ID, created.ID, task.UpdateRequest{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, updated.Status)

	require.NoError(t, client.DeleteTask(ctx, p.ID, created.ID))

	page, err := client.ListTasks(ctx, p.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Tasks)
}

func TestClient_DeleteAccountRevokesToken(t *testing.T) {
	ts := testserver.New(t)
	ts.AddUser("Ada", "ada@example.com", "secret123")
	token := ts.IssueToken("ada@example.com")
	ctx := context.Background()

	client := api.NewClient(ts.URL(), staticToken(token))
	require.NoError(t, client.DeleteAccount(ctx))

	_, err := client.Me(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}
