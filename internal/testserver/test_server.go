// Package testserver runs an in-process fake of the remote tracker API so
// client tests can exercise real HTTP round-trips, pagination shapes, and
// credential rejection without a live backend.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// Project mirrors the tracker's project resource, counts included.
type Project struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	Description    string `json:"description,omitempty"`
	CompletedTasks int    `json:"completed_tasks"`
	TotalTasks     int    `json:"total_tasks"`
}

// Task mirrors the tracker's task resource.
type Task struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

// TestServer is the fake tracker plus handles for seeding and sabotage.
type TestServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	nextID   int64
	users    map[string]*User // by email
	tokens   map[string]int64 // token -> user ID
	projects map[int64]*Project
	tasks    map[int64]*Task

	// LegacyArrays makes list endpoints answer with a bare array instead
	// of the envelope, like older deployments.
	LegacyArrays bool
}

// New starts the fake tracker and registers its shutdown with t.
func New(t *testing.T) *TestServer {
	t.Helper()

	ts := &TestServer{
		nextID:   1,
		users:    make(map[string]*User),
		tokens:   make(map[string]int64),
		projects: make(map[int64]*Project),
		tasks:    make(map[int64]*Task),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", ts.handleLogin)
	mux.HandleFunc("POST /signup", ts.handleSignup)
	mux.HandleFunc("GET /me", ts.withAuth(ts.handleMe))
	mux.HandleFunc("DELETE /account", ts.withAuth(ts.handleDeleteAccount))
	mux.HandleFunc("GET /projects", ts.withAuth(ts.handleListProjects))
	mux.HandleFunc("POST /projects", ts.withAuth(ts.handleCreateProject))
	mux.HandleFunc("GET /projects/{id}", ts.withAuth(ts.handleGetProject))
	mux.HandleFunc("PATCH /projects/{id}", ts.withAuth(ts.handleUpdateProject))
	mux.HandleFunc("DELETE /projects/{id}", ts.withAuth(ts.handleDeleteProject))
	mux.HandleFunc("GET /projects/{id}/tasks", ts.withAuth(ts.handleListTasks))
	mux.HandleFunc("POST /projects/{id}/tasks", ts.withAuth(ts.handleCreateTask))
	mux.HandleFunc("PATCH /projects/{id}/tasks/{taskID}", ts.withAuth(ts.handleUpdateTask))
	mux.HandleFunc("DELETE /projects/{id}/tasks/{taskID}", ts.withAuth(ts.handleDeleteTask))

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Server.Close)

	return ts
}

// URL returns the fake tracker's base URL.
func (ts *TestServer) URL() string {
	return ts.Server.URL
}

// AddUser seeds an account and returns it.
func (ts *TestServer) AddUser(name, email, password string) *User {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	u := &User{ID: ts.nextIDLocked(), Name: name, Email: email, Password: password}
	ts.users[email] = u
	return u
}

// IssueToken mints a valid token for email. The user must exist.
func (ts *TestServer) IssueToken(email string) string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	u, ok := ts.users[email]
	if !ok {
		panic(fmt.Sprintf("testserver: no user %q", email))
	}
	token := uuid.NewString()
	ts.tokens[token] = u.ID
	return token
}

// RevokeToken invalidates a token so the next use of it answers 401.
func (ts *TestServer) RevokeToken(token string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.tokens, token)
}

// RevokeAllTokens invalidates every outstanding token.
func (ts *TestServer) RevokeAllTokens() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tokens = make(map[string]int64)
}

// AddProject seeds a project.
func (ts *TestServer) AddProject(name, domain, description string) *Project {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	p := &Project{ID: ts.nextIDLocked(), Name: name, Domain: domain, Description: description}
	ts.projects[p.ID] = p
	return p
}

// AddTask seeds a task and refreshes the project's counts.
func (ts *TestServer) AddTask(projectID int64, title, status string) *Task {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	task := &Task{ID: ts.nextIDLocked(), ProjectID: projectID, Title: title, Status: status}
	ts.tasks[task.ID] = task
	ts.recountLocked(projectID)
	return task
}

func (ts *TestServer) nextIDLocked() int64 {
	id := ts.nextID
	ts.nextID++
	return id
}

func (ts *TestServer) recountLocked(projectID int64) {
	p, ok := ts.projects[projectID]
	if !ok {
		return
	}
	total, completed := 0, 0
	for _, task := range ts.tasks {
		if task.ProjectID != projectID {
			continue
		}
		total++
		if task.Status == "completed" {
			completed++
		}
	}
	p.TotalTasks = total
	p.CompletedTasks = completed
}

func (ts *TestServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		ts.mu.Lock()
		_, ok := ts.tokens[token]
		ts.mu.Unlock()

		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next(w, r)
	}
}

func (ts *TestServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	u, ok := ts.users[req.Email]
	if !ok || u.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}

	token := uuid.NewString()
	ts.tokens[token] = u.ID
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (ts *TestServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			Name                 string `json:"name"`
			Email                string `json:"email"`
			Password             string `json:"password"`
			PasswordConfirmation string `json:"password_confirmation"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	var problems []string
	if req.User.Email == "" {
		problems = append(problems, "Email can't be blank")
	}
	if len(req.User.Password) < 6 {
		problems = append(problems, "Password is too short (minimum is 6 characters)")
	}
	if req.User.Password != req.User.PasswordConfirmation {
		problems = append(problems, "Password confirmation doesn't match Password")
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.users[req.User.Email]; exists {
		problems = append(problems, "Email has already been taken")
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": problems})
		return
	}

	u := &User{
		ID:       ts.nextIDLocked(),
		Name:     req.User.Name,
		Email:    req.User.Email,
		Password: req.User.Password,
	}
	ts.users[u.Email] = u
	writeJSON(w, http.StatusCreated, u)
}

func (ts *TestServer) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := ts.userIDFor(r)

	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, u := range ts.users {
		if u.ID == userID {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
}

func (ts *TestServer) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := ts.userIDFor(r)

	ts.mu.Lock()
	defer ts.mu.Unlock()
	for email, u := range ts.users {
		if u.ID == userID {
			delete(ts.users, email)
			break
		}
	}
	for token, id := range ts.tokens {
		if id == userID {
			delete(ts.tokens, token)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ts *TestServer) handleListProjects(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	ts.mu.Lock()
	all := make([]Project, 0, len(ts.projects))
	for _, p := range ts.projects {
		all = append(all, *p)
	}
	legacy := ts.LegacyArrays
	ts.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	window := paginate(all, page, limit)

	if legacy {
		writeJSON(w, http.StatusOK, window)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects":       window,
		"total_projects": total,
		"page":           page,
		"limit":          limit,
	})
}

func (ts *TestServer) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Domain      string `json:"domain"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": {"Name can't be blank"}})
		return
	}

	ts.mu.Lock()
	p := &Project{ID: ts.nextIDLocked(), Name: req.Name, Domain: req.Domain, Description: req.Description}
	ts.projects[p.ID] = p
	ts.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (ts *TestServer) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")

	ts.mu.Lock()
	defer ts.mu.Unlock()
	p, ok := ts.projects[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (ts *TestServer) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")

	var req struct {
		Name        *string `json:"name"`
		Domain      *string `json:"domain"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	p, ok := ts.projects[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Domain != nil {
		p.Domain = *req.Domain
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	writeJSON(w, http.StatusOK, p)
}

func (ts *TestServer) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, ok := ts.projects[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return
	}
	delete(ts.projects, id)
	for taskID, task := range ts.tasks {
		if task.ProjectID == id {
			delete(ts.tasks, taskID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ts *TestServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID := pathID(r, "id")
	page, limit := pageParams(r)

	ts.mu.Lock()
	all := make([]Task, 0)
	for _, task := range ts.tasks {
		if task.ProjectID == projectID {
			all = append(all, *task)
		}
	}
	legacy := ts.LegacyArrays
	ts.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	window := paginate(all, page, limit)

	if legacy {
		writeJSON(w, http.StatusOK, window)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks":       window,
		"total_tasks": total,
		"page":        page,
		"limit":       limit,
	})
}

func (ts *TestServer) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	projectID := pathID(r, "id")

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": {"Title can't be blank"}})
		return
	}
	if req.Status == "" {
		req.Status = "pending"
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, ok := ts.projects[projectID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return
	}
	task := &Task{
		ID:          ts.nextIDLocked(),
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	ts.tasks[task.ID] = task
	ts.recountLocked(projectID)
	writeJSON(w, http.StatusCreated, task)
}

func (ts *TestServer) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	projectID := pathID(r, "id")
	taskID := pathID(r, "taskID")

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	task, ok := ts.tasks[taskID]
	if !ok || task.ProjectID != projectID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	ts.recountLocked(projectID)
	writeJSON(w, http.StatusOK, task)
}

func (ts *TestServer) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	projectID := pathID(r, "id")
	taskID := pathID(r, "taskID")

	ts.mu.Lock()
	defer ts.mu.Unlock()
	task, ok := ts.tasks[taskID]
	if !ok || task.ProjectID != projectID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	delete(ts.tasks, taskID)
	ts.recountLocked(projectID)
	w.WriteHeader(http.StatusNoContent)
}

func (ts *TestServer) userIDFor(r *http.Request) int64 {
	auth := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.tokens[token]
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := min(start+limit, len(items))
	return items[start:end]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
