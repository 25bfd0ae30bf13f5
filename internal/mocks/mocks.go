// Package mocks holds testify doubles for the API interfaces the domain
// packages consume.
package mocks

import (
	"context"

	"github.com/ganot/taskdeck/internal/domain/project"
	"github.com/ganot/taskdeck/internal/domain/session"
	"github.com/ganot/taskdeck/internal/domain/task"
	"github.com/stretchr/testify/mock"
)

// ProjectAPI is a mock for project.API.
type ProjectAPI struct {
	mock.Mock
}

func (m *ProjectAPI) ListProjects(ctx context.Context, page, limit int) (project.Page, error) {
	args := m.Called(ctx, page, limit)
	if p, ok := args.Get(0).(project.Page); ok {
		return p, args.Error(1)
	}
	return project.Page{}, args.Error(1)
}

func (m *ProjectAPI) GetProject(ctx context.Context, id int64) (*project.Project, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*project.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectAPI) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	args := m.Called(ctx, req)
	if p, ok := args.Get(0).(*project.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectAPI) UpdateProject(ctx context.Context, id int64, req project.UpdateRequest) (*project.Project, error) {
	args := m.Called(ctx, id, req)
	if p, ok := args.Get(0).(*project.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectAPI) DeleteProject(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// TaskAPI is a mock for task.API.
type TaskAPI struct {
	mock.Mock
}

func (m *TaskAPI) ListTasks(ctx context.Context, projectID int64, page, limit int) (task.Page, error) {
	args := m.Called(ctx, projectID, page, limit)
	if p, ok := args.Get(0).(task.Page); ok {
		return p, args.Error(1)
	}
	return task.Page{}, args.Error(1)
}

func (m *TaskAPI) CreateTask(ctx context.Context, projectID int64, req task.CreateRequest) (*task.Task, error) {
	args := m.Called(ctx, projectID, req)
	if t, ok := args.Get(0).(*task.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskAPI) UpdateTask(ctx context.Context, projectID, id int64, req task.UpdateRequest) (*task.Task, error) {
	args := m.Called(ctx, projectID, id, req)
	if t, ok := args.Get(0).(*task.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskAPI) DeleteTask(ctx context.Context, projectID, id int64) error {
	args := m.Called(ctx, projectID, id)
	return args.Error(0)
}

// SessionAPI is a mock for session.API.
type SessionAPI struct {
	mock.Mock
}

func (m *SessionAPI) Me(ctx context.Context) (*session.Principal, error) {
	args := m.Called(ctx)
	if p, ok := args.Get(0).(*session.Principal); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionAPI) DeleteAccount(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
