package project

import "context"

// API is the slice of the remote tracker the project list needs.
type API interface {
	ListProjects(ctx context.Context, page, limit int) (Page, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	CreateProject(ctx context.Context, req CreateRequest) (*Project, error)
	UpdateProject(ctx context.Context, id int64, req UpdateRequest) (*Project, error)
	DeleteProject(ctx context.Context, id int64) error
}
