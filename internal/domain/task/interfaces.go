package task

import "context"

// API is the slice of the remote tracker the task list needs.
type API interface {
	ListTasks(ctx context.Context, projectID int64, page, limit int) (Page, error)
	CreateTask(ctx context.Context, projectID int64, req CreateRequest) (*Task, error)
	UpdateTask(ctx context.Context, projectID, id int64, req UpdateRequest) (*Task, error)
	DeleteTask(ctx context.Context, projectID, id int64) error
}
