package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ganot/taskdeck/internal/domain/task"
)

// ListTasks fetches one page of a project's tasks, normalizing the same two
// shapes as ListProjects.
func (c *Client) ListTasks(ctx context.Context, projectID int64, page, limit int) (task.Page, error) {
	path := fmt.Sprintf("/projects/%d/tasks", projectID)
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, pageQuery(page, limit), nil, &raw); err != nil {
		return task.Page{}, err
	}

	var tasks []task.Task
	if err := json.Unmarshal(raw, &tasks); err == nil {
		return task.Page{
			Tasks: tasks,
			Total: len(tasks),
			Page:  page,
			Size:  limit,
		}, nil
	}

	var envelope struct {
		Tasks      []task.Task `json:"tasks"`
		TotalTasks int         `json:"total_tasks"`
		Total      int         `json:"total"`
		Page       int         `json:"page"`
		Limit      int         `json:"limit"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return task.Page{}, fmt.Errorf("decoding tasks response: %w", err)
	}

	total := envelope.TotalTasks
	if total == 0 {
		total = envelope.Total
	}
	result := task.Page{
		Tasks: envelope.Tasks,
		Total: total,
		Page:  page,
		Size:  limit,
	}
	if envelope.Page > 0 {
		result.Page = envelope.Page
	}
	if envelope.Limit > 0 {
		result.Size = envelope.Limit
	}
	return result, nil
}

// CreateTask creates a task in a project and returns the server's copy.
func (c *Client) CreateTask(ctx context.Context, projectID int64, req task.CreateRequest) (*task.Task, error) {
	path := fmt.Sprintf("/projects/%d/tasks", projectID)
	var created task.Task
	if err := c.do(ctx, http.MethodPost, path, nil, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTask patches a task and returns the server's copy.
func (c *Client) UpdateTask(ctx context.Context, projectID, id int64, req task.UpdateRequest) (*task.Task, error) {
	path := fmt.Sprintf("/projects/%d/tasks/%d", projectID, id)
	var updated task.Task
	if err := c.do(ctx, http.MethodPatch, path, nil, req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, projectID, id int64) error {
	path := fmt.Sprintf("/projects/%d/tasks/%d", projectID, id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
