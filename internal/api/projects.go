package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ganot/taskdeck/internal/domain/project"
)

// ListProjects fetches one page of projects. Two response shapes are
// normalized: a bare array (legacy servers; total becomes the array length)
// and an envelope with the sequence plus a total count.
func (c *Client) ListProjects(ctx context.Context, page, limit int) (project.Page, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/projects", pageQuery(page, limit), nil, &raw); err != nil {
		return project.Page{}, err
	}

	var projects []project.Project
	if err := json.Unmarshal(raw, &projects); err == nil {
		return project.Page{
			Projects: projects,
			Total:    len(projects),
			Page:     page,
			Size:     limit,
		}, nil
	}

	var envelope struct {
		Projects      []project.Project `json:"projects"`
		TotalProjects int               `json:"total_projects"`
		Total         int               `json:"total"`
		Page          int               `json:"page"`
		Limit         int               `json:"limit"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return project.Page{}, fmt.Errorf("decoding projects response: %w", err)
	}

	total := envelope.TotalProjects
	if total == 0 {
		total = envelope.Total
	}
	result := project.Page{
		Projects: envelope.Projects,
		Total:    total,
		Page:     page,
		Size:     limit,
	}
	if envelope.Page > 0 {
		result.Page = envelope.Page
	}
	if envelope.Limit > 0 {
		result.Size = envelope.Limit
	}
	return result, nil
}

// GetProject fetches a single project, accepting both the bare object and
// the {project: {...}} envelope.
func (c *Client) GetProject(ctx context.Context, id int64) (*project.Project, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, nil, &raw); err != nil {
		return nil, err
	}

	var direct project.Project
	if err := json.Unmarshal(raw, &direct); err == nil && direct.ID != 0 {
		return &direct, nil
	}

	var envelope struct {
		Project project.Project `json:"project"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding project response: %w", err)
	}
	return &envelope.Project, nil
}

// CreateProject creates a project and returns the server's copy.
func (c *Client) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	var created project.Project
	if err := c.do(ctx, http.MethodPost, "/projects", nil, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProject patches a project and returns the server's copy.
func (c *Client) UpdateProject(ctx context.Context, id int64, req project.UpdateRequest) (*project.Project, error) {
	var updated project.Project
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/projects/%d", id), nil, req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProject deletes a project and its tasks.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil, nil, nil)
}
