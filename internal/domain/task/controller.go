package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ganot/taskdeck/internal/bus"
)

// Controller owns the task list for one project: page state plus the
// summary notifications that keep the project list's counts honest.
type Controller struct {
	api       API
	projectID int64
	pageSize  int
	events    *bus.Bus
	logger    *slog.Logger

	mu    sync.Mutex
	state Page
}

// NewController creates a task list controller bound to one project.
// events may be nil when no other view cares about summary changes.
func NewController(api API, projectID int64, pageSize int, events *bus.Bus, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		api:       api,
		projectID: projectID,
		pageSize:  pageSize,
		events:    events,
		logger:    logger,
		state:     Page{Page: 1, Size: pageSize},
	}
}

// ProjectID returns the project this controller is bound to.
func (c *Controller) ProjectID() int64 {
	return c.projectID
}

// FetchPage requests one page of tasks and replaces the cached page.
func (c *Controller) FetchPage(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		page = 1
	}

	fetched, err := c.api.ListTasks(ctx, c.projectID, page, c.pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("fetching tasks page %d: %w", page, err)
	}

	c.mu.Lock()
	c.state = fetched
	c.mu.Unlock()

	return fetched, nil
}

// Create creates a task, re-fetches page 1, and publishes the project's new
// counts.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrInvalidInput
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	if !req.Status.Valid() {
		return nil, ErrInvalidInput
	}

	created, err := c.api.CreateTask(ctx, c.projectID, req)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	if _, err := c.FetchPage(ctx, 1); err != nil {
		c.logger.Warn("refreshing tasks after create", "error", err)
	}
	c.publishSummary()

	return created, nil
}

// Update patches a task, reconciles the cached item in place, and publishes
// the project's new counts (a status flip changes the completed count).
func (c *Controller) Update(ctx context.Context, id int64, req UpdateRequest) (*Task, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, ErrInvalidInput
	}

	updated, err := c.api.UpdateTask(ctx, c.projectID, id, req)
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}

	c.mu.Lock()
	for i := range c.state.Tasks {
		if c.state.Tasks[i].ID == id {
			c.state.Tasks[i] = *updated
			break
		}
	}
	c.mu.Unlock()

	c.publishSummary()
	return updated, nil
}

// Delete removes a task, fetching the previous page if the removal emptied
// a page past the first, then publishes the project's new counts.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.api.DeleteTask(ctx, c.projectID, id); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	c.mu.Lock()
	kept := c.state.Tasks[:0]
	for _, item := range c.state.Tasks {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	removed := len(kept) < len(c.state.Tasks)
	c.state.Tasks = kept
	if removed && c.state.Total > 0 {
		c.state.Total--
	}
	emptied := len(c.state.Tasks) == 0 && c.state.Page > 1
	previous := c.state.Page - 1
	c.mu.Unlock()

	if emptied {
		if _, err := c.FetchPage(ctx, previous); err != nil {
			return fmt.Errorf("fetching previous page after delete: %w", err)
		}
	}

	c.publishSummary()
	return nil
}

// State returns a copy of the current page state.
func (c *Controller) State() Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := c.state
	copied.Tasks = append([]Task(nil), c.state.Tasks...)
	return copied
}

// publishSummary tells subscribers the project's counts changed. The total
// always comes from the last fetch; the completed count is only included
// when every task is loaded locally, since a single page can't see the
// status of tasks on other pages. Partial payloads are the bus contract.
func (c *Controller) publishSummary() {
	if c.events == nil {
		return
	}

	c.mu.Lock()
	update := bus.SummaryUpdate{ProjectID: c.projectID}
	total := c.state.Total
	update.TotalTasks = &total
	if len(c.state.Tasks) >= c.state.Total {
		completed := 0
		for _, item := range c.state.Tasks {
			if item.Status == StatusCompleted {
				completed++
			}
		}
		update.CompletedTasks = &completed
	}
	c.mu.Unlock()

	c.events.Publish(update)
}
