package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ganot/taskdeck/internal/bus"
)

// Controller owns the project list's page state: one fetched page at a time,
// reconciled locally after mutations and corrected by summary updates from
// the task view.
type Controller struct {
	api      API
	pageSize int
	logger   *slog.Logger

	mu          sync.Mutex
	state       Page
	unsubscribe func()
}

// NewController creates a project list controller.
func NewController(api API, pageSize int, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		api:      api,
		pageSize: pageSize,
		logger:   logger,
		state:    Page{Page: 1, Size: pageSize},
	}
}

// FetchPage requests one page from the tracker and replaces the cached page
// wholesale. The API layer has already normalized the two response shapes,
// so a bare-array response reports its own length as the total.
func (c *Controller) FetchPage(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		page = 1
	}

	fetched, err := c.api.ListProjects(ctx, page, c.pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("fetching projects page %d: %w", page, err)
	}

	c.mu.Lock()
	c.state = fetched
	c.mu.Unlock()

	return fetched, nil
}

// Create creates a project, then re-fetches page 1 so server-side ordering
// decides where it lands.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Domain) == "" {
		return nil, ErrInvalidInput
	}

	created, err := c.api.CreateProject(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	if _, err := c.FetchPage(ctx, 1); err != nil {
		c.logger.Warn("refreshing projects after create", "error", err)
	}

	return created, nil
}

// Update patches a project and reconciles the cached item in place.
func (c *Controller) Update(ctx context.Context, id int64, req UpdateRequest) (*Project, error) {
	updated, err := c.api.UpdateProject(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}

	c.mu.Lock()
	for i := range c.state.Projects {
		if c.state.Projects[i].ID == id {
			c.state.Projects[i] = *updated
			break
		}
	}
	c.mu.Unlock()

	return updated, nil
}

// Delete removes a project. If the removal empties a page past the first,
// the previous page is fetched so the view never shows an empty middle page.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.api.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	c.mu.Lock()
	kept := c.state.Projects[:0]
	for _, p := range c.state.Projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	removed := len(kept) < len(c.state.Projects)
	c.state.Projects = kept
	if removed && c.state.Total > 0 {
		c.state.Total--
	}
	emptied := len(c.state.Projects) == 0 && c.state.Page > 1
	previous := c.state.Page - 1
	c.mu.Unlock()

	if emptied {
		if _, err := c.FetchPage(ctx, previous); err != nil {
			return fmt.Errorf("fetching previous page after delete: %w", err)
		}
	}

	return nil
}

// Mount subscribes the controller to summary updates. Mounting twice
// replaces the previous subscription.
func (c *Controller) Mount(b *bus.Bus) {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.unsubscribe = b.Subscribe(c.applySummary)
	c.mu.Unlock()
}

// Unmount drops the summary subscription. Safe to call when not mounted.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.mu.Unlock()
}

// State returns a copy of the current page state.
func (c *Controller) State() Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := c.state
	copied.Projects = append([]Project(nil), c.state.Projects...)
	return copied
}

// applySummary merges a partial summary update into the matching cached
// project. Fields absent from the payload are left untouched; an unknown
// project ID is ignored (that project isn't on the current page).
func (c *Controller) applySummary(update bus.SummaryUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.state.Projects {
		if c.state.Projects[i].ID != update.ProjectID {
			continue
		}
		p := &c.state.Projects[i]
		if update.Name != nil {
			p.Name = *update.Name
		}
		if update.Domain != nil {
			p.Domain = *update.Domain
		}
		if update.Description != nil {
			p.Description = *update.Description
		}
		if update.CompletedTasks != nil {
			p.CompletedTasks = *update.CompletedTasks
		}
		if update.TotalTasks != nil {
			p.TotalTasks = *update.TotalTasks
		}
		return
	}
}
