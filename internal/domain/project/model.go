package project

// Project is the tracker's project entity as the list view holds it. The
// task counts are a possibly-stale projection corrected by summary updates.
type Project struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	Description    string `json:"description,omitempty"`
	CompletedTasks int    `json:"completed_tasks"`
	TotalTasks     int    `json:"total_tasks"`
}

// Page is one fetched page of projects plus the collection total.
type Page struct {
	Projects []Project `json:"projects"`
	Total    int       `json:"total_projects"`
	Page     int       `json:"page"`
	Size     int       `json:"limit"`
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Description string `json:"description,omitempty"`
}

// UpdateRequest defines project update inputs. Nil fields are left as-is.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Domain      *string `json:"domain,omitempty"`
	Description *string `json:"description,omitempty"`
}
