// ABOUTME: The four CRM collections bundled for one API client
// ABOUTME: Shared by the CLI, TUI, MCP tools and dashboard
package resource

import (
	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/models"
)

// Set holds one controller per collection.
type Set struct {
	Contacts   *Controller[models.Contact]
	Deals      *Controller[models.Deal]
	Tasks      *Controller[models.Task]
	Activities *Controller[models.Activity]
}

// NewSet creates controllers for /contacts, /deals, /tasks and /activities.
func NewSet(client *api.Client, opts ...Option) *Set {
	return &Set{
		Contacts:   NewController[models.Contact](client, "/contacts", opts...),
		Deals:      NewController[models.Deal](client, "/deals", opts...),
		Tasks:      NewController[models.Task](client, "/tasks", opts...),
		Activities: NewController[models.Activity](client, "/activities", opts...),
	}
}
