// ABOUTME: Activity MCP tool handlers
// ABOUTME: Implements list_activities, create_activity and delete_activity
package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
)

type ActivityHandlers struct {
	gate       Gate
	activities *resource.Controller[models.Activity]
}

func NewActivityHandlers(gate Gate, activities *resource.Controller[models.Activity]) *ActivityHandlers {
	return &ActivityHandlers{gate: gate, activities: activities}
}

type ActivityOutput struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	ContactID   int64  `json:"contact_id,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	DealID      int64  `json:"deal_id,omitempty"`
	DealTitle   string `json:"deal_title,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func activityToOutput(a models.Activity) ActivityOutput {
	out := ActivityOutput{
		ID:          a.ID,
		Type:        string(a.Type),
		Subject:     a.Subject,
		Description: a.Description,
		ContactID:   optionalID(a.ContactID),
		ContactName: a.ContactName(),
		DealID:      optionalID(a.DealID),
		DealTitle:   a.DealTitle,
		ScheduledAt: formatTimestamp(a.ScheduledAt),
		CreatedAt:   formatTimestamp(a.CreatedAt),
	}
	if a.Duration != nil {
		out.Duration = *a.Duration
	}
	return out
}

type ListActivitiesInput struct {
	Recent int `json:"recent,omitempty" jsonschema:"Only the N most recently created activities"`
}

type ListActivitiesOutput struct {
	Activities []ActivityOutput `json:"activities"`
	Total      int              `json:"total"`
}

func (h *ActivityHandlers) ListActivities(ctx context.Context, _ *mcp.CallToolRequest, input ListActivitiesInput) (*mcp.CallToolResult, ListActivitiesOutput, error) {
	if err := refresh(ctx, h.gate, h.activities); err != nil {
		return nil, ListActivitiesOutput{}, err
	}

	items := h.activities.Items()
	total := len(items)
	if input.Recent > 0 {
		items = views.RecentActivities(items, input.Recent)
	}

	out := ListActivitiesOutput{Activities: make([]ActivityOutput, len(items)), Total: total}
	for i, a := range items {
		out.Activities[i] = activityToOutput(a)
	}
	return nil, out, nil
}

type CreateActivityInput struct {
	Subject     string `json:"subject" jsonschema:"What happened (required)"`
	Type        string `json:"type,omitempty" jsonschema:"call, email, meeting or note (default call)"`
	Description string `json:"description,omitempty" jsonschema:"Notes"`
	ContactID   int64  `json:"contact_id,omitempty" jsonschema:"Related contact ID"`
	DealID      int64  `json:"deal_id,omitempty" jsonschema:"Related deal ID"`
	Duration    int    `json:"duration,omitempty" jsonschema:"Duration in minutes"`
	ScheduledAt string `json:"scheduled_at,omitempty" jsonschema:"When it is scheduled (YYYY-MM-DDTHH:MM)"`
}

func (h *ActivityHandlers) CreateActivity(ctx context.Context, _ *mcp.CallToolRequest, input CreateActivityInput) (*mcp.CallToolResult, MutationOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, MutationOutput{}, err
	}
	if input.Type != "" && !validActivityType(input.Type) {
		return nil, MutationOutput{}, fmt.Errorf("invalid activity type: %s (valid: call, email, meeting, note)", input.Type)
	}

	form := forms.NewActivityForm()
	overlay(&form.Type, input.Type)
	overlay(&form.Subject, input.Subject)
	overlay(&form.Description, input.Description)
	if input.ContactID != 0 {
		form.ContactID = strconv.FormatInt(input.ContactID, 10)
	}
	if input.DealID != 0 {
		form.DealID = strconv.FormatInt(input.DealID, 10)
	}
	if input.Duration > 0 {
		form.Duration = strconv.Itoa(input.Duration)
	}
	overlay(&form.ScheduledAt, input.ScheduledAt)

	if err := h.activities.Create(ctx, form); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.activities, fmt.Sprintf("Logged %s: %s", form.Type, form.Subject)), nil
}

func validActivityType(s string) bool {
	for _, t := range models.ActivityTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

func (h *ActivityHandlers) DeleteActivity(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, MutationOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, MutationOutput{}, err
	}
	if err := h.activities.Delete(ctx, input.ID); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.activities, fmt.Sprintf("Deleted activity %d", input.ID)), nil
}
