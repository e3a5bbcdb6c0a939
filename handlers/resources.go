// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only JSON views of the mirrored collections via crm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
	"github.com/harperreed/crmdesk/viz"
)

type ResourceHandlers struct {
	gate Gate
	set  *resource.Set
	now  func() time.Time
}

func NewResourceHandlers(gate Gate, set *resource.Set) *ResourceHandlers {
	return &ResourceHandlers{gate: gate, set: set, now: time.Now}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}
	if err := h.gate.Require(); err != nil {
		return nil, err
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")
	var (
		data any
		err  error
	)
	switch parts[0] {
	case "contacts":
		data, err = readCollection(ctx, h.set.Contacts, parts, contactToOutput)
	case "deals":
		data, err = readCollection(ctx, h.set.Deals, parts, dealToOutput)
	case "tasks":
		now := h.now()
		data, err = readCollection(ctx, h.set.Tasks, parts, func(t models.Task) TaskOutput { return taskToOutput(t, now) })
	case "activities":
		data, err = readCollection(ctx, h.set.Activities, parts, activityToOutput)
	case "pipeline":
		if err = h.set.Deals.List(ctx); err == nil {
			data = pipelineToOutput(views.GroupByStage(h.set.Deals.Items()))
		}
	case "dashboard":
		var d *viz.Dashboard
		if d, err = viz.LoadDashboard(ctx, h.set, h.now()); err == nil {
			data = map[string]any{
				"contacts":   d.TotalContacts,
				"deals":      d.TotalDeals,
				"tasks":      d.TotalTasks,
				"activities": d.TotalActivities,
				"deal_value": d.DealValue.String(),
				"overdue":    d.Tasks.Overdue,
				"failed":     d.Failed,
			}
		}
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
	if err != nil {
		return nil, err
	}

	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", parts[0], err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(text),
		},
	}}, nil
}

// readCollection returns every record, or one when the URI names an id.
func readCollection[T models.Record, O any](ctx context.Context, c *resource.Controller[T], parts []string, convert func(T) O) (any, error) {
	if err := c.List(ctx); err != nil {
		return nil, err
	}
	if len(parts) > 1 && parts[1] != "" {
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id: %s", parts[1])
		}
		rec, ok := c.Get(id)
		if !ok {
			return nil, fmt.Errorf("%s %d not found", strings.TrimPrefix(c.Path(), "/"), id)
		}
		return convert(rec), nil
	}

	items := c.Items()
	out := make([]O, len(items))
	for i, rec := range items {
		out[i] = convert(rec)
	}
	return out, nil
}
