// ABOUTME: Dashboard and pipeline graph MCP handlers
// ABOUTME: Provides the dashboard and generate_graph tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
	"github.com/harperreed/crmdesk/viz"
)

type VizHandlers struct {
	gate Gate
	set  *resource.Set
	now  func() time.Time
}

func NewVizHandlers(gate Gate, set *resource.Set) *VizHandlers {
	return &VizHandlers{gate: gate, set: set, now: time.Now}
}

type DashboardInput struct{}

type DashboardOutput struct {
	Contacts       int              `json:"contacts"`
	Deals          int              `json:"deals"`
	Tasks          int              `json:"tasks"`
	Activities     int              `json:"activities"`
	DealValue      string           `json:"deal_value"`
	Pipeline       []StageOutput    `json:"pipeline"`
	PendingTasks   int              `json:"pending_tasks"`
	CompletedTasks int              `json:"completed_tasks"`
	OverdueTasks   int              `json:"overdue_tasks"`
	RecentActivity []ActivityOutput `json:"recent_activity"`
	Failed         []string         `json:"failed,omitempty"`
}

func (h *VizHandlers) Dashboard(ctx context.Context, _ *mcp.CallToolRequest, _ DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, DashboardOutput{}, err
	}
	d, err := viz.LoadDashboard(ctx, h.set, h.now())
	if err != nil {
		return nil, DashboardOutput{}, err
	}

	out := DashboardOutput{
		Contacts:       d.TotalContacts,
		Deals:          d.TotalDeals,
		Tasks:          d.TotalTasks,
		Activities:     d.TotalActivities,
		DealValue:      d.DealValue.String(),
		Pipeline:       pipelineToOutput(d.Pipeline).Stages,
		PendingTasks:   d.Tasks.Pending,
		CompletedTasks: d.Tasks.Completed,
		OverdueTasks:   d.Tasks.Overdue,
		RecentActivity: make([]ActivityOutput, len(d.RecentActivity)),
		Failed:         d.Failed,
	}
	for i, a := range d.RecentActivity {
		out.RecentActivity[i] = activityToOutput(a)
	}
	return nil, out, nil
}

type GenerateGraphInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: dot or svg (default dot)"`
}

type GenerateGraphOutput struct {
	Format    string `json:"format"`
	Source    string `json:"source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, _ *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	format, err := viz.ParseFormat(input.Format)
	if err != nil {
		return nil, GenerateGraphOutput{}, err
	}
	if err := refresh(ctx, h.gate, h.set.Deals); err != nil {
		return nil, GenerateGraphOutput{}, err
	}

	pipeline := views.GroupByStage(h.set.Deals.Items())
	source, err := viz.RenderPipeline(ctx, pipeline, format)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	// One node per stage and deal; stages are chained, deals hang off them.
	stages := len(pipeline)
	deals := pipeline.Total()

	return nil, GenerateGraphOutput{
		Format:    strings.ToLower(string(format)),
		Source:    source,
		NodeCount: stages + deals,
		EdgeCount: stages - 1 + deals,
	}, nil
}
