// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements list_deals, deal_pipeline, create_deal, update_deal and delete_deal
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

type DealHandlers struct {
	gate  Gate
	deals *resource.Controller[models.Deal]
}

func NewDealHandlers(gate Gate, deals *resource.Controller[models.Deal]) *DealHandlers {
	return &DealHandlers{gate: gate, deals: deals}
}

type DealOutput struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Value             string `json:"value"`
	Stage             string `json:"stage"`
	ContactID         int64  `json:"contact_id"`
	ContactName       string `json:"contact_name,omitempty"`
	Company           string `json:"company,omitempty"`
	ExpectedCloseDate string `json:"expected_close_date,omitempty"`
	Description       string `json:"description,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

func dealToOutput(d models.Deal) DealOutput {
	return DealOutput{
		ID:                d.ID,
		Title:             d.Title,
		Value:             d.Value.String(),
		Stage:             string(d.Stage),
		ContactID:         d.ContactID,
		ContactName:       d.ContactName(),
		Company:           d.Company,
		ExpectedCloseDate: d.ExpectedCloseDate.String(),
		Description:       d.Description,
		CreatedAt:         formatTimestamp(d.CreatedAt),
	}
}

type ListDealsInput struct {
	Stage string `json:"stage,omitempty" jsonschema:"Only deals in this stage (lead, qualified, proposal, negotiation, closed_won, closed_lost)"`
}

type ListDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Total int          `json:"total"`
	Value string       `json:"value"`
}

func (h *DealHandlers) ListDeals(ctx context.Context, _ *mcp.CallToolRequest, input ListDealsInput) (*mcp.CallToolResult, ListDealsOutput, error) {
	if err := refresh(ctx, h.gate, h.deals); err != nil {
		return nil, ListDealsOutput{}, err
	}

	deals := h.deals.Items()
	if input.Stage != "" {
		stage, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, ListDealsOutput{}, err
		}
		deals = views.GroupByStage(deals).Bucket(stage).Deals
	}

	out := ListDealsOutput{
		Deals: make([]DealOutput, len(deals)),
		Total: len(deals),
		Value: views.TotalDealValue(deals).String(),
	}
	for i, d := range deals {
		out.Deals[i] = dealToOutput(d)
	}
	return nil, out, nil
}

type StageOutput struct {
	Stage string       `json:"stage"`
	Label string       `json:"label"`
	Count int          `json:"count"`
	Value string       `json:"value"`
	Deals []DealOutput `json:"deals"`
}

type PipelineInput struct{}

type PipelineOutput struct {
	Stages []StageOutput `json:"stages"`
	Total  int           `json:"total"`
	Value  string        `json:"value"`
}

func (h *DealHandlers) DealPipeline(ctx context.Context, _ *mcp.CallToolRequest, _ PipelineInput) (*mcp.CallToolResult, PipelineOutput, error) {
	if err := refresh(ctx, h.gate, h.deals); err != nil {
		return nil, PipelineOutput{}, err
	}
	return nil, pipelineToOutput(views.GroupByStage(h.deals.Items())), nil
}

func pipelineToOutput(p views.Pipeline) PipelineOutput {
	out := PipelineOutput{Total: p.Total(), Value: p.Value().String()}
	for _, b := range p {
		stage := StageOutput{
			Stage: string(b.Stage),
			Label: b.Stage.Label(),
			Count: len(b.Deals),
			Value: b.Value().String(),
			Deals: make([]DealOutput, len(b.Deals)),
		}
		for i, d := range b.Deals {
			stage.Deals[i] = dealToOutput(d)
		}
		out.Stages = append(out.Stages, stage)
	}
	return out
}

type CreateDealInput struct {
	Title             string `json:"title" jsonschema:"Deal title (required)"`
	ContactID         int64  `json:"contact_id" jsonschema:"ID of the contact the deal is with (required)"`
	Value             string `json:"value,omitempty" jsonschema:"Deal value in dollars"`
	Stage             string `json:"stage,omitempty" jsonschema:"Pipeline stage (default lead)"`
	ExpectedCloseDate string `json:"expected_close_date,omitempty" jsonschema:"Expected close date (YYYY-MM-DD)"`
	Description       string `json:"description,omitempty" jsonschema:"Free-form description"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, _ *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, MutationOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, MutationOutput{}, err
	}
	form := forms.NewDealForm()
	if err := applyDeal(&form, input.Title, input.ContactID, input.Value, input.Stage, input.ExpectedCloseDate, input.Description); err != nil {
		return nil, MutationOutput{}, err
	}
	if err := h.deals.Create(ctx, form); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.deals, fmt.Sprintf("Created deal %s", form.Title)), nil
}

type UpdateDealInput struct {
	ID                int64  `json:"id" jsonschema:"Deal ID (required)"`
	Title             string `json:"title,omitempty" jsonschema:"New title"`
	ContactID         int64  `json:"contact_id,omitempty" jsonschema:"New contact ID"`
	Value             string `json:"value,omitempty" jsonschema:"New value in dollars"`
	Stage             string `json:"stage,omitempty" jsonschema:"New pipeline stage"`
	ExpectedCloseDate string `json:"expected_close_date,omitempty" jsonschema:"New expected close date (YYYY-MM-DD)"`
	Description       string `json:"description,omitempty" jsonschema:"New description"`
}

func (h *DealHandlers) UpdateDeal(ctx context.Context, _ *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, MutationOutput, error) {
	current, err := lookup(ctx, h.gate, h.deals, "deal", input.ID)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	form := forms.FromDeal(current)
	if err := applyDeal(&form, input.Title, input.ContactID, input.Value, input.Stage, input.ExpectedCloseDate, input.Description); err != nil {
		return nil, MutationOutput{}, err
	}
	if err := h.deals.Update(ctx, input.ID, form); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.deals, fmt.Sprintf("Updated deal %d", input.ID)), nil
}

func applyDeal(f *forms.DealForm, title string, contactID int64, value, stage, closeDate, description string) error {
	if stage != "" {
		parsed, err := models.ParseStage(stage)
		if err != nil {
			return err
		}
		f.Stage = string(parsed)
	}
	overlay(&f.Title, title)
	if contactID != 0 {
		f.ContactID = strconv.FormatInt(contactID, 10)
	}
	overlay(&f.Value, value)
	overlay(&f.ExpectedCloseDate, closeDate)
	overlay(&f.Description, description)
	return nil
}

func (h *DealHandlers) DeleteDeal(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, MutationOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, MutationOutput{}, err
	}
	if err := h.deals.Delete(ctx, input.ID); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.deals, fmt.Sprintf("Deleted deal %d", input.ID)), nil
}
