// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Builds contact, pipeline and follow-up prompts from the live collections
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
)

type PromptHandlers struct {
	gate Gate
	set  *resource.Set
	now  func() time.Time
}

func NewPromptHandlers(gate Gate, set *resource.Set) *PromptHandlers {
	return &PromptHandlers{gate: gate, set: set, now: time.Now}
}

// Prompts lists the templates GetPrompt can build.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "contact-summary",
			Description: "Summarize a contact with their deals and activity history",
			Arguments: []*mcp.PromptArgument{
				{Name: "contact_id", Description: "ID of the contact", Required: true},
			},
		},
		{
			Name:        "deal-analysis",
			Description: "Analyze the deal pipeline by stage",
		},
		{
			Name:        "follow-up-suggestions",
			Description: "Suggest follow-ups from overdue tasks and quiet contacts",
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	if err := h.gate.Require(); err != nil {
		return nil, err
	}
	switch request.Params.Name {
	case "contact-summary":
		return h.getContactSummaryPrompt(ctx, request.Params.Arguments)
	case "deal-analysis":
		return h.getDealAnalysisPrompt(ctx)
	case "follow-up-suggestions":
		return h.getFollowUpSuggestionsPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func (h *PromptHandlers) getContactSummaryPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	raw, ok := args["contact_id"]
	if !ok {
		return nil, fmt.Errorf("contact_id is required")
	}
	contactID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid contact_id: %w", err)
	}

	if err := h.set.Contacts.List(ctx); err != nil {
		return nil, err
	}
	contact, ok := h.set.Contacts.Get(contactID)
	if !ok {
		return nil, fmt.Errorf("contact %d not found", contactID)
	}
	// Deals and activities are context; a failed fetch leaves them out.
	_ = h.set.Deals.List(ctx)
	_ = h.set.Activities.List(ctx)

	var promptText strings.Builder
	promptText.WriteString("Please provide a comprehensive summary of this contact:\n\n")
	promptText.WriteString(fmt.Sprintf("Name: %s\n", contact.FullName()))
	if contact.Title != "" {
		promptText.WriteString(fmt.Sprintf("Title: %s\n", contact.Title))
	}
	if contact.Company != "" {
		promptText.WriteString(fmt.Sprintf("Company: %s\n", contact.Company))
	}
	if contact.Email != "" {
		promptText.WriteString(fmt.Sprintf("Email: %s\n", contact.Email))
	}
	if contact.Phone != "" {
		promptText.WriteString(fmt.Sprintf("Phone: %s\n", contact.Phone))
	}

	promptText.WriteString("\nDeals:\n")
	dealCount := 0
	for _, d := range h.set.Deals.Items() {
		if d.ContactID != contactID {
			continue
		}
		promptText.WriteString(fmt.Sprintf("  - %s (%s, %s)\n", d.Title, d.Stage.Label(), views.FormatCurrency(d.Value)))
		dealCount++
	}
	if dealCount == 0 {
		promptText.WriteString("  none\n")
	}

	promptText.WriteString("\nRecent activity:\n")
	var theirs []models.Activity
	for _, a := range h.set.Activities.Items() {
		if a.ContactID != nil && *a.ContactID == contactID {
			theirs = append(theirs, a)
		}
	}
	for _, a := range views.RecentActivities(theirs, 10) {
		promptText.WriteString(fmt.Sprintf("  - %s: %s\n", a.Type, a.Subject))
	}
	if len(theirs) == 0 {
		promptText.WriteString("  none\n")
	}

	promptText.WriteString("\nPlease summarize the relationship, open opportunities, and suggested next steps.")

	return userPrompt(fmt.Sprintf("Summary for %s", contact.FullName()), promptText.String()), nil
}

func (h *PromptHandlers) getDealAnalysisPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	if err := h.set.Deals.List(ctx); err != nil {
		return nil, err
	}
	pipeline := views.GroupByStage(h.set.Deals.Items())

	var promptText strings.Builder
	promptText.WriteString("Please analyze the current deal pipeline:\n\n")
	promptText.WriteString(fmt.Sprintf("Total Deals: %d\n", pipeline.Total()))
	promptText.WriteString(fmt.Sprintf("Total Value: %s\n\n", views.FormatCurrency(pipeline.Value())))
	promptText.WriteString("Pipeline by Stage:\n")
	for _, b := range pipeline {
		promptText.WriteString(fmt.Sprintf("  - %s: %d deals, %s\n", b.Stage.Label(), len(b.Deals), views.FormatCurrency(b.Value())))
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. Analysis of pipeline health and distribution")
	promptText.WriteString("\n2. Recommendations for deals that may need attention")
	promptText.WriteString("\n3. Suggestions for improving conversion rates")

	return userPrompt("Deal pipeline analysis", promptText.String()), nil
}

func (h *PromptHandlers) getFollowUpSuggestionsPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	if err := h.set.Tasks.List(ctx); err != nil {
		return nil, err
	}
	if err := h.set.Contacts.List(ctx); err != nil {
		return nil, err
	}
	_ = h.set.Activities.List(ctx)

	now := h.now()
	var promptText strings.Builder

	promptText.WriteString("Overdue tasks:\n")
	overdue := views.FilterTasks(h.set.Tasks.Items(), views.ViewOverdue, now)
	for _, t := range overdue {
		promptText.WriteString(fmt.Sprintf("- %s (due %s, %s priority)\n", t.Title, t.DueDate.String(), t.Priority))
	}
	if len(overdue) == 0 {
		promptText.WriteString("None.\n")
	}

	touched := make(map[int64]bool)
	for _, a := range h.set.Activities.Items() {
		if a.ContactID != nil {
			touched[*a.ContactID] = true
		}
	}
	promptText.WriteString("\nContacts with no logged activity:\n")
	count := 0
	for _, c := range h.set.Contacts.Items() {
		if !touched[c.ID] {
			promptText.WriteString(fmt.Sprintf("- %s\n", c.FullName()))
			count++
		}
	}
	if count == 0 {
		promptText.WriteString("All contacts have logged activity.\n")
	}

	promptText.WriteString("\nPlease:")
	promptText.WriteString("\n1. Prioritize which follow-ups to do first")
	promptText.WriteString("\n2. Suggest personalized outreach approaches for each")
	promptText.WriteString("\n3. Identify any patterns in follow-up gaps")

	return userPrompt("Follow-up suggestions", promptText.String()), nil
}
