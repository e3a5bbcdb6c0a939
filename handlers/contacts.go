// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements list_contacts, create_contact, update_contact and delete_contact
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
)

type ContactHandlers struct {
	gate     Gate
	contacts *resource.Controller[models.Contact]
}

func NewContactHandlers(gate Gate, contacts *resource.Controller[models.Contact]) *ContactHandlers {
	return &ContactHandlers{gate: gate, contacts: contacts}
}

type ContactOutput struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func contactToOutput(c models.Contact) ContactOutput {
	return ContactOutput{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Title:     c.Title,
		CreatedAt: formatTimestamp(c.CreatedAt),
	}
}

type ListContactsInput struct {
	Search string `json:"search,omitempty" jsonschema:"Filter by name, email or company"`
	Remote bool   `json:"remote,omitempty" jsonschema:"Ask the server to search instead of filtering locally"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 50)"`
}

type ListContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
	Total    int             `json:"total"`
}

func (h *ContactHandlers) ListContacts(ctx context.Context, _ *mcp.CallToolRequest, input ListContactsInput) (*mcp.CallToolResult, ListContactsOutput, error) {
	if err := refresh(ctx, h.gate, h.contacts); err != nil {
		return nil, ListContactsOutput{}, err
	}

	var found []models.Contact
	if input.Remote && input.Search != "" {
		var err error
		found, err = h.contacts.Search(ctx, input.Search)
		if err != nil {
			return nil, ListContactsOutput{}, err
		}
	} else {
		found = views.FilterContacts(h.contacts.Items(), input.Search)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	out := ListContactsOutput{Contacts: []ContactOutput{}, Total: len(found)}
	for i, c := range found {
		if i == limit {
			break
		}
		out.Contacts = append(out.Contacts, contactToOutput(c))
	}
	return nil, out, nil
}

type ContactInput struct {
	FirstName string `json:"first_name,omitempty" jsonschema:"First name (required on create)"`
	LastName  string `json:"last_name,omitempty" jsonschema:"Last name (required on create)"`
	Email     string `json:"email,omitempty" jsonschema:"Email address"`
	Phone     string `json:"phone,omitempty" jsonschema:"Phone number"`
	Company   string `json:"company,omitempty" jsonschema:"Company name"`
	Title     string `json:"title,omitempty" jsonschema:"Job title"`
}

func (in ContactInput) apply(f *forms.ContactForm) {
	overlay(&f.FirstName, in.FirstName)
	overlay(&f.LastName, in.LastName)
	overlay(&f.Email, in.Email)
	overlay(&f.Phone, in.Phone)
	overlay(&f.Company, in.Company)
	overlay(&f.Title, in.Title)
}

func (h *ContactHandlers) CreateContact(ctx context.Context, _ *mcp.CallToolRequest, input ContactInput) (*mcp.CallToolResult, MutationOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, MutationOutput{}, err
	}
	form := forms.NewContactForm()
	input.apply(&form)
	if err := h.contacts.Create(ctx, form); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.contacts, fmt.Sprintf("Created contact %s %s", form.FirstName, form.LastName)), nil
}

type UpdateContactInput struct {
	ID        int64  `json:"id" jsonschema:"Contact ID (required)"`
	FirstName string `json:"first_name,omitempty" jsonschema:"New first name"`
	LastName  string `json:"last_name,omitempty" jsonschema:"New last name"`
	Email     string `json:"email,omitempty" jsonschema:"New email address"`
	Phone     string `json:"phone,omitempty" jsonschema:"New phone number"`
	Company   string `json:"company,omitempty" jsonschema:"New company name"`
	Title     string `json:"title,omitempty" jsonschema:"New job title"`
}

func (h *ContactHandlers) UpdateContact(ctx context.Context, _ *mcp.CallToolRequest, input UpdateContactInput) (*mcp.CallToolResult, MutationOutput, error) {
	current, err := lookup(ctx, h.gate, h.contacts, "contact", input.ID)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	form := forms.FromContact(current)
	ContactInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Company:   input.Company,
		Title:     input.Title,
	}.apply(&form)
	if err := h.contacts.Update(ctx, input.ID, form); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.contacts, fmt.Sprintf("Updated contact %d", input.ID)), nil
}

func (h *ContactHandlers) DeleteContact(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, MutationOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, MutationOutput{}, err
	}
	if err := h.contacts.Delete(ctx, input.ID); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.contacts, fmt.Sprintf("Deleted contact %d", input.ID)), nil
}
