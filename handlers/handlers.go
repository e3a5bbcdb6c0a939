// ABOUTME: Shared plumbing for the MCP tool handlers
// ABOUTME: Session gate, mutation results and wire formatting for tool outputs
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
)

// Gate refuses tool calls when no session is active.
type Gate interface {
	Require() error
}

type MutationOutput struct {
	Message string `json:"message"`
	// Total is the collection size after the resync
	Total int  `json:"total"`
	Stale bool `json:"stale,omitempty"`
}

type DeleteInput struct {
	ID int64 `json:"id" jsonschema:"ID of the record to delete"`
}

func mutated[T models.Record](c *resource.Controller[T], message string) MutationOutput {
	return MutationOutput{Message: message, Total: len(c.Items()), Stale: c.Stale()}
}

// refresh lists the collection after checking the session.
func refresh[T models.Record](ctx context.Context, gate Gate, c *resource.Controller[T]) error {
	if err := gate.Require(); err != nil {
		return err
	}
	return c.List(ctx)
}

// lookup refreshes and finds the record with id.
func lookup[T models.Record](ctx context.Context, gate Gate, c *resource.Controller[T], noun string, id int64) (T, error) {
	var zero T
	if id == 0 {
		return zero, fmt.Errorf("id is required")
	}
	if err := refresh(ctx, gate, c); err != nil {
		return zero, err
	}
	rec, ok := c.Get(id)
	if !ok {
		return zero, fmt.Errorf("%s %d not found", noun, id)
	}
	return rec, nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func formatTimestamp(t models.Timestamp) string {
	if !t.Present() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optionalID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
