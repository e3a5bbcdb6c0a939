// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Runs each handler against the in-memory mock API
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/mockapi"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/session"
)

type gate struct{ err error }

func (g gate) Require() error { return g.err }

type fixture struct {
	mock *mockapi.Server
	set  *resource.Set
	ada  models.Contact
}

func setup(t *testing.T) fixture {
	t.Helper()
	mock := mockapi.New()
	user, err := mock.AddUser("A", "a@b.com", "x")
	require.NoError(t, err)
	token, err := mock.IssueToken(user.ID)
	require.NoError(t, err)

	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)

	logger := log.New(io.Discard)
	client := api.NewClient(srv.URL, api.WithLogger(logger))
	client.SetAuthorization("Bearer " + token)

	ada := mock.SeedContact(models.Contact{FirstName: "Ada", LastName: "Lovelace", Company: "Engines"})
	mock.SeedContact(models.Contact{FirstName: "Grace", LastName: "Hopper", Company: "Navy"})

	return fixture{mock: mock, set: resource.NewSet(client, resource.WithLogger(logger)), ada: ada}
}

func TestToolsRequireSession(t *testing.T) {
	f := setup(t)
	closed := gate{err: session.ErrNotAuthenticated}

	_, _, err := NewContactHandlers(closed, f.set.Contacts).ListContacts(context.Background(), nil, ListContactsInput{})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, _, err = NewDealHandlers(closed, f.set.Deals).CreateDeal(context.Background(), nil, CreateDealInput{Title: "x", ContactID: f.ada.ID})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Empty(t, f.set.Deals.Items())
}

func TestListContactsSearch(t *testing.T) {
	f := setup(t)
	h := NewContactHandlers(gate{}, f.set.Contacts)

	_, out, err := h.ListContacts(context.Background(), nil, ListContactsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)

	_, out, err = h.ListContacts(context.Background(), nil, ListContactsInput{Search: "navy"})
	require.NoError(t, err)
	require.Len(t, out.Contacts, 1)
	assert.Equal(t, "Grace", out.Contacts[0].FirstName)

	_, out, err = h.ListContacts(context.Background(), nil, ListContactsInput{Search: "lovelace", Remote: true})
	require.NoError(t, err)
	require.Len(t, out.Contacts, 1)
	assert.Equal(t, f.ada.ID, out.Contacts[0].ID)
}

func TestContactLifecycle(t *testing.T) {
	f := setup(t)
	h := NewContactHandlers(gate{}, f.set.Contacts)
	ctx := context.Background()

	_, _, err := h.CreateContact(ctx, nil, ContactInput{FirstName: "Alan"})
	require.ErrorIs(t, err, resource.ErrValidation)
	assert.Contains(t, err.Error(), "Last name is required")

	_, out, err := h.CreateContact(ctx, nil, ContactInput{FirstName: "Alan", LastName: "Turing"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)

	_, out, err = h.UpdateContact(ctx, nil, UpdateContactInput{ID: f.ada.ID, Title: "Countess"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	updated, ok := f.set.Contacts.Get(f.ada.ID)
	require.True(t, ok)
	assert.Equal(t, "Countess", updated.Title)
	assert.Equal(t, "Engines", updated.Company, "untouched fields survive")

	_, _, err = h.UpdateContact(ctx, nil, UpdateContactInput{ID: 9999, Title: "x"})
	assert.ErrorContains(t, err, "contact 9999 not found")

	_, out, err = h.DeleteContact(ctx, nil, DeleteInput{ID: f.ada.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
}

func TestDealTools(t *testing.T) {
	f := setup(t)
	h := NewDealHandlers(gate{}, f.set.Deals)
	ctx := context.Background()

	_, _, err := h.CreateDeal(ctx, nil, CreateDealInput{Title: "Retrofit", ContactID: f.ada.ID, Value: "12000"})
	require.NoError(t, err)
	_, _, err = h.CreateDeal(ctx, nil, CreateDealInput{Title: "Audit", ContactID: f.ada.ID, Value: "500", Stage: "proposal"})
	require.NoError(t, err)

	_, _, err = h.CreateDeal(ctx, nil, CreateDealInput{Title: "Bad", ContactID: f.ada.ID, Stage: "won"})
	assert.ErrorContains(t, err, "invalid stage")

	_, list, err := h.ListDeals(ctx, nil, ListDealsInput{Stage: "lead"})
	require.NoError(t, err)
	require.Len(t, list.Deals, 1)
	assert.Equal(t, "Retrofit", list.Deals[0].Title)
	assert.Equal(t, "Ada Lovelace", list.Deals[0].ContactName)
	assert.Equal(t, "12000", list.Value)

	_, _, err = h.UpdateDeal(ctx, nil, UpdateDealInput{ID: list.Deals[0].ID, Stage: "closed_won"})
	require.NoError(t, err)

	_, pipeline, err := h.DealPipeline(ctx, nil, PipelineInput{})
	require.NoError(t, err)
	require.Len(t, pipeline.Stages, 6)
	assert.Equal(t, 2, pipeline.Total)
	assert.Equal(t, "12500", pipeline.Value)
	assert.Equal(t, 0, pipeline.Stages[0].Count)
	assert.Equal(t, "Closed Won", pipeline.Stages[4].Label)
	assert.Equal(t, 1, pipeline.Stages[4].Count)

	_, _, err = h.DeleteDeal(ctx, nil, DeleteInput{ID: 9999})
	assert.True(t, api.IsNotFound(err))
}

func TestTaskTools(t *testing.T) {
	f := setup(t)
	h := NewTaskHandlers(gate{}, f.set.Tasks)
	h.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	_, _, err := h.CreateTask(ctx, nil, CreateTaskInput{Title: "Call back", DueDate: "2024-05-01"})
	require.NoError(t, err)
	_, _, err = h.CreateTask(ctx, nil, CreateTaskInput{Title: "Later", DueDate: "2024-07-01", Priority: "high"})
	require.NoError(t, err)

	_, out, err := h.ListTasks(ctx, nil, ListTasksInput{View: "overdue"})
	require.NoError(t, err)
	assert.Equal(t, "overdue", out.View)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Call back", out.Tasks[0].Title)
	assert.True(t, out.Tasks[0].Overdue)
	assert.Equal(t, "medium", out.Tasks[0].Priority)

	_, _, err = h.UpdateTask(ctx, nil, UpdateTaskInput{ID: out.Tasks[0].ID, Status: "completed"})
	require.NoError(t, err)

	_, out, err = h.ListTasks(ctx, nil, ListTasksInput{})
	require.NoError(t, err)
	assert.Equal(t, "all", out.View)
	assert.Equal(t, 2, out.All)
	assert.Equal(t, 1, out.Completed)
	assert.Equal(t, 1, out.Pending)
	assert.Equal(t, 0, out.Overdue)
}

func TestActivityTools(t *testing.T) {
	f := setup(t)
	h := NewActivityHandlers(gate{}, f.set.Activities)
	ctx := context.Background()

	_, _, err := h.CreateActivity(ctx, nil, CreateActivityInput{Subject: "Intro", ContactID: f.ada.ID, Duration: 15})
	require.NoError(t, err)
	_, _, err = h.CreateActivity(ctx, nil, CreateActivityInput{Subject: "Fax", Type: "fax"})
	assert.ErrorContains(t, err, "invalid activity type")

	_, out, err := h.ListActivities(ctx, nil, ListActivitiesInput{Recent: 5})
	require.NoError(t, err)
	require.Len(t, out.Activities, 1)
	a := out.Activities[0]
	assert.Equal(t, "call", a.Type)
	assert.Equal(t, "Ada Lovelace", a.ContactName)
	assert.Equal(t, 15, a.Duration)

	_, del, err := h.DeleteActivity(ctx, nil, DeleteInput{ID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, del.Total)
}

func TestDashboardAndGraph(t *testing.T) {
	f := setup(t)
	f.mock.SeedDeal(models.Deal{Title: "Retrofit", ContactID: f.ada.ID, Value: decimal.NewFromInt(100)})
	h := NewVizHandlers(gate{}, f.set)

	_, d, err := h.Dashboard(context.Background(), nil, DashboardInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Contacts)
	assert.Equal(t, 1, d.Deals)
	assert.Equal(t, "100", d.DealValue)
	assert.Len(t, d.Pipeline, 6)
	assert.Empty(t, d.Failed)

	_, g, err := h.GenerateGraph(context.Background(), nil, GenerateGraphInput{})
	require.NoError(t, err)
	assert.Equal(t, "dot", g.Format)
	assert.Contains(t, g.Source, "Retrofit")
	assert.Equal(t, 7, g.NodeCount)
	assert.Equal(t, 6, g.EdgeCount)

	_, _, err = h.GenerateGraph(context.Background(), nil, GenerateGraphInput{Format: "png"})
	assert.Error(t, err)
}

func TestReadResource(t *testing.T) {
	f := setup(t)
	h := NewResourceHandlers(gate{}, f.set)
	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read("crm://contacts")
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	var contacts []ContactOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &contacts))
	assert.Len(t, contacts, 2)

	res, err = read("crm://contacts/" + strconv.FormatInt(f.ada.ID, 10))
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "Lovelace")

	_, err = read("crm://contacts/9999")
	assert.ErrorContains(t, err, "not found")

	res, err = read("crm://pipeline")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "closed_lost")

	_, err = read("http://contacts")
	assert.Error(t, err)
	_, err = read("crm://companies")
	assert.ErrorContains(t, err, "unknown resource")

	closed := NewResourceHandlers(gate{err: errors.New("nope")}, f.set)
	_, err = closed.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://contacts"}})
	assert.Error(t, err)
}

func TestPrompts(t *testing.T) {
	f := setup(t)
	f.mock.SeedDeal(models.Deal{Title: "Retrofit", ContactID: f.ada.ID, Value: decimal.NewFromInt(12000)})
	f.mock.SeedActivity(models.Activity{Subject: "Intro call", ContactID: &f.ada.ID})
	h := NewPromptHandlers(gate{}, f.set)
	get := func(name string, args map[string]string) (*mcp.GetPromptResult, error) {
		return h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: name, Arguments: args}})
	}

	res, err := get("contact-summary", map[string]string{"contact_id": strconv.FormatInt(f.ada.ID, 10)})
	require.NoError(t, err)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, "Retrofit (Lead, $12,000)")
	assert.Contains(t, text, "call: Intro call")

	_, err = get("contact-summary", nil)
	assert.ErrorContains(t, err, "contact_id is required")

	res, err = get("deal-analysis", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "Total Value: $12,000")

	res, err = get("follow-up-suggestions", nil)
	require.NoError(t, err)
	text = res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "- Grace Hopper")
	assert.NotContains(t, text, "- Ada Lovelace")

	_, err = get("company-overview", nil)
	assert.ErrorContains(t, err, "unknown prompt")
}

func TestNewServerRegistersEverything(t *testing.T) {
	f := setup(t)
	assert.NotPanics(t, func() {
		NewServer(gate{}, f.set, "test")
	})
}
