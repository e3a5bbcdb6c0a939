// ABOUTME: Tests for dashboard loading and pipeline rendering
// ABOUTME: Uses the mock API with one collection forced to fail
package viz

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/mockapi"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
)

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

func sources(client *api.Client) *resource.Set {
	return resource.NewSet(client, resource.WithLogger(quietLogger()))
}

// brokenTasks serves the mock API but fails every task request.
func brokenTasks(mock *mockapi.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/tasks") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		mock.ServeHTTP(w, r)
	})
}

func TestLoadDashboardToleratesPartialFailure(t *testing.T) {
	mock := mockapi.New()
	user, err := mock.AddUser("A", "a@b.com", "x")
	require.NoError(t, err)
	token, err := mock.IssueToken(user.ID)
	require.NoError(t, err)

	ada := mock.SeedContact(models.Contact{FirstName: "Ada", LastName: "Lovelace"})
	mock.SeedDeal(models.Deal{Title: "D1", ContactID: ada.ID, Value: decimal.NewFromInt(100)})
	mock.SeedDeal(models.Deal{Title: "D2", ContactID: ada.ID, Value: decimal.NewFromInt(50), Stage: models.StageClosedWon})
	mock.SeedTask(models.Task{Title: "never seen"})
	for i := 0; i < 7; i++ {
		mock.SeedActivity(models.Activity{Subject: "touch", ContactID: &ada.ID})
	}

	srv := httptest.NewServer(brokenTasks(mock))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	client.SetAuthorization("Bearer " + token)

	d, err := LoadDashboard(context.Background(), sources(client), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, d.TotalContacts)
	assert.Equal(t, 2, d.TotalDeals)
	assert.Equal(t, 0, d.TotalTasks)
	assert.Equal(t, 7, d.TotalActivities)
	assert.Equal(t, "150", d.DealValue.String())
	assert.Len(t, d.RecentActivity, RecentLimit)
	assert.Equal(t, []string{"tasks"}, d.Failed)
	assert.ErrorIs(t, d.Partial(), ErrPartial)

	out := RenderDashboard(d)
	assert.Contains(t, out, "CRMDESK DASHBOARD")
	assert.Contains(t, out, "$150 total deal value")
	assert.Contains(t, out, "Closed Won")
	assert.Contains(t, out, "could not load: tasks")
}

func TestLoadDashboardZeroedWhenNothingLoads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d, err := LoadDashboard(context.Background(), sources(api.NewClient(srv.URL, api.WithLogger(quietLogger()))), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"contacts", "deals", "tasks", "activities"}, d.Failed)
	assert.Zero(t, d.TotalContacts+d.TotalDeals+d.TotalTasks+d.TotalActivities)
	assert.True(t, d.DealValue.IsZero())
	assert.Len(t, d.Pipeline, 6)
	assert.ErrorIs(t, d.Partial(), ErrPartial)
	assert.Contains(t, RenderDashboard(d), "could not load: contacts, deals, tasks, activities")
}

func TestLoadDashboardStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadDashboard(ctx, sources(api.NewClient(srv.URL, api.WithLogger(quietLogger()))), time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildDashboardCountsTasks(t *testing.T) {
	now := time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: 1, Status: models.StatusPending, DueDate: models.NewDate(now.AddDate(0, 0, -1))},
		{ID: 2, Status: models.StatusCompleted},
	}
	d := BuildDashboard(nil, nil, tasks, nil, now)
	assert.Equal(t, views.TaskCounts{All: 2, Pending: 1, Completed: 1, Overdue: 1}, d.Tasks)
	assert.Len(t, d.Pipeline, 6)
	assert.NoError(t, d.Partial())
	assert.Contains(t, RenderDashboard(d), "No recent activities")
}

func TestRenderPipeline(t *testing.T) {
	pipeline := views.GroupByStage([]models.Deal{
		{ID: 11, Title: "Retrofit", Stage: models.StageProposal, Value: decimal.NewFromInt(12000), ContactFirstName: "Ada", ContactLastName: "Lovelace"},
		{ID: 12, Title: "Audit", Stage: models.StageClosedLost},
	})

	dot, err := RenderPipeline(context.Background(), pipeline, FormatDOT)
	require.NoError(t, err)
	assert.Contains(t, dot, "stage_lead")
	assert.Contains(t, dot, "stage_closed_lost")
	assert.Contains(t, dot, "deal_11")
	assert.Contains(t, dot, "Retrofit")

	svg, err := RenderPipeline(context.Background(), pipeline, FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, svg, "<svg")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatDOT, f)

	_, err = ParseFormat("png")
	assert.Error(t, err)
}
