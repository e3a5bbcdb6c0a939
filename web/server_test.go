// ABOUTME: Tests for the read-only web UI
// ABOUTME: Renders each page through httptest against the mock API
package web

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
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
)

type gate struct{ err error }

func (g gate) Require() error { return g.err }

func newTestServer(t *testing.T, g Gate) (*Server, *mockapi.Server) {
	t.Helper()
	mock := mockapi.New()
	user, err := mock.AddUser("A", "a@b.com", "x")
	require.NoError(t, err)
	token, err := mock.IssueToken(user.ID)
	require.NoError(t, err)

	backend := httptest.NewServer(mock)
	t.Cleanup(backend.Close)

	logger := log.New(io.Discard)
	client := api.NewClient(backend.URL, api.WithLogger(logger))
	client.SetAuthorization("Bearer " + token)

	srv, err := NewServer(g, resource.NewSet(client, resource.WithLogger(logger)), logger)
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return srv, mock
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, rec.Body.String()
}

func TestPagesRequireSession(t *testing.T) {
	srv, _ := newTestServer(t, gate{err: errors.New("not authenticated")})
	code, body := get(t, srv, "/")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body, "crmdesk login")
}

func TestDashboardPage(t *testing.T) {
	srv, mock := newTestServer(t, gate{})
	ada := mock.SeedContact(models.Contact{FirstName: "Ada", LastName: "Lovelace"})
	mock.SeedDeal(models.Deal{Title: "Retrofit", ContactID: ada.ID, Value: decimal.NewFromInt(12000)})
	mock.SeedActivity(models.Activity{Subject: "Intro call", ContactID: &ada.ID})

	code, body := get(t, srv, "/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "1 contacts")
	assert.Contains(t, body, "$12,000")
	assert.Contains(t, body, "Closed Won")
	assert.Contains(t, body, "Intro call")
}

func TestContactsSearch(t *testing.T) {
	srv, mock := newTestServer(t, gate{})
	mock.SeedContact(models.Contact{FirstName: "Ada", LastName: "Lovelace", Company: "Engines"})
	mock.SeedContact(models.Contact{FirstName: "Grace", LastName: "Hopper", Company: "Navy"})

	_, body := get(t, srv, "/contacts")
	assert.Contains(t, body, "Lovelace")
	assert.Contains(t, body, "Hopper")

	_, body = get(t, srv, "/contacts?q=NAVY")
	assert.Contains(t, body, "Hopper")
	assert.NotContains(t, body, "Lovelace")
	assert.Contains(t, body, `value="NAVY"`)
}

func TestDealsBoard(t *testing.T) {
	srv, mock := newTestServer(t, gate{})
	mock.SeedDeal(models.Deal{Title: "Retrofit", Stage: models.StageNegotiation, Value: decimal.NewFromInt(500)})

	code, body := get(t, srv, "/deals")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Negotiation (1)")
	assert.Contains(t, body, "Lead (0)")
	assert.Contains(t, body, "Retrofit")
}

func TestTasksViews(t *testing.T) {
	srv, mock := newTestServer(t, gate{})
	mock.SeedTask(models.Task{Title: "Late one", DueDate: models.NewDate(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))})
	mock.SeedTask(models.Task{Title: "Done one", Status: models.StatusCompleted})

	_, body := get(t, srv, "/tasks?view=overdue")
	assert.Contains(t, body, "Late one")
	assert.Contains(t, body, "⚠ overdue")
	assert.NotContains(t, body, "Done one")
	assert.Contains(t, body, "completed (1)")
}

func TestPendingViewExcludesInProgress(t *testing.T) {
	srv, mock := newTestServer(t, gate{})
	mock.SeedTask(models.Task{Title: "Queued one"})
	mock.SeedTask(models.Task{Title: "Working one", Status: models.StatusInProgress})

	_, body := get(t, srv, "/tasks?view=pending")
	assert.Contains(t, body, "Queued one")
	assert.NotContains(t, body, "Working one")
	assert.Contains(t, body, "pending (1)")
	assert.Contains(t, body, "all (2)")
}

func TestActivitiesAndGraph(t *testing.T) {
	srv, mock := newTestServer(t, gate{})
	mock.SeedActivity(models.Activity{Subject: "Pricing email", Type: models.ActivityEmail})
	mock.SeedDeal(models.Deal{Title: "Retrofit"})

	_, body := get(t, srv, "/activities")
	assert.Contains(t, body, "Pricing email")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph.svg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestFetchFailureWithoutDataIsBadGateway(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	logger := log.New(io.Discard)
	srv, err := NewServer(gate{}, resource.NewSet(api.NewClient(broken.URL, api.WithLogger(logger)), resource.WithLogger(logger)), logger)
	require.NoError(t, err)

	code, _ := get(t, srv, "/contacts")
	assert.Equal(t, http.StatusBadGateway, code)

	code, body := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "some collections could not be loaded")
}
