// ABOUTME: Tests for the resource controller and edit dialog
// ABOUTME: Runs against the in-memory mock API over httptest
package resource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/mockapi"
	"github.com/harperreed/crmdesk/models"
)

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

func setupAPI(t *testing.T) (*mockapi.Server, *api.Client) {
	t.Helper()
	mock := mockapi.New()
	user, err := mock.AddUser("A", "a@b.com", "x")
	require.NoError(t, err)
	token, err := mock.IssueToken(user.ID)
	require.NoError(t, err)

	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	client.SetAuthorization("Bearer " + token)
	return mock, client
}

func TestCreateDealResyncs(t *testing.T) {
	mock, client := setupAPI(t)
	contact := mock.SeedContact(models.Contact{FirstName: "Ada", LastName: "Lovelace"})

	deals := NewController[models.Deal](client, "/deals", WithLogger(quietLogger()))
	require.NoError(t, deals.List(context.Background()))
	assert.Empty(t, deals.Items())

	form := forms.DealForm{Title: "D1", ContactID: strconv.FormatInt(contact.ID, 10), Stage: "lead", Value: "100"}
	require.NoError(t, deals.Create(context.Background(), form))

	items := deals.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "D1", items[0].Title)
	assert.Equal(t, models.StageLead, items[0].Stage)
	assert.Equal(t, "100", items[0].Value.String())
	assert.Equal(t, "Ada", items[0].ContactFirstName)
	assert.False(t, deals.LastSynced().IsZero())
}

func TestDeleteUnknownTaskKeepsMirror(t *testing.T) {
	mock, client := setupAPI(t)
	mock.SeedTask(models.Task{Title: "Keep me"})

	tasks := NewController[models.Task](client, "tasks", WithLogger(quietLogger()))
	require.NoError(t, tasks.List(context.Background()))
	before := tasks.Items()
	require.Len(t, before, 1)

	err := tasks.Delete(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "Task not found", api.Message(err))
	assert.Equal(t, before, tasks.Items())
}

func TestUpdateTogglesTaskStatus(t *testing.T) {
	mock, client := setupAPI(t)
	seeded := mock.SeedTask(models.Task{Title: "Call back"})

	tasks := NewController[models.Task](client, "/tasks", WithLogger(quietLogger()))
	require.NoError(t, tasks.List(context.Background()))

	task, ok := tasks.Get(seeded.ID)
	require.True(t, ok)
	require.NoError(t, tasks.Update(context.Background(), task.ID, models.StatusPatch{Status: task.ToggledStatus()}))

	task, ok = tasks.Get(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, "Call back", task.Title)
}

func TestValidationBlocksRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	contacts := NewController[models.Contact](api.NewClient(srv.URL), "/contacts", WithLogger(quietLogger()))
	err := contacts.Create(context.Background(), forms.ContactForm{FirstName: "Ada"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Last name is required")
	assert.Equal(t, int32(0), hits.Load())
}

func TestFailedListKeepsItemsAndMarksStale(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"first_name":"Ada","last_name":"Lovelace"}]`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	contacts := NewController[models.Contact](api.NewClient(srv.URL), "/contacts",
		WithLogger(quietLogger()), WithClock(func() time.Time { return now }))
	require.NoError(t, contacts.List(context.Background()))
	assert.False(t, contacts.Stale())

	fail.Store(true)
	require.Error(t, contacts.List(context.Background()))
	assert.Len(t, contacts.Items(), 1)
	assert.True(t, contacts.Stale())
	assert.Error(t, contacts.Err())
	assert.Equal(t, now, contacts.LastSynced())

	fail.Store(false)
	require.NoError(t, contacts.List(context.Background()))
	assert.False(t, contacts.Stale())
	assert.NoError(t, contacts.Err())
}

func TestUnknownStageFailsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"title":"D1","stage":"won"}]`))
	}))
	defer srv.Close()

	deals := NewController[models.Deal](api.NewClient(srv.URL), "/deals", WithLogger(quietLogger()))
	require.Error(t, deals.List(context.Background()))
	assert.Empty(t, deals.Items())
	assert.True(t, deals.Stale())
}

func TestSearchLeavesMirrorAlone(t *testing.T) {
	mock, client := setupAPI(t)
	mock.SeedContact(models.Contact{FirstName: "Ada", LastName: "Lovelace"})
	mock.SeedContact(models.Contact{FirstName: "Grace", LastName: "Hopper"})

	contacts := NewController[models.Contact](client, "/contacts", WithLogger(quietLogger()))
	require.NoError(t, contacts.List(context.Background()))

	found, err := contacts.Search(context.Background(), "hop")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Grace", found[0].FirstName)
	assert.Len(t, contacts.Items(), 2)

	all, err := contacts.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestItemsIsACopy(t *testing.T) {
	mock, client := setupAPI(t)
	mock.SeedContact(models.Contact{FirstName: "Ada", LastName: "Lovelace"})

	contacts := NewController[models.Contact](client, "/contacts", WithLogger(quietLogger()))
	require.NoError(t, contacts.List(context.Background()))

	items := contacts.Items()
	items[0].FirstName = "Changed"
	assert.Equal(t, "Ada", contacts.Items()[0].FirstName)
}

type recordingMutator struct {
	created []any
	updated map[int64]any
	err     error
}

func (m *recordingMutator) Create(_ context.Context, draft any) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, draft)
	return nil
}

func (m *recordingMutator) Update(_ context.Context, id int64, patch any) error {
	if m.err != nil {
		return m.err
	}
	if m.updated == nil {
		m.updated = map[int64]any{}
	}
	m.updated[id] = patch
	return nil
}

func TestDialogCreateThenEdit(t *testing.T) {
	var d Dialog[forms.TaskForm]
	assert.False(t, d.IsOpen())

	d.OpenCreate(forms.NewTaskForm())
	_, editing := d.Editing()
	assert.False(t, editing)
	d.Form().Title = "Write report"

	m := &recordingMutator{}
	require.NoError(t, d.Submit(context.Background(), m))
	require.Len(t, m.created, 1)
	assert.Equal(t, "Write report", m.created[0].(forms.TaskForm).Title)
	assert.False(t, d.IsOpen())

	d.OpenEdit(7, forms.FromTask(models.Task{ID: 7, Title: "Old", Status: models.StatusPending}))
	id, editing := d.Editing()
	assert.True(t, editing)
	assert.Equal(t, int64(7), id)

	require.NoError(t, d.Submit(context.Background(), m))
	assert.Equal(t, "Old", m.updated[7].(forms.TaskForm).Title)
}

func TestDialogStaysOpenOnFailure(t *testing.T) {
	var d Dialog[forms.ContactForm]
	d.OpenCreate(forms.NewContactForm())

	m := &recordingMutator{err: errors.New("boom")}
	require.Error(t, d.Submit(context.Background(), m))
	assert.True(t, d.IsOpen())
	assert.EqualError(t, d.Err(), "boom")

	d.Close()
	assert.False(t, d.IsOpen())
	assert.NoError(t, d.Err())
}

func TestDialogSubmitThroughController(t *testing.T) {
	_, client := setupAPI(t)
	contacts := NewController[models.Contact](client, "/contacts", WithLogger(quietLogger()))

	var d Dialog[forms.ContactForm]
	d.OpenCreate(forms.NewContactForm())
	d.Form().FirstName = "Ada"

	err := d.Submit(context.Background(), contacts)
	require.ErrorIs(t, err, ErrValidation)
	assert.True(t, d.IsOpen())

	d.Form().LastName = "Lovelace"
	require.NoError(t, d.Submit(context.Background(), contacts))
	assert.False(t, d.IsOpen())
	require.Len(t, contacts.Items(), 1)
	assert.Equal(t, "Lovelace", contacts.Items()[0].LastName)
}
