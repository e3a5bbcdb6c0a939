// ABOUTME: Tests for the session lifecycle
// ABOUTME: Login, restore, logout and forced teardown against a stub API
package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

func setupSlots(t *testing.T) *store.Badger {
	t.Helper()
	slots, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = slots.Close() })
	return slots
}

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

// authAPI answers login and register with token T1 and protects /contacts.
func authAPI(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var registers atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "x" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"T1","user":{"id":1,"name":"A"}}`))
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		registers.Add(1)
		_, _ = w.Write([]byte(`{"token":"T2","user":{"id":2,"name":"B","email":"b@c.com"}}`))
	})
	mux.HandleFunc("GET /api/contacts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid token"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &registers
}

func TestLoginPersistsAndSetsHeader(t *testing.T) {
	srv, _ := authAPI(t)
	slots := setupSlots(t)
	client := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	s := New(client, slots, WithLogger(quietLogger()))

	user, err := s.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "A", user.Name)

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "T1", s.Token())
	assert.Equal(t, "Bearer T1", client.Authorization())
	assert.Empty(t, s.ErrorMessage())

	saved, err := slots.Load(store.SlotToken, store.SlotUser)
	require.NoError(t, err)
	assert.Equal(t, "T1", string(saved[store.SlotToken]))
	assert.JSONEq(t, `{"id":1,"name":"A"}`, string(saved[store.SlotUser]))
}

func TestLoginFailureKeepsServerMessage(t *testing.T) {
	srv, _ := authAPI(t)
	client := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	expired := 0
	s := New(client, setupSlots(t), WithLogger(quietLogger()), WithNavigator(func() { expired++ }))

	_, err := s.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, "Invalid credentials", s.ErrorMessage())
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, 0, expired, "an anonymous 401 is not a session expiry")
}

func TestLoginFailureFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(api.NewClient(srv.URL, api.WithLogger(quietLogger())), setupSlots(t), WithLogger(quietLogger()))
	_, err := s.Login(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.Equal(t, "An error occurred during login", s.ErrorMessage())
}

func TestLoginRejectsIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"T1"}`))
	}))
	defer srv.Close()

	slots := setupSlots(t)
	s := New(api.NewClient(srv.URL, api.WithLogger(quietLogger())), slots, WithLogger(quietLogger()))
	_, err := s.Login(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.False(t, s.IsAuthenticated())

	saved, err := slots.Load(store.SlotToken)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestRegisterSignsIn(t *testing.T) {
	srv, registers := authAPI(t)
	client := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	s := New(client, setupSlots(t), WithLogger(quietLogger()))

	user, err := s.Register(context.Background(), models.Registration{Name: "B", Email: "b@c.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "b@c.com", user.Email)
	assert.Equal(t, "Bearer T2", client.Authorization())
	assert.Equal(t, int32(1), registers.Load())
}

func TestRegisterValidatesBeforeRequest(t *testing.T) {
	srv, registers := authAPI(t)
	s := New(api.NewClient(srv.URL, api.WithLogger(quietLogger())), setupSlots(t), WithLogger(quietLogger()))

	_, err := s.Register(context.Background(), models.Registration{Name: "B", Email: "b@c.com"})
	require.Error(t, err)
	assert.Equal(t, int32(0), registers.Load())
	assert.NotEmpty(t, s.ErrorMessage())
	assert.False(t, s.IsAuthenticated())
}

func TestLogoutThenBootstrapIsAnonymous(t *testing.T) {
	srv, _ := authAPI(t)
	slots := setupSlots(t)
	client := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	s := New(client, slots, WithLogger(quietLogger()))

	_, err := s.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	require.NoError(t, s.Logout())

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, client.Authorization())

	// A fresh process over the same slots.
	fresh := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	restored := New(fresh, slots, WithLogger(quietLogger()))
	require.NoError(t, restored.Bootstrap())
	assert.False(t, restored.IsAuthenticated())
	assert.Empty(t, fresh.Authorization())

	// Logging out twice is harmless.
	require.NoError(t, s.Logout())
}

func TestBootstrapRestoresSession(t *testing.T) {
	slots := setupSlots(t)
	require.NoError(t, slots.Store(map[string][]byte{
		store.SlotToken: []byte("T1"),
		store.SlotUser:  []byte(`{"id":1,"name":"A"}`),
	}))

	client := api.NewClient("http://example.invalid")
	s := New(client, slots, WithLogger(quietLogger()))
	require.NoError(t, s.Bootstrap())

	snap := s.Snapshot()
	require.True(t, snap.Authenticated())
	assert.Equal(t, "A", snap.User.Name)
	assert.Equal(t, "Bearer T1", client.Authorization())
}

func TestBootstrapClearsHalfSession(t *testing.T) {
	slots := setupSlots(t)
	require.NoError(t, slots.Store(map[string][]byte{store.SlotToken: []byte("T1")}))

	client := api.NewClient("http://example.invalid")
	s := New(client, slots, WithLogger(quietLogger()))
	require.NoError(t, s.Bootstrap())

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, client.Authorization())
	saved, err := slots.Load(store.SlotToken, store.SlotUser)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestBootstrapDropsExpiredToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": 1,
		"exp":    now.Add(-time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	slots := setupSlots(t)
	require.NoError(t, slots.Store(map[string][]byte{
		store.SlotToken: []byte(signed),
		store.SlotUser:  []byte(`{"id":1,"name":"A"}`),
	}))

	s := New(api.NewClient("http://example.invalid"), slots,
		WithLogger(quietLogger()), WithClock(func() time.Time { return now }))
	require.NoError(t, s.Bootstrap())
	assert.False(t, s.IsAuthenticated())

	// The same token is accepted before it expires.
	require.NoError(t, slots.Store(map[string][]byte{
		store.SlotToken: []byte(signed),
		store.SlotUser:  []byte(`{"id":1,"name":"A"}`),
	}))
	earlier := New(api.NewClient("http://example.invalid"), slots,
		WithLogger(quietLogger()), WithClock(func() time.Time { return now.Add(-time.Hour) }))
	require.NoError(t, earlier.Bootstrap())
	assert.True(t, earlier.IsAuthenticated())
}

func TestUnauthorizedResponseTearsDown(t *testing.T) {
	srv, _ := authAPI(t)
	slots := setupSlots(t)
	client := api.NewClient(srv.URL, api.WithLogger(quietLogger()))

	navigated := 0
	s := New(client, slots, WithLogger(quietLogger()), WithNavigator(func() { navigated++ }))
	require.NoError(t, slots.Store(map[string][]byte{
		store.SlotToken: []byte("stale"),
		store.SlotUser:  []byte(`{"id":1,"name":"A"}`),
	}))
	require.NoError(t, s.Bootstrap())
	require.True(t, s.IsAuthenticated())

	err := client.Get(context.Background(), "/contacts", nil)
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err), "caller still sees the failure")

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, client.Authorization())
	assert.Equal(t, 1, navigated)

	saved, err := slots.Load(store.SlotToken, store.SlotUser)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDeviceIDIsStable(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Client-ID")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	slots := setupSlots(t)
	client := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	first := New(client, slots, WithLogger(quietLogger()))
	require.NoError(t, first.Bootstrap())
	require.NotEmpty(t, first.DeviceID())

	require.NoError(t, client.Get(context.Background(), "/contacts", nil))
	assert.Equal(t, first.DeviceID(), seen)

	second := New(api.NewClient(srv.URL), slots, WithLogger(quietLogger()))
	require.NoError(t, second.Bootstrap())
	assert.Equal(t, first.DeviceID(), second.DeviceID())
}

func TestRequire(t *testing.T) {
	s := New(api.NewClient("http://example.invalid"), setupSlots(t), WithLogger(quietLogger()))
	assert.ErrorIs(t, s.Require(), ErrNotAuthenticated)
}

func TestRequirePicksUpLoginFromAnotherProcess(t *testing.T) {
	srv, _ := authAPI(t)
	dir := t.TempDir()

	serverSlots, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSlots.Close() })
	serverClient := api.NewClient(srv.URL, api.WithLogger(quietLogger()))
	server := New(serverClient, serverSlots, WithLogger(quietLogger()))
	require.NoError(t, server.Bootstrap())
	assert.ErrorIs(t, server.Require(), ErrNotAuthenticated)

	cliSlots, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cliSlots.Close() })
	login := New(api.NewClient(srv.URL, api.WithLogger(quietLogger())), cliSlots, WithLogger(quietLogger()))
	_, err = login.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	require.NoError(t, server.Require())
	assert.Equal(t, "A", server.User().Name)
	assert.Equal(t, "Bearer T1", serverClient.Authorization())
}
