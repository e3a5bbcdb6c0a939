// ABOUTME: Process-wide authentication state with an explicit lifecycle
// ABOUTME: Owns the bearer token, its persisted slots and the client's auth header
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/oauth2"

	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

const (
	loginFallback    = "An error occurred during login"
	registerFallback = "An error occurred during registration"
)

// ErrNotAuthenticated is returned by operations that need a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Snapshot is one consistent view of the session.
type Snapshot struct {
	User  *models.User
	Token string
}

// Authenticated reports whether the snapshot holds a session.
func (s Snapshot) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Store is the single owner of session state. Token and user are set and
// cleared together with the persisted slots and the client's header.
type Store struct {
	client   *api.Client
	slots    store.Slots
	logger   *log.Logger
	now      func() time.Time
	validate *validator.Validate

	mu        sync.RWMutex
	user      *models.User
	token     *oauth2.Token
	message   string
	deviceID  string
	navigator []func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNavigator registers the hook run after a forced teardown; it sends
// the user back to the login entry point.
func WithNavigator(fn func()) Option {
	return func(s *Store) { s.navigator = append(s.navigator, fn) }
}

// New creates a session bound to client and hooks its 401 handling into
// every request the client makes.
func New(client *api.Client, slots store.Slots, opts ...Option) *Store {
	s := &Store{
		client:   client,
		slots:    slots,
		logger:   log.Default(),
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	client.UseResponse(s.handleFailure)
	return s
}

// OnExpired adds a navigator hook after construction.
func (s *Store) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigator = append(s.navigator, fn)
}

// Bootstrap restores a persisted session. Anything short of a complete,
// unexpired (token, user) pair leaves the session unauthenticated.
func (s *Store) Bootstrap() error {
	saved, err := s.slots.Load(store.SlotToken, store.SlotUser, store.SlotDeviceID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := s.ensureDeviceID(saved[store.SlotDeviceID]); err != nil {
		s.logger.Warn("device id not persisted", "err", err)
	}

	rawToken, hasToken := saved[store.SlotToken]
	rawUser, hasUser := saved[store.SlotUser]
	if !hasToken && !hasUser {
		return nil
	}

	token, user, err := s.restore(rawToken, rawUser, hasToken && hasUser)
	if err != nil {
		s.logger.Info("discarding persisted session", "reason", err)
		if err := s.slots.Remove(store.SlotToken, store.SlotUser); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = token
	s.message = ""
	s.client.SetAuthorization(authorization(token))
	s.logger.Debug("session restored", "user_id", user.ID)
	return nil
}

func (s *Store) restore(rawToken, rawUser []byte, complete bool) (*oauth2.Token, *models.User, error) {
	if !complete {
		return nil, nil, errors.New("incomplete session")
	}

	var user models.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		return nil, nil, fmt.Errorf("unreadable user: %w", err)
	}

	token := s.newToken(string(rawToken))
	if token.AccessToken == "" {
		return nil, nil, errors.New("empty token")
	}
	if !token.Expiry.IsZero() && !token.Expiry.After(s.now()) {
		return nil, nil, errors.New("token expired")
	}
	return token, &user, nil
}

func (s *Store) ensureDeviceID(saved []byte) error {
	id := string(saved)
	var err error
	if id == "" {
		id = ulid.Make().String()
		err = s.slots.Store(map[string][]byte{store.SlotDeviceID: []byte(id)})
	}

	s.mu.Lock()
	s.deviceID = id
	s.mu.Unlock()
	s.client.SetDefaultHeader("X-Client-ID", id)
	return err
}

// newToken wraps a raw bearer token. JWTs carry their expiry; opaque
// tokens never expire client-side.
func (s *Store) newToken(raw string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return tok
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tok.Expiry = exp.Time
	}
	return tok
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp models.AuthResponse
	creds := models.Credentials{Email: email, Password: password}
	if err := s.client.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return nil, s.fail(err, loginFallback)
	}
	return s.establish(resp, loginFallback)
}

// Register creates an account and signs into it.
func (s *Store) Register(ctx context.Context, profile models.Registration) (*models.User, error) {
	if err := s.validate.Struct(profile); err != nil {
		return nil, s.fail(fmt.Errorf("name, email and password are required: %w", err), "Name, email and password are required")
	}

	var resp models.AuthResponse
	if err := s.client.Post(ctx, "/auth/register", profile, &resp); err != nil {
		return nil, s.fail(err, registerFallback)
	}
	return s.establish(resp, registerFallback)
}

func (s *Store) establish(resp models.AuthResponse, fallback string) (*models.User, error) {
	if resp.Token == "" || resp.User == nil {
		return nil, s.fail(errors.New("auth response is missing token or user"), fallback)
	}

	rawUser, err := json.Marshal(resp.User)
	if err != nil {
		return nil, s.fail(fmt.Errorf("failed to encode user: %w", err), fallback)
	}

	token := s.newToken(resp.Token)

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.slots.Store(map[string][]byte{
		store.SlotToken: []byte(resp.Token),
		store.SlotUser:  rawUser,
	})
	if err != nil {
		s.message = fallback
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	user := *resp.User
	s.user = &user
	s.token = token
	s.message = ""
	s.client.SetAuthorization(authorization(token))
	s.logger.Info("signed in", "user_id", user.ID)

	out := user
	return &out, nil
}

// fail records a human-readable message and hands err back to the caller.
func (s *Store) fail(err error, fallback string) error {
	message := api.Message(err)
	if message == "" {
		message = fallback
	}

	s.mu.Lock()
	s.message = message
	s.mu.Unlock()

	s.logger.Debug("authentication failed", "err", err)
	return err
}

// Logout clears persisted and in-memory credentials and the client header.
// Calling it without a session does nothing.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *Store) clearLocked() error {
	err := s.slots.Remove(store.SlotToken, store.SlotUser)
	s.user = nil
	s.token = nil
	s.message = ""
	s.client.ClearAuthorization()
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Expire tears the session down and runs the navigator hooks.
func (s *Store) Expire() {
	s.mu.Lock()
	wasAuthenticated := s.user != nil
	if err := s.clearLocked(); err != nil {
		s.logger.Error("session teardown incomplete", "err", err)
	}
	hooks := make([]func(), len(s.navigator))
	copy(hooks, s.navigator)
	s.mu.Unlock()

	if wasAuthenticated {
		s.logger.Warn("session expired")
	}
	for _, fn := range hooks {
		fn()
	}
}

func (s *Store) handleFailure(_ context.Context, failure *api.Error) {
	if failure.StatusCode != http.StatusUnauthorized || !failure.Authenticated {
		return
	}
	s.Expire()
}

// Snapshot returns the current session atomically.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil || s.token == nil {
		return Snapshot{}
	}
	user := *s.user
	return Snapshot{User: &user, Token: s.token.AccessToken}
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().Authenticated()
}

// User returns the signed-in user, or nil.
func (s *Store) User() *models.User {
	return s.Snapshot().User
}

// Token returns the bearer token, or "".
func (s *Store) Token() string {
	return s.Snapshot().Token
}

// ErrorMessage is the last authentication failure shown to the user.
func (s *Store) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

// DeviceID identifies this installation to the API.
func (s *Store) DeviceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceID
}

// Require returns ErrNotAuthenticated when no one is signed in. A signed
// out store first re-reads its slots, so a long-running server picks up a
// login made by another crmdesk process.
func (s *Store) Require() error {
	if s.IsAuthenticated() {
		return nil
	}
	if err := s.Bootstrap(); err != nil {
		s.logger.Warn("could not reload session", "err", err)
	}
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

func authorization(tok *oauth2.Token) string {
	return tok.Type() + " " + tok.AccessToken
}
