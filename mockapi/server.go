// ABOUTME: In-memory double of the CRM REST API for tests and local development
// ABOUTME: chi router with bcrypt passwords, HS256 bearer tokens and Prometheus metrics
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/harperreed/crmdesk/models"
)

const tokenTTL = 24 * time.Hour

type account struct {
	user models.User
	hash []byte
}

// Server holds every collection in memory. It is safe for concurrent use.
type Server struct {
	secret   []byte
	now      func() time.Time
	validate *validator.Validate
	router   chi.Router
	registry *prometheus.Registry
	requests *prometheus.CounterVec

	mu         sync.Mutex
	nextID     int64
	accounts   []account
	contacts   []models.Contact
	deals      []models.Deal
	tasks      []models.Task
	activities []models.Activity
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HS256 signing key.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithClock overrides time.Now for created_at stamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds an empty API.
func New(opts ...Option) *Server {
	s := &Server{
		secret:   []byte("crmdesk-dev-secret"),
		now:      time.Now,
		validate: validator.New(),
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_mockapi_requests_total",
			Help: "Requests served by the mock API.",
		}, []string{"method", "route", "code"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry.MustRegister(s.requests)
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/register", s.register)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/contacts", s.listContacts)
			r.Post("/contacts", s.createContact)
			r.Get("/contacts/search/{term}", s.searchContacts)
			r.Put("/contacts/{id}", s.updateContact)
			r.Delete("/contacts/{id}", s.deleteContact)

			r.Get("/deals", s.listDeals)
			r.Post("/deals", s.createDeal)
			r.Put("/deals/{id}", s.updateDeal)
			r.Delete("/deals/{id}", s.deleteDeal)

			r.Get("/tasks", s.listTasks)
			r.Post("/tasks", s.createTask)
			r.Put("/tasks/{id}", s.updateTask)
			r.Delete("/tasks/{id}", s.deleteTask)

			r.Get("/activities", s.listActivities)
			r.Post("/activities", s.createActivity)
			r.Put("/activities/{id}", s.updateActivity)
			r.Delete("/activities/{id}", s.deleteActivity)
		})
	})
	return r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
	})
}

// Registry exposes the server's metrics for tests.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// AddUser creates an account directly, for seeding.
func (s *Server) AddUser(name, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findAccountLocked(email) != nil {
		return models.User{}, errors.New("user already exists")
	}
	s.nextID++
	user := models.User{ID: s.nextID, Name: name, Email: email}
	s.accounts = append(s.accounts, account{user: user, hash: hash})
	return user, nil
}

func (s *Server) findAccountLocked(email string) *account {
	for i := range s.accounts {
		if strings.EqualFold(s.accounts[i].user.Email, email) {
			return &s.accounts[i]
		}
	}
	return nil
}

// IssueToken signs a bearer token for userID, valid for a day.
func (s *Server) IssueToken(userID int64) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"userId": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	acct := s.findAccountLocked(creds.Email)
	var found account
	if acct != nil {
		found = *acct
	}
	s.mu.Unlock()

	if acct == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(creds.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.respondWithToken(w, http.StatusOK, found.user)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var profile models.Registration
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(profile); err != nil {
		writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	user, err := s.AddUser(profile.Name, profile.Email, profile.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	s.respondWithToken(w, http.StatusCreated, user)
}

func (s *Server) respondWithToken(w http.ResponseWriter, status int, user models.User) {
	token, err := s.IssueToken(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, status, models.AuthResponse{Token: token, User: &user})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		_, err := jwt.Parse(strings.TrimSpace(raw), func(*jwt.Token) (any, error) {
			return s.secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.now),
		)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}
