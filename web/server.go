// ABOUTME: Web UI server with embedded templates
// ABOUTME: Provides a read-only browser view of the signed-in user's CRM on localhost
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
	"github.com/harperreed/crmdesk/viz"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Gate reports whether a user is signed in.
type Gate interface {
	Require() error
}

type Server struct {
	gate      Gate
	set       *resource.Set
	templates *template.Template
	logger    *log.Logger
	now       func() time.Time
	router    chi.Router
}

func NewServer(gate Gate, set *resource.Set, logger *log.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"currency": views.FormatCurrency,
		"label":    func(s models.Stage) string { return s.Label() },
		"when": func(t models.Timestamp) string {
			if !t.Present() {
				return ""
			}
			return t.Local().Format("Jan 2 15:04")
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		gate:      gate,
		set:       set,
		templates: tmpl,
		logger:    logger,
		now:       time.Now,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requireSession)

	r.Get("/", s.handleDashboard)
	r.Get("/contacts", s.handleContacts)
	r.Get("/deals", s.handleDeals)
	r.Get("/tasks", s.handleTasks)
	r.Get("/activities", s.handleActivities)
	r.Get("/graph.svg", s.handleGraph)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting web server", "url", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop web server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.gate.Require(); err != nil {
			http.Error(w, "Not logged in. Run 'crmdesk login' and reload.", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// page is what layout.html renders; Content names the block to show.
type page struct {
	Title   string
	Content string
	Warning string
	Data    any
}

func (s *Server) renderTemplate(w http.ResponseWriter, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "layout.html", p); err != nil {
		s.logger.Error("template error", "page", p.Content, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// load refreshes a collection; a failure with data already mirrored is a
// warning, without data it fails the page.
func (s *Server) load(w http.ResponseWriter, r *http.Request, list func(context.Context) error, hasItems bool) (string, bool) {
	err := list(r.Context())
	if err == nil {
		return "", true
	}
	if hasItems {
		return "Showing cached data: " + err.Error(), true
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
	return "", false
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := viz.LoadDashboard(r.Context(), s.set, s.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	warning := ""
	if err := d.Partial(); err != nil {
		warning = err.Error()
	}
	s.renderTemplate(w, page{Title: "Dashboard", Content: "dashboard", Warning: warning, Data: d})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	c := s.set.Contacts
	warning, ok := s.load(w, r, c.List, len(c.Items()) > 0)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	s.renderTemplate(w, page{Title: "Contacts", Content: "contacts", Warning: warning, Data: map[string]any{
		"Query":    query,
		"Contacts": views.FilterContacts(c.Items(), query),
	}})
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	c := s.set.Deals
	warning, ok := s.load(w, r, c.List, len(c.Items()) > 0)
	if !ok {
		return
	}
	pipeline := views.GroupByStage(c.Items())
	s.renderTemplate(w, page{Title: "Deals", Content: "deals", Warning: warning, Data: map[string]any{
		"Pipeline": pipeline,
		"Total":    pipeline.Total(),
		"Value":    pipeline.Value(),
	}})
}

type taskRow struct {
	models.Task
	Overdue bool
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	c := s.set.Tasks
	warning, ok := s.load(w, r, c.List, len(c.Items()) > 0)
	if !ok {
		return
	}
	now := s.now()
	view := views.ParseTaskView(r.URL.Query().Get("view"))
	var rows []taskRow
	for _, t := range views.FilterTasks(c.Items(), view, now) {
		rows = append(rows, taskRow{Task: t, Overdue: views.IsOverdue(t, now)})
	}
	s.renderTemplate(w, page{Title: "Tasks", Content: "tasks", Warning: warning, Data: map[string]any{
		"View":   view,
		"Views":  views.TaskViews,
		"Counts": views.CountTasks(c.Items(), now),
		"Tasks":  rows,
	}})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	c := s.set.Activities
	warning, ok := s.load(w, r, c.List, len(c.Items()) > 0)
	if !ok {
		return
	}
	s.renderTemplate(w, page{Title: "Activities", Content: "activities", Warning: warning, Data: map[string]any{
		"Activities": views.RecentActivities(c.Items(), -1),
	}})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.set.Deals.List(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	svg, err := viz.RenderPipeline(r.Context(), views.GroupByStage(s.set.Deals.Items()), viz.FormatSVG)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(svg))
}
