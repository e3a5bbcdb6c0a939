// ABOUTME: Generic client-side mirror of one REST collection
// ABOUTME: Lists, creates, updates and deletes records, resyncing after every mutation
package resource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/models"
)

// ErrValidation is returned, wrapped, when a draft is missing a required
// field. No request is sent.
var ErrValidation = errors.New("validation failed")

// Validatable drafts are checked before they are sent.
type Validatable interface {
	Validate() error
}

// Payloader drafts convert themselves to a wire body.
type Payloader interface {
	Payload() (any, error)
}

// Mutator is the write side of a controller.
type Mutator interface {
	Create(ctx context.Context, draft any) error
	Update(ctx context.Context, id int64, patch any) error
}

type settings struct {
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Controller.
type Option func(*settings)

// WithLogger sets the controller logger.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithClock overrides time.Now for sync stamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// Controller mirrors the collection at path. The mirror only changes on a
// successful List; a later response replaces an earlier one.
type Controller[T models.Record] struct {
	client *api.Client
	path   string
	settings

	mu     sync.RWMutex
	items  []T
	err    error
	synced time.Time
	stale  bool
}

// NewController creates an empty controller for the collection at path,
// e.g. "/deals".
func NewController[T models.Record](client *api.Client, path string, opts ...Option) *Controller[T] {
	s := settings{logger: log.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return &Controller[T]{
		client:   client,
		path:     "/" + strings.Trim(path, "/"),
		settings: s,
		items:    []T{},
	}
}

// Path is the collection path relative to the API prefix.
func (c *Controller[T]) Path() string {
	return c.path
}

func (c *Controller[T]) noun() string {
	return strings.TrimPrefix(c.path, "/")
}

// List fetches the whole collection and replaces the mirror. On failure
// the previous items are kept and the mirror is marked stale.
func (c *Controller[T]) List(ctx context.Context) error {
	var items []T
	if err := c.client.Get(ctx, c.path, &items); err != nil {
		c.logger.Error("Error fetching "+c.noun(), "err", err)

		c.mu.Lock()
		c.err = err
		c.stale = true
		c.mu.Unlock()
		return fmt.Errorf("failed to list %s: %w", c.noun(), err)
	}
	if items == nil {
		items = []T{}
	}

	c.mu.Lock()
	c.items = items
	c.err = nil
	c.stale = false
	c.synced = c.now()
	c.mu.Unlock()

	c.logger.Debug("synced", "resource", c.noun(), "count", len(items))
	return nil
}

// Create posts draft and resyncs.
func (c *Controller[T]) Create(ctx context.Context, draft any) error {
	body, err := prepare(draft)
	if err != nil {
		return err
	}
	if err := c.client.Post(ctx, c.path, body, nil); err != nil {
		c.logger.Error("Error creating "+c.noun(), "err", err)
		return fmt.Errorf("failed to create %s: %w", c.noun(), err)
	}
	c.resync(ctx)
	return nil
}

// Update puts patch to the record with id and resyncs.
func (c *Controller[T]) Update(ctx context.Context, id int64, patch any) error {
	body, err := prepare(patch)
	if err != nil {
		return err
	}
	if err := c.client.Put(ctx, c.itemPath(id), body, nil); err != nil {
		c.logger.Error("Error updating "+c.noun(), "id", id, "err", err)
		return fmt.Errorf("failed to update %s %d: %w", c.noun(), id, err)
	}
	c.resync(ctx)
	return nil
}

// Delete removes the record with id and resyncs.
func (c *Controller[T]) Delete(ctx context.Context, id int64) error {
	if err := c.client.Delete(ctx, c.itemPath(id), nil); err != nil {
		c.logger.Error("Error deleting "+c.noun(), "id", id, "err", err)
		return fmt.Errorf("failed to delete %s %d: %w", c.noun(), id, err)
	}
	c.resync(ctx)
	return nil
}

// resync refreshes after a successful mutation. A failed refresh is a
// fetch failure, not a mutation failure.
func (c *Controller[T]) resync(ctx context.Context) {
	_ = c.List(ctx)
}

// Search asks the server for matching records without touching the
// mirror. A blank term returns the mirror.
func (c *Controller[T]) Search(ctx context.Context, term string) ([]T, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return c.Items(), nil
	}
	var found []T
	if err := c.client.Get(ctx, c.path+"/search/"+url.PathEscape(term), &found); err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", c.noun(), err)
	}
	return found, nil
}

func (c *Controller[T]) itemPath(id int64) string {
	return c.path + "/" + strconv.FormatInt(id, 10)
}

func prepare(draft any) (any, error) {
	if v, ok := draft.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	if p, ok := draft.(Payloader); ok {
		body, err := p.Payload()
		if err != nil {
			return nil, fmt.Errorf("failed to build payload: %w", err)
		}
		return body, nil
	}
	return draft, nil
}

// Items returns a copy of the mirror.
func (c *Controller[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Get finds a mirrored record by id.
func (c *Controller[T]) Get(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Err is the last fetch failure, cleared by the next successful List.
func (c *Controller[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// LastSynced is when the mirror last matched the server.
func (c *Controller[T]) LastSynced() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// Stale reports whether the latest List failed, so the mirror may be out
// of date.
func (c *Controller[T]) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}
