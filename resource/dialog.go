// ABOUTME: Create/edit dialog state owned by a page
// ABOUTME: Submit chooses create or update and closes only on success
package resource

import (
	"context"
	"sync"
)

// Dialog holds one draft form of type F. The zero value is closed.
type Dialog[F any] struct {
	mu      sync.Mutex
	open    bool
	editing int64
	form    F
	err     error
}

// OpenCreate opens the dialog on a new record with the given defaults.
func (d *Dialog[F]) OpenCreate(defaults F) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.editing = 0
	d.form = defaults
	d.err = nil
}

// OpenEdit opens the dialog on the record with id, populated from form.
func (d *Dialog[F]) OpenEdit(id int64, form F) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.editing = id
	d.form = form
	d.err = nil
}

// Close discards the draft.
func (d *Dialog[F]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero F
	d.open = false
	d.editing = 0
	d.form = zero
	d.err = nil
}

// IsOpen reports whether the dialog is showing.
func (d *Dialog[F]) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Editing returns the id of the record being edited, if any.
func (d *Dialog[F]) Editing() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editing, d.open && d.editing != 0
}

// Form points at the draft so a UI can edit it in place.
func (d *Dialog[F]) Form() *F {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &d.form
}

// Err is the last submit failure.
func (d *Dialog[F]) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Submit sends the draft through m. On failure the dialog stays open
// with the error recorded.
func (d *Dialog[F]) Submit(ctx context.Context, m Mutator) error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil
	}
	id, form := d.editing, d.form
	d.mu.Unlock()

	var err error
	if id != 0 {
		err = m.Update(ctx, id, form)
	} else {
		err = m.Create(ctx, form)
	}

	if err != nil {
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		return err
	}
	d.Close()
	return nil
}
