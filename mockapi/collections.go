// ABOUTME: Generic CRUD handlers for the four CRM collections
// ABOUTME: Each entity supplies defaults, required fields and server-side joins
package mockapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/harperreed/crmdesk/models"
)

// entity describes how one collection is stored and presented.
type entity[T models.Record] struct {
	noun     string
	rows     func(s *Server) *[]T
	blank    func() T
	required func(T) map[string]any
	stamp    func(rec T, id int64, created models.Timestamp) T
	created  func(T) models.Timestamp
	// join fills server-side joined fields; called with s.mu held.
	join func(s *Server, rec T) T
}

func (e entity[T]) label() string {
	return strings.ToUpper(e.noun[:1]) + e.noun[1:]
}

func (e entity[T]) notFound() string {
	return e.label() + " not found"
}

func indexOf[T models.Record](rows []T, id int64) int {
	for i, row := range rows {
		if row.RecordID() == id {
			return i
		}
	}
	return -1
}

// missingFields names every required field that is empty.
func (s *Server) missingFields(fields map[string]any) []string {
	var missing []string
	for name, value := range fields {
		if err := s.validate.Var(value, "required"); err != nil {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, errors.New("invalid JSON")
	}
	return body, nil
}

// merge overlays the fields present in patch onto current.
func merge[T any](current T, patch []byte) (T, error) {
	var out T
	base, err := json.Marshal(current)
	if err != nil {
		return out, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return out, err
	}
	overlay := map[string]json.RawMessage{}
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return out, err
	}
	for k, v := range overlay {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(merged, &out)
	return out, err
}

func list[T models.Record](s *Server, e entity[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		rows := *e.rows(s)
		out := make([]T, 0, len(rows))
		for i := len(rows) - 1; i >= 0; i-- {
			out = append(out, e.join(s, rows[i]))
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	}
}

func create[T models.Record](s *Server, e entity[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		rec := e.blank()
		if err := json.Unmarshal(body, &rec); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if missing := s.missingFields(e.required(rec)); len(missing) > 0 {
			writeError(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
			return
		}

		s.mu.Lock()
		s.nextID++
		rec = e.stamp(rec, s.nextID, models.Timestamp{Time: s.now().UTC()})
		rows := e.rows(s)
		*rows = append(*rows, rec)
		out := e.join(s, rec)
		s.mu.Unlock()

		writeJSON(w, http.StatusCreated, out)
	}
}

func update[T models.Record](s *Server, e entity[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusNotFound, e.notFound())
			return
		}
		body, err := readBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		rows := e.rows(s)
		i := indexOf(*rows, id)
		if i < 0 {
			writeError(w, http.StatusNotFound, e.notFound())
			return
		}
		current := (*rows)[i]
		merged, err := merge(current, body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if missing := s.missingFields(e.required(merged)); len(missing) > 0 {
			writeError(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
			return
		}
		merged = e.stamp(merged, id, e.created(current))
		(*rows)[i] = merged
		writeJSON(w, http.StatusOK, e.join(s, merged))
	}
}

func remove[T models.Record](s *Server, e entity[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := pathID(r)

		s.mu.Lock()
		rows := e.rows(s)
		i := indexOf(*rows, id)
		if i >= 0 {
			*rows = append((*rows)[:i], (*rows)[i+1:]...)
		}
		s.mu.Unlock()

		if i < 0 {
			writeError(w, http.StatusNotFound, e.notFound())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": e.label() + " deleted"})
	}
}

var contactEntity = entity[models.Contact]{
	noun:  "contact",
	rows:  func(s *Server) *[]models.Contact { return &s.contacts },
	blank: func() models.Contact { return models.Contact{} },
	required: func(c models.Contact) map[string]any {
		return map[string]any{"first_name": c.FirstName, "last_name": c.LastName}
	},
	stamp: func(c models.Contact, id int64, created models.Timestamp) models.Contact {
		c.ID, c.CreatedAt = id, created
		return c
	},
	created: func(c models.Contact) models.Timestamp { return c.CreatedAt },
	join:    func(_ *Server, c models.Contact) models.Contact { return c },
}

var dealEntity = entity[models.Deal]{
	noun:  "deal",
	rows:  func(s *Server) *[]models.Deal { return &s.deals },
	blank: func() models.Deal { return models.Deal{Stage: models.StageLead} },
	required: func(d models.Deal) map[string]any {
		return map[string]any{"title": d.Title, "contact_id": d.ContactID}
	},
	stamp: func(d models.Deal, id int64, created models.Timestamp) models.Deal {
		d.ID, d.CreatedAt = id, created
		d.ContactFirstName, d.ContactLastName, d.Company = "", "", ""
		return d
	},
	created: func(d models.Deal) models.Timestamp { return d.CreatedAt },
	join: func(s *Server, d models.Deal) models.Deal {
		if i := indexOf(s.contacts, d.ContactID); i >= 0 {
			c := s.contacts[i]
			d.ContactFirstName, d.ContactLastName, d.Company = c.FirstName, c.LastName, c.Company
		}
		return d
	},
}

var taskEntity = entity[models.Task]{
	noun: "task",
	rows: func(s *Server) *[]models.Task { return &s.tasks },
	blank: func() models.Task {
		return models.Task{Priority: models.PriorityMedium, Status: models.StatusPending}
	},
	required: func(t models.Task) map[string]any {
		return map[string]any{"title": t.Title}
	},
	stamp: func(t models.Task, id int64, created models.Timestamp) models.Task {
		t.ID, t.CreatedAt = id, created
		t.AssignedToName = ""
		return t
	},
	created: func(t models.Task) models.Timestamp { return t.CreatedAt },
	join: func(s *Server, t models.Task) models.Task {
		if t.AssignedTo == nil {
			return t
		}
		for _, a := range s.accounts {
			if a.user.ID == *t.AssignedTo {
				t.AssignedToName = a.user.Name
			}
		}
		return t
	},
}

var activityEntity = entity[models.Activity]{
	noun:  "activity",
	rows:  func(s *Server) *[]models.Activity { return &s.activities },
	blank: func() models.Activity { return models.Activity{Type: models.ActivityCall} },
	required: func(a models.Activity) map[string]any {
		return map[string]any{"subject": a.Subject}
	},
	stamp: func(a models.Activity, id int64, created models.Timestamp) models.Activity {
		a.ID, a.CreatedAt = id, created
		a.ContactFirstName, a.ContactLastName, a.DealTitle = "", "", ""
		return a
	},
	created: func(a models.Activity) models.Timestamp { return a.CreatedAt },
	join: func(s *Server, a models.Activity) models.Activity {
		if a.ContactID != nil {
			if i := indexOf(s.contacts, *a.ContactID); i >= 0 {
				a.ContactFirstName, a.ContactLastName = s.contacts[i].FirstName, s.contacts[i].LastName
			}
		}
		if a.DealID != nil {
			if i := indexOf(s.deals, *a.DealID); i >= 0 {
				a.DealTitle = s.deals[i].Title
			}
		}
		return a
	},
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	list(s, contactEntity)(w, r)
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	create(s, contactEntity)(w, r)
}

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	update(s, contactEntity)(w, r)
}

func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	remove(s, contactEntity)(w, r)
}

func (s *Server) searchContacts(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(chi.URLParam(r, "term"))

	s.mu.Lock()
	out := []models.Contact{}
	for i := len(s.contacts) - 1; i >= 0; i-- {
		c := s.contacts[i]
		for _, field := range []string{c.FirstName, c.LastName, c.Email, c.Company} {
			if strings.Contains(strings.ToLower(field), term) {
				out = append(out, c)
				break
			}
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request)  { list(s, dealEntity)(w, r) }
func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) { create(s, dealEntity)(w, r) }
func (s *Server) updateDeal(w http.ResponseWriter, r *http.Request) { update(s, dealEntity)(w, r) }
func (s *Server) deleteDeal(w http.ResponseWriter, r *http.Request) { remove(s, dealEntity)(w, r) }

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request)  { list(s, taskEntity)(w, r) }
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) { create(s, taskEntity)(w, r) }
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) { update(s, taskEntity)(w, r) }
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) { remove(s, taskEntity)(w, r) }

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	list(s, activityEntity)(w, r)
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	create(s, activityEntity)(w, r)
}

func (s *Server) updateActivity(w http.ResponseWriter, r *http.Request) {
	update(s, activityEntity)(w, r)
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	remove(s, activityEntity)(w, r)
}
