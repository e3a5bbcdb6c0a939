// ABOUTME: Draft form state for each CRM entity
// ABOUTME: Holds string-typed field values, defaults and required-field checks
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/harperreed/crmdesk/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	return v
}

// Field exposes one editable value to a UI.
type Field struct {
	Key      string
	Label    string
	Value    *string
	Required bool
	// Options lists the accepted values of a select field.
	Options []string
}

// check reports every missing required field in one error.
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	if len(missing) == 1 {
		return fmt.Errorf("%s is required", missing[0])
	}
	return fmt.Errorf("%s are required", strings.Join(missing, ", "))
}

type ContactForm struct {
	FirstName string `label:"First name" validate:"required"`
	LastName  string `label:"Last name" validate:"required"`
	Email     string `label:"Email"`
	Phone     string `label:"Phone"`
	Company   string `label:"Company"`
	Title     string `label:"Title"`
}

func NewContactForm() ContactForm { return ContactForm{} }

// FromContact populates a form for editing c.
func FromContact(c models.Contact) ContactForm {
	return ContactForm{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Title:     c.Title,
	}
}

func (f ContactForm) Validate() error { return check(f) }

func (f ContactForm) Payload() (any, error) {
	return contactPayload{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Company:   strings.TrimSpace(f.Company),
		Title:     strings.TrimSpace(f.Title),
	}, nil
}

func (f *ContactForm) Fields() []Field {
	return []Field{
		{Key: "first_name", Label: "First name", Value: &f.FirstName, Required: true},
		{Key: "last_name", Label: "Last name", Value: &f.LastName, Required: true},
		{Key: "email", Label: "Email", Value: &f.Email},
		{Key: "phone", Label: "Phone", Value: &f.Phone},
		{Key: "company", Label: "Company", Value: &f.Company},
		{Key: "title", Label: "Title", Value: &f.Title},
	}
}

type contactPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Title     string `json:"title"`
}

type DealForm struct {
	Title             string `label:"Title" validate:"required"`
	Value             string `label:"Value"`
	Stage             string `label:"Stage"`
	ContactID         string `label:"Contact" validate:"required"`
	ExpectedCloseDate string `label:"Expected close date"`
	Description       string `label:"Description"`
}

// NewDealForm starts a new deal as a lead.
func NewDealForm() DealForm {
	return DealForm{Stage: string(models.StageLead)}
}

func FromDeal(d models.Deal) DealForm {
	f := DealForm{
		Title:             d.Title,
		Value:             d.Value.String(),
		Stage:             string(d.Stage),
		ExpectedCloseDate: d.ExpectedCloseDate.String(),
		Description:       d.Description,
	}
	if d.ContactID != 0 {
		f.ContactID = strconv.FormatInt(d.ContactID, 10)
	}
	return f
}

func (f DealForm) Validate() error { return check(f) }

// Payload converts the form for the wire. Unparsable numbers become 0.
func (f DealForm) Payload() (any, error) {
	stage := models.Stage(strings.ToLower(strings.TrimSpace(f.Stage)))
	if stage == "" {
		stage = models.StageLead
	}
	return dealPayload{
		Title:             strings.TrimSpace(f.Title),
		Value:             parseDecimal(f.Value),
		Stage:             stage,
		ContactID:         parseInt(f.ContactID),
		ExpectedCloseDate: datePrefix(f.ExpectedCloseDate),
		Description:       f.Description,
	}, nil
}

func (f *DealForm) Fields() []Field {
	stages := make([]string, len(models.Stages))
	for i, s := range models.Stages {
		stages[i] = string(s)
	}
	return []Field{
		{Key: "title", Label: "Title", Value: &f.Title, Required: true},
		{Key: "value", Label: "Value", Value: &f.Value},
		{Key: "stage", Label: "Stage", Value: &f.Stage, Options: stages},
		{Key: "contact_id", Label: "Contact ID", Value: &f.ContactID, Required: true},
		{Key: "expected_close_date", Label: "Expected close (YYYY-MM-DD)", Value: &f.ExpectedCloseDate},
		{Key: "description", Label: "Description", Value: &f.Description},
	}
}

type dealPayload struct {
	Title             string          `json:"title"`
	Value             decimal.Decimal `json:"value"`
	Stage             models.Stage    `json:"stage"`
	ContactID         int64           `json:"contact_id"`
	ExpectedCloseDate string          `json:"expected_close_date,omitempty"`
	Description       string          `json:"description"`
}

type TaskForm struct {
	Title       string `label:"Title" validate:"required"`
	Description string `label:"Description"`
	DueDate     string `label:"Due date"`
	AssignedTo  string `label:"Assigned to"`
	Priority    string `label:"Priority"`
	Status      string `label:"Status"`
}

// NewTaskForm starts a pending task of medium priority.
func NewTaskForm() TaskForm {
	return TaskForm{
		Priority: string(models.PriorityMedium),
		Status:   string(models.StatusPending),
	}
}

func FromTask(t models.Task) TaskForm {
	f := TaskForm{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate.String(),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
	}
	if t.AssignedTo != nil {
		f.AssignedTo = strconv.FormatInt(*t.AssignedTo, 10)
	}
	return f
}

func (f TaskForm) Validate() error { return check(f) }

func (f TaskForm) Payload() (any, error) {
	p := taskPayload{
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		DueDate:     datePrefix(f.DueDate),
		Priority:    models.Priority(orDefault(f.Priority, string(models.PriorityMedium))),
		Status:      models.TaskStatus(orDefault(f.Status, string(models.StatusPending))),
	}
	if id, ok := optionalInt(f.AssignedTo); ok {
		p.AssignedTo = &id
	}
	return p, nil
}

func (f *TaskForm) Fields() []Field {
	return []Field{
		{Key: "title", Label: "Title", Value: &f.Title, Required: true},
		{Key: "description", Label: "Description", Value: &f.Description},
		{Key: "due_date", Label: "Due date (YYYY-MM-DD)", Value: &f.DueDate},
		{Key: "assigned_to", Label: "Assigned to (user ID)", Value: &f.AssignedTo},
		{Key: "priority", Label: "Priority", Value: &f.Priority, Options: []string{"low", "medium", "high"}},
		{Key: "status", Label: "Status", Value: &f.Status, Options: []string{"pending", "in_progress", "completed"}},
	}
}

type taskPayload struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	DueDate     string            `json:"due_date,omitempty"`
	AssignedTo  *int64            `json:"assigned_to,omitempty"`
	Priority    models.Priority   `json:"priority"`
	Status      models.TaskStatus `json:"status"`
}

type ActivityForm struct {
	Type        string `label:"Type"`
	Subject     string `label:"Subject" validate:"required"`
	Description string `label:"Description"`
	ContactID   string `label:"Contact"`
	DealID      string `label:"Deal"`
	Duration    string `label:"Duration"`
	ScheduledAt string `label:"Scheduled at"`
}

// NewActivityForm starts a call.
func NewActivityForm() ActivityForm {
	return ActivityForm{Type: string(models.ActivityCall)}
}

func FromActivity(a models.Activity) ActivityForm {
	f := ActivityForm{
		Type:        string(a.Type),
		Subject:     a.Subject,
		Description: a.Description,
	}
	if a.ContactID != nil {
		f.ContactID = strconv.FormatInt(*a.ContactID, 10)
	}
	if a.DealID != nil {
		f.DealID = strconv.FormatInt(*a.DealID, 10)
	}
	if a.Duration != nil {
		f.Duration = strconv.Itoa(*a.Duration)
	}
	if a.ScheduledAt.Present() {
		f.ScheduledAt = a.ScheduledAt.UTC().Format(models.DateTimeLocalLayout)
	}
	return f
}

func (f ActivityForm) Validate() error { return check(f) }

func (f ActivityForm) Payload() (any, error) {
	p := activityPayload{
		Type:        models.ActivityType(orDefault(f.Type, string(models.ActivityCall))),
		Subject:     strings.TrimSpace(f.Subject),
		Description: f.Description,
		ScheduledAt: strings.TrimSpace(f.ScheduledAt),
	}
	if id, ok := optionalInt(f.ContactID); ok {
		p.ContactID = &id
	}
	if id, ok := optionalInt(f.DealID); ok {
		p.DealID = &id
	}
	if d, ok := optionalInt(f.Duration); ok {
		minutes := int(d)
		p.Duration = &minutes
	}
	return p, nil
}

func (f *ActivityForm) Fields() []Field {
	types := make([]string, len(models.ActivityTypes))
	for i, t := range models.ActivityTypes {
		types[i] = string(t)
	}
	return []Field{
		{Key: "type", Label: "Type", Value: &f.Type, Options: types},
		{Key: "subject", Label: "Subject", Value: &f.Subject, Required: true},
		{Key: "description", Label: "Description", Value: &f.Description},
		{Key: "contact_id", Label: "Contact ID", Value: &f.ContactID},
		{Key: "deal_id", Label: "Deal ID", Value: &f.DealID},
		{Key: "duration", Label: "Duration (minutes)", Value: &f.Duration},
		{Key: "scheduled_at", Label: "Scheduled at (YYYY-MM-DDTHH:MM)", Value: &f.ScheduledAt},
	}
}

type activityPayload struct {
	Type        models.ActivityType `json:"type"`
	Subject     string              `json:"subject"`
	Description string              `json:"description"`
	ContactID   *int64              `json:"contact_id,omitempty"`
	DealID      *int64              `json:"deal_id,omitempty"`
	Duration    *int                `json:"duration,omitempty"`
	ScheduledAt string              `json:"scheduled_at,omitempty"`
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// optionalInt treats blank and unparsable input as absent.
func optionalInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// datePrefix keeps the YYYY-MM-DD part of a date or timestamp.
func datePrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	return s
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
