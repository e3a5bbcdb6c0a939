// ABOUTME: Data models for CRM entities as served by the REST API
// ABOUTME: Defines User, Contact, Deal, Task and Activity plus their enums
package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The API expects deal values as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Record is implemented by every entity a resource controller can hold.
type Record interface {
	RecordID() int64
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Registration is the profile sent to the register endpoint.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Credentials is the body of a login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both login and register.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type Contact struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Title     string    `json:"title,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

func (c Contact) RecordID() int64 { return c.ID }

// FullName joins first and last name.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Stage is a deal's position in the sales pipeline.
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosedWon   Stage = "closed_won"
	StageClosedLost  Stage = "closed_lost"
)

// Stages lists the pipeline stages in board order.
var Stages = []Stage{
	StageLead,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

var stageLabels = map[Stage]string{
	StageLead:        "Lead",
	StageQualified:   "Qualified",
	StageProposal:    "Proposal",
	StageNegotiation: "Negotiation",
	StageClosedWon:   "Closed Won",
	StageClosedLost:  "Closed Lost",
}

// Valid reports whether s is one of the six pipeline stages.
func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label returns the board heading for s.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseStage accepts a stage id, case-insensitively.
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !stage.Valid() {
		return "", fmt.Errorf("invalid stage: %s (valid: lead, qualified, proposal, negotiation, closed_won, closed_lost)", s)
	}
	return stage, nil
}

// UnmarshalJSON rejects stages outside the pipeline. A missing stage is a
// new lead.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		*s = StageLead
		return nil
	}
	stage, err := ParseStage(*raw)
	if err != nil {
		return err
	}
	*s = stage
	return nil
}

type Deal struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Value             decimal.Decimal `json:"value"`
	Stage             Stage           `json:"stage"`
	ContactID         int64           `json:"contact_id"`
	ExpectedCloseDate Date            `json:"expected_close_date"`
	Description       string          `json:"description,omitempty"`
	CreatedAt         Timestamp       `json:"created_at"`

	// Joined from the contact by the server
	ContactFirstName string `json:"first_name,omitempty"`
	ContactLastName  string `json:"last_name,omitempty"`
	Company          string `json:"company,omitempty"`
}

func (d Deal) RecordID() int64 { return d.ID }

// ContactName is the joined contact's display name.
func (d Deal) ContactName() string {
	return strings.TrimSpace(d.ContactFirstName + " " + d.ContactLastName)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     Date       `json:"due_date"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	CreatedAt   Timestamp  `json:"created_at"`

	AssignedToName string `json:"assigned_to_name,omitempty"`
}

func (t Task) RecordID() int64 { return t.ID }

// StatusPatch is the partial update used to toggle completion.
type StatusPatch struct {
	Status TaskStatus `json:"status"`
}

// ToggledStatus flips between completed and pending.
func (t Task) ToggledStatus() TaskStatus {
	if t.Status == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

type ActivityType string

const (
	ActivityCall    ActivityType = "call"
	ActivityEmail   ActivityType = "email"
	ActivityMeeting ActivityType = "meeting"
	ActivityNote    ActivityType = "note"
)

// ActivityTypes lists the accepted activity types.
var ActivityTypes = []ActivityType{ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote}

type Activity struct {
	ID          int64        `json:"id"`
	Type        ActivityType `json:"type"`
	Subject     string       `json:"subject"`
	Description string       `json:"description,omitempty"`
	ContactID   *int64       `json:"contact_id,omitempty"`
	DealID      *int64       `json:"deal_id,omitempty"`
	// Duration is in minutes
	Duration    *int      `json:"duration,omitempty"`
	ScheduledAt Timestamp `json:"scheduled_at"`
	CreatedAt   Timestamp `json:"created_at"`

	ContactFirstName string `json:"contact_first_name,omitempty"`
	ContactLastName  string `json:"contact_last_name,omitempty"`
	DealTitle        string `json:"deal_title,omitempty"`
}

func (a Activity) RecordID() int64 { return a.ID }

// ContactName is the joined contact's display name.
func (a Activity) ContactName() string {
	return strings.TrimSpace(a.ContactFirstName + " " + a.ContactLastName)
}
