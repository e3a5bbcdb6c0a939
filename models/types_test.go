// ABOUTME: Tests for CRM data models
// ABOUTME: Validates wire decoding of stages, decimal values and dates
package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDealDecodesStringAndNumberValues(t *testing.T) {
	cases := map[string]string{
		"string": `{"id":1,"title":"D1","value":"100.50","stage":"lead","contact_id":5}`,
		"number": `{"id":1,"title":"D1","value":100.5,"stage":"lead","contact_id":5}`,
	}

	for name, body := range cases {
		var deal Deal
		if err := json.Unmarshal([]byte(body), &deal); err != nil {
			t.Fatalf("%s: unmarshal failed: %v", name, err)
		}
		if deal.Value.String() != "100.5" {
			t.Errorf("%s: expected value 100.5, got %s", name, deal.Value)
		}
		if deal.ContactID != 5 {
			t.Errorf("%s: expected contact 5, got %d", name, deal.ContactID)
		}
	}
}

func TestDealValueEncodesAsNumber(t *testing.T) {
	var deal Deal
	if err := json.Unmarshal([]byte(`{"value":"100"}`), &deal); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	out, err := json.Marshal(deal)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if v, ok := raw["value"].(float64); !ok || v != 100 {
		t.Errorf("expected numeric value 100, got %#v", raw["value"])
	}
}

func TestStageDecoding(t *testing.T) {
	var deal Deal
	if err := json.Unmarshal([]byte(`{"stage":"Closed_Won"}`), &deal); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if deal.Stage != StageClosedWon {
		t.Errorf("expected closed_won, got %s", deal.Stage)
	}

	deal = Deal{}
	if err := json.Unmarshal([]byte(`{"stage":null}`), &deal); err != nil {
		t.Fatalf("unmarshal null stage failed: %v", err)
	}
	if deal.Stage != StageLead {
		t.Errorf("expected missing stage to decode as lead, got %s", deal.Stage)
	}

	if err := json.Unmarshal([]byte(`{"stage":"won"}`), &deal); err == nil {
		t.Error("expected unknown stage to be rejected")
	}
}

func TestStagesAreOrderedAndLabelled(t *testing.T) {
	if len(Stages) != 6 {
		t.Fatalf("expected 6 stages, got %d", len(Stages))
	}
	if Stages[0] != StageLead || Stages[5] != StageClosedLost {
		t.Errorf("unexpected stage order: %v", Stages)
	}
	if StageClosedWon.Label() != "Closed Won" {
		t.Errorf("unexpected label %q", StageClosedWon.Label())
	}
}

func TestDateDecoding(t *testing.T) {
	var task Task
	body := `{"due_date":"2024-03-01T00:00:00.000Z","created_at":"2024-02-01T10:30:00Z"}`
	if err := json.Unmarshal([]byte(body), &task); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !task.DueDate.Equal(want) {
		t.Errorf("expected %v, got %v", want, task.DueDate.Time)
	}
	if task.DueDate.String() != "2024-03-01" {
		t.Errorf("expected form value 2024-03-01, got %q", task.DueDate.String())
	}

	task = Task{}
	if err := json.Unmarshal([]byte(`{"due_date":null}`), &task); err != nil {
		t.Fatalf("unmarshal null failed: %v", err)
	}
	if task.DueDate.Present() {
		t.Error("expected null due date to be absent")
	}

	if err := json.Unmarshal([]byte(`{"due_date":""}`), &task); err != nil {
		t.Fatalf("unmarshal empty failed: %v", err)
	}
	if task.DueDate.Present() {
		t.Error("expected empty due date to be absent")
	}
}

func TestToggledStatus(t *testing.T) {
	done := Task{Status: StatusCompleted}
	if done.ToggledStatus() != StatusPending {
		t.Errorf("completed should toggle to pending")
	}
	open := Task{Status: StatusInProgress}
	if open.ToggledStatus() != StatusCompleted {
		t.Errorf("in_progress should toggle to completed")
	}
}
