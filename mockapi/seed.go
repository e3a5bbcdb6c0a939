// ABOUTME: Direct seeding of mock API collections
// ABOUTME: Used by tests and by the dev server's demo data set
package mockapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/harperreed/crmdesk/models"
)

func seed[T models.Record](s *Server, e entity[T], rec T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	created := e.created(rec)
	if !created.Present() {
		created = models.Timestamp{Time: s.now().UTC()}
	}
	rec = e.stamp(rec, s.nextID, created)
	rows := e.rows(s)
	*rows = append(*rows, rec)
	return e.join(s, rec)
}

// SeedContact stores c and returns it with its assigned id.
func (s *Server) SeedContact(c models.Contact) models.Contact {
	return seed(s, contactEntity, c)
}

// SeedDeal stores d, defaulting its stage to lead.
func (s *Server) SeedDeal(d models.Deal) models.Deal {
	if d.Stage == "" {
		d.Stage = models.StageLead
	}
	return seed(s, dealEntity, d)
}

// SeedTask stores t with the default priority and status when unset.
func (s *Server) SeedTask(t models.Task) models.Task {
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	return seed(s, taskEntity, t)
}

// SeedActivity stores a, defaulting its type to call.
func (s *Server) SeedActivity(a models.Activity) models.Activity {
	if a.Type == "" {
		a.Type = models.ActivityCall
	}
	return seed(s, activityEntity, a)
}

// SeedDemo loads a small data set for local development and returns the
// demo account's email.
func (s *Server) SeedDemo(password string) (string, error) {
	const email = "demo@example.com"
	user, err := s.AddUser("Demo User", email, password)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	ada := s.SeedContact(models.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@analytical.co", Company: "Analytical Engines", Title: "CTO"})
	grace := s.SeedContact(models.Contact{FirstName: "Grace", LastName: "Hopper", Email: "grace@cobol.dev", Company: "Compilers Inc", Phone: "555-0100"})
	alan := s.SeedContact(models.Contact{FirstName: "Alan", LastName: "Turing", Email: "alan@bletchley.uk", Company: "Bletchley"})

	deals := []models.Deal{
		{Title: "Engine retrofit", Value: decimal.NewFromInt(12000), Stage: models.StageLead, ContactID: ada.ID},
		{Title: "Compiler licence", Value: decimal.RequireFromString("4500.50"), Stage: models.StageProposal, ContactID: grace.ID},
		{Title: "Cipher audit", Value: decimal.NewFromInt(30000), Stage: models.StageNegotiation, ContactID: alan.ID},
		{Title: "Support renewal", Value: decimal.NewFromInt(2000), Stage: models.StageClosedWon, ContactID: grace.ID},
	}
	var firstDeal models.Deal
	for i, d := range deals {
		d.ExpectedCloseDate = models.NewDate(now.AddDate(0, 0, 14*(i+1)))
		saved := s.SeedDeal(d)
		if i == 0 {
			firstDeal = saved
		}
	}

	assignee := user.ID
	s.SeedTask(models.Task{Title: "Send proposal", DueDate: models.NewDate(now.AddDate(0, 0, -2)), Priority: models.PriorityHigh, AssignedTo: &assignee})
	s.SeedTask(models.Task{Title: "Book demo", DueDate: models.NewDate(now.AddDate(0, 0, 3))})
	s.SeedTask(models.Task{Title: "File notes", Status: models.StatusCompleted, Priority: models.PriorityLow})

	minutes := 30
	for i, subject := range []string{"Intro call", "Pricing email", "Onsite meeting"} {
		s.SeedActivity(models.Activity{
			Type:      models.ActivityTypes[i],
			Subject:   subject,
			ContactID: &ada.ID,
			DealID:    &firstDeal.ID,
			Duration:  &minutes,
			CreatedAt: models.Timestamp{Time: now.Add(-time.Duration(3-i) * time.Hour)},
		})
	}
	return email, nil
}
