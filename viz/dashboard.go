// ABOUTME: Dashboard statistics over the four CRM collections
// ABOUTME: Fetches concurrently, tolerates partial failure and renders an ASCII overview
package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
)

// RecentLimit is how many activities the dashboard feed shows.
const RecentLimit = 5

type Dashboard struct {
	TotalContacts   int
	TotalDeals      int
	TotalTasks      int
	TotalActivities int

	DealValue decimal.Decimal
	Pipeline  views.Pipeline
	Tasks     views.TaskCounts

	RecentActivity []models.Activity

	// Failed names the collections that could not be fetched; they count
	// as empty.
	Failed []string
}

// LoadDashboard lists all four collections at once and builds stats from
// whatever succeeded. Failed collections count as empty, so even a total
// outage yields a zeroed dashboard; it errors only when ctx is done.
func LoadDashboard(ctx context.Context, src *resource.Set, now time.Time) (*Dashboard, error) {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	fetch := func(name string, list func(context.Context) error) {
		g.Go(func() error {
			if err := list(ctx); err != nil {
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
				return err
			}
			return nil
		})
	}

	fetch("contacts", src.Contacts.List)
	fetch("deals", src.Deals.List)
	fetch("tasks", src.Tasks.List)
	fetch("activities", src.Activities.List)

	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", ctx.Err())
	}

	skip := make(map[string]bool, len(failed))
	for _, name := range failed {
		skip[name] = true
	}
	var (
		contacts   []models.Contact
		deals      []models.Deal
		tasks      []models.Task
		activities []models.Activity
	)
	if !skip["contacts"] {
		contacts = src.Contacts.Items()
	}
	if !skip["deals"] {
		deals = src.Deals.Items()
	}
	if !skip["tasks"] {
		tasks = src.Tasks.Items()
	}
	if !skip["activities"] {
		activities = src.Activities.Items()
	}

	d := BuildDashboard(contacts, deals, tasks, activities, now)
	d.Failed = orderedFailures(failed)
	return d, nil
}

func orderedFailures(failed []string) []string {
	var out []string
	for _, name := range []string{"contacts", "deals", "tasks", "activities"} {
		for _, f := range failed {
			if f == name {
				out = append(out, name)
			}
		}
	}
	return out
}

// BuildDashboard computes stats from already-fetched collections.
func BuildDashboard(contacts []models.Contact, deals []models.Deal, tasks []models.Task, activities []models.Activity, now time.Time) *Dashboard {
	pipeline := views.GroupByStage(deals)
	return &Dashboard{
		TotalContacts:   len(contacts),
		TotalDeals:      len(deals),
		TotalTasks:      len(tasks),
		TotalActivities: len(activities),
		DealValue:       pipeline.Value(),
		Pipeline:        pipeline,
		Tasks:           views.CountTasks(tasks, now),
		RecentActivity:  views.RecentActivities(activities, RecentLimit),
	}
}

// ErrPartial is reported alongside a dashboard with missing collections.
var ErrPartial = errors.New("some collections could not be loaded")

// Partial returns ErrPartial when any collection failed.
func (d *Dashboard) Partial() error {
	if len(d.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPartial, strings.Join(d.Failed, ", "))
}

func RenderDashboard(d *Dashboard) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  CRMDESK DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  📇 %d contacts  💼 %d deals  ✅ %d tasks  📞 %d activities\n",
		d.TotalContacts, d.TotalDeals, d.TotalTasks, d.TotalActivities))
	out.WriteString(fmt.Sprintf("  💰 %s total deal value\n\n", views.FormatCurrency(d.DealValue)))

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, d.Pipeline)
	out.WriteString("\n")

	out.WriteString("TASKS\n")
	out.WriteString(fmt.Sprintf("  %d pending  %d completed  %d overdue\n\n",
		d.Tasks.Pending, d.Tasks.Completed, d.Tasks.Overdue))

	out.WriteString("RECENT ACTIVITY\n")
	if len(d.RecentActivity) == 0 {
		out.WriteString("  No recent activities\n")
	}
	for _, a := range d.RecentActivity {
		line := fmt.Sprintf("  %-8s %s", a.Type, a.Subject)
		if name := a.ContactName(); name != "" {
			line += " · " + name
		}
		if a.CreatedAt.Present() {
			line += " (" + a.CreatedAt.Local().Format("Jan 2 15:04") + ")"
		}
		out.WriteString(line + "\n")
	}

	if len(d.Failed) > 0 {
		out.WriteString("\n")
		out.WriteString(fmt.Sprintf("  ⚠️  could not load: %s\n", strings.Join(d.Failed, ", ")))
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, pipeline views.Pipeline) {
	// Find max count for scaling
	maxCount := 0
	for _, b := range pipeline {
		if len(b.Deals) > maxCount {
			maxCount = len(b.Deals)
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, b := range pipeline {
		// Calculate bar length (0-10 blocks)
		barLength := (len(b.Deals) * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-13s %s  %2d (%s)\n",
			b.Stage.Label(), bar, len(b.Deals), views.FormatCurrency(b.Value())))
	}
}
