// ABOUTME: Pure derived views over mirrored CRM collections
// ABOUTME: Contact search, pipeline grouping, task partitions and the recency feed
package views

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harperreed/crmdesk/models"
)

// FilterContacts keeps contacts whose first name, last name, email or
// company contains term, ignoring case. An empty term keeps everything.
func FilterContacts(contacts []models.Contact, term string) []models.Contact {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		if term == "" || matches(term, c.FirstName, c.LastName, c.Email, c.Company) {
			out = append(out, c)
		}
	}
	return out
}

func matches(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// StageBucket is one pipeline column.
type StageBucket struct {
	Stage models.Stage
	Deals []models.Deal
}

// Value sums the bucket's deal values.
func (b StageBucket) Value() decimal.Decimal {
	return TotalDealValue(b.Deals)
}

// Pipeline holds one bucket per stage, in board order.
type Pipeline []StageBucket

// GroupByStage partitions deals into the six stage buckets, keeping the
// input order inside each bucket.
func GroupByStage(deals []models.Deal) Pipeline {
	index := make(map[models.Stage]int, len(models.Stages))
	p := make(Pipeline, len(models.Stages))
	for i, stage := range models.Stages {
		index[stage] = i
		p[i] = StageBucket{Stage: stage, Deals: []models.Deal{}}
	}
	for _, d := range deals {
		i, ok := index[d.Stage]
		if !ok {
			// The decoder only admits known stages; a zero Stage is a new lead.
			i = index[models.StageLead]
		}
		p[i].Deals = append(p[i].Deals, d)
	}
	return p
}

// Bucket returns the column for stage.
func (p Pipeline) Bucket(stage models.Stage) StageBucket {
	for _, b := range p {
		if b.Stage == stage {
			return b
		}
	}
	return StageBucket{Stage: stage}
}

// Total counts deals across all buckets.
func (p Pipeline) Total() int {
	n := 0
	for _, b := range p {
		n += len(b.Deals)
	}
	return n
}

// Value sums deal values across all buckets.
func (p Pipeline) Value() decimal.Decimal {
	total := decimal.Zero
	for _, b := range p {
		total = total.Add(b.Value())
	}
	return total
}

// TotalDealValue sums deal values.
func TotalDealValue(deals []models.Deal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		total = total.Add(d.Value)
	}
	return total
}

// IsOverdue reports whether an open task's due date is strictly before now.
func IsOverdue(t models.Task, now time.Time) bool {
	return t.Status != models.StatusCompleted && t.DueDate.Present() && t.DueDate.Before(now)
}

// TaskView selects a subset of tasks.
type TaskView string

const (
	ViewAll       TaskView = "all"
	ViewPending   TaskView = "pending"
	ViewCompleted TaskView = "completed"
	ViewOverdue   TaskView = "overdue"
)

// TaskViews lists the views in tab order.
var TaskViews = []TaskView{ViewAll, ViewPending, ViewCompleted, ViewOverdue}

// ParseTaskView accepts a view name; anything unknown is "all".
func ParseTaskView(s string) TaskView {
	v := TaskView(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TaskViews {
		if v == known {
			return v
		}
	}
	return ViewAll
}

// FilterTasks returns the tasks in view, in input order. In-progress tasks
// show only under all, and under overdue when late.
func FilterTasks(tasks []models.Task, view TaskView, now time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		var keep bool
		switch view {
		case ViewPending:
			keep = t.Status == models.StatusPending
		case ViewCompleted:
			keep = t.Status == models.StatusCompleted
		case ViewOverdue:
			keep = IsOverdue(t, now)
		default:
			keep = true
		}
		if keep {
			out = append(out, t)
		}
	}
	return out
}

// TaskCounts are the tab badges on the tasks page.
type TaskCounts struct {
	All       int
	Pending   int
	Completed int
	Overdue   int
}

// CountTasks tallies every view in one pass.
func CountTasks(tasks []models.Task, now time.Time) TaskCounts {
	var c TaskCounts
	for _, t := range tasks {
		c.All++
		switch t.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusCompleted:
			c.Completed++
		}
		if IsOverdue(t, now) {
			c.Overdue++
		}
	}
	return c
}

// Of returns the count for view.
func (c TaskCounts) Of(view TaskView) int {
	switch view {
	case ViewPending:
		return c.Pending
	case ViewCompleted:
		return c.Completed
	case ViewOverdue:
		return c.Overdue
	default:
		return c.All
	}
}

// RecentActivities returns up to n activities, newest created first. Ties
// keep their input order.
func RecentActivities(activities []models.Activity, n int) []models.Activity {
	sorted := make([]models.Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt.Time)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// FormatCurrency renders d as dollars with thousands separators, dropping
// trailing zero cents: 4500.5 is "$4,500.5", 12000 is "$12,000".
func FormatCurrency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole, frac, _ := strings.Cut(d.Round(2).String(), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString("." + frac)
	}
	return sign + "$" + b.String()
}
