// ABOUTME: Tests for derived views
// ABOUTME: Search, pipeline partitioning, overdue boundaries and recency ordering
package views

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/models"
)

func TestFilterContacts(t *testing.T) {
	contacts := []models.Contact{
		{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: "ada@engines.co", Company: "Analytical"},
		{ID: 2, FirstName: "Grace", LastName: "Hopper", Email: "grace@navy.mil", Company: "Navy"},
		{ID: 3, FirstName: "Alan", LastName: "Turing", Company: "Bletchley"},
	}

	assert.Len(t, FilterContacts(contacts, ""), 3)
	assert.Len(t, FilterContacts(contacts, "   "), 3)

	got := FilterContacts(contacts, "NAVY")
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	got = FilterContacts(contacts, "a")
	assert.Len(t, got, 3, "every contact has an a somewhere")

	got = FilterContacts(contacts, "lovel")
	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].FirstName)

	assert.Empty(t, FilterContacts(contacts, "zzz"))
}

func TestGroupByStagePartitions(t *testing.T) {
	deals := []models.Deal{
		{ID: 1, Stage: models.StageLead, Value: decimal.NewFromInt(100)},
		{ID: 2, Stage: models.StageClosedWon, Value: decimal.NewFromInt(50)},
		{ID: 3, Stage: models.StageLead, Value: decimal.RequireFromString("0.5")},
		{ID: 4, Stage: models.StageNegotiation},
		{ID: 5},
	}

	p := GroupByStage(deals)
	require.Len(t, p, 6)
	for i, stage := range models.Stages {
		assert.Equal(t, stage, p[i].Stage)
	}

	seen := map[int64]int{}
	for _, b := range p {
		for _, d := range b.Deals {
			seen[d.ID]++
		}
	}
	assert.Len(t, seen, len(deals))
	for id, n := range seen {
		assert.Equal(t, 1, n, "deal %d in more than one bucket", id)
	}
	assert.Equal(t, len(deals), p.Total())

	lead := p.Bucket(models.StageLead)
	require.Len(t, lead.Deals, 3)
	assert.Equal(t, []int64{1, 3, 5}, []int64{lead.Deals[0].ID, lead.Deals[1].ID, lead.Deals[2].ID})
	assert.Equal(t, "100.5", lead.Value().String())
	assert.Equal(t, "150.5", p.Value().String())
	assert.Empty(t, p.Bucket(models.StageProposal).Deals)
}

func TestIsOverdueBoundary(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	due := func(d time.Time) models.Date { return models.NewDate(d) }

	cases := []struct {
		name string
		task models.Task
		want bool
	}{
		{"due yesterday", models.Task{DueDate: due(now.AddDate(0, 0, -1)), Status: models.StatusPending}, true},
		{"due exactly now", models.Task{DueDate: due(now), Status: models.StatusPending}, false},
		{"due tomorrow", models.Task{DueDate: due(now.AddDate(0, 0, 1)), Status: models.StatusInProgress}, false},
		{"completed late", models.Task{DueDate: due(now.AddDate(0, 0, -5)), Status: models.StatusCompleted}, false},
		{"no due date", models.Task{Status: models.StatusPending}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsOverdue(tc.task, now))
		})
	}

	// A second later the same task becomes overdue.
	assert.True(t, IsOverdue(models.Task{DueDate: due(now)}, now.Add(time.Second)))
}

func TestFilterAndCountTasks(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	past := models.NewDate(now.AddDate(0, 0, -3))
	tasks := []models.Task{
		{ID: 1, Status: models.StatusPending, DueDate: past},
		{ID: 2, Status: models.StatusInProgress},
		{ID: 3, Status: models.StatusCompleted, DueDate: past},
		{ID: 4, Status: models.StatusPending},
	}

	ids := func(ts []models.Task) []int64 {
		out := []int64{}
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}

	assert.Equal(t, []int64{1, 2, 3, 4}, ids(FilterTasks(tasks, ViewAll, now)))
	assert.Equal(t, []int64{1, 4}, ids(FilterTasks(tasks, ViewPending, now)), "in progress is not pending")
	assert.Equal(t, []int64{3}, ids(FilterTasks(tasks, ViewCompleted, now)))
	assert.Equal(t, []int64{1}, ids(FilterTasks(tasks, ViewOverdue, now)))

	counts := CountTasks(tasks, now)
	assert.Equal(t, TaskCounts{All: 4, Pending: 2, Completed: 1, Overdue: 1}, counts)
	assert.Equal(t, 1, counts.Of(ViewOverdue))
}

func TestInProgressOverdueIsNotPending(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: 1, Status: models.StatusPending},
		{ID: 2, Status: models.StatusInProgress, DueDate: models.NewDate(now.AddDate(0, 0, -1))},
	}

	pending := FilterTasks(tasks, ViewPending, now)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].ID)

	overdue := FilterTasks(tasks, ViewOverdue, now)
	require.Len(t, overdue, 1)
	assert.Equal(t, int64(2), overdue[0].ID)

	assert.Equal(t, TaskCounts{All: 2, Pending: 1, Overdue: 1}, CountTasks(tasks, now))
}

func TestParseTaskView(t *testing.T) {
	assert.Equal(t, ViewOverdue, ParseTaskView("Overdue"))
	assert.Equal(t, ViewAll, ParseTaskView("bogus"))
}

func TestRecentActivities(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	at := func(h int) models.Timestamp { return models.Timestamp{Time: base.Add(time.Duration(h) * time.Hour)} }

	acts := []models.Activity{
		{ID: 1, CreatedAt: at(1)},
		{ID: 2, CreatedAt: at(5)},
		{ID: 3, CreatedAt: at(3)},
		{ID: 4, CreatedAt: at(5)},
		{ID: 5, CreatedAt: at(0)},
		{ID: 6, CreatedAt: at(4)},
		{ID: 7, CreatedAt: at(2)},
	}

	got := RecentActivities(acts, 5)
	require.Len(t, got, 5)
	var order []int64
	for _, a := range got {
		order = append(order, a.ID)
	}
	assert.Equal(t, []int64{2, 4, 6, 3, 7}, order, "ties keep input order")
	assert.Equal(t, int64(1), acts[0].ID, "input is not reordered")

	assert.Len(t, RecentActivities(acts[:2], 5), 2)
	assert.Empty(t, RecentActivities(nil, 5))
}

func TestTotalDealValue(t *testing.T) {
	deals := []models.Deal{
		{Value: decimal.RequireFromString("0.1")},
		{Value: decimal.RequireFromString("0.2")},
	}
	assert.True(t, TotalDealValue(deals).Equal(decimal.RequireFromString("0.3")))
	assert.True(t, TotalDealValue(nil).IsZero())
}

func TestFormatCurrency(t *testing.T) {
	cases := map[string]string{
		"0":           "$0",
		"12000":       "$12,000",
		"4500.50":     "$4,500.5",
		"999":         "$999",
		"1234567.891": "$1,234,567.89",
		"-2500":       "-$2,500",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCurrency(decimal.RequireFromString(in)), in)
	}
}
