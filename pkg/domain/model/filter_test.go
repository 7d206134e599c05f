package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

func ptr[T any](v T) *T { return &v }

func newTicket(id string, status types.TicketStatus, notes *string, created time.Time) *model.Ticket {
	return &model.Ticket{
		ID:         types.TicketID("rec-" + id),
		ExternalID: id,
		Status:     status,
		Notes:      notes,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func ids(tickets []*model.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ExternalID)
	}
	return out
}

func sampleTickets() []*model.Ticket {
	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	return []*model.Ticket{
		newTicket("T1", types.TicketStatusResolved, ptr("billing issue"), base),
		newTicket("T2", types.TicketStatusAwaitingResponse, nil, base.Add(-24*time.Hour)),
		newTicket("INC-3", types.TicketStatusAwaitingResponse, ptr("Waiting on BILLING team"), base.Add(-48*time.Hour)),
		newTicket("T4", types.TicketStatusResolved, ptr(""), base.Add(-72*time.Hour)),
	}
}

func TestTicketFilterSearch(t *testing.T) {
	tickets := []*model.Ticket{
		newTicket("T1", types.TicketStatusResolved, ptr("billing issue"), time.Now()),
		newTicket("T2", types.TicketStatusAwaitingResponse, nil, time.Now()),
	}

	t.Run("matches notes substring", func(t *testing.T) {
		got := model.TicketFilter{Search: "billing"}.Apply(tickets)
		gt.Equal(t, ids(got), []string{"T1"})
	})

	t.Run("matches identifier case-insensitively", func(t *testing.T) {
		got := model.TicketFilter{Search: "t2"}.Apply(tickets)
		gt.Equal(t, ids(got), []string{"T2"})
	})

	t.Run("nil notes match only via identifier", func(t *testing.T) {
		got := model.TicketFilter{Search: "issue"}.Apply(tickets)
		gt.Equal(t, ids(got), []string{"T1"})
	})

	t.Run("whitespace is significant", func(t *testing.T) {
		got := model.TicketFilter{Search: " billing"}.Apply(tickets)
		gt.Equal(t, len(got), 0)
	})

	t.Run("empty search matches everything", func(t *testing.T) {
		got := model.TicketFilter{}.Apply(tickets)
		gt.Equal(t, ids(got), []string{"T1", "T2"})
	})
}

func TestTicketFilterStatus(t *testing.T) {
	tickets := []*model.Ticket{
		newTicket("T1", types.TicketStatusResolved, ptr("billing issue"), time.Now()),
		newTicket("T2", types.TicketStatusAwaitingResponse, nil, time.Now()),
	}

	got := model.TicketFilter{Status: types.TicketStatusResolved}.Apply(tickets)
	gt.Equal(t, ids(got), []string{"T1"})

	got = model.TicketFilter{Status: types.TicketStatusAll}.Apply(tickets)
	gt.Equal(t, ids(got), []string{"T1", "T2"})

	got = model.TicketFilter{Status: types.TicketStatusAwaitingResponse}.Apply(tickets)
	gt.Equal(t, ids(got), []string{"T2"})
}

func TestTicketFilterDateRange(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	day := func(d, h int) time.Time { return time.Date(2024, 6, d, h, 0, 0, 0, loc) }
	tickets := []*model.Ticket{
		newTicket("A", types.TicketStatusResolved, nil, day(10, 23)),
		newTicket("B", types.TicketStatusResolved, nil, day(9, 0)),
		newTicket("C", types.TicketStatusResolved, nil, day(8, 12)),
	}

	t.Run("bounds are inclusive calendar days", func(t *testing.T) {
		start, end := day(9, 15), day(10, 1)
		got := model.TicketFilter{DateRange: model.DateRange{Start: &start, End: &end}}.Apply(tickets)
		gt.Equal(t, ids(got), []string{"A", "B"})
	})

	t.Run("start only", func(t *testing.T) {
		start := day(9, 0)
		got := model.TicketFilter{DateRange: model.DateRange{Start: &start}}.Apply(tickets)
		gt.Equal(t, ids(got), []string{"A", "B"})
	})

	t.Run("end only", func(t *testing.T) {
		end := day(9, 0)
		got := model.TicketFilter{DateRange: model.DateRange{End: &end}}.Apply(tickets)
		gt.Equal(t, ids(got), []string{"B", "C"})
	})

	t.Run("calendar date is taken in the bound location", func(t *testing.T) {
		// 2024-06-11 02:00 UTC is still June 10 in EST
		late := newTicket("D", types.TicketStatusResolved, nil, time.Date(2024, 6, 11, 2, 0, 0, 0, time.UTC))
		end := day(10, 0)
		got := model.TicketFilter{DateRange: model.DateRange{End: &end}}.Apply([]*model.Ticket{late})
		gt.Equal(t, ids(got), []string{"D"})
	})
}

func TestTicketFilterProperties(t *testing.T) {
	tickets := sampleTickets()
	start := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	filters := []model.TicketFilter{
		{},
		{Search: "billing"},
		{Status: types.TicketStatusResolved},
		{Search: "t", Status: types.TicketStatusAwaitingResponse},
		{DateRange: model.DateRange{Start: &start}},
		{DateRange: model.DateRange{End: &end}},
		{Search: "billing", DateRange: model.DateRange{Start: &start, End: &end}},
	}

	for _, f := range filters {
		got := f.Apply(tickets)

		// subset in input order
		pos := 0
		for _, g := range got {
			for pos < len(tickets) && tickets[pos] != g {
				pos++
			}
			gt.True(t, pos < len(tickets))
			gt.True(t, f.Matches(g))
		}
		gt.True(t, len(got) <= len(tickets))
	}

	t.Run("all sentinel equals no status filter", func(t *testing.T) {
		for _, f := range filters {
			withAll := f
			withAll.Status = types.TicketStatusAll
			withNone := f
			withNone.Status = ""
			gt.Equal(t, ids(withAll.Apply(tickets)), ids(withNone.Apply(tickets)))
		}
	})

	t.Run("both bounds equal intersection of single bounds", func(t *testing.T) {
		both := model.TicketFilter{DateRange: model.DateRange{Start: &start, End: &end}}.Apply(tickets)
		var inter []string
		for _, tk := range tickets {
			if (model.TicketFilter{DateRange: model.DateRange{Start: &start}}).Matches(tk) &&
				(model.TicketFilter{DateRange: model.DateRange{End: &end}}).Matches(tk) {
				inter = append(inter, tk.ExternalID)
			}
		}
		gt.Equal(t, ids(both), inter)
	})

	t.Run("input is not modified", func(t *testing.T) {
		before := ids(tickets)
		_ = model.TicketFilter{Status: types.TicketStatusResolved}.Apply(tickets)
		gt.Equal(t, ids(tickets), before)
	})
}

func TestTicketFilterDescription(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	gt.Equal(t, model.TicketFilter{}.Description(), "")
	gt.Equal(t, model.TicketFilter{Status: types.TicketStatusAll}.Description(), "")
	gt.Equal(t,
		model.TicketFilter{DateRange: model.DateRange{Start: &start, End: &end}}.Description(),
		"Filter: Jan 02, 2024 - Jan 31, 2024")
	gt.Equal(t,
		model.TicketFilter{DateRange: model.DateRange{Start: &start}, Status: types.TicketStatusResolved}.Description(),
		"Filter: From Jan 02, 2024, status Resolved")
	gt.Equal(t,
		model.TicketFilter{DateRange: model.DateRange{End: &end}}.Description(),
		"Filter: Until Jan 31, 2024")
}

func TestTicketFilterActiveFilters(t *testing.T) {
	start := time.Now()
	f := model.TicketFilter{Search: "abc", Status: types.TicketStatusResolved, DateRange: model.DateRange{Start: &start}}
	gt.Equal(t, f.ActiveFilters(), []string{`Search: "abc"`, "Status: Resolved", "Date filtered"})
	gt.True(t, f.IsActive())
	gt.False(t, model.TicketFilter{Status: types.TicketStatusAll}.IsActive())
}

func TestFilterNotes(t *testing.T) {
	now := time.Now()
	notes := []*model.Note{
		{ID: "n1", Title: "Deploy plan", Content: "No content", TicketRef: ptr("OPS-12")},
		{ID: "n2", Title: "Untitled Note", Content: "call the vendor", CreatedAt: now},
		{ID: "n3", Title: "Retro", Content: "went fine"},
	}

	got := model.FilterNotes(notes, "ops-")
	gt.Equal(t, len(got), 1)
	gt.Equal(t, got[0].ID, types.NoteID("n1"))

	got = model.FilterNotes(notes, "VENDOR")
	gt.Equal(t, len(got), 1)
	gt.Equal(t, got[0].ID, types.NoteID("n2"))

	gt.Equal(t, len(model.FilterNotes(notes, "")), 3)
}
