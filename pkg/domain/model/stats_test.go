package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

func TestComputeStats(t *testing.T) {
	t.Run("empty list has zero success rate", func(t *testing.T) {
		s := model.ComputeStats(nil)
		gt.Equal(t, s, model.TicketStats{})
	})

	t.Run("rate is rounded", func(t *testing.T) {
		var tickets []*model.Ticket
		for i := 0; i < 8; i++ {
			status := types.TicketStatusAwaitingResponse
			if i == 0 {
				status = types.TicketStatusResolved
			}
			tickets = append(tickets, newTicket("T", status, nil, time.Now()))
		}
		s := model.ComputeStats(tickets)
		gt.Equal(t, s.Total, 8)
		gt.Equal(t, s.Resolved, 1)
		gt.Equal(t, s.Awaiting, 7)
		gt.Equal(t, s.SuccessRate, 13) // 12.5 rounds up
	})

	t.Run("two thirds", func(t *testing.T) {
		tickets := []*model.Ticket{
			newTicket("A", types.TicketStatusResolved, nil, time.Now()),
			newTicket("B", types.TicketStatusResolved, nil, time.Now()),
			newTicket("C", types.TicketStatusAwaitingResponse, nil, time.Now()),
		}
		gt.Equal(t, model.ComputeStats(tickets).SuccessRate, 67)
	})
}

func TestTimeLabel(t *testing.T) {
	d1 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	d1End := time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)
	d2 := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	gt.Equal(t, model.TimeLabel(model.DateRange{}), "All Time")
	gt.Equal(t, model.TimeLabel(model.DateRange{Start: &d1, End: &d1End}), "Mar 05")
	gt.Equal(t, model.TimeLabel(model.DateRange{Start: &d1, End: &d2}), "Filtered Period")
	gt.Equal(t, model.TimeLabel(model.DateRange{End: &d2}), "Filtered Period")
}

func TestBuildStatCards(t *testing.T) {
	tickets := []*model.Ticket{
		newTicket("A", types.TicketStatusResolved, nil, time.Now()),
		newTicket("B", types.TicketStatusAwaitingResponse, nil, time.Now()),
		newTicket("C", types.TicketStatusAwaitingResponse, nil, time.Now()),
		newTicket("D", types.TicketStatusAwaitingResponse, nil, time.Now()),
	}

	t.Run("unfiltered", func(t *testing.T) {
		cards := model.BuildStatCards(tickets, 4, model.DateRange{})
		gt.Equal(t, cards, []model.StatCard{
			{Title: "All Time Resolved", Value: "1", Subtitle: "25% of filtered"},
			{Title: "All Time Awaiting", Value: "3", Subtitle: "75% of filtered"},
			{Title: "Success Rate", Value: "25%", Subtitle: "1/4 resolved"},
			{Title: "Total Tickets", Value: "4", Subtitle: "all time"},
		})
	})

	t.Run("date filtered", func(t *testing.T) {
		start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		cards := model.BuildStatCards(tickets[:2], 4, model.DateRange{Start: &start})
		gt.Equal(t, cards[0].Title, "Filtered Period Resolved")
		gt.Equal(t, cards[3], model.StatCard{Title: "Filtered Tickets", Value: "2", Subtitle: "of 4 total"})
	})

	t.Run("empty list has no share subtitles", func(t *testing.T) {
		cards := model.BuildStatCards(nil, 0, model.DateRange{})
		gt.Equal(t, cards[0].Subtitle, "")
		gt.Equal(t, cards[2].Value, "0%")
	})
}
