package model

import (
	"math"
	"strconv"
)

// TicketStats aggregates a ticket list
type TicketStats struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	Awaiting int `json:"awaiting"`
	// SuccessRate is round(Resolved/Total*100), 0 for an empty list
	SuccessRate int `json:"success_rate"`
}

// ComputeStats counts tickets by status
func ComputeStats(tickets []*Ticket) TicketStats {
	s := TicketStats{Total: len(tickets)}
	for _, t := range tickets {
		if t.IsResolved() {
			s.Resolved++
		} else {
			s.Awaiting++
		}
	}
	s.SuccessRate = Percent(s.Resolved, s.Total)
	return s
}

// Percent returns round(part/total*100), or 0 when total is 0
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// StatCard is one dashboard summary tile
type StatCard struct {
	Title    string `json:"title"`
	Value    string `json:"value"`
	Subtitle string `json:"subtitle,omitempty"`
}

// TimeLabel names the period covered by r: "All Time", "Filtered
// Period", or "Jan 02" for a single day.
func TimeLabel(r DateRange) string {
	switch {
	case r.IsSameDay():
		return r.Start.Format("Jan 02")
	case !r.IsZero():
		return "Filtered Period"
	default:
		return "All Time"
	}
}

// BuildStatCards renders the four summary tiles. filtered is the list on
// screen and allCount the size of the unfiltered list.
func BuildStatCards(filtered []*Ticket, allCount int, r DateRange) []StatCard {
	stats := ComputeStats(filtered)
	label := TimeLabel(r)

	share := func(n int) string {
		if stats.Total == 0 {
			return ""
		}
		return strconv.Itoa(Percent(n, stats.Total)) + "% of filtered"
	}

	totalTitle, totalSubtitle := "Total Tickets", "all time"
	if !r.IsZero() {
		totalTitle = "Filtered Tickets"
		totalSubtitle = "of " + strconv.Itoa(allCount) + " total"
	}

	return []StatCard{
		{Title: label + " Resolved", Value: strconv.Itoa(stats.Resolved), Subtitle: share(stats.Resolved)},
		{Title: label + " Awaiting", Value: strconv.Itoa(stats.Awaiting), Subtitle: share(stats.Awaiting)},
		{Title: "Success Rate", Value: strconv.Itoa(stats.SuccessRate) + "%", Subtitle: strconv.Itoa(stats.Resolved) + "/" + strconv.Itoa(stats.Total) + " resolved"},
		{Title: totalTitle, Value: strconv.Itoa(stats.Total), Subtitle: totalSubtitle},
	}
}
