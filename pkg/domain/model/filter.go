package model

import (
	"strings"

	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// TicketFilter narrows an already fetched ticket list. All predicates are
// ANDed.
type TicketFilter struct {
	// Search is matched case-insensitively as a substring of the ticket
	// identifier or the notes. It is not trimmed.
	Search string `json:"search,omitempty"`

	// Status is an exact status or TicketStatusAll. Empty also means all.
	Status types.TicketStatus `json:"status,omitempty"`

	DateRange DateRange `json:"date_range"`
}

// Apply returns the matching tickets in input order. The input slice is
// not modified.
func (f TicketFilter) Apply(tickets []*Ticket) []*Ticket {
	result := make([]*Ticket, 0, len(tickets))
	for _, t := range tickets {
		if f.Matches(t) {
			result = append(result, t)
		}
	}
	return result
}

// Matches reports whether t passes every predicate
func (f TicketFilter) Matches(t *Ticket) bool {
	return f.matchesSearch(t) && f.matchesStatus(t) && f.DateRange.Contains(t.CreatedAt)
}

func (f TicketFilter) matchesSearch(t *Ticket) bool {
	if f.Search == "" {
		return true
	}

	query := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(t.ExternalID), query) {
		return true
	}
	if t.Notes != nil && strings.Contains(strings.ToLower(*t.Notes), query) {
		return true
	}
	return false
}

func (f TicketFilter) matchesStatus(t *Ticket) bool {
	if f.Status == "" || f.Status == types.TicketStatusAll {
		return true
	}
	return t.Status == f.Status
}

// IsActive reports whether any predicate narrows the list
func (f TicketFilter) IsActive() bool {
	return len(f.ActiveFilters()) > 0
}

// ActiveFilters returns display chips for the predicates in effect
func (f TicketFilter) ActiveFilters() []string {
	var chips []string
	if f.Search != "" {
		chips = append(chips, `Search: "`+f.Search+`"`)
	}
	if f.Status != "" && f.Status != types.TicketStatusAll {
		chips = append(chips, "Status: "+f.Status.String())
	}
	if !f.DateRange.IsZero() {
		chips = append(chips, "Date filtered")
	}
	return chips
}

// Description renders the filter for report headers, or "" when no
// predicate is active. The date part comes first.
func (f TicketFilter) Description() string {
	var parts []string
	if d := f.DateRange.Description(); d != "" {
		parts = append(parts, d)
	}
	if f.Search != "" {
		parts = append(parts, `search "`+f.Search+`"`)
	}
	if f.Status != "" && f.Status != types.TicketStatusAll {
		parts = append(parts, "status "+f.Status.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return "Filter: " + strings.Join(parts, ", ")
}

// FilterNotes returns notes whose title, content or linked ticket
// identifier contains term, case-insensitively, in input order
func FilterNotes(notes []*Note, term string) []*Note {
	result := make([]*Note, 0, len(notes))
	query := strings.ToLower(term)
	for _, n := range notes {
		if query == "" ||
			strings.Contains(strings.ToLower(n.Title), query) ||
			strings.Contains(strings.ToLower(n.Content), query) ||
			strings.Contains(strings.ToLower(n.TicketRefText()), query) {
			result = append(result, n)
		}
	}
	return result
}
