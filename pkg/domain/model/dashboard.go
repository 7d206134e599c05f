package model

import "github.com/secmon-lab/ticktrack/pkg/domain/types"

// DashboardRequest describes one dashboard load
type DashboardRequest struct {
	View         ViewMode
	WorkDateFrom types.WorkDate
	WorkDateTo   types.WorkDate
	Filter       TicketFilter
	NoteSearch   string
}

// Dashboard is the state shown to a signed-in user
type Dashboard struct {
	Query TicketQuery `json:"query"`
	// Tickets is the filtered list in created_at descending order
	Tickets []*Ticket `json:"tickets"`
	// AllCount is the number of tickets fetched before filtering
	AllCount      int          `json:"all_count"`
	Stats         TicketStats  `json:"stats"`
	Cards         []StatCard   `json:"cards"`
	TimeLabel     string       `json:"time_label"`
	ActiveFilters []string     `json:"active_filters"`
	Filter        TicketFilter `json:"filter"`
	Notes         []*Note      `json:"notes"`
}
