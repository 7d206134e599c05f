package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// ViewMode selects which work dates the dashboard fetches
type ViewMode string

const (
	ViewToday ViewMode = "today"
	ViewRange ViewMode = "range"
	ViewAll   ViewMode = "all"
)

// TicketQuery is the server-side predicate for a fetch. Empty bounds are
// open. Results are always ordered by created_at descending.
type TicketQuery struct {
	WorkDateFrom types.WorkDate `json:"work_date_from,omitempty"`
	WorkDateTo   types.WorkDate `json:"work_date_to,omitempty"`
}

// NewTicketQuery resolves a view mode into a query. from and to are used
// only by ViewRange.
func NewTicketQuery(mode ViewMode, now time.Time, from, to types.WorkDate) (TicketQuery, error) {
	switch mode {
	case ViewToday:
		today := types.NewWorkDate(now)
		return TicketQuery{WorkDateFrom: today, WorkDateTo: today}, nil

	case ViewRange:
		errs := ValidationErrors{}
		if from != "" && !from.IsValid() {
			errs.Add("from", "From date must be YYYY-MM-DD")
		}
		if to != "" && !to.IsValid() {
			errs.Add("to", "To date must be YYYY-MM-DD")
		}
		if from != "" && to != "" && from > to {
			errs.Add("to", "To date must not be before from date")
		}
		if err := errs.OrNil(); err != nil {
			return TicketQuery{}, goerr.Wrap(err, "invalid work date range")
		}
		return TicketQuery{WorkDateFrom: from, WorkDateTo: to}, nil

	case ViewAll, "":
		return TicketQuery{}, nil

	default:
		return TicketQuery{}, goerr.Wrap(ValidationErrors{"view": "View must be today, range or all"}, "invalid view mode", goerr.V("view", mode))
	}
}

// Matches reports whether t's work date is within the query bounds
func (q TicketQuery) Matches(t *Ticket) bool {
	if q.WorkDateFrom != "" && t.WorkDate < q.WorkDateFrom {
		return false
	}
	if q.WorkDateTo != "" && t.WorkDate > q.WorkDateTo {
		return false
	}
	return true
}
