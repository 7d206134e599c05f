package http

import (
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// ticketParams is the query string shared by the dashboard, ticket list
// and export endpoints
type ticketParams struct {
	View       model.ViewMode
	From       types.WorkDate
	To         types.WorkDate
	Filter     model.TicketFilter
	NoteSearch string
}

// parseTicketParams reads view, from, to, search, status, preset, start
// and end. A preset wins over start/end.
func parseTicketParams(q url.Values, now time.Time) (ticketParams, error) {
	p := ticketParams{
		View:       model.ViewMode(q.Get("view")),
		From:       types.WorkDate(q.Get("from")),
		To:         types.WorkDate(q.Get("to")),
		NoteSearch: q.Get("note_search"),
	}
	if p.View == "" {
		p.View = model.ViewAll
	}

	// search is matched verbatim, surrounding spaces included
	p.Filter.Search = q.Get("search")

	switch status := types.TicketStatus(q.Get("status")); {
	case status == "" || status == types.TicketStatusAll:
		p.Filter.Status = types.TicketStatusAll
	case status.IsValid():
		p.Filter.Status = status
	default:
		return ticketParams{}, goerr.Wrap(model.ValidationErrors{
			"status": "Status must be Resolved, Awaiting Response or all",
		}, "invalid status filter", goerr.V("status", status))
	}

	var (
		r   model.DateRange
		err error
	)
	if preset := model.DatePreset(q.Get("preset")); preset != "" {
		r, err = preset.Range(now)
	} else {
		r, err = model.ParseDateRange(q.Get("start"), q.Get("end"), now.Location())
	}
	if err != nil {
		return ticketParams{}, err
	}
	p.Filter.DateRange = r

	return p, nil
}

func (p ticketParams) dashboardRequest() model.DashboardRequest {
	return model.DashboardRequest{
		View:         p.View,
		WorkDateFrom: p.From,
		WorkDateTo:   p.To,
		Filter:       p.Filter,
		NoteSearch:   p.NoteSearch,
	}
}

func (p ticketParams) exportRequest(format model.ExportFormat) model.ExportRequest {
	return model.ExportRequest{
		Format:       format,
		View:         p.View,
		WorkDateFrom: p.From,
		WorkDateTo:   p.To,
		Filter:       p.Filter,
	}
}

// exportQuery rebuilds the filter part of the query string for export links
func exportQuery(q url.Values) string {
	out := url.Values{}
	for _, k := range []string{"view", "from", "to", "search", "status", "preset", "start", "end"} {
		if v := q.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	return out.Encode()
}
