package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// Dashboard implements DashboardUseCase
type Dashboard struct {
	repo  interfaces.Repository
	clock func() time.Time
}

// NewDashboard creates a new Dashboard use case
func NewDashboard(repo interfaces.Repository, opts ...Option) *Dashboard {
	o := newOptions(opts)
	return &Dashboard{
		repo:  repo,
		clock: o.clock,
	}
}

// Load fetches the tickets of the requested view, derives the filtered
// list and its stats, and fetches the notes
func (u *Dashboard) Load(ctx context.Context, userID types.UserID, req model.DashboardRequest) (*model.Dashboard, error) {
	query, err := model.NewTicketQuery(req.View, u.clock(), req.WorkDateFrom, req.WorkDateTo)
	if err != nil {
		return nil, err
	}

	all, err := u.repo.ListTickets(ctx, userID, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tickets", goerr.V("view", req.View))
	}

	notes, err := u.repo.ListNotes(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes")
	}

	filtered := req.Filter.Apply(all)
	return &model.Dashboard{
		Query:         query,
		Tickets:       filtered,
		AllCount:      len(all),
		Stats:         model.ComputeStats(filtered),
		Cards:         model.BuildStatCards(filtered, len(all), req.Filter.DateRange),
		TimeLabel:     model.TimeLabel(req.Filter.DateRange),
		ActiveFilters: req.Filter.ActiveFilters(),
		Filter:        req.Filter,
		Notes:         model.FilterNotes(notes, req.NoteSearch),
	}, nil
}
