package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/secmon-lab/ticktrack/pkg/utils/async"
)

// Ticket implements TicketUseCase
type Ticket struct {
	repo     interfaces.Repository
	notifier interfaces.Notifier
	clock    func() time.Time
}

// NewTicket creates a new Ticket use case
func NewTicket(repo interfaces.Repository, opts ...Option) *Ticket {
	o := newOptions(opts)
	return &Ticket{
		repo:     repo,
		notifier: o.notifier,
		clock:    o.clock,
	}
}

// Save creates a ticket or, when the user already has one with the same
// identifier on the same work date, overwrites its status and notes. An
// empty work date means today.
func (u *Ticket) Save(ctx context.Context, userID types.UserID, in model.TicketInput) (*model.TicketSaveResult, error) {
	if err := in.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid ticket")
	}

	now := u.clock()
	workDate := in.WorkDate
	if workDate == "" {
		workDate = types.NewWorkDate(now)
	}
	externalID := strings.TrimSpace(in.ExternalID)

	existing, err := u.repo.FindTicket(ctx, userID, externalID, workDate)
	switch {
	case err == nil:
		return u.overwrite(ctx, existing, in, now)
	case !errors.Is(err, model.ErrTicketNotFound):
		return nil, goerr.Wrap(err, "failed to look up ticket",
			goerr.V("ticket_id", externalID),
			goerr.V("work_date", workDate),
		)
	}

	ticket, err := model.NewTicket(userID, in, workDate, now)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid ticket")
	}
	if err := u.repo.PutTicket(ctx, ticket); err != nil {
		if errors.Is(err, model.ErrTicketConflict) {
			// lost a race with a concurrent create; upsert onto the winner
			existing, findErr := u.repo.FindTicket(ctx, userID, externalID, workDate)
			if findErr != nil {
				return nil, goerr.Wrap(err, "failed to save ticket", goerr.V("ticket_id", externalID))
			}
			return u.overwrite(ctx, existing, in, now)
		}
		return nil, goerr.Wrap(err, "failed to save ticket", goerr.V("ticket_id", externalID))
	}

	ctxlog.From(ctx).Info("Created ticket",
		"id", ticket.ID,
		"ticketID", ticket.ExternalID,
		"workDate", ticket.WorkDate,
		"status", ticket.Status,
	)
	u.notify(ctx, model.TicketEventCreated, ticket)

	return &model.TicketSaveResult{Ticket: ticket.Clone(), Created: true}, nil
}

func (u *Ticket) overwrite(ctx context.Context, ticket *model.Ticket, in model.TicketInput, now time.Time) (*model.TicketSaveResult, error) {
	previous := ticket.Status
	notes := in.Notes
	if err := ticket.Apply(model.TicketUpdate{Status: &in.Status, Notes: &notes}, now); err != nil {
		return nil, goerr.Wrap(err, "invalid ticket")
	}
	if err := u.repo.PutTicket(ctx, ticket); err != nil {
		return nil, goerr.Wrap(err, "failed to update ticket", goerr.V("id", ticket.ID))
	}

	result := &model.TicketSaveResult{
		Ticket:        ticket.Clone(),
		StatusChanged: previous != ticket.Status,
	}
	if result.StatusChanged {
		result.PreviousStatus = previous
		u.notifyStatus(ctx, ticket)
	}

	ctxlog.From(ctx).Info("Updated existing ticket",
		"id", ticket.ID,
		"ticketID", ticket.ExternalID,
		"workDate", ticket.WorkDate,
		"statusChanged", result.StatusChanged,
	)
	return result, nil
}

// Get returns one ticket of the user
func (u *Ticket) Get(ctx context.Context, userID types.UserID, id types.TicketID) (*model.Ticket, error) {
	ticket, err := u.repo.GetTicket(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get ticket", goerr.V("id", id))
	}
	return ticket, nil
}

// List returns the user's tickets within query, newest first
func (u *Ticket) List(ctx context.Context, userID types.UserID, query model.TicketQuery) ([]*model.Ticket, error) {
	tickets, err := u.repo.ListTickets(ctx, userID, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tickets",
			goerr.V("from", query.WorkDateFrom),
			goerr.V("to", query.WorkDateTo),
		)
	}
	return tickets, nil
}

// Update edits a ticket. Moving it onto the identifier and work date of
// another ticket fails with ErrTicketConflict.
func (u *Ticket) Update(ctx context.Context, userID types.UserID, id types.TicketID, upd model.TicketUpdate) (*model.Ticket, error) {
	if err := upd.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid ticket update")
	}

	ticket, err := u.repo.GetTicket(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get ticket", goerr.V("id", id))
	}

	previous := ticket.Status
	if err := ticket.Apply(upd, u.clock()); err != nil {
		return nil, goerr.Wrap(err, "invalid ticket update")
	}
	if err := u.repo.PutTicket(ctx, ticket); err != nil {
		return nil, goerr.Wrap(err, "failed to update ticket", goerr.V("id", id))
	}

	if previous != ticket.Status {
		u.notifyStatus(ctx, ticket)
	}
	return ticket.Clone(), nil
}

// ToggleStatus flips a ticket between Resolved and Awaiting Response
func (u *Ticket) ToggleStatus(ctx context.Context, userID types.UserID, id types.TicketID) (*model.Ticket, error) {
	ticket, err := u.repo.GetTicket(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get ticket", goerr.V("id", id))
	}

	ticket.ToggleStatus(u.clock())
	if err := u.repo.PutTicket(ctx, ticket); err != nil {
		return nil, goerr.Wrap(err, "failed to update ticket", goerr.V("id", id))
	}

	u.notifyStatus(ctx, ticket)
	return ticket.Clone(), nil
}

// Delete removes a ticket
func (u *Ticket) Delete(ctx context.Context, userID types.UserID, id types.TicketID) error {
	if err := u.repo.DeleteTicket(ctx, userID, id); err != nil {
		return goerr.Wrap(err, "failed to delete ticket", goerr.V("id", id))
	}
	ctxlog.From(ctx).Info("Deleted ticket", "id", id)
	return nil
}

func (u *Ticket) notifyStatus(ctx context.Context, ticket *model.Ticket) {
	if ticket.IsResolved() {
		u.notify(ctx, model.TicketEventResolved, ticket)
	} else {
		u.notify(ctx, model.TicketEventReopened, ticket)
	}
}

func (u *Ticket) notify(ctx context.Context, kind model.TicketEventKind, ticket *model.Ticket) {
	if u.notifier == nil {
		return
	}

	event := &model.TicketEvent{Kind: kind, Ticket: ticket.Clone()}
	if authCtx, ok := model.GetAuthContext(ctx); ok {
		event.Email = authCtx.Email
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := u.notifier.NotifyTicket(ctx, event); err != nil {
			return goerr.Wrap(err, "failed to notify ticket event",
				goerr.V("kind", kind),
				goerr.V("id", event.Ticket.ID),
			)
		}
		return nil
	})
}
