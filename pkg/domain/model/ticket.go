package model

import (
	"strings"
	"time"

	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// Ticket is one tracked work item. ExternalID is the identifier typed by
// the user; it is unique per (UserID, ExternalID, WorkDate).
type Ticket struct {
	ID         types.TicketID     `json:"id" firestore:"id" db:"id"`
	ExternalID string             `json:"ticket_id" firestore:"ticket_id" db:"ticket_id"`
	Status     types.TicketStatus `json:"status" firestore:"status" db:"status"`
	Notes      *string            `json:"notes" firestore:"notes" db:"notes"`
	WorkDate   types.WorkDate     `json:"work_date" firestore:"work_date" db:"work_date"`
	UserID     types.UserID       `json:"user_id" firestore:"user_id" db:"user_id"`
	CreatedAt  time.Time          `json:"created_at" firestore:"created_at" db:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" firestore:"updated_at" db:"updated_at"`
}

// TicketInput is the payload of the add-ticket action
type TicketInput struct {
	ExternalID string             `json:"ticket_id" yaml:"ticket_id"`
	Status     types.TicketStatus `json:"status" yaml:"status"`
	Notes      string             `json:"notes" yaml:"notes"`
	WorkDate   types.WorkDate     `json:"work_date" yaml:"work_date"`
}

// Validate checks the input. An empty work date is allowed and means
// "today" to callers.
func (in TicketInput) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(in.ExternalID) == "" {
		errs.Add("ticket_id", "Ticket ID is required")
	}
	if !in.Status.IsValid() {
		errs.Add("status", "Status must be Resolved or Awaiting Response")
	}
	if in.WorkDate != "" && !in.WorkDate.IsValid() {
		errs.Add("work_date", "Work date must be YYYY-MM-DD")
	}
	return errs.OrNil()
}

// TicketUpdate is the payload of the edit-ticket action. Nil fields are
// left untouched; an empty Notes string clears the notes.
type TicketUpdate struct {
	ExternalID *string             `json:"ticket_id,omitempty"`
	Status     *types.TicketStatus `json:"status,omitempty"`
	Notes      *string             `json:"notes,omitempty"`
	WorkDate   *types.WorkDate     `json:"work_date,omitempty"`
}

// Validate checks the fields that are present
func (u TicketUpdate) Validate() error {
	errs := ValidationErrors{}
	if u.ExternalID != nil && strings.TrimSpace(*u.ExternalID) == "" {
		errs.Add("ticket_id", "Ticket ID is required")
	}
	if u.Status != nil && !u.Status.IsValid() {
		errs.Add("status", "Status must be Resolved or Awaiting Response")
	}
	if u.WorkDate != nil && !u.WorkDate.IsValid() {
		errs.Add("work_date", "Work date must be YYYY-MM-DD")
	}
	return errs.OrNil()
}

// NewTicket creates a ticket from validated input. workDate must already
// be resolved by the caller.
func NewTicket(userID types.UserID, in TicketInput, workDate types.WorkDate, now time.Time) (*Ticket, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &Ticket{
		ID:         types.NewTicketID(),
		ExternalID: strings.TrimSpace(in.ExternalID),
		Status:     in.Status,
		Notes:      optionalText(in.Notes),
		WorkDate:   workDate,
		UserID:     userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Apply applies an edit and bumps UpdatedAt
func (t *Ticket) Apply(u TicketUpdate, now time.Time) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.ExternalID != nil {
		t.ExternalID = strings.TrimSpace(*u.ExternalID)
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Notes != nil {
		t.Notes = optionalText(*u.Notes)
	}
	if u.WorkDate != nil {
		t.WorkDate = *u.WorkDate
	}
	t.UpdatedAt = now
	return nil
}

// ToggleStatus flips between Resolved and Awaiting Response
func (t *Ticket) ToggleStatus(now time.Time) {
	t.Status = t.Status.Toggle()
	t.UpdatedAt = now
}

// IsResolved returns true if the ticket is resolved
func (t *Ticket) IsResolved() bool {
	return t.Status == types.TicketStatusResolved
}

// NotesText returns the notes or an empty string when absent
func (t *Ticket) NotesText() string {
	if t.Notes == nil {
		return ""
	}
	return *t.Notes
}

// Clone returns a deep copy
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	if t.Notes != nil {
		n := *t.Notes
		c.Notes = &n
	}
	return &c
}

// TicketSaveResult tells the caller which branch of create-or-upsert ran
type TicketSaveResult struct {
	Ticket *Ticket `json:"ticket"`
	// Created is true when no record existed for the identifier and work date
	Created bool `json:"created"`
	// StatusChanged is true when an existing record changed status
	StatusChanged  bool               `json:"status_changed"`
	PreviousStatus types.TicketStatus `json:"previous_status,omitempty"`
}

// Message describes the outcome for display
func (r *TicketSaveResult) Message() string {
	switch {
	case r.Created:
		return "Ticket created"
	case r.StatusChanged:
		return "Existing ticket updated: status changed from " + r.PreviousStatus.String() + " to " + r.Ticket.Status.String()
	default:
		return "Existing ticket updated"
	}
}

// optionalText returns nil for blank text and keeps other text verbatim
func optionalText(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
