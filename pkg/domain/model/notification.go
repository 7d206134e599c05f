package model

// TicketEventKind distinguishes ticket notifications
type TicketEventKind string

const (
	TicketEventCreated  TicketEventKind = "created"
	TicketEventResolved TicketEventKind = "resolved"
	TicketEventReopened TicketEventKind = "reopened"
)

// TicketEvent is sent to notifiers after a ticket is saved
type TicketEvent struct {
	Kind   TicketEventKind
	Ticket *Ticket
	Email  string
}
