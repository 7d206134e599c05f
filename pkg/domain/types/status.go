package types

// TicketStatus represents the resolution state of a ticket
type TicketStatus string

const (
	TicketStatusResolved         TicketStatus = "Resolved"
	TicketStatusAwaitingResponse TicketStatus = "Awaiting Response"

	// TicketStatusAll is the filter sentinel that matches every status.
	// It is never stored.
	TicketStatusAll TicketStatus = "all"
)

// String returns the string representation of the status
func (s TicketStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a storable ticket status
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusResolved, TicketStatusAwaitingResponse:
		return true
	default:
		return false
	}
}

// Toggle returns the opposite status
func (s TicketStatus) Toggle() TicketStatus {
	if s == TicketStatusResolved {
		return TicketStatusAwaitingResponse
	}
	return TicketStatusResolved
}

// TicketStatuses returns all storable statuses in display order
func TicketStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusResolved, TicketStatusAwaitingResponse}
}

// NotePriority represents the priority of a note
type NotePriority string

const (
	NotePriorityLow      NotePriority = "Low"
	NotePriorityMedium   NotePriority = "Medium"
	NotePriorityHigh     NotePriority = "High"
	NotePriorityCritical NotePriority = "Critical"
)

// String returns the string representation of the priority
func (p NotePriority) String() string {
	return string(p)
}

// IsValid checks if the priority is valid
func (p NotePriority) IsValid() bool {
	switch p {
	case NotePriorityLow, NotePriorityMedium, NotePriorityHigh, NotePriorityCritical:
		return true
	default:
		return false
	}
}

// AuthEventType is the kind of a session change notification
type AuthEventType string

const (
	AuthEventInitialSession AuthEventType = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// String returns the string representation of the event type
func (t AuthEventType) String() string {
	return string(t)
}
