package types

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// UserID represents a user identifier
type UserID string

// String returns the string representation
func (id UserID) String() string {
	return string(id)
}

// NewUserID creates a new UserID
func NewUserID() UserID {
	return UserID(uuid.New().String())
}

// TicketID is the primary key of a ticket record. It is not the
// user-supplied ticket identifier, which lives in Ticket.ExternalID.
type TicketID string

// String returns the string representation
func (id TicketID) String() string {
	return string(id)
}

// NewTicketID creates a new TicketID
func NewTicketID() TicketID {
	return TicketID(uuid.New().String())
}

// NoteID represents a note identifier
type NoteID string

// String returns the string representation
func (id NoteID) String() string {
	return string(id)
}

// NewNoteID creates a new NoteID
func NewNoteID() NoteID {
	return NoteID(uuid.New().String())
}

// SessionID represents a session identifier
type SessionID string

// String returns the string representation
func (id SessionID) String() string {
	return string(id)
}

// NewSessionID creates a time-ordered SessionID
func NewSessionID() (SessionID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate session id")
	}
	return SessionID(id.String()), nil
}

// WorkDateLayout is the calendar date layout used by WorkDate
const WorkDateLayout = "2006-01-02"

// WorkDate is the calendar day a ticket was worked on, "YYYY-MM-DD".
// Lexical order equals chronological order.
type WorkDate string

// NewWorkDate returns the calendar date of t in t's location
func NewWorkDate(t time.Time) WorkDate {
	return WorkDate(t.Format(WorkDateLayout))
}

// ParseWorkDate validates s and returns it as a WorkDate
func ParseWorkDate(s string) (WorkDate, error) {
	if _, err := time.Parse(WorkDateLayout, s); err != nil {
		return "", goerr.Wrap(err, "invalid work date", goerr.V("value", s))
	}
	return WorkDate(s), nil
}

// String returns the string representation
func (d WorkDate) String() string {
	return string(d)
}

// IsValid reports whether d is a well-formed calendar date
func (d WorkDate) IsValid() bool {
	_, err := time.Parse(WorkDateLayout, string(d))
	return err == nil
}

// Time returns midnight of d in loc
func (d WorkDate) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(WorkDateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid work date", goerr.V("value", string(d)))
	}
	return t, nil
}

// Scan implements sql.Scanner. DATE columns arrive as time.Time.
func (d *WorkDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = WorkDate(v.Format(WorkDateLayout))
	case string:
		*d = WorkDate(v)
	case []byte:
		*d = WorkDate(string(v))
	case nil:
		*d = ""
	default:
		return goerr.New("unsupported work date source", goerr.V("type", v))
	}
	return nil
}

// Value implements driver.Valuer
func (d WorkDate) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}
