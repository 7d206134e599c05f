package model

import (
	"strings"
	"time"

	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

const (
	DefaultNoteTitle   = "Untitled Note"
	DefaultNoteContent = "No content"
)

// Note is a free-form note, optionally linked to a ticket identifier
type Note struct {
	ID        types.NoteID       `json:"id" firestore:"id" db:"id"`
	Title     string             `json:"title" firestore:"title" db:"title"`
	Content   string             `json:"content" firestore:"content" db:"content"`
	Priority  types.NotePriority `json:"priority" firestore:"priority" db:"priority"`
	TicketRef *string            `json:"ticket_id" firestore:"ticket_id" db:"ticket_id"`
	UserID    types.UserID       `json:"user_id" firestore:"user_id" db:"user_id"`
	CreatedAt time.Time          `json:"created_at" firestore:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" firestore:"updated_at" db:"updated_at"`
}

// NoteInput is the payload of the add/edit note actions
type NoteInput struct {
	Title    string             `json:"title" yaml:"title"`
	Content  string             `json:"content" yaml:"content"`
	Priority types.NotePriority `json:"priority" yaml:"priority"`
	TicketID string             `json:"ticket_id" yaml:"ticket_id"`
}

// Validate requires a title or content and a known priority. An empty
// priority defaults to Medium.
func (in NoteInput) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Content) == "" {
		errs.Add("title", "Please provide at least a title or content")
	}
	if in.Priority != "" && !in.Priority.IsValid() {
		errs.Add("priority", "Priority must be Low, Medium, High or Critical")
	}
	return errs.OrNil()
}

// NewNote creates a note from input, filling defaults
func NewNote(userID types.UserID, in NoteInput, now time.Time) (*Note, error) {
	n := &Note{
		ID:        types.NewNoteID(),
		UserID:    userID,
		CreatedAt: now,
	}
	if err := n.Apply(in, now); err != nil {
		return nil, err
	}
	return n, nil
}

// Apply overwrites the editable fields with defaults filled
func (n *Note) Apply(in NoteInput, now time.Time) error {
	if err := in.Validate(); err != nil {
		return err
	}

	n.Title = strings.TrimSpace(in.Title)
	if n.Title == "" {
		n.Title = DefaultNoteTitle
	}
	n.Content = strings.TrimSpace(in.Content)
	if n.Content == "" {
		n.Content = DefaultNoteContent
	}
	n.Priority = in.Priority
	if n.Priority == "" {
		n.Priority = types.NotePriorityMedium
	}
	n.TicketRef = nil
	if ref := strings.TrimSpace(in.TicketID); ref != "" {
		n.TicketRef = &ref
	}
	n.UpdatedAt = now
	return nil
}

// TicketRefText returns the linked ticket identifier or ""
func (n *Note) TicketRefText() string {
	if n.TicketRef == nil {
		return ""
	}
	return *n.TicketRef
}

// Clone returns a deep copy
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	if n.TicketRef != nil {
		r := *n.TicketRef
		c.TicketRef = &r
	}
	return &c
}
