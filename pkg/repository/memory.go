package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// Memory implements Repository interface with in-memory storage
type Memory struct {
	mu       sync.RWMutex
	users    map[types.UserID]*model.User
	sessions map[types.SessionID]*model.Session
	tickets  map[types.TicketID]*model.Ticket
	notes    map[types.NoteID]*model.Note
}

var _ interfaces.Repository = (*Memory)(nil)

// NewMemory creates a new memory repository
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[types.UserID]*model.User),
		sessions: make(map[types.SessionID]*model.Session),
		tickets:  make(map[types.TicketID]*model.Ticket),
		notes:    make(map[types.NoteID]*model.Note),
	}
}

// PutUser saves a user to memory
func (m *Memory) PutUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return goerr.New("user is nil")
	}
	if user.ID == "" {
		return goerr.New("user ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID != user.ID && u.Email == user.Email {
			return goerr.Wrap(model.ErrEmailTaken, "duplicate email", goerr.V("email", user.Email))
		}
	}

	userCopy := *user
	m.users[user.ID] = &userCopy
	return nil
}

// GetUser retrieves a user by ID
func (m *Memory) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	if id == "" {
		return nil, goerr.New("user ID is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrUserNotFound, "failed to get user", goerr.V("user_id", id))
	}

	userCopy := *user
	return &userCopy, nil
}

// GetUserByEmail retrieves a user by normalized email
func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, goerr.Wrap(model.ErrUserNotFound, "failed to get user by email", goerr.V("email", email))
}

// PutSession saves a session to memory
func (m *Memory) PutSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}
	if session.ID == "" {
		return goerr.New("session ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sessionCopy := *session
	m.sessions[session.ID] = &sessionCopy
	return nil
}

// GetSession retrieves a session by ID
func (m *Memory) GetSession(ctx context.Context, id types.SessionID) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "failed to get session", goerr.V("session_id", id))
	}

	sessionCopy := *session
	return &sessionCopy, nil
}

// DeleteSession deletes a session. Deleting a missing session is not an error.
func (m *Memory) DeleteSession(ctx context.Context, id types.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (m *Memory) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, id)
			count++
		}
	}
	return count, nil
}

// PutTicket creates or replaces a ticket, enforcing uniqueness of
// (user, identifier, work date)
func (m *Memory) PutTicket(ctx context.Context, ticket *model.Ticket) error {
	if ticket == nil {
		return goerr.New("ticket is nil")
	}
	if ticket.ID == "" {
		return goerr.New("ticket ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tickets {
		if t.ID != ticket.ID && t.UserID == ticket.UserID &&
			t.ExternalID == ticket.ExternalID && t.WorkDate == ticket.WorkDate {
			return goerr.Wrap(model.ErrTicketConflict, "duplicate ticket",
				goerr.V("ticket_id", ticket.ExternalID),
				goerr.V("work_date", ticket.WorkDate))
		}
	}

	m.tickets[ticket.ID] = ticket.Clone()
	return nil
}

// GetTicket retrieves a ticket owned by userID
func (m *Memory) GetTicket(ctx context.Context, userID types.UserID, id types.TicketID) (*model.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.tickets[id]
	if !exists || t.UserID != userID {
		return nil, goerr.Wrap(model.ErrTicketNotFound, "failed to get ticket", goerr.V("id", id))
	}
	return t.Clone(), nil
}

// FindTicket looks a ticket up by identifier and work date
func (m *Memory) FindTicket(ctx context.Context, userID types.UserID, externalID string, workDate types.WorkDate) (*model.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tickets {
		if t.UserID == userID && t.ExternalID == externalID && t.WorkDate == workDate {
			return t.Clone(), nil
		}
	}
	return nil, goerr.Wrap(model.ErrTicketNotFound, "failed to find ticket",
		goerr.V("ticket_id", externalID),
		goerr.V("work_date", workDate))
}

// ListTickets returns the user's tickets matching query, newest first
func (m *Memory) ListTickets(ctx context.Context, userID types.UserID, query model.TicketQuery) ([]*model.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tickets := []*model.Ticket{}
	for _, t := range m.tickets {
		if t.UserID == userID && query.Matches(t) {
			tickets = append(tickets, t.Clone())
		}
	}

	sortTickets(tickets)
	return tickets, nil
}

// DeleteTicket hard-deletes a ticket owned by userID
func (m *Memory) DeleteTicket(ctx context.Context, userID types.UserID, id types.TicketID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.tickets[id]
	if !exists || t.UserID != userID {
		return goerr.Wrap(model.ErrTicketNotFound, "failed to delete ticket", goerr.V("id", id))
	}
	delete(m.tickets, id)
	return nil
}

// PutNote creates or replaces a note
func (m *Memory) PutNote(ctx context.Context, note *model.Note) error {
	if note == nil {
		return goerr.New("note is nil")
	}
	if note.ID == "" {
		return goerr.New("note ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.notes[note.ID] = note.Clone()
	return nil
}

// GetNote retrieves a note owned by userID
func (m *Memory) GetNote(ctx context.Context, userID types.UserID, id types.NoteID) (*model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, exists := m.notes[id]
	if !exists || n.UserID != userID {
		return nil, goerr.Wrap(model.ErrNoteNotFound, "failed to get note", goerr.V("id", id))
	}
	return n.Clone(), nil
}

// ListNotes returns the user's notes, newest first
func (m *Memory) ListNotes(ctx context.Context, userID types.UserID) ([]*model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	notes := []*model.Note{}
	for _, n := range m.notes {
		if n.UserID == userID {
			notes = append(notes, n.Clone())
		}
	}

	sortNotes(notes)
	return notes, nil
}

// DeleteNote hard-deletes a note owned by userID
func (m *Memory) DeleteNote(ctx context.Context, userID types.UserID, id types.NoteID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, exists := m.notes[id]
	if !exists || n.UserID != userID {
		return goerr.Wrap(model.ErrNoteNotFound, "failed to delete note", goerr.V("id", id))
	}
	delete(m.notes, id)
	return nil
}

// Close is a no-op for memory repository
func (m *Memory) Close() error {
	return nil
}

// sortTickets orders by created_at descending with ID as tie breaker
func sortTickets(tickets []*model.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].ID > tickets[j].ID
	})
}

// sortNotes orders by created_at descending with ID as tie breaker
func sortNotes(notes []*model.Note) {
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID > notes[j].ID
	})
}
