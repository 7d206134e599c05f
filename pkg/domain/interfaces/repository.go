package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// Repository defines the interface for data persistence. Every ticket and
// note operation is scoped to the owning user; records of other users are
// reported as not found.
type Repository interface {
	// User operations
	PutUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id types.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// Session operations
	PutSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id types.SessionID) (*model.Session, error)
	DeleteSession(ctx context.Context, id types.SessionID) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)

	// Ticket operations. ListTickets orders by created_at descending.
	PutTicket(ctx context.Context, ticket *model.Ticket) error
	GetTicket(ctx context.Context, userID types.UserID, id types.TicketID) (*model.Ticket, error)
	FindTicket(ctx context.Context, userID types.UserID, externalID string, workDate types.WorkDate) (*model.Ticket, error)
	ListTickets(ctx context.Context, userID types.UserID, query model.TicketQuery) ([]*model.Ticket, error)
	DeleteTicket(ctx context.Context, userID types.UserID, id types.TicketID) error

	// Note operations. ListNotes orders by created_at descending.
	PutNote(ctx context.Context, note *model.Note) error
	GetNote(ctx context.Context, userID types.UserID, id types.NoteID) (*model.Note, error)
	ListNotes(ctx context.Context, userID types.UserID) ([]*model.Note, error)
	DeleteNote(ctx context.Context, userID types.UserID, id types.NoteID) error

	// Close closes the repository connection
	Close() error
}
