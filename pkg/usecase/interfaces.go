package usecase

import (
	"context"

	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// AuthUseCase defines the interface for authentication operations
type AuthUseCase interface {
	// SignUp registers a user and opens a session
	SignUp(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)

	// SignIn verifies email and password and opens a session
	SignIn(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)

	// SignOut closes a session
	SignOut(ctx context.Context, sessionID types.SessionID) error

	// Refresh exchanges a refresh token for a new access token
	Refresh(ctx context.Context, refreshToken string) (*model.AuthResult, error)

	// GetSession resolves an access token to its live session
	GetSession(ctx context.Context, accessToken string) (*model.Session, error)

	// GetUser returns the profile of a user
	GetUser(ctx context.Context, userID types.UserID) (*model.User, error)

	// Subscribe registers handler for session change notifications
	Subscribe(ctx context.Context, handler func(*model.AuthEvent)) (func(), error)

	// SweepExpiredSessions deletes sessions past their expiry
	SweepExpiredSessions(ctx context.Context) (int, error)
}

// TicketUseCase defines ticket operations of a signed-in user
type TicketUseCase interface {
	// Save creates a ticket, or updates the one with the same identifier
	// and work date
	Save(ctx context.Context, userID types.UserID, in model.TicketInput) (*model.TicketSaveResult, error)
	Get(ctx context.Context, userID types.UserID, id types.TicketID) (*model.Ticket, error)
	List(ctx context.Context, userID types.UserID, query model.TicketQuery) ([]*model.Ticket, error)
	Update(ctx context.Context, userID types.UserID, id types.TicketID, upd model.TicketUpdate) (*model.Ticket, error)
	ToggleStatus(ctx context.Context, userID types.UserID, id types.TicketID) (*model.Ticket, error)
	Delete(ctx context.Context, userID types.UserID, id types.TicketID) error
}

// NoteUseCase defines note operations of a signed-in user
type NoteUseCase interface {
	Create(ctx context.Context, userID types.UserID, in model.NoteInput) (*model.Note, error)
	Get(ctx context.Context, userID types.UserID, id types.NoteID) (*model.Note, error)
	List(ctx context.Context, userID types.UserID, search string) ([]*model.Note, error)
	Update(ctx context.Context, userID types.UserID, id types.NoteID, in model.NoteInput) (*model.Note, error)
	Delete(ctx context.Context, userID types.UserID, id types.NoteID) error
}

// DashboardUseCase assembles the dashboard state
type DashboardUseCase interface {
	Load(ctx context.Context, userID types.UserID, req model.DashboardRequest) (*model.Dashboard, error)
}

// ExportUseCase generates downloadable reports
type ExportUseCase interface {
	Export(ctx context.Context, userID types.UserID, req model.ExportRequest) (*model.ExportFile, error)
}
