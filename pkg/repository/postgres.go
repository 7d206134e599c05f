package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// Schema is the DDL for the Postgres repository
//
//go:embed schema.sql
var Schema string

const (
	userColumns    = "id, email, full_name, password_hash, created_at, updated_at"
	sessionColumns = "id, secret, user_id, email, created_at, refreshed_at, expires_at"
	ticketColumns  = "id, ticket_id, status, notes, work_date, user_id, created_at, updated_at"
	noteColumns    = "id, title, content, priority, ticket_id, user_id, created_at, updated_at"

	pqUniqueViolation = "23505"
)

// Postgres implements Repository interface with PostgreSQL via sqlx
type Postgres struct {
	db *sqlx.DB
}

var _ interfaces.Repository = (*Postgres)(nil)

// NewPostgres connects to dsn and verifies the connection
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}

	ctxlog.From(ctx).Info("Postgres repository initialized successfully")
	return NewPostgresWithDB(db), nil
}

// NewPostgresWithDB wraps an existing connection
func NewPostgresWithDB(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies Schema. Every statement is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return goerr.Wrap(err, "failed to apply schema")
	}
	return nil
}

// PutUser creates or updates a user
func (p *Postgres) PutUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return goerr.New("user is nil")
	}
	if user.ID == "" {
		return goerr.New("user ID is empty")
	}

	const q = `INSERT INTO users (` + userColumns + `)
VALUES (:id, :email, :full_name, :password_hash, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  full_name = EXCLUDED.full_name,
  password_hash = EXCLUDED.password_hash,
  updated_at = EXCLUDED.updated_at`

	if _, err := p.db.NamedExecContext(ctx, q, user); err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(model.ErrEmailTaken, "duplicate email", goerr.V("email", user.Email))
		}
		return goerr.Wrap(err, "failed to save user", goerr.V("user_id", user.ID))
	}
	return nil
}

// GetUser retrieves a user by ID
func (p *Postgres) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	var user model.User
	err := p.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrUserNotFound, "failed to get user", goerr.V("user_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("user_id", id))
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by normalized email
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)

	var user model.User
	err := p.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrUserNotFound, "failed to get user by email", goerr.V("email", email))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user by email")
	}
	return &user, nil
}

// PutSession creates or updates a session
func (p *Postgres) PutSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}
	if session.ID == "" {
		return goerr.New("session ID is empty")
	}

	const q = `INSERT INTO sessions (` + sessionColumns + `)
VALUES (:id, :secret, :user_id, :email, :created_at, :refreshed_at, :expires_at)
ON CONFLICT (id) DO UPDATE SET
  secret = EXCLUDED.secret,
  refreshed_at = EXCLUDED.refreshed_at,
  expires_at = EXCLUDED.expires_at`

	if _, err := p.db.NamedExecContext(ctx, q, session); err != nil {
		return goerr.Wrap(err, "failed to save session", goerr.V("session_id", session.ID))
	}
	return nil
}

// GetSession retrieves a session by ID
func (p *Postgres) GetSession(ctx context.Context, id types.SessionID) (*model.Session, error) {
	var session model.Session
	err := p.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "failed to get session", goerr.V("session_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("session_id", id))
	}
	return &session, nil
}

// DeleteSession deletes a session. Deleting a missing session is not an error.
func (p *Postgres) DeleteSession(ctx context.Context, id types.SessionID) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return goerr.Wrap(err, "failed to delete session", goerr.V("session_id", id))
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (p *Postgres) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count deleted sessions")
	}
	return int(n), nil
}

// PutTicket creates or replaces a ticket. The unique constraint on
// (ticket_id, work_date, user_id) surfaces as ErrTicketConflict.
func (p *Postgres) PutTicket(ctx context.Context, ticket *model.Ticket) error {
	if ticket == nil {
		return goerr.New("ticket is nil")
	}
	if ticket.ID == "" {
		return goerr.New("ticket ID is empty")
	}

	const q = `INSERT INTO tickets (` + ticketColumns + `)
VALUES (:id, :ticket_id, :status, :notes, :work_date, :user_id, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
  ticket_id = EXCLUDED.ticket_id,
  status = EXCLUDED.status,
  notes = EXCLUDED.notes,
  work_date = EXCLUDED.work_date,
  updated_at = EXCLUDED.updated_at`

	if _, err := p.db.NamedExecContext(ctx, q, ticket); err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(model.ErrTicketConflict, "duplicate ticket",
				goerr.V("ticket_id", ticket.ExternalID),
				goerr.V("work_date", ticket.WorkDate))
		}
		return goerr.Wrap(err, "failed to save ticket", goerr.V("id", ticket.ID))
	}
	return nil
}

// GetTicket retrieves a ticket owned by userID
func (p *Postgres) GetTicket(ctx context.Context, userID types.UserID, id types.TicketID) (*model.Ticket, error) {
	var ticket model.Ticket
	err := p.db.GetContext(ctx, &ticket,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 AND user_id = $2`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrTicketNotFound, "failed to get ticket", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get ticket", goerr.V("id", id))
	}
	return &ticket, nil
}

// FindTicket looks a ticket up by identifier and work date
func (p *Postgres) FindTicket(ctx context.Context, userID types.UserID, externalID string, workDate types.WorkDate) (*model.Ticket, error) {
	var ticket model.Ticket
	err := p.db.GetContext(ctx, &ticket,
		`SELECT `+ticketColumns+` FROM tickets WHERE user_id = $1 AND ticket_id = $2 AND work_date = $3`,
		userID, externalID, workDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrTicketNotFound, "failed to find ticket",
			goerr.V("ticket_id", externalID),
			goerr.V("work_date", workDate))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find ticket")
	}
	return &ticket, nil
}

// ListTickets returns the user's tickets matching query, newest first
func (p *Postgres) ListTickets(ctx context.Context, userID types.UserID, query model.TicketQuery) ([]*model.Ticket, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if query.WorkDateFrom != "" {
		args = append(args, query.WorkDateFrom)
		where = append(where, "work_date >= $"+strconv.Itoa(len(args)))
	}
	if query.WorkDateTo != "" {
		args = append(args, query.WorkDateTo)
		where = append(where, "work_date <= $"+strconv.Itoa(len(args)))
	}

	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`

	tickets := []*model.Ticket{}
	if err := p.db.SelectContext(ctx, &tickets, q, args...); err != nil {
		return nil, goerr.Wrap(err, "failed to list tickets", goerr.V("user_id", userID))
	}
	return tickets, nil
}

// DeleteTicket hard-deletes a ticket owned by userID
func (p *Postgres) DeleteTicket(ctx context.Context, userID types.UserID, id types.TicketID) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return goerr.Wrap(err, "failed to delete ticket", goerr.V("id", id))
	}
	return requireAffected(res, goerr.Wrap(model.ErrTicketNotFound, "failed to delete ticket", goerr.V("id", id)))
}

// PutNote creates or replaces a note
func (p *Postgres) PutNote(ctx context.Context, note *model.Note) error {
	if note == nil {
		return goerr.New("note is nil")
	}
	if note.ID == "" {
		return goerr.New("note ID is empty")
	}

	const q = `INSERT INTO notes (` + noteColumns + `)
VALUES (:id, :title, :content, :priority, :ticket_id, :user_id, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  content = EXCLUDED.content,
  priority = EXCLUDED.priority,
  ticket_id = EXCLUDED.ticket_id,
  updated_at = EXCLUDED.updated_at`

	if _, err := p.db.NamedExecContext(ctx, q, note); err != nil {
		return goerr.Wrap(err, "failed to save note", goerr.V("id", note.ID))
	}
	return nil
}

// GetNote retrieves a note owned by userID
func (p *Postgres) GetNote(ctx context.Context, userID types.UserID, id types.NoteID) (*model.Note, error) {
	var note model.Note
	err := p.db.GetContext(ctx, &note,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNoteNotFound, "failed to get note", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get note", goerr.V("id", id))
	}
	return &note, nil
}

// ListNotes returns the user's notes, newest first
func (p *Postgres) ListNotes(ctx context.Context, userID types.UserID) ([]*model.Note, error) {
	notes := []*model.Note{}
	err := p.db.SelectContext(ctx, &notes,
		`SELECT `+noteColumns+` FROM notes WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes", goerr.V("user_id", userID))
	}
	return notes, nil
}

// DeleteNote hard-deletes a note owned by userID
func (p *Postgres) DeleteNote(ctx context.Context, userID types.UserID, id types.NoteID) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return goerr.Wrap(err, "failed to delete note", goerr.V("id", id))
	}
	return requireAffected(res, goerr.Wrap(model.ErrNoteNotFound, "failed to delete note", goerr.V("id", id)))
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
