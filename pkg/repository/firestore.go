package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Collection names
	usersCollection    = "users"
	sessionsCollection = "sessions"
	ticketsCollection  = "tickets"
	notesCollection    = "notes"
)

// Firestore implements Repository interface with Firestore. Field names
// follow the firestore struct tags of the model types.
type Firestore struct {
	client *firestore.Client
}

var _ interfaces.Repository = (*Firestore)(nil)

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	logger := ctxlog.From(ctx)

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	// Fail fast on bad project or credentials; an empty collection is fine
	_, err = client.Collection(ticketsCollection).Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		if status.Code(err) == codes.PermissionDenied || status.Code(err) == codes.Unauthenticated {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to firestore project",
				goerr.V("firestore error code", status.Code(err).String()),
			)
		}
		logger.Debug("Firestore connection test returned error (may be empty collection)",
			"error", err,
			"errorCode", status.Code(err).String(),
		)
	}

	logger.Info("Firestore repository initialized successfully",
		"projectID", projectID,
		"databaseID", databaseID,
	)

	return &Firestore{
		client: client,
	}, nil
}

// PutUser saves a user, rejecting an email used by another user
func (f *Firestore) PutUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return goerr.New("user is nil")
	}
	if user.ID == "" {
		return goerr.New("user ID is empty")
	}

	users := f.client.Collection(usersCollection)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(users.Where("email", "==", user.Email)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query users by email")
		}
		for _, doc := range docs {
			if doc.Ref.ID != user.ID.String() {
				return goerr.Wrap(model.ErrEmailTaken, "duplicate email", goerr.V("email", user.Email))
			}
		}
		return tx.Set(users.Doc(user.ID.String()), user)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save user to firestore", goerr.V("user_id", user.ID))
	}

	return nil
}

// GetUser retrieves a user by ID
func (f *Firestore) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	if id == "" {
		return nil, goerr.New("user ID is empty")
	}

	var user model.User
	if err := f.get(ctx, usersCollection, id.String(), &user); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrUserNotFound, "failed to get user", goerr.V("user_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user from firestore", goerr.V("user_id", id))
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by normalized email
func (f *Firestore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)

	iter := f.client.Collection(usersCollection).Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(model.ErrUserNotFound, "failed to get user by email", goerr.V("email", email))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query user by email")
	}

	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user")
	}
	return &user, nil
}

// PutSession saves a session
func (f *Firestore) PutSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}
	if session.ID == "" {
		return goerr.New("session ID is empty")
	}

	if _, err := f.client.Collection(sessionsCollection).Doc(session.ID.String()).Set(ctx, session); err != nil {
		return goerr.Wrap(err, "failed to save session to firestore")
	}
	return nil
}

// GetSession retrieves a session by ID
func (f *Firestore) GetSession(ctx context.Context, id types.SessionID) (*model.Session, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "session ID is empty")
	}

	var session model.Session
	if err := f.get(ctx, sessionsCollection, id.String(), &session); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrSessionNotFound, "failed to get session", goerr.V("session_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get session from firestore")
	}
	return &session, nil
}

// DeleteSession deletes a session
func (f *Firestore) DeleteSession(ctx context.Context, id types.SessionID) error {
	if id == "" {
		return nil
	}
	if _, err := f.client.Collection(sessionsCollection).Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete session from firestore", goerr.V("session_id", id))
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (f *Firestore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	iter := f.client.Collection(sessionsCollection).Where("expires_at", "<", now).Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, goerr.Wrap(err, "failed to iterate expired sessions")
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return count, goerr.Wrap(err, "failed to delete expired session", goerr.V("session_id", doc.Ref.ID))
		}
		count++
	}
	return count, nil
}

// PutTicket creates or replaces a ticket inside a transaction that
// enforces uniqueness of (user, identifier, work date)
func (f *Firestore) PutTicket(ctx context.Context, ticket *model.Ticket) error {
	if ticket == nil {
		return goerr.New("ticket is nil")
	}
	if ticket.ID == "" {
		return goerr.New("ticket ID is empty")
	}

	tickets := f.client.Collection(ticketsCollection)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		query := tickets.
			Where("user_id", "==", ticket.UserID.String()).
			Where("ticket_id", "==", ticket.ExternalID).
			Where("work_date", "==", ticket.WorkDate.String())
		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query tickets by identifier")
		}
		for _, doc := range docs {
			if doc.Ref.ID != ticket.ID.String() {
				return goerr.Wrap(model.ErrTicketConflict, "duplicate ticket",
					goerr.V("ticket_id", ticket.ExternalID),
					goerr.V("work_date", ticket.WorkDate))
			}
		}
		return tx.Set(tickets.Doc(ticket.ID.String()), ticket)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save ticket to firestore", goerr.V("id", ticket.ID))
	}
	return nil
}

// GetTicket retrieves a ticket owned by userID
func (f *Firestore) GetTicket(ctx context.Context, userID types.UserID, id types.TicketID) (*model.Ticket, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrTicketNotFound, "ticket ID is empty")
	}

	var ticket model.Ticket
	if err := f.get(ctx, ticketsCollection, id.String(), &ticket); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrTicketNotFound, "failed to get ticket", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get ticket from firestore", goerr.V("id", id))
	}
	if ticket.UserID != userID {
		return nil, goerr.Wrap(model.ErrTicketNotFound, "failed to get ticket", goerr.V("id", id))
	}
	return &ticket, nil
}

// FindTicket looks a ticket up by identifier and work date
func (f *Firestore) FindTicket(ctx context.Context, userID types.UserID, externalID string, workDate types.WorkDate) (*model.Ticket, error) {
	iter := f.client.Collection(ticketsCollection).
		Where("user_id", "==", userID.String()).
		Where("ticket_id", "==", externalID).
		Where("work_date", "==", workDate.String()).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(model.ErrTicketNotFound, "failed to find ticket",
			goerr.V("ticket_id", externalID),
			goerr.V("work_date", workDate))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query ticket")
	}

	var ticket model.Ticket
	if err := doc.DataTo(&ticket); err != nil {
		return nil, goerr.Wrap(err, "failed to decode ticket")
	}
	return &ticket, nil
}

// ListTickets returns the user's tickets matching query, newest first.
// Work date bounds and ordering are applied in memory so that no
// composite index is required.
func (f *Firestore) ListTickets(ctx context.Context, userID types.UserID, query model.TicketQuery) ([]*model.Ticket, error) {
	iter := f.client.Collection(ticketsCollection).
		Where("user_id", "==", userID.String()).
		Documents(ctx)
	defer iter.Stop()

	tickets := []*model.Ticket{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate tickets")
		}

		var ticket model.Ticket
		if err := doc.DataTo(&ticket); err != nil {
			return nil, goerr.Wrap(err, "failed to decode ticket", goerr.V("doc_id", doc.Ref.ID))
		}
		if query.Matches(&ticket) {
			tickets = append(tickets, &ticket)
		}
	}

	sortTickets(tickets)
	return tickets, nil
}

// DeleteTicket hard-deletes a ticket owned by userID
func (f *Firestore) DeleteTicket(ctx context.Context, userID types.UserID, id types.TicketID) error {
	if _, err := f.GetTicket(ctx, userID, id); err != nil {
		return goerr.Wrap(err, "failed to delete ticket")
	}
	if _, err := f.client.Collection(ticketsCollection).Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete ticket from firestore", goerr.V("id", id))
	}
	return nil
}

// PutNote creates or replaces a note
func (f *Firestore) PutNote(ctx context.Context, note *model.Note) error {
	if note == nil {
		return goerr.New("note is nil")
	}
	if note.ID == "" {
		return goerr.New("note ID is empty")
	}

	if _, err := f.client.Collection(notesCollection).Doc(note.ID.String()).Set(ctx, note); err != nil {
		return goerr.Wrap(err, "failed to save note to firestore", goerr.V("id", note.ID))
	}
	return nil
}

// GetNote retrieves a note owned by userID
func (f *Firestore) GetNote(ctx context.Context, userID types.UserID, id types.NoteID) (*model.Note, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrNoteNotFound, "note ID is empty")
	}

	var note model.Note
	if err := f.get(ctx, notesCollection, id.String(), &note); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNoteNotFound, "failed to get note", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get note from firestore", goerr.V("id", id))
	}
	if note.UserID != userID {
		return nil, goerr.Wrap(model.ErrNoteNotFound, "failed to get note", goerr.V("id", id))
	}
	return &note, nil
}

// ListNotes returns the user's notes, newest first
func (f *Firestore) ListNotes(ctx context.Context, userID types.UserID) ([]*model.Note, error) {
	iter := f.client.Collection(notesCollection).
		Where("user_id", "==", userID.String()).
		Documents(ctx)
	defer iter.Stop()

	notes := []*model.Note{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notes")
		}

		var note model.Note
		if err := doc.DataTo(&note); err != nil {
			return nil, goerr.Wrap(err, "failed to decode note", goerr.V("doc_id", doc.Ref.ID))
		}
		notes = append(notes, &note)
	}

	sortNotes(notes)
	return notes, nil
}

// DeleteNote hard-deletes a note owned by userID
func (f *Firestore) DeleteNote(ctx context.Context, userID types.UserID, id types.NoteID) error {
	if _, err := f.GetNote(ctx, userID, id); err != nil {
		return goerr.Wrap(err, "failed to delete note")
	}
	if _, err := f.client.Collection(notesCollection).Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete note from firestore", goerr.V("id", id))
	}
	return nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	return f.client.Close()
}

// get loads one document into dst; NotFound is returned as the raw
// grpc status error for the caller to translate
func (f *Firestore) get(ctx context.Context, collection, id string, dst any) error {
	doc, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return err
	}
	if err := doc.DataTo(dst); err != nil {
		return goerr.Wrap(err, "failed to decode document",
			goerr.V("collection", collection),
			goerr.V("id", id))
	}
	return nil
}
