package repository_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/secmon-lab/ticktrack/pkg/repository"
)

func ptr[T any](v T) *T { return &v }

func newTicket(userID types.UserID, externalID string, workDate types.WorkDate, created time.Time) *model.Ticket {
	return &model.Ticket{
		ID:         types.NewTicketID(),
		ExternalID: externalID,
		Status:     types.TicketStatusAwaitingResponse,
		Notes:      ptr("notes for " + externalID),
		WorkDate:   workDate,
		UserID:     userID,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func putUser(t *testing.T, repo interfaces.Repository) types.UserID {
	user := model.NewUser(types.NewUserID().String()+"@example.com", "Test User", "hash", time.Now().UTC())
	gt.NoError(t, repo.PutUser(context.Background(), user)).Required()
	return user.ID
}

func testRepository(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("User", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		now := time.Now().UTC().Truncate(time.Millisecond)
		user := model.NewUser(types.NewUserID().String()+"@example.com", "Alice", "hash", now)
		gt.NoError(t, repo.PutUser(ctx, user)).Required()

		got, err := repo.GetUser(ctx, user.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, got.Email, user.Email)
		gt.Equal(t, got.FullName, "Alice")
		gt.Equal(t, got.PasswordHash, "hash")

		got, err = repo.GetUserByEmail(ctx, " "+user.Email+" ")
		gt.NoError(t, err).Required()
		gt.Equal(t, got.ID, user.ID)

		other := model.NewUser(user.Email, "Mallory", "hash", now)
		err = repo.PutUser(ctx, other)
		gt.True(t, errors.Is(err, model.ErrEmailTaken))

		_, err = repo.GetUser(ctx, types.NewUserID())
		gt.True(t, errors.Is(err, model.ErrUserNotFound))
	})

	t.Run("Session", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		now := time.Now().UTC().Truncate(time.Millisecond)
		user := model.NewUser(types.NewUserID().String()+"@example.com", "Bob", "hash", now)
		gt.NoError(t, repo.PutUser(ctx, user)).Required()

		live, err := model.NewSession(user, time.Hour, now)
		gt.NoError(t, err).Required()
		expired, err := model.NewSession(user, time.Minute, now.Add(-time.Hour))
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.PutSession(ctx, live))
		gt.NoError(t, repo.PutSession(ctx, expired))

		got, err := repo.GetSession(ctx, live.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, got.Secret, live.Secret)
		gt.Equal(t, got.UserID, user.ID)
		gt.True(t, got.ExpiresAt.Sub(live.ExpiresAt).Abs() < time.Second)

		n, err := repo.DeleteExpiredSessions(ctx, now)
		gt.NoError(t, err)
		gt.True(t, n >= 1)

		_, err = repo.GetSession(ctx, expired.ID)
		gt.True(t, errors.Is(err, model.ErrSessionNotFound))

		gt.NoError(t, repo.DeleteSession(ctx, live.ID))
		_, err = repo.GetSession(ctx, live.ID)
		gt.True(t, errors.Is(err, model.ErrSessionNotFound))

		// deleting again is not an error
		gt.NoError(t, repo.DeleteSession(ctx, live.ID))
	})

	t.Run("Ticket", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		userID := putUser(t, repo)
		base := time.Now().UTC().Truncate(time.Millisecond)

		t1 := newTicket(userID, "INC-1", "2024-06-01", base.Add(-2*time.Hour))
		t2 := newTicket(userID, "INC-2", "2024-06-02", base.Add(-1*time.Hour))
		t3 := newTicket(userID, "INC-1", "2024-06-03", base)
		t3.Notes = nil
		for _, tk := range []*model.Ticket{t1, t2, t3} {
			gt.NoError(t, repo.PutTicket(ctx, tk)).Required()
		}

		got, err := repo.GetTicket(ctx, userID, t3.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, got.ExternalID, "INC-1")
		gt.Equal(t, got.WorkDate, types.WorkDate("2024-06-03"))
		gt.V(t, got.Notes).Nil()

		found, err := repo.FindTicket(ctx, userID, "INC-1", "2024-06-01")
		gt.NoError(t, err).Required()
		gt.Equal(t, found.ID, t1.ID)
		gt.Equal(t, found.NotesText(), "notes for INC-1")

		_, err = repo.FindTicket(ctx, userID, "INC-1", "2024-06-02")
		gt.True(t, errors.Is(err, model.ErrTicketNotFound))

		all, err := repo.ListTickets(ctx, userID, model.TicketQuery{})
		gt.NoError(t, err).Required()
		gt.Equal(t, len(all), 3)
		gt.Equal(t, all[0].ID, t3.ID)
		gt.Equal(t, all[2].ID, t1.ID)

		ranged, err := repo.ListTickets(ctx, userID, model.TicketQuery{WorkDateFrom: "2024-06-02", WorkDateTo: "2024-06-02"})
		gt.NoError(t, err).Required()
		gt.Equal(t, len(ranged), 1)
		gt.Equal(t, ranged[0].ID, t2.ID)

		// same identifier and work date under another record is a conflict
		dup := newTicket(userID, "INC-2", "2024-06-02", base)
		err = repo.PutTicket(ctx, dup)
		gt.True(t, errors.Is(err, model.ErrTicketConflict))

		// updating in place is not a conflict
		t2.Status = types.TicketStatusResolved
		gt.NoError(t, repo.PutTicket(ctx, t2))
		got, err = repo.GetTicket(ctx, userID, t2.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, got.Status, types.TicketStatusResolved)

		// other users cannot see or delete the record
		stranger := types.NewUserID()
		_, err = repo.GetTicket(ctx, stranger, t1.ID)
		gt.True(t, errors.Is(err, model.ErrTicketNotFound))
		err = repo.DeleteTicket(ctx, stranger, t1.ID)
		gt.True(t, errors.Is(err, model.ErrTicketNotFound))
		others, err := repo.ListTickets(ctx, stranger, model.TicketQuery{})
		gt.NoError(t, err)
		gt.Equal(t, len(others), 0)

		gt.NoError(t, repo.DeleteTicket(ctx, userID, t1.ID))
		_, err = repo.GetTicket(ctx, userID, t1.ID)
		gt.True(t, errors.Is(err, model.ErrTicketNotFound))
	})

	t.Run("Note", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		userID := putUser(t, repo)
		base := time.Now().UTC().Truncate(time.Millisecond)

		older, err := model.NewNote(userID, model.NoteInput{Title: "older", TicketID: "INC-9"}, base.Add(-time.Minute))
		gt.NoError(t, err).Required()
		newer, err := model.NewNote(userID, model.NoteInput{Content: "newer"}, base)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.PutNote(ctx, older))
		gt.NoError(t, repo.PutNote(ctx, newer))

		notes, err := repo.ListNotes(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Equal(t, len(notes), 2)
		gt.Equal(t, notes[0].ID, newer.ID)
		gt.Equal(t, notes[1].TicketRefText(), "INC-9")

		got, err := repo.GetNote(ctx, userID, newer.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, got.Title, model.DefaultNoteTitle)
		gt.V(t, got.TicketRef).Nil()

		_, err = repo.GetNote(ctx, types.NewUserID(), newer.ID)
		gt.True(t, errors.Is(err, model.ErrNoteNotFound))

		gt.NoError(t, repo.DeleteNote(ctx, userID, older.ID))
		err = repo.DeleteNote(ctx, userID, older.ID)
		gt.True(t, errors.Is(err, model.ErrNoteNotFound))
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		userID := putUser(t, repo)
		tk := newTicket(userID, "COPY-1", "2024-06-01", time.Now().UTC())
		gt.NoError(t, repo.PutTicket(ctx, tk)).Required()

		tk.ExternalID = "mutated"
		got, err := repo.GetTicket(ctx, userID, tk.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, got.ExternalID, "COPY-1")

		*got.Notes = "mutated"
		again, err := repo.GetTicket(ctx, userID, tk.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, again.NotesText(), "notes for COPY-1")
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, func(t *testing.T) interfaces.Repository {
		return repository.NewMemory()
	})
}

func TestFirestoreRepository(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE")

	if projectID == "" || databaseID == "" {
		t.Skip("Skipping Firestore test: TEST_FIRESTORE_PROJECT and TEST_FIRESTORE_DATABASE must be set")
	}

	testRepository(t, func(t *testing.T) interfaces.Repository {
		ctx := context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		ctx = ctxlog.With(ctx, logger)

		repo, err := repository.NewFirestore(ctx, projectID, databaseID)
		gt.NoError(t, err).Required()
		return repo
	})
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres test: TEST_POSTGRES_DSN must be set")
	}

	testRepository(t, func(t *testing.T) interfaces.Repository {
		ctx := context.Background()
		repo, err := repository.NewPostgres(ctx, dsn)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Migrate(ctx)).Required()
		return repo
	})
}
