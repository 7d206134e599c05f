package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/secmon-lab/ticktrack/pkg/repository"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
)

func TestNoteUseCase(t *testing.T) {
	ctx := testContext()

	t.Run("create fills defaults", func(t *testing.T) {
		uc := usecase.NewNote(repository.NewMemory())
		note, err := uc.Create(ctx, testUser, model.NoteInput{Content: "call vendor"})
		gt.NoError(t, err).Required()
		gt.Equal(t, note.Title, model.DefaultNoteTitle)
		gt.Equal(t, note.Priority, types.NotePriorityMedium)
		gt.V(t, note.TicketRef).Nil()
	})

	t.Run("create requires title or content", func(t *testing.T) {
		uc := usecase.NewNote(repository.NewMemory())
		_, err := uc.Create(ctx, testUser, model.NoteInput{Title: " ", Content: ""})

		var fields model.ValidationErrors
		gt.True(t, errors.As(err, &fields))
		gt.Equal(t, fields["title"], "Please provide at least a title or content")
	})

	t.Run("list searches title, content and ticket reference", func(t *testing.T) {
		uc := usecase.NewNote(repository.NewMemory())
		_, err := uc.Create(ctx, testUser, model.NoteInput{Title: "Escalation", Content: "ping L2"})
		gt.NoError(t, err).Required()
		_, err = uc.Create(ctx, testUser, model.NoteInput{Title: "Lunch", Content: "order pizza", TicketID: "INC-42"})
		gt.NoError(t, err).Required()
		_, err = uc.Create(ctx, types.UserID("user-2"), model.NoteInput{Title: "Escalation"})
		gt.NoError(t, err).Required()

		all, err := uc.List(ctx, testUser, "")
		gt.NoError(t, err).Required()
		gt.Equal(t, len(all), 2)

		found, err := uc.List(ctx, testUser, "ESCAL")
		gt.NoError(t, err).Required()
		gt.Equal(t, len(found), 1)
		gt.Equal(t, found[0].Title, "Escalation")

		found, err = uc.List(ctx, testUser, "inc-4")
		gt.NoError(t, err).Required()
		gt.Equal(t, len(found), 1)
		gt.Equal(t, found[0].TicketRefText(), "INC-42")
	})

	t.Run("update and delete", func(t *testing.T) {
		uc := usecase.NewNote(repository.NewMemory())
		note, err := uc.Create(ctx, testUser, model.NoteInput{Title: "draft", Priority: types.NotePriorityLow})
		gt.NoError(t, err).Required()

		updated, err := uc.Update(ctx, testUser, note.ID, model.NoteInput{Title: "final", Priority: types.NotePriorityCritical})
		gt.NoError(t, err).Required()
		gt.Equal(t, updated.Title, "final")
		gt.Equal(t, updated.Priority, types.NotePriorityCritical)
		gt.Equal(t, updated.CreatedAt, note.CreatedAt)

		got, err := uc.Get(ctx, testUser, note.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, got.Title, "final")

		_, err = uc.Update(ctx, types.UserID("user-2"), note.ID, model.NoteInput{Title: "steal"})
		gt.True(t, errors.Is(err, model.ErrNoteNotFound))

		gt.NoError(t, uc.Delete(ctx, testUser, note.ID)).Required()
		_, err = uc.Get(ctx, testUser, note.ID)
		gt.True(t, errors.Is(err, model.ErrNoteNotFound))
	})
}
