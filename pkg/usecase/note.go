package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// Note implements NoteUseCase
type Note struct {
	repo  interfaces.Repository
	clock func() time.Time
}

// NewNote creates a new Note use case
func NewNote(repo interfaces.Repository, opts ...Option) *Note {
	o := newOptions(opts)
	return &Note{
		repo:  repo,
		clock: o.clock,
	}
}

// Create adds a note, filling the default title, content and priority
func (u *Note) Create(ctx context.Context, userID types.UserID, in model.NoteInput) (*model.Note, error) {
	note, err := model.NewNote(userID, in, u.clock())
	if err != nil {
		return nil, goerr.Wrap(err, "invalid note")
	}
	if err := u.repo.PutNote(ctx, note); err != nil {
		return nil, goerr.Wrap(err, "failed to save note")
	}

	ctxlog.From(ctx).Info("Created note",
		"id", note.ID,
		"priority", note.Priority,
	)
	return note.Clone(), nil
}

// Get returns one note of the user
func (u *Note) Get(ctx context.Context, userID types.UserID, id types.NoteID) (*model.Note, error) {
	note, err := u.repo.GetNote(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get note", goerr.V("id", id))
	}
	return note, nil
}

// List returns the user's notes newest first, narrowed by search when it
// is not blank
func (u *Note) List(ctx context.Context, userID types.UserID, search string) ([]*model.Note, error) {
	notes, err := u.repo.ListNotes(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes")
	}
	return model.FilterNotes(notes, search), nil
}

// Update replaces the editable fields of a note
func (u *Note) Update(ctx context.Context, userID types.UserID, id types.NoteID, in model.NoteInput) (*model.Note, error) {
	if err := in.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid note")
	}

	note, err := u.repo.GetNote(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get note", goerr.V("id", id))
	}
	if err := note.Apply(in, u.clock()); err != nil {
		return nil, goerr.Wrap(err, "invalid note")
	}
	if err := u.repo.PutNote(ctx, note); err != nil {
		return nil, goerr.Wrap(err, "failed to update note", goerr.V("id", id))
	}
	return note.Clone(), nil
}

// Delete removes a note
func (u *Note) Delete(ctx context.Context, userID types.UserID, id types.NoteID) error {
	if err := u.repo.DeleteNote(ctx, userID, id); err != nil {
		return goerr.Wrap(err, "failed to delete note", goerr.V("id", id))
	}
	ctxlog.From(ctx).Info("Deleted note", "id", id)
	return nil
}
