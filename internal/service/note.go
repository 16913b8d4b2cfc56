package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/notecipher"
	"github.com/inkwellhq/inkwell/internal/repository"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
)

// maxNoteTitleLength bounds note titles.
const maxNoteTitleLength = 200

// NoteService implements note CRUD. Visibility is enforced by row security
// on the request's transaction; the service adds content encryption and the
// permission distinctions row security cannot express as anything but an
// empty result.
type NoteService struct {
	noteRepo  repository.NoteRepository
	shareRepo repository.NoteShareRepository
	cipher    *notecipher.Cipher
	logger    *slog.Logger
}

// NewNoteService creates a new note service.
func NewNoteService(
	noteRepo repository.NoteRepository,
	shareRepo repository.NoteShareRepository,
	cipher *notecipher.Cipher,
	logger *slog.Logger,
) *NoteService {
	return &NoteService{
		noteRepo:  noteRepo,
		shareRepo: shareRepo,
		cipher:    cipher,
		logger:    logger,
	}
}

// CreateNoteInput holds the parameters for creating a note.
type CreateNoteInput struct {
	Title     string
	Content   string
	Encrypted bool
}

// UpdateNoteInput holds the parameters for updating a note. Nil fields are
// left unchanged.
type UpdateNoteInput struct {
	Title   *string
	Content *string
}

// Create stores a new note owned by the bound principal.
func (s *NoteService) Create(ctx context.Context, input CreateNoteInput) (*domain.Note, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	if input.Title == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if len(input.Title) > maxNoteTitleLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("title must be at most %d characters", maxNoteTitleLength))
	}

	content := input.Content
	if input.Encrypted {
		if input.Content == "" {
			return nil, apperrors.InvalidInput("content is required for an encrypted note")
		}
		content, err = s.cipher.Encrypt([]byte(input.Content))
		if err != nil {
			return nil, fmt.Errorf("encrypt note content: %w", err)
		}
	}

	now := time.Now().UTC()
	note := &domain.Note{
		ID:        uuid.NewString(),
		OwnerID:   principal.ID,
		Title:     input.Title,
		Content:   content,
		Encrypted: input.Encrypted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.noteRepo.Create(ctx, db, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.logger.InfoContext(ctx, "note created",
		slog.String("note_id", note.ID),
		slog.Bool("encrypted", note.Encrypted),
	)

	return s.presentable(note)
}

// Get retrieves a note visible to the bound principal, decrypting encrypted
// content before returning it.
func (s *NoteService) Get(ctx context.Context, id string) (*domain.Note, error) {
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	note, err := s.noteRepo.GetByID(ctx, db, id)
	if err != nil {
		return nil, err
	}

	return s.presentable(note)
}

// List returns a page of notes visible to the bound principal, along with
// the total count. Encrypted content is withheld from listings; clients
// fetch those notes individually.
func (s *NoteService) List(ctx context.Context, page, perPage int) ([]domain.Note, int, error) {
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.noteRepo.Count(ctx, db)
	if err != nil {
		return nil, 0, err
	}

	notes, err := s.noteRepo.List(ctx, db, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}

	for i := range notes {
		if notes[i].Encrypted {
			notes[i].Content = ""
		}
	}

	return notes, total, nil
}

// Update modifies a note. The owner may always write; a share recipient
// needs write permission, and a read-only recipient gets an explicit 403
// rather than a silent empty update.
func (s *NoteService) Update(ctx context.Context, id string, input UpdateNoteInput) (*domain.Note, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	note, err := s.noteRepo.GetByID(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if note.OwnerID != principal.ID {
		share, err := s.shareRepo.GetActive(ctx, db, note.ID, principal.ID)
		if err != nil {
			return nil, err
		}
		if share.Permission != domain.SharePermissionWrite {
			return nil, apperrors.Forbidden("share does not grant write access")
		}
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, apperrors.InvalidInput("title must not be empty")
		}
		if len(*input.Title) > maxNoteTitleLength {
			return nil, apperrors.InvalidInput(fmt.Sprintf("title must be at most %d characters", maxNoteTitleLength))
		}
		note.Title = *input.Title
	}

	if input.Content != nil {
		content := *input.Content
		if note.Encrypted {
			if content == "" {
				return nil, apperrors.InvalidInput("content is required for an encrypted note")
			}
			content, err = s.cipher.Encrypt([]byte(content))
			if err != nil {
				return nil, fmt.Errorf("encrypt note content: %w", err)
			}
		}
		note.Content = content
	}

	if err := s.noteRepo.Update(ctx, db, note); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "note updated",
		slog.String("note_id", note.ID),
	)

	return s.presentable(note)
}

// Delete removes a note. Only the owner may delete; recipients of a share
// get an explicit 403.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	principal, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return err
	}

	note, err := s.noteRepo.GetByID(ctx, db, id)
	if err != nil {
		return err
	}
	if note.OwnerID != principal.ID {
		return apperrors.Forbidden("only the owner can delete a note")
	}

	if err := s.noteRepo.Delete(ctx, db, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "note deleted",
		slog.String("note_id", id),
	)

	return nil
}

// presentable returns a copy of the note with encrypted content decrypted.
// An integrity failure surfaces as an internal error that still unwraps to
// notecipher.ErrIntegrity so the handler can raise a security event.
func (s *NoteService) presentable(note *domain.Note) (*domain.Note, error) {
	if !note.Encrypted {
		return note, nil
	}

	plaintext, err := s.cipher.Decrypt(note.Content)
	if err != nil {
		if errors.Is(err, notecipher.ErrIntegrity) {
			return nil, apperrors.Internal(fmt.Errorf("note %s: %w", note.ID, err))
		}
		return nil, fmt.Errorf("decrypt note %s: %w", note.ID, err)
	}

	out := *note
	out.Content = string(plaintext)
	return &out, nil
}
