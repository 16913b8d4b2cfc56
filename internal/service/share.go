package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/event"
	"github.com/inkwellhq/inkwell/internal/notify"
	"github.com/inkwellhq/inkwell/internal/repository"
	"github.com/inkwellhq/inkwell/internal/rls"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
)

// ShareService implements sharing notes with friends.
type ShareService struct {
	shareRepo  repository.NoteShareRepository
	noteRepo   repository.NoteRepository
	friendRepo repository.FriendshipRepository
	notifier   notify.Notifier
	producer   *event.Producer
	logger     *slog.Logger
}

// NewShareService creates a new share service.
func NewShareService(
	shareRepo repository.NoteShareRepository,
	noteRepo repository.NoteRepository,
	friendRepo repository.FriendshipRepository,
	notifier notify.Notifier,
	producer *event.Producer,
	logger *slog.Logger,
) *ShareService {
	return &ShareService{
		shareRepo:  shareRepo,
		noteRepo:   noteRepo,
		friendRepo: friendRepo,
		notifier:   notifier,
		producer:   producer,
		logger:     logger,
	}
}

// CreateShareInput holds the parameters for sharing a note.
type CreateShareInput struct {
	NoteID      string
	RecipientID string
	Permission  string
}

// Create shares a note owned by the bound principal with an accepted friend.
func (s *ShareService) Create(ctx context.Context, input CreateShareInput) (*domain.NoteShare, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	if !domain.ValidSharePermission(input.Permission) {
		return nil, apperrors.InvalidInput("permission must be read or write")
	}
	if input.RecipientID == principal.ID {
		return nil, apperrors.InvalidInput("cannot share a note with yourself")
	}

	note, err := s.noteRepo.GetByID(ctx, db, input.NoteID)
	if err != nil {
		return nil, err
	}
	if note.OwnerID != principal.ID {
		return nil, apperrors.Forbidden("only the owner can share a note")
	}

	friendship, err := s.friendRepo.GetBetween(ctx, db, principal.ID, input.RecipientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("notes can only be shared with friends")
		}
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if friendship.Status != domain.FriendshipAccepted {
		return nil, apperrors.InvalidInput("notes can only be shared with friends")
	}

	share := &domain.NoteShare{
		ID:          uuid.NewString(),
		NoteID:      note.ID,
		OwnerID:     principal.ID,
		RecipientID: input.RecipientID,
		Permission:  input.Permission,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.shareRepo.Create(ctx, db, share); err != nil {
		return nil, err
	}

	displayName := principal.DisplayName
	title := note.Title
	rls.AfterCommit(ctx, func(ctx context.Context) {
		s.notifier.Deliver(ctx, share.RecipientID, domain.NotificationNoteShared,
			fmt.Sprintf("%s shared %q with you", displayName, title))
		if err := s.producer.PublishNoteShared(ctx, share); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish note.shared event",
				slog.String("share_id", share.ID),
				slog.String("error", err.Error()),
			)
		}
	})

	s.logger.InfoContext(ctx, "note shared",
		slog.String("share_id", share.ID),
		slog.String("note_id", share.NoteID),
		slog.String("recipient_id", share.RecipientID),
		slog.String("permission", share.Permission),
	)

	return share, nil
}

// UpdatePermission changes an active share between read and write. Only the
// note owner may change it.
func (s *ShareService) UpdatePermission(ctx context.Context, id, permission string) (*domain.NoteShare, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	if !domain.ValidSharePermission(permission) {
		return nil, apperrors.InvalidInput("permission must be read or write")
	}

	share, err := s.shareRepo.GetByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if share.OwnerID != principal.ID {
		return nil, apperrors.Forbidden("only the owner can change a share")
	}
	if share.RevokedAt != nil {
		return nil, apperrors.Gone("share has already been revoked")
	}

	if err := s.shareRepo.UpdatePermission(ctx, db, id, permission); err != nil {
		return nil, err
	}
	share.Permission = permission

	s.logger.InfoContext(ctx, "share permission changed",
		slog.String("share_id", id),
		slog.String("permission", permission),
	)

	return share, nil
}

// Revoke withdraws an active share. Only the note owner may revoke.
func (s *ShareService) Revoke(ctx context.Context, id string) error {
	principal, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return err
	}

	share, err := s.shareRepo.GetByID(ctx, db, id)
	if err != nil {
		return err
	}
	if share.OwnerID != principal.ID {
		return apperrors.Forbidden("only the owner can revoke a share")
	}
	if share.RevokedAt != nil {
		return apperrors.Gone("share has already been revoked")
	}

	if err := s.shareRepo.Revoke(ctx, db, id); err != nil {
		return err
	}

	recipientID := share.RecipientID
	rls.AfterCommit(ctx, func(ctx context.Context) {
		s.notifier.Deliver(ctx, recipientID, domain.NotificationShareRevoked,
			"a note shared with you is no longer available")
	})

	s.logger.InfoContext(ctx, "share revoked",
		slog.String("share_id", id),
	)

	return nil
}

// ListForNote returns the active shares of a note the principal owns.
func (s *ShareService) ListForNote(ctx context.Context, noteID string) ([]domain.NoteShare, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	note, err := s.noteRepo.GetByID(ctx, db, noteID)
	if err != nil {
		return nil, err
	}
	if note.OwnerID != principal.ID {
		return nil, apperrors.Forbidden("only the owner can list a note's shares")
	}

	return s.shareRepo.ListForNote(ctx, db, noteID)
}
