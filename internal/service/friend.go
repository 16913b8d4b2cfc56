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
	"github.com/inkwellhq/inkwell/pkg/database"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
)

// FriendService implements friendship requests and their lifecycle.
type FriendService struct {
	pool       database.DBTX
	friendRepo repository.FriendshipRepository
	userRepo   repository.UserRepository
	notifier   notify.Notifier
	producer   *event.Producer
	logger     *slog.Logger
}

// NewFriendService creates a new friend service. The shared pool is used
// only to resolve a request's addressee by email; everything else runs on
// the request's row-scoped transaction.
func NewFriendService(
	pool database.DBTX,
	friendRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	notifier notify.Notifier,
	producer *event.Producer,
	logger *slog.Logger,
) *FriendService {
	return &FriendService{
		pool:       pool,
		friendRepo: friendRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		producer:   producer,
		logger:     logger,
	}
}

// Request sends a friend request to the user with the given email.
func (s *FriendService) Request(ctx context.Context, email string) (*domain.Friendship, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	// Addressee lookup runs on the shared pool: a not-yet-friend is exactly
	// who row security would hide.
	addressee, err := s.userRepo.GetByEmail(ctx, s.pool, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", email)
		}
		return nil, fmt.Errorf("resolve addressee: %w", err)
	}

	if addressee.ID == principal.ID {
		return nil, apperrors.InvalidInput("cannot send a friend request to yourself")
	}

	if existing, err := s.friendRepo.GetBetween(ctx, db, principal.ID, addressee.ID); err == nil {
		if existing.Status == domain.FriendshipAccepted {
			return nil, apperrors.Conflict("already friends")
		}
		return nil, apperrors.Conflict("a friend request is already pending")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing friendship: %w", err)
	}

	friendship := &domain.Friendship{
		ID:          uuid.NewString(),
		RequesterID: principal.ID,
		AddresseeID: addressee.ID,
		Status:      domain.FriendshipPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.friendRepo.Create(ctx, db, friendship); err != nil {
		return nil, err
	}

	displayName := principal.DisplayName
	rls.AfterCommit(ctx, func(ctx context.Context) {
		s.notifier.Deliver(ctx, friendship.AddresseeID, domain.NotificationFriendRequest,
			fmt.Sprintf("%s sent you a friend request", displayName))
		if err := s.producer.PublishFriendRequested(ctx, friendship); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish friend.requested event",
				slog.String("friendship_id", friendship.ID),
				slog.String("error", err.Error()),
			)
		}
	})

	s.logger.InfoContext(ctx, "friend request sent",
		slog.String("friendship_id", friendship.ID),
		slog.String("addressee_id", friendship.AddresseeID),
	)

	return friendship, nil
}

// Accept accepts a pending friend request addressed to the bound principal.
func (s *FriendService) Accept(ctx context.Context, id string) (*domain.Friendship, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	friendship, err := s.friendRepo.GetByID(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if friendship.AddresseeID != principal.ID {
		return nil, apperrors.Forbidden("only the addressee can accept a friend request")
	}
	if friendship.Status != domain.FriendshipPending {
		return nil, apperrors.Conflict("friend request is not pending")
	}

	if err := s.friendRepo.Accept(ctx, db, id); err != nil {
		return nil, err
	}

	friendship.Status = domain.FriendshipAccepted
	now := time.Now().UTC()
	friendship.RespondedAt = &now

	displayName := principal.DisplayName
	rls.AfterCommit(ctx, func(ctx context.Context) {
		s.notifier.Deliver(ctx, friendship.RequesterID, domain.NotificationFriendAccept,
			fmt.Sprintf("%s accepted your friend request", displayName))
		if err := s.producer.PublishFriendAccepted(ctx, friendship); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish friend.accepted event",
				slog.String("friendship_id", friendship.ID),
				slog.String("error", err.Error()),
			)
		}
	})

	s.logger.InfoContext(ctx, "friend request accepted",
		slog.String("friendship_id", friendship.ID),
	)

	return friendship, nil
}

// Remove deletes a friendship or withdraws a pending request. Either party
// may do it.
func (s *FriendService) Remove(ctx context.Context, id string) error {
	db, err := scopeDB(ctx)
	if err != nil {
		return err
	}

	// Row security already limits visibility and deletion to the two
	// parties; a stranger simply sees nothing to delete.
	if err := s.friendRepo.Delete(ctx, db, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "friendship removed",
		slog.String("friendship_id", id),
	)

	return nil
}

// List returns all friendships involving the bound principal.
func (s *FriendService) List(ctx context.Context) ([]domain.Friendship, error) {
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, err
	}

	return s.friendRepo.List(ctx, db)
}
