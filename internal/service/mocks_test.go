package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/pkg/database"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, db database.DBTX, user *domain.User) error {
	args := m.Called(ctx, db, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, db database.DBTX, id string) (*domain.User, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, db database.DBTX, email string) (*domain.User, error) {
	args := m.Called(ctx, db, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, db database.DBTX, id, passwordHash string) error {
	args := m.Called(ctx, db, id, passwordHash)
	return args.Error(0)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, db database.DBTX, token *domain.RefreshToken) error {
	args := m.Called(ctx, db, token)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, db database.DBTX, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, db, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, db database.DBTX, id, reason string) error {
	args := m.Called(ctx, db, id, reason)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, db database.DBTX, userID, reason string) error {
	args := m.Called(ctx, db, userID, reason)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, db database.DBTX, before time.Time) (int64, error) {
	args := m.Called(ctx, db, before)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Note Repository ---

type mockNoteRepository struct {
	mock.Mock
}

func (m *mockNoteRepository) Create(ctx context.Context, db database.DBTX, note *domain.Note) error {
	args := m.Called(ctx, db, note)
	return args.Error(0)
}

func (m *mockNoteRepository) GetByID(ctx context.Context, db database.DBTX, id string) (*domain.Note, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *mockNoteRepository) List(ctx context.Context, db database.DBTX, limit, offset int) ([]domain.Note, error) {
	args := m.Called(ctx, db, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Note), args.Error(1)
}

func (m *mockNoteRepository) Count(ctx context.Context, db database.DBTX) (int, error) {
	args := m.Called(ctx, db)
	return args.Int(0), args.Error(1)
}

func (m *mockNoteRepository) Update(ctx context.Context, db database.DBTX, note *domain.Note) error {
	args := m.Called(ctx, db, note)
	return args.Error(0)
}

func (m *mockNoteRepository) Delete(ctx context.Context, db database.DBTX, id string) error {
	args := m.Called(ctx, db, id)
	return args.Error(0)
}

// --- Mock Friendship Repository ---

type mockFriendshipRepository struct {
	mock.Mock
}

func (m *mockFriendshipRepository) Create(ctx context.Context, db database.DBTX, f *domain.Friendship) error {
	args := m.Called(ctx, db, f)
	return args.Error(0)
}

func (m *mockFriendshipRepository) GetByID(ctx context.Context, db database.DBTX, id string) (*domain.Friendship, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Friendship), args.Error(1)
}

func (m *mockFriendshipRepository) GetBetween(ctx context.Context, db database.DBTX, userA, userB string) (*domain.Friendship, error) {
	args := m.Called(ctx, db, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Friendship), args.Error(1)
}

func (m *mockFriendshipRepository) Accept(ctx context.Context, db database.DBTX, id string) error {
	args := m.Called(ctx, db, id)
	return args.Error(0)
}

func (m *mockFriendshipRepository) Delete(ctx context.Context, db database.DBTX, id string) error {
	args := m.Called(ctx, db, id)
	return args.Error(0)
}

func (m *mockFriendshipRepository) List(ctx context.Context, db database.DBTX) ([]domain.Friendship, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Friendship), args.Error(1)
}

// --- Mock Note Share Repository ---

type mockNoteShareRepository struct {
	mock.Mock
}

func (m *mockNoteShareRepository) Create(ctx context.Context, db database.DBTX, share *domain.NoteShare) error {
	args := m.Called(ctx, db, share)
	return args.Error(0)
}

func (m *mockNoteShareRepository) GetByID(ctx context.Context, db database.DBTX, id string) (*domain.NoteShare, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NoteShare), args.Error(1)
}

func (m *mockNoteShareRepository) GetActive(ctx context.Context, db database.DBTX, noteID, recipientID string) (*domain.NoteShare, error) {
	args := m.Called(ctx, db, noteID, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NoteShare), args.Error(1)
}

func (m *mockNoteShareRepository) ListForNote(ctx context.Context, db database.DBTX, noteID string) ([]domain.NoteShare, error) {
	args := m.Called(ctx, db, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NoteShare), args.Error(1)
}

func (m *mockNoteShareRepository) UpdatePermission(ctx context.Context, db database.DBTX, id, permission string) error {
	args := m.Called(ctx, db, id, permission)
	return args.Error(0)
}

func (m *mockNoteShareRepository) Revoke(ctx context.Context, db database.DBTX, id string) error {
	args := m.Called(ctx, db, id)
	return args.Error(0)
}

// --- Mock Notification Repository ---

type mockNotificationRepository struct {
	mock.Mock
}

func (m *mockNotificationRepository) Insert(ctx context.Context, db database.DBTX, n *domain.Notification) error {
	args := m.Called(ctx, db, n)
	return args.Error(0)
}

func (m *mockNotificationRepository) List(ctx context.Context, db database.DBTX, userID string, limit, offset int) ([]domain.Notification, error) {
	args := m.Called(ctx, db, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *mockNotificationRepository) CountForUser(ctx context.Context, db database.DBTX, userID string) (int, error) {
	args := m.Called(ctx, db, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, db database.DBTX, id, userID string) error {
	args := m.Called(ctx, db, id, userID)
	return args.Error(0)
}

func (m *mockNotificationRepository) MarkAllRead(ctx context.Context, db database.DBTX, userID string) error {
	args := m.Called(ctx, db, userID)
	return args.Error(0)
}

func (m *mockNotificationRepository) DeleteRead(ctx context.Context, db database.DBTX, before time.Time) (int64, error) {
	args := m.Called(ctx, db, before)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Notifier ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Deliver(ctx context.Context, userID, kind, body string) {
	m.Called(ctx, userID, kind, body)
}
