package http

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/event"
	"github.com/inkwellhq/inkwell/internal/service"
	"github.com/inkwellhq/inkwell/pkg/database"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
	pkgkafka "github.com/inkwellhq/inkwell/pkg/kafka"
)

const testUserID = "6f1c1d3e-8b2a-4d5e-9c7f-2a4b6c8d0e1f"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testJWTManager() *auth.JWTManager {
	return auth.NewJWTManager(
		"access-secret-used-only-in-tests-0001",
		"refresh-secret-used-only-in-tests-01",
		15*time.Minute,
		7*24*time.Hour,
	)
}

func newTestEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

// stubUserRepo is an in-memory user store keyed by ID and email.
type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubUserRepo) Create(_ context.Context, _ database.DBTX, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.AlreadyExists("user", "email", user.Email)
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, _ database.DBTX, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *stubUserRepo) GetByEmail(_ context.Context, _ database.DBTX, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, _ database.DBTX, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// stubTokenRepo is an in-memory refresh token store keyed by hash.
type stubTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{tokens: make(map[string]*domain.RefreshToken)}
}

func (r *stubTokenRepo) Create(_ context.Context, _ database.DBTX, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *stubTokenRepo) GetByHash(_ context.Context, _ database.DBTX, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenHash]; ok {
		return t, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *stubTokenRepo) Revoke(_ context.Context, _ database.DBTX, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.ID == id {
			now := time.Now().UTC()
			t.RevokedAt = &now
			t.RevokedReason = reason
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *stubTokenRepo) RevokeAllForUser(_ context.Context, _ database.DBTX, userID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			now := time.Now().UTC()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *stubTokenRepo) DeleteExpired(_ context.Context, _ database.DBTX, before time.Time) (int64, error) {
	return 0, nil
}

// stubRecorder captures security events for assertions.
type stubRecorder struct {
	mu     sync.Mutex
	events []*domain.SecurityEvent
}

func (r *stubRecorder) Record(_ context.Context, event *domain.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *stubRecorder) recorded() []*domain.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.SecurityEvent(nil), r.events...)
}

func newTestAuthService(userRepo *stubUserRepo, tokenRepo *stubTokenRepo) *service.AuthService {
	return service.NewAuthService(nil, userRepo, tokenRepo, testJWTManager(), newTestEventProducer(), testLogger())
}
