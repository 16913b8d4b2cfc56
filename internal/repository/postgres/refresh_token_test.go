package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/pkg/database"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
)

func TestRefreshTokenRepository_Create_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository()

	now := time.Now().UTC()
	token := &domain.RefreshToken{
		ID:        "token-001",
		UserID:    "user-001",
		TokenHash: "abc123",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), mock, token)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetByHash_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository()

	now := time.Now().UTC().Truncate(time.Microsecond)
	rows := pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked_at", "revoked_reason"}).
		AddRow("token-001", "user-001", "abc123", now.Add(time.Hour), now, (*time.Time)(nil), "")
	mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
		WithArgs("abc123").
		WillReturnRows(rows)

	got, err := repo.GetByHash(context.Background(), mock, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "user-001", got.UserID)
	assert.Nil(t, got.RevokedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetByHash_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository()

	mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked_at", "revoked_reason"}))

	_, err = repo.GetByHash(context.Background(), mock, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Revoke_AlreadyRevoked(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository()

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(domain.RevokedReasonRotation, "token-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Revoke(context.Background(), mock, "token-001", domain.RevokedReasonRotation)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeAllForUser_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository()

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(domain.RevokedReasonLogin, "user-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	err = repo.RevokeAllForUser(context.Background(), mock, "user-001", domain.RevokedReasonLogin)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository()

	before := time.Now().UTC()
	mock.ExpectExec("DELETE FROM refresh_tokens").
		WithArgs(before).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	n, err := repo.DeleteExpired(context.Background(), mock, before)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
