package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/pkg/database"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct{}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{}
}

// Create stores a new refresh token record.
func (r *RefreshTokenRepository) Create(ctx context.Context, db database.DBTX, t *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := db.Exec(ctx, query, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token record by its hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, db database.DBTX, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, revoked_reason
		FROM refresh_tokens
		WHERE token_hash = $1`

	var t domain.RefreshToken
	err := db.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
		&t.RevokedAt,
		&t.RevokedReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &t, nil
}

// Revoke marks a single token as revoked with the given reason.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, db database.DBTX, id, reason string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), revoked_reason = $1
		WHERE id = $2 AND revoked_at IS NULL`

	ct, err := db.Exec(ctx, query, reason, id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("refresh token", id)
	}

	return nil
}

// RevokeAllForUser revokes every active token belonging to the user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, db database.DBTX, userID, reason string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), revoked_reason = $1
		WHERE user_id = $2 AND revoked_at IS NULL`

	if _, err := db.Exec(ctx, query, reason, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens for user: %w", err)
	}

	return nil
}

// DeleteExpired removes tokens that expired before the given time.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, db database.DBTX, before time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	ct, err := db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}
