package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/pkg/database"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
)

// NoteShareRepository implements repository.NoteShareRepository using PostgreSQL.
type NoteShareRepository struct{}

// NewNoteShareRepository creates a new PostgreSQL-backed note share repository.
func NewNoteShareRepository() *NoteShareRepository {
	return &NoteShareRepository{}
}

// Create inserts a new active share.
func (r *NoteShareRepository) Create(ctx context.Context, db database.DBTX, s *domain.NoteShare) error {
	query := `
		INSERT INTO note_shares (id, note_id, owner_id, recipient_id, permission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := db.Exec(ctx, query, s.ID, s.NoteID, s.OwnerID, s.RecipientID, s.Permission, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("share", "recipient", s.RecipientID)
		}
		return fmt.Errorf("insert note share: %w", err)
	}

	return nil
}

// GetByID retrieves a share visible to the bound principal.
func (r *NoteShareRepository) GetByID(ctx context.Context, db database.DBTX, id string) (*domain.NoteShare, error) {
	query := `
		SELECT id, note_id, owner_id, recipient_id, permission, created_at, revoked_at
		FROM note_shares
		WHERE id = $1`

	return scanShare(db.QueryRow(ctx, query, id))
}

// GetActive retrieves the active share of a note to a recipient.
func (r *NoteShareRepository) GetActive(ctx context.Context, db database.DBTX, noteID, recipientID string) (*domain.NoteShare, error) {
	query := `
		SELECT id, note_id, owner_id, recipient_id, permission, created_at, revoked_at
		FROM note_shares
		WHERE note_id = $1 AND recipient_id = $2 AND revoked_at IS NULL`

	return scanShare(db.QueryRow(ctx, query, noteID, recipientID))
}

// ListForNote returns all active shares of a note.
func (r *NoteShareRepository) ListForNote(ctx context.Context, db database.DBTX, noteID string) ([]domain.NoteShare, error) {
	query := `
		SELECT id, note_id, owner_id, recipient_id, permission, created_at, revoked_at
		FROM note_shares
		WHERE note_id = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC`

	rows, err := db.Query(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("list note shares: %w", err)
	}
	defer rows.Close()

	var shares []domain.NoteShare
	for rows.Next() {
		var s domain.NoteShare
		if err := rows.Scan(&s.ID, &s.NoteID, &s.OwnerID, &s.RecipientID, &s.Permission, &s.CreatedAt, &s.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan note share row: %w", err)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note share rows: %w", err)
	}

	return shares, nil
}

// UpdatePermission changes the permission of an active share.
func (r *NoteShareRepository) UpdatePermission(ctx context.Context, db database.DBTX, id, permission string) error {
	query := `
		UPDATE note_shares
		SET permission = $1
		WHERE id = $2 AND revoked_at IS NULL`

	ct, err := db.Exec(ctx, query, permission, id)
	if err != nil {
		return fmt.Errorf("update note share permission: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("share", id)
	}

	return nil
}

// Revoke marks a share as revoked. Row security restricts the update to the
// note owner.
func (r *NoteShareRepository) Revoke(ctx context.Context, db database.DBTX, id string) error {
	query := `
		UPDATE note_shares
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`

	ct, err := db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke note share: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("share", id)
	}

	return nil
}

func scanShare(row pgx.Row) (*domain.NoteShare, error) {
	var s domain.NoteShare

	err := row.Scan(&s.ID, &s.NoteID, &s.OwnerID, &s.RecipientID, &s.Permission, &s.CreatedAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan note share: %w", err)
	}

	return &s, nil
}
