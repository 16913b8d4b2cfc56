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

// FriendshipRepository implements repository.FriendshipRepository using PostgreSQL.
type FriendshipRepository struct{}

// NewFriendshipRepository creates a new PostgreSQL-backed friendship repository.
func NewFriendshipRepository() *FriendshipRepository {
	return &FriendshipRepository{}
}

// Create inserts a new pending friendship request.
func (r *FriendshipRepository) Create(ctx context.Context, db database.DBTX, f *domain.Friendship) error {
	query := `
		INSERT INTO friendships (id, requester_id, addressee_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := db.Exec(ctx, query, f.ID, f.RequesterID, f.AddresseeID, f.Status, f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("friendship", "pair", f.AddresseeID)
		}
		return fmt.Errorf("insert friendship: %w", err)
	}

	return nil
}

// GetByID retrieves a friendship visible to the bound principal.
func (r *FriendshipRepository) GetByID(ctx context.Context, db database.DBTX, id string) (*domain.Friendship, error) {
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, responded_at
		FROM friendships
		WHERE id = $1`

	return scanFriendship(db.QueryRow(ctx, query, id))
}

// GetBetween retrieves the friendship between two users in either direction.
func (r *FriendshipRepository) GetBetween(ctx context.Context, db database.DBTX, userA, userB string) (*domain.Friendship, error) {
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, responded_at
		FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)`

	return scanFriendship(db.QueryRow(ctx, query, userA, userB))
}

// Accept marks a pending request as accepted. Row security restricts the
// update to the addressee, so an accept by anyone else affects zero rows.
func (r *FriendshipRepository) Accept(ctx context.Context, db database.DBTX, id string) error {
	query := `
		UPDATE friendships
		SET status = $1, responded_at = NOW()
		WHERE id = $2 AND status = $3`

	ct, err := db.Exec(ctx, query, domain.FriendshipAccepted, id, domain.FriendshipPending)
	if err != nil {
		return fmt.Errorf("accept friendship: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("friendship", id)
	}

	return nil
}

// Delete removes a friendship or pending request.
func (r *FriendshipRepository) Delete(ctx context.Context, db database.DBTX, id string) error {
	query := `DELETE FROM friendships WHERE id = $1`

	ct, err := db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("friendship", id)
	}

	return nil
}

// List returns all friendships involving the bound principal.
func (r *FriendshipRepository) List(ctx context.Context, db database.DBTX) ([]domain.Friendship, error) {
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, responded_at
		FROM friendships
		ORDER BY created_at DESC`

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	defer rows.Close()

	var friendships []domain.Friendship
	for rows.Next() {
		var f domain.Friendship
		if err := rows.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.RespondedAt); err != nil {
			return nil, fmt.Errorf("scan friendship row: %w", err)
		}
		friendships = append(friendships, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friendship rows: %w", err)
	}

	return friendships, nil
}

func scanFriendship(row pgx.Row) (*domain.Friendship, error) {
	var f domain.Friendship

	err := row.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.RespondedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan friendship: %w", err)
	}

	return &f, nil
}
