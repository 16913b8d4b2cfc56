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

// NoteRepository implements repository.NoteRepository using PostgreSQL.
// Row security on the notes table decides visibility, so the queries carry
// no ownership predicates.
type NoteRepository struct{}

// NewNoteRepository creates a new PostgreSQL-backed note repository.
func NewNoteRepository() *NoteRepository {
	return &NoteRepository{}
}

// Create inserts a new note.
func (r *NoteRepository) Create(ctx context.Context, db database.DBTX, n *domain.Note) error {
	query := `
		INSERT INTO notes (id, owner_id, title, content, encrypted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := db.Exec(ctx, query,
		n.ID,
		n.OwnerID,
		n.Title,
		n.Content,
		n.Encrypted,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	return nil
}

// GetByID retrieves a note visible to the bound principal.
func (r *NoteRepository) GetByID(ctx context.Context, db database.DBTX, id string) (*domain.Note, error) {
	query := `
		SELECT id, owner_id, title, content, encrypted, created_at, updated_at
		FROM notes
		WHERE id = $1`

	var n domain.Note
	err := db.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.OwnerID,
		&n.Title,
		&n.Content,
		&n.Encrypted,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}

	return &n, nil
}

// List returns a page of notes visible to the bound principal, newest first.
func (r *NoteRepository) List(ctx context.Context, db database.DBTX, limit, offset int) ([]domain.Note, error) {
	query := `
		SELECT id, owner_id, title, content, encrypted, created_at, updated_at
		FROM notes
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.Encrypted, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note row: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note rows: %w", err)
	}

	return notes, nil
}

// Count returns how many notes are visible to the bound principal.
func (r *NoteRepository) Count(ctx context.Context, db database.DBTX) (int, error) {
	var count int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// Update modifies a note's title, content, and encrypted flag.
func (r *NoteRepository) Update(ctx context.Context, db database.DBTX, n *domain.Note) error {
	n.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE notes
		SET title = $1, content = $2, encrypted = $3, updated_at = $4
		WHERE id = $5`

	ct, err := db.Exec(ctx, query, n.Title, n.Content, n.Encrypted, n.UpdatedAt, n.ID)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("note", n.ID)
	}

	return nil
}

// Delete removes a note.
func (r *NoteRepository) Delete(ctx context.Context, db database.DBTX, id string) error {
	query := `DELETE FROM notes WHERE id = $1`

	ct, err := db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("note", id)
	}

	return nil
}
