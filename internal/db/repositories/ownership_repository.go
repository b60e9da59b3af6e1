// ownership_repository.go implements OwnershipRepository, the read surface of
// the ownership authority. Ownership rows are written by the registry's push
// transaction, never directly through this repository.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gem-registry/gem-registry/internal/db/models"
)

// OwnershipRepository handles database operations for gem ownerships
type OwnershipRepository struct {
	db *sql.DB
}

// NewOwnershipRepository creates a new ownership repository
func NewOwnershipRepository(db *sql.DB) *OwnershipRepository {
	return &OwnershipRepository{db: db}
}

// IsApprovedOwner reports whether the user holds an approved ownership on the gem
func (r *OwnershipRepository) IsApprovedOwner(ctx context.Context, rubygemID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ownerships
			WHERE rubygem_id = $1 AND user_id = $2 AND approved = TRUE
		)
	`

	var owner bool
	if err := r.db.QueryRowContext(ctx, query, rubygemID, userID).Scan(&owner); err != nil {
		return false, fmt.Errorf("failed to check ownership: %w", err)
	}

	return owner, nil
}

// ListByRubygem retrieves all ownerships of a gem with owner emails joined in
func (r *OwnershipRepository) ListByRubygem(ctx context.Context, rubygemID string) ([]*models.Ownership, error) {
	query := `
		SELECT o.id, o.rubygem_id, o.user_id, o.approved, o.created_at, u.email AS user_email
		FROM ownerships o
		LEFT JOIN users u ON o.user_id = u.id
		WHERE o.rubygem_id = $1
		ORDER BY o.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, rubygemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ownerships: %w", err)
	}
	defer rows.Close()

	var ownerships []*models.Ownership
	for rows.Next() {
		o := &models.Ownership{}
		err := rows.Scan(
			&o.ID,
			&o.RubygemID,
			&o.UserID,
			&o.Approved,
			&o.CreatedAt,
			&o.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ownership: %w", err)
		}
		ownerships = append(ownerships, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ownerships: %w", err)
	}

	return ownerships, nil
}
