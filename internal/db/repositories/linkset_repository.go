// linkset_repository.go implements LinksetRepository using sqlx struct
// scanning. Linkset rows are created empty by the push transaction; this
// repository reads them and applies validated updates.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gem-registry/gem-registry/internal/db/models"
)

// LinksetRepository handles database operations for gem linksets
type LinksetRepository struct {
	db *sqlx.DB
}

// NewLinksetRepository creates a new linkset repository
func NewLinksetRepository(db *sqlx.DB) *LinksetRepository {
	return &LinksetRepository{db: db}
}

// Get retrieves the linkset of a gem
func (r *LinksetRepository) Get(ctx context.Context, rubygemID string) (*models.Linkset, error) {
	query := `
		SELECT rubygem_id, code, docs, wiki, mail, bugs
		FROM linksets
		WHERE rubygem_id = $1
	`

	ls := &models.Linkset{}
	if err := r.db.GetContext(ctx, ls, query, rubygemID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get linkset: %w", err)
	}

	return ls, nil
}

// Update replaces a gem's linkset. Validation happens in the registry before
// this is called; the replacement itself is a single statement so the prior
// row is never observable half-updated.
func (r *LinksetRepository) Update(ctx context.Context, ls *models.Linkset) error {
	query := `
		UPDATE linksets
		SET code = :code, docs = :docs, wiki = :wiki, mail = :mail, bugs = :bugs
		WHERE rubygem_id = :rubygem_id
	`

	result, err := r.db.NamedExecContext(ctx, query, ls)
	if err != nil {
		return fmt.Errorf("failed to update linkset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("linkset not found")
	}

	return nil
}
