// Package repositories provides raw-SQL database access for the gem registry.
// Each repository wraps a *sql.DB (or sqlx for the linkset and subscription
// repositories) and follows the convention of returning (nil, nil) when a
// lookup matches no rows, reserving errors for real failures.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/gemspec"
)

// RubygemRepository handles database operations for gems
type RubygemRepository struct {
	db *sql.DB
}

// NewRubygemRepository creates a new gem repository
func NewRubygemRepository(db *sql.DB) *RubygemRepository {
	return &RubygemRepository{db: db}
}

// FindByNameOrSlug resolves a human-supplied identifier to a gem. Exact name
// match wins (names are the canonical published spelling); the slug path is a
// lenient case-insensitive fallback.
func (r *RubygemRepository) FindByNameOrSlug(ctx context.Context, ident string) (*models.Rubygem, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM rubygems
		WHERE name = $1
	`

	gem, err := r.scanOne(ctx, query, ident)
	if err != nil {
		return nil, err
	}
	if gem != nil {
		return gem, nil
	}

	query = `
		SELECT id, name, slug, created_at, updated_at
		FROM rubygems
		WHERE LOWER(slug) = LOWER($1)
	`

	return r.scanOne(ctx, query, ident)
}

// GetByName retrieves a gem by its exact name
func (r *RubygemRepository) GetByName(ctx context.Context, name string) (*models.Rubygem, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM rubygems
		WHERE name = $1
	`

	return r.scanOne(ctx, query, name)
}

func (r *RubygemRepository) scanOne(ctx context.Context, query string, arg string) (*models.Rubygem, error) {
	gem := &models.Rubygem{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&gem.ID,
		&gem.Name,
		&gem.Slug,
		&gem.CreatedAt,
		&gem.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get gem: %w", err)
	}

	return gem, nil
}

// List returns gems ordered by name, optionally filtered to names starting
// with the given letter (case-insensitive). Each row carries the gem's
// version numbers and version count via a lateral join; the current version
// is the maximum under the version ordering grammar, never creation order,
// so the listing and the detail projection agree on it.
func (r *RubygemRepository) List(ctx context.Context, letter string) ([]*models.RubygemSummary, error) {
	var (
		whereClause string
		args        []interface{}
	)

	if letter != "" {
		whereClause = "WHERE g.name ILIKE $1"
		args = append(args, letterize(letter)+"%")
	}

	query := fmt.Sprintf(`
		SELECT g.id, g.name, g.slug, g.created_at, g.updated_at,
		       COALESCE(agg.numbers, '{}') AS numbers,
		       COALESCE(agg.version_count, 0) AS version_count
		FROM rubygems g
		LEFT JOIN LATERAL (
			SELECT array_agg(v.number) AS numbers, COUNT(v.id) AS version_count
			FROM versions v
			WHERE v.rubygem_id = g.id
		) agg ON true
		%s
		ORDER BY g.name ASC
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list gems: %w", err)
	}
	defer rows.Close()

	var gems []*models.RubygemSummary
	for rows.Next() {
		g := &models.RubygemSummary{}
		var numbers pq.StringArray
		err := rows.Scan(
			&g.ID,
			&g.Name,
			&g.Slug,
			&g.CreatedAt,
			&g.UpdatedAt,
			&numbers,
			&g.VersionCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gem: %w", err)
		}
		if current := maxNumber(numbers); current != "" {
			g.CurrentVersion = &current
		}
		gems = append(gems, g)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gems: %w", err)
	}

	return gems, nil
}

// maxNumber picks the greatest version number under the ordering grammar
func maxNumber(numbers []string) string {
	max := ""
	for _, n := range numbers {
		if max == "" || gemspec.CompareNumbers(n, max) > 0 {
			max = n
		}
	}
	return max
}

// letterize reduces the raw letter filter to a single lowercase alphanumeric
// character so ILIKE metacharacters in the input cannot act as wildcards.
// Anything else falls back to "a", matching the original listing behavior.
func letterize(letter string) string {
	if len(letter) == 1 {
		c := letter[0]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			return string(c)
		case c >= 'A' && c <= 'Z':
			return string(c + ('a' - 'A'))
		}
	}
	return "a"
}
