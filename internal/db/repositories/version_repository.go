// version_repository.go implements VersionRepository, providing read access to
// published versions and their dependency edges. Version ordering uses the
// gem version grammar (internal/gemspec), not creation order.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/lib/pq"

	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/gemspec"
)

// VersionRepository handles database operations for gem versions
type VersionRepository struct {
	db *sql.DB
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(db *sql.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// ListByRubygem retrieves all versions of a gem, highest version number first
func (r *VersionRepository) ListByRubygem(ctx context.Context, rubygemID string) ([]*models.Version, error) {
	query := `
		SELECT id, rubygem_id, number, description, created_at, updated_at
		FROM versions
		WHERE rubygem_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, rubygemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.Version
	for rows.Next() {
		v := &models.Version{}
		err := rows.Scan(
			&v.ID,
			&v.RubygemID,
			&v.Number,
			&v.Description,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	// Sort by version number descending so index 0 is the current version
	sort.SliceStable(versions, func(i, j int) bool {
		return gemspec.CompareNumbers(versions[i].Number, versions[j].Number) > 0
	})

	return versions, nil
}

// GetByNumber retrieves one version of a gem by its version number
func (r *VersionRepository) GetByNumber(ctx context.Context, rubygemID, number string) (*models.Version, error) {
	query := `
		SELECT id, rubygem_id, number, description, created_at, updated_at
		FROM versions
		WHERE rubygem_id = $1 AND number = $2
	`

	v := &models.Version{}
	err := r.db.QueryRowContext(ctx, query, rubygemID, number).Scan(
		&v.ID,
		&v.RubygemID,
		&v.Number,
		&v.Description,
		&v.CreatedAt,
		&v.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	return v, nil
}

// LatestAcross returns the most recently created versions across all gems,
// newest first, with the gem name joined in. Used by the feed projection.
func (r *VersionRepository) LatestAcross(ctx context.Context, limit int) ([]*models.Version, error) {
	query := `
		SELECT v.id, v.rubygem_id, v.number, v.description, v.created_at, v.updated_at,
		       g.name AS rubygem_name
		FROM versions v
		JOIN rubygems g ON v.rubygem_id = g.id
		ORDER BY v.created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.Version
	for rows.Next() {
		v := &models.Version{}
		err := rows.Scan(
			&v.ID,
			&v.RubygemID,
			&v.Number,
			&v.Description,
			&v.CreatedAt,
			&v.UpdatedAt,
			&v.RubygemName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan latest version: %w", err)
		}
		versions = append(versions, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest versions: %w", err)
	}

	return versions, nil
}

// HostedNumbers returns the version numbers hosted for each of the named
// gems, keyed by gem name. Names with no hosted versions are absent from the
// result. Used to check dependency requirements against registry contents.
func (r *VersionRepository) HostedNumbers(ctx context.Context, names []string) (map[string][]string, error) {
	if len(names) == 0 {
		return map[string][]string{}, nil
	}

	query := `
		SELECT g.name, v.number
		FROM versions v
		JOIN rubygems g ON v.rubygem_id = g.id
		WHERE g.name = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to list hosted numbers: %w", err)
	}
	defer rows.Close()

	numbers := make(map[string][]string)
	for rows.Next() {
		var name, number string
		if err := rows.Scan(&name, &number); err != nil {
			return nil, fmt.Errorf("failed to scan hosted number: %w", err)
		}
		numbers[name] = append(numbers[name], number)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hosted numbers: %w", err)
	}

	return numbers, nil
}

// Dependencies retrieves the dependency edges of a version, optionally
// restricted to one kind ("runtime" or "development"). An empty kind returns
// all edges.
func (r *VersionRepository) Dependencies(ctx context.Context, versionID, kind string) ([]*models.Dependency, error) {
	query := `
		SELECT id, version_id, gem_name, requirements, kind
		FROM dependencies
		WHERE version_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY gem_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, versionID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	defer rows.Close()

	var deps []*models.Dependency
	for rows.Next() {
		d := &models.Dependency{}
		err := rows.Scan(
			&d.ID,
			&d.VersionID,
			&d.GemName,
			&d.Requirements,
			&d.Kind,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps = append(deps, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}

	return deps, nil
}
