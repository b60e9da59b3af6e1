// pusher.go implements the push transaction: create-or-attach the gem row,
// enforce ownership against the same transactional snapshot, upsert the
// version, and replace its dependency edges. Unique constraints are the
// enforcement mechanism of record; application-level checks are only an
// optimization on top of them.
package registry

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/gemspec"
	"github.com/gem-registry/gem-registry/internal/storage"
	"github.com/gem-registry/gem-registry/internal/telemetry"
)

// pq error code for unique constraint violations
const uniqueViolation = "23505"

// Pusher commits parsed gem metadata to the registry
type Pusher struct {
	db    *sql.DB
	store storage.Storage
	cache *DependencyCache
}

// NewPusher creates a pusher writing through the given blob store. The cache
// is optional; when present it is invalidated for every gem that changes.
func NewPusher(db *sql.DB, store storage.Storage, cache *DependencyCache) *Pusher {
	return &Pusher{db: db, store: store, cache: cache}
}

// PushResult reports what a successful push persisted
type PushResult struct {
	Rubygem        *models.Rubygem
	Version        *models.Version
	GemCreated     bool // true when this push created the gem itself
	VersionCreated bool // false when an existing (gem, number) pair was updated
}

// Push parses raw gem bytes and commits them for the given actor. Failures
// are reported as gemspec.ErrMalformed wraps, ErrNotOwner, or storage/db
// errors; in every failure case no rows persist.
func (p *Pusher) Push(ctx context.Context, actorID string, gemData []byte) (*PushResult, error) {
	parseStart := time.Now()
	meta, err := gemspec.Parse(gemData)
	telemetry.GemParseDuration.Observe(time.Since(parseStart).Seconds())
	if err != nil {
		return nil, err
	}

	result, err := p.commit(ctx, actorID, meta, gemData, false)
	if err != nil && isUniqueViolation(err, "rubygems_slug_key") {
		// Two distinct names normalized to the same slug. The transaction
		// aborted, so replay it once with the disambiguated slug.
		slog.Info("slug collision on push, retrying with suffix", "gem", meta.Name)
		result, err = p.commit(ctx, actorID, meta, gemData, true)
	}
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Invalidate(result.Version.ID)
	}

	slog.Info("gem pushed",
		"gem", result.Rubygem.Name,
		"version", result.Version.Number,
		"created", result.VersionCreated,
	)

	return result, nil
}

func (p *Pusher) commit(ctx context.Context, actorID string, meta *gemspec.Metadata, gemData []byte, disambiguate bool) (result *PushResult, err error) {
	slug := DeriveSlug(meta.Name)
	if disambiguate {
		slug = DisambiguateSlug(slug, meta.Name)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin push transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	gem, gemCreated, err := upsertRubygem(ctx, tx, meta.Name, slug)
	if err != nil {
		return nil, err
	}

	if gemCreated {
		// First publish of this name: the publisher becomes the sole approved
		// owner and the gem starts with an empty linkset.
		if err = insertOwnership(ctx, tx, gem.ID, actorID); err != nil {
			return nil, err
		}
		if err = insertEmptyLinkset(ctx, tx, gem.ID); err != nil {
			return nil, err
		}
	} else {
		// Ownership is evaluated inside the same transaction as the version
		// write, so a concurrent ownership change cannot slip between the
		// check and the commit.
		var owner bool
		owner, err = isApprovedOwner(ctx, tx, gem.ID, actorID)
		if err != nil {
			return nil, err
		}
		if !owner {
			err = ErrNotOwner
			return nil, err
		}
	}

	version, versionCreated, err := upsertVersion(ctx, tx, gem.ID, meta)
	if err != nil {
		return nil, err
	}

	if err = replaceDependencies(ctx, tx, version.ID, meta.Dependencies); err != nil {
		return nil, err
	}

	blobPath := fmt.Sprintf("gems/%s-%s.gem", meta.Name, meta.Number)
	if _, err = p.store.Upload(ctx, blobPath, bytes.NewReader(gemData), int64(len(gemData))); err != nil {
		err = fmt.Errorf("failed to store gem blob: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		if versionCreated {
			// The blob outlived its rows; remove it so a retry starts clean.
			_ = p.store.Delete(ctx, blobPath)
		}
		// On a republish the path holds the blob of the still-persisted
		// version, so it must survive the failed commit.
		return nil, fmt.Errorf("failed to commit push: %w", err)
	}

	return &PushResult{
		Rubygem:        gem,
		Version:        version,
		GemCreated:     gemCreated,
		VersionCreated: versionCreated,
	}, nil
}

// upsertRubygem creates the gem row or attaches to the existing one. The
// (xmax = 0) trick distinguishes a fresh insert from a conflict update within
// the same statement, so concurrent first-publishes of one name serialize on
// the row and the loser re-evaluates under the existing-gem path.
func upsertRubygem(ctx context.Context, tx *sql.Tx, name, slug string) (*models.Rubygem, bool, error) {
	query := `
		INSERT INTO rubygems (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE
		SET updated_at = NOW()
		RETURNING id, name, slug, created_at, updated_at, (xmax = 0) AS inserted
	`

	gem := &models.Rubygem{}
	var inserted bool
	err := tx.QueryRowContext(ctx, query, name, slug).Scan(
		&gem.ID,
		&gem.Name,
		&gem.Slug,
		&gem.CreatedAt,
		&gem.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert gem: %w", err)
	}

	return gem, inserted, nil
}

func insertOwnership(ctx context.Context, tx *sql.Tx, rubygemID, userID string) error {
	query := `
		INSERT INTO ownerships (rubygem_id, user_id, approved)
		VALUES ($1, $2, TRUE)
	`

	if _, err := tx.ExecContext(ctx, query, rubygemID, userID); err != nil {
		return fmt.Errorf("failed to create ownership: %w", err)
	}
	return nil
}

func insertEmptyLinkset(ctx context.Context, tx *sql.Tx, rubygemID string) error {
	query := `INSERT INTO linksets (rubygem_id) VALUES ($1)`

	if _, err := tx.ExecContext(ctx, query, rubygemID); err != nil {
		return fmt.Errorf("failed to create linkset: %w", err)
	}
	return nil
}

func isApprovedOwner(ctx context.Context, tx *sql.Tx, rubygemID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ownerships
			WHERE rubygem_id = $1 AND user_id = $2 AND approved = TRUE
		)
	`

	var owner bool
	if err := tx.QueryRowContext(ctx, query, rubygemID, userID).Scan(&owner); err != nil {
		return false, fmt.Errorf("failed to check ownership: %w", err)
	}
	return owner, nil
}

// upsertVersion appends a new version or, for a republish of an existing
// (gem, number) pair, updates the existing row in place.
func upsertVersion(ctx context.Context, tx *sql.Tx, rubygemID string, meta *gemspec.Metadata) (*models.Version, bool, error) {
	query := `
		INSERT INTO versions (rubygem_id, number, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (rubygem_id, number) DO UPDATE
		SET description = EXCLUDED.description, updated_at = NOW()
		RETURNING id, rubygem_id, number, description, created_at, updated_at, (xmax = 0) AS inserted
	`

	var description *string
	if d := meta.DescriptionOrSummary(); d != "" {
		description = &d
	}

	version := &models.Version{}
	var inserted bool
	err := tx.QueryRowContext(ctx, query, rubygemID, meta.Number, description).Scan(
		&version.ID,
		&version.RubygemID,
		&version.Number,
		&version.Description,
		&version.CreatedAt,
		&version.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert version: %w", err)
	}

	return version, inserted, nil
}

// replaceDependencies swaps a version's dependency edges for the parsed set.
// A republish therefore replaces, never accumulates, dependencies.
func replaceDependencies(ctx context.Context, tx *sql.Tx, versionID string, deps []gemspec.Dependency) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE version_id = $1`, versionID); err != nil {
		return fmt.Errorf("failed to clear dependencies: %w", err)
	}

	query := `
		INSERT INTO dependencies (version_id, gem_name, requirements, kind)
		VALUES ($1, $2, $3, $4)
	`
	for _, dep := range deps {
		if _, err := tx.ExecContext(ctx, query, versionID, dep.Name, dep.Requirements, dep.Kind); err != nil {
			return fmt.Errorf("failed to insert dependency %s: %w", dep.Name, err)
		}
	}

	return nil
}

// isUniqueViolation reports whether err is a pq unique violation on the named
// constraint. An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
