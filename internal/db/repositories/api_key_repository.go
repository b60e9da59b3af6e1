// api_key_repository.go implements APIKeyRepository. Keys are stored as
// bcrypt hashes; lookup narrows candidates by display prefix and the caller
// (internal/middleware) does the bcrypt comparison.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gem-registry/gem-registry/internal/db/models"
)

// APIKeyRepository handles database operations for push credentials
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// CreateAPIKey inserts a new API key record
func (r *APIKeyRepository) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (user_id, key_prefix, key_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		key.UserID,
		key.KeyPrefix,
		key.KeyHash,
	).Scan(&key.ID, &key.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetByPrefix retrieves candidate keys sharing a display prefix. The prefix is
// not unique on its own, so callers verify candidates against the full key.
func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	query := `
		SELECT id, user_id, key_prefix, key_hash, created_at, last_used_at
		FROM api_keys
		WHERE key_prefix = $1
	`

	rows, err := r.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query API keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k := &models.APIKey{}
		err := rows.Scan(
			&k.ID,
			&k.UserID,
			&k.KeyPrefix,
			&k.KeyHash,
			&k.CreatedAt,
			&k.LastUsedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, k)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}

// TouchLastUsed records that a key was just used for a successful push
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, keyID string) error {
	query := `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, keyID); err != nil {
		return fmt.Errorf("failed to touch API key: %w", err)
	}

	return nil
}
