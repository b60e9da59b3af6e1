// subscription_repository.go implements SubscriptionRepository using sqlx.
// Subscriptions only drive the per-viewer "subscribed" flag on the detail
// projection; there is no cascading behavior behind them.
package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SubscriptionRepository handles database operations for gem subscriptions
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// IsSubscribed reports whether the user is subscribed to the gem
func (r *SubscriptionRepository) IsSubscribed(ctx context.Context, rubygemID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE rubygem_id = $1 AND user_id = $2
		)
	`

	var subscribed bool
	if err := r.db.GetContext(ctx, &subscribed, query, rubygemID, userID); err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}

	return subscribed, nil
}

// Subscribe creates a subscription. Subscribing twice is a no-op thanks to the
// unique (rubygem_id, user_id) constraint.
func (r *SubscriptionRepository) Subscribe(ctx context.Context, rubygemID, userID string) error {
	query := `
		INSERT INTO subscriptions (rubygem_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (rubygem_id, user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, rubygemID, userID); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// Unsubscribe removes a subscription if one exists
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, rubygemID, userID string) error {
	query := `DELETE FROM subscriptions WHERE rubygem_id = $1 AND user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, rubygemID, userID); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return nil
}
