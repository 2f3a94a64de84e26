package database

import (
	"database/sql"
	"fmt"
)

// SubscriptionRepositoryImpl handles database operations for feed subscriptions
type SubscriptionRepositoryImpl struct {
	db *DB
}

var _ SubscriptionRepository = (*SubscriptionRepositoryImpl)(nil)

func NewSubscriptionRepository(db *DB) *SubscriptionRepositoryImpl {
	return &SubscriptionRepositoryImpl{db: db}
}

func (r *SubscriptionRepositoryImpl) GetSubscription(userID, feedID string) (*Subscription, error) {
	var sub Subscription
	err := r.db.QueryRow(`
		SELECT user_id, feed_id, category_id, COALESCE(custom_feed_name, ''),
		       filter_rules, created_at, updated_at
		FROM feed_subscriptions
		WHERE user_id = $1 AND feed_id = $2
	`, userID, feedID).Scan(
		&sub.UserID, &sub.FeedID, &sub.CategoryID, &sub.CustomFeedName,
		&sub.FilterRules, &sub.CreatedAt, &sub.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) GetSubscriptionsWithRules(feedID string) ([]Subscription, error) {
	rows, err := r.db.Query(`
		SELECT user_id, feed_id, category_id, COALESCE(custom_feed_name, ''),
		       filter_rules, created_at, updated_at
		FROM feed_subscriptions
		WHERE feed_id = $1
		  AND filter_rules IS NOT NULL
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions with rules: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		err := rows.Scan(
			&sub.UserID, &sub.FeedID, &sub.CategoryID, &sub.CustomFeedName,
			&sub.FilterRules, &sub.CreatedAt, &sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	return subs, nil
}

func (r *SubscriptionRepositoryImpl) UpsertSubscription(sub *Subscription) error {
	var rules interface{}
	if len(sub.FilterRules) > 0 {
		rules = sub.FilterRules
	}

	_, err := r.db.Exec(`
		INSERT INTO feed_subscriptions (user_id, feed_id, category_id, custom_feed_name, filter_rules)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, feed_id) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			custom_feed_name = EXCLUDED.custom_feed_name,
			filter_rules = EXCLUDED.filter_rules,
			updated_at = NOW()
	`, sub.UserID, sub.FeedID, sub.CategoryID, sub.CustomFeedName, rules)

	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}
