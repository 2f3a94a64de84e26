package database

import (
	"fmt"
)

// RefreshRepositoryImpl handles database operations for the refresh audit log
type RefreshRepositoryImpl struct {
	db *DB
}

var _ RefreshRepository = (*RefreshRepositoryImpl)(nil)

func NewRefreshRepository(db *DB) *RefreshRepositoryImpl {
	return &RefreshRepositoryImpl{db: db}
}

// CreateRefresh appends one audit row. Rows are never updated or deleted;
// the untruncated error message is preserved here.
func (r *RefreshRepositoryImpl) CreateRefresh(refresh *Refresh) error {
	var errMsg interface{}
	if refresh.ErrorMessage != "" {
		errMsg = refresh.ErrorMessage
	}

	err := r.db.QueryRow(`
		INSERT INTO feed_refreshes (feed_id, refreshed_at, was_successful, entries_created, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, refresh.FeedID, refresh.RefreshedAt, refresh.WasSuccessful,
		refresh.EntriesCreated, errMsg).Scan(&refresh.ID)

	if err != nil {
		return fmt.Errorf("failed to create refresh record: %w", err)
	}

	return nil
}

func (r *RefreshRepositoryImpl) GetRefreshesByFeed(feedID string, limit int) ([]Refresh, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_id, refreshed_at, was_successful, entries_created,
		       COALESCE(error_message, '')
		FROM feed_refreshes
		WHERE feed_id = $1
		ORDER BY refreshed_at DESC
		LIMIT $2
	`, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh history: %w", err)
	}
	defer rows.Close()

	var refreshes []Refresh
	for rows.Next() {
		var refresh Refresh
		err := rows.Scan(
			&refresh.ID, &refresh.FeedID, &refresh.RefreshedAt,
			&refresh.WasSuccessful, &refresh.EntriesCreated, &refresh.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh row: %w", err)
		}
		refreshes = append(refreshes, refresh)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating refresh rows: %w", err)
	}

	return refreshes, nil
}
