package database

import (
	"database/sql"
	"fmt"
	"time"
)

// FeedRepositoryImpl handles database operations for feeds
type FeedRepositoryImpl struct {
	db *DB
}

var _ FeedRepository = (*FeedRepositoryImpl)(nil)

func NewFeedRepository(db *DB) *FeedRepositoryImpl {
	return &FeedRepositoryImpl{db: db}
}

const feedColumns = `id, feed_url, COALESCE(site_url, ''), COALESCE(feed_name, ''),
	       last_successful_refresh_at, last_failed_refresh_at,
	       COALESCE(last_error_message, ''), created_at, updated_at`

func (r *FeedRepositoryImpl) scanFeed(row *sql.Row) (*Feed, error) {
	var feed Feed
	err := row.Scan(
		&feed.ID, &feed.FeedURL, &feed.SiteURL, &feed.Name,
		&feed.LastSuccessfulRefreshAt, &feed.LastFailedRefreshAt,
		&feed.LastErrorMessage, &feed.CreatedAt, &feed.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (r *FeedRepositoryImpl) GetFeed(feedID string) (*Feed, error) {
	feed, err := r.scanFeed(r.db.QueryRow(`
		SELECT `+feedColumns+`
		FROM feeds
		WHERE id = $1
	`, feedID))
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}

func (r *FeedRepositoryImpl) GetFeedByURL(feedURL string) (*Feed, error) {
	feed, err := r.scanFeed(r.db.QueryRow(`
		SELECT `+feedColumns+`
		FROM feeds
		WHERE feed_url = $1
	`, feedURL))
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}
	return feed, nil
}

// CreateFeed inserts a feed row for the URL, or returns the existing one.
// Feeds are shared across subscribers, so a concurrent subscribe to the same
// URL must land on the same row.
func (r *FeedRepositoryImpl) CreateFeed(feedURL, siteURL, name string) (*Feed, error) {
	feed, err := r.scanFeed(r.db.QueryRow(`
		INSERT INTO feeds (feed_url, site_url, feed_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (feed_url) DO UPDATE SET updated_at = NOW()
		RETURNING `+feedColumns+`
	`, feedURL, siteURL, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}
	return feed, nil
}

func (r *FeedRepositoryImpl) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

// GetFeedsDueForRefresh returns feeds whose most recent refresh attempt
// (successful or failed) is older than the given cutoff.
func (r *FeedRepositoryImpl) GetFeedsDueForRefresh(olderThan time.Time, limit int) ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT `+feedColumns+`
		FROM feeds
		WHERE GREATEST(
		        COALESCE(last_successful_refresh_at, '1970-01-01'::timestamptz),
		        COALESCE(last_failed_refresh_at, '1970-01-01'::timestamptz)
		      ) < $1
		ORDER BY last_successful_refresh_at NULLS FIRST
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds due for refresh: %w", err)
	}
	defer rows.Close()

	return r.collectFeeds(rows)
}

func (r *FeedRepositoryImpl) GetAllFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT ` + feedColumns + `
		FROM feeds
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	return r.collectFeeds(rows)
}

func (r *FeedRepositoryImpl) collectFeeds(rows *sql.Rows) ([]Feed, error) {
	var feeds []Feed
	for rows.Next() {
		var feed Feed
		err := rows.Scan(
			&feed.ID, &feed.FeedURL, &feed.SiteURL, &feed.Name,
			&feed.LastSuccessfulRefreshAt, &feed.LastFailedRefreshAt,
			&feed.LastErrorMessage, &feed.CreatedAt, &feed.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *FeedRepositoryImpl) MarkRefreshSuccess(feedID string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_successful_refresh_at = $2, last_error_message = '', updated_at = NOW()
		WHERE id = $1
	`, feedID, at)

	if err != nil {
		return fmt.Errorf("failed to mark refresh success: %w", err)
	}

	return nil
}

func (r *FeedRepositoryImpl) MarkRefreshFailure(feedID string, at time.Time, message string) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_failed_refresh_at = $2, last_error_message = $3, updated_at = NOW()
		WHERE id = $1
	`, feedID, at, message)

	if err != nil {
		return fmt.Errorf("failed to mark refresh failure: %w", err)
	}

	return nil
}
