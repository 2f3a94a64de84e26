package database

import (
	"database/sql"
	"fmt"
)

// EntryRepositoryImpl handles database operations for entries
type EntryRepositoryImpl struct {
	db *DB
}

var _ EntryRepository = (*EntryRepositoryImpl)(nil)

func NewEntryRepository(db *DB) *EntryRepositoryImpl {
	return &EntryRepositoryImpl{db: db}
}

// CreateEntry inserts the entry, relying on the (feed_id, url, published_at)
// unique constraint as the concurrency guard: a duplicate insert attempt from
// a racing refresh of the same feed is silently skipped.
func (r *EntryRepositoryImpl) CreateEntry(entry *Entry) (bool, error) {
	err := r.db.QueryRow(`
		INSERT INTO entries (feed_id, title, url, author, content, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (feed_id, url, published_at) DO NOTHING
		RETURNING id, created_at
	`, entry.FeedID, entry.Title, entry.URL, entry.Author, entry.Content,
		entry.PublishedAt).Scan(&entry.ID, &entry.CreatedAt)

	if err == sql.ErrNoRows {
		// Conflict: an identical (url, published_at) pair already exists.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create entry: %w", err)
	}

	return true, nil
}

func (r *EntryRepositoryImpl) GetEntriesByFeed(feedID string) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_id, COALESCE(title, ''), COALESCE(url, ''),
		       COALESCE(author, ''), COALESCE(content, ''),
		       published_at, created_at
		FROM entries
		WHERE feed_id = $1
		ORDER BY published_at DESC
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		err := rows.Scan(
			&entry.ID, &entry.FeedID, &entry.Title, &entry.URL,
			&entry.Author, &entry.Content, &entry.PublishedAt, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}

	return entries, nil
}

func (r *EntryRepositoryImpl) GetEntryCount(feedID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM entries WHERE feed_id = $1", feedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get entry count: %w", err)
	}
	return count, nil
}
