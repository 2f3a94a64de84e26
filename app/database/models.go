package database

import (
	"time"
)

type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Feed is shared across subscribers: one row per distinct feed URL.
type Feed struct {
	ID                      string // Database UUID
	FeedURL                 string
	SiteURL                 string
	Name                    string
	LastSuccessfulRefreshAt *time.Time
	LastFailedRefreshAt     *time.Time
	LastErrorMessage        string // Truncated rolling cache; full text lives in feed_refreshes
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Entry is created by the ingester and immutable thereafter. Per-user state
// lives in entry_interactions.
type Entry struct {
	ID          string
	FeedID      string
	Title       string
	URL         string
	Author      string
	Content     string
	PublishedAt time.Time
	CreatedAt   time.Time
}

type Subscription struct {
	UserID         string
	FeedID         string
	CategoryID     *string
	CustomFeedName string
	FilterRules    []byte // Raw jsonb; normalized by feed.ParseRules before use
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Interaction holds the per-(user, entry) flags. Each timestamp is an
// independent flag: set = timestamp, unset = NULL.
type Interaction struct {
	UserID     string
	EntryID    string
	ReadAt     *time.Time
	StarredAt  *time.Time
	ArchivedAt *time.Time
	FilteredAt *time.Time
}

// Refresh is one row of the append-only refresh audit log.
type Refresh struct {
	ID             string
	FeedID         string
	RefreshedAt    time.Time
	WasSuccessful  bool
	EntriesCreated int
	ErrorMessage   string
}
