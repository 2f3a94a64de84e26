package database

import (
	"time"
)

type FeedRepository interface {
	GetFeed(feedID string) (*Feed, error)
	GetFeedByURL(feedURL string) (*Feed, error)
	GetFeedCount() (int, error)
	GetFeedsDueForRefresh(olderThan time.Time, limit int) ([]Feed, error)
	GetAllFeeds() ([]Feed, error)

	CreateFeed(feedURL, siteURL, name string) (*Feed, error)
	MarkRefreshSuccess(feedID string, at time.Time) error
	MarkRefreshFailure(feedID string, at time.Time, message string) error
}

type EntryRepository interface {
	// CreateEntry inserts the entry unless one with the same
	// (feed_id, url, published_at) already exists. Reports whether a row
	// was created; on creation the entry's ID and CreatedAt are populated.
	CreateEntry(entry *Entry) (bool, error)

	GetEntriesByFeed(feedID string) ([]Entry, error)
	GetEntryCount(feedID string) (int, error)
}

type SubscriptionRepository interface {
	GetSubscription(userID, feedID string) (*Subscription, error)
	// GetSubscriptionsWithRules returns the feed's subscriptions that carry
	// non-null filter rules.
	GetSubscriptionsWithRules(feedID string) ([]Subscription, error)
	UpsertSubscription(sub *Subscription) error
}

type InteractionRepository interface {
	GetInteraction(userID, entryID string) (*Interaction, error)

	// ApplyFilterState reconciles the filtered flag for one user in a single
	// transaction: entries in filteredIDs get filtered_at set (and the other
	// flags reset), entries in unfilteredIDs get filtered_at cleared.
	ApplyFilterState(userID string, filteredIDs, unfilteredIDs []string, at time.Time) error
}

type RefreshRepository interface {
	CreateRefresh(refresh *Refresh) error
	GetRefreshesByFeed(feedID string, limit int) ([]Refresh, error)
}

type UserRepository interface {
	GetUserByUsername(username string) (*User, error)
	CreateUser(username string) (*User, error)
}
