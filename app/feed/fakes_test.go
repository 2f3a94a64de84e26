package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedward/app/database"
)

// In-memory repository fakes shared by the pipeline tests.

type fakeEntryRepo struct {
	entries    []database.Entry
	nextID     int
	failCreate error
}

func (r *fakeEntryRepo) CreateEntry(entry *database.Entry) (bool, error) {
	if r.failCreate != nil {
		return false, r.failCreate
	}
	for _, existing := range r.entries {
		if existing.FeedID == entry.FeedID && existing.URL == entry.URL &&
			existing.PublishedAt.Equal(entry.PublishedAt) {
			return false, nil
		}
	}
	r.nextID++
	entry.ID = fmt.Sprintf("entry-%d", r.nextID)
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return true, nil
}

func (r *fakeEntryRepo) GetEntriesByFeed(feedID string) ([]database.Entry, error) {
	var entries []database.Entry
	for _, entry := range r.entries {
		if entry.FeedID == feedID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *fakeEntryRepo) GetEntryCount(feedID string) (int, error) {
	entries, _ := r.GetEntriesByFeed(feedID)
	return len(entries), nil
}

type fakeSubscriptionRepo struct {
	subs []database.Subscription
}

func (r *fakeSubscriptionRepo) GetSubscription(userID, feedID string) (*database.Subscription, error) {
	for i := range r.subs {
		if r.subs[i].UserID == userID && r.subs[i].FeedID == feedID {
			return &r.subs[i], nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) GetSubscriptionsWithRules(feedID string) ([]database.Subscription, error) {
	var subs []database.Subscription
	for _, sub := range r.subs {
		if sub.FeedID == feedID && len(sub.FilterRules) > 0 {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (r *fakeSubscriptionRepo) UpsertSubscription(sub *database.Subscription) error {
	for i := range r.subs {
		if r.subs[i].UserID == sub.UserID && r.subs[i].FeedID == sub.FeedID {
			r.subs[i] = *sub
			return nil
		}
	}
	r.subs = append(r.subs, *sub)
	return nil
}

type fakeInteractionRepo struct {
	interactions map[string]*database.Interaction
	applyCalls   int
	failApply    error
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{interactions: make(map[string]*database.Interaction)}
}

func interactionKey(userID, entryID string) string {
	return userID + "|" + entryID
}

func (r *fakeInteractionRepo) GetInteraction(userID, entryID string) (*database.Interaction, error) {
	return r.interactions[interactionKey(userID, entryID)], nil
}

func (r *fakeInteractionRepo) setInteraction(i *database.Interaction) {
	r.interactions[interactionKey(i.UserID, i.EntryID)] = i
}

func (r *fakeInteractionRepo) ApplyFilterState(userID string, filteredIDs, unfilteredIDs []string, at time.Time) error {
	r.applyCalls++
	if r.failApply != nil {
		return r.failApply
	}
	for _, entryID := range filteredIDs {
		key := interactionKey(userID, entryID)
		existing := r.interactions[key]
		if existing == nil {
			existing = &database.Interaction{UserID: userID, EntryID: entryID}
			r.interactions[key] = existing
		}
		filteredAt := at
		existing.FilteredAt = &filteredAt
		existing.ReadAt = nil
		existing.StarredAt = nil
		existing.ArchivedAt = nil
	}
	for _, entryID := range unfilteredIDs {
		if existing := r.interactions[interactionKey(userID, entryID)]; existing != nil {
			existing.FilteredAt = nil
		}
	}
	return nil
}

type fakeFeedRepo struct {
	feeds  map[string]*database.Feed
	nextID int
}

func newFakeFeedRepo() *fakeFeedRepo {
	return &fakeFeedRepo{feeds: make(map[string]*database.Feed)}
}

func (r *fakeFeedRepo) addFeed(fd database.Feed) *database.Feed {
	r.feeds[fd.ID] = &fd
	return r.feeds[fd.ID]
}

func (r *fakeFeedRepo) GetFeed(feedID string) (*database.Feed, error) {
	return r.feeds[feedID], nil
}

func (r *fakeFeedRepo) GetFeedByURL(feedURL string) (*database.Feed, error) {
	for _, fd := range r.feeds {
		if fd.FeedURL == feedURL {
			return fd, nil
		}
	}
	return nil, nil
}

func (r *fakeFeedRepo) GetFeedCount() (int, error) {
	return len(r.feeds), nil
}

func (r *fakeFeedRepo) GetFeedsDueForRefresh(olderThan time.Time, limit int) ([]database.Feed, error) {
	var feeds []database.Feed
	for _, fd := range r.feeds {
		feeds = append(feeds, *fd)
	}
	return feeds, nil
}

func (r *fakeFeedRepo) GetAllFeeds() ([]database.Feed, error) {
	return r.GetFeedsDueForRefresh(time.Time{}, 0)
}

func (r *fakeFeedRepo) CreateFeed(feedURL, siteURL, name string) (*database.Feed, error) {
	if existing, _ := r.GetFeedByURL(feedURL); existing != nil {
		return existing, nil
	}
	r.nextID++
	fd := &database.Feed{
		ID:        fmt.Sprintf("feed-%d", r.nextID),
		FeedURL:   feedURL,
		SiteURL:   siteURL,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	r.feeds[fd.ID] = fd
	return fd, nil
}

func (r *fakeFeedRepo) MarkRefreshSuccess(feedID string, at time.Time) error {
	fd, ok := r.feeds[feedID]
	if !ok {
		return errors.New("feed not found")
	}
	refreshedAt := at
	fd.LastSuccessfulRefreshAt = &refreshedAt
	fd.LastErrorMessage = ""
	return nil
}

func (r *fakeFeedRepo) MarkRefreshFailure(feedID string, at time.Time, message string) error {
	fd, ok := r.feeds[feedID]
	if !ok {
		return errors.New("feed not found")
	}
	refreshedAt := at
	fd.LastFailedRefreshAt = &refreshedAt
	fd.LastErrorMessage = message
	return nil
}

type fakeRefreshRepo struct {
	refreshes []database.Refresh
	nextID    int
}

func (r *fakeRefreshRepo) CreateRefresh(refresh *database.Refresh) error {
	r.nextID++
	refresh.ID = fmt.Sprintf("refresh-%d", r.nextID)
	r.refreshes = append(r.refreshes, *refresh)
	return nil
}

func (r *fakeRefreshRepo) GetRefreshesByFeed(feedID string, limit int) ([]database.Refresh, error) {
	var refreshes []database.Refresh
	for _, refresh := range r.refreshes {
		if refresh.FeedID == feedID {
			refreshes = append(refreshes, refresh)
		}
	}
	return refreshes, nil
}

type fakeFetcher struct {
	fetched *FetchedFeed
	err     error
	calls   int
}

func (f *fakeFetcher) Run(ctx context.Context, feedURL string) (*FetchedFeed, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.fetched, nil
}
