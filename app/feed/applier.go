package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedward/app/database"
)

// Applier reconciles the per-subscriber filtered flag against a set of
// entries.
type Applier struct {
	subRepo         database.SubscriptionRepository
	entryRepo       database.EntryRepository
	interactionRepo database.InteractionRepository
}

func NewApplier(subRepo database.SubscriptionRepository, entryRepo database.EntryRepository,
	interactionRepo database.InteractionRepository) *Applier {
	return &Applier{
		subRepo:         subRepo,
		entryRepo:       entryRepo,
		interactionRepo: interactionRepo,
	}
}

// Reconcile re-evaluates filter state for one subscription. A nil entry set
// means "all entries currently on the feed"; an empty non-nil set is a no-op.
// Entries that should be filtered get filtered_at set, entries that should
// not have a previously set filtered_at cleared, both inside one
// transaction, so a partial reconcile is never observable.
func (a *Applier) Reconcile(ctx context.Context, sub database.Subscription, entries []database.Entry) error {
	rules, err := ParseRules(sub.FilterRules)
	if err != nil {
		return fmt.Errorf("failed to parse filter rules for user %s: %w", sub.UserID, err)
	}

	if entries == nil {
		entries, err = a.entryRepo.GetEntriesByFeed(sub.FeedID)
		if err != nil {
			return fmt.Errorf("failed to load feed entries: %w", err)
		}
	}

	if len(entries) == 0 {
		return nil
	}

	var filtered, unfiltered []string
	for _, entry := range entries {
		if Matches(entry, rules) {
			filtered = append(filtered, entry.ID)
		} else {
			unfiltered = append(unfiltered, entry.ID)
		}
	}

	if err := a.interactionRepo.ApplyFilterState(sub.UserID, filtered, unfiltered, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to apply filter state: %w", err)
	}

	slog.Debug("Filter state reconciled",
		"user", sub.UserID,
		"feed", sub.FeedID,
		"filtered", len(filtered),
		"unfiltered", len(unfiltered))

	return nil
}

// ApplyToNewEntries runs Reconcile for every subscription of the feed that
// carries filter rules, scoped to the given entries.
func (a *Applier) ApplyToNewEntries(ctx context.Context, feedID string, entries []database.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	subs, err := a.subRepo.GetSubscriptionsWithRules(feedID)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	for _, sub := range subs {
		if err := a.Reconcile(ctx, sub, entries); err != nil {
			return err
		}
	}

	return nil
}
