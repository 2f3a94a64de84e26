package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"feedward/app/database"
	"feedward/app/feed"
)

// RefilterFeedTask re-evaluates filter state for every ruled subscription of
// one feed against all of its stored entries. Enqueued after a subscription's
// rules change.
type RefilterFeedTask struct {
	Task
	FeedID  string
	subRepo database.SubscriptionRepository
	applier *feed.Applier
}

func NewRefilterFeedTask(fd database.Feed, subRepo database.SubscriptionRepository, applier *feed.Applier) *RefilterFeedTask {
	return &RefilterFeedTask{
		Task:    NewTask(TaskTypeRefilterFeed, fd.FeedURL),
		FeedID:  fd.ID,
		subRepo: subRepo,
		applier: applier,
	}
}

func (t *RefilterFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	subs, err := t.subRepo.GetSubscriptionsWithRules(t.FeedID)
	if err != nil {
		return fmt.Errorf("failed to get subscriptions: %w", err)
	}

	errorCount := 0
	for _, sub := range subs {
		// A nil entry set reconciles against the whole feed.
		if err := t.applier.Reconcile(ctx, sub, nil); err != nil {
			slog.Error("Failed to reconcile subscription", "user", sub.UserID, "feed", t.FeedURL, "error", err)
			errorCount++
		}
	}

	slog.Info("Task completed",
		"type", "RefilterFeed",
		"feed", t.FeedURL,
		"duration", t.GetDuration(),
		"subscriptions", len(subs),
		"errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("refilter finished with %d errors", errorCount)
	}

	return nil
}
