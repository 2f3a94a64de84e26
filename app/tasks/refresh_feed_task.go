package tasks

import (
	"context"
	"log/slog"

	"feedward/app/database"
	"feedward/app/feed"
)

type RefreshFeedTask struct {
	Task
	Feed      database.Feed
	refresher *feed.Refresher
}

func NewRefreshFeedTask(fd database.Feed, refresher *feed.Refresher) *RefreshFeedTask {
	return &RefreshFeedTask{
		Task:      NewTask(TaskTypeRefreshFeed, fd.FeedURL),
		Feed:      fd,
		refresher: refresher,
	}
}

func (t *RefreshFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.refresher.Run(ctx, t.Feed); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "RefreshFeed",
		"feed", t.FeedURL,
		"duration", t.GetDuration())

	return nil
}
