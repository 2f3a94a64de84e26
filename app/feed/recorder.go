package feed

import (
	"context"
	"fmt"
	"time"

	"feedward/app/database"
)

// Recorder appends an immutable refresh outcome and updates the feed's
// rolling status fields. The audit row keeps the untruncated error; the
// feed's own field is a lossy cache for quick display.
type Recorder struct {
	feedRepo    database.FeedRepository
	refreshRepo database.RefreshRepository
}

func NewRecorder(feedRepo database.FeedRepository, refreshRepo database.RefreshRepository) *Recorder {
	return &Recorder{feedRepo: feedRepo, refreshRepo: refreshRepo}
}

func (r *Recorder) Run(ctx context.Context, fd database.Feed, at time.Time, success bool, entriesCreated int, errMsg string) error {
	refresh := &database.Refresh{
		FeedID:         fd.ID,
		RefreshedAt:    at,
		WasSuccessful:  success,
		EntriesCreated: entriesCreated,
		ErrorMessage:   errMsg,
	}

	// The audit row is written first: it must land even if the rolling
	// status update fails afterwards.
	if err := r.refreshRepo.CreateRefresh(refresh); err != nil {
		return fmt.Errorf("failed to record refresh: %w", err)
	}

	if success {
		if err := r.feedRepo.MarkRefreshSuccess(fd.ID, at); err != nil {
			return fmt.Errorf("failed to update feed status: %w", err)
		}
		return nil
	}

	if err := r.feedRepo.MarkRefreshFailure(fd.ID, at, truncate(errMsg, maxFieldLength)); err != nil {
		return fmt.Errorf("failed to update feed status: %w", err)
	}

	return nil
}
