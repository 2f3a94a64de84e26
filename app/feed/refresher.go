package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedward/app/database"
)

// CrawlError is raised to the scheduler when a feed could not be fetched.
// By the time the caller sees it, the failed refresh has already been
// durably recorded.
type CrawlError struct {
	FeedURL string
	Message string
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("feed crawl failed for %s: %s", e.FeedURL, e.Message)
}

// Refresher sequences one feed refresh: fetch, ingest, record, apply
// filters. Every attempt produces exactly one (or, for failures late in the
// success branch, one more) feed_refreshes row before any error is returned.
type Refresher struct {
	fetcher    FeedFetcher
	ingester   *Ingester
	applier    *Applier
	recorder   *Recorder
	entryLimit int
}

func NewRefresher(fetcher FeedFetcher, ingester *Ingester, applier *Applier,
	recorder *Recorder, entryLimit int) *Refresher {
	return &Refresher{
		fetcher:    fetcher,
		ingester:   ingester,
		applier:    applier,
		recorder:   recorder,
		entryLimit: entryLimit,
	}
}

func (r *Refresher) Run(ctx context.Context, fd database.Feed) error {
	startedAt := time.Now().UTC()

	fetched, err := r.fetcher.Run(ctx, fd.FeedURL)
	if err != nil {
		crawlErr := &CrawlError{FeedURL: fd.FeedURL, Message: err.Error()}
		// Recorded before raising, so a crash in the caller's retry logic
		// cannot lose the audit row.
		if recErr := r.recorder.Run(ctx, fd, startedAt, false, 0, err.Error()); recErr != nil {
			return errors.Join(crawlErr, recErr)
		}
		return crawlErr
	}

	if err := r.completeRefresh(ctx, fd, startedAt, fetched.Items); err != nil {
		if recErr := r.recorder.Run(ctx, fd, startedAt, false, 0, err.Error()); recErr != nil {
			return errors.Join(err, recErr)
		}
		return err
	}

	return nil
}

func (r *Refresher) completeRefresh(ctx context.Context, fd database.Feed, startedAt time.Time, items []FeedItem) error {
	entries, err := r.ingester.Run(ctx, fd, items, r.entryLimit)
	if err != nil {
		return err
	}

	if err := r.recorder.Run(ctx, fd, startedAt, true, len(entries), ""); err != nil {
		return err
	}

	if len(entries) > 0 {
		if err := r.applier.ApplyToNewEntries(ctx, fd.ID, entries); err != nil {
			return err
		}
	}

	slog.Info("Feed refreshed",
		"feed", fd.FeedURL,
		"fetched", len(items),
		"new", len(entries),
		"duration", time.Since(startedAt).String())

	return nil
}
