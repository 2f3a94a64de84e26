package feed

import (
	"context"
	"fmt"
	"log/slog"

	"feedward/app/database"
	"feedward/app/urlguard"
)

// Subscriber implements the "add one feed" operation. The feed row is shared:
// it is created on the first subscription to a URL and reused afterwards.
type Subscriber struct {
	validator *urlguard.Validator
	fetcher   FeedFetcher
	feedRepo  database.FeedRepository
	subRepo   database.SubscriptionRepository
}

func NewSubscriber(validator *urlguard.Validator, fetcher FeedFetcher,
	feedRepo database.FeedRepository, subRepo database.SubscriptionRepository) *Subscriber {
	return &Subscriber{
		validator: validator,
		fetcher:   fetcher,
		feedRepo:  feedRepo,
		subRepo:   subRepo,
	}
}

// Subscribe validates the URL and the rule set, creates the shared feed row
// if this is the first subscription to the URL, and upserts the
// subscription. Filter rules are validated here, at write time; the
// evaluator assumes previously accepted patterns.
func (s *Subscriber) Subscribe(ctx context.Context, userID, feedURL, customName string,
	categoryID *string, rules FilterRules) (*database.Subscription, error) {

	result := s.validator.Validate(ctx, feedURL)
	if !result.Valid {
		return nil, fmt.Errorf("unsafe feed URL: %s", result.Reason)
	}

	if err := ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid filter rules: %w", err)
	}

	fd, err := s.feedRepo.GetFeedByURL(feedURL)
	if err != nil {
		return nil, err
	}

	if fd == nil {
		// First subscriber: fetch once for the feed's own title and site
		// link. Fetch failure does not block subscribing; the next
		// scheduled refresh records it properly.
		var title, siteURL string
		if fetched, fetchErr := s.fetcher.Run(ctx, feedURL); fetchErr == nil {
			title = truncate(fetched.Title, maxFieldLength)
			siteURL = fetched.SiteURL
		} else {
			slog.Warn("Feed metadata fetch failed on subscribe", "feed", feedURL, "error", fetchErr)
		}

		fd, err = s.feedRepo.CreateFeed(feedURL, siteURL, title)
		if err != nil {
			return nil, err
		}
	}

	encoded, err := EncodeRules(rules)
	if err != nil {
		return nil, err
	}

	sub := &database.Subscription{
		UserID:         userID,
		FeedID:         fd.ID,
		CategoryID:     categoryID,
		CustomFeedName: customName,
		FilterRules:    encoded,
	}

	if err := s.subRepo.UpsertSubscription(sub); err != nil {
		return nil, err
	}

	slog.Info("Subscription saved", "user", userID, "feed", feedURL, "has_rules", !rules.IsEmpty())

	return sub, nil
}
