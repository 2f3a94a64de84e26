package api

import (
	"feedward/app/database"
	"feedward/app/feed"
	"feedward/app/tasks"
)

type Handler struct {
	feedRepo    database.FeedRepository
	entryRepo   database.EntryRepository
	subRepo     database.SubscriptionRepository
	refreshRepo database.RefreshRepository
	subscriber  *feed.Subscriber
	applier     *feed.Applier
	refresher   *feed.Refresher
	scheduler   tasks.TaskSchedulerInterface
}

// SubscribeRequest is the POST /api/subscriptions payload.
type SubscribeRequest struct {
	UserID     string           `json:"user_id" binding:"required"`
	FeedURL    string           `json:"feed_url" binding:"required"`
	Name       string           `json:"name"`
	CategoryID *string          `json:"category_id"`
	Rules      feed.FilterRules `json:"rules"`
}
