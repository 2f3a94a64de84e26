package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"feedward/app/database"
	"feedward/app/feed"
	"feedward/app/tasks"
)

func NewHandler(feedRepo database.FeedRepository, entryRepo database.EntryRepository,
	subRepo database.SubscriptionRepository, refreshRepo database.RefreshRepository,
	subscriber *feed.Subscriber, applier *feed.Applier, refresher *feed.Refresher,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		feedRepo:    feedRepo,
		entryRepo:   entryRepo,
		subRepo:     subRepo,
		refreshRepo: refreshRepo,
		subscriber:  subscriber,
		applier:     applier,
		refresher:   refresher,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		stats["feeds"] = feedCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	allFeeds, err := h.feedRepo.GetAllFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	feeds := make([]map[string]interface{}, 0, len(allFeeds))

	for _, fd := range allFeeds {
		feedInfo := map[string]interface{}{
			"id":                         fd.ID,
			"feed_url":                   fd.FeedURL,
			"site_url":                   fd.SiteURL,
			"name":                       fd.Name,
			"last_successful_refresh_at": fd.LastSuccessfulRefreshAt,
			"last_failed_refresh_at":     fd.LastFailedRefreshAt,
			"last_error_message":         fd.LastErrorMessage,
		}

		if entryCount, err := h.entryRepo.GetEntryCount(fd.ID); err == nil {
			feedInfo["entry_count"] = entryCount
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	fd, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	details := map[string]interface{}{
		"id":                         fd.ID,
		"feed_url":                   fd.FeedURL,
		"site_url":                   fd.SiteURL,
		"name":                       fd.Name,
		"last_successful_refresh_at": fd.LastSuccessfulRefreshAt,
		"last_failed_refresh_at":     fd.LastFailedRefreshAt,
		"last_error_message":         fd.LastErrorMessage,
		"created_at":                 fd.CreatedAt,
		"updated_at":                 fd.UpdatedAt,
	}

	if entryCount, err := h.entryRepo.GetEntryCount(fd.ID); err == nil {
		details["entry_count"] = entryCount
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIGetFeedRefreshes(c *gin.Context) {
	fd, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	refreshes, err := h.refreshRepo.GetRefreshesByFeed(fd.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_refreshes", "feed", fd.FeedURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	history := make([]map[string]interface{}, 0, len(refreshes))
	for _, refresh := range refreshes {
		history = append(history, map[string]interface{}{
			"id":              refresh.ID,
			"refreshed_at":    refresh.RefreshedAt,
			"was_successful":  refresh.WasSuccessful,
			"entries_created": refresh.EntriesCreated,
			"error_message":   refresh.ErrorMessage,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feed_url":  fd.FeedURL,
		"refreshes": history,
		"total":     len(history),
	})
}

func (h *Handler) APIRefreshFeed(c *gin.Context) {
	fd, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	task := tasks.NewRefreshFeedTask(*fd, h.refresher)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refresh task", "feed", fd.FeedURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Refresh task enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) APIRefilterFeed(c *gin.Context) {
	fd, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	task := tasks.NewRefilterFeedTask(*fd, h.subRepo, h.applier)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refilter task", "feed", fd.FeedURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refilter task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Refilter task enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) APISubscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	sub, err := h.subscriber.Subscribe(c.Request.Context(), req.UserID, req.FeedURL,
		req.Name, req.CategoryID, req.Rules)
	if err != nil {
		slog.Error("Subscribe failed", "user", req.UserID, "feed", req.FeedURL, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	// Rules may have changed for an existing subscription; bring stored
	// entries in line.
	if fd, err := h.feedRepo.GetFeed(sub.FeedID); err == nil && fd != nil {
		task := tasks.NewRefilterFeedTask(*fd, h.subRepo, h.applier)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue refilter task after subscribe", "feed", fd.FeedURL, "error", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"subscription": gin.H{
			"user_id": sub.UserID,
			"feed_id": sub.FeedID,
			"name":    sub.CustomFeedName,
		},
	})
}

func (h *Handler) lookupFeed(c *gin.Context) (*database.Feed, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed id parameter"})
		return nil, false
	}

	fd, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}

	if fd == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return nil, false
	}

	return fd, true
}
