package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"feedward/app/cfg"
	"feedward/app/database"
	"feedward/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs the refresh cadence: every tick it finds feeds whose last
// attempt is older than the refresh interval and enqueues one refresh task
// per feed onto a fixed worker pool. Failed tasks are retried with
// exponential backoff.
type Scheduler struct {
	feedRepo        database.FeedRepository
	subRepo         database.SubscriptionRepository
	refresher       *feed.Refresher
	applier         *feed.Applier
	interval        time.Duration
	refreshInterval time.Duration
	workerCount     int
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	taskQueue       chan TaskInterface
}

func NewScheduler(feedRepo database.FeedRepository, subRepo database.SubscriptionRepository,
	refresher *feed.Refresher, applier *feed.Applier) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		feedRepo:        feedRepo,
		subRepo:         subRepo,
		refresher:       refresher,
		applier:         applier,
		interval:        time.Duration(cfg.SchedulerInterval) * time.Second,
		refreshInterval: time.Duration(cfg.RefreshInterval) * time.Second,
		workerCount:     cfg.WorkerCount,
		ctx:             ctx,
		cancel:          cancel,
		taskQueue:       make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueFeeds()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueFeeds()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueDueFeeds() {
	cutoff := time.Now().UTC().Add(-s.refreshInterval)

	feeds, err := s.feedRepo.GetFeedsDueForRefresh(cutoff, cap(s.taskQueue))
	if err != nil {
		slog.Error("Failed to get feeds due for refresh", "error", err)
		return
	}

	if len(feeds) == 0 {
		slog.Debug("No feeds due for refresh")
		return
	}

	slog.Debug("Scheduling feed refreshes", "count", len(feeds))

	for _, fd := range feeds {
		task := NewRefreshFeedTask(fd, s.refresher)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue RefreshFeedTask", "feed", fd.FeedURL, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedURL(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
