package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"feedward/app/database"
)

// maxFieldLength caps the title and author columns.
const maxFieldLength = 255

// Ingester turns fetched items into persisted entries: validates, truncates,
// deduplicates, and inserts only the genuinely new ones.
type Ingester struct {
	entryRepo database.EntryRepository
}

func NewIngester(entryRepo database.EntryRepository) *Ingester {
	return &Ingester{entryRepo: entryRepo}
}

// Run ingests at most limit items for the feed and returns exactly the newly
// created entries, so downstream filter evaluation can be scoped to new data.
//
// Items with a missing permalink, blank title or blank content are logged and
// skipped; a bad item never aborts the batch. Duplicates, whether already
// stored or repeated within this batch, are silent no-ops.
func (i *Ingester) Run(ctx context.Context, fd database.Feed, items []FeedItem, limit int) ([]database.Entry, error) {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	// Single timestamp for the whole batch: items without a publish date all
	// land on it, so a repeated permalink without dates still deduplicates.
	now := time.Now().UTC()

	seen := make(map[string]struct{}, len(items))
	var created []database.Entry

	for _, item := range items {
		if item.Permalink == "" {
			slog.Warn("Item skipped: missing permalink", "feed", fd.FeedURL, "title", item.Title)
			continue
		}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			slog.Warn("Item skipped: blank title", "feed", fd.FeedURL, "permalink", item.Permalink)
			continue
		}

		if strings.TrimSpace(item.Content) == "" {
			slog.Warn("Item skipped: blank content", "feed", fd.FeedURL, "permalink", item.Permalink)
			continue
		}

		title = truncate(strings.ReplaceAll(title, "&amp;", "&"), maxFieldLength)

		publishedAt := now
		if item.PublishedAt != nil {
			publishedAt = item.PublishedAt.UTC()
		}

		key := item.Permalink + "|" + publishedAt.Format(time.RFC3339Nano)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		entry := database.Entry{
			FeedID:      fd.ID,
			Title:       title,
			URL:         item.Permalink,
			Author:      truncate(item.AuthorName, maxFieldLength),
			Content:     item.Content,
			PublishedAt: publishedAt,
		}

		inserted, err := i.entryRepo.CreateEntry(&entry)
		if err != nil {
			return created, fmt.Errorf("failed to ingest item %s: %w", item.Permalink, err)
		}
		if !inserted {
			continue
		}

		created = append(created, entry)
	}

	return created, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
