package feed

import (
	"time"
)

// FeedItem is the normalized shape of one fetched item. It is the sole
// contract between the fetcher and the ingester, so the ingester carries no
// dependency on the underlying parser library's object shapes.
type FeedItem struct {
	Permalink   string
	Title       string
	AuthorName  string
	Content     string
	PublishedAt *time.Time
}

// FetchedFeed is a successfully fetched and parsed feed document.
type FetchedFeed struct {
	Title   string
	SiteURL string
	Items   []FeedItem
}
