package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS/Atom document into the normalized FetchedFeed shape.
func (p *Parser) Run(data []byte) (*FetchedFeed, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	fetched := &FetchedFeed{
		Title:   parsed.Title,
		SiteURL: parsed.Link,
		Items:   make([]FeedItem, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		fetched.Items = append(fetched.Items, p.normalizeItem(item))
	}

	return fetched, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) FeedItem {
	normalized := FeedItem{
		Permalink:  cmp.Or(item.Link, item.GUID),
		Title:      item.Title,
		AuthorName: p.extractAuthor(item),
		Content:    cmp.Or(item.Content, item.Description),
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		normalized.PublishedAt = item.UpdatedParsed
	}

	return normalized
}

func (p *Parser) extractAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		if name := strings.TrimSpace(item.Authors[0].Name); name != "" {
			return name
		}
		return strings.TrimSpace(item.Authors[0].Email)
	}

	if item.Author != nil {
		if name := strings.TrimSpace(item.Author.Name); name != "" {
			return name
		}
		return strings.TrimSpace(item.Author.Email)
	}

	return ""
}
