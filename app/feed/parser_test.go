package feed

import (
	"testing"
	"time"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <link>https://blog.example.com</link>
    <item>
      <title>First Post</title>
      <link>https://blog.example.com/first</link>
      <author>ann@example.com (Ann Author)</author>
      <description>Short summary</description>
      <pubDate>Wed, 01 May 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No Link Post</title>
      <guid>https://blog.example.com/guid-only</guid>
      <description>Body here</description>
    </item>
  </channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <link href="https://atom.example.com"/>
  <updated>2024-05-01T12:00:00Z</updated>
  <entry>
    <title>Atom Entry</title>
    <link href="https://atom.example.com/entry-1"/>
    <id>urn:uuid:1</id>
    <updated>2024-05-02T08:30:00Z</updated>
    <author><name>Bob Writer</name></author>
    <content type="html">&lt;p&gt;Full content&lt;/p&gt;</content>
    <summary>Summary text</summary>
  </entry>
</feed>`

func TestParser_RSS(t *testing.T) {
	parser := NewParser()

	fetched, err := parser.Run([]byte(rssFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetched.Title != "Example Blog" {
		t.Errorf("unexpected feed title: %q", fetched.Title)
	}
	if fetched.SiteURL != "https://blog.example.com" {
		t.Errorf("unexpected site URL: %q", fetched.SiteURL)
	}
	if len(fetched.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(fetched.Items))
	}

	first := fetched.Items[0]
	if first.Permalink != "https://blog.example.com/first" {
		t.Errorf("unexpected permalink: %q", first.Permalink)
	}
	if first.Title != "First Post" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.Content != "Short summary" {
		t.Errorf("description should back content, got %q", first.Content)
	}
	if first.PublishedAt == nil {
		t.Fatal("expected publish date")
	}
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("unexpected publish date: %v", first.PublishedAt)
	}

	// Link-less item falls back to its GUID.
	second := fetched.Items[1]
	if second.Permalink != "https://blog.example.com/guid-only" {
		t.Errorf("GUID should back the permalink, got %q", second.Permalink)
	}
	if second.PublishedAt != nil {
		t.Errorf("item without dates should have nil publish date, got %v", second.PublishedAt)
	}
}

func TestParser_Atom(t *testing.T) {
	parser := NewParser()

	fetched, err := parser.Run([]byte(atomFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetched.Title != "Example Atom" {
		t.Errorf("unexpected feed title: %q", fetched.Title)
	}
	if len(fetched.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(fetched.Items))
	}

	item := fetched.Items[0]
	if item.Permalink != "https://atom.example.com/entry-1" {
		t.Errorf("unexpected permalink: %q", item.Permalink)
	}
	if item.AuthorName != "Bob Writer" {
		t.Errorf("unexpected author: %q", item.AuthorName)
	}
	if item.Content != "<p>Full content</p>" {
		t.Errorf("content element should win over summary, got %q", item.Content)
	}
	if item.PublishedAt == nil {
		t.Fatal("updated date should back a missing published date")
	}
	want := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	if !item.PublishedAt.Equal(want) {
		t.Errorf("unexpected publish date: %v", item.PublishedAt)
	}
}

func TestParser_InvalidDocument(t *testing.T) {
	parser := NewParser()

	if _, err := parser.Run([]byte("<html><body>not a feed</body></html>")); err == nil {
		t.Error("expected error for a non-feed document")
	}
	if _, err := parser.Run([]byte("")); err == nil {
		t.Error("expected error for empty input")
	}
}
