package seed

import (
	"testing"
)

const seedFixture = `
users:
  - username: alice
    subscriptions:
      - url: https://blog.example.com/rss
        name: Example Blog
        rules:
          exclude_title:
            - alpha
            - beta
      - url: https://news.example.com/feed.xml
  - username: bob
    subscriptions: []
`

func TestParse(t *testing.T) {
	parsed, err := Parse([]byte(seedFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(parsed.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(parsed.Users))
	}

	alice := parsed.Users[0]
	if alice.Username != "alice" {
		t.Errorf("unexpected username: %q", alice.Username)
	}
	if len(alice.Subscriptions) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(alice.Subscriptions))
	}

	first := alice.Subscriptions[0]
	if first.URL != "https://blog.example.com/rss" {
		t.Errorf("unexpected url: %q", first.URL)
	}
	if first.Name != "Example Blog" {
		t.Errorf("unexpected name: %q", first.Name)
	}
	if len(first.Rules.ExcludeTitle) != 2 {
		t.Errorf("expected 2 title rules, got %d", len(first.Rules.ExcludeTitle))
	}

	if len(alice.Subscriptions[1].Rules.ExcludeTitle) != 0 {
		t.Error("subscription without rules should parse to empty rules")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "not yaml",
			raw:  "{{{",
		},
		{
			name: "user without username",
			raw:  "users:\n  - subscriptions: []\n",
		},
		{
			name: "subscription without url",
			raw:  "users:\n  - username: alice\n    subscriptions:\n      - name: broken\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.raw)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
