package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedward/app/database"
)

func subscriptionFixture(rules string) database.Subscription {
	sub := database.Subscription{
		UserID: "user-1",
		FeedID: "feed-1",
	}
	if rules != "" {
		sub.FilterRules = []byte(rules)
	}
	return sub
}

func entryFixture(id, title string) database.Entry {
	return database.Entry{
		ID:          id,
		FeedID:      "feed-1",
		Title:       title,
		URL:         "https://example.com/" + id,
		Content:     "body",
		PublishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestApplier_Reconcile_FiltersMatchingEntries(t *testing.T) {
	interactions := newFakeInteractionRepo()
	applier := NewApplier(&fakeSubscriptionRepo{}, &fakeEntryRepo{}, interactions)

	sub := subscriptionFixture(`{"exclude_title":["alpha"]}`)
	entries := []database.Entry{
		entryFixture("entry-1", "v2.0.0-alpha.1"),
		entryFixture("entry-2", "v2.0.0 stable"),
	}

	if err := applier.Reconcile(context.Background(), sub, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	filtered, _ := interactions.GetInteraction("user-1", "entry-1")
	if filtered == nil || filtered.FilteredAt == nil {
		t.Error("matching entry should have filtered_at set")
	}

	clean, _ := interactions.GetInteraction("user-1", "entry-2")
	if clean != nil && clean.FilteredAt != nil {
		t.Error("non-matching entry should not be filtered")
	}
}

func TestApplier_Reconcile_RuleChangeClearsStaleFilter(t *testing.T) {
	interactions := newFakeInteractionRepo()
	applier := NewApplier(&fakeSubscriptionRepo{}, &fakeEntryRepo{}, interactions)

	entries := []database.Entry{
		entryFixture("entry-1", "alpha release"),
		entryFixture("entry-2", "beta release"),
	}

	sub := subscriptionFixture(`{"exclude_title":["alpha"]}`)
	if err := applier.Reconcile(context.Background(), sub, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Rules change from alpha to beta: the alpha entry must be unfiltered
	// and the beta entry filtered by the same reconcile pass.
	sub.FilterRules = []byte(`{"exclude_title":["beta"]}`)
	if err := applier.Reconcile(context.Background(), sub, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alpha, _ := interactions.GetInteraction("user-1", "entry-1")
	if alpha == nil || alpha.FilteredAt != nil {
		t.Error("entry no longer matching should have filtered_at cleared")
	}

	beta, _ := interactions.GetInteraction("user-1", "entry-2")
	if beta == nil || beta.FilteredAt == nil {
		t.Error("newly matching entry should have filtered_at set")
	}
}

func TestApplier_Reconcile_FilteringResetsOtherFlags(t *testing.T) {
	interactions := newFakeInteractionRepo()
	applier := NewApplier(&fakeSubscriptionRepo{}, &fakeEntryRepo{}, interactions)

	readAt := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	starredAt := readAt.Add(time.Minute)
	interactions.setInteraction(&database.Interaction{
		UserID:    "user-1",
		EntryID:   "entry-1",
		ReadAt:    &readAt,
		StarredAt: &starredAt,
	})

	sub := subscriptionFixture(`{"exclude_title":["alpha"]}`)
	entries := []database.Entry{entryFixture("entry-1", "alpha release")}

	if err := applier.Reconcile(context.Background(), sub, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	interaction, _ := interactions.GetInteraction("user-1", "entry-1")
	if interaction.FilteredAt == nil {
		t.Fatal("entry should be filtered")
	}
	if interaction.ReadAt != nil || interaction.StarredAt != nil || interaction.ArchivedAt != nil {
		t.Error("filtering should reset read, starred and archived flags")
	}
}

func TestApplier_Reconcile_EmptyEntrySetIsNoOp(t *testing.T) {
	interactions := newFakeInteractionRepo()
	applier := NewApplier(&fakeSubscriptionRepo{}, &fakeEntryRepo{}, interactions)

	sub := subscriptionFixture(`{"exclude_title":["alpha"]}`)

	if err := applier.Reconcile(context.Background(), sub, []database.Entry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interactions.applyCalls != 0 {
		t.Errorf("empty entry set should not touch storage, got %d calls", interactions.applyCalls)
	}
}

func TestApplier_Reconcile_NilEntriesLoadsWholeFeed(t *testing.T) {
	entryRepo := &fakeEntryRepo{}
	interactions := newFakeInteractionRepo()
	applier := NewApplier(&fakeSubscriptionRepo{}, entryRepo, interactions)

	for _, entry := range []database.Entry{
		entryFixture("", "alpha one"),
		entryFixture("", "plain two"),
	} {
		e := entry
		if _, err := entryRepo.CreateEntry(&e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	sub := subscriptionFixture(`{"exclude_title":["alpha"]}`)
	if err := applier.Reconcile(context.Background(), sub, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if interactions.applyCalls != 1 {
		t.Fatalf("expected one filter state write, got %d", interactions.applyCalls)
	}
	filtered, _ := interactions.GetInteraction("user-1", "entry-1")
	if filtered == nil || filtered.FilteredAt == nil {
		t.Error("matching stored entry should be filtered")
	}
}

func TestApplier_Reconcile_BadRulesFail(t *testing.T) {
	applier := NewApplier(&fakeSubscriptionRepo{}, &fakeEntryRepo{}, newFakeInteractionRepo())

	sub := subscriptionFixture(`{not json`)
	err := applier.Reconcile(context.Background(), sub, []database.Entry{entryFixture("entry-1", "x")})
	if err == nil {
		t.Fatal("expected error for unparseable rules")
	}
}

func TestApplier_ApplyToNewEntries_OnlySubscriptionsWithRules(t *testing.T) {
	subRepo := &fakeSubscriptionRepo{
		subs: []database.Subscription{
			{UserID: "user-1", FeedID: "feed-1", FilterRules: []byte(`{"exclude_title":["alpha"]}`)},
			{UserID: "user-2", FeedID: "feed-1"},
			{UserID: "user-3", FeedID: "feed-other", FilterRules: []byte(`{"exclude_title":["alpha"]}`)},
		},
	}
	interactions := newFakeInteractionRepo()
	applier := NewApplier(subRepo, &fakeEntryRepo{}, interactions)

	entries := []database.Entry{entryFixture("entry-1", "alpha release")}
	if err := applier.ApplyToNewEntries(context.Background(), "feed-1", entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if interactions.applyCalls != 1 {
		t.Errorf("only the one ruled subscription on feed-1 should be reconciled, got %d calls", interactions.applyCalls)
	}
	filtered, _ := interactions.GetInteraction("user-1", "entry-1")
	if filtered == nil || filtered.FilteredAt == nil {
		t.Error("user-1's matching entry should be filtered")
	}
	if other, _ := interactions.GetInteraction("user-2", "entry-1"); other != nil {
		t.Error("user without rules should be untouched")
	}
}

func TestApplier_ApplyToNewEntries_EmptySetSkipsLookup(t *testing.T) {
	interactions := newFakeInteractionRepo()
	applier := NewApplier(&fakeSubscriptionRepo{}, &fakeEntryRepo{}, interactions)

	if err := applier.ApplyToNewEntries(context.Background(), "feed-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interactions.applyCalls != 0 {
		t.Error("no entries means no reconcile")
	}
}

func TestApplier_Reconcile_StorageErrorPropagates(t *testing.T) {
	interactions := newFakeInteractionRepo()
	interactions.failApply = errors.New("deadlock detected")
	applier := NewApplier(&fakeSubscriptionRepo{}, &fakeEntryRepo{}, interactions)

	sub := subscriptionFixture(`{"exclude_title":["alpha"]}`)
	err := applier.Reconcile(context.Background(), sub, []database.Entry{entryFixture("entry-1", "alpha")})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
