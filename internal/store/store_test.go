package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"polywatch/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestMarkerRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Absent marker reads as "".
	id, err := s.LastEventID(ctx)
	if err != nil {
		t.Fatalf("LastEventID: %v", err)
	}
	if id != "" {
		t.Errorf("fresh store marker = %q, want empty", id)
	}

	if err := s.SetLastEventID(ctx, "evt-100"); err != nil {
		t.Fatalf("SetLastEventID: %v", err)
	}
	if err := s.SetLastEventID(ctx, "evt-200"); err != nil {
		t.Fatalf("SetLastEventID (overwrite): %v", err)
	}

	id, err = s.LastEventID(ctx)
	if err != nil {
		t.Fatalf("LastEventID: %v", err)
	}
	if id != "evt-200" {
		t.Errorf("marker = %q, want evt-200", id)
	}
}

func TestWatchlistRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	slugs, err := s.Watchlist(ctx)
	if err != nil {
		t.Fatalf("Watchlist: %v", err)
	}
	if len(slugs) != 0 {
		t.Errorf("fresh store watchlist = %v, want empty", slugs)
	}

	want := []string{"b-event", "a-event", "c-event"}
	if err := s.SetWatchlist(ctx, want); err != nil {
		t.Fatalf("SetWatchlist: %v", err)
	}
	slugs, err = s.Watchlist(ctx)
	if err != nil {
		t.Fatalf("Watchlist: %v", err)
	}
	// Insertion order is preserved, not sorted.
	if len(slugs) != 3 || slugs[0] != "b-event" || slugs[1] != "a-event" || slugs[2] != "c-event" {
		t.Errorf("watchlist = %v, want %v", slugs, want)
	}
}

func TestEventSnapshotsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snaps, err := s.EventSnapshots(ctx)
	if err != nil {
		t.Fatalf("EventSnapshots: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("fresh store snapshots = %v, want empty map", snaps)
	}

	snaps["a-event"] = domain.Event{
		ID:     "1",
		Slug:   "a-event",
		Title:  "A?",
		Volume: 1500,
		Markets: []domain.Market{
			{Question: "A?", Outcomes: domain.StringList{"Yes", "No"}},
		},
	}
	if err := s.SetEventSnapshots(ctx, snaps); err != nil {
		t.Fatalf("SetEventSnapshots: %v", err)
	}

	got, err := s.EventSnapshots(ctx)
	if err != nil {
		t.Fatalf("EventSnapshots: %v", err)
	}
	e, ok := got["a-event"]
	if !ok {
		t.Fatal("snapshot for a-event missing after round trip")
	}
	if e.Title != "A?" || float64(e.Volume) != 1500 {
		t.Errorf("snapshot = %+v", e)
	}
	if len(e.Markets) != 1 || len(e.Markets[0].Outcomes) != 2 {
		t.Errorf("snapshot markets = %+v", e.Markets)
	}
}

func TestSubscriberIDRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SubscriberID(ctx)
	if err != nil {
		t.Fatalf("SubscriberID: %v", err)
	}
	if id != "" {
		t.Errorf("fresh store subscriber = %q, want empty", id)
	}

	if err := s.SetSubscriberID(ctx, "123456"); err != nil {
		t.Fatalf("SetSubscriberID: %v", err)
	}
	id, err = s.SubscriberID(ctx)
	if err != nil {
		t.Fatalf("SubscriberID: %v", err)
	}
	if id != "123456" {
		t.Errorf("subscriber = %q, want 123456", id)
	}
}

func TestParquetArchiveAppendAndRead(t *testing.T) {
	a := NewParquetArchive(t.TempDir())
	ctx := context.Background()

	events := []domain.Event{
		{ID: "1", Slug: "first", Title: "First?", Volume: 10},
		{ID: "2", Slug: "second", Title: "Second?"},
	}
	if err := a.AppendPosted(ctx, events); err != nil {
		t.Fatalf("AppendPosted: %v", err)
	}

	// Appending the same slugs again is a no-op.
	if err := a.AppendPosted(ctx, events); err != nil {
		t.Fatalf("AppendPosted (dup): %v", err)
	}

	got, err := a.RecentPosted(ctx, 50)
	if err != nil {
		t.Fatalf("RecentPosted: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentPosted returned %d events, want 2", len(got))
	}
	slugs := map[string]bool{got[0].Slug: true, got[1].Slug: true}
	if !slugs["first"] || !slugs["second"] {
		t.Errorf("RecentPosted slugs = %v", slugs)
	}
	// Snapshot fields survive the archive round trip.
	for _, e := range got {
		if e.Slug == "first" && float64(e.Volume) != 10 {
			t.Errorf("archived volume = %v, want 10", float64(e.Volume))
		}
	}
}

func TestParquetArchiveNewestFirstAcrossDays(t *testing.T) {
	a := NewParquetArchive(t.TempDir())
	ctx := context.Background()

	day1 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	a.now = func() time.Time { return day1 }
	if err := a.AppendPosted(ctx, []domain.Event{{ID: "1", Slug: "old", Title: "Old"}}); err != nil {
		t.Fatalf("AppendPosted day1: %v", err)
	}
	a.now = func() time.Time { return day2 }
	if err := a.AppendPosted(ctx, []domain.Event{{ID: "2", Slug: "new", Title: "New"}}); err != nil {
		t.Fatalf("AppendPosted day2: %v", err)
	}

	got, err := a.RecentPosted(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPosted: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentPosted returned %d events, want 2", len(got))
	}
	if got[0].Slug != "new" || got[1].Slug != "old" {
		t.Errorf("order = [%s %s], want [new old]", got[0].Slug, got[1].Slug)
	}

	// Limit truncates from the newest end.
	got, err = a.RecentPosted(ctx, 1)
	if err != nil {
		t.Fatalf("RecentPosted limit 1: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "new" {
		t.Errorf("limited RecentPosted = %v", got)
	}
}

func TestParquetArchiveEmpty(t *testing.T) {
	a := NewParquetArchive(t.TempDir())
	ctx := context.Background()

	if err := a.AppendPosted(ctx, nil); err != nil {
		t.Fatalf("AppendPosted(nil): %v", err)
	}
	got, err := a.RecentPosted(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPosted on empty archive: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RecentPosted on empty archive = %v", got)
	}
}
