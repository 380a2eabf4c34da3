package gamma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const eventsJSON = `[
	{"id": "9", "slug": "e9", "title": "E9?", "volume": "100.5", "createdAt": "2026-08-25T10:00:00Z"},
	{"id": "8", "slug": "e8", "title": "E8?", "volume": 50}
]`

func TestRecentEvents(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("path = %q, want /events", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"limit":     q.Get("limit"),
			"active":    q.Get("active"),
			"closed":    q.Get("closed"),
			"order":     q.Get("order"),
			"ascending": q.Get("ascending"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(eventsJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 0)
	events, err := c.RecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}

	want := map[string]string{
		"limit": "10", "active": "true", "closed": "false",
		"order": "createdAt", "ascending": "false",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "9" || events[1].ID != "8" {
		t.Errorf("event order = [%s %s], want [9 8]", events[0].ID, events[1].ID)
	}
	if float64(events[0].Volume) != 100.5 {
		t.Errorf("stringified volume = %v, want 100.5", float64(events[0].Volume))
	}
}

func TestHotEventsSortsByVolume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("order"); got != "volume" {
			t.Errorf("order = %q, want volume", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 0)
	events, err := c.HotEvents(context.Background(), 100)
	if err != nil {
		t.Fatalf("HotEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestEventBySlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") == "e9" {
			w.Write([]byte(eventsJSON))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 0)

	e, err := c.EventBySlug(context.Background(), "e9")
	if err != nil {
		t.Fatalf("EventBySlug: %v", err)
	}
	if e == nil || e.Slug != "e9" {
		t.Errorf("EventBySlug = %+v, want slug e9", e)
	}

	// Unknown slug is nil, not an error.
	e, err = c.EventBySlug(context.Background(), "missing")
	if err != nil {
		t.Fatalf("EventBySlug (missing): %v", err)
	}
	if e != nil {
		t.Errorf("EventBySlug for unknown slug = %+v, want nil", e)
	}
}

func TestNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 0)
	if _, err := c.RecentEvents(context.Background(), 10); err == nil {
		t.Error("RecentEvents should fail on non-2xx status")
	}
}

func TestUnreachableHostIsError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second, 0)
	if _, err := c.RecentEvents(context.Background(), 10); err == nil {
		t.Error("RecentEvents should fail when the host is unreachable")
	}
}
