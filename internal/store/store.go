// Package store defines the persistence interfaces of the polywatch
// daemon and their SQLite and Parquet implementations.
//
// Key ownership in the durable key-value store:
//
//	lastEventId:     written only by the dedup engine (internal/monitor)
//	watchlist:       written only by the reconciler (internal/watchlist)
//	watchlistEvents: written only by the reconciler (internal/watchlist)
//	subscriberId:    seeded at startup, read by the reconciler
//
// All invariants are per-key; no cross-key transactions are needed.
package store

import (
	"context"

	"polywatch/internal/domain"
)

// Keys of the durable key-value store.
const (
	KeyLastEventID     = "lastEventId"
	KeyWatchlist       = "watchlist"
	KeyWatchlistEvents = "watchlistEvents"
	KeySubscriberID    = "subscriberId"
)

// MarkerStore persists the last-seen event marker used as the dedup
// boundary. An empty string means no marker exists yet (first run).
type MarkerStore interface {
	// LastEventID returns the marker, or "" when absent.
	LastEventID(ctx context.Context) (string, error)

	// SetLastEventID replaces the marker.
	SetLastEventID(ctx context.Context, id string) error
}

// WatchlistStore persists the starred-event set and the auxiliary mapping
// from slug to the last-known event snapshot. A slug may legally lack a
// snapshot entry (unresolved); consumers must tolerate that.
type WatchlistStore interface {
	// Watchlist returns the watched slugs in insertion order.
	Watchlist(ctx context.Context) ([]string, error)

	// SetWatchlist replaces the watched slug list.
	SetWatchlist(ctx context.Context, slugs []string) error

	// EventSnapshots returns the slug-to-event snapshot mapping.
	EventSnapshots(ctx context.Context) (map[string]domain.Event, error)

	// SetEventSnapshots replaces the snapshot mapping.
	SetEventSnapshots(ctx context.Context, snaps map[string]domain.Event) error
}

// SubscriberStore persists the opaque subscriber identity addressing the
// remote watchlist service. An empty string disables remote sync.
type SubscriberStore interface {
	SubscriberID(ctx context.Context) (string, error)
	SetSubscriberID(ctx context.Context, id string) error
}

// PostedStore archives events that were reported in a notification, so
// recently posted markets can be served back to UI clients.
type PostedStore interface {
	// AppendPosted records events as posted at the current time.
	AppendPosted(ctx context.Context, events []domain.Event) error

	// RecentPosted returns up to limit posted events, newest first.
	RecentPosted(ctx context.Context, limit int) ([]domain.Event, error)
}
