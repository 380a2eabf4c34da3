// Package monitor runs the background polling loop and the deduplication
// engine that decides which fetched events are new since the last cycle.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"polywatch/internal/category"
	"polywatch/internal/domain"
	"polywatch/internal/metrics"
	"polywatch/internal/notify"
	"polywatch/internal/store"
)

// Feed is the event source the monitor polls.
type Feed interface {
	// RecentEvents returns up to limit events sorted by creation date,
	// most recent first.
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)
}

// SnapshotRefresher receives every successfully fetched batch so watched
// events can be re-resolved against fresh data.
type SnapshotRefresher interface {
	RefreshSnapshots(ctx context.Context, batch []domain.Event) error
}

// Config wires a Monitor. Feed, Markers and Log are required; everything
// else is optional and disabled when nil or zero.
type Config struct {
	Feed     Feed
	Markers  store.MarkerStore
	Notifier notify.Notifier

	// Refresher, Posted and Broadcast are side channels fed from the
	// polling cycle; any of them may be nil.
	Refresher SnapshotRefresher
	Posted    store.PostedStore
	Broadcast func(events []domain.Event)

	Classifier *category.Classifier

	Interval   time.Duration
	FetchLimit int

	// MaxEventAge and HighVolumeThreshold gate which novel events are
	// worth a notification. An event older than MaxEventAge, or with
	// volume above HighVolumeThreshold, is treated as a pre-existing
	// market entering the feed window rather than a genuinely new one
	// and is suppressed. Zero disables the corresponding gate.
	MaxEventAge         time.Duration
	HighVolumeThreshold float64

	ClickURL string
	Log      *slog.Logger
}

// Monitor polls the feed on a fixed interval and reports newly created
// events exactly once across restarts.
type Monitor struct {
	cfg Config
}

// New creates a Monitor from cfg, applying defaults for unset fields.
func New(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 10
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Monitor{cfg: cfg}
}

// Run executes one cycle immediately, then one per interval until ctx is
// cancelled. Cycle errors are logged and the loop continues.
func (m *Monitor) Run(ctx context.Context) {
	m.cfg.Log.Info("monitor started",
		"interval", m.cfg.Interval,
		"fetch_limit", m.cfg.FetchLimit,
	)

	m.runCycle(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.cfg.Log.Info("monitor stopped")
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

func (m *Monitor) runCycle(ctx context.Context) {
	start := time.Now()
	novel, err := m.CheckForNewEvents(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		m.cfg.Log.Error("polling cycle failed", "error", err)
		return
	}
	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	m.cfg.Log.Debug("polling cycle done",
		"novel", novel,
		"elapsed", time.Since(start),
	)
}

// CheckForNewEvents performs one deduplication cycle and returns how many
// events were detected as new.
//
// The last-seen marker is the ID of the newest event of the previous
// cycle. The fetched batch is scanned front to back until the marker is
// found; everything before it is new. A marker absent from the batch
// means more events arrived than the batch covers, so the whole batch
// counts as new. On the very first cycle the marker is seeded without
// reporting anything.
//
// The marker is persisted before any notification is attempted, so a
// crash between the two can only lose a notification, never duplicate
// one.
func (m *Monitor) CheckForNewEvents(ctx context.Context) (int, error) {
	batch, err := m.cfg.Feed.RecentEvents(ctx, m.cfg.FetchLimit)
	if err != nil {
		return 0, fmt.Errorf("fetching recent events: %w", err)
	}

	if m.cfg.Refresher != nil {
		if err := m.cfg.Refresher.RefreshSnapshots(ctx, batch); err != nil {
			m.cfg.Log.Warn("refreshing watchlist snapshots", "error", err)
		}
	}

	if len(batch) == 0 {
		return 0, nil
	}

	marker, err := m.cfg.Markers.LastEventID(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading last event marker: %w", err)
	}

	if marker == "" {
		// First run: establish the baseline silently.
		if err := m.cfg.Markers.SetLastEventID(ctx, batch[0].ID); err != nil {
			return 0, fmt.Errorf("seeding last event marker: %w", err)
		}
		m.cfg.Log.Info("baseline established", "last_event_id", batch[0].ID)
		return 0, nil
	}

	novel := batch
	for i := range batch {
		if batch[i].ID == marker {
			novel = batch[:i]
			break
		}
	}
	if len(novel) == 0 {
		return 0, nil
	}

	if err := m.cfg.Markers.SetLastEventID(ctx, novel[0].ID); err != nil {
		return 0, fmt.Errorf("advancing last event marker: %w", err)
	}
	metrics.NovelEventsTotal.Add(float64(len(novel)))

	notable := m.filterNotable(novel)
	m.cfg.Log.Info("new events detected",
		"novel", len(novel),
		"notable", len(notable),
		"last_event_id", novel[0].ID,
	)

	if len(notable) > 0 {
		m.report(ctx, notable)
	}
	return len(novel), nil
}

// filterNotable drops novel events that are almost certainly old markets
// surfacing in the feed window for the first time: anything older than
// the age cutoff, or already carrying heavy volume (a truly new market
// has not had time to trade that much). An unparseable creation
// timestamp passes the age gate.
func (m *Monitor) filterNotable(novel []domain.Event) []domain.Event {
	if m.cfg.MaxEventAge <= 0 && m.cfg.HighVolumeThreshold <= 0 {
		return novel
	}

	now := time.Now()
	notable := make([]domain.Event, 0, len(novel))
	for i := range novel {
		e := &novel[i]
		if m.cfg.MaxEventAge > 0 {
			if created, ok := e.CreatedTime(); ok && now.Sub(created) > m.cfg.MaxEventAge {
				continue
			}
		}
		if m.cfg.HighVolumeThreshold > 0 && float64(e.Volume) > m.cfg.HighVolumeThreshold {
			continue
		}
		notable = append(notable, *e)
	}
	return notable
}

// report dispatches the aggregate notification and feeds the side
// channels. Every step is best-effort; the marker has already advanced.
func (m *Monitor) report(ctx context.Context, notable []domain.Event) {
	if m.cfg.Classifier != nil {
		for i := range notable {
			m.cfg.Log.Debug("notable event",
				"slug", notable[i].Slug,
				"title", notable[i].Title,
				"category", m.cfg.Classifier.Categorize(&notable[i]),
			)
		}
	}

	if m.cfg.Notifier != nil {
		n := notify.ForNewEvents(len(notable), m.cfg.ClickURL)
		if err := m.cfg.Notifier.Notify(ctx, n); err != nil {
			metrics.NotificationsTotal.WithLabelValues("error").Inc()
			m.cfg.Log.Warn("dispatching notification", "error", err)
		} else {
			metrics.NotificationsTotal.WithLabelValues("ok").Inc()
		}
	}

	if m.cfg.Posted != nil {
		if err := m.cfg.Posted.AppendPosted(ctx, notable); err != nil {
			m.cfg.Log.Warn("archiving posted events", "error", err)
		}
	}

	if m.cfg.Broadcast != nil {
		m.cfg.Broadcast(notable)
	}
}
