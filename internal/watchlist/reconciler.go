// Package watchlist keeps the local starred-event set and the remote
// watchlist service in eventual agreement, favoring availability over
// strict consistency.
//
// Local mutations are synchronous; the full resulting set is then pushed
// remotely on a background goroutine (full-replace, not a diff), with
// pushes applied in mutation order so the newest set always lands last.
// On load,
// Reconcile pulls the remote set and merges it with a set union: a merge
// never drops a slug from either side. The accepted consequence is a
// resurrection window: a slug removed locally can come back from a
// reconcile until the removal has been pushed. Clear is the only
// guaranteed way to shrink the remote set from this client.
package watchlist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"polywatch/internal/domain"
	"polywatch/internal/metrics"
	"polywatch/internal/store"
)

// Reconciler owns the watchlist and watchlistEvents store keys.
type Reconciler struct {
	store   store.WatchlistStore
	subs    store.SubscriberStore
	remote  Remote
	timeout time.Duration
	log     *slog.Logger

	// mu serializes local read-modify-write sequences; individual store
	// key accesses are already atomic.
	mu sync.Mutex

	// wg tracks in-flight remote pushes so shutdown (and tests) can
	// drain them.
	wg sync.WaitGroup

	// pushMu serializes remote pushes; the sequence numbers let a push
	// detect that a newer set already went out, so the last Replace
	// applied is always the newest local state.
	pushMu    sync.Mutex
	pushSeq   uint64
	pushedSeq uint64
}

// New creates a Reconciler. remote may be nil, which disables remote sync
// the same way an unset subscriber ID does.
func New(
	st store.WatchlistStore,
	subs store.SubscriberStore,
	remote Remote,
	timeout time.Duration,
	log *slog.Logger,
) *Reconciler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Reconciler{
		store:   st,
		subs:    subs,
		remote:  remote,
		timeout: timeout,
		log:     log,
	}
}

// Toggle flips membership of slug in the local watchlist, updates the
// snapshot mapping accordingly, persists both, and schedules a remote
// push of the full resulting set. snapshot may be nil (unresolved entries
// are legal). Returns whether the slug is watched after the toggle.
func (r *Reconciler) Toggle(ctx context.Context, slug string, snapshot *domain.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slugs, err := r.store.Watchlist(ctx)
	if err != nil {
		return false, err
	}
	snaps, err := r.store.EventSnapshots(ctx)
	if err != nil {
		return false, err
	}

	watched := false
	idx := -1
	for i, s := range slugs {
		if s == slug {
			idx = i
			break
		}
	}

	if idx >= 0 {
		slugs = append(slugs[:idx], slugs[idx+1:]...)
		delete(snaps, slug)
	} else {
		slugs = append(slugs, slug)
		if snapshot != nil {
			snaps[slug] = *snapshot
		}
		watched = true
	}

	if err := r.store.SetWatchlist(ctx, slugs); err != nil {
		return false, err
	}
	if err := r.store.SetEventSnapshots(ctx, snaps); err != nil {
		return false, err
	}
	metrics.WatchlistSize.Set(float64(len(slugs)))

	r.schedulePush(slugs)
	return watched, nil
}

// Clear empties the local set and snapshot mapping, persists, and
// schedules a remote push of the empty set.
func (r *Reconciler) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.SetWatchlist(ctx, []string{}); err != nil {
		return err
	}
	if err := r.store.SetEventSnapshots(ctx, map[string]domain.Event{}); err != nil {
		return err
	}
	metrics.WatchlistSize.Set(0)

	r.schedulePush([]string{})
	return nil
}

// Reconcile pulls the remote set and merges it into the local set with a
// set union, then backfills missing snapshots from recent (best-effort).
// A missing subscriber identity or a failed pull degrades to a no-op.
// Applying Reconcile twice with an unchanged remote set is idempotent.
func (r *Reconciler) Reconcile(ctx context.Context, recent []domain.Event) error {
	subscriberID, err := r.subscriberID(ctx)
	if err != nil {
		return err
	}
	if subscriberID == "" || r.remote == nil {
		metrics.RemoteSyncTotal.WithLabelValues("pull", "skipped").Inc()
		return nil
	}

	remoteSlugs, err := r.remote.Fetch(ctx, subscriberID)
	if err != nil {
		metrics.RemoteSyncTotal.WithLabelValues("pull", "error").Inc()
		r.log.Warn("remote watchlist pull failed", "error", err)
		return nil
	}
	metrics.RemoteSyncTotal.WithLabelValues("pull", "ok").Inc()
	if len(remoteSlugs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	local, err := r.store.Watchlist(ctx)
	if err != nil {
		return err
	}

	// Union merge: local order first, remote-only slugs appended in
	// remote order. Never drops a slug from either side.
	seen := make(map[string]bool, len(local))
	merged := make([]string, 0, len(local)+len(remoteSlugs))
	for _, s := range local {
		if !seen[s] {
			seen[s] = true
			merged = append(merged, s)
		}
	}
	added := 0
	for _, s := range remoteSlugs {
		if !seen[s] {
			seen[s] = true
			merged = append(merged, s)
			added++
		}
	}

	if added > 0 {
		if err := r.store.SetWatchlist(ctx, merged); err != nil {
			return err
		}
		r.log.Info("watchlist merged from remote", "added", added, "total", len(merged))
	}
	metrics.WatchlistSize.Set(float64(len(merged)))

	return r.backfillLocked(ctx, merged, recent)
}

// RefreshSnapshots overwrites the snapshot of every watched slug found in
// batch with the fresher record. This is the only path that updates a
// mapping entry in place.
func (r *Reconciler) RefreshSnapshots(ctx context.Context, batch []domain.Event) error {
	if len(batch) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slugs, err := r.store.Watchlist(ctx)
	if err != nil {
		return err
	}
	if len(slugs) == 0 {
		return nil
	}
	watched := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		watched[s] = true
	}

	snaps, err := r.store.EventSnapshots(ctx)
	if err != nil {
		return err
	}

	changed := false
	for i := range batch {
		if watched[batch[i].Slug] {
			snaps[batch[i].Slug] = batch[i]
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return r.store.SetEventSnapshots(ctx, snaps)
}

// Watchlist returns the watched slugs in display order and the snapshot
// mapping. Slugs without a snapshot are unresolved, which consumers must
// tolerate.
func (r *Reconciler) Watchlist(ctx context.Context) ([]string, map[string]domain.Event, error) {
	slugs, err := r.store.Watchlist(ctx)
	if err != nil {
		return nil, nil, err
	}
	snaps, err := r.store.EventSnapshots(ctx)
	if err != nil {
		return nil, nil, err
	}
	return slugs, snaps, nil
}

// Wait blocks until all scheduled remote pushes have finished. Called on
// shutdown and from tests.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// backfillLocked fills missing snapshot entries for slugs from the most
// recently fetched batch. Best-effort: slugs not present in the batch stay
// unresolved. Caller holds r.mu.
func (r *Reconciler) backfillLocked(ctx context.Context, slugs []string, recent []domain.Event) error {
	if len(recent) == 0 {
		return nil
	}
	snaps, err := r.store.EventSnapshots(ctx)
	if err != nil {
		return err
	}

	bySlug := make(map[string]*domain.Event, len(recent))
	for i := range recent {
		bySlug[recent[i].Slug] = &recent[i]
	}

	changed := false
	for _, s := range slugs {
		if _, ok := snaps[s]; ok {
			continue
		}
		if e, ok := bySlug[s]; ok {
			snaps[s] = *e
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return r.store.SetEventSnapshots(ctx, snaps)
}

// subscriberID reads the configured subscriber identity; "" means remote
// sync is disabled.
func (r *Reconciler) subscriberID(ctx context.Context) (string, error) {
	if r.subs == nil {
		return "", nil
	}
	return r.subs.SubscriberID(ctx)
}

// schedulePush pushes the full slug set remotely on a background
// goroutine. Pushes apply in schedule order and a set superseded by a
// newer one is dropped unsent. Failures are logged and dropped; the next
// push or reconcile restores consistency.
//
// Callers hold r.mu, so sequence numbers are assigned in mutation order.
func (r *Reconciler) schedulePush(slugs []string) {
	pushed := make([]string, len(slugs))
	copy(pushed, slugs)

	r.pushMu.Lock()
	r.pushSeq++
	seq := r.pushSeq
	r.pushMu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		r.pushMu.Lock()
		defer r.pushMu.Unlock()
		if seq <= r.pushedSeq {
			// A newer set already went out.
			metrics.RemoteSyncTotal.WithLabelValues("push", "skipped").Inc()
			return
		}
		r.pushedSeq = seq

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		subscriberID, err := r.subscriberID(ctx)
		if err != nil {
			r.log.Warn("reading subscriber id", "error", err)
			return
		}
		if subscriberID == "" || r.remote == nil {
			metrics.RemoteSyncTotal.WithLabelValues("push", "skipped").Inc()
			return
		}

		if err := r.remote.Replace(ctx, subscriberID, pushed); err != nil {
			metrics.RemoteSyncTotal.WithLabelValues("push", "error").Inc()
			r.log.Warn("remote watchlist push failed", "error", err, "slugs", len(pushed))
			return
		}
		metrics.RemoteSyncTotal.WithLabelValues("push", "ok").Inc()
		r.log.Debug("remote watchlist pushed", "slugs", len(pushed))
	}()
}
