// Package metrics provides Prometheus instrumentation for the polywatch
// daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal counts polling cycles, partitioned by result
	// (ok / error).
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polywatch_cycles_total",
		Help: "Total polling cycles executed",
	}, []string{"result"})

	// NovelEventsTotal counts events detected as novel by the dedup
	// engine.
	NovelEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polywatch_novel_events_total",
		Help: "Total events detected as new",
	})

	// NotificationsTotal counts notification deliveries by status
	// (ok / error).
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polywatch_notifications_total",
		Help: "Total aggregate notifications dispatched",
	}, []string{"status"})

	// RemoteSyncTotal counts remote watchlist operations by direction
	// (push / pull) and status (ok / error / skipped).
	RemoteSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polywatch_remote_sync_total",
		Help: "Total remote watchlist sync attempts",
	}, []string{"op", "status"})

	// WatchlistSize tracks the current number of watched slugs.
	WatchlistSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polywatch_watchlist_size",
		Help: "Number of slugs currently on the watchlist",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polywatch_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
