// Package httpapi serves the daemon's HTTP API: event feeds, watchlist
// management, a WebSocket channel for new-event pushes, and Prometheus
// metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"polywatch/internal/category"
	"polywatch/internal/domain"
	"polywatch/internal/metrics"
	"polywatch/internal/store"
	"polywatch/internal/watchlist"
)

// EventSource is the upstream feed the API reads events from.
type EventSource interface {
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)
	HotEvents(ctx context.Context, limit int) ([]domain.Event, error)
	EventBySlug(ctx context.Context, slug string) (*domain.Event, error)
}

// Server serves the polywatch HTTP API.
type Server struct {
	feed       EventSource
	recon      *watchlist.Reconciler
	posted     store.PostedStore
	classifier *category.Classifier
	hub        *Hub
	log        *slog.Logger
}

// NewServer creates the API server. posted and hub may be nil; the
// corresponding routes then return empty data or 404.
func NewServer(
	feed EventSource,
	recon *watchlist.Reconciler,
	posted store.PostedStore,
	classifier *category.Classifier,
	hub *Hub,
	log *slog.Logger,
) *Server {
	return &Server{
		feed:       feed,
		recon:      recon,
		posted:     posted,
		classifier: classifier,
		hub:        hub,
		log:        log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/events/recent", s.handleRecent)
	mux.HandleFunc("GET /api/events/hot", s.handleHot)
	mux.HandleFunc("GET /api/events/posted", s.handlePosted)
	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("POST /api/watchlist/{slug}", s.handleToggleWatchlist)
	mux.HandleFunc("DELETE /api/watchlist", s.handleClearWatchlist)
	mux.Handle("GET /metrics", metrics.Handler())
	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.hub.HandleWS)
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	events, err := s.feed.RecentEvents(r.Context(), parseLimit(r, 20))
	if err != nil {
		s.log.Warn("fetching recent events", "error", err)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}
	writeJSON(w, toEventJSON(events, s.categorize()))
}

func (s *Server) handleHot(w http.ResponseWriter, r *http.Request) {
	events, err := s.feed.HotEvents(r.Context(), parseLimit(r, 20))
	if err != nil {
		s.log.Warn("fetching hot events", "error", err)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}
	writeJSON(w, toEventJSON(events, s.categorize()))
}

func (s *Server) handlePosted(w http.ResponseWriter, r *http.Request) {
	if s.posted == nil {
		writeJSON(w, []EventJSON{})
		return
	}
	events, err := s.posted.RecentPosted(r.Context(), parseLimit(r, 50))
	if err != nil {
		s.log.Warn("reading posted archive", "error", err)
		writeError(w, http.StatusInternalServerError, "archive read failed")
		return
	}
	writeJSON(w, toEventJSON(events, s.categorize()))
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	slugs, snaps, err := s.recon.Watchlist(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading watchlist failed")
		return
	}

	entries := make([]WatchlistEntryJSON, 0, len(slugs))
	for _, slug := range slugs {
		entry := WatchlistEntryJSON{Slug: slug}
		if e, ok := snaps[slug]; ok {
			ej := eventJSON(&e, s.categorize())
			entry.Event = &ej
		}
		entries = append(entries, entry)
	}
	writeJSON(w, entries)
}

func (s *Server) handleToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "missing slug")
		return
	}

	// Resolve a snapshot for new entries; a failed lookup still toggles.
	var snapshot *domain.Event
	if e, err := s.feed.EventBySlug(r.Context(), slug); err != nil {
		s.log.Warn("resolving event snapshot", "slug", slug, "error", err)
	} else {
		snapshot = e
	}

	watched, err := s.recon.Toggle(r.Context(), slug, snapshot)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "toggling watchlist failed")
		return
	}
	writeJSON(w, map[string]any{"slug": slug, "watched": watched})
}

func (s *Server) handleClearWatchlist(w http.ResponseWriter, r *http.Request) {
	if err := s.recon.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "clearing watchlist failed")
		return
	}
	writeJSON(w, map[string]any{"cleared": true})
}

func (s *Server) categorize() func(*domain.Event) string {
	if s.classifier == nil {
		return nil
	}
	return s.classifier.Categorize
}

func parseLimit(r *http.Request, def int) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 100 {
		return def
	}
	return n
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
