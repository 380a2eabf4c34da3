package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"polywatch/internal/domain"
	"polywatch/internal/metrics"
)

// WSMessage is the JSON envelope pushed to WebSocket clients when new
// events are detected.
type WSMessage struct {
	Type   string      `json:"type"`
	Count  int         `json:"count,omitempty"`
	Events []EventJSON `json:"events,omitempty"`
}

// Hub manages WebSocket connections and fans new-event messages out to
// all connected clients. The server pings each client on pingInterval;
// a client that misses a pong for pongWait is dropped.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	log        *slog.Logger

	pingInterval time.Duration
	pongWait     time.Duration
}

// NewHub creates a WebSocket hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:      make(map[*websocket.Conn]bool),
		broadcast:    make(chan []byte, 64),
		register:     make(chan *websocket.Conn),
		unregister:   make(chan *websocket.Conn),
		log:          log,
		pingInterval: 30 * time.Second,
		pongWait:     60 * time.Second,
	}
}

// Run starts the hub's event loop. Must be called in a goroutine;
// returns when ctx is cancelled, closing all connections. All writes to
// client connections happen here, so broadcasts and pings never race.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			metrics.WebSocketClients.Set(0)
			return

		case conn := <-h.register:
			h.clients[conn] = true
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.log.Debug("ws client connected", "total", len(h.clients))

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			metrics.WebSocketClients.Set(float64(len(h.clients)))

		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			metrics.WebSocketClients.Set(float64(len(h.clients)))

		case <-ticker.C:
			// Keepalive: without pings the read deadline would expire
			// on every idle client between polling cycles.
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			metrics.WebSocketClients.Set(float64(len(h.clients)))
		}
	}
}

// BroadcastNewEvents pushes a new-events message to every client. Drops
// the message when the buffer is full rather than blocking the polling
// cycle.
func (h *Hub) BroadcastNewEvents(events []domain.Event, categorize func(*domain.Event) string) {
	msg := WSMessage{
		Type:   "new_events",
		Count:  len(events),
		Events: toEventJSON(events, categorize),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("ws broadcast buffer full, message dropped")
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// HandleWS upgrades the connection and keeps it registered until the
// client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}

	h.register <- conn

	// Read pump: detect disconnects, keep the deadline fresh on pongs.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(h.pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(h.pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
