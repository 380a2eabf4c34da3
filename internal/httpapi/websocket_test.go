package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"polywatch/internal/domain"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readLoop pumps incoming frames into a channel; the gorilla client
// answers server pings with pongs during ReadMessage, so an active read
// loop also keeps the connection alive. A closed channel means the
// server dropped the connection.
func readLoop(conn *websocket.Conn) <-chan []byte {
	msgs := make(chan []byte, 4)
	go func() {
		defer close(msgs)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- data
		}
	}()
	return msgs
}

func TestIdleClientSurvivesPastPongDeadline(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.pingInterval = 50 * time.Millisecond
	h.pongWait = 150 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := dialHub(t, h)
	msgs := readLoop(conn)

	// Idle well past the pong deadline; server pings must keep the
	// connection alive until the first broadcast arrives.
	time.Sleep(400 * time.Millisecond)

	h.BroadcastNewEvents([]domain.Event{{ID: "1", Slug: "e1", Title: "E1?"}}, nil)

	select {
	case data, ok := <-msgs:
		if !ok {
			t.Fatal("connection closed while idle; keepalive pings missing")
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding broadcast: %v", err)
		}
		if msg.Type != "new_events" || msg.Count != 1 {
			t.Errorf("broadcast = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestHubRunStopsOnContextCancel(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.pingInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	conn := dialHub(t, h)
	msgs := readLoop(conn)

	// Let the registration land before shutting down.
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}

	// The client's read loop ends once the server closes the connection.
	select {
	case _, ok := <-msgs:
		if ok {
			t.Error("unexpected message after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("connection not closed after shutdown")
	}
}
