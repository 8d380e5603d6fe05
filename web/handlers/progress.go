package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/scrypster/chronolex/internal/timeline"
)

// ProgressHub fans builder stage transitions out to WebSocket subscribers.
// Messages are serialized once and pushed to each subscriber's buffered
// channel; a subscriber that cannot keep up is dropped.
type ProgressHub struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
	closed      bool
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{subscribers: make(map[chan []byte]struct{})}
}

// subscribe registers a delivery channel. Returns false once the hub is
// stopped.
func (h *ProgressHub) subscribe(ch chan []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subscribers[ch] = struct{}{}
	log.Printf("[ws] client connected (total: %d)", len(h.subscribers))
	return true
}

// unsubscribe removes a delivery channel. Safe to call twice.
func (h *ProgressHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
		log.Printf("[ws] client disconnected (total: %d)", len(h.subscribers))
	}
}

// Broadcast serializes msg and delivers it to every subscriber. Slow
// subscribers with a full buffer are disconnected rather than blocking the
// builder.
func (h *ProgressHub) Broadcast(msg ProgressMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[ws] ERROR: failed to marshal progress message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			delete(h.subscribers, ch)
			close(ch)
		}
	}
}

// Stop disconnects every subscriber and rejects new ones.
func (h *ProgressHub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = make(map[chan []byte]struct{})
}

// StageCallback adapts the hub into a builder progress listener.
func (h *ProgressHub) StageCallback() timeline.StageCallback {
	return func(buildID string, stage timeline.Stage) {
		h.Broadcast(ProgressMessage{
			Type:      "build_progress",
			Stage:     string(stage),
			Detail:    buildID,
			Timestamp: time.Now(),
		})
	}
}

// ServeHTTP upgrades the request and streams progress messages until the
// client disconnects or the hub stops.
func (h *ProgressHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{ //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		OriginPatterns: []string{"localhost:6480", "127.0.0.1:6480"},
	})
	if err != nil {
		log.Printf("[ws] ERROR: upgrade failed: %v", err)
		return
	}

	ch := make(chan []byte, 256)
	if !h.subscribe(ch) {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		return
	}

	// Drain reads so close frames from the client surface as read errors.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(r.Context()); err != nil { //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
				return
			}
		}
	}()

	defer func() {
		h.unsubscribe(ch)
		_ = conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}()

	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, data) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
			cancel()
			if err != nil {
				log.Printf("[ws] ERROR: write failed: %v", err)
				return
			}
		case <-readDone:
			return
		}
	}
}
