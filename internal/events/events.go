// Package events fans domain events out to connected UI clients over
// websockets.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Event names emitted to the UI.
const (
	AppReady        = "app-ready"
	AppError        = "app-error"
	SettingsUpdated = "settings-updated"
	MessageAdded    = "message-added"
	Error           = "error"
)

// Event is one envelope pushed to subscribers.
type Event struct {
	Name      string `json:"event"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Emitter is the process-wide event hub. Connections register on the
// websocket endpoint; emits are non-blocking with a bounded per-client queue.
type Emitter struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
}

// NewEmitter creates an event emitter.
func NewEmitter() *Emitter {
	return &Emitter{clients: map[*websocket.Conn]chan Event{}}
}

// Emit broadcasts an event to every connected client. Slow clients drop
// events rather than blocking the caller.
func (e *Emitter) Emit(name string, payload any) {
	event := Event{Name: name, Payload: payload, Timestamp: time.Now().UnixMilli()}
	e.mu.Lock()
	defer e.mu.Unlock()
	for conn, queue := range e.clients {
		select {
		case queue <- event:
		default:
			slog.Warn("dropping event for slow client", "event", name, "client", conn.RemoteAddr())
		}
	}
}

// EntityEvent emits "{entity}-{verb}" (e.g. character-created).
func (e *Emitter) EntityEvent(entity, verb string, payload any) {
	e.Emit(entity+"-"+verb, payload)
}

// Serve pumps events to one websocket connection until it closes. Intended to
// run inside a fiber websocket handler.
func (e *Emitter) Serve(conn *websocket.Conn) {
	queue := make(chan Event, 64)
	e.mu.Lock()
	e.clients[conn] = queue
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.clients, conn)
		e.mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// Drain client messages so pings keep the connection alive.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case event := <-queue:
			raw, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		}
	}
}
