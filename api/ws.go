package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"buybackd/events"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the dashboard domain is fixed
		return true
	},
}

// ServerMessage is one frame pushed to dashboard clients.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub fans pipeline events out to connected websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	send chan ServerMessage
}

// NewHub creates a hub wired to the event bus: every pipeline event
// becomes a broadcast frame.
func NewHub(bus *events.Bus) *Hub {
	h := &Hub{clients: make(map[*client]struct{})}

	bus.Subscribe(events.EventTypeActivityRecorded, func(ctx context.Context, e events.Event) {
		ev := e.(events.ActivityRecordedEvent)
		h.Broadcast(ServerMessage{Type: "activity", Payload: ev.Activity})
	})
	bus.Subscribe(events.EventTypeCycleStarted, func(ctx context.Context, e events.Event) {
		ev := e.(events.CycleStartedEvent)
		h.Broadcast(ServerMessage{Type: "cycle.started", Payload: map[string]any{
			"cycleId": ev.CycleID,
			"manual":  ev.Manual,
		}})
	})
	bus.Subscribe(events.EventTypeCycleFinished, func(ctx context.Context, e events.Event) {
		ev := e.(events.CycleFinishedEvent)
		h.Broadcast(ServerMessage{Type: "cycle.finished", Payload: map[string]any{
			"cycle":            ev.Cycle,
			"recipientsPaid":   ev.RecipientsPaid,
			"recipientsFailed": ev.RecipientsFailed,
			"totalDistributed": ev.TotalDistributed,
		}})
	})
	bus.Subscribe(events.EventTypeSnapshotReplaced, func(ctx context.Context, e events.Event) {
		ev := e.(events.SnapshotReplacedEvent)
		h.Broadcast(ServerMessage{Type: "holders.updated", Payload: map[string]any{
			"holderCount": ev.HolderCount,
		}})
	})

	return h
}

// Broadcast sends a frame to every connected client. A client whose
// buffer is full is dropped rather than allowed to stall the rest.
func (h *Hub) Broadcast(msg ServerMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// HandleWebSocket upgrades the connection and streams broadcast frames
// until the client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	log.WithField("remoteAddr", r.RemoteAddr).Info("Websocket client connected")

	c := &client{send: make(chan ServerMessage, 64)}
	h.register(c)
	defer h.unregister(c)

	done := make(chan struct{})

	// Writer: broadcast frames plus keep-alive pings.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-c.send:
				if !ok {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Reader: the feed is one-way, reads only detect closure and pongs.
	conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("Websocket read error")
			}
			break
		}
	}
	close(done)

	log.WithField("remoteAddr", r.RemoteAddr).Info("Websocket client disconnected")
}
