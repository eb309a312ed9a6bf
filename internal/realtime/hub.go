// Package realtime multiplexes persistent websocket connections into
// per-user rooms and fans server events out to them. Delivery is
// best-effort and at-most-once: the REST history endpoints remain the
// authority, pushes are a convenience signal.
package realtime

import (
	"log/slog"
	"sync"
	"time"

	"ripple-social/internal/utils"

	"github.com/google/uuid"
)

// Broadcaster is the push surface the rest of the server sees: address a
// user's room, or every open connection. The Hub implements it.
type Broadcaster interface {
	Publish(room uuid.UUID, payload []byte)
	BroadcastAll(payload []byte)
}

// PresenceTracker receives connection lifecycle transitions. The presence
// registry implements it.
type PresenceTracker interface {
	Join(userID uuid.UUID, handle any)
	Leave(userID uuid.UUID)
}

// enqueueTimeout bounds how long emitters wait for the hub loop before the
// event is dropped.
const enqueueTimeout = time.Second

type roomEvent struct {
	room    uuid.UUID
	payload []byte
}

type joinRequest struct {
	client *Client
	userID uuid.UUID
}

// Hub owns the connection set and the room subscription table. All
// mutations run on the hub loop; emitters hand events over via channels.
type Hub struct {
	presence PresenceTracker
	metrics  *utils.MetricsCollector
	log      *slog.Logger

	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	publish    chan roomEvent
	broadcast  chan []byte
	quit       chan struct{}

	// Guards the maps for reads outside the loop.
	mu sync.RWMutex

	// Every open connection, joined or not. Presence snapshots go here.
	clients map[*Client]bool

	// Room key (user ID) to the joined connections for that user.
	rooms map[uuid.UUID]map[*Client]bool
}

func NewHub(presence PresenceTracker, metrics *utils.MetricsCollector, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		presence:   presence,
		metrics:    metrics,
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		publish:    make(chan roomEvent, 64),
		broadcast:  make(chan []byte, 16),
		quit:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
	}
}

// Run starts the hub loop. Call it once, in its own goroutine.
func (h *Hub) Run() {
	h.log.Info("realtime hub started")
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case req := <-h.join:
			h.joinRoom(req.client, req.userID)

		case ev := <-h.publish:
			h.deliver(ev.room, ev.payload)

		case payload := <-h.broadcast:
			h.deliverAll(payload)

		case <-h.quit:
			h.log.Info("realtime hub stopped")
			return
		}
	}
}

// Stop terminates the hub loop.
func (h *Hub) Stop() {
	close(h.quit)
}

// Publish queues an event for every joined connection in the room. If the
// hub loop is saturated the event is dropped; the REST pull path recovers.
func (h *Hub) Publish(room uuid.UUID, payload []byte) {
	select {
	case h.publish <- roomEvent{room: room, payload: payload}:
	case <-time.After(enqueueTimeout):
		h.log.Warn("publish timed out, event dropped", "room", room)
		if h.metrics != nil {
			h.metrics.EventsDropped.Inc()
		}
	}
}

// BroadcastAll queues an event for every open connection.
func (h *Hub) BroadcastAll(payload []byte) {
	select {
	case h.broadcast <- payload:
	case <-time.After(enqueueTimeout):
		h.log.Warn("broadcast timed out, event dropped")
		if h.metrics != nil {
			h.metrics.EventsDropped.Inc()
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	client.setState(StateOpen)
	if h.metrics != nil {
		h.metrics.OpenWebsockets.Inc()
	}
	h.log.Debug("connection opened", "total", h.ClientCount())
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)

	userID, joined := client.Joined()
	if joined {
		if room, ok := h.rooms[userID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, userID)
			}
		}
	}
	h.mu.Unlock()

	client.setState(StateClosed)
	client.closeSend()
	if h.metrics != nil {
		h.metrics.OpenWebsockets.Dec()
	}
	if joined && h.presence != nil {
		h.presence.Leave(userID)
	}
	h.log.Debug("connection closed", "user", userID, "joined", joined)
}

func (h *Hub) joinRoom(client *Client, userID uuid.UUID) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		// Already unregistered; the join raced a disconnect.
		h.mu.Unlock()
		return
	}
	if h.rooms[userID] == nil {
		h.rooms[userID] = make(map[*Client]bool)
	}
	h.rooms[userID][client] = true
	h.mu.Unlock()

	client.joinAs(userID)
	if h.presence != nil {
		h.presence.Join(userID, client)
	}
	h.log.Info("connection joined room", "user", userID)
}

func (h *Hub) deliver(room uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		select {
		case client.send <- payload:
		default:
			h.log.Warn("send buffer full, event dropped", "user", room)
			if h.metrics != nil {
				h.metrics.EventsDropped.Inc()
			}
		}
	}
}

func (h *Hub) deliverAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			h.log.Warn("send buffer full, broadcast dropped")
			if h.metrics != nil {
				h.metrics.EventsDropped.Inc()
			}
		}
	}
}

// ClientCount reports the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize reports how many joined connections a room has.
func (h *Hub) RoomSize(room uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
