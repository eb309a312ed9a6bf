package realtime

import (
	"log/slog"
	"sync"
	"time"

	"ripple-social/internal/realtime/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send the small
	// join envelope.
	maxMessageSize = 512

	// Outbound buffer per connection.
	sendBufferSize = 256
)

// State is the lifecycle position of one connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client is the middleman between one websocket connection and the hub. A
// connection starts in connecting, becomes open once registered, joined once
// the client sends its join signal, and closed on any disconnect. Events
// addressed to a user only reach connections joined for that user.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	log  *slog.Logger
	send chan []byte

	// Identity established at upgrade time. The join signal must name the
	// same user; a mismatch closes the connection.
	expected uuid.UUID

	mu     sync.Mutex
	state  State
	userID uuid.UUID

	closeOnce sync.Once
}

// NewClient wraps an upgraded connection. expected is the authenticated user
// from the upgrade request; uuid.Nil disables the join identity check.
func NewClient(hub *Hub, conn *websocket.Conn, expected uuid.UUID, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		hub:      hub,
		conn:     conn,
		log:      log,
		send:     make(chan []byte, sendBufferSize),
		expected: expected,
		state:    StateConnecting,
	}
}

// Start registers the client with the hub and launches the pumps.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// State returns the connection's current lifecycle position.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Joined returns the bound user ID, if the connection has joined.
func (c *Client) Joined() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.state == StateJoined
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Client) joinAs(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.state = StateJoined
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump pumps the connection into the hub: it enforces read deadlines,
// answers pings and handles the join signal. It exits on any read error,
// which unregisters the client and (via the hub) updates presence.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", "error", err)
			}
			return
		}

		envelope, err := event.Decode(data)
		if err != nil {
			c.log.Warn("unparseable client event ignored", "error", err)
			continue
		}

		switch envelope.Type {
		case event.TypeJoin:
			if !c.handleJoin(envelope) {
				return
			}
		default:
			// Messages are sent over REST, not the channel.
			c.log.Debug("unexpected client event ignored", "type", envelope.Type)
		}
	}
}

func (c *Client) handleJoin(envelope *event.Envelope) bool {
	var payload event.JoinPayload
	if err := envelope.DecodePayload(&payload); err != nil {
		c.log.Warn("malformed join payload ignored", "error", err)
		return true
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		c.log.Warn("join with invalid user id ignored", "userId", payload.UserID)
		return true
	}
	if c.expected != uuid.Nil && userID != c.expected {
		c.log.Warn("join identity mismatch, closing connection",
			"claimed", userID, "authenticated", c.expected)
		return false
	}

	c.hub.join <- joinRequest{client: c, userID: userID}
	return true
}

// writePump pumps hub events onto the connection and keeps it alive with
// pings. One writePump per connection; the hub never writes directly.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
