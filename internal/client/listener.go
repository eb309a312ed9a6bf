package client

import (
	"context"
	"log/slog"
	"net/url"

	"ripple-social/internal/models"
	"ripple-social/internal/realtime/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Events are the callbacks a Listener dispatches. Nil callbacks are skipped.
type Events struct {
	OnMessage     func(*models.ResolvedMessage)
	OnInvalidated func()
	OnPresence    func(users []string)
}

// Listener holds one realtime connection: it dials, joins the user's room
// and dispatches server events until the connection drops or Close is
// called. Recovery after a drop is dial-again plus a REST pull; the listener
// does not retry on its own.
type Listener struct {
	conn   *websocket.Conn
	events Events
	log    *slog.Logger
	done   chan struct{}
}

// Dial connects to wsURL (ws:// or wss://), authenticates with the token and
// sends the join signal for userID.
func Dial(ctx context.Context, wsURL, token string, userID uuid.UUID, events Events, log *slog.Logger) (*Listener, error) {
	if log == nil {
		log = slog.Default()
	}

	endpoint, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	query := endpoint.Query()
	query.Set("token", token)
	endpoint.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}

	join, err := event.Join(userID.String())
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		conn.Close()
		return nil, err
	}

	listener := &Listener{
		conn:   conn,
		events: events,
		log:    log,
		done:   make(chan struct{}),
	}
	go listener.readLoop()
	return listener, nil
}

// Close tears the connection down and stops the dispatch loop.
func (l *Listener) Close() error {
	err := l.conn.Close()
	<-l.done
	return err
}

// Done is closed when the read loop exits, whether by Close or by a
// connection drop.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (l *Listener) readLoop() {
	defer close(l.done)
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			l.log.Debug("realtime connection closed", "error", err)
			return
		}

		envelope, err := event.Decode(data)
		if err != nil {
			l.log.Warn("unparseable server event ignored", "error", err)
			continue
		}
		l.dispatch(envelope)
	}
}

func (l *Listener) dispatch(envelope *event.Envelope) {
	switch envelope.Type {
	case event.TypeMessageDelivered:
		if l.events.OnMessage == nil {
			return
		}
		var msg models.ResolvedMessage
		if err := envelope.DecodePayload(&msg); err != nil {
			l.log.Warn("malformed delivery payload ignored", "error", err)
			return
		}
		l.events.OnMessage(&msg)

	case event.TypeConversationInvalidated:
		if l.events.OnInvalidated != nil {
			l.events.OnInvalidated()
		}

	case event.TypePresenceSnapshot:
		if l.events.OnPresence == nil {
			return
		}
		var snapshot event.SnapshotPayload
		if err := envelope.DecodePayload(&snapshot); err != nil {
			l.log.Warn("malformed presence payload ignored", "error", err)
			return
		}
		l.events.OnPresence(snapshot.Users)

	default:
		l.log.Debug("unknown server event ignored", "type", envelope.Type)
	}
}
