package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ripple-social/internal/models"
	"ripple-social/internal/utils"

	"github.com/google/uuid"
)

// Chat drives one open conversation: optimistic sends reconciled against
// the REST response, realtime deliveries deduplicated by server ID, and
// read receipts on open and on incoming messages.
type Chat struct {
	api         *API
	self        uuid.UUID
	counterpart uuid.UUID
	log         *slog.Logger

	mu   sync.Mutex
	view ChatView
}

func NewChat(api *API, self, counterpart uuid.UUID, log *slog.Logger) *Chat {
	if log == nil {
		log = slog.Default()
	}
	return &Chat{
		api:         api,
		self:        self,
		counterpart: counterpart,
		log:         log,
		view:        NewChatView(counterpart),
	}
}

// Open loads the history and marks the counterpart's messages read, the
// same as a user switching to this conversation.
func (c *Chat) Open(ctx context.Context) error {
	history, err := c.api.Messages(ctx, c.counterpart)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.view = Seed(c.view, history)
	c.mu.Unlock()

	return c.api.MarkRead(ctx, c.counterpart)
}

// Send appends the message optimistically, issues the durable send and
// reconciles: the pending entry is replaced by the server's record on
// success and rolled back on failure. Only one send may be in flight.
func (c *Chat) Send(ctx context.Context, content string, attachment *models.Attachment) (*models.ResolvedMessage, error) {
	tempID := "tmp-" + uuid.NewString()
	provisional := models.ResolvedMessage{
		Sender:     models.Profile{ID: c.self},
		Receiver:   models.Profile{ID: c.counterpart},
		Content:    content,
		Attachment: attachment,
		CreatedAt:  time.Now().UTC(),
	}

	c.mu.Lock()
	view, ok := Submit(c.view, tempID, provisional)
	if !ok {
		c.mu.Unlock()
		return nil, utils.NewValidationError("a send is already in flight")
	}
	c.view = view
	c.mu.Unlock()

	confirmed, err := c.api.SendMessage(ctx, c.counterpart, content, attachment)

	c.mu.Lock()
	if err != nil {
		c.view = Fail(c.view, tempID)
		c.mu.Unlock()
		return nil, err
	}
	c.view = Confirm(c.view, tempID, confirmed)
	c.mu.Unlock()

	return confirmed, nil
}

// HandleDelivered applies a realtime delivery. An incoming message for this
// open conversation is immediately marked read, matching the behavior of a
// chat window that is in the foreground.
func (c *Chat) HandleDelivered(ctx context.Context, msg *models.ResolvedMessage) {
	c.mu.Lock()
	view, changed := Deliver(c.view, msg)
	c.view = view
	c.mu.Unlock()

	if changed && msg.Sender.ID == c.counterpart {
		if err := c.api.MarkRead(ctx, c.counterpart); err != nil {
			c.log.Warn("failed to mark conversation read", "error", err)
		}
	}
}

// Entries returns a copy of the current conversation view.
func (c *Chat) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]Entry, len(c.view.Entries))
	copy(entries, c.view.Entries)
	return entries
}

// InFlight reports whether a send is outstanding.
func (c *Chat) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.InFlight
}
