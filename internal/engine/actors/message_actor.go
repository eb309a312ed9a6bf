package actors

import (
	"context"
	"log/slog"
	"time"

	"ripple-social/internal/database"
	"ripple-social/internal/directory"
	"ripple-social/internal/models"
	"ripple-social/internal/realtime/event"
	"ripple-social/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for MessageActor
type (
	SendMessageMsg struct {
		SenderID   uuid.UUID          `json:"senderId"`
		ReceiverID uuid.UUID          `json:"receiverId"`
		Content    string             `json:"content"`
		Attachment *models.Attachment `json:"attachment,omitempty"`
	}

	GetHistoryMsg struct {
		UserA uuid.UUID `json:"userA"`
		UserB uuid.UUID `json:"userB"`
	}

	MarkReadMsg struct {
		ReaderID      uuid.UUID `json:"readerId"` // The user marking messages as read
		CounterpartID uuid.UUID `json:"counterpartId"`
	}

	GetCountsMsg struct{}
)

// MarkReadResult reports how many messages a MarkReadMsg flipped. Zero on a
// repeated call: the operation is idempotent.
type MarkReadResult struct {
	Updated int64 `json:"updated"`
}

// Publisher is the slice of the realtime hub the actor needs to emit push
// events. A nil Publisher disables push, which is how most tests run.
type Publisher interface {
	Publish(room uuid.UUID, payload []byte)
}

// storeTimeout bounds each durable-store call made from an actor.
const storeTimeout = 5 * time.Second

// MessageActor owns message persistence: validated sends, pair
// history, read receipts. After a successful persist it pushes the realtime
// events; push failures are logged and never fail the send, since the
// message is already durable and the receiver will see it on the next pull.
type MessageActor struct {
	store     database.MessageStore
	resolver  directory.Resolver
	publisher Publisher
	metrics   *utils.MetricsCollector
	log       *slog.Logger
}

func NewMessageActor(store database.MessageStore, resolver directory.Resolver, publisher Publisher, metrics *utils.MetricsCollector, log *slog.Logger) actor.Actor {
	if log == nil {
		log = slog.Default()
	}
	return &MessageActor{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

func (a *MessageActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *SendMessageMsg:
		a.handleSend(context, msg)
	case *GetHistoryMsg:
		a.handleGetHistory(context, msg)
	case *MarkReadMsg:
		a.handleMarkRead(context, msg)
	case *GetCountsMsg:
		a.handleGetCounts(context)
	}
}

func (a *MessageActor) handleSend(actorCtx actor.Context, msg *SendMessageMsg) {
	startTime := time.Now()

	if msg.Content == "" && msg.Attachment == nil {
		actorCtx.Respond(utils.NewValidationError("message content or media is required"))
		return
	}
	if msg.SenderID == msg.ReceiverID {
		actorCtx.Respond(utils.NewValidationError("cannot message yourself"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	receiver, err := a.resolver.Resolve(ctx, msg.ReceiverID)
	if err != nil {
		actorCtx.Respond(asAppError(err, "recipient not found"))
		return
	}
	sender, err := a.resolver.Resolve(ctx, msg.SenderID)
	if err != nil {
		actorCtx.Respond(asAppError(err, "sender not found"))
		return
	}

	message := &models.Message{
		ID:         uuid.New(),
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		Attachment: msg.Attachment,
		Read:       false,
		CreatedAt:  time.Now().UTC(),
	}

	if err := a.store.Insert(ctx, message); err != nil {
		actorCtx.Respond(asAppError(err, "failed to save message"))
		return
	}

	resolved := message.Resolve(*sender, *receiver)
	a.pushSendEvents(resolved)

	if a.metrics != nil {
		a.metrics.SendLatency.Observe(time.Since(startTime).Seconds())
	}
	a.log.Info("message sent", "from", msg.SenderID, "to", msg.ReceiverID, "id", message.ID)
	actorCtx.Respond(resolved)
}

// pushSendEvents emits message-delivered to the receiver's room and
// conversation-invalidated to both rooms. Best effort: the send already
// succeeded durably.
func (a *MessageActor) pushSendEvents(resolved *models.ResolvedMessage) {
	if a.publisher == nil {
		return
	}

	delivered, err := event.MessageDelivered(resolved)
	if err != nil {
		a.log.Error("failed to encode delivery event", "error", err, "id", resolved.ID)
	} else {
		a.publisher.Publish(resolved.Receiver.ID, delivered)
		a.countPush(event.TypeMessageDelivered)
	}

	invalidated := event.ConversationInvalidated()
	a.publisher.Publish(resolved.Sender.ID, invalidated)
	a.publisher.Publish(resolved.Receiver.ID, invalidated)
	a.countPush(event.TypeConversationInvalidated)
	a.countPush(event.TypeConversationInvalidated)
}

func (a *MessageActor) countPush(eventType event.Type) {
	if a.metrics != nil {
		a.metrics.EventsPushed.WithLabelValues(string(eventType)).Inc()
	}
}

func (a *MessageActor) handleGetHistory(actorCtx actor.Context, msg *GetHistoryMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	messages, err := a.store.Between(ctx, msg.UserA, msg.UserB)
	if err != nil {
		actorCtx.Respond(asAppError(err, "failed to load history"))
		return
	}

	profileA := a.resolveOrStub(ctx, msg.UserA)
	profileB := a.resolveOrStub(ctx, msg.UserB)

	history := make([]*models.ResolvedMessage, 0, len(messages))
	for _, message := range messages {
		if message.SenderID == msg.UserA {
			history = append(history, message.Resolve(profileA, profileB))
		} else {
			history = append(history, message.Resolve(profileB, profileA))
		}
	}
	actorCtx.Respond(history)
}

// resolveOrStub falls back to a bare profile so history stays readable when
// a participant's account has since been deleted.
func (a *MessageActor) resolveOrStub(ctx context.Context, id uuid.UUID) models.Profile {
	profile, err := a.resolver.Resolve(ctx, id)
	if err != nil {
		a.log.Debug("participant did not resolve, using stub profile", "user", id)
		return models.Profile{ID: id}
	}
	return *profile
}

func (a *MessageActor) handleMarkRead(actorCtx actor.Context, msg *MarkReadMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	updated, err := a.store.MarkRead(ctx, msg.ReaderID, msg.CounterpartID)
	if err != nil {
		actorCtx.Respond(asAppError(err, "failed to mark messages read"))
		return
	}
	actorCtx.Respond(&MarkReadResult{Updated: updated})
}

func (a *MessageActor) handleGetCounts(actorCtx actor.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	count, err := a.store.Count(ctx)
	if err != nil {
		actorCtx.Respond(asAppError(err, "failed to count messages"))
		return
	}
	actorCtx.Respond(count)
}

// asAppError passes an existing AppError through and wraps anything else as
// a database failure.
func asAppError(err error, message string) *utils.AppError {
	if appErr, ok := err.(*utils.AppError); ok {
		return appErr
	}
	return utils.NewAppError(utils.ErrDatabase, message, err)
}
