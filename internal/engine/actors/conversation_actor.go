package actors

import (
	"context"
	"log/slog"
	"sort"

	"ripple-social/internal/database"
	"ripple-social/internal/directory"
	"ripple-social/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

type ListConversationsMsg struct {
	UserID uuid.UUID `json:"userId"`
}

// ConversationActor derives the conversation list: one entry per distinct
// counterpart with the latest message and the unread count. The list is a
// view over the message store, recomputed in full on every request.
// A per-user summary table would amortize this; the full rescan is kept for
// its simplicity and because the store is the single source of truth.
type ConversationActor struct {
	store    database.MessageStore
	resolver directory.Resolver
	log      *slog.Logger
}

func NewConversationActor(store database.MessageStore, resolver directory.Resolver, log *slog.Logger) actor.Actor {
	if log == nil {
		log = slog.Default()
	}
	return &ConversationActor{store: store, resolver: resolver, log: log}
}

func (a *ConversationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *ListConversationsMsg:
		a.handleList(context, msg)
	}
}

func (a *ConversationActor) handleList(actorCtx actor.Context, msg *ListConversationsMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	// Descending by creation time, so the first message seen per
	// counterpart is that conversation's latest.
	messages, err := a.store.Involving(ctx, msg.UserID)
	if err != nil {
		actorCtx.Respond(asAppError(err, "failed to load messages"))
		return
	}

	owner := a.stubOrProfile(ctx, msg.UserID)

	seen := make(map[uuid.UUID]bool)
	conversations := make([]*models.Conversation, 0)
	for _, message := range messages {
		counterpartID := message.SenderID
		if counterpartID == msg.UserID {
			counterpartID = message.ReceiverID
		}
		if seen[counterpartID] {
			continue
		}
		seen[counterpartID] = true

		counterpart, err := a.resolver.Resolve(ctx, counterpartID)
		if err != nil {
			// Deleted or unknown account: skip the conversation, don't fail
			// the whole list.
			a.log.Debug("skipping conversation with unresolvable counterpart", "user", counterpartID)
			continue
		}

		unread, err := a.store.CountUnread(ctx, msg.UserID, counterpartID)
		if err != nil {
			actorCtx.Respond(asAppError(err, "failed to count unread messages"))
			return
		}

		var last *models.ResolvedMessage
		if message.SenderID == msg.UserID {
			last = message.Resolve(owner, *counterpart)
		} else {
			last = message.Resolve(*counterpart, owner)
		}

		conversations = append(conversations, &models.Conversation{
			User:        *counterpart,
			LastMessage: last,
			UnreadCount: unread,
		})
	}

	// Grouping preserves the source order, but re-sort anyway so the
	// contract holds even if the store's ordering changes.
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.CreatedAt.After(conversations[j].LastMessage.CreatedAt)
	})

	actorCtx.Respond(conversations)
}

func (a *ConversationActor) stubOrProfile(ctx context.Context, id uuid.UUID) models.Profile {
	profile, err := a.resolver.Resolve(ctx, id)
	if err != nil {
		return models.Profile{ID: id}
	}
	return *profile
}
