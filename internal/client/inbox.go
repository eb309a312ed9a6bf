package client

import (
	"ripple-social/internal/models"

	"github.com/google/uuid"
)

// ListView is the state of the conversation list panel. Like ChatView it is
// a value driven by pure transitions, fed by the REST pull and the realtime
// events: a delivery refreshes the affected entry in place, a markRead
// zeroes its unread count, and an invalidation flags the list for a fresh
// pull without touching the entries.
type ListView struct {
	Conversations []models.Conversation

	// True when the server signalled the list may be out of date. The
	// owner re-pulls and seeds; the reducer never fetches.
	Stale bool
}

func NewListView() ListView {
	return ListView{Stale: true}
}

// SeedList replaces the entries with a freshly pulled list.
func SeedList(view ListView, conversations []*models.Conversation) ListView {
	entries := make([]models.Conversation, 0, len(conversations))
	for _, conversation := range conversations {
		entries = append(entries, *conversation)
	}
	view.Conversations = entries
	view.Stale = false
	return view
}

// Invalidate marks the list for a re-pull.
func Invalidate(view ListView) ListView {
	view.Stale = true
	return view
}

// ApplyDelivery folds a delivered message into the list: the counterpart's
// entry gets the message as its new last message, moves to the top, and its
// unread count grows when the message is inbound. A counterpart with no
// entry yet gets a fresh one built from the message's profiles.
func ApplyDelivery(view ListView, self uuid.UUID, msg *models.ResolvedMessage) ListView {
	counterpart := msg.Sender
	if counterpart.ID == self {
		counterpart = msg.Receiver
	}
	inbound := msg.Sender.ID == counterpart.ID

	entries := make([]models.Conversation, len(view.Conversations))
	copy(entries, view.Conversations)

	index := indexOfCounterpart(entries, counterpart.ID)
	if index < 0 {
		entry := models.Conversation{User: counterpart, LastMessage: msg}
		if inbound {
			entry.UnreadCount = 1
		}
		view.Conversations = append([]models.Conversation{entry}, entries...)
		return view
	}

	entry := entries[index]
	entry.LastMessage = msg
	if inbound {
		entry.UnreadCount++
	}
	entries = append(entries[:index], entries[index+1:]...)
	view.Conversations = append([]models.Conversation{entry}, entries...)
	return view
}

// ZeroUnread clears the unread count for the counterpart, matching a read
// receipt the user just issued.
func ZeroUnread(view ListView, counterpart uuid.UUID) ListView {
	index := indexOfCounterpart(view.Conversations, counterpart)
	if index < 0 {
		return view
	}
	entries := make([]models.Conversation, len(view.Conversations))
	copy(entries, view.Conversations)
	entries[index].UnreadCount = 0
	view.Conversations = entries
	return view
}

func indexOfCounterpart(entries []models.Conversation, counterpart uuid.UUID) int {
	for i, entry := range entries {
		if entry.User.ID == counterpart {
			return i
		}
	}
	return -1
}
