package client

import (
	"ripple-social/internal/models"

	"github.com/google/uuid"
)

// SendState is the lifecycle of one outgoing message in the view.
type SendState int

const (
	// Appended optimistically, REST confirmation still outstanding.
	StateSending SendState = iota

	// Server-confirmed, either by the REST response or a realtime delivery.
	StateConfirmed
)

// Entry is one message in the active conversation view. While sending,
// LocalID is the client-generated temporary ID and Message holds the
// provisional content; once confirmed, Message is the server's record.
type Entry struct {
	LocalID string
	Status  SendState
	Message models.ResolvedMessage
}

// ChatView is the state of one open conversation. It is a value: every
// transition below returns a new view, leaving its input untouched, so the
// protocol is testable without any network. Two independent event sources
// drive it — the REST response and the realtime push — in either order.
type ChatView struct {
	Counterpart uuid.UUID
	Entries     []Entry

	// True while a send is outstanding. The submit control stays disabled
	// until the REST call resolves, so at most one send is in flight.
	InFlight bool
}

func NewChatView(counterpart uuid.UUID) ChatView {
	return ChatView{Counterpart: counterpart}
}

// Seed replaces the entries with server history, all confirmed.
func Seed(view ChatView, history []*models.ResolvedMessage) ChatView {
	entries := make([]Entry, 0, len(history))
	for _, msg := range history {
		entries = append(entries, Entry{
			LocalID: msg.ID.String(),
			Status:  StateConfirmed,
			Message: *msg,
		})
	}
	view.Entries = entries
	view.InFlight = false
	return view
}

// Submit appends a provisional entry under tempID and marks the view
// in flight. It refuses while another send is outstanding.
func Submit(view ChatView, tempID string, provisional models.ResolvedMessage) (ChatView, bool) {
	if view.InFlight {
		return view, false
	}
	entries := make([]Entry, len(view.Entries), len(view.Entries)+1)
	copy(entries, view.Entries)
	view.Entries = append(entries, Entry{
		LocalID: tempID,
		Status:  StateSending,
		Message: provisional,
	})
	view.InFlight = true
	return view, true
}

// Confirm resolves the pending entry with the server's message. If a racing
// delivery already placed the same server ID in the view, the pending entry
// is dropped instead of replaced, so the message appears exactly once.
func Confirm(view ChatView, tempID string, confirmed *models.ResolvedMessage) ChatView {
	view.InFlight = false

	index := indexOfLocal(view.Entries, tempID)
	if index < 0 {
		// Pending entry already reconciled; make sure the server copy is
		// present and move on.
		if !containsID(view.Entries, confirmed.ID) {
			view.Entries = appendEntry(view.Entries, confirmedEntry(confirmed))
		}
		return view
	}

	entries := make([]Entry, len(view.Entries))
	copy(entries, view.Entries)
	if containsID(entries, confirmed.ID) {
		entries = append(entries[:index], entries[index+1:]...)
	} else {
		entries[index] = confirmedEntry(confirmed)
	}
	view.Entries = entries
	return view
}

// Fail rolls the optimistic entry back. The caller surfaces the error; the
// pipeline never retries on its own.
func Fail(view ChatView, tempID string) ChatView {
	view.InFlight = false

	index := indexOfLocal(view.Entries, tempID)
	if index < 0 {
		return view
	}
	entries := make([]Entry, len(view.Entries))
	copy(entries, view.Entries)
	view.Entries = append(entries[:index], entries[index+1:]...)
	return view
}

// Deliver applies a realtime message-delivered event. Events for other
// conversations are ignored, and a message whose ID is already present —
// because the REST confirmation won the race — is not appended again.
// It reports whether the view changed.
func Deliver(view ChatView, msg *models.ResolvedMessage) (ChatView, bool) {
	if msg.Sender.ID != view.Counterpart && msg.Receiver.ID != view.Counterpart {
		return view, false
	}
	if containsID(view.Entries, msg.ID) {
		return view, false
	}
	view.Entries = appendEntry(view.Entries, confirmedEntry(msg))
	return view, true
}

func confirmedEntry(msg *models.ResolvedMessage) Entry {
	return Entry{
		LocalID: msg.ID.String(),
		Status:  StateConfirmed,
		Message: *msg,
	}
}

func appendEntry(entries []Entry, entry Entry) []Entry {
	next := make([]Entry, len(entries), len(entries)+1)
	copy(next, entries)
	return append(next, entry)
}

func indexOfLocal(entries []Entry, localID string) int {
	for i, entry := range entries {
		if entry.LocalID == localID {
			return i
		}
	}
	return -1
}

func containsID(entries []Entry, id uuid.UUID) bool {
	for _, entry := range entries {
		if entry.Status == StateConfirmed && entry.Message.ID == id {
			return true
		}
	}
	return false
}
