package models

// Conversation is a derived view pairing the requesting user with one
// counterpart: the counterpart's profile, the latest message exchanged and
// how many of the counterpart's messages are still unread. It is recomputed
// on demand and never persisted.
type Conversation struct {
	User        Profile          `json:"user"`
	LastMessage *ResolvedMessage `json:"lastMessage"`
	UnreadCount int64            `json:"unreadCount"`
}
