// Package event defines the wire envelope exchanged over the realtime
// channel. Server pushes carry a resolved message, an invalidation hint or a
// presence snapshot; the only client-sent event is the join signal.
package event

import (
	"encoding/json"
	"errors"

	"ripple-social/internal/models"
)

type Type string

const (
	// Client -> server: bind this connection to a user room.
	TypeJoin Type = "join"

	// Server -> receiver room: a new message, fully resolved.
	TypeMessageDelivered Type = "message-delivered"

	// Server -> both rooms: re-pull your conversation list.
	TypeConversationInvalidated Type = "conversation-invalidated"

	// Server -> every connection: full online user ID list.
	TypePresenceSnapshot Type = "presence-snapshot"
)

// Envelope frames every event on the channel.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is the body of a client join signal.
type JoinPayload struct {
	UserID string `json:"userId"`
}

// SnapshotPayload is the body of a presence snapshot.
type SnapshotPayload struct {
	Users []string `json:"users"`
}

func marshal(eventType Type, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: body})
}

// MessageDelivered frames a resolved message for the receiver's room.
func MessageDelivered(msg *models.ResolvedMessage) ([]byte, error) {
	return marshal(TypeMessageDelivered, msg)
}

// ConversationInvalidated frames the empty "re-pull your list" hint.
func ConversationInvalidated() []byte {
	payload, _ := json.Marshal(Envelope{Type: TypeConversationInvalidated})
	return payload
}

// PresenceSnapshot frames the full online-user list.
func PresenceSnapshot(users []string) ([]byte, error) {
	return marshal(TypePresenceSnapshot, SnapshotPayload{Users: users})
}

// Join frames a client join signal.
func Join(userID string) ([]byte, error) {
	return marshal(TypeJoin, JoinPayload{UserID: userID})
}

// Decode parses an envelope off the wire.
func Decode(data []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// DecodePayload unmarshals the envelope body into dst.
func (e *Envelope) DecodePayload(dst any) error {
	if len(e.Payload) == 0 {
		return errEmptyPayload
	}
	return json.Unmarshal(e.Payload, dst)
}

var errEmptyPayload = errors.New("event has no payload")
