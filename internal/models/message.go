package models

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentKind classifies message media.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
)

// Attachment references an uploaded media object.
type Attachment struct {
	URL  string         `json:"url" bson:"url"`
	Kind AttachmentKind `json:"kind" bson:"kind"`
}

// Message is the durable record of a direct message between two users.
// Read is the only field that ever changes after creation (false -> true).
type Message struct {
	ID         uuid.UUID   `json:"id"`
	SenderID   uuid.UUID   `json:"senderId"`
	ReceiverID uuid.UUID   `json:"receiverId"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Read       bool        `json:"read"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// ResolvedMessage is a Message with both participants expanded to profile
// summaries. REST history responses and realtime delivery use this shape.
type ResolvedMessage struct {
	ID         uuid.UUID   `json:"id"`
	Sender     Profile     `json:"sender"`
	Receiver   Profile     `json:"receiver"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Read       bool        `json:"read"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Resolve expands a message using the given profiles.
func (m *Message) Resolve(sender, receiver Profile) *ResolvedMessage {
	return &ResolvedMessage{
		ID:         m.ID,
		Sender:     sender,
		Receiver:   receiver,
		Content:    m.Content,
		Attachment: m.Attachment,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}
