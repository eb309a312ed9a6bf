package database

import (
	"context"
	"time"

	"ripple-social/internal/models"
	"ripple-social/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageStore is the durable, append-only record of direct messages. The
// only mutation after insert is the read-flag transition; messages are never
// edited or deleted.
type MessageStore interface {
	// Insert persists a new message.
	Insert(ctx context.Context, msg *models.Message) error

	// Between returns every message exchanged by the pair, ascending by
	// creation time.
	Between(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error)

	// Involving returns every message the user sent or received, descending
	// by creation time. The conversation aggregator consumes this.
	Involving(ctx context.Context, user uuid.UUID) ([]*models.Message, error)

	// MarkRead flips read=true on all unread counterpart->reader messages
	// and reports how many changed. Idempotent.
	MarkRead(ctx context.Context, reader, counterpart uuid.UUID) (int64, error)

	// CountUnread counts unread sender->receiver messages.
	CountUnread(ctx context.Context, receiver, sender uuid.UUID) (int64, error)

	// Count reports the total number of stored messages.
	Count(ctx context.Context) (int64, error)
}

// messageDocument is the MongoDB document shape for direct messages.
type messageDocument struct {
	ID         string             `bson:"_id"`
	SenderID   string             `bson:"senderId"`
	ReceiverID string             `bson:"receiverId"`
	Content    string             `bson:"content"`
	Attachment *models.Attachment `bson:"attachment,omitempty"`
	Read       bool               `bson:"read"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

func toDocument(msg *models.Message) messageDocument {
	return messageDocument{
		ID:         msg.ID.String(),
		SenderID:   msg.SenderID.String(),
		ReceiverID: msg.ReceiverID.String(),
		Content:    msg.Content,
		Attachment: msg.Attachment,
		Read:       msg.Read,
		CreatedAt:  msg.CreatedAt,
	}
}

func fromDocument(doc *messageDocument) *models.Message {
	id, _ := uuid.Parse(doc.ID)
	senderID, _ := uuid.Parse(doc.SenderID)
	receiverID, _ := uuid.Parse(doc.ReceiverID)

	return &models.Message{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    doc.Content,
		Attachment: doc.Attachment,
		Read:       doc.Read,
		CreatedAt:  doc.CreatedAt,
	}
}

// MongoMessageStore implements MessageStore on the messages collection.
type MongoMessageStore struct {
	messages *mongo.Collection
}

func NewMongoMessageStore(db *MongoDB) *MongoMessageStore {
	return &MongoMessageStore{messages: db.Messages}
}

func (s *MongoMessageStore) Insert(ctx context.Context, msg *models.Message) error {
	if _, err := s.messages.InsertOne(ctx, toDocument(msg)); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save message", err)
	}
	return nil
}

func (s *MongoMessageStore) Between(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"senderId": a.String(), "receiverId": b.String()},
			{"senderId": b.String(), "receiverId": a.String()},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return s.find(ctx, filter, opts)
}

func (s *MongoMessageStore) Involving(ctx context.Context, user uuid.UUID) ([]*models.Message, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"senderId": user.String()},
			{"receiverId": user.String()},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.find(ctx, filter, opts)
}

func (s *MongoMessageStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Message, error) {
	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query messages", err)
	}
	defer cursor.Close(ctx)

	var result []*models.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode message", err)
		}
		result = append(result, fromDocument(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to iterate messages", err)
	}
	return result, nil
}

func (s *MongoMessageStore) MarkRead(ctx context.Context, reader, counterpart uuid.UUID) (int64, error) {
	filter := bson.M{
		"senderId":   counterpart.String(),
		"receiverId": reader.String(),
		"read":       false,
	}
	result, err := s.messages.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "failed to mark messages read", err)
	}
	return result.ModifiedCount, nil
}

func (s *MongoMessageStore) CountUnread(ctx context.Context, receiver, sender uuid.UUID) (int64, error) {
	filter := bson.M{
		"senderId":   sender.String(),
		"receiverId": receiver.String(),
		"read":       false,
	}
	count, err := s.messages.CountDocuments(ctx, filter)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "failed to count unread messages", err)
	}
	return count, nil
}

func (s *MongoMessageStore) Count(ctx context.Context) (int64, error) {
	count, err := s.messages.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "failed to count messages", err)
	}
	return count, nil
}
