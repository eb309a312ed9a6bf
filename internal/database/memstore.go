package database

import (
	"context"
	"sort"
	"sync"

	"ripple-social/internal/models"

	"github.com/google/uuid"
)

// MemoryMessageStore is an in-memory MessageStore. It backs tests and local
// runs without a MongoDB instance; state is lost on restart.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages []*models.Message
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{}
}

func (s *MemoryMessageStore) Insert(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *msg
	s.messages = append(s.messages, &clone)
	return nil
}

func (s *MemoryMessageStore) Between(_ context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Message
	for _, msg := range s.messages {
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			clone := *msg
			result = append(result, &clone)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryMessageStore) Involving(_ context.Context, user uuid.UUID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Message
	for _, msg := range s.messages {
		if msg.SenderID == user || msg.ReceiverID == user {
			clone := *msg
			result = append(result, &clone)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryMessageStore) MarkRead(_ context.Context, reader, counterpart uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, msg := range s.messages {
		if msg.SenderID == counterpart && msg.ReceiverID == reader && !msg.Read {
			msg.Read = true
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryMessageStore) CountUnread(_ context.Context, receiver, sender uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, msg := range s.messages {
		if msg.SenderID == sender && msg.ReceiverID == receiver && !msg.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryMessageStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.messages)), nil
}
