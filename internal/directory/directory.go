// Package directory is the narrow interface to the identity service: it
// resolves opaque user IDs to profile summaries. Account CRUD is owned by
// the surrounding application, not by this service.
package directory

import (
	"context"
	"sync"

	"ripple-social/internal/models"
	"ripple-social/internal/utils"

	"github.com/google/uuid"
)

// Resolver looks up the profile summary for a user ID. Implementations
// return an AppError with code NOT_FOUND for unknown or deleted accounts.
type Resolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// NotFound builds the canonical unknown-user error.
func NotFound(id uuid.UUID) error {
	return utils.NewNotFoundError("user not found: " + id.String())
}

// Static is an in-memory Resolver backed by a fixed profile table. Tests and
// the local simulator use it in place of the user service.
type Static struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]models.Profile
}

func NewStatic() *Static {
	return &Static{profiles: make(map[uuid.UUID]models.Profile)}
}

// Add registers a profile, overwriting any previous entry for the same ID.
func (s *Static) Add(profile models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
}

// Remove deletes a profile, simulating a deleted account.
func (s *Static) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
}

func (s *Static) Resolve(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, NotFound(id)
	}
	return &profile, nil
}
