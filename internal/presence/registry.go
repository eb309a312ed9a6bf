// Package presence tracks which users currently hold an open realtime
// connection. The table is process-local bookkeeping: it is rebuilt from
// scratch on restart and never persisted.
package presence

import (
	"log/slog"
	"sync"

	"ripple-social/internal/realtime/event"
	"ripple-social/internal/utils"

	"github.com/google/uuid"
)

// Handle identifies one connection. The registry only compares handles, so
// any comparable value works; the realtime hub passes its client pointers.
type Handle = any

// Broadcaster pushes a payload to every open connection. The realtime hub
// satisfies it.
type Broadcaster interface {
	BroadcastAll(payload []byte)
}

// Registry maps user IDs to their single active connection handle. A second
// join for the same user overwrites the first, and any disconnect of one of
// the user's connections removes the user from the online set, even when a
// newer connection is still open. Known limitation of the
// one-handle-per-user model; see the registry tests.
type Registry struct {
	broadcaster Broadcaster
	metrics     *utils.MetricsCollector
	log         *slog.Logger

	mu      sync.RWMutex
	running bool
	byUser  map[uuid.UUID]Handle
}

func NewRegistry(broadcaster Broadcaster, metrics *utils.MetricsCollector, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		broadcaster: broadcaster,
		metrics:     metrics,
		log:         log,
		byUser:      make(map[uuid.UUID]Handle),
	}
}

// SetBroadcaster installs the snapshot sink. The registry and the hub
// reference each other, so one of them has to be wired after construction.
func (r *Registry) SetBroadcaster(broadcaster Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcaster = broadcaster
}

// Start marks the registry live. Join and Leave are no-ops before Start and
// after Stop, so a half-wired server cannot corrupt the table.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
}

// Stop clears the table. Connections themselves are closed by their owner.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.byUser = make(map[uuid.UUID]Handle)
	if r.metrics != nil {
		r.metrics.OnlineUsers.Set(0)
	}
}

// Join registers the handle for the user, replacing any previous one, and
// broadcasts a fresh snapshot.
func (r *Registry) Join(userID uuid.UUID, handle Handle) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	if _, ok := r.byUser[userID]; ok {
		r.log.Debug("presence join replaced earlier connection", "user", userID)
	}
	r.byUser[userID] = handle
	users := r.onlineLocked()
	r.mu.Unlock()

	r.log.Info("user online", "user", userID, "online", len(users))
	r.emitSnapshot(users)
}

// Leave removes the user from the online set and broadcasts a fresh
// snapshot. A disconnect of any of the user's connections takes the user
// offline, even one whose handle a newer join already replaced.
func (r *Registry) Leave(userID uuid.UUID) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	if _, ok := r.byUser[userID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byUser, userID)
	users := r.onlineLocked()
	r.mu.Unlock()

	r.log.Info("user offline", "user", userID, "online", len(users))
	r.emitSnapshot(users)
}

// Online returns the IDs of every user currently on record.
func (r *Registry) Online() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	return users
}

func (r *Registry) onlineLocked() []string {
	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID.String())
	}
	return users
}

func (r *Registry) emitSnapshot(users []string) {
	if r.metrics != nil {
		r.metrics.OnlineUsers.Set(float64(len(users)))
	}
	r.mu.RLock()
	broadcaster := r.broadcaster
	r.mu.RUnlock()
	if broadcaster == nil {
		return
	}
	payload, err := event.PresenceSnapshot(users)
	if err != nil {
		r.log.Error("failed to encode presence snapshot", "error", err)
		return
	}
	broadcaster.BroadcastAll(payload)
}
