package actors

import (
	"context"
	"testing"
	"time"

	"ripple-social/internal/database"
	"ripple-social/internal/directory"
	"ripple-social/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type conversationActorFixture struct {
	system   *actor.ActorSystem
	pid      *actor.PID
	store    *database.MemoryMessageStore
	resolver *directory.Static
	alice    models.Profile
	bob      models.Profile
	carol    models.Profile
}

func newConversationActorFixture(t *testing.T) *conversationActorFixture {
	t.Helper()

	store := database.NewMemoryMessageStore()
	resolver := directory.NewStatic()

	alice := models.Profile{ID: uuid.New(), Username: "alice", FullName: "Alice Gator"}
	bob := models.Profile{ID: uuid.New(), Username: "bob", FullName: "Bob Heron"}
	carol := models.Profile{ID: uuid.New(), Username: "carol", FullName: "Carol Ibis"}
	resolver.Add(alice)
	resolver.Add(bob)
	resolver.Add(carol)

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewConversationActor(store, resolver, nil)
	})
	pid := system.Root.Spawn(props)

	return &conversationActorFixture{
		system:   system,
		pid:      pid,
		store:    store,
		resolver: resolver,
		alice:    alice,
		bob:      bob,
		carol:    carol,
	}
}

func (f *conversationActorFixture) seed(t *testing.T, sender, receiver uuid.UUID, content string, at time.Time, read bool) {
	t.Helper()
	err := f.store.Insert(context.Background(), &models.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		Read:       read,
		CreatedAt:  at,
	})
	if err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}
}

func (f *conversationActorFixture) list(t *testing.T, user uuid.UUID) []*models.Conversation {
	t.Helper()
	future := f.system.Root.RequestFuture(f.pid, &ListConversationsMsg{UserID: user}, 5*time.Second)
	result, err := future.Result()
	if err != nil {
		t.Fatalf("actor request failed: %v", err)
	}
	conversations, ok := result.([]*models.Conversation)
	if !ok {
		t.Fatalf("expected conversations, got %T", result)
	}
	return conversations
}

func TestListEmptyConversations(t *testing.T) {
	f := newConversationActorFixture(t)
	assert.Empty(t, f.list(t, f.alice.ID))
}

func TestListOneConversationPerCounterpart(t *testing.T) {
	f := newConversationActorFixture(t)
	base := time.Now().UTC().Add(-time.Hour)

	f.seed(t, f.alice.ID, f.bob.ID, "first", base, true)
	f.seed(t, f.bob.ID, f.alice.ID, "second", base.Add(time.Minute), false)
	f.seed(t, f.alice.ID, f.bob.ID, "third", base.Add(2*time.Minute), false)

	conversations := f.list(t, f.alice.ID)
	assert.Len(t, conversations, 1, "many messages, one conversation entry")
	assert.Equal(t, f.bob.ID, conversations[0].User.ID)
	assert.Equal(t, "third", conversations[0].LastMessage.Content)
}

func TestListSortedByRecency(t *testing.T) {
	f := newConversationActorFixture(t)
	base := time.Now().UTC().Add(-time.Hour)

	f.seed(t, f.bob.ID, f.alice.ID, "older thread", base, false)
	f.seed(t, f.carol.ID, f.alice.ID, "newer thread", base.Add(10*time.Minute), false)

	conversations := f.list(t, f.alice.ID)
	assert.Len(t, conversations, 2)
	assert.Equal(t, f.carol.ID, conversations[0].User.ID, "most recent conversation first")
	assert.Equal(t, f.bob.ID, conversations[1].User.ID)
}

func TestListCountsUnreadInboundOnly(t *testing.T) {
	f := newConversationActorFixture(t)
	base := time.Now().UTC().Add(-time.Hour)

	// Two unread inbound, one read inbound, one unread outbound. Only the
	// inbound unread ones count against alice.
	f.seed(t, f.bob.ID, f.alice.ID, "unread 1", base, false)
	f.seed(t, f.bob.ID, f.alice.ID, "unread 2", base.Add(time.Minute), false)
	f.seed(t, f.bob.ID, f.alice.ID, "already read", base.Add(2*time.Minute), true)
	f.seed(t, f.alice.ID, f.bob.ID, "my own reply", base.Add(3*time.Minute), false)

	conversations := f.list(t, f.alice.ID)
	assert.Len(t, conversations, 1)
	assert.Equal(t, int64(2), conversations[0].UnreadCount)

	// The counterpart sees the single unread outbound message.
	bobView := f.list(t, f.bob.ID)
	assert.Len(t, bobView, 1)
	assert.Equal(t, int64(1), bobView[0].UnreadCount)
}

func TestListSkipsDeletedCounterparts(t *testing.T) {
	f := newConversationActorFixture(t)
	base := time.Now().UTC().Add(-time.Hour)

	f.seed(t, f.bob.ID, f.alice.ID, "from bob", base, false)
	f.seed(t, f.carol.ID, f.alice.ID, "from carol", base.Add(time.Minute), false)
	f.resolver.Remove(f.carol.ID)

	conversations := f.list(t, f.alice.ID)
	assert.Len(t, conversations, 1, "conversation with a deleted account is dropped")
	assert.Equal(t, f.bob.ID, conversations[0].User.ID)
}
