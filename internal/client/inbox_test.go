package client

import (
	"testing"
	"time"

	"ripple-social/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func seededListView(t *testing.T, counterparts ...models.Profile) ListView {
	t.Helper()
	conversations := make([]*models.Conversation, 0, len(counterparts))
	for i, counterpart := range counterparts {
		conversations = append(conversations, &models.Conversation{
			User: counterpart,
			LastMessage: &models.ResolvedMessage{
				ID:        uuid.New(),
				Sender:    counterpart,
				Receiver:  testAlice,
				Content:   "seeded",
				CreatedAt: time.Now().UTC().Add(-time.Duration(i) * time.Hour),
			},
			UnreadCount: 0,
		})
	}
	return SeedList(NewListView(), conversations)
}

func TestNewListViewStartsStale(t *testing.T) {
	view := NewListView()
	assert.True(t, view.Stale, "an unseeded list needs a pull")

	view = SeedList(view, nil)
	assert.False(t, view.Stale)
	assert.Empty(t, view.Conversations)
}

func TestInvalidateFlagsForRepull(t *testing.T) {
	view := seededListView(t, testBob)
	view = Invalidate(view)
	assert.True(t, view.Stale)
	assert.Len(t, view.Conversations, 1, "entries survive until the re-pull")
}

func TestInboundDeliveryRefreshesEntry(t *testing.T) {
	view := seededListView(t, testBob)

	inbound := confirmed("fresh from bob")
	inbound.Sender, inbound.Receiver = testBob, testAlice
	view = ApplyDelivery(view, testAlice.ID, inbound)

	assert.Len(t, view.Conversations, 1)
	assert.Equal(t, "fresh from bob", view.Conversations[0].LastMessage.Content)
	assert.Equal(t, int64(1), view.Conversations[0].UnreadCount)
}

func TestOutboundDeliveryDoesNotGrowUnread(t *testing.T) {
	view := seededListView(t, testBob)

	outbound := confirmed("my own message")
	view = ApplyDelivery(view, testAlice.ID, outbound)

	assert.Equal(t, "my own message", view.Conversations[0].LastMessage.Content)
	assert.Equal(t, int64(0), view.Conversations[0].UnreadCount,
		"own messages never count as unread")
}

func TestDeliveryMovesConversationToTop(t *testing.T) {
	carol := models.Profile{ID: uuid.New(), Username: "carol"}
	view := seededListView(t, testBob, carol)
	assert.Equal(t, testBob.ID, view.Conversations[0].User.ID)

	fromCarol := confirmed("bumping the thread")
	fromCarol.Sender, fromCarol.Receiver = carol, testAlice
	view = ApplyDelivery(view, testAlice.ID, fromCarol)

	assert.Equal(t, carol.ID, view.Conversations[0].User.ID, "freshest thread first")
	assert.Equal(t, testBob.ID, view.Conversations[1].User.ID)
}

func TestDeliveryFromNewCounterpartInsertsEntry(t *testing.T) {
	view := seededListView(t, testBob)

	carol := models.Profile{ID: uuid.New(), Username: "carol"}
	fromCarol := confirmed("hello, we have not talked")
	fromCarol.Sender, fromCarol.Receiver = carol, testAlice
	view = ApplyDelivery(view, testAlice.ID, fromCarol)

	assert.Len(t, view.Conversations, 2)
	assert.Equal(t, carol.ID, view.Conversations[0].User.ID)
	assert.Equal(t, "carol", view.Conversations[0].User.Username)
	assert.Equal(t, int64(1), view.Conversations[0].UnreadCount)
}

func TestZeroUnreadClearsOnlyTheCounterpart(t *testing.T) {
	carol := models.Profile{ID: uuid.New(), Username: "carol"}
	view := seededListView(t, testBob, carol)

	for i := 0; i < 2; i++ {
		inbound := confirmed("unread")
		inbound.Sender, inbound.Receiver = testBob, testAlice
		view = ApplyDelivery(view, testAlice.ID, inbound)
	}
	fromCarol := confirmed("also unread")
	fromCarol.Sender, fromCarol.Receiver = carol, testAlice
	view = ApplyDelivery(view, testAlice.ID, fromCarol)

	view = ZeroUnread(view, testBob.ID)

	byUser := map[uuid.UUID]int64{}
	for _, entry := range view.Conversations {
		byUser[entry.User.ID] = entry.UnreadCount
	}
	assert.Equal(t, int64(0), byUser[testBob.ID])
	assert.Equal(t, int64(1), byUser[carol.ID], "other threads keep their counts")
}

func TestZeroUnreadForUnknownCounterpartIsSilent(t *testing.T) {
	view := seededListView(t, testBob)
	view = ZeroUnread(view, uuid.New())
	assert.Len(t, view.Conversations, 1)
}

func TestListTransitionsLeaveInputUntouched(t *testing.T) {
	base := seededListView(t, testBob)

	inbound := confirmed("mutator")
	inbound.Sender, inbound.Receiver = testBob, testAlice
	withUnread := ApplyDelivery(base, testAlice.ID, inbound)
	assert.Equal(t, "seeded", base.Conversations[0].LastMessage.Content,
		"input view must not mutate")

	_ = ZeroUnread(withUnread, testBob.ID)
	assert.Equal(t, int64(1), withUnread.Conversations[0].UnreadCount,
		"input view must not mutate")
}
