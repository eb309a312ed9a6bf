package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ripple-social/internal/client"
	"ripple-social/internal/database"
	"ripple-social/internal/directory"
	"ripple-social/internal/engine"
	"ripple-social/internal/media"
	"ripple-social/internal/middleware"
	"ripple-social/internal/models"
	"ripple-social/internal/presence"
	"ripple-social/internal/realtime"
	"ripple-social/internal/realtime/event"
	"ripple-social/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	httpServer *httptest.Server
	resolver   *directory.Static
	store      *database.MemoryMessageStore
	alice      models.Profile
	bob        models.Profile
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := database.NewMemoryMessageStore()
	resolver := directory.NewStatic()
	alice := models.Profile{ID: uuid.New(), Username: "alice", FullName: "Alice Gator"}
	bob := models.Profile{ID: uuid.New(), Username: "bob", FullName: "Bob Heron"}
	resolver.Add(alice)
	resolver.Add(bob)

	registry := presence.NewRegistry(nil, nil, nil)
	hub := realtime.NewHub(registry, nil, nil)
	registry.SetBroadcaster(hub)
	registry.Start()
	go hub.Run()
	t.Cleanup(hub.Stop)
	t.Cleanup(registry.Stop)

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, engine.Dependencies{
		Store:     store,
		Resolver:  resolver,
		Publisher: hub,
	})

	mediaStore, err := media.NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	server := NewServer(system, eng, hub, registry, mediaStore, nil, nil, 5*time.Second)
	httpServer := httptest.NewServer(server.Routes(nil))
	t.Cleanup(httpServer.Close)

	return &testServer{
		httpServer: httpServer,
		resolver:   resolver,
		store:      store,
		alice:      alice,
		bob:        bob,
	}
}

func (ts *testServer) request(t *testing.T, method, path string, as uuid.UUID, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.httpServer.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if as != uuid.Nil {
		token, err := middleware.GenerateToken(as)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.httpServer.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSendMessageEndToEnd(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.request(t, http.MethodPost, "/conversations/"+ts.bob.ID.String()+"/messages",
		ts.alice.ID, SendMessageRequest{Content: "hi bob"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	sent := decodeBody[models.ResolvedMessage](t, resp)
	assert.Equal(t, "hi bob", sent.Content)
	assert.Equal(t, "alice", sent.Sender.Username)
	assert.Equal(t, "bob", sent.Receiver.Username)
	assert.False(t, sent.Read)

	resp = ts.request(t, http.MethodGet, "/conversations/"+ts.alice.ID.String()+"/messages", ts.bob.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	history := decodeBody[[]models.ResolvedMessage](t, resp)
	assert.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0].ID)
}

func TestSendMessageValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.request(t, http.MethodPost, "/conversations/"+ts.bob.ID.String()+"/messages",
		ts.alice.ID, SendMessageRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.request(t, http.MethodPost, "/conversations/"+uuid.NewString()+"/messages",
		ts.alice.ID, SendMessageRequest{Content: "anyone there?"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = ts.request(t, http.MethodPost, "/conversations/not-a-uuid/messages",
		ts.alice.ID, SendMessageRequest{Content: "hello"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestEndpointsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.request(t, http.MethodGet, "/conversations", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ts.request(t, http.MethodPost, "/conversations/"+ts.bob.ID.String()+"/messages",
		uuid.Nil, SendMessageRequest{Content: "no token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestConversationListAndReadReceipts(t *testing.T) {
	ts := newTestServer(t)

	for _, content := range []string{"one", "two"} {
		resp := ts.request(t, http.MethodPost, "/conversations/"+ts.bob.ID.String()+"/messages",
			ts.alice.ID, SendMessageRequest{Content: content})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := ts.request(t, http.MethodGet, "/conversations", ts.bob.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	conversations := decodeBody[[]models.Conversation](t, resp)
	assert.Len(t, conversations, 1)
	assert.Equal(t, ts.alice.ID, conversations[0].User.ID)
	assert.Equal(t, int64(2), conversations[0].UnreadCount)
	assert.Equal(t, "two", conversations[0].LastMessage.Content)

	resp = ts.request(t, http.MethodPut, "/conversations/"+ts.alice.ID.String()+"/read", ts.bob.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.request(t, http.MethodGet, "/conversations", ts.bob.ID, nil)
	conversations = decodeBody[[]models.Conversation](t, resp)
	assert.Len(t, conversations, 1)
	assert.Equal(t, int64(0), conversations[0].UnreadCount)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.httpServer.Client().Get(ts.httpServer.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func dialWebsocket(t *testing.T, ts *testServer, as uuid.UUID) *ws.Conn {
	t.Helper()

	token, err := middleware.GenerateToken(as)
	require.NoError(t, err)
	wsURL := "ws" + strings.TrimPrefix(ts.httpServer.URL, "http") + "/ws?token=" + token

	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *ws.Conn) *event.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	envelope, err := event.Decode(data)
	require.NoError(t, err)
	return envelope
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.httpServer.URL, "http") + "/ws"
	_, resp, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketDeliversSentMessage(t *testing.T) {
	ts := newTestServer(t)

	conn := dialWebsocket(t, ts, ts.bob.ID)

	join, err := event.Join(ts.bob.ID.String())
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, join))

	// The join triggers a presence snapshot before any room events.
	envelope := readEvent(t, conn)
	assert.Equal(t, event.TypePresenceSnapshot, envelope.Type)
	var snapshot event.SnapshotPayload
	require.NoError(t, envelope.DecodePayload(&snapshot))
	assert.Contains(t, snapshot.Users, ts.bob.ID.String())

	resp := ts.request(t, http.MethodPost, "/conversations/"+ts.bob.ID.String()+"/messages",
		ts.alice.ID, SendMessageRequest{Content: "realtime hello"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	envelope = readEvent(t, conn)
	assert.Equal(t, event.TypeMessageDelivered, envelope.Type)
	var delivered models.ResolvedMessage
	require.NoError(t, envelope.DecodePayload(&delivered))
	assert.Equal(t, "realtime hello", delivered.Content)
	assert.Equal(t, ts.alice.ID, delivered.Sender.ID)

	envelope = readEvent(t, conn)
	assert.Equal(t, event.TypeConversationInvalidated, envelope.Type)
}

func TestWebSocketClosesOnIdentityMismatch(t *testing.T) {
	ts := newTestServer(t)

	conn := dialWebsocket(t, ts, ts.bob.ID)

	join, err := event.Join(ts.alice.ID.String())
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, join))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "claiming another user's identity closes the connection")
}

// The client library speaks to the same REST surface the handlers serve;
// running it against the real router covers both ends of the contract.
func TestClientAPIAgainstServer(t *testing.T) {
	ts := newTestServer(t)

	aliceToken, err := middleware.GenerateToken(ts.alice.ID)
	require.NoError(t, err)
	bobToken, err := middleware.GenerateToken(ts.bob.ID)
	require.NoError(t, err)
	aliceAPI := client.NewAPI(ts.httpServer.URL, aliceToken)
	bobAPI := client.NewAPI(ts.httpServer.URL, bobToken)

	ctx := context.Background()

	sent, err := aliceAPI.SendMessage(ctx, ts.bob.ID, "over the client", nil)
	require.NoError(t, err)
	assert.Equal(t, "over the client", sent.Content)

	withMedia, err := aliceAPI.SendMedia(ctx, ts.bob.ID, "look at this", []byte("fake png bytes"), "image/png")
	require.NoError(t, err)
	require.NotNil(t, withMedia.Attachment)
	assert.Equal(t, models.AttachmentImage, withMedia.Attachment.Kind)
	assert.True(t, strings.HasSuffix(withMedia.Attachment.URL, ".png"))

	history, err := bobAPI.Messages(ctx, ts.alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, sent.ID, history[0].ID)

	conversations, err := bobAPI.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, ts.alice.ID, conversations[0].User.ID)
	assert.Equal(t, int64(2), conversations[0].UnreadCount)

	require.NoError(t, bobAPI.MarkRead(ctx, ts.alice.ID))
	conversations, err = bobAPI.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, int64(0), conversations[0].UnreadCount)

	_, err = aliceAPI.SendMessage(ctx, ts.alice.ID, "talking to myself", nil)
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidation))
}
