package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/devaura/internal/changefeed"
	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/events"
	"github.com/vedran77/devaura/internal/repository/memory"
	"github.com/vedran77/devaura/internal/service"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const secret = "ws-secret"

type testEnv struct {
	srv      *httptest.Server
	hub      *Hub
	services Services
	stopHub  context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	broker := changefeed.NewMemoryBroker()
	convRepo := memory.NewConversationRepo(nil)
	msgRepo := memory.NewMessageRepo(nil)

	services := Services{
		Conversations: service.NewConversationService(convRepo, broker, events.NopPublisher{}, log),
		Messages:      service.NewMessageService(convRepo, msgRepo, broker, events.NopPublisher{}, log),
	}

	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", ServeWS(hub, services, secret, Options{PingInterval: time.Minute}, log))
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testEnv{srv: srv, hub: hub, services: services, stopHub: cancel}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func (e *testEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?token=" + token(t, userID)
	conn, _, err := websocket.Dial(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	evt := Event{Type: eventType}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		evt.Payload = data
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, evt))
}

// readUntil reads events until one of eventType satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for {
		var evt Event
		require.NoError(t, wsjson.Read(ctx, conn, &evt), "waiting for %s", eventType)
		if evt.Type == eventType && (match == nil || match(evt.Payload)) {
			return evt.Payload
		}
	}
}

func TestServeWS_RejectsMissingOrBadToken(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"", "?token=garbage"} {
		resp, err := http.Get(env.srv.URL + "/ws" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestClient_SubscribeAndSend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1, u2 := uuid.NewString(), uuid.NewString()

	conv, _, err := env.services.Conversations.GetOrCreateConversation(ctx, u1, u2,
		domain.ParticipantDetails{DisplayName: "One"}, domain.ParticipantDetails{DisplayName: "Two"})
	require.NoError(t, err)

	c1 := env.dial(t, u1)
	c2 := env.dial(t, u2)

	send(t, c2, EventTypeConversationsSubscribe, nil)
	var feed ConversationsSnapshotPayload
	require.NoError(t, json.Unmarshal(readUntil(t, c2, EventTypeConversationsSnapshot, nil), &feed))
	require.Len(t, feed.Items, 1)
	assert.Equal(t, conv.ID, feed.Items[0].ID)

	send(t, c1, EventTypeMessagesSubscribe, ConversationPayload{ConversationID: conv.ID})
	var snap MessagesSnapshotPayload
	require.NoError(t, json.Unmarshal(readUntil(t, c1, EventTypeMessagesSnapshot, nil), &snap))
	assert.Equal(t, conv.ID, snap.ConversationID)
	assert.Empty(t, snap.Items)

	send(t, c1, EventTypeMessageSend, MessageSendPayload{ConversationID: conv.ID, Text: "hi", Nonce: "n1"})

	// message.sent and the refreshed snapshot race; wait for both.
	var sent *MessageSentPayload
	gotSnapshot := false
	readCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	for sent == nil || !gotSnapshot {
		var evt Event
		require.NoError(t, wsjson.Read(readCtx, c1, &evt))
		switch evt.Type {
		case EventTypeMessageSent:
			sent = &MessageSentPayload{}
			require.NoError(t, json.Unmarshal(evt.Payload, sent))
		case EventTypeMessagesSnapshot:
			var s MessagesSnapshotPayload
			require.NoError(t, json.Unmarshal(evt.Payload, &s))
			if len(s.Items) == 1 && s.Items[0].Text == "hi" {
				gotSnapshot = true
			}
		}
	}
	assert.Equal(t, "n1", sent.Nonce)
	assert.Equal(t, "hi", sent.Message.Text)

	readUntil(t, c2, EventTypeConversationsSnapshot, func(p json.RawMessage) bool {
		var s ConversationsSnapshotPayload
		return json.Unmarshal(p, &s) == nil && len(s.Items) == 1 && s.Items[0].LastMessage == "hi"
	})
}

func TestClient_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1, u2, outsider := uuid.NewString(), uuid.NewString(), uuid.NewString()

	conv, _, err := env.services.Conversations.GetOrCreateConversation(ctx, u1, u2,
		domain.ParticipantDetails{}, domain.ParticipantDetails{})
	require.NoError(t, err)

	conn := env.dial(t, outsider)
	errorWithCode := func(code string) func(json.RawMessage) bool {
		return func(p json.RawMessage) bool {
			var e ErrorPayload
			return json.Unmarshal(p, &e) == nil && e.Code == code
		}
	}

	send(t, conn, EventTypeMessagesSubscribe, ConversationPayload{ConversationID: conv.ID})
	readUntil(t, conn, EventTypeError, errorWithCode("FORBIDDEN"))

	send(t, conn, EventTypeMessageSend, MessageSendPayload{ConversationID: conv.ID, Text: "   "})
	readUntil(t, conn, EventTypeError, errorWithCode("VALIDATION_ERROR"))

	send(t, conn, EventTypeMessagesSubscribe, ConversationPayload{ConversationID: "missing"})
	readUntil(t, conn, EventTypeError, errorWithCode("NOT_FOUND"))

	send(t, conn, "bogus", nil)
	readUntil(t, conn, EventTypeError, errorWithCode("UNKNOWN_EVENT"))

	send(t, conn, EventTypePing, nil)
	readUntil(t, conn, EventTypePong, nil)

	msgs, err := env.services.Messages.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClient_SendTrimsText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1, u2 := uuid.NewString(), uuid.NewString()

	conv, _, err := env.services.Conversations.GetOrCreateConversation(ctx, u1, u2,
		domain.ParticipantDetails{}, domain.ParticipantDetails{})
	require.NoError(t, err)

	conn := env.dial(t, u1)

	send(t, conn, EventTypeMessageSend, MessageSendPayload{
		ConversationID: conv.ID,
		Text:           "  " + strings.Repeat("a", 501) + "\n",
	})
	readUntil(t, conn, EventTypeError, func(p json.RawMessage) bool {
		var e ErrorPayload
		return json.Unmarshal(p, &e) == nil && e.Code == "VALIDATION_ERROR"
	})

	send(t, conn, EventTypeMessageSend, MessageSendPayload{
		ConversationID: conv.ID,
		Text:           strings.Repeat(" ", 600) + "hi" + strings.Repeat("\n", 300),
		Nonce:          "n1",
	})
	var sent MessageSentPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, EventTypeMessageSent, nil), &sent))
	assert.Equal(t, "hi", sent.Message.Text)

	msgs, err := env.services.Messages.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)

	stored, err := env.services.Conversations.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.LastMessage)
}

func TestClient_DropsSnapshotsFromReplacedWatch(t *testing.T) {
	c := NewClient(nil, nil, uuid.NewString(), Services{}, Options{}, zap.NewNop())
	t.Cleanup(c.Close)

	old := c.nextGen(&c.msgGen)
	current := c.nextGen(&c.msgGen)

	c.emitIfCurrent(&c.msgGen, old, EventTypeMessagesSnapshot, MessagesSnapshotPayload{ConversationID: "a"})
	c.emitIfCurrent(&c.msgGen, current, EventTypeMessagesSnapshot, MessagesSnapshotPayload{ConversationID: "b"})
	require.Len(t, c.send, 1)

	var evt Event
	require.NoError(t, json.Unmarshal(<-c.send, &evt))
	var snap MessagesSnapshotPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &snap))
	assert.Equal(t, "b", snap.ConversationID)

	c.detachMessages()
	c.emitIfCurrent(&c.msgGen, current, EventTypeMessagesSnapshot, MessagesSnapshotPayload{ConversationID: "b"})
	assert.Empty(t, c.send)
}

func TestClient_SwitchingConversationsStopsOldSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1, u2, u3 := uuid.NewString(), uuid.NewString(), uuid.NewString()

	first, _, err := env.services.Conversations.GetOrCreateConversation(ctx, u1, u2,
		domain.ParticipantDetails{}, domain.ParticipantDetails{})
	require.NoError(t, err)
	second, _, err := env.services.Conversations.GetOrCreateConversation(ctx, u1, u3,
		domain.ParticipantDetails{}, domain.ParticipantDetails{})
	require.NoError(t, err)

	conn := env.dial(t, u1)
	forConv := func(id string) func(json.RawMessage) bool {
		return func(p json.RawMessage) bool {
			var s MessagesSnapshotPayload
			return json.Unmarshal(p, &s) == nil && s.ConversationID == id
		}
	}

	send(t, conn, EventTypeMessagesSubscribe, ConversationPayload{ConversationID: first.ID})
	readUntil(t, conn, EventTypeMessagesSnapshot, forConv(first.ID))
	send(t, conn, EventTypeMessagesSubscribe, ConversationPayload{ConversationID: second.ID})
	readUntil(t, conn, EventTypeMessagesSnapshot, forConv(second.ID))

	_, err = env.services.Messages.SendMessage(ctx, first.ID, u2, "late")
	require.NoError(t, err)

	// Give a stale delivery time to reach the queue ahead of the pong.
	time.Sleep(50 * time.Millisecond)
	send(t, conn, EventTypePing, nil)

	readCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	for {
		var evt Event
		require.NoError(t, wsjson.Read(readCtx, conn, &evt))
		if evt.Type == EventTypePong {
			break
		}
		if evt.Type == EventTypeMessagesSnapshot {
			var s MessagesSnapshotPayload
			require.NoError(t, json.Unmarshal(evt.Payload, &s))
			assert.Equal(t, second.ID, s.ConversationID)
		}
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, uuid.NewString())

	require.Eventually(t, func() bool { return env.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.stopHub()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var evt Event
	assert.Error(t, wsjson.Read(ctx, conn, &evt))
	assert.Eventually(t, func() bool { return env.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
