package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/vedran77/devaura/internal/domain"
	"github.com/vedran77/devaura/internal/service"
	"github.com/vedran77/devaura/pkg/validator"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const sendBufSize = 256

// Services are the operations a client can reach over the socket.
type Services struct {
	Conversations *service.ConversationService
	Messages      *service.MessageService
}

type Options struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	return o
}

// Client is one WebSocket connection. It holds at most one conversation feed
// watch and one message watch at a time.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   string
	services Services
	opts     Options
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte

	mu         sync.Mutex
	feedCancel service.CancelFunc
	msgCancel  service.CancelFunc

	// A snapshot is emitted only while its watch's generation is current,
	// so nothing from a replaced or detached watch reaches the socket.
	genMu   sync.Mutex
	feedGen uint64
	msgGen  uint64
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, services Services, opts Options, log *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:      hub,
		conn:     conn,
		userID:   userID,
		services: services,
		opts:     opts.withDefaults(),
		log:      log.With(zap.String("user_id", userID)),
		ctx:      ctx,
		cancel:   cancel,
		send:     make(chan []byte, sendBufSize),
	}
}

// Close ends both pumps. Safe to call more than once.
func (c *Client) Close() {
	c.cancel()
}

// ReadPump reads events until the connection or the client closes, then
// detaches every watch and unregisters from the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.detachAll()
		c.Close()
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(c.ctx, c.conn, &event)
		if err != nil {
			switch {
			case websocket.CloseStatus(err) != -1, errors.Is(err, context.Canceled):
				c.log.Debug("ws client disconnected")
			default:
				c.log.Warn("ws read error", zap.Error(err))
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes queued events and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, c.opts.WriteWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.log.Debug("ws write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.opts.WriteWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.log.Debug("ws ping error", zap.Error(err))
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeConversationsSubscribe:
		c.watchConversations()

	case EventTypeConversationsUnsubscribe:
		c.detachFeed()

	case EventTypeMessagesSubscribe:
		var p ConversationPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == "" {
			c.sendError("INVALID_PAYLOAD", "conversation_id is required")
			return
		}
		c.watchMessages(p.ConversationID)

	case EventTypeMessagesUnsubscribe:
		c.detachMessages()

	case EventTypeMessageSend:
		var p MessageSendPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == "" {
			c.sendError("INVALID_PAYLOAD", "conversation_id and text are required")
			return
		}
		c.sendMessage(p)

	case EventTypePing:
		c.emit(EventTypePong, nil)

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) watchConversations() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.feedCancel != nil {
		c.feedCancel()
	}
	gen := c.nextGen(&c.feedGen)
	c.feedCancel = c.services.Conversations.WatchConversations(c.ctx, c.userID,
		func(s domain.Snapshot[domain.Conversation]) {
			payload := ConversationsSnapshotPayload{Items: s.Items}
			if s.Failed() {
				payload.Error = &ErrorPayload{Code: "WATCH_FAILED", Message: "Could not load conversations"}
			}
			c.emitIfCurrent(&c.feedGen, gen, EventTypeConversationsSnapshot, payload)
		},
	)
}

func (c *Client) watchMessages(conversationID string) {
	if !c.authorize(conversationID) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.msgCancel != nil {
		c.msgCancel()
	}
	gen := c.nextGen(&c.msgGen)
	c.msgCancel = c.services.Messages.WatchMessages(c.ctx, conversationID,
		func(s domain.Snapshot[domain.Message]) {
			payload := MessagesSnapshotPayload{ConversationID: conversationID, Items: s.Items}
			if s.Failed() {
				payload.Error = &ErrorPayload{Code: "WATCH_FAILED", Message: "Could not load messages"}
			}
			c.emitIfCurrent(&c.msgGen, gen, EventTypeMessagesSnapshot, payload)
		},
	)
}

func (c *Client) sendMessage(p MessageSendPayload) {
	text := strings.TrimSpace(p.Text)
	if errs := validator.ValidateMessageText(text); errs.HasErrors() {
		c.sendError("VALIDATION_ERROR", errs["text"])
		return
	}
	if !c.authorize(p.ConversationID) {
		return
	}

	msg, err := c.services.Messages.SendMessage(c.ctx, p.ConversationID, c.userID, text)
	if err != nil {
		if !errors.Is(err, service.ErrSummaryStale) || msg == nil {
			c.log.Error("ws send message", zap.String("conversation_id", p.ConversationID), zap.Error(err))
			c.sendError("INTERNAL", "Could not send message")
			return
		}
		c.log.Warn("message sent with stale summary", zap.String("conversation_id", p.ConversationID), zap.Error(err))
	}

	c.emit(EventTypeMessageSent, MessageSentPayload{Message: msg, Nonce: p.Nonce})
}

// authorize reports whether the user takes part in the conversation,
// answering the client with an error event if not.
func (c *Client) authorize(conversationID string) bool {
	_, err := c.services.Conversations.GetConversationFor(c.ctx, c.userID, conversationID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, service.ErrConversationNotFound):
		c.sendError("NOT_FOUND", "Conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		c.sendError("FORBIDDEN", "You are not a participant of this conversation")
	default:
		c.log.Error("ws load conversation", zap.String("conversation_id", conversationID), zap.Error(err))
		c.sendError("INTERNAL", "Something went wrong")
	}
	return false
}

func (c *Client) detachFeed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.feedCancel != nil {
		c.feedCancel()
		c.feedCancel = nil
	}
	c.nextGen(&c.feedGen)
}

func (c *Client) detachMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.msgCancel != nil {
		c.msgCancel()
		c.msgCancel = nil
	}
	c.nextGen(&c.msgGen)
}

func (c *Client) detachAll() {
	c.detachFeed()
	c.detachMessages()
}

// emit queues an event for the write pump. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (c *Client) emit(eventType string, payload any) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		c.log.Error("ws marshal payload", zap.String("type", eventType), zap.Error(err))
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
		c.log.Warn("ws send buffer full, disconnecting")
		c.Close()
	}
}

// nextGen retires every watch started under the current generation of gen.
func (c *Client) nextGen(gen *uint64) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	*gen++
	return *gen
}

func (c *Client) emitIfCurrent(gen *uint64, want uint64, eventType string, payload any) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if *gen != want {
		return
	}
	c.emit(eventType, payload)
}

func (c *Client) sendError(code, message string) {
	c.emit(EventTypeError, ErrorPayload{Code: code, Message: message})
}
