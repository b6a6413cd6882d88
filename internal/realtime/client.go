package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stash-it/backend/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client binds one websocket connection to one authenticated identity for
// the connection's lifetime.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	chat service.ChatService

	userID   string
	userName string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, chat service.ChatService, userID, userName string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		chat:     chat,
		userID:   userID,
		userName: userName,
		send:     make(chan []byte, sendBuffer),
	}
}

// enqueue hands a frame to the write pump. A room broadcast can race a
// disconnect, so the closed check and the send share one critical section.
func (c *Client) enqueue(payload []byte) {
	if payload == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		// Slow consumer; dropping beats stalling every other sender.
		log.Printf("dropping frame for slow client %s", c.userID)
	}
}

func (c *Client) emit(event string, data interface{}) {
	c.enqueue(encodeEvent(event, data))
}

func (c *Client) emitError(reason string) {
	c.emit(EventError, reason)
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read error for %s: %v", c.userID, err)
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.emitError(ReasonBadPayload)
			continue
		}
		c.handleEvent(ctx, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEvent dispatches one inbound frame. Every failure is reported to
// this connection only; nothing here may take down the process or leak
// into another client's stream.
func (c *Client) handleEvent(ctx context.Context, env envelope) {
	switch env.Event {
	case EventJoinConversation:
		c.handleJoin(ctx, env.Data)
	case EventLeaveConversation:
		c.handleLeave(env.Data)
	case EventTyping:
		c.handleTyping(env.Data, true)
	case EventStopTyping:
		c.handleTyping(env.Data, false)
	case EventSendMessage:
		c.handleSendMessage(ctx, env.Data)
	case EventMarkRead:
		c.handleMarkRead(ctx, env.Data)
	default:
		c.emitError(ReasonBadPayload)
	}
}

func parseConversationID(data json.RawMessage) (uint64, string, bool) {
	// join/leave send a bare id string, typing wraps it in an object;
	// accept both.
	var idStr string
	if err := json.Unmarshal(data, &idStr); err != nil {
		var p conversationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return 0, "", false
		}
		idStr = p.ConversationID
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return id, idStr, true
}

func (c *Client) handleJoin(ctx context.Context, data json.RawMessage) {
	convID, idStr, ok := parseConversationID(data)
	if !ok {
		c.emitError(ReasonBadPayload)
		return
	}
	if _, err := c.chat.Get(ctx, convID, c.userID); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			c.emitError(ReasonUnauthorized)
		case errors.Is(err, service.ErrNotFound):
			c.emitError(ReasonNotFound)
		default:
			c.emitError(ReasonPersistenceFailure)
		}
		return
	}
	c.hub.Join(c, convID)
	c.emit(EventJoinedConversation, idStr)
}

func (c *Client) handleLeave(data json.RawMessage) {
	convID, idStr, ok := parseConversationID(data)
	if !ok {
		c.emitError(ReasonBadPayload)
		return
	}
	c.hub.Leave(c, convID)
	c.emit(EventLeftConversation, idStr)
}

// handleTyping relays a typing indicator to the other room members. It is
// fire-and-forget: no persistence, no acknowledgement, and a sender who
// never joined the room is silently ignored.
func (c *Client) handleTyping(data json.RawMessage, start bool) {
	convID, idStr, ok := parseConversationID(data)
	if !ok {
		return
	}
	if !c.hub.InRoom(c, convID) {
		return
	}
	evt := typingEvent{UserID: c.userID, ConversationID: idStr}
	name := EventUserStoppedTyping
	if start {
		evt.UserName = c.userName
		name = EventUserTyping
	}
	c.hub.BroadcastRoomExcept(convID, c, encodeEvent(name, evt))
}

func (c *Client) handleSendMessage(ctx context.Context, data json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.emitError(ReasonBadPayload)
		return
	}
	convID, err := strconv.ParseUint(p.ConversationID, 10, 64)
	if err != nil || convID == 0 {
		c.emitError(ReasonBadPayload)
		return
	}

	msg, err := c.chat.SendMessage(ctx, convID, c.userID, p.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidContent):
			c.emitError(ReasonInvalidContent)
		case errors.Is(err, service.ErrNotFound):
			c.emitError(ReasonNotFound)
		default:
			c.emitError(ReasonPersistenceFailure)
		}
		return
	}

	// Room fan-out includes the sender so an optimistic UI converges on
	// the stored record.
	c.hub.BroadcastRoom(convID, encodeEvent(EventNewMessage, msg))

	// The receiver may only be watching the conversation list; the
	// personal channel is keyed by user id, not room membership.
	notif := notificationEvent{
		MessageID:      msg.ID,
		SenderID:       c.userID,
		SenderName:     c.userName,
		Content:        msg.Content,
		ConversationID: p.ConversationID,
	}
	if msg.Product != nil {
		notif.ProductTitle = msg.Product.Title
	}
	c.hub.SendToUser(msg.ReceiverID, encodeEvent(EventMessageNotification, notif))
}

func (c *Client) handleMarkRead(ctx context.Context, data json.RawMessage) {
	var p markReadPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == 0 {
		c.emitError(ReasonBadPayload)
		return
	}
	msg, err := c.chat.MarkRead(ctx, p.MessageID, c.userID)
	if err != nil {
		c.emitError(ReasonPersistenceFailure)
		return
	}
	if msg == nil {
		// Not this user's message, or no such message. Saying which
		// would leak message existence, so say nothing.
		return
	}
	c.hub.SendToUser(msg.SenderID, encodeEvent(EventMessageRead, messageReadEvent{
		MessageID: msg.ID,
		ReadBy:    c.userID,
	}))
}
