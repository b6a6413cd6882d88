package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stash-it/backend/internal/model"
	"github.com/stash-it/backend/internal/service"
)

// fakeChat mirrors the delivery pipeline's contract without a database.
type fakeChat struct {
	convs  map[uint64]*model.Conversation
	msgs   map[uint64]*model.Message
	nextID uint64
}

func newFakeChat(convs ...*model.Conversation) *fakeChat {
	f := &fakeChat{
		convs: make(map[uint64]*model.Conversation),
		msgs:  make(map[uint64]*model.Message),
	}
	for _, cv := range convs {
		f.convs[cv.ID] = cv
	}
	return f
}

func (f *fakeChat) CreateOrGet(ctx context.Context, productID uint64, buyerID string) (*model.Conversation, error) {
	return nil, service.ErrNotFound
}

func (f *fakeChat) ListByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	return nil, nil
}

func (f *fakeChat) Get(ctx context.Context, convID uint64, uid string) (*model.Conversation, error) {
	cv, ok := f.convs[convID]
	if !ok {
		return nil, service.ErrNotFound
	}
	if !cv.Participant(uid) {
		return nil, service.ErrForbidden
	}
	return cv, nil
}

func (f *fakeChat) ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error) {
	return nil, nil
}

func (f *fakeChat) SendMessage(ctx context.Context, convID uint64, senderID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, service.ErrInvalidContent
	}
	cv, ok := f.convs[convID]
	if !ok || !cv.Participant(senderID) {
		return nil, service.ErrNotFound
	}
	f.nextID++
	msg := &model.Message{
		ID:             f.nextID,
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     cv.Other(senderID),
		ProductID:      cv.ProductID,
		Content:        content,
		Product:        cv.Product,
	}
	f.msgs[msg.ID] = msg
	return msg, nil
}

func (f *fakeChat) MarkRead(ctx context.Context, messageID uint64, uid string) (*model.Message, error) {
	msg, ok := f.msgs[messageID]
	if !ok || msg.ReceiverID != uid {
		return nil, nil
	}
	msg.IsRead = true
	return msg, nil
}

func (f *fakeChat) MarkConversationRead(ctx context.Context, convID uint64, uid string) error {
	return nil
}

func wireClient(t *testing.T, h *Hub, chat service.ChatService, uid string) *Client {
	t.Helper()
	c := newClient(h, nil, chat, uid, uid)
	h.Register(c)
	return c
}

func recvEvent(t *testing.T, c *Client) (string, json.RawMessage) {
	t.Helper()
	select {
	case raw := <-c.send:
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("bad frame %q: %v", raw, err)
		}
		return env.Event, env.Data
	default:
		t.Fatalf("no frame queued for %s", c.userID)
		return "", nil
	}
}

func dispatch(t *testing.T, c *Client, event, data string) {
	t.Helper()
	c.handleEvent(context.Background(), envelope{Event: event, Data: json.RawMessage(data)})
}

func marketplaceConv() *model.Conversation {
	return &model.Conversation{
		ID:        1,
		ProductID: 10,
		SellerID:  "alice",
		BuyerID:   "bob",
		Product:   &model.Product{ID: 10, Title: "Mini fridge"},
	}
}

func TestJoinConversationParticipant(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	bob := wireClient(t, h, chat, "bob")

	dispatch(t, bob, EventJoinConversation, `"1"`)

	event, data := recvEvent(t, bob)
	if event != EventJoinedConversation {
		t.Fatalf("event=%q want %q", event, EventJoinedConversation)
	}
	var id string
	_ = json.Unmarshal(data, &id)
	if id != "1" {
		t.Fatalf("joined id=%q want \"1\"", id)
	}
	if !h.InRoom(bob, 1) {
		t.Fatalf("bob should be a room member after join")
	}
}

func TestJoinConversationOutsiderRejected(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	mallory := wireClient(t, h, chat, "mallory")
	bob := wireClient(t, h, chat, "bob")
	dispatch(t, bob, EventJoinConversation, `"1"`)
	_, _ = recvEvent(t, bob)

	dispatch(t, mallory, EventJoinConversation, `"1"`)

	event, data := recvEvent(t, mallory)
	if event != EventError {
		t.Fatalf("event=%q want error", event)
	}
	var reason string
	_ = json.Unmarshal(data, &reason)
	if reason != ReasonUnauthorized {
		t.Fatalf("reason=%q want %q", reason, ReasonUnauthorized)
	}
	if h.InRoom(mallory, 1) {
		t.Fatalf("rejected join must leave no membership behind")
	}

	// Subsequent room broadcasts must never reach the outsider.
	dispatch(t, bob, EventSendMessage, `{"conversationId":"1","content":"hi"}`)
	if len(mallory.send) != 0 {
		t.Fatalf("outsider received a room broadcast")
	}
}

func TestJoinConversationUnknownID(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	bob := wireClient(t, h, chat, "bob")

	dispatch(t, bob, EventJoinConversation, `"42"`)

	event, data := recvEvent(t, bob)
	var reason string
	_ = json.Unmarshal(data, &reason)
	if event != EventError || reason != ReasonNotFound {
		t.Fatalf("got (%q,%q) want (error,not_found)", event, reason)
	}
}

func TestSendMessageFanOut(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	alice := wireClient(t, h, chat, "alice")
	bob := wireClient(t, h, chat, "bob")

	h.Join(alice, 1)
	h.Join(bob, 1)

	dispatch(t, alice, EventSendMessage, `{"conversationId":"1","content":"Is this available?","productId":999}`)

	// Sender gets the broadcast too, for optimistic-UI consistency.
	event, data := recvEvent(t, alice)
	if event != EventNewMessage {
		t.Fatalf("sender event=%q want new-message", event)
	}

	event, data = recvEvent(t, bob)
	if event != EventNewMessage {
		t.Fatalf("receiver event=%q want new-message", event)
	}
	var msg model.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("bad message payload: %v", err)
	}
	if msg.SenderID != "alice" || msg.ReceiverID != "bob" {
		t.Fatalf("sender/receiver = %q/%q", msg.SenderID, msg.ReceiverID)
	}
	if msg.Content != "Is this available?" {
		t.Fatalf("content=%q", msg.Content)
	}
	if msg.IsRead {
		t.Fatalf("new message must be unread")
	}
	if msg.ProductID != 10 {
		t.Fatalf("productId=%d; caller-supplied productId must not win", msg.ProductID)
	}

	// Bob's personal channel also gets the lightweight notification.
	event, data = recvEvent(t, bob)
	if event != EventMessageNotification {
		t.Fatalf("event=%q want message-notification", event)
	}
	var notif notificationEvent
	if err := json.Unmarshal(data, &notif); err != nil {
		t.Fatalf("bad notification payload: %v", err)
	}
	if notif.SenderID != "alice" || notif.ProductTitle != "Mini fridge" || notif.ConversationID != "1" {
		t.Fatalf("notification fields wrong: %+v", notif)
	}
}

func TestSendMessageNotifiesReceiverOutsideRoom(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	alice := wireClient(t, h, chat, "alice")
	bob := wireClient(t, h, chat, "bob") // connected, never joined the room

	h.Join(alice, 1)

	dispatch(t, alice, EventSendMessage, `{"conversationId":"1","content":"still there?"}`)

	_, _ = recvEvent(t, alice) // own broadcast
	event, _ := recvEvent(t, bob)
	if event != EventMessageNotification {
		t.Fatalf("receiver outside the room got %q, want message-notification", event)
	}
	if len(bob.send) != 0 {
		t.Fatalf("receiver outside the room must not get the room broadcast")
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	alice := wireClient(t, h, chat, "alice")
	h.Join(alice, 1)

	dispatch(t, alice, EventSendMessage, `{"conversationId":"1","content":"   "}`)

	event, data := recvEvent(t, alice)
	var reason string
	_ = json.Unmarshal(data, &reason)
	if event != EventError || reason != ReasonInvalidContent {
		t.Fatalf("got (%q,%q) want (error,invalid_content)", event, reason)
	}
	if len(chat.msgs) != 0 {
		t.Fatalf("no message may be created for empty content")
	}
}

func TestTypingRelaySkipsSender(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	alice := wireClient(t, h, chat, "alice")
	bob := wireClient(t, h, chat, "bob")
	h.Join(alice, 1)
	h.Join(bob, 1)

	dispatch(t, alice, EventTyping, `{"conversationId":"1"}`)

	if len(alice.send) != 0 {
		t.Fatalf("typing must never echo back to the sender")
	}
	event, data := recvEvent(t, bob)
	if event != EventUserTyping {
		t.Fatalf("event=%q want user-typing", event)
	}
	var evt typingEvent
	_ = json.Unmarshal(data, &evt)
	if evt.UserID != "alice" || evt.ConversationID != "1" {
		t.Fatalf("typing payload wrong: %+v", evt)
	}

	dispatch(t, alice, EventStopTyping, `{"conversationId":"1"}`)
	event, _ = recvEvent(t, bob)
	if event != EventUserStoppedTyping {
		t.Fatalf("event=%q want user-stopped-typing", event)
	}
}

func TestTypingFromNonMemberIsDropped(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	alice := wireClient(t, h, chat, "alice")
	bob := wireClient(t, h, chat, "bob")
	h.Join(bob, 1)

	// Alice never joined the room; nothing is relayed and no error is sent.
	dispatch(t, alice, EventTyping, `{"conversationId":"1"}`)

	if len(alice.send) != 0 || len(bob.send) != 0 {
		t.Fatalf("non-member typing must be dropped silently")
	}
}

func TestMarkReadNotifiesSender(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	alice := wireClient(t, h, chat, "alice")
	bob := wireClient(t, h, chat, "bob")
	h.Join(alice, 1)

	dispatch(t, alice, EventSendMessage, `{"conversationId":"1","content":"hello"}`)
	_, _ = recvEvent(t, alice) // own broadcast
	_, _ = recvEvent(t, bob)   // notification

	dispatch(t, bob, EventMarkRead, `{"messageId":1}`)

	event, data := recvEvent(t, alice)
	if event != EventMessageRead {
		t.Fatalf("event=%q want message-read", event)
	}
	var evt messageReadEvent
	_ = json.Unmarshal(data, &evt)
	if evt.MessageID != 1 || evt.ReadBy != "bob" {
		t.Fatalf("message-read payload wrong: %+v", evt)
	}

	// Repeat is harmless.
	dispatch(t, bob, EventMarkRead, `{"messageId":1}`)
	if !chat.msgs[1].IsRead {
		t.Fatalf("read flag reverted")
	}
}

func TestMarkReadByNonReceiverIsSilent(t *testing.T) {
	h := NewHub()
	chat := newFakeChat(marketplaceConv())
	alice := wireClient(t, h, chat, "alice")
	bob := wireClient(t, h, chat, "bob")
	mallory := wireClient(t, h, chat, "mallory")
	h.Join(alice, 1)

	dispatch(t, alice, EventSendMessage, `{"conversationId":"1","content":"hello"}`)
	_, _ = recvEvent(t, alice)
	_, _ = recvEvent(t, bob)

	dispatch(t, mallory, EventMarkRead, `{"messageId":1}`)

	if chat.msgs[1].IsRead {
		t.Fatalf("non-receiver flipped the read flag")
	}
	if len(mallory.send) != 0 {
		t.Fatalf("silent no-op must not answer the caller")
	}
	if len(alice.send) != 0 {
		t.Fatalf("no message-read may fire for a no-op")
	}
}

func TestUnknownEvent(t *testing.T) {
	h := NewHub()
	bob := wireClient(t, h, newFakeChat(), "bob")

	dispatch(t, bob, "self-destruct", `{}`)

	event, data := recvEvent(t, bob)
	var reason string
	_ = json.Unmarshal(data, &reason)
	if event != EventError || reason != ReasonBadPayload {
		t.Fatalf("got (%q,%q) want (error,bad_payload)", event, reason)
	}
}
