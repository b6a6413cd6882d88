package realtime

import "encoding/json"

// Wire events. Inbound and outbound frames share one envelope shape:
// {"event": "...", "data": <payload>}.
const (
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventTyping            = "typing"
	EventStopTyping        = "stop-typing"
	EventSendMessage       = "send-message"
	EventMarkRead          = "mark-read"

	EventJoinedConversation  = "joined-conversation"
	EventLeftConversation    = "left-conversation"
	EventUserTyping          = "user-typing"
	EventUserStoppedTyping   = "user-stopped-typing"
	EventNewMessage          = "new-message"
	EventMessageNotification = "message-notification"
	EventMessageRead         = "message-read"
	EventError               = "error"
)

// Error reasons surfaced through the error event. Connect-time
// authentication failures never reach this layer; the handshake rejects
// them with a generic HTTP 401 first.
const (
	ReasonUnauthorized       = "unauthorized"
	ReasonInvalidContent     = "invalid_content"
	ReasonNotFound           = "not_found"
	ReasonPersistenceFailure = "persistence_failure"
	ReasonBadPayload         = "bad_payload"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type conversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	// ProductID is informational only; the stored product id always
	// derives from the conversation record.
	ProductID uint64 `json:"productId"`
}

type markReadPayload struct {
	MessageID uint64 `json:"messageId"`
}

type typingEvent struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	ConversationID string `json:"conversationId"`
}

type notificationEvent struct {
	MessageID      uint64 `json:"messageId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
	ProductTitle   string `json:"productTitle"`
}

type messageReadEvent struct {
	MessageID uint64 `json:"messageId"`
	ReadBy    string `json:"readBy"`
}

func encodeEvent(event string, data interface{}) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	out, err := json.Marshal(envelope{Event: event, Data: raw})
	if err != nil {
		return nil
	}
	return out
}
