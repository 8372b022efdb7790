package relay

import (
	"bytes"
	"encoding/json"
)

// Inbound event names.
const (
	EventJoin               = "join"
	EventLeave              = "leave"
	EventSendMessage        = "send_message"
	EventTypingStarted      = "typing_started"
	EventTypingStopped      = "typing_stopped"
	EventSendNotification   = "send_notification"
	EventConversationBanned = "conversation_banned"
)

// Outbound event names.
const (
	EventSendMessageError    = "send_message_error"
	EventMessageCreated      = "message_created"
	EventUserTyping          = "user_typing"
	EventUserStoppedTyping   = "user_stopped_typing"
	EventNotificationCreated = "notification_created"
)

// Event is a single websocket frame: an event name and an opaque payload.
// The relay only inspects the payload fields it needs for routing.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RoomID is a conversation or person identifier used as a room key.
// Callers send ids as JSON numbers or strings interchangeably; both
// canonicalize to the same key, and the original token is preserved so
// outbound payloads echo the caller's representation.
type RoomID struct {
	raw json.RawMessage
	key string
}

func (id *RoomID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = RoomID{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RoomID{raw: append(json.RawMessage(nil), b...), key: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = RoomID{raw: append(json.RawMessage(nil), b...), key: n.String()}
	return nil
}

func (id RoomID) MarshalJSON() ([]byte, error) {
	if id.raw == nil {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// Key returns the canonical room key for the id. Every room-key use
// site goes through this single canonicalization.
func (id RoomID) Key() string {
	return id.key
}

func (id RoomID) IsZero() bool {
	return id.key == ""
}

// messageEnvelope holds the only fields of a chat message the relay
// inspects; the rest of the record is broadcast untouched.
type messageEnvelope struct {
	ConversationId RoomID `json:"id_conversation"`
	SenderId       RoomID `json:"id_emetteur"`
}

// notificationEnvelope holds the single routing field of a notification.
type notificationEnvelope struct {
	RecipientId RoomID `json:"destinataire_id"`
}

type typingPayload struct {
	UserId         RoomID `json:"userId"`
	ConversationId RoomID `json:"conversationId"`
}

type typingNotice struct {
	UserId         RoomID  `json:"userId"`
	ConversationId *RoomID `json:"conversationId,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func newEvent(name string, payload any) *Event {
	data, err := json.Marshal(payload)
	if err != nil {
		// payloads are relay-built structs; this cannot fail at runtime
		return &Event{Name: name}
	}
	return &Event{Name: name, Data: data}
}

func ErrSendMessage(reason string) *Event {
	return newEvent(EventSendMessageError, errorPayload{Error: reason})
}

func MessageCreated(envelope json.RawMessage) *Event {
	return &Event{Name: EventMessageCreated, Data: envelope}
}

func UserTyping(userId RoomID) *Event {
	return newEvent(EventUserTyping, typingNotice{UserId: userId})
}

func UserStoppedTyping(userId RoomID) *Event {
	return newEvent(EventUserStoppedTyping, typingNotice{UserId: userId})
}

// UserStoppedTypingIn carries the conversation id as well; paired with
// every successful message broadcast so the sender's typing indicator
// never sticks after a message lands.
func UserStoppedTypingIn(userId, conversationId RoomID) *Event {
	return newEvent(EventUserStoppedTyping, typingNotice{UserId: userId, ConversationId: &conversationId})
}

func NotificationCreated(envelope json.RawMessage) *Event {
	return &Event{Name: EventNotificationCreated, Data: envelope}
}

func ConversationBanned(payload json.RawMessage) *Event {
	return &Event{Name: EventConversationBanned, Data: payload}
}
