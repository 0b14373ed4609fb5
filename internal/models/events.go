package models

// Event names carried on the websocket connection.
const (
	EventJoinChat    = "join_chat"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventNewMessage  = "new_message"
	EventUserTyping  = "user_typing"
)

// ClientEvent is a client-to-server frame. All client events share one shape;
// Content is only set for send_message.
type ClientEvent struct {
	Event   string `json:"event"`
	ChatID  int64  `json:"chatId"`
	Content string `json:"content,omitempty"`
}

// NewMessageEvent is broadcast to every session joined to the conversation's
// room, the sender's own session included.
type NewMessageEvent struct {
	Event   string           `json:"event"`
	ChatID  int64            `json:"chatId"`
	Message PopulatedMessage `json:"message"`
}

// UserTypingEvent is broadcast to every session in the room except the one
// that emitted the typing notice.
type UserTypingEvent struct {
	Event  string `json:"event"`
	ChatID int64  `json:"chatId"`
	UserID int64  `json:"userId"`
}
