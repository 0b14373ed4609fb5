package models

import "time"

// Message is one entry in a conversation's append-only log. The timestamp is
// assigned by the store at append time, never by the client.
type Message struct {
	ID             int64     `db:"id" json:"_id"`
	ConversationID int64     `db:"conversation_id" json:"-"`
	SenderID       int64     `db:"sender_id" json:"-"`
	Content        string    `db:"content" json:"content"`
	Timestamp      time.Time `db:"created_at" json:"timestamp"`
}

// PopulatedMessage is a message with its sender resolved to the display-safe
// projection, as delivered to clients.
type PopulatedMessage struct {
	ID        int64       `json:"_id"`
	Sender    UserProfile `json:"sender"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Populate attaches the sender projection to the message.
func (m Message) Populate(sender UserProfile) PopulatedMessage {
	return PopulatedMessage{
		ID:        m.ID,
		Sender:    sender,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}
