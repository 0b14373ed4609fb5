package models

import "time"

// Conversation is a private thread between exactly two users. The participant
// pair is stored normalized (user1_id < user2_id) so the pair is unique.
type Conversation struct {
	ID            int64     `db:"id" json:"_id"`
	User1ID       int64     `db:"user1_id" json:"-"`
	User2ID       int64     `db:"user2_id" json:"-"`
	LastMessageAt time.Time `db:"last_message_at" json:"lastMessage"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// HasParticipant reports whether the user is one of the two participants.
func (c Conversation) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the participant that is not the given user.
func (c Conversation) OtherParticipant(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// ParticipantIDs returns both participant ids.
func (c Conversation) ParticipantIDs() []int64 {
	return []int64{c.User1ID, c.User2ID}
}
