package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"skillswap-hub/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, content, created_at`

// MessageRepository defines interactions with a conversation's message log.
type MessageRepository interface {
	Append(ctx context.Context, conversationID, senderID int64, content string) (models.Message, error)
	Window(ctx context.Context, conversationID int64, limit, skip int) ([]models.Message, bool, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append inserts one message and bumps the conversation's last_message_at in a
// single transaction. The conversation row update takes a row lock first, so
// concurrent appends to the same conversation serialize and the message
// timestamp (clock_timestamp, taken under the lock) is monotonic with append
// order. Fails with ErrConversationNotFound if the conversation does not exist.
func (r *MessageRepo) Append(ctx context.Context, conversationID, senderID int64, content string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var ts time.Time
	err = tx.QueryRowxContext(ctx,
		`UPDATE conversations SET last_message_at = clock_timestamp() WHERE id=$1 RETURNING last_message_at`,
		conversationID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content, created_at)
         VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		conversationID, senderID, content, ts).
		Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.Timestamp)
	if err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Window returns a page taken from the end of the log: skip=0 yields the most
// recent limit messages, larger skips page backward. Messages come back in
// chronological order; the second return value reports whether older history
// remains before the window.
func (r *MessageRepo) Window(ctx context.Context, conversationID int64, limit, skip int) ([]models.Message, bool, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM messages WHERE conversation_id=$1`, conversationID)
	if err != nil {
		return nil, false, err
	}

	start, end := windowBounds(total, skip, limit)
	if start >= end {
		return []models.Message{}, start > 0, nil
	}

	var msgs []models.Message
	err = r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE conversation_id=$1
         ORDER BY id ASC
         LIMIT $3 OFFSET $2`,
		conversationID, start, end-start)
	if err != nil {
		return nil, false, err
	}
	return msgs, start > 0, nil
}

// windowBounds computes the half-open index range [start, end) of the window
// anchored at the end of a log of the given total length.
func windowBounds(total, skip, limit int) (int, int) {
	end := total - skip
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return start, end
}
