package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"skillswap-hub/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
)

const conversationColumns = `id, user1_id, user2_id, last_message_at, created_at`

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userID, otherID int64) (models.Conversation, bool, error)
	Get(ctx context.Context, conversationID int64) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// FindOrCreate returns the conversation for the unordered pair, creating it if
// none exists. The pair is normalized and covered by a unique constraint, so
// concurrent first contacts converge on a single row; the losing insert falls
// through to the select. The second return value reports whether a new
// conversation was created.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, userID, otherID int64) (models.Conversation, bool, error) {
	if userID == otherID {
		return models.Conversation{}, false, ErrSelfConversation
	}
	user1, user2 := userID, otherID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	var convo models.Conversation
	err := r.db.GetContext(ctx, &convo,
		`INSERT INTO conversations (user1_id, user2_id) VALUES ($1, $2)
         ON CONFLICT (user1_id, user2_id) DO NOTHING
         RETURNING `+conversationColumns,
		user1, user2)
	if err == nil {
		return convo, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, err
	}

	err = r.db.GetContext(ctx, &convo,
		`SELECT `+conversationColumns+` FROM conversations WHERE user1_id=$1 AND user2_id=$2`,
		user1, user2)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, ErrConversationNotFound
	}
	return convo, false, err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID int64) (models.Conversation, error) {
	var convo models.Conversation
	err := r.db.GetContext(ctx, &convo,
		`SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return convo, err
}

// IsParticipant checks whether a user belongs to the conversation. A missing
// conversation reports false.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`,
		conversationID, userID)
	return exists, err
}

// ListForUser returns the user's conversations, most recently active first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	var convos []models.Conversation
	err := r.db.SelectContext(ctx, &convos,
		`SELECT `+conversationColumns+` FROM conversations
         WHERE user1_id=$1 OR user2_id=$1
         ORDER BY last_message_at DESC`, userID)
	return convos, err
}
