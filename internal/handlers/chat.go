package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"skillswap-hub/internal/models"
	"skillswap-hub/internal/repositories"
	"skillswap-hub/internal/telemetry"
)

const defaultPageSize = 50

// ChatHandler manages the conversation HTTP surface: listing, history
// pagination and find-or-create.
type ChatHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	audit         *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler. The audit emitter may be nil.
func NewChatHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, users repositories.UserRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{conversations: conversations, messages: messages, users: users, audit: audit}
}

type conversationResponse struct {
	ID           int64                `json:"_id"`
	Participants []models.UserProfile `json:"participants"`
	LastMessage  time.Time            `json:"lastMessage"`
	CreatedAt    time.Time            `json:"createdAt"`
}

type conversationPageResponse struct {
	conversationResponse
	Messages []models.PopulatedMessage `json:"messages"`
	HasMore  bool                      `json:"hasMore"`
}

// ListChats returns the caller's conversations, most recently active first,
// with participants populated to the display-safe projection.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt64("userID")

	convos, err := h.conversations.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	ids := make([]int64, 0, len(convos)*2)
	seen := map[int64]struct{}{}
	for _, convo := range convos {
		for _, id := range convo.ParticipantIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	profiles, err := h.profilesByID(c, ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	responses := make([]conversationResponse, 0, len(convos))
	for _, convo := range convos {
		responses = append(responses, populateConversation(convo, profiles))
	}

	c.JSON(http.StatusOK, responses)
}

// GetChat returns one conversation with a window of its message log. The
// window is anchored at the end: skip=0 yields the most recent limit
// messages, larger skips page backward. The participant check runs before
// the existence lookup so non-participants cannot discover conversation ids.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	limit, skip, ok := parsePagination(c)
	if !ok {
		return
	}

	userID := c.GetInt64("userID")
	member, err := h.conversations.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized to access this chat"})
		return
	}

	convo, err := h.conversations.Get(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	msgs, hasMore, err := h.messages.Window(c.Request.Context(), chatID, limit, skip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	profiles, err := h.profilesByID(c, convo.ParticipantIDs())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	populated := make([]models.PopulatedMessage, 0, len(msgs))
	for _, msg := range msgs {
		populated = append(populated, msg.Populate(profiles[msg.SenderID]))
	}

	c.JSON(http.StatusOK, conversationPageResponse{
		conversationResponse: populateConversation(convo, profiles),
		Messages:             populated,
		HasMore:              hasMore,
	})
}

// StartChat finds or creates the conversation with another user.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		ParticipantID int64 `json:"participantId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	if userID == req.ParticipantID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	if _, err := h.users.GetByID(c.Request.Context(), req.ParticipantID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "participant not found"})
		return
	}

	convo, created, err := h.conversations.FindOrCreate(c.Request.Context(), userID, req.ParticipantID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfConversation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	profiles, err := h.profilesByID(c, convo.ParticipantIDs())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.audit.Emit(c.Request.Context(), "INFO",
			fmt.Sprintf("chat %d created with user %d", convo.ID, req.ParticipantID),
			requestIDFromContext(c), &userID)
	}
	c.JSON(status, populateConversation(convo, profiles))
}

func (h *ChatHandler) profilesByID(c *gin.Context, ids []int64) (map[int64]models.UserProfile, error) {
	users, err := h.users.BulkUsers(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}
	profiles := make(map[int64]models.UserProfile, len(users))
	for _, u := range users {
		profiles[u.ID] = u.Profile()
	}
	return profiles, nil
}

func populateConversation(convo models.Conversation, profiles map[int64]models.UserProfile) conversationResponse {
	return conversationResponse{
		ID:           convo.ID,
		Participants: []models.UserProfile{profiles[convo.User1ID], profiles[convo.User2ID]},
		LastMessage:  convo.LastMessageAt,
		CreatedAt:    convo.CreatedAt,
	}
}

func parsePagination(c *gin.Context) (int, int, bool) {
	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return 0, 0, false
		}
		limit = parsed
	}

	skip := 0
	if raw := c.Query("skip"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid skip"})
			return 0, 0, false
		}
		skip = parsed
	}

	return limit, skip, true
}
