package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"skillswap-hub/internal/auth"
	"skillswap-hub/internal/models"
	"skillswap-hub/internal/observability"
	"skillswap-hub/internal/repositories"
)

// SocketHandler owns the single multiplexed websocket endpoint. A connection
// authenticates once at handshake time and then carries join_chat,
// send_message and typing events for any number of conversations.
type SocketHandler struct {
	hub           *Hub
	authenticator *auth.Authenticator
	users         repositories.UserRepository
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, authenticator *auth.Authenticator, users repositories.UserRepository, conversations repositories.ConversationRepository, messages repositories.MessageRepository) *SocketHandler {
	return &SocketHandler{
		hub:           hub,
		authenticator: authenticator,
		users:         users,
		conversations: conversations,
		messages:      messages,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle verifies the credential, upgrades the connection and runs the event
// loop. A bad token is rejected before the upgrade.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("skillswap-hub/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sess := NewSession(conn, user.Profile())
	sess.DeviceID = observability.DeviceIDFromRequest(c.Request)
	sess.IP = observability.IPFromRequest(c.Request)
	sess.RequestID = observability.RequestIDFromRequest(c.Request)
	sess.TraceID = span.SpanContext().TraceID().String()

	h.hub.Connect(sess)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishSessionEvent(ctx, sess, 0, "ws_connect", "")

	// net/http cancels the request context the moment this handler returns,
	// hijacked connection or not; the loop keeps the trace/span values but
	// must not inherit the cancelation.
	go h.readLoop(context.WithoutCancel(ctx), sess, conn)
}

func (h *SocketHandler) readLoop(ctx context.Context, sess *Session, conn *websocket.Conn) {
	var closeReason string
	defer func() {
		h.hub.Disconnect(sess)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishSessionEvent(ctx, sess, 0, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		var evt models.ClientEvent
		if err := conn.ReadJSON(&evt); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishSessionEvent(ctx, sess, 0, "ws_error", closeReason)
			}
			return
		}
		h.dispatch(ctx, sess, evt)
	}
}

// dispatch routes one client event. Failures are logged and counted; there is
// no acknowledgment channel back to the client, so none is sent.
func (h *SocketHandler) dispatch(ctx context.Context, sess *Session, evt models.ClientEvent) {
	switch evt.Event {
	case models.EventJoinChat:
		h.handleJoin(ctx, sess, evt.ChatID)
	case models.EventSendMessage:
		h.handleSend(ctx, sess, evt.ChatID, evt.Content)
	case models.EventTyping:
		h.handleTyping(sess, evt.ChatID)
	default:
		log.Printf("ws: unknown event %q from user %d", evt.Event, sess.UserID)
	}
}

func (h *SocketHandler) handleJoin(ctx context.Context, sess *Session, chatID int64) {
	member, err := h.conversations.IsParticipant(ctx, chatID, sess.UserID)
	if err != nil {
		log.Printf("ws: join membership check failed for user %d chat %d: %v", sess.UserID, chatID, err)
		return
	}
	if !member {
		log.Printf("ws: user %d is not a participant of chat %d, join ignored", sess.UserID, chatID)
		return
	}
	h.hub.Join(sess, chatID)
	h.hub.sendTypingSnapshot(sess, chatID)
	observability.IncWSEvent("join_chat")
}

// handleSend persists the message and fans it out. Persistence happens before
// any broadcast, under the per-conversation lock, so a store failure never
// leaks a partial message and fan-out order matches append order. Delivery
// does not depend on the sender having joined the room.
func (h *SocketHandler) handleSend(ctx context.Context, sess *Session, chatID int64, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		log.Printf("ws: empty message from user %d ignored", sess.UserID)
		return
	}

	member, err := h.conversations.IsParticipant(ctx, chatID, sess.UserID)
	if err != nil {
		log.Printf("ws: send membership check failed for user %d chat %d: %v", sess.UserID, chatID, err)
		return
	}
	if !member {
		log.Printf("ws: user %d is not a participant of chat %d, message dropped", sess.UserID, chatID)
		return
	}

	h.hub.lockConversation(chatID)
	defer h.hub.unlockConversation(chatID)

	msg, err := h.messages.Append(ctx, chatID, sess.UserID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			log.Printf("ws: message to unknown chat %d from user %d dropped", chatID, sess.UserID)
		} else {
			log.Printf("ws: failed to store message for chat %d: %v", chatID, err)
		}
		return
	}

	h.hub.BroadcastNewMessage(chatID, msg.Populate(sess.Profile))
	observability.IncWSEvent("send_message")
}

// handleTyping never touches the store: room membership is gate enough, since
// joining already required a membership check.
func (h *SocketHandler) handleTyping(sess *Session, chatID int64) {
	if !h.hub.InRoom(sess, chatID) {
		log.Printf("ws: typing from user %d outside chat %d ignored", sess.UserID, chatID)
		return
	}
	h.hub.BroadcastTyping(chatID, sess)
	observability.IncWSEvent("typing")
}

func (h *SocketHandler) validateToken(header string) (int64, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.authenticator.ValidateToken(parts[1])
	}
	return 0, fmt.Errorf("invalid token")
}
