package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"skillswap-hub/internal/models"
	"skillswap-hub/internal/observability"
)

// Hub is the session registry: it owns the mapping from users to live
// sessions and from conversations to the sessions joined to their rooms.
// Connect, Join and Disconnect are the only mutation points.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[*Session]struct{}
	users map[int64]map[*Session]struct{}
	// rooms each session has joined, for removal on disconnect
	joined map[*Session]map[int64]struct{}

	typing *typingTable

	locksMu sync.Mutex
	locks   map[int64]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[int64]map[*Session]struct{}),
		users:  make(map[int64]map[*Session]struct{}),
		joined: make(map[*Session]map[int64]struct{}),
		typing: newTypingTable(),
		locks:  make(map[int64]*conversationLock),
	}
}

// Connect registers an authenticated session, joined to zero rooms.
func (h *Hub) Connect(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.users[s.UserID]; !ok {
		h.users[s.UserID] = make(map[*Session]struct{})
	}
	h.users[s.UserID][s] = struct{}{}
	h.joined[s] = make(map[int64]struct{})
}

// Join adds the session to a conversation's room. Joining a room the session
// is already in is a no-op.
func (h *Hub) Join(s *Session, chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.joined[s]; !ok {
		// disconnected while the join was in flight
		return
	}
	if _, ok := h.rooms[chatID]; !ok {
		h.rooms[chatID] = make(map[*Session]struct{})
	}
	h.rooms[chatID][s] = struct{}{}
	h.joined[s][chatID] = struct{}{}
}

// Disconnect removes the session from every room and from the user index.
func (h *Hub) Disconnect(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *Session) {
	for chatID := range h.joined[s] {
		if room, ok := h.rooms[chatID]; ok {
			delete(room, s)
			if len(room) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	delete(h.joined, s)
	if sessions, ok := h.users[s.UserID]; ok {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(h.users, s.UserID)
		}
	}
}

// InRoom reports whether the session is currently joined to the room.
func (h *Hub) InRoom(s *Session, chatID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[chatID][s]
	return ok
}

// roomSessions snapshots a room's membership so writes happen outside the lock.
func (h *Hub) roomSessions(chatID int64) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessions := make([]*Session, 0, len(h.rooms[chatID]))
	for s := range h.rooms[chatID] {
		sessions = append(sessions, s)
	}
	return sessions
}

// BroadcastNewMessage delivers a persisted message to every session in the
// conversation's room, the sender's sessions included. A failed write evicts
// only the broken session; delivery to the rest proceeds.
func (h *Hub) BroadcastNewMessage(chatID int64, msg models.PopulatedMessage) {
	payload, _ := json.Marshal(models.NewMessageEvent{
		Event:   models.EventNewMessage,
		ChatID:  chatID,
		Message: msg,
	})
	for _, s := range h.roomSessions(chatID) {
		h.deliver(s, chatID, payload)
	}
}

// BroadcastTyping records the typing notice and forwards it to every session
// in the room except the one that emitted it.
func (h *Hub) BroadcastTyping(chatID int64, from *Session) {
	h.typing.Set(chatID, from.UserID)
	payload, _ := json.Marshal(models.UserTypingEvent{
		Event:  models.EventUserTyping,
		ChatID: chatID,
		UserID: from.UserID,
	})
	for _, s := range h.roomSessions(chatID) {
		if s == from {
			continue
		}
		h.deliver(s, chatID, payload)
	}
}

// sendTypingSnapshot delivers the current typing indicator, if any, to a
// session that just joined the room, so a late joiner sees an in-progress
// typing notice without waiting for the next refresh.
func (h *Hub) sendTypingSnapshot(s *Session, chatID int64) {
	typist, ok := h.typing.Typist(chatID)
	if !ok || typist == s.UserID {
		return
	}
	payload, _ := json.Marshal(models.UserTypingEvent{
		Event:  models.EventUserTyping,
		ChatID: chatID,
		UserID: typist,
	})
	h.deliver(s, chatID, payload)
}

func (h *Hub) deliver(s *Session, chatID int64, payload []byte) {
	if err := s.write(payload); err != nil {
		log.Printf("websocket write error: %v", err)
		s.close()
		h.Disconnect(s)
		observability.IncWSEvent("ws_error")
		publishSessionEvent(context.Background(), s, chatID, "ws_error", err.Error())
	}
}

// lockConversation acquires the mutex serializing append+broadcast for one
// conversation, so fan-out order matches the store's append order. Each call
// must be paired with unlockConversation; the table entry is refcounted and
// freed when the last holder releases it.
func (h *Hub) lockConversation(chatID int64) {
	h.locksMu.Lock()
	lock, ok := h.locks[chatID]
	if !ok {
		lock = &conversationLock{}
		h.locks[chatID] = lock
	}
	lock.refs++
	h.locksMu.Unlock()
	lock.mu.Lock()
}

func (h *Hub) unlockConversation(chatID int64) {
	h.locksMu.Lock()
	lock := h.locks[chatID]
	lock.refs--
	if lock.refs == 0 {
		delete(h.locks, chatID)
	}
	h.locksMu.Unlock()
	lock.mu.Unlock()
}
