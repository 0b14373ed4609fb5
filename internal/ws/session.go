package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"skillswap-hub/internal/models"
)

// wsConn is the subset of *websocket.Conn the hub writes to. Tests substitute
// in-memory fakes.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is the server-side state of one live connection: the verified user
// identity plus connection metadata. Room membership lives in the hub and is
// dropped on disconnect; a reconnecting client must join again.
type Session struct {
	ID          string
	UserID      int64
	Profile     models.UserProfile
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time

	conn    wsConn
	writeMu sync.Mutex
}

// NewSession wraps an upgraded connection for a verified user.
func NewSession(conn wsConn, profile models.UserProfile) *Session {
	return &Session{
		ID:          newConnID(),
		UserID:      profile.ID,
		Profile:     profile,
		ConnectedAt: time.Now(),
		conn:        conn,
	}
}

// write sends one text frame. Writes are serialized per connection because
// gorilla/websocket does not allow concurrent writers.
func (s *Session) write(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) close() {
	s.conn.Close()
}
