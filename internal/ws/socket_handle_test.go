package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skillswap-hub/internal/auth"
	"skillswap-hub/internal/mocks"
	"skillswap-hub/internal/models"
	"skillswap-hub/internal/repositories"
)

func newSocketServer(t *testing.T, handler *SocketHandler) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", handler.Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
}

func TestHandleRejectsBadTokenBeforeUpgrade(t *testing.T) {
	authenticator := auth.NewAuthenticator("secret", "skillswap-hub", time.Hour)
	handler := NewSocketHandler(NewHub(), authenticator, nil, nil, nil)
	srv := newSocketServer(t, handler)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "not-a-jwt"), nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// Joins and sends over a live connection, after the handshake handler has
// long since returned. The repositories are real sqlx ones over sqlmock, so a
// canceled context would surface as a query error instead of the expected
// round trip.
func TestReadLoopServesJoinAndSendAfterHandshakeReturns(t *testing.T) {
	db, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "sqlmock")

	users := new(mocks.UserRepositoryMock)
	users.On("GetByID", mock.Anything, int64(1)).
		Return(models.User{ID: 1, Name: "alice", Email: "alice@example.com"}, nil).Once()

	ts := time.Now()
	dbmock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	dbmock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	dbmock.ExpectBegin()
	dbmock.ExpectQuery(`UPDATE conversations SET last_message_at`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"last_message_at"}).AddRow(ts))
	dbmock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(int64(5), int64(1), "hello", ts).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "created_at"}).
			AddRow(9, 5, 1, "hello", ts))
	dbmock.ExpectCommit()

	authenticator := auth.NewAuthenticator("secret", "skillswap-hub", time.Hour)
	handler := NewSocketHandler(NewHub(), authenticator,
		users, repositories.NewConversationRepo(sdb), repositories.NewMessageRepo(sdb))
	srv := newSocketServer(t, handler)

	token, err := authenticator.GenerateToken(1, "alice@example.com")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(models.ClientEvent{Event: models.EventJoinChat, ChatID: 5}))
	require.NoError(t, conn.WriteJSON(models.ClientEvent{Event: models.EventSendMessage, ChatID: 5, Content: "hello"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt models.NewMessageEvent
	require.NoError(t, conn.ReadJSON(&evt), "the joined sender must get its own message back")
	assert.Equal(t, models.EventNewMessage, evt.Event)
	assert.Equal(t, int64(5), evt.ChatID)
	assert.Equal(t, "hello", evt.Message.Content)
	assert.Equal(t, int64(1), evt.Message.Sender.ID)

	assert.NoError(t, dbmock.ExpectationsWereMet())
	users.AssertExpectations(t)
}
