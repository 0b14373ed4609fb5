package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestWindowBounds(t *testing.T) {
	cases := []struct {
		name               string
		total, skip, limit int
		wantStart, wantEnd int
	}{
		{"latest page", 120, 0, 50, 70, 120},
		{"second page", 120, 50, 50, 20, 70},
		{"oldest page", 120, 100, 50, 0, 20},
		{"skip past start", 120, 200, 50, 0, 0},
		{"short log", 10, 0, 50, 0, 10},
		{"empty log", 0, 0, 50, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := windowBounds(tc.total, tc.skip, tc.limit)
			assert.Equal(t, tc.wantStart, start)
			assert.Equal(t, tc.wantEnd, end)
		})
	}
}

func TestWindowReturnsChronologicalPage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM messages`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(120))

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "created_at"}).
		AddRow(71, 5, 1, "m71", now).
		AddRow(72, 5, 2, "m72", now.Add(time.Second))
	mock.ExpectQuery(`SELECT id, conversation_id, sender_id, content, created_at FROM messages`).
		WithArgs(int64(5), 70, 50).
		WillReturnRows(rows)

	msgs, hasMore, err := repo.Window(context.Background(), 5, 50, 0)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m71", msgs[0].Content)
	assert.True(t, msgs[0].Timestamp.Before(msgs[1].Timestamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWindowOldestPageHasNoMore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM messages`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(120))

	rows := sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "created_at"})
	for i := 1; i <= 20; i++ {
		rows.AddRow(i, 5, 1, "m", time.Now())
	}
	mock.ExpectQuery(`SELECT id, conversation_id, sender_id, content, created_at FROM messages`).
		WithArgs(int64(5), 0, 20).
		WillReturnRows(rows)

	msgs, hasMore, err := repo.Window(context.Background(), 5, 50, 100)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Len(t, msgs, 20)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWindowSkippedPastStart(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM messages`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))

	msgs, hasMore, err := repo.Window(context.Background(), 5, 50, 40)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendStoresMessageWithStoreTimestamp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	ts := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE conversations SET last_message_at`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"last_message_at"}).AddRow(ts))
	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(int64(9), int64(2), "hello", ts).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "created_at"}).
			AddRow(101, 9, 2, "hello", ts))
	mock.ExpectCommit()

	msg, err := repo.Append(context.Background(), 9, 2, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(101), msg.ID)
	assert.Equal(t, int64(2), msg.SenderID)
	assert.True(t, msg.Timestamp.Equal(ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendUnknownConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE conversations SET last_message_at`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"last_message_at"}))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), 404, 2, "hello")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
