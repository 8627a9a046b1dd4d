package chat

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/honestmeals/honestmeals/internal/models"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)

	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewStore(db), mock
}

func TestCreateChat(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chats (id, user_id, title, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	chat, err := store.CreateChat(context.Background(), "user-1", "Cutting plan")
	assert.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
	assert.Equal(t, "user-1", chat.UserID)
	assert.Equal(t, "Cutting plan", chat.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages (id, chat_id, role, content, type, created_at) VALUES ($1, $2, $3, $4, $5, $6)")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := store.AppendMessage(context.Background(), "chat-1", models.RoleUser, "hello", models.MessageTypeText)
	assert.NoError(t, err)
	assert.Equal(t, "chat-1", msg.ChatID)
	assert.Equal(t, models.RoleUser, msg.Role)
	assert.Equal(t, models.MessageTypeText, msg.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMessagesOrdered(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, chat_id, role, content, type, created_at FROM messages WHERE chat_id = $1 ORDER BY created_at ASC")).
		WithArgs("chat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "role", "content", "type"}).
			AddRow("m1", "chat-1", models.RoleUser, "hi", "text").
			AddRow("m2", "chat-1", models.RoleAssistant, "hello", "text"))

	msgs, err := store.ListMessages(context.Background(), "chat-1")
	assert.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
}

func TestDeleteChatNotOwned(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chats WHERE id = $1 AND user_id = $2")).
		WithArgs("chat-1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteChat(context.Background(), "intruder", "chat-1")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestDeleteChat(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chats WHERE id = $1 AND user_id = $2")).
		WithArgs("chat-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.DeleteChat(context.Background(), "user-1", "chat-1")
	assert.NoError(t, err)
}
