package gymna

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/honestmeals/honestmeals/internal/chat"
	"github.com/honestmeals/honestmeals/internal/ledger"
	"github.com/honestmeals/honestmeals/internal/models"
)

// mockModel implements ModelClient for orchestrator tests.
type mockModel struct {
	reply      string
	err        error
	calls      int
	lastUser   string
	lastTurns  []Turn
	structured []byte
}

func (m *mockModel) Generate(ctx context.Context, history []Turn, userText string) (string, error) {
	m.calls++
	m.lastTurns = history
	m.lastUser = userText
	return m.reply, m.err
}

func (m *mockModel) GenerateStructured(ctx context.Context, prompt string) ([]byte, error) {
	m.calls++
	return m.structured, m.err
}

func setupOrchestrator(t *testing.T, model ModelClient) (*Orchestrator, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)

	db := sqlx.NewDb(mockDB, "sqlmock")
	o := NewOrchestrator(ledger.New(db), chat.NewStore(db), "gemini-pro", time.Second).WithModel(model)
	return o, mock
}

func expectChatLookup(mock sqlmock.Sqlmock, chatID, userID string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = $1 AND user_id = $2")).
		WithArgs(chatID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title"}).AddRow(chatID, userID, "Chat"))
}

func TestSendMessageSuccess(t *testing.T) {
	model := &mockModel{reply: "Eat 150g of protein daily."}
	o, mock := setupOrchestrator(t, model)

	expectChatLookup(mock, "chat-1", "user-1")

	// balance=3, debit leaves 2
	mock.ExpectQuery(regexp.QuoteMeta("SELECT credits FROM profiles WHERE id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE profiles SET credits = credits - $2 WHERE id = $1 AND credits >= $2 RETURNING credits")).
		WithArgs("user-1", MessageCost).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(2))

	// empty history
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, chat_id, role, content, type, created_at FROM messages WHERE chat_id = $1 ORDER BY created_at ASC")).
		WithArgs("chat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "role", "content", "type"}))

	// user turn, assistant turn, chat touch
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET updated_at = NOW() WHERE id = $1")).
		WithArgs("chat-1").WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := o.SendMessage(context.Background(), "user-1", "chat-1", "how much protein?")
	assert.NoError(t, err)
	assert.Equal(t, 2, resp.Credits, "balance_after must be balance_before - 1")
	assert.Equal(t, models.RoleUser, resp.UserTurn.Role)
	assert.Equal(t, models.RoleAssistant, resp.Assistant.Role)
	assert.Equal(t, models.MessageTypeText, resp.Assistant.Type)
	assert.Equal(t, 1, model.calls)
	// First turn of a fresh chat carries the system preamble
	assert.Contains(t, model.lastUser, SystemPreamble)
	assert.Contains(t, model.lastUser, "how much protein?")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendMessageTableReplyTaggedPlanTable(t *testing.T) {
	model := &mockModel{reply: "| Day | Meal |\n|---|---|\n| Mon | Oats |"}
	o, mock := setupOrchestrator(t, model)

	expectChatLookup(mock, "chat-1", "user-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT credits FROM profiles")).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE profiles SET credits = credits - $2")).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, chat_id, role, content, type, created_at FROM messages")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "role", "content", "type"}).
			AddRow("m1", "chat-1", models.RoleUser, "hi", "text").
			AddRow("m2", "chat-1", models.RoleAssistant, "hello", "text"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET updated_at")).WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := o.SendMessage(context.Background(), "user-1", "chat-1", "give me a diet plan")
	assert.NoError(t, err)
	assert.Equal(t, models.MessageTypePlanTable, resp.Assistant.Type)
	// History already has turns, so no preamble this time
	assert.Equal(t, "give me a diet plan", model.lastUser)
	assert.Len(t, model.lastTurns, 2)
}

func TestSendMessageInsufficientCredits(t *testing.T) {
	model := &mockModel{reply: "should never be called"}
	o, mock := setupOrchestrator(t, model)

	expectChatLookup(mock, "chat-1", "user-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT credits FROM profiles WHERE id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(0))

	_, err := o.SendMessage(context.Background(), "user-1", "chat-1", "hello")
	assert.ErrorIs(t, err, ledger.ErrInsufficientCredits)
	assert.Equal(t, 0, model.calls, "external endpoint must not be called at zero balance")
	assert.NoError(t, mock.ExpectationsWereMet(), "ledger must not be mutated")
}

func TestSendMessageGenerationFailureRefunds(t *testing.T) {
	model := &mockModel{err: errors.New("upstream 503")}
	o, mock := setupOrchestrator(t, model)

	expectChatLookup(mock, "chat-1", "user-1")

	// balance=1, debit to 0
	mock.ExpectQuery(regexp.QuoteMeta("SELECT credits FROM profiles WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE profiles SET credits = credits - $2")).
		WithArgs("user-1", MessageCost).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(0))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, chat_id, role, content, type, created_at FROM messages")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "role", "content", "type"}))

	// The user turn is persisted before the model call and is not rolled back
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).WillReturnResult(sqlmock.NewResult(0, 1))

	// Compensating refund restores exactly the debited amount
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE profiles SET credits = credits + $2 WHERE id = $1 RETURNING credits")).
		WithArgs("user-1", MessageCost).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(1))

	_, err := o.SendMessage(context.Background(), "user-1", "chat-1", "hello")
	assert.Error(t, err)

	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
	assert.Contains(t, err.Error(), "upstream 503", "error must carry the upstream reason")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendMessageCreatesChatWhenMissing(t *testing.T) {
	model := &mockModel{reply: "done"}
	o, mock := setupOrchestrator(t, model)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chats")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT credits FROM profiles")).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE profiles SET credits = credits - $2")).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, chat_id, role, content, type, created_at FROM messages")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "role", "content", "type"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE chats SET updated_at")).WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := o.SendMessage(context.Background(), "user-1", "", "plan my week of meals please extra words")
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Chat.ID)
	assert.Equal(t, "plan my week of meals please", resp.Chat.Title, "title is the first six words")
}

func TestSendMessageUnauthorized(t *testing.T) {
	o, _ := setupOrchestrator(t, &mockModel{})

	_, err := o.SendMessage(context.Background(), "", "chat-1", "hello")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTitleFromMessage(t *testing.T) {
	assert.Equal(t, "hello", titleFromMessage("hello"))
	assert.Equal(t, "one two three four five six", titleFromMessage("one two three four five six seven eight"))
	long := titleFromMessage("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	assert.LessOrEqual(t, len(long), 48)
}
