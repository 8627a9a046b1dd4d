// Package chat persists Gymna conversation threads and their messages.
// Message lists are append-only; ordering by created_at is the only
// sequencing guarantee.
package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/honestmeals/honestmeals/internal/models"
)

// ErrChatNotFound is returned when the chat does not exist or is not owned
// by the requesting user.
var ErrChatNotFound = errors.New("chat not found")

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreateChat creates a new conversation thread for the user.
func (s *Store) CreateChat(ctx context.Context, userID, title string) (models.Chat, error) {
	chat := models.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chats (id, user_id, title, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		chat.ID, chat.UserID, chat.Title, chat.CreatedAt, chat.UpdatedAt,
	)
	if err != nil {
		return models.Chat{}, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// GetChat fetches a chat owned by the user.
func (s *Store) GetChat(ctx context.Context, userID, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := s.db.GetContext(ctx, &chat,
		"SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = $1 AND user_id = $2",
		chatID, userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Chat{}, ErrChatNotFound
		}
		return models.Chat{}, fmt.Errorf("failed to fetch chat: %w", err)
	}
	return chat, nil
}

// ListChats returns the user's chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	chats := []models.Chat{}
	err := s.db.SelectContext(ctx, &chats,
		"SELECT id, user_id, title, created_at, updated_at FROM chats WHERE user_id = $1 ORDER BY updated_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// ListMessages returns the chat's messages in creation order.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.db.SelectContext(ctx, &messages,
		"SELECT id, chat_id, role, content, type, created_at FROM messages WHERE chat_id = $1 ORDER BY created_at ASC",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// AppendMessage writes one immutable turn to the chat.
func (s *Store) AppendMessage(ctx context.Context, chatID, role, content, msgType string) (models.Message, error) {
	msg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Type:      msgType,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, chat_id, role, content, type, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		msg.ID, msg.ChatID, msg.Role, msg.Content, msg.Type, msg.CreatedAt,
	)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to append message: %w", err)
	}
	return msg, nil
}

// Touch bumps the chat's updated_at so recency ordering reflects activity.
func (s *Store) Touch(ctx context.Context, chatID string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE chats SET updated_at = NOW() WHERE id = $1", chatID); err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	return nil
}

// DeleteChat removes the chat; messages and plans cascade with it.
func (s *Store) DeleteChat(ctx context.Context, userID, chatID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chats WHERE id = $1 AND user_id = $2", chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrChatNotFound
	}
	return nil
}
