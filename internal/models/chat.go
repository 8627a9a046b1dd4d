package models

import "time"

// Message roles as required by the generation API's alternation rules.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message content types. Replies containing a markdown table are tagged
// plan_table so the client can render them tabularly.
const (
	MessageTypeText      = "text"
	MessageTypePlanTable = "plan_table"
)

// Chat is a named conversation thread owned by one user
type Chat struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is a single turn in a chat. Rows are immutable once written;
// ordering by created_at is the only sequencing guarantee.
type Message struct {
	ID        string    `json:"id" db:"id"`
	ChatID    string    `json:"chat_id" db:"chat_id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewChatRequest is the request structure for creating a chat
type NewChatRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest is the request structure for a Gymna chat turn.
// ChatID may be empty, in which case a chat is created first.
type SendMessageRequest struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// SendMessageResponse returns both persisted turns and the remaining balance
type SendMessageResponse struct {
	Chat      Chat    `json:"chat"`
	UserTurn  Message `json:"user_message"`
	Assistant Message `json:"assistant_message"`
	Credits   int     `json:"credits"`
}
