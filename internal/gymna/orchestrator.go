// Package gymna implements the credit-gated AI assistant: the send-message
// orchestration, the history sanitizer, and the generative-language client.
package gymna

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/honestmeals/honestmeals/internal/chat"
	"github.com/honestmeals/honestmeals/internal/ledger"
	"github.com/honestmeals/honestmeals/internal/models"
)

// Credit prices. Fixed per call as a policy constant, not a computed cost.
const (
	MessageCost = 1
	PlanCost    = 3
)

// SystemPreamble is prepended to the first turn of a new conversation.
const SystemPreamble = `You are Gymna, the Honest Meals fitness and nutrition assistant. ` +
	`You help users with diet plans, workout plans, macro tracking and healthy ordering. ` +
	`Keep answers practical and concise. When asked for a plan, present it as a markdown table.`

// Orchestrator ties together the credit ledger, the conversation store and
// the model client for one synchronous send-message invocation.
type Orchestrator struct {
	ledger *ledger.Ledger
	chats  *chat.Store
	model  ModelClient

	modelName    string
	modelTimeout time.Duration
}

func NewOrchestrator(l *ledger.Ledger, chats *chat.Store, modelName string, modelTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		ledger:       l,
		chats:        chats,
		modelName:    modelName,
		modelTimeout: modelTimeout,
	}
}

// WithModel overrides the lazily constructed model client. Used by tests and
// by the worker, which shares a client across jobs.
func (o *Orchestrator) WithModel(m ModelClient) *Orchestrator {
	o.model = m
	return o
}

func (o *Orchestrator) modelClient() (ModelClient, error) {
	if o.model != nil {
		return o.model, nil
	}
	return NewModelClient(o.modelName, o.modelTimeout)
}

// SendMessage runs one Gymna turn:
//
//	credit check -> debit -> build context -> persist user turn ->
//	call model -> persist assistant turn
//
// Any failure after the debit triggers a compensating refund of exactly
// MessageCost before the error is surfaced. The user turn persisted before
// the model call is intentionally NOT rolled back on failure, so the user's
// intent survives for a retry.
func (o *Orchestrator) SendMessage(ctx context.Context, userID, chatID, text string) (models.SendMessageResponse, error) {
	if userID == "" {
		return models.SendMessageResponse{}, ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.SendMessageResponse{}, errors.New("message content is required")
	}

	// Resolve or create the chat before any credit moves; a failure here
	// needs no compensating action.
	var thread models.Chat
	var err error
	if chatID == "" {
		thread, err = o.chats.CreateChat(ctx, userID, titleFromMessage(text))
		if err != nil {
			return models.SendMessageResponse{}, &PersistenceError{Op: "create chat", Err: err}
		}
	} else {
		thread, err = o.chats.GetChat(ctx, userID, chatID)
		if err != nil {
			return models.SendMessageResponse{}, &PersistenceError{Op: "fetch chat", Err: err}
		}
	}

	// Step 1: fail fast on an empty balance, nothing mutated yet.
	balance, err := o.ledger.GetBalance(ctx, userID)
	if err != nil {
		return models.SendMessageResponse{}, &PersistenceError{Op: "read balance", Err: err}
	}
	if balance < MessageCost {
		return models.SendMessageResponse{}, ledger.ErrInsufficientCredits
	}

	// Step 2: atomic conditional debit. A concurrent request may still win
	// the race here, in which case this one fails without touching anything.
	balance, err = o.ledger.Debit(ctx, userID, MessageCost)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			return models.SendMessageResponse{}, err
		}
		return models.SendMessageResponse{}, &PersistenceError{Op: "debit", Err: err}
	}

	resp, err := o.generateAndPersist(ctx, thread, userID, text)
	if err != nil {
		o.refund(ctx, userID, MessageCost)
		return models.SendMessageResponse{}, err
	}

	resp.Credits = balance
	return resp, nil
}

// generateAndPersist covers the steps whose failure requires a refund.
func (o *Orchestrator) generateAndPersist(ctx context.Context, thread models.Chat, userID, text string) (models.SendMessageResponse, error) {
	// Step 3: build the model context from prior turns.
	prior, err := o.chats.ListMessages(ctx, thread.ID)
	if err != nil {
		return models.SendMessageResponse{}, &PersistenceError{Op: "list messages", Err: err}
	}
	history := SanitizeHistory(historyFromMessages(prior))

	outgoing := text
	if len(prior) == 0 {
		outgoing = SystemPreamble + "\n\n" + text
	}

	// Step 4: persist the raw user turn. This write survives a later
	// generation failure.
	userTurn, err := o.chats.AppendMessage(ctx, thread.ID, models.RoleUser, text, models.MessageTypeText)
	if err != nil {
		return models.SendMessageResponse{}, &PersistenceError{Op: "append user message", Err: err}
	}

	// Step 5: call the external model.
	model, err := o.modelClient()
	if err != nil {
		return models.SendMessageResponse{}, err
	}
	reply, err := model.Generate(ctx, history, outgoing)
	if err != nil {
		return models.SendMessageResponse{}, &GenerationError{Reason: err}
	}

	// Step 6: persist the assistant turn and bump chat recency.
	msgType := models.MessageTypeText
	if strings.Contains(reply, "|") {
		msgType = models.MessageTypePlanTable
	}
	assistant, err := o.chats.AppendMessage(ctx, thread.ID, models.RoleAssistant, reply, msgType)
	if err != nil {
		return models.SendMessageResponse{}, &PersistenceError{Op: "append assistant message", Err: err}
	}
	if err := o.chats.Touch(ctx, thread.ID); err != nil {
		slog.Error("Failed to touch chat", "chatID", thread.ID, "error", err)
	}

	return models.SendMessageResponse{
		Chat:      thread,
		UserTurn:  userTurn,
		Assistant: assistant,
	}, nil
}

// refund is the compensating action for a failed generation. It runs on a
// context detached from client cancellation so a disconnect cannot leave the
// ledger debited without an assistant turn. If the refund write itself fails
// the balance is left short; that is logged, not retried.
func (o *Orchestrator) refund(ctx context.Context, userID string, amount int) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := o.ledger.Credit(refundCtx, userID, amount); err != nil {
		slog.Error("Refund failed; balance left short", "userID", userID, "amount", amount, "error", err)
		return
	}
	slog.Info("Refunded credits after failed generation", "userID", userID, "amount", amount)
}

// titleFromMessage derives a chat title from the first words of the message.
func titleFromMessage(text string) string {
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	title := strings.Join(words, " ")
	if len(title) > 48 {
		title = title[:48]
	}
	return title
}
