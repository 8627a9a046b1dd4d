// Package ledger owns the per-user credit balance that gates the Gymna
// generation features. All balance mutations go through Debit/Credit; no
// other component writes profiles.credits directly.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrInsufficientCredits is returned when a debit would take the balance
// below zero. The balance is left untouched.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrProfileNotFound is returned when no profile row exists for the user.
var ErrProfileNotFound = errors.New("profile not found")

// Ledger performs credit balance reads and atomic mutations.
type Ledger struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// GetBalance returns the current credit balance for the user.
func (l *Ledger) GetBalance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := l.db.GetContext(ctx, &balance, "SELECT credits FROM profiles WHERE id = $1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// Debit atomically decrements the balance by amount and returns the new
// balance. The decrement is conditional on the balance covering the amount,
// so two concurrent debits on the same account cannot double-spend: the
// losing request sees ErrInsufficientCredits.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	var balance int
	err := l.db.GetContext(ctx, &balance,
		"UPDATE profiles SET credits = credits - $2 WHERE id = $1 AND credits >= $2 RETURNING credits",
		userID, amount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either no such profile or not enough credits; distinguish so
			// callers can fail fast with the right message.
			if _, berr := l.GetBalance(ctx, userID); errors.Is(berr, ErrProfileNotFound) {
				return 0, ErrProfileNotFound
			}
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}
	return balance, nil
}

// Credit increments the balance by amount and returns the new balance. Used
// for the compensating refund after a failed generation; the refund restores
// exactly the amount the failed attempt debited.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	var balance int
	err := l.db.GetContext(ctx, &balance,
		"UPDATE profiles SET credits = credits + $2 WHERE id = $1 RETURNING credits",
		userID, amount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to credit credits: %w", err)
	}
	return balance, nil
}
