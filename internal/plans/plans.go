// Package plans stores the structured diet/workout plans produced by the
// dialogue flow, and parses model output into their typed payloads.
package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/honestmeals/honestmeals/internal/gymna"
	"github.com/honestmeals/honestmeals/internal/models"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Insert persists one plan record produced by a successful generation call.
func (s *Store) Insert(ctx context.Context, plan models.PlanRecord) (models.PlanRecord, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO plans (id, chat_id, user_id, plan_type, title, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		plan.ID, plan.ChatID, plan.UserID, plan.PlanType, plan.Title, plan.Payload, plan.CreatedAt,
	)
	if err != nil {
		return models.PlanRecord{}, fmt.Errorf("failed to insert plan: %w", err)
	}
	return plan, nil
}

// ListByChat returns the chat's plan records, newest first.
func (s *Store) ListByChat(ctx context.Context, userID, chatID string) ([]models.PlanRecord, error) {
	records := []models.PlanRecord{}
	err := s.db.SelectContext(ctx, &records,
		"SELECT id, chat_id, user_id, plan_type, title, payload, created_at FROM plans WHERE chat_id = $1 AND user_id = $2 ORDER BY created_at DESC",
		chatID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return records, nil
}

// ParsePlanOutput turns raw model output into a typed plan payload. The text
// may be wrapped in markdown fences; the payload must match the schema for
// the requested plan type.
func ParsePlanOutput(planType string, raw []byte) (title string, payload json.RawMessage, err error) {
	clean := []byte(gymna.CleanModelJSON(string(raw)))

	switch planType {
	case models.PlanTypeDiet:
		var plan models.DietPlan
		if err := json.Unmarshal(clean, &plan); err != nil {
			return "", nil, fmt.Errorf("diet plan does not match schema: %w", err)
		}
		if plan.Title == "" || len(plan.Meals) == 0 {
			return "", nil, errors.New("diet plan is missing a title or meals")
		}
		payload, _ := json.Marshal(plan)
		return plan.Title, payload, nil

	case models.PlanTypeWorkout:
		var plan models.WorkoutPlan
		if err := json.Unmarshal(clean, &plan); err != nil {
			return "", nil, fmt.Errorf("workout plan does not match schema: %w", err)
		}
		if plan.Title == "" || len(plan.Days) == 0 {
			return "", nil, errors.New("workout plan is missing a title or days")
		}
		payload, _ := json.Marshal(plan)
		return plan.Title, payload, nil

	default:
		return "", nil, fmt.Errorf("unknown plan type: %s", planType)
	}
}
