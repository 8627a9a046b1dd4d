package plans

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/honestmeals/honestmeals/internal/models"
)

func TestParsePlanOutputDiet(t *testing.T) {
	raw := []byte("```json\n" + `{
		"title": "High Protein Cut",
		"daily_calories": 1800,
		"meals": [
			{"name": "Breakfast", "time": "08:00", "items": "Oats, eggs", "calories": 450, "protein_g": 32, "carbs_g": 40, "fat_g": 14}
		]
	}` + "\n```")

	title, payload, err := ParsePlanOutput(models.PlanTypeDiet, raw)
	assert.NoError(t, err)
	assert.Equal(t, "High Protein Cut", title)

	var plan models.DietPlan
	assert.NoError(t, json.Unmarshal(payload, &plan))
	assert.Equal(t, 1800, plan.DailyCalories)
	assert.Len(t, plan.Meals, 1)
	assert.Equal(t, 32.0, plan.Meals[0].Protein)
}

func TestParsePlanOutputWorkout(t *testing.T) {
	raw := []byte(`{
		"title": "Push Pull Legs",
		"days": [
			{"day": "Monday", "focus": "Push", "exercises": [{"name": "Bench Press", "sets": 4, "reps": "8-10"}]}
		]
	}`)

	title, payload, err := ParsePlanOutput(models.PlanTypeWorkout, raw)
	assert.NoError(t, err)
	assert.Equal(t, "Push Pull Legs", title)
	assert.NotEmpty(t, payload)
}

func TestParsePlanOutputRejectsBadInput(t *testing.T) {
	_, _, err := ParsePlanOutput(models.PlanTypeDiet, []byte("not json"))
	assert.Error(t, err)

	_, _, err = ParsePlanOutput(models.PlanTypeDiet, []byte(`{"title": "", "meals": []}`))
	assert.Error(t, err)

	_, _, err = ParsePlanOutput("yoga", []byte(`{}`))
	assert.Error(t, err)
}

func TestStoreInsertAndList(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	store := NewStore(sqlx.NewDb(mockDB, "sqlmock"))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plans")).WillReturnResult(sqlmock.NewResult(0, 1))

	plan, err := store.Insert(context.Background(), models.PlanRecord{
		ChatID:   "chat-1",
		UserID:   "user-1",
		PlanType: models.PlanTypeDiet,
		Title:    "Cut",
		Payload:  json.RawMessage(`{"title":"Cut"}`),
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, chat_id, user_id, plan_type, title, payload, created_at FROM plans WHERE chat_id = $1 AND user_id = $2 ORDER BY created_at DESC")).
		WithArgs("chat-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "user_id", "plan_type", "title", "payload"}).
			AddRow(plan.ID, "chat-1", "user-1", models.PlanTypeDiet, "Cut", []byte(`{"title":"Cut"}`)))

	records, err := store.ListByChat(context.Background(), "user-1", "chat-1")
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "Cut", records[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
