package health

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/honestmeals/honestmeals/internal/models"
)

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestSummarizeTotals(t *testing.T) {
	logs := []models.HealthLog{
		{LogDate: day("2026-08-30"), Calories: 1800, Protein: 120, Carbs: 150, Fat: 60, WaterML: 2000},
		{LogDate: day("2026-08-31"), Calories: 2000, Protein: 130, Carbs: 170, Fat: 70, WaterML: 2500},
	}

	summary := Summarize(logs, day("2026-08-31").Add(10*time.Hour))
	assert.Equal(t, 2, summary.Days)
	assert.Equal(t, 3800, summary.Calories)
	assert.Equal(t, 250.0, summary.Protein)
	assert.Equal(t, 4500, summary.WaterML)
	assert.Equal(t, 1900, summary.AvgCalories)
}

func TestSummarizeStreak(t *testing.T) {
	now := day("2026-08-31").Add(9 * time.Hour)

	// Three consecutive days ending today
	logs := []models.HealthLog{
		{LogDate: day("2026-08-29")},
		{LogDate: day("2026-08-30")},
		{LogDate: day("2026-08-31")},
	}
	assert.Equal(t, 3, Summarize(logs, now).Streak)

	// Today not yet logged: the streak ending yesterday still counts
	logs = []models.HealthLog{
		{LogDate: day("2026-08-29")},
		{LogDate: day("2026-08-30")},
	}
	assert.Equal(t, 2, Summarize(logs, now).Streak)

	// A gap two days ago breaks the streak
	logs = []models.HealthLog{
		{LogDate: day("2026-08-27")},
		{LogDate: day("2026-08-31")},
	}
	assert.Equal(t, 1, Summarize(logs, now).Streak)

	// Nothing recent: no streak
	logs = []models.HealthLog{{LogDate: day("2026-08-20")}}
	assert.Equal(t, 0, Summarize(logs, now).Streak)

	assert.Equal(t, 0, Summarize(nil, now).Streak)
}

func TestProfileBMIInSummary(t *testing.T) {
	profile := models.Profile{HeightCm: 180, WeightKg: 81}
	assert.InDelta(t, 25.0, profile.BMI(), 0.01)

	missing := models.Profile{}
	assert.Equal(t, 0.0, missing.BMI())
}

func TestAddWorkout(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	store := NewStore(sqlx.NewDb(mockDB, "sqlmock"))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO workout_logs")).WillReturnResult(sqlmock.NewResult(0, 1))

	log, err := store.AddWorkout(context.Background(), models.WorkoutLog{
		UserID:      "user-1",
		Activity:    "running",
		DurationMin: 30,
		Calories:    320,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, log.ID)
	assert.False(t, log.LoggedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLog(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	store := NewStore(sqlx.NewDb(mockDB, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO health_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "water_ml", "calories"}).
			AddRow("log-1", "user-1", 2500, 1800))

	saved, err := store.UpsertLog(context.Background(), models.HealthLog{
		UserID:  "user-1",
		WaterML: 500,
	})
	assert.NoError(t, err)
	assert.Equal(t, 2500, saved.WaterML, "counters accumulate across upserts")
}
