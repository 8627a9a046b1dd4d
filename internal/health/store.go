// Package health records daily nutrition logs and workout sessions and
// aggregates them into range summaries.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/honestmeals/honestmeals/internal/models"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// UpsertLog merges one day's nutrition entries into the user's row for that
// date. Counters accumulate; weight is replaced when provided.
func (s *Store) UpsertLog(ctx context.Context, log models.HealthLog) (models.HealthLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.LogDate.IsZero() {
		log.LogDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	var saved models.HealthLog
	err := s.db.GetContext(ctx, &saved, `
		INSERT INTO health_logs (id, user_id, log_date, water_ml, calories, protein_g, carbs_g, fat_g, weight_kg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, log_date) DO UPDATE SET
			water_ml = health_logs.water_ml + EXCLUDED.water_ml,
			calories = health_logs.calories + EXCLUDED.calories,
			protein_g = health_logs.protein_g + EXCLUDED.protein_g,
			carbs_g = health_logs.carbs_g + EXCLUDED.carbs_g,
			fat_g = health_logs.fat_g + EXCLUDED.fat_g,
			weight_kg = CASE WHEN EXCLUDED.weight_kg > 0 THEN EXCLUDED.weight_kg ELSE health_logs.weight_kg END
		RETURNING id, user_id, log_date, water_ml, calories, protein_g, carbs_g, fat_g, weight_kg`,
		log.ID, log.UserID, log.LogDate, log.WaterML, log.Calories, log.Protein, log.Carbs, log.Fat, log.WeightKg,
	)
	if err != nil {
		return models.HealthLog{}, fmt.Errorf("failed to upsert health log: %w", err)
	}
	return saved, nil
}

// ListLogs returns the user's health logs within the range, oldest first.
func (s *Store) ListLogs(ctx context.Context, userID string, from, to time.Time) ([]models.HealthLog, error) {
	logs := []models.HealthLog{}
	err := s.db.SelectContext(ctx, &logs,
		"SELECT id, user_id, log_date, water_ml, calories, protein_g, carbs_g, fat_g, weight_kg FROM health_logs WHERE user_id = $1 AND log_date BETWEEN $2 AND $3 ORDER BY log_date ASC",
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list health logs: %w", err)
	}
	return logs, nil
}

// AddWorkout appends one workout session.
func (s *Store) AddWorkout(ctx context.Context, log models.WorkoutLog) (models.WorkoutLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO workout_logs (id, user_id, activity, duration_min, calories, notes, logged_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		log.ID, log.UserID, log.Activity, log.DurationMin, log.Calories, log.Notes, log.LoggedAt,
	)
	if err != nil {
		return models.WorkoutLog{}, fmt.Errorf("failed to insert workout log: %w", err)
	}
	return log, nil
}

// ListWorkouts returns the user's workouts, newest first.
func (s *Store) ListWorkouts(ctx context.Context, userID string, limit int) ([]models.WorkoutLog, error) {
	if limit <= 0 {
		limit = 50
	}
	logs := []models.WorkoutLog{}
	err := s.db.SelectContext(ctx, &logs,
		"SELECT id, user_id, activity, duration_min, calories, notes, logged_at FROM workout_logs WHERE user_id = $1 ORDER BY logged_at DESC LIMIT $2",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workout logs: %w", err)
	}
	return logs, nil
}

// Summarize aggregates the range's logs into totals, the current logging
// streak and the profile-derived BMI.
func (s *Store) Summarize(ctx context.Context, profile models.Profile, from, to time.Time) (models.HealthSummary, error) {
	logs, err := s.ListLogs(ctx, profile.ID, from, to)
	if err != nil {
		return models.HealthSummary{}, err
	}

	summary := Summarize(logs, time.Now().UTC())
	summary.BMI = profile.BMI()
	return summary, nil
}

// Summarize computes totals and the logging streak from a day-ordered log
// slice. The streak counts consecutive logged days ending today or
// yesterday relative to now.
func Summarize(logs []models.HealthLog, now time.Time) models.HealthSummary {
	var summary models.HealthSummary
	summary.Days = len(logs)

	logged := make(map[string]bool, len(logs))
	for _, l := range logs {
		summary.Calories += l.Calories
		summary.Protein += l.Protein
		summary.Carbs += l.Carbs
		summary.Fat += l.Fat
		summary.WaterML += l.WaterML
		logged[l.LogDate.Format("2006-01-02")] = true
	}

	if summary.Days > 0 {
		summary.AvgCalories = summary.Calories / summary.Days
	}

	day := now.Truncate(24 * time.Hour)
	if !logged[day.Format("2006-01-02")] {
		// A streak may still be alive if yesterday was logged
		day = day.AddDate(0, 0, -1)
	}
	for logged[day.Format("2006-01-02")] {
		summary.Streak++
		day = day.AddDate(0, 0, -1)
	}

	return summary
}
