package models

import (
	"encoding/json"
	"time"
)

// Plan types
const (
	PlanTypeDiet    = "diet"
	PlanTypeWorkout = "workout"
)

// Plan generation job statuses tracked in Redis while the worker runs.
const (
	PlanJobQueued     = "queued"
	PlanJobGenerating = "generating"
	PlanJobParsing    = "parsing"
	PlanJobStoring    = "storing"
	PlanJobComplete   = "complete"
	PlanJobFailed     = "failed"
)

// PlanRecord is a structured diet or workout plan derived from a generation
// call, stored separately from raw chat text for tabular rendering.
type PlanRecord struct {
	ID        string          `json:"id" db:"id"`
	ChatID    string          `json:"chat_id" db:"chat_id"`
	UserID    string          `json:"user_id" db:"user_id"`
	PlanType  string          `json:"plan_type" db:"plan_type"`
	Title     string          `json:"title" db:"title"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// DietPlan is the typed payload for plan_type=diet
type DietPlan struct {
	Title         string     `json:"title"`
	DailyCalories int        `json:"daily_calories"`
	Meals         []PlanMeal `json:"meals"`
	Notes         string     `json:"notes,omitempty"`
}

// PlanMeal is one meal slot in a diet plan
type PlanMeal struct {
	Name     string  `json:"name"`
	Time     string  `json:"time"`
	Items    string  `json:"items"`
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein_g"`
	Carbs    float64 `json:"carbs_g"`
	Fat      float64 `json:"fat_g"`
}

// WorkoutPlan is the typed payload for plan_type=workout
type WorkoutPlan struct {
	Title string       `json:"title"`
	Days  []WorkoutDay `json:"days"`
	Notes string       `json:"notes,omitempty"`
}

// WorkoutDay is one training day in a workout plan
type WorkoutDay struct {
	Day       string            `json:"day"`
	Focus     string            `json:"focus"`
	Exercises []WorkoutExercise `json:"exercises"`
}

// WorkoutExercise is a single exercise prescription
type WorkoutExercise struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps string `json:"reps"`
	Rest string `json:"rest,omitempty"`
}

// GeneratePlanRequest is the questionnaire payload for the dialogue flow
type GeneratePlanRequest struct {
	ChatID   string            `json:"chat_id"`
	PlanType string            `json:"plan_type"`
	Answers  map[string]string `json:"answers"`
}

// GeneratePlanResponse acknowledges a queued plan-generation job
type GeneratePlanResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Credits int    `json:"credits"`
}
