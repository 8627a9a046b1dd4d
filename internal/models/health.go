package models

import "time"

// HealthLog is one day of nutrition tracking. One row per user per day,
// upserted as the day's entries accumulate.
type HealthLog struct {
	ID       string    `json:"id" db:"id"`
	UserID   string    `json:"user_id" db:"user_id"`
	LogDate  time.Time `json:"log_date" db:"log_date"`
	WaterML  int       `json:"water_ml" db:"water_ml"`
	Calories int       `json:"calories" db:"calories"`
	Protein  float64   `json:"protein_g" db:"protein_g"`
	Carbs    float64   `json:"carbs_g" db:"carbs_g"`
	Fat      float64   `json:"fat_g" db:"fat_g"`
	WeightKg float64   `json:"weight_kg" db:"weight_kg"`
}

// WorkoutLog is one logged workout session
type WorkoutLog struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Activity    string    `json:"activity" db:"activity"`
	DurationMin int       `json:"duration_min" db:"duration_min"`
	Calories    int       `json:"calories" db:"calories"`
	Notes       string    `json:"notes" db:"notes"`
	LoggedAt    time.Time `json:"logged_at" db:"logged_at"`
}

// HealthSummary aggregates a date range of health logs
type HealthSummary struct {
	Days        int     `json:"days"`
	Calories    int     `json:"calories"`
	Protein     float64 `json:"protein_g"`
	Carbs       float64 `json:"carbs_g"`
	Fat         float64 `json:"fat_g"`
	WaterML     int     `json:"water_ml"`
	Streak      int     `json:"streak"`
	BMI         float64 `json:"bmi"`
	AvgCalories int     `json:"avg_calories"`
}
