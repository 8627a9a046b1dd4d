package api

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/honestmeals/honestmeals/internal/models"
)

const healthDateLayout = "2006-01-02"

type healthLogRequest struct {
	LogDate  string  `json:"log_date"`
	WaterML  int     `json:"water_ml"`
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein_g"`
	Carbs    float64 `json:"carbs_g"`
	Fat      float64 `json:"fat_g"`
	WeightKg float64 `json:"weight_kg"`
}

func (s *Server) handleUpsertHealthLog(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req healthLogRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var logDate time.Time
	if req.LogDate != "" {
		var err error
		logDate, err = time.Parse(healthDateLayout, req.LogDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "log_date must be YYYY-MM-DD"})
		}
	}

	saved, err := s.health.UpsertLog(c.Context(), models.HealthLog{
		UserID:   userID,
		LogDate:  logDate,
		WaterML:  req.WaterML,
		Calories: req.Calories,
		Protein:  req.Protein,
		Carbs:    req.Carbs,
		Fat:      req.Fat,
		WeightKg: req.WeightKg,
	})
	if err != nil {
		s.logger.Error("Failed to upsert health log", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save health log"})
	}

	return c.JSON(fiber.Map{"log": saved})
}

// handleHealthSummary aggregates the requested range (default: last 30 days).
func (s *Server) handleHealthSummary(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(healthDateLayout, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be YYYY-MM-DD"})
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(healthDateLayout, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be YYYY-MM-DD"})
		}
		to = parsed
	}

	var profile models.Profile
	if err := s.db.DB.Get(&profile, "SELECT * FROM profiles WHERE id = $1", userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		s.logger.Error("Failed to fetch profile", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	summary, err := s.health.Summarize(c.Context(), profile, from, to)
	if err != nil {
		s.logger.Error("Failed to summarize health logs", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to summarize health logs"})
	}

	return c.JSON(fiber.Map{"summary": summary})
}

func (s *Server) handleAddWorkout(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req models.WorkoutLog
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Activity == "" || req.DurationMin <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "activity and duration_min are required"})
	}

	req.ID = ""
	req.UserID = userID
	saved, err := s.health.AddWorkout(c.Context(), req)
	if err != nil {
		s.logger.Error("Failed to add workout", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save workout"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"workout": saved})
}

func (s *Server) handleListWorkouts(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	workouts, err := s.health.ListWorkouts(c.Context(), userID, limit)
	if err != nil {
		s.logger.Error("Failed to list workouts", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list workouts"})
	}

	return c.JSON(fiber.Map{"workouts": workouts})
}
