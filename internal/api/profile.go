package api

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/honestmeals/honestmeals/internal/ledger"
	"github.com/honestmeals/honestmeals/internal/models"
)

// handleCreateProfile creates the profile row after a Supabase signup. The
// credits column takes its default starting balance from the schema.
func (s *Server) handleCreateProfile(c *fiber.Ctx) error {
	var req models.NewProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Validate required fields
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	s.logger.Info("Creating profile for user", "user_id", req.UserID)

	// Check if profile already exists
	var count int
	err := s.db.DB.Get(&count, "SELECT COUNT(*) FROM profiles WHERE id = $1", req.UserID)
	if err != nil {
		s.logger.Error("Failed to check for existing profile", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check for existing profile",
		})
	}

	if count > 0 {
		s.logger.Info("Profile already exists for user", "user_id", req.UserID)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Profile already exists for this user",
		})
	}

	_, err = s.db.DB.Exec(
		"INSERT INTO profiles (id, full_name, phone) VALUES ($1, $2, $3)",
		req.UserID, req.FullName, req.Phone,
	)
	if err != nil {
		s.logger.Error("Failed to create profile", "error", err, "user_id", req.UserID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create profile",
		})
	}

	// Fetch the complete profile with the defaulted credit balance
	var profile models.Profile
	err = s.db.DB.Get(&profile, "SELECT * FROM profiles WHERE id = $1", req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("Profile not found after creation", "user_id", req.UserID)
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Profile not found after creation",
			})
		}
		s.logger.Error("Failed to fetch created profile", "error", err, "user_id", req.UserID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch created profile",
		})
	}

	s.logger.Info("Profile created successfully", "user_id", profile.ID, "credits", profile.Credits)

	return c.Status(fiber.StatusCreated).JSON(models.NewProfileResponse{
		Profile: profile,
		Success: true,
	})
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var profile models.Profile
	err := s.db.DB.Get(&profile, "SELECT * FROM profiles WHERE id = $1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		s.logger.Error("Failed to fetch profile", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{"profile": profile, "bmi": profile.BMI()})
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	sets := []string{"updated_at = $2"}
	args := []interface{}{userID, time.Now()}
	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if req.FullName != nil {
		appendSet("full_name", *req.FullName)
	}
	if req.Phone != nil {
		appendSet("phone", *req.Phone)
	}
	if req.HeightCm != nil {
		appendSet("height_cm", *req.HeightCm)
	}
	if req.WeightKg != nil {
		appendSet("weight_kg", *req.WeightKg)
	}
	if len(sets) == 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No fields to update"})
	}

	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := s.db.DB.Exec(query, args...)
	if err != nil {
		s.logger.Error("Failed to update profile", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}

	var profile models.Profile
	if err := s.db.DB.Get(&profile, "SELECT * FROM profiles WHERE id = $1", userID); err != nil {
		s.logger.Error("Failed to fetch updated profile", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch updated profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

// handleUploadAvatar stages the uploaded image locally, pushes it to the
// hosted bucket and stores the public URL on the profile.
func (s *Server) handleUploadAvatar(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	if s.uploader == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Avatar storage is not configured"})
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read uploaded file"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read uploaded file"})
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))
	stagedPath, err := s.storage.StoreFromBytes(c.Context(), data, ext)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	defer s.storage.Delete(c.Context(), stagedPath)

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/" + ext
	}

	objectPath := fmt.Sprintf("%s/%s.%s", userID, uuid.NewString(), ext)
	publicURL, err := s.uploader.Upload(objectPath, bytes.NewReader(data), contentType)
	if err != nil {
		s.logger.Error("Failed to upload avatar", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	if _, err := s.db.DB.Exec("UPDATE profiles SET avatar_url = $2, updated_at = $3 WHERE id = $1", userID, publicURL, time.Now()); err != nil {
		s.logger.Error("Failed to store avatar URL", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store avatar URL"})
	}

	return c.JSON(fiber.Map{"avatar_url": publicURL})
}

func (s *Server) handleGetCredits(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	balance, err := s.ledger.GetBalance(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrProfileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		s.logger.Error("Failed to read balance", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read balance"})
	}

	return c.JSON(fiber.Map{"credits": balance})
}
