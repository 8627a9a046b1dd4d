package api

import (
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/honestmeals/honestmeals/internal/chat"
	"github.com/honestmeals/honestmeals/internal/gymna"
	"github.com/honestmeals/honestmeals/internal/jobs"
	"github.com/honestmeals/honestmeals/internal/ledger"
	"github.com/honestmeals/honestmeals/internal/models"
)

// handleGeneratePlan debits the plan cost up front and queues the generation
// job. The worker refunds the debit if the job terminally fails.
func (s *Server) handleGeneratePlan(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req models.GeneratePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payload := jobs.PlanJobPayload{
		JobID:    uuid.NewString(),
		UserID:   userID,
		ChatID:   req.ChatID,
		PlanType: req.PlanType,
		Answers:  req.Answers,
	}
	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// Ownership check before any credit moves.
	if _, err := s.chats.GetChat(c.Context(), userID, req.ChatID); err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found"})
		}
		s.logger.Error("Failed to fetch chat", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch chat"})
	}

	balance, err := s.ledger.Debit(c.Context(), userID, gymna.PlanCost)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Insufficient credits"})
		}
		s.logger.Error("Failed to debit plan cost", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to debit credits"})
	}

	s.tracker.Update(c.Context(), payload.JobID, models.PlanJobQueued, nil)

	payloadBytes, _ := json.Marshal(payload)
	msg := &sarama.ProducerMessage{
		Topic: s.cfg.Kafka.PlanTopic,
		Key:   sarama.StringEncoder(payload.JobID),
		Value: sarama.ByteEncoder(payloadBytes),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.logger.Error("Failed to queue plan job", "error", err, "job_id", payload.JobID)
		// The job never reached the queue; give the credits back now.
		if _, refundErr := s.ledger.Credit(c.Context(), userID, gymna.PlanCost); refundErr != nil {
			s.logger.Error("Refund failed; balance left short", "error", refundErr, "user_id", userID)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to queue plan job"})
	}

	s.logger.Info("Plan job queued", "job_id", payload.JobID, "plan_type", payload.PlanType, "user_id", userID)

	return c.Status(fiber.StatusAccepted).JSON(models.GeneratePlanResponse{
		JobID:   payload.JobID,
		Status:  models.PlanJobQueued,
		Credits: balance,
	})
}

func (s *Server) handlePlanJobStatus(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	status, err := s.tracker.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
		}
		s.logger.Error("Failed to read job status", "error", err, "job_id", c.Params("id"))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read job status"})
	}

	return c.JSON(status)
}

func (s *Server) handleListPlans(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	records, err := s.plans.ListByChat(c.Context(), userID, c.Params("id"))
	if err != nil {
		s.logger.Error("Failed to list plans", "error", err, "chat_id", c.Params("id"))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list plans"})
	}

	return c.JSON(fiber.Map{"plans": records})
}
