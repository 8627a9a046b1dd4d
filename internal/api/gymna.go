package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/honestmeals/honestmeals/internal/chat"
	"github.com/honestmeals/honestmeals/internal/gymna"
	"github.com/honestmeals/honestmeals/internal/ledger"
	"github.com/honestmeals/honestmeals/internal/models"
)

func (s *Server) handleListChats(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	chats, err := s.chats.ListChats(c.Context(), userID)
	if err != nil {
		s.logger.Error("Failed to list chats", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list chats"})
	}

	return c.JSON(fiber.Map{"chats": chats})
}

func (s *Server) handleCreateChat(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req models.NewChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New chat"
	}

	thread, err := s.chats.CreateChat(c.Context(), userID, title)
	if err != nil {
		s.logger.Error("Failed to create chat", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create chat"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"chat": thread})
}

func (s *Server) handleDeleteChat(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := s.chats.DeleteChat(c.Context(), userID, c.Params("id")); err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found"})
		}
		s.logger.Error("Failed to delete chat", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete chat"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListMessages(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	// Ownership check before exposing any messages.
	thread, err := s.chats.GetChat(c.Context(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found"})
		}
		s.logger.Error("Failed to fetch chat", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch chat"})
	}

	messages, err := s.chats.ListMessages(c.Context(), thread.ID)
	if err != nil {
		s.logger.Error("Failed to list messages", "error", err, "chat_id", thread.ID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list messages"})
	}

	return c.JSON(fiber.Map{"chat": thread, "messages": messages})
}

// handleSendMessage runs one synchronous Gymna turn through the orchestrator
// and maps its error taxonomy onto HTTP statuses.
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	userID := s.userID(c)

	var req models.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message content is required"})
	}

	resp, err := s.orchestrator.SendMessage(c.Context(), userID, req.ChatID, req.Content)
	if err != nil {
		return s.sendMessageError(c, err)
	}

	return c.JSON(resp)
}

func (s *Server) sendMessageError(c *fiber.Ctx, err error) error {
	var genErr *gymna.GenerationError
	var persistErr *gymna.PersistenceError

	switch {
	case errors.Is(err, gymna.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "Insufficient credits"})
	case errors.Is(err, chat.ErrChatNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Chat not found"})
	case errors.Is(err, gymna.ErrServiceConfiguration):
		s.logger.Error("Gymna service misconfigured", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Assistant is not configured"})
	case errors.As(err, &genErr):
		s.logger.Error("Gymna generation failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Assistant failed to respond; credits were refunded"})
	case errors.As(err, &persistErr):
		s.logger.Error("Gymna persistence failed", "error", err, "op", persistErr.Op)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process message"})
	default:
		s.logger.Error("Gymna turn failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process message"})
	}
}
