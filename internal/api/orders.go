package api

import (
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2"
	jwtv4 "github.com/golang-jwt/jwt/v4"

	"github.com/honestmeals/honestmeals/internal/models"
	"github.com/honestmeals/honestmeals/internal/orders"
)

// handleCreateOrder stores the order and hands back the WhatsApp checkout
// URL. The confirmation email goes out asynchronously through Kafka.
func (s *Server) handleCreateOrder(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req models.NewOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	// Price every line against the current catalog, not client-sent prices.
	available, err := s.meals.List(c.Context(), "", "")
	if err != nil {
		s.logger.Error("Failed to load meal catalog", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load meal catalog"})
	}
	catalog := make(map[string]models.Meal, len(available))
	for _, meal := range available {
		catalog[meal.ID] = meal
	}

	resp, err := s.orders.Create(c.Context(), userID, req, catalog)
	if err != nil {
		if errors.Is(err, orders.ErrEmptyOrder) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		s.logger.Error("Failed to create order", "error", err, "user_id", userID)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.queueOrderEmail(c, resp)

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// queueOrderEmail publishes the confirmation-email job. Failures are logged
// and swallowed; the order itself already committed.
func (s *Server) queueOrderEmail(c *fiber.Ctx, resp models.NewOrderResponse) {
	email := s.userEmail(c)
	if email == "" {
		return
	}

	var name string
	_ = s.db.DB.Get(&name, "SELECT full_name FROM profiles WHERE id = $1", resp.Order.UserID)

	payload := models.OrderEmailPayload{
		OrderID: resp.Order.ID,
		To:      email,
		Name:    name,
		Total:   resp.Order.TotalINR,
		Items:   resp.Items,
	}
	payloadBytes, _ := json.Marshal(payload)
	msg := &sarama.ProducerMessage{
		Topic: s.cfg.Kafka.EmailTopic,
		Key:   sarama.StringEncoder(resp.Order.ID),
		Value: sarama.ByteEncoder(payloadBytes),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.logger.Error("Failed to queue order email", "error", err, "order_id", resp.Order.ID)
	}
}

func (s *Server) userEmail(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*jwtv4.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwtv4.MapClaims)
	if !ok {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

func (s *Server) handleListOrders(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	userOrders, err := s.orders.ListByUser(c.Context(), userID)
	if err != nil {
		s.logger.Error("Failed to list orders", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list orders"})
	}

	return c.JSON(fiber.Map{"orders": userOrders})
}

func (s *Server) handleListOrderItems(c *fiber.Ctx) error {
	userID := s.userID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	// Scope the lookup to the caller's own orders.
	userOrders, err := s.orders.ListByUser(c.Context(), userID)
	if err != nil {
		s.logger.Error("Failed to list orders", "error", err, "user_id", userID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list orders"})
	}
	orderID := c.Params("id")
	owned := false
	for _, order := range userOrders {
		if order.ID == orderID {
			owned = true
			break
		}
	}
	if !owned {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}

	items, err := s.orders.ListItems(c.Context(), orderID)
	if err != nil {
		s.logger.Error("Failed to list order items", "error", err, "order_id", orderID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list order items"})
	}

	return c.JSON(fiber.Map{"items": items})
}
