package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/honestmeals/honestmeals/internal/meals"
)

func (s *Server) handleListMeals(c *fiber.Ctx) error {
	catalog, err := s.meals.List(c.Context(), c.Query("category"), c.Query("diet_type"))
	if err != nil {
		s.logger.Error("Failed to list meals", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list meals"})
	}

	return c.JSON(fiber.Map{"meals": catalog})
}

func (s *Server) handleGetMeal(c *fiber.Ctx) error {
	meal, err := s.meals.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, meals.ErrMealNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Meal not found"})
		}
		s.logger.Error("Failed to fetch meal", "error", err, "meal_id", c.Params("id"))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch meal"})
	}

	return c.JSON(fiber.Map{"meal": meal})
}
