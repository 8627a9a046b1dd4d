// Package meals serves the menu catalog, fronted by a Redis cache since the
// catalog changes rarely and the browse screen is the hottest read path.
package meals

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/honestmeals/honestmeals/internal/models"
)

// ErrMealNotFound is returned when the meal does not exist.
var ErrMealNotFound = errors.New("meal not found")

const cacheKeyAll = "meals:catalog"

type Store struct {
	db       *sqlx.DB
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewStore(db *sqlx.DB, redisClient *redis.Client, cacheTTL time.Duration) *Store {
	return &Store{db: db, redis: redisClient, cacheTTL: cacheTTL}
}

// List returns available meals, optionally filtered by category and diet
// type. The unfiltered catalog is cached; filters are applied in memory.
func (s *Store) List(ctx context.Context, category, dietType string) ([]models.Meal, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	if category == "" && dietType == "" {
		return catalog, nil
	}

	filtered := make([]models.Meal, 0, len(catalog))
	for _, m := range catalog {
		if category != "" && m.Category != category {
			continue
		}
		if dietType != "" && m.DietType != dietType {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered, nil
}

func (s *Store) catalog(ctx context.Context) ([]models.Meal, error) {
	if data, err := s.redis.Get(ctx, cacheKeyAll).Bytes(); err == nil {
		var cached []models.Meal
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	meals := []models.Meal{}
	err := s.db.SelectContext(ctx, &meals,
		"SELECT id, name, description, category, diet_type, price_inr, calories, protein_g, carbs_g, fat_g, image_url, available, created_at FROM meals WHERE available = TRUE ORDER BY name ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}

	if data, err := json.Marshal(meals); err == nil {
		if err := s.redis.Set(ctx, cacheKeyAll, data, s.cacheTTL).Err(); err != nil {
			slog.Error("Failed to cache meal catalog", "error", err)
		}
	}

	return meals, nil
}

// Get returns one meal by ID, bypassing the cache.
func (s *Store) Get(ctx context.Context, mealID string) (models.Meal, error) {
	var meal models.Meal
	err := s.db.GetContext(ctx, &meal,
		"SELECT id, name, description, category, diet_type, price_inr, calories, protein_g, carbs_g, fat_g, image_url, available, created_at FROM meals WHERE id = $1",
		mealID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Meal{}, ErrMealNotFound
		}
		return models.Meal{}, fmt.Errorf("failed to fetch meal: %w", err)
	}
	return meal, nil
}

// Invalidate drops the cached catalog, e.g. after an admin edit.
func (s *Store) Invalidate(ctx context.Context) {
	if err := s.redis.Del(ctx, cacheKeyAll).Err(); err != nil {
		slog.Error("Failed to invalidate meal cache", "error", err)
	}
}
