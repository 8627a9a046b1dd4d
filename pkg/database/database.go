package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Clients struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

func NewClients(dbURL, redisAddr string) (*Clients, error) {
	// Connect to PostgreSQL
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "",
		DB:       0,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Clients{
		DB:    db,
		Redis: redisClient,
	}, nil
}

// CreateTables ensures the application schema exists. In the hosted Supabase
// deployment these tables are managed by migrations plus row-level security;
// this mirrors them for local development.
func (c *Clients) CreateTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		full_name TEXT DEFAULT '',
		phone TEXT DEFAULT '',
		avatar_url TEXT DEFAULT '',
		height_cm DOUBLE PRECISION DEFAULT 0,
		weight_kg DOUBLE PRECISION DEFAULT 0,
		credits INTEGER NOT NULL DEFAULT 100,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS chats (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		chat_id UUID NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'text',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at);
	CREATE TABLE IF NOT EXISTS plans (
		id UUID PRIMARY KEY,
		chat_id UUID NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		user_id UUID NOT NULL,
		plan_type TEXT NOT NULL,
		title TEXT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS meals (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT DEFAULT '',
		category TEXT DEFAULT '',
		diet_type TEXT DEFAULT '',
		price_inr INTEGER NOT NULL,
		calories INTEGER DEFAULT 0,
		protein_g DOUBLE PRECISION DEFAULT 0,
		carbs_g DOUBLE PRECISION DEFAULT 0,
		fat_g DOUBLE PRECISION DEFAULT 0,
		image_url TEXT DEFAULT '',
		available BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id),
		status TEXT NOT NULL DEFAULT 'pending',
		total_inr INTEGER NOT NULL,
		address TEXT NOT NULL,
		pincode TEXT NOT NULL,
		whatsapp_url TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		meal_id UUID NOT NULL,
		meal_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price_inr INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS health_logs (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		log_date DATE NOT NULL,
		water_ml INTEGER DEFAULT 0,
		calories INTEGER DEFAULT 0,
		protein_g DOUBLE PRECISION DEFAULT 0,
		carbs_g DOUBLE PRECISION DEFAULT 0,
		fat_g DOUBLE PRECISION DEFAULT 0,
		weight_kg DOUBLE PRECISION DEFAULT 0,
		UNIQUE (user_id, log_date)
	);
	CREATE TABLE IF NOT EXISTS workout_logs (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		activity TEXT NOT NULL,
		duration_min INTEGER DEFAULT 0,
		calories INTEGER DEFAULT 0,
		notes TEXT DEFAULT '',
		logged_at TIMESTAMPTZ DEFAULT NOW()
	);`

	if _, err := c.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("✅ Database schema is ready!")
	return nil
}
