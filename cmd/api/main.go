package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/honestmeals/honestmeals/internal/api"
	"github.com/honestmeals/honestmeals/internal/config"
	"github.com/honestmeals/honestmeals/internal/pkg/supabase"
	"github.com/honestmeals/honestmeals/pkg/database"
	"github.com/honestmeals/honestmeals/pkg/kafka"
)

func main() {
	// Load .env in local development; in deployment the vars come from the
	// environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize database clients
	db, err := database.NewClients(cfg.Database.URL, cfg.Redis.Addr)
	if err != nil {
		slog.Error("Failed to initialize database clients", "error", err)
		os.Exit(1)
	}
	defer db.DB.Close()
	slog.Info("✅ Connected to databases")

	// Ensure the schema exists
	if err := db.CreateTables(); err != nil {
		slog.Error("Failed to create tables", "error", err)
		os.Exit(1)
	}

	// Initialize Supabase auth
	if cfg.Supabase.URL != "" && cfg.Supabase.ServiceKey != "" {
		if err := supabase.InitClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey); err != nil {
			slog.Error("Failed to initialize Supabase client", "error", err)
			os.Exit(1)
		}
		slog.Info("✅ Connected to Supabase")
	}

	// Initialize Kafka producer
	producer, err := kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.RetryMax, cfg.Kafka.RetryBackoff)
	if err != nil {
		slog.Error("Failed to create Kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	slog.Info("✅ Connected to Kafka")

	// Create and start server
	server, err := api.NewServer(cfg, db, producer)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}
	if err := server.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
