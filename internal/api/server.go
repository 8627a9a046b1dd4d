package api

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jwtware "github.com/gofiber/jwt/v3"
	jwtv4 "github.com/golang-jwt/jwt/v4"

	"github.com/honestmeals/honestmeals/internal/chat"
	"github.com/honestmeals/honestmeals/internal/config"
	"github.com/honestmeals/honestmeals/internal/gymna"
	"github.com/honestmeals/honestmeals/internal/health"
	"github.com/honestmeals/honestmeals/internal/jobs"
	"github.com/honestmeals/honestmeals/internal/ledger"
	"github.com/honestmeals/honestmeals/internal/meals"
	"github.com/honestmeals/honestmeals/internal/orders"
	"github.com/honestmeals/honestmeals/internal/pkg/supabase"
	"github.com/honestmeals/honestmeals/internal/plans"
	"github.com/honestmeals/honestmeals/internal/storage"
	"github.com/honestmeals/honestmeals/pkg/database"
)

type Server struct {
	app      *fiber.App
	cfg      *config.Config
	db       *database.Clients
	producer sarama.SyncProducer
	storage  storage.Storage
	uploader *supabase.Uploader
	logger   *slog.Logger

	ledger       *ledger.Ledger
	chats        *chat.Store
	orchestrator *gymna.Orchestrator
	plans        *plans.Store
	tracker      *jobs.PlanTracker
	meals        *meals.Store
	orders       *orders.Store
	health       *health.Store
}

func NewServer(cfg *config.Config, db *database.Clients, producer sarama.SyncProducer) (*Server, error) {
	// Initialize storage
	localStorage, err := storage.NewLocalStorage(cfg.Storage.TempDir, cfg.Storage.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app := fiber.New()

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status}\n",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.MaxRequests,
		Expiration: cfg.Server.RequestTimeout,
	}))
	app.Use(cache.New(cache.Config{
		Expiration:   cfg.Server.CacheExpiration,
		CacheControl: true,
		Next: func(c *fiber.Ctx) bool {
			// Only the meal catalog is safe to cache at the HTTP layer.
			return c.Method() != fiber.MethodGet || c.Path() != "/api/meals"
		},
	}))

	creditLedger := ledger.New(db.DB)
	chatStore := chat.NewStore(db.DB)

	server := &Server{
		app:          app,
		cfg:          cfg,
		db:           db,
		producer:     producer,
		storage:      localStorage,
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		ledger:       creditLedger,
		chats:        chatStore,
		orchestrator: gymna.NewOrchestrator(creditLedger, chatStore, cfg.Gemini.Model, cfg.Gemini.Timeout),
		plans:        plans.NewStore(db.DB),
		tracker:      jobs.NewPlanTracker(db.Redis, 0),
		meals:        meals.NewStore(db.DB, db.Redis, cfg.Meals.CacheTTL),
		orders:       orders.NewStore(db.DB, cfg.Orders.WhatsAppNumber),
		health:       health.NewStore(db.DB),
	}

	if cfg.Supabase.URL != "" && cfg.Supabase.ServiceKey != "" {
		server.uploader = supabase.NewUploader(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Bucket)
	}

	// Routes
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	// Public routes
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	api.Post("/login", s.handleLogin)
	api.Post("/profiles", s.handleCreateProfile)
	api.Get("/meals", s.handleListMeals)
	api.Get("/meals/:id", s.handleGetMeal)

	// Protected routes
	protected := api.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(s.cfg.JWT.Secret),
	}))

	protected.Get("/profile", s.handleGetProfile)
	protected.Patch("/profile", s.handleUpdateProfile)
	protected.Post("/profile/avatar", s.handleUploadAvatar)
	protected.Get("/profile/credits", s.handleGetCredits)

	protected.Get("/chats", s.handleListChats)
	protected.Post("/chats", s.handleCreateChat)
	protected.Delete("/chats/:id", s.handleDeleteChat)
	protected.Get("/chats/:id/messages", s.handleListMessages)
	protected.Get("/chats/:id/plans", s.handleListPlans)

	protected.Post("/gymna/messages", s.handleSendMessage)

	protected.Post("/plans", s.handleGeneratePlan)
	protected.Get("/plans/jobs/:id", s.handlePlanJobStatus)

	protected.Post("/orders", s.handleCreateOrder)
	protected.Get("/orders", s.handleListOrders)
	protected.Get("/orders/:id/items", s.handleListOrderItems)

	protected.Post("/health/logs", s.handleUpsertHealthLog)
	protected.Get("/health/summary", s.handleHealthSummary)
	protected.Post("/health/workouts", s.handleAddWorkout)
	protected.Get("/health/workouts", s.handleListWorkouts)
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Port)
}

// userID returns the authenticated user's ID from the verified JWT claims.
// The jwt middleware stores a v4 token under "user".
func (s *Server) userID(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*jwtv4.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwtv4.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
