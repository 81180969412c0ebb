package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/gmsas95/dosetrack/internal/config"
	"github.com/gmsas95/dosetrack/internal/ledger"
	"github.com/gmsas95/dosetrack/internal/metrics"
	"github.com/gmsas95/dosetrack/internal/store"
)

// Version is reported by the health endpoint and the CLI.
const Version = "0.1.0"

// Server handles HTTP API and WebSocket
type Server struct {
	app    *fiber.App
	config *config.Config
	store  *store.Store
	ledger *ledger.Service
	hub    *Hub
	logger *zap.Logger

	// onMedicationsChanged runs after any medication write so the
	// reminder scheduler can rebuild its entries.
	onMedicationsChanged func()
}

// New creates a new API server
func New(cfg *config.Config, st *store.Store, lg *ledger.Service, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:    app,
		config: cfg,
		store:  st,
		ledger: lg,
		hub:    NewHub(logger),
		logger: logger,
	}

	s.setupRoutes()
	return s
}

// Hub returns the WebSocket broadcast hub, usable as a reminder channel.
func (s *Server) Hub() *Hub {
	return s.hub
}

// OnMedicationsChanged registers a callback invoked after medication writes.
func (s *Server) OnMedicationsChanged(fn func()) {
	s.onMedicationsChanged = fn
}

func (s *Server) medicationsChanged() {
	if s.onMedicationsChanged != nil {
		s.onMedicationsChanged()
	}
}

func (s *Server) setupRoutes() {
	// Middleware
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	s.app.Use(s.metricsMiddleware())

	// Health check and metrics
	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := s.app.Group("/api")

	// Public routes
	api.Post("/auth/login", s.rateLimiter(), s.handleLogin)

	// Protected routes
	protected := api.Use(s.authMiddleware())

	// Medications
	protected.Get("/medications", s.handleListMedications)
	protected.Post("/medications", s.handleCreateMedication)
	protected.Get("/medications/:id", s.handleGetMedication)
	protected.Put("/medications/:id", s.handleUpdateMedication)
	protected.Delete("/medications/:id", s.handleDeleteMedication)

	// Adherence actions
	protected.Post("/medications/:id/take", s.handleTake)
	protected.Post("/medications/:id/skip", s.handleSkip)
	protected.Post("/medications/:id/undo", s.handleUndoLast)
	protected.Post("/logs/:id/undo", s.handleUndoLog)
	protected.Get("/logs", s.handleListLogs)

	// Views
	protected.Get("/calendar/:year/:month", s.handleCalendarMonth)
	protected.Get("/calendar/:year", s.handleCalendarYear)
	protected.Get("/analytics", s.handleAnalytics)
	protected.Get("/subscription", s.handleSubscription)

	// WebSocket event stream
	s.app.Get("/ws", websocket.New(s.hub.handleConn))
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if s.config.Security.AdminPassword != "" && req.Password != s.config.Security.AdminPassword {
		return c.Status(401).JSON(fiber.Map{"error": "invalid credentials"})
	}

	ttl := time.Duration(s.config.Security.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": store.DefaultUserID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}
