// Package api exposes the HTTP surface: condition and treatment CRUD,
// completion toggles, the dashboard and analytics read models, reports, and
// treatment suggestions.
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
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/regimen-health/regimen/internal/config"
	"github.com/regimen-health/regimen/internal/llm"
	"github.com/regimen-health/regimen/internal/metrics"
	"github.com/regimen-health/regimen/internal/report"
	"github.com/regimen-health/regimen/internal/store"
	"github.com/regimen-health/regimen/internal/suggest"
	"github.com/regimen-health/regimen/internal/vector"
)

// Server handles the HTTP API
type Server struct {
	app      *fiber.App
	config   *config.Config
	store    *store.Store
	suggest  *suggest.Service
	searcher *vector.Searcher
	reports  *report.Builder
	metrics  *metrics.Metrics
	logger   *zap.Logger

	// Limits the suggestions endpoint; every other route is unthrottled.
	suggestLimiter *rate.Limiter
}

// New creates a new API server and wires the suggestion subsystem
func New(cfg *config.Config, st *store.Store, m *metrics.Metrics, logger *zap.Logger) *Server {
	var searcher *vector.Searcher
	if cfg.Vector.Enabled {
		var err error
		searcher, err = vector.NewSearcher(&cfg.Vector, st, logger)
		if err != nil {
			logger.Warn("Failed to create vector searcher", zap.Error(err))
			searcher = nil
		}
	}

	var suggestSvc *suggest.Service
	if cfg.Suggestions.Enabled {
		provider, err := cfg.DefaultProvider()
		if err != nil {
			logger.Warn("Suggestions disabled, no LLM provider", zap.Error(err))
		} else {
			suggestSvc = suggest.New(&cfg.Suggestions, llm.NewClient(provider), searcher, st.Badger(), logger)
		}
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:            app,
		config:         cfg,
		store:          st,
		suggest:        suggestSvc,
		searcher:       searcher,
		reports:        report.NewBuilder(st),
		metrics:        m,
		logger:         logger,
		suggestLimiter: rate.NewLimiter(rate.Limit(cfg.Suggestions.RatePerMinute/60), cfg.Suggestions.RateBurst),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
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

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")

	// Public routes
	api.Post("/auth/login", s.handleLogin)

	// Protected routes
	protected := api.Use(s.authMiddleware())

	// Conditions
	protected.Get("/conditions", s.handleListConditions)
	protected.Post("/conditions", s.handleCreateCondition)
	protected.Get("/conditions/:id", s.handleGetCondition)
	protected.Put("/conditions/:id", s.handleUpdateCondition)
	protected.Delete("/conditions/:id", s.handleDeleteCondition)

	// Treatments
	protected.Get("/treatments", s.handleListTreatments)
	protected.Post("/treatments", s.handleCreateTreatment)
	protected.Get("/treatments/:id", s.handleGetTreatment)
	protected.Put("/treatments/:id", s.handleUpdateTreatment)
	protected.Delete("/treatments/:id", s.handleDeleteTreatment)
	protected.Post("/treatments/:id/rating", s.handleRateTreatment)

	// Completions
	protected.Get("/completions", s.handleListCompletions)
	protected.Post("/completions/toggle", s.handleToggleCompletion)
	protected.Post("/treatments/:id/undo-period", s.handleUndoPeriod)

	// Read models
	protected.Get("/dashboard", s.handleDashboard)
	protected.Get("/analytics", s.handleAnalytics)
	protected.Get("/report", s.handleReport)

	// Suggestions
	protected.Post("/suggestions", s.handleSuggestions)

	// Profile
	protected.Get("/profile", s.handleGetProfile)
	protected.Put("/profile", s.handleUpdateProfile)

	// Corpus
	protected.Post("/corpus", s.handleAddCorpusEntry)
	protected.Post("/corpus/reindex", s.handleReindexCorpus)
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

// App exposes the fiber app for tests
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	userID := req.UserID
	if userID == "" {
		userID = "default"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}
