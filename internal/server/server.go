// Package server exposes the company workflow over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/code-company/internal/metrics"
	"github.com/p-blackswan/code-company/internal/requestid"
)

// Config holds HTTP server settings.
type Config struct {
	ListenAddr  string
	CORSOrigins string
	Auth        AuthConfig
}

// Server is the company HTTP application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	config   Config
}

// New creates and configures the server around a handler set.
func New(cfg Config, handlers *Handlers, collector *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:      app,
		handlers: handlers,
		metrics:  collector,
		logger:   logger.With().Str("component", "server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, logger)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(cfg Config, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		ctx, reqID := requestid.New(c.UserContext())
		c.SetUserContext(ctx)
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	s.app.Use(newAuthMiddleware(cfg.Auth, logger))

	// Request metrics
	s.app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		path := c.Route().Path
		s.metrics.RecordRequest(path, fmt.Sprintf("%d", c.Response().StatusCode()))
		s.metrics.ObserveRequest(path, time.Since(start).Seconds())
		return err
	})

	// Audit middleware (log every request, skipping noisy probes)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if probePaths[path] {
			return c.Next()
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("api request")

		return c.Next()
	})
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.app.Get("/", h.Root)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)
	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	} else {
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.SendString("# No metrics collector configured\n")
		})
	}

	// Local state
	s.app.Post("/save", h.Save)
	s.app.Get("/read", h.Read)

	// Search
	s.app.Get("/search", h.Search)
	s.app.Post("/search", h.Search)
	s.app.Get("/technical/search", h.TechnicalSearch)

	// Workflow stages
	s.app.Post("/ceo/decision", h.CEODecision)
	s.app.Post("/operations/execute", h.OperationsExecute)
	s.app.Get("/company/run", h.CompanyRun)
	s.app.Get("/company/history", h.CompanyHistory)

	// Archive + probes
	s.app.Get("/api/projects", h.Projects)
	s.app.Get("/api/test", h.APITest)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":5000"
	}
	s.logger.Info().Str("addr", addr).Msg("http server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("http server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ErrorResponse{Status: "error", Message: detail})
	}
}
