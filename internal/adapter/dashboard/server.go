// Package dashboard serves the read-only presentation API over the latest
// snapshot and the history log.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server wraps the Fiber app serving the dashboard API.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
}

// NewServer builds the app and registers every route.
func NewServer(addr string, h *Handler, logger *slog.Logger) *Server {
	app := NewApp(logger)
	RegisterRoutes(app, h)
	return &Server{app: app, addr: addr, logger: logger}
}

// NewApp creates a Fiber app with JSON errors, panic recovery and request logging.
func NewApp(logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "synop-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(requestLogger(logger))
	return app
}

// Start begins listening. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard server starting", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app, useful for testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
		)
		return err
	}
}
