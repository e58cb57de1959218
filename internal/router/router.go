package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gatherly/participation-api/internal/config"
	"github.com/gatherly/participation-api/internal/handler"
	"github.com/gatherly/participation-api/internal/middleware"
	"github.com/gatherly/participation-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ParticipationHandler *handler.ParticipationHandler
	WaitlistHandler      *handler.WaitlistHandler
	InvitationHandler    *handler.InvitationHandler
	AttendanceHandler    *handler.AttendanceHandler
	JWTMiddleware        fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Join, leave and invitation sends are write-heavy and lock the
	// activity row, so the group carries a per-user rate limit.
	participation := app.Group("/api/v1/participation",
		jwtMiddleware,
		middleware.RateLimit("participation", 30, time.Minute),
	)

	if deps.ParticipationHandler != nil {
		deps.ParticipationHandler.Register(participation)
	}

	if deps.WaitlistHandler != nil {
		deps.WaitlistHandler.Register(participation)
	}

	if deps.InvitationHandler != nil {
		deps.InvitationHandler.Register(participation)
	}

	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.Register(participation)
	}
}
