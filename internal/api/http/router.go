package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
	ElevatedRoles  []string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Users.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/pool", cfg.Tickets.Pool)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", cfg.Tickets.Delete)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachments)

	stats := app.Group("/stats", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	stats.Get("/technicians", auth.RequireRole(cfg.ElevatedRoles...), cfg.Stats.Technicians)
}
