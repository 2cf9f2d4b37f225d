package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Magic          *handlers.MagicHandler
	Uploads        *handlers.UploadsHandler
	Realtime       *handlers.RealtimeHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/version", cfg.Health.Version)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	api := app.Group("/api")

	// Magic-link routes carry their own credential.
	api.Post("/tickets/anonymous", cfg.Magic.CreateAnonymous)
	api.Get("/tickets/magic/:token", cfg.Magic.View)
	api.Post("/tickets/magic/:token/comment", cfg.Magic.Comment)
	api.Get("/uploads/:ticketId/:file", cfg.AuthMiddleware.Optional, cfg.Uploads.Download)

	session := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	session.Get("/stats", cfg.Tickets.Stats)
	session.Post("/tickets", cfg.Tickets.CreateTicket)
	session.Get("/tickets", cfg.Tickets.ListTickets)
	session.Get("/tickets/:id", cfg.Tickets.GetTicket)
	session.Post("/tickets/:id/comments", cfg.Tickets.AddComment)
	session.Post("/tickets/:id/attachments", cfg.Tickets.AddAttachment)

	admin := session.Group("", auth.RequireAdmin())
	admin.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)
	admin.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)
	admin.Post("/tickets/:id/magic-link", cfg.Tickets.ReissueMagicLink)
	admin.Delete("/users/:id/magic-link", cfg.Tickets.InvalidateMagicLink)

	app.Get("/ws", cfg.Realtime.RequireUpgrade, cfg.Realtime.Socket())
	poll := app.Group("/realtime/poll")
	poll.Post("", cfg.Realtime.OpenPoll)
	poll.Get("/:sid", cfg.Realtime.Poll)
	poll.Post("/:sid", cfg.Realtime.SendPoll)
	poll.Delete("/:sid", cfg.Realtime.ClosePoll)
}
