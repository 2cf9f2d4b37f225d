package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
)

// ServerConfig sizes the fiber app.
type ServerConfig struct {
	Name           string
	RequestTimeout time.Duration
	// MaxUploadBytes raises the body limit so attachments fit.
	MaxUploadBytes int64
}

// NewApp builds the fiber app with middlewares and routes registered.
func NewApp(cfg ServerConfig, logger *zap.Logger, metrics *observability.Metrics, routes RouteConfig) *fiber.App {
	bodyLimit := fiber.DefaultBodyLimit
	if limit := int(cfg.MaxUploadBytes) + 1<<20; limit > bodyLimit {
		bodyLimit = limit
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout)
	routes.Metrics = metrics
	RegisterRoutes(app, routes)
	return app
}
