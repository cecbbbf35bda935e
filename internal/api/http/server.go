package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/config"
	"github.com/gabrielgalarza/orgmapper/internal/observability"
)

// NewApp builds the fiber app with the global middlewares installed.
// Immutable is on because handlers pass path and query values into
// long-lived state.
func NewApp(cfg config.AppConfig, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		Immutable:             true,
		BodyLimit:             cfg.MaxImportBytes,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout())
	return app
}
