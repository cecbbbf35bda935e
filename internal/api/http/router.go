package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/gabrielgalarza/orgmapper/internal/api/http/handlers"
	"github.com/gabrielgalarza/orgmapper/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Document      *handlers.DocumentHandler
	Query         *handlers.QueryHandler
	Organizations *handlers.OrganizationsHandler
	Transfer      *handlers.TransferHandler
	Metrics       *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	api.Get("/document", cfg.Document.GetDocument)
	api.Post("/document/commands", cfg.Document.ApplyCommand)
	api.Post("/document/reset", cfg.Document.Reset)

	api.Get("/teams", cfg.Query.ListTeams)
	api.Get("/teams/:id/people", cfg.Query.TeamPeople)
	api.Get("/people", cfg.Query.ListPeople)
	api.Get("/people/:id", cfg.Query.GetPerson)
	api.Get("/people/:id/reports", cfg.Query.DirectReports)
	api.Get("/people/:id/chain", cfg.Query.ManagementChain)

	orgs := api.Group("/organizations")
	orgs.Get("", cfg.Organizations.List)
	orgs.Post("", cfg.Organizations.Create)
	orgs.Put("/:id", cfg.Organizations.Rename)
	orgs.Delete("/:id", cfg.Organizations.Delete)
	orgs.Post("/:id/switch", cfg.Organizations.Switch)
	api.Get("/activity", cfg.Organizations.Activity)

	api.Get("/share", cfg.Transfer.Share)
	api.Post("/share/ingest", cfg.Transfer.Ingest)
	api.Get("/export", cfg.Transfer.Export)
	api.Post("/import", cfg.Transfer.Import)
}
