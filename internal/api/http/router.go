package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticket-workflow/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Catalog *handlers.CatalogHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/actions", cfg.Tickets.RecordAction)
	tickets.Post("/:id/revert", cfg.Tickets.Revert)
	tickets.Post("/:id/reassign", cfg.Tickets.Reassign)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Get("/:id/resolutions", cfg.Tickets.ListResolutions)

	app.Get("/workflows", cfg.Catalog.ListWorkflows)
	app.Get("/workflows/:id", cfg.Catalog.GetWorkflow)
	app.Get("/departments", cfg.Catalog.ListDepartments)
}
