package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/http/handlers"
	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Missions       *handlers.MissionTasksHandler
	Tasks          *handlers.TasksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	staff := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	canAssign := auth.RequireStaffRole(domain.StaffRoleTeamLead, domain.StaffRoleAdmin)

	staff.Get("/metrics", cfg.Metrics.Snapshot)

	missions := staff.Group("/missions")
	missions.Post("/:id/tasks", canAssign, cfg.Missions.CreateTasks)
	missions.Post("/:id/tasks/auto-assign", canAssign, cfg.Missions.AutoAssign)

	tasks := staff.Group("/tasks")
	tasks.Get("/:id/suggestions", cfg.Tasks.Suggestions)
	tasks.Patch("/:id/assignee", canAssign, cfg.Tasks.Reassign)
}
