package http

import (
	"github.com/labstack/echo/v4"
)

type Deps struct {
	Core     *Handler
	Projects *ProjectHandler
	Agencies *AgencyHandler
	Outbox   *OutboxHandler
	// assignment orders are not served when nil
	Documents *DocumentHandler

	// Auth is required on every business route. Idempotency is optional and
	// runs after Auth.
	Auth        echo.MiddlewareFunc
	Idempotency echo.MiddlewareFunc
}

// Register mounts the REST surface on e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/health", d.Core.Health)
	e.GET("/geocode", d.Core.Geocode)

	mws := []echo.MiddlewareFunc{d.Auth}
	if d.Idempotency != nil {
		mws = append(mws, d.Idempotency)
	}
	api := e.Group("", mws...)

	api.POST("/projects", d.Projects.Create)
	api.GET("/projects", d.Projects.List)
	api.GET("/projects/pending-reviews", d.Projects.PendingReviews)
	api.GET("/projects/:project_id", d.Projects.Get)
	api.POST("/projects/:project_id/assignments", d.Projects.CreateAssignments)
	api.POST("/projects/:project_id/checklist/:assignment_index/:checklist_index/submit", d.Projects.Submit)
	api.PUT("/projects/:project_id/checklist/:assignment_index/:checklist_index/review", d.Projects.Review)
	api.POST("/projects/:project_id/milestones/:milestone_id/submit", d.Projects.Submit)
	api.PUT("/projects/:project_id/milestones/:milestone_id/review", d.Projects.Review)
	api.GET("/projects/:project_id/agency/:agency_id/pending-reviews", d.Projects.PendingReviews)

	api.POST("/agencies", d.Agencies.Create)
	api.GET("/agencies", d.Agencies.List)
	api.GET("/agencies/:agency_id", d.Agencies.Get)

	api.GET("/outbox", d.Outbox.List)
	api.POST("/outbox/:event_id/replay", d.Outbox.Replay)

	if d.Documents != nil {
		api.GET("/documents/:name", d.Documents.Get)
	}
}
