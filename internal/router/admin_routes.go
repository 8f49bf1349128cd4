package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/truck-intake-reservation/internal/handler"
	"github.com/iliyamo/truck-intake-reservation/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1.  All routes
// require a valid JWT and the ADMIN role.  Admins manage sites and
// day schedules: previewing and publishing a day's slot grid,
// appending extra times, and toggling slots in and out of service.
func RegisterAdmin(e *echo.Echo, s *handler.SiteHandler, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Sites ----
	g.POST("/sites", s.CreateSite)
	g.GET("/sites", s.ListSites)

	// ---- Day schedules ----
	// Preview is a dry run: it computes the grid a publish would
	// write but touches nothing.
	g.POST("/sites/:site/days/:date/preview", a.PreviewSchedule)
	g.POST("/sites/:site/days/:date/publish", a.PublishSchedule)
	g.GET("/sites/:site/days/:date/schedule", a.GetSchedule)

	// ---- Slot maintenance ----
	g.POST("/sites/:site/days/:date/append", a.AppendTimes)
	g.PATCH("/sites/:site/days/:date/slots/disabled", a.SetDisabled)
	g.GET("/sites/:site/days/:date/slots", a.ListAllSlots)
}
