package router

// This file registers operator routes for managing reservations on
// behalf of drivers.  Operators take phone-in and walk-up bookings,
// fix details, move bookings to other times and cancel them, singly
// or in bulk.  Admins inherit the whole operator surface.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/truck-intake-reservation/internal/handler"
	"github.com/iliyamo/truck-intake-reservation/internal/middleware"
)

// RegisterOperator registers the reservation management endpoints
// under /v1.  All routes require a valid JWT and either the OPERATOR
// or ADMIN role.
func RegisterOperator(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OPERATOR", "ADMIN"),
	)

	// Book without a hold; the target time is provisioned if the
	// published schedule never included it.
	g.POST("/sites/:site/days/:date/reservations", r.DirectReserve)

	// Mass cancel is registered before the :id routes so the literal
	// path segment wins over the parameter.
	g.POST("/reservations/mass-cancel", r.MassCancel)
	g.PATCH("/reservations/:id", r.Edit)
	g.DELETE("/reservations/:id", r.Cancel)
	g.POST("/reservations/:id/reassign", r.Reassign)

	// Counter-side lookup by phone and queue code.
	g.GET("/reservations/lookup", r.Lookup)
}
