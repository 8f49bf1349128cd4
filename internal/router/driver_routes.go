package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/truck-intake-reservation/internal/handler"
	"github.com/iliyamo/truck-intake-reservation/internal/middleware"
)

// RegisterDriver registers driver-scoped endpoints under /v1.  All
// routes require a valid JWT and the DRIVER role.  Drivers browse a
// day's open slots, hold one, confirm the hold into a reservation or
// release it early, and manage their own booking through the
// phone-plus-code match.  The optional rate limiter is applied to
// the whole group when configured; pass nil to skip it.
func RegisterDriver(e *echo.Echo, d *handler.DriverHandler, r *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("DRIVER"),
	}
	if limiter != nil {
		mw = append(mw, limiter)
	}
	g := e.Group("/v1", mw...)

	// ---- Booking flow ----
	g.GET("/sites/:site/days/:date/open-slots", d.ListOpenSlots)
	g.POST("/sites/:site/days/:date/hold", d.Hold)
	g.DELETE("/holds/:token", d.Release)
	g.POST("/confirm", d.Confirm)

	// ---- Self service ----
	// The caller's verified phone claim plus the queue code from the
	// confirmation SMS together identify the booking.
	g.GET("/my-reservation", r.SelfLookup)
	g.PATCH("/my-reservation", r.SelfEdit)
	g.DELETE("/my-reservation", r.SelfCancel)
}
