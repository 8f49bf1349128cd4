package handler // handler defines the HTTP handlers of the booking API

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/truck-intake-reservation/internal/repository"
)

// writeEngineError translates the repository error taxonomy into HTTP
// responses.  Every case keeps its own status so callers can tell a
// lost race (409) from a lapsed hold (410) from a retryable store
// failure (503); nothing is collapsed into a generic error.
func writeEngineError(c echo.Context, err error) error {
	var ve *repository.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Reason, "field": ve.Field})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot unavailable"})
	case errors.Is(err, repository.ErrGone):
		return c.JSON(http.StatusGone, echo.Map{"error": "hold expired or unknown"})
	case errors.Is(err, repository.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// siteParam parses the :site path parameter.
func siteParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("site"), 10, 64)
	if err != nil || id == 0 {
		return 0, repository.Validation("site", "must be a positive integer")
	}
	return id, nil
}

// dateParam validates the :date path parameter as YYYY-MM-DD.
func dateParam(c echo.Context) (string, error) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", repository.Validation("date", "must be YYYY-MM-DD")
	}
	return date, nil
}

// reservationIDParam parses the :id path parameter.
func reservationIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, repository.Validation("id", "must be a positive integer")
	}
	return id, nil
}

// callerPhone extracts the phone credential the identity service put
// in the token, empty when the caller has none.
func callerPhone(c echo.Context) string {
	if v, ok := c.Get("phone").(string); ok {
		return v
	}
	return ""
}
