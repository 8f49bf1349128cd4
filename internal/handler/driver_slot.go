package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/truck-intake-reservation/internal/model"
	"github.com/iliyamo/truck-intake-reservation/internal/notify"
	"github.com/iliyamo/truck-intake-reservation/internal/repository"
	"github.com/iliyamo/truck-intake-reservation/internal/schedule"
)

// DriverHandler implements the self-service booking flow: list the
// open slots of a day, place a short-lived hold on one, then confirm
// the hold into a reservation (or release it early).  Every path
// sweeps lapsed holds before trusting slot state, so an abandoned
// session can starve a slot for at most the hold TTL.
type DriverHandler struct {
	SiteRepo        *repository.SiteRepo        // site names for notifications
	SlotRepo        *repository.SlotRepo        // slot state machine
	ReservationRepo *repository.ReservationRepo // reservation creation
	Notifier        notify.Notifier             // best-effort SMS dispatch
	HoldTTL         time.Duration               // how long a hold shields a slot
}

// NewDriverHandler constructs a DriverHandler.  All dependencies must be non-nil.
func NewDriverHandler(siteRepo *repository.SiteRepo, slotRepo *repository.SlotRepo, reservationRepo *repository.ReservationRepo, notifier notify.Notifier, holdTTL time.Duration) *DriverHandler {
	if siteRepo == nil || slotRepo == nil || reservationRepo == nil || notifier == nil {
		panic("nil dependency passed to NewDriverHandler")
	}
	return &DriverHandler{
		SiteRepo:        siteRepo,
		SlotRepo:        slotRepo,
		ReservationRepo: reservationRepo,
		Notifier:        notifier,
		HoldTTL:         holdTTL,
	}
}

// ListOpenSlots handles GET /v1/sites/:site/days/:date/open-slots.
// Open means not disabled, not reserved, not under a live hold.
func (h *DriverHandler) ListOpenSlots(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	date, err := dateParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	times, err := h.SlotRepo.ListOpen(c.Request().Context(), siteID, date)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"times": times})
}

// Hold handles POST /v1/sites/:site/days/:date/hold.  On success the
// driver gets an opaque token and the expiry; the slot is invisible
// to other drivers until the token is confirmed, released, or the TTL
// lapses.  Exactly one of two concurrent attempts on the same slot
// can succeed; the loser gets 409.
func (h *DriverHandler) Hold(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	date, err := dateParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	var req struct {
		Time string `json:"time"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if _, err := schedule.ParseClock(req.Time); err != nil {
		return writeEngineError(c, repository.Validation("time", "%s", err.Error()))
	}
	ctx := c.Request().Context()
	// Lapsed holds must read as absent before the claim check runs.
	if err := h.SlotRepo.SweepExpired(ctx, siteID, date); err != nil {
		return writeEngineError(c, err)
	}
	token, err := repository.NewHoldToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate hold token"})
	}
	expiresAt := time.Now().UTC().Add(h.HoldTTL)
	if err := h.SlotRepo.AcquireHold(ctx, siteID, date, req.Time, token, expiresAt); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// Release handles DELETE /v1/holds/:token.  Early release is
// advisory: an unknown or already superseded token is a no-op, the
// TTL would have reclaimed the slot anyway.
func (h *DriverHandler) Release(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return writeEngineError(c, repository.Validation("token", "is required"))
	}
	if err := h.SlotRepo.ReleaseHold(c.Request().Context(), token); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": true})
}

// Confirm handles POST /v1/confirm.  It exchanges a live hold for a
// durable reservation: the slot is re-read under lock, the
// reservation row is created with a fresh queue code, and the slot's
// pointer flips in the same transaction.  A lapsed or unknown token
// gets 410 and the driver starts over.  The confirmation SMS is
// dispatched after commit and its outcome never affects the response
// beyond the side-channel status field.
func (h *DriverHandler) Confirm(c echo.Context) error {
	var req struct {
		Token   string         `json:"token"`
		Details detailsRequest `json:"details"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Token == "" {
		return writeEngineError(c, repository.Validation("token", "is required"))
	}
	if err := req.Details.validate(); err != nil {
		return writeEngineError(c, err)
	}
	ctx := c.Request().Context()

	tx, err := h.SlotRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return writeEngineError(c, repository.ErrUnavailable)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	// Expired holds read as absent here: the lookup requires a live
	// expiry, so a stale token comes back ErrGone without a separate
	// sweep pass.
	slot, err := h.SlotRepo.FindByHoldTokenTx(ctx, tx, req.Token)
	if err != nil {
		return writeEngineError(c, err)
	}
	code, err := repository.NewQueueCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate queue code"})
	}
	res := req.Details.toReservation(slot, code)
	if err := h.ReservationRepo.CreateTx(ctx, tx, res); err != nil {
		return writeEngineError(c, err)
	}
	if err := h.SlotRepo.OccupyTx(ctx, tx, slot.ID, res.ID); err != nil {
		return writeEngineError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeEngineError(c, repository.ErrUnavailable)
	}
	committed = true

	status := h.notifyConfirmed(ctx, res)
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"queue_code":     res.QueueCode,
		"notification":   status,
	})
}

// notifyConfirmed dispatches the confirmation SMS off the critical
// path.  The returned status is only the side-channel hint for the
// response ("queued" or "skipped"); actual delivery is reported by
// the notifier's own logging.
func (h *DriverHandler) notifyConfirmed(ctx context.Context, res *model.Reservation) string {
	if res.Phone == "" {
		return "skipped"
	}
	siteName := ""
	if site, err := h.SiteRepo.GetByID(ctx, res.SiteID); err == nil {
		siteName = site.Name
	}
	text := notify.ConfirmationText(siteName, res.Date, res.Time, res.QueueCode)
	dest := res.Phone
	go func() {
		// Detached from the request context: the response must not
		// wait on the gateway, and the gateway must not be cancelled
		// by the response finishing first.
		h.Notifier.Send(context.Background(), dest, text)
	}()
	return "queued"
}
