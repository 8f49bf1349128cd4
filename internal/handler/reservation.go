package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/truck-intake-reservation/internal/model"
	"github.com/iliyamo/truck-intake-reservation/internal/notify"
	"github.com/iliyamo/truck-intake-reservation/internal/repository"
	"github.com/iliyamo/truck-intake-reservation/internal/schedule"
)

// detailsRequest carries the rider and vendor details attached to a
// reservation at confirm or direct-reserve time.
type detailsRequest struct {
	Name      string  `json:"name"`
	Plate     string  `json:"plate"`
	Vendor    string  `json:"vendor"`
	TicketRef string  `json:"ticket_ref"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	Phone     string  `json:"phone"`
}

func (d *detailsRequest) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return repository.Validation("details.name", "is required")
	}
	if d.Quantity < 0 {
		return repository.Validation("details.quantity", "must not be negative")
	}
	return nil
}

// toReservation builds the reservation row occupying the given slot.
func (d *detailsRequest) toReservation(slot *model.Slot, queueCode string) *model.Reservation {
	return &model.Reservation{
		SlotID:    slot.ID,
		SiteID:    slot.SiteID,
		Date:      slot.Date,
		Time:      slot.Time,
		QueueCode: queueCode,
		Name:      strings.TrimSpace(d.Name),
		Plate:     strings.TrimSpace(d.Plate),
		Vendor:    strings.TrimSpace(d.Vendor),
		TicketRef: strings.TrimSpace(d.TicketRef),
		Quantity:  d.Quantity,
		Unit:      strings.TrimSpace(d.Unit),
		Phone:     strings.TrimSpace(d.Phone),
	}
}

// reservationJSON is the wire shape of a reservation in responses.
func reservationJSON(res *model.Reservation) echo.Map {
	return echo.Map{
		"id":         res.ID,
		"site_id":    res.SiteID,
		"date":       res.Date,
		"time":       res.Time,
		"queue_code": res.QueueCode,
		"name":       res.Name,
		"plate":      res.Plate,
		"vendor":     res.Vendor,
		"ticket_ref": res.TicketRef,
		"quantity":   res.Quantity,
		"unit":       res.Unit,
		"phone":      res.Phone,
		"created_at": res.CreatedAt,
		"updated_at": res.UpdatedAt,
	}
}

// ReservationHandler implements the operator and self-service surface
// over reservations: booking without a hold, editing details, moving
// a booking to another time, cancelling one or many, and the
// phone-plus-code lookup.  Slot and reservation rows are only ever
// written together inside one transaction, so an observer never sees
// a reservation pointing at a free slot or a reserved slot with no
// reservation behind it.
type ReservationHandler struct {
	SiteRepo        *repository.SiteRepo
	SlotRepo        *repository.SlotRepo
	ReservationRepo *repository.ReservationRepo
	Notifier        notify.Notifier
}

// NewReservationHandler constructs a ReservationHandler.  All
// dependencies must be non-nil.
func NewReservationHandler(siteRepo *repository.SiteRepo, slotRepo *repository.SlotRepo, reservationRepo *repository.ReservationRepo, notifier notify.Notifier) *ReservationHandler {
	if siteRepo == nil || slotRepo == nil || reservationRepo == nil || notifier == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{
		SiteRepo:        siteRepo,
		SlotRepo:        slotRepo,
		ReservationRepo: reservationRepo,
		Notifier:        notifier,
	}
}

// DirectReserve handles POST /v1/sites/:site/days/:date/reservations.
// The operator path for phone-in and walk-up bookings: no hold is
// required, and a time the published schedule never included is
// provisioned on the fly.  An active hold by someone else does not
// block the operator; a disabled or already reserved slot does.
func (h *ReservationHandler) DirectReserve(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	date, err := dateParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	var req struct {
		Time    string         `json:"time"`
		Kind    string         `json:"kind"`
		Details detailsRequest `json:"details"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if _, err := schedule.ParseClock(req.Time); err != nil {
		return writeEngineError(c, repository.Validation("time", "%s", err.Error()))
	}
	kind := req.Kind
	if kind == "" {
		kind = model.KindRegular
	}
	if kind != model.KindRegular && kind != model.KindWorkIn {
		return writeEngineError(c, repository.Validation("kind", "must be %s or %s", model.KindRegular, model.KindWorkIn))
	}
	if err := req.Details.validate(); err != nil {
		return writeEngineError(c, err)
	}
	ctx := c.Request().Context()
	if _, err := h.SiteRepo.GetByID(ctx, siteID); err != nil {
		return writeEngineError(c, err)
	}

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
	if err := h.SlotRepo.SweepExpiredTx(ctx, tx, siteID, date); err != nil {
		return writeEngineError(c, err)
	}
	// Provisioning the slot and occupying it are separate steps
	// joined by this transaction.
	slotID, err := h.SlotRepo.EnsureTx(ctx, tx, siteID, date, req.Time, kind)
	if err != nil {
		return writeEngineError(c, err)
	}
	slot, err := h.SlotRepo.GetByIDTx(ctx, tx, slotID)
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

	status := h.dispatch(ctx, res, notify.ConfirmationText)
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"queue_code":     res.QueueCode,
		"notification":   status,
	})
}

// editRequest is the body of Edit: nil fields stay untouched, and
// Notify asks for a "details updated" text when a phone is on file.
type editRequest struct {
	Name      *string  `json:"name"`
	Plate     *string  `json:"plate"`
	Vendor    *string  `json:"vendor"`
	TicketRef *string  `json:"ticket_ref"`
	Quantity  *float64 `json:"quantity"`
	Unit      *string  `json:"unit"`
	Phone     *string  `json:"phone"`
	Notify    bool     `json:"notify"`
}

func (r *editRequest) validate() error {
	if r.Quantity != nil && *r.Quantity < 0 {
		return repository.Validation("quantity", "must not be negative")
	}
	return nil
}

func (r *editRequest) patch() repository.ReservationPatch {
	return repository.ReservationPatch{
		Name:      r.Name,
		Plate:     r.Plate,
		Vendor:    r.Vendor,
		TicketRef: r.TicketRef,
		Quantity:  r.Quantity,
		Unit:      r.Unit,
		Phone:     r.Phone,
	}
}

// Edit handles PATCH /v1/reservations/:id.  The queue code and slot
// binding never change here, whatever the patch says.
func (h *ReservationHandler) Edit(c echo.Context) error {
	id, err := reservationIDParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	var req editRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := req.validate(); err != nil {
		return writeEngineError(c, err)
	}
	ctx := c.Request().Context()
	updated, err := h.ReservationRepo.Edit(ctx, id, req.patch())
	if err != nil {
		return writeEngineError(c, err)
	}
	status := "skipped"
	if req.Notify {
		if res, err := h.ReservationRepo.GetByID(ctx, id); err == nil {
			status = h.dispatch(ctx, res, notify.UpdateText)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"updated_count": updated, "notification": status})
}

// Cancel handles DELETE /v1/reservations/:id.  Deleting the
// reservation and freeing its slot commit together; the queue code
// comes back so staff can reference the cancelled booking.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := reservationIDParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	code, err := h.cancelOne(c.Request().Context(), id)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"queue_code": code})
}

// cancelOne deletes one reservation and frees its slot in a single
// transaction, returning the queue code of the removed booking.
func (h *ReservationHandler) cancelOne(ctx context.Context, id uint64) (string, error) {
	tx, err := h.SlotRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return "", repository.ErrUnavailable
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := h.ReservationRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if err := h.ReservationRepo.DeleteTx(ctx, tx, id); err != nil {
		return "", err
	}
	if err := h.SlotRepo.FreeTx(ctx, tx, res.SlotID, id); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", repository.ErrUnavailable
	}
	committed = true
	return res.QueueCode, nil
}

// Reassign handles POST /v1/reservations/:id/reassign.  The target
// slot is provisioned when the schedule never included it, the old
// slot is freed and the new one occupied in one transaction, and the
// queue code travels unchanged.  A reserved target fails with 409 and
// leaves the original binding as it was.
func (h *ReservationHandler) Reassign(c echo.Context) error {
	id, err := reservationIDParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	var req struct {
		NewTime string `json:"new_time"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if _, err := schedule.ParseClock(req.NewTime); err != nil {
		return writeEngineError(c, repository.Validation("new_time", "%s", err.Error()))
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
	res, err := h.ReservationRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		return writeEngineError(c, err)
	}
	oldSlot, err := h.SlotRepo.GetByIDTx(ctx, tx, res.SlotID)
	if err != nil {
		return writeEngineError(c, err)
	}
	if oldSlot.Time == req.NewTime {
		// Moving to the same time is a no-op, not a conflict with itself.
		if err := tx.Commit(); err != nil {
			return writeEngineError(c, repository.ErrUnavailable)
		}
		committed = true
		return c.JSON(http.StatusOK, echo.Map{"queue_code": res.QueueCode})
	}
	newSlotID, err := h.SlotRepo.EnsureTx(ctx, tx, oldSlot.SiteID, oldSlot.Date, req.NewTime, oldSlot.Kind)
	if err != nil {
		return writeEngineError(c, err)
	}
	if err := h.SlotRepo.OccupyTx(ctx, tx, newSlotID, res.ID); err != nil {
		return writeEngineError(c, err)
	}
	if err := h.SlotRepo.FreeTx(ctx, tx, oldSlot.ID, res.ID); err != nil {
		return writeEngineError(c, err)
	}
	if err := h.ReservationRepo.MoveTx(ctx, tx, res.ID, newSlotID, req.NewTime); err != nil {
		return writeEngineError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeEngineError(c, repository.ErrUnavailable)
	}
	committed = true

	res.Time = req.NewTime
	status := h.dispatch(ctx, res, notify.ReassignText)
	return c.JSON(http.StatusOK, echo.Map{"queue_code": res.QueueCode, "notification": status})
}

// MassCancel handles POST /v1/reservations/mass-cancel.  Each id is
// cancelled independently; the response enumerates exactly which
// succeeded so the caller can retry or notify only those.
func (h *ReservationHandler) MassCancel(c echo.Context) error {
	var req struct {
		IDs []uint64 `json:"ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.IDs) == 0 {
		return writeEngineError(c, repository.Validation("ids", "is required"))
	}
	ctx := c.Request().Context()
	canceled := make([]uint64, 0, len(req.IDs))
	failed := make([]uint64, 0)
	for _, id := range req.IDs {
		if _, err := h.cancelOne(ctx, id); err != nil {
			failed = append(failed, id)
			continue
		}
		canceled = append(canceled, id)
	}
	return c.JSON(http.StatusOK, echo.Map{"canceled": canceled, "failed": failed})
}

// Lookup handles GET /v1/reservations/lookup?phone=...&code=...  Both
// the phone (full number or last four digits) and the queue code must
// match the same reservation; on a code collision the most recent
// booking wins.
func (h *ReservationHandler) Lookup(c echo.Context) error {
	phone := strings.TrimSpace(c.QueryParam("phone"))
	code := strings.TrimSpace(c.QueryParam("code"))
	if phone == "" {
		return writeEngineError(c, repository.Validation("phone", "is required"))
	}
	if code == "" {
		return writeEngineError(c, repository.Validation("code", "is required"))
	}
	res, err := h.ReservationRepo.Lookup(c.Request().Context(), phone, code)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": reservationJSON(res)})
}

// SelfLookup handles GET /v1/my-reservation?code=...  The phone side
// of the two-factor match comes from the caller's verified phone
// claim, not from input.
func (h *ReservationHandler) SelfLookup(c echo.Context) error {
	res, err := h.selfResolve(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": reservationJSON(res)})
}

// SelfEdit handles PATCH /v1/my-reservation?code=...  The lookup is
// the authorization: only a caller holding both the phone credential
// and the queue code reaches the edit.
func (h *ReservationHandler) SelfEdit(c echo.Context) error {
	res, err := h.selfResolve(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	var req editRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := req.validate(); err != nil {
		return writeEngineError(c, err)
	}
	ctx := c.Request().Context()
	updated, err := h.ReservationRepo.Edit(ctx, res.ID, req.patch())
	if err != nil {
		return writeEngineError(c, err)
	}
	status := "skipped"
	if req.Notify {
		if fresh, err := h.ReservationRepo.GetByID(ctx, res.ID); err == nil {
			status = h.dispatch(ctx, fresh, notify.UpdateText)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"updated_count": updated, "notification": status})
}

// SelfCancel handles DELETE /v1/my-reservation?code=...
func (h *ReservationHandler) SelfCancel(c echo.Context) error {
	res, err := h.selfResolve(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	code, err := h.cancelOne(c.Request().Context(), res.ID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"queue_code": code})
}

// selfResolve matches the caller's phone claim plus the code query
// parameter against one reservation.
func (h *ReservationHandler) selfResolve(c echo.Context) (*model.Reservation, error) {
	phone := callerPhone(c)
	if phone == "" {
		return nil, repository.Validation("phone", "no phone credential on session")
	}
	code := strings.TrimSpace(c.QueryParam("code"))
	if code == "" {
		return nil, repository.Validation("code", "is required")
	}
	return h.ReservationRepo.Lookup(c.Request().Context(), phone, code)
}

// dispatch fires one best-effort text about res, built by build, and
// returns the side-channel status for the response.
func (h *ReservationHandler) dispatch(ctx context.Context, res *model.Reservation, build func(site, date, t, code string) string) string {
	if res.Phone == "" {
		return "skipped"
	}
	siteName := ""
	if site, err := h.SiteRepo.GetByID(ctx, res.SiteID); err == nil {
		siteName = site.Name
	}
	text := build(siteName, res.Date, res.Time, res.QueueCode)
	dest := res.Phone
	go func() {
		h.Notifier.Send(context.Background(), dest, text)
	}()
	return "queued"
}
