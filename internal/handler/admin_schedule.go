package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/truck-intake-reservation/internal/model"
	"github.com/iliyamo/truck-intake-reservation/internal/repository"
	"github.com/iliyamo/truck-intake-reservation/internal/schedule"
)

// AdminHandler bundles the repositories used by admins to shape a
// site day: previewing and publishing schedules, widening a day with
// extra times, and disabling slots.  Methods assume JWT and role
// checks already ran in middleware.
type AdminHandler struct {
	SiteRepo     *repository.SiteRepo     // interval floors and site existence
	ScheduleRepo *repository.ScheduleRepo // published parameters per site day
	SlotRepo     *repository.SlotRepo     // slot materialization and flags
}

// NewAdminHandler constructs an AdminHandler.  All dependencies must be non-nil.
func NewAdminHandler(siteRepo *repository.SiteRepo, scheduleRepo *repository.ScheduleRepo, slotRepo *repository.SlotRepo) *AdminHandler {
	if siteRepo == nil || scheduleRepo == nil || slotRepo == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{SiteRepo: siteRepo, ScheduleRepo: scheduleRepo, SlotRepo: slotRepo}
}

// scheduleRequest is the shared body of preview and publish.
type scheduleRequest struct {
	Open          string `json:"open"`           // first bookable time, HH:MM
	Close         string `json:"close"`          // last bookable time, HH:MM
	Target        int    `json:"target"`         // requested number of regular slots
	Interval      int    `json:"interval"`       // optional explicit interval in minutes
	DisabledCount int    `json:"disabled_count"` // optional number of slots to pre-disable
	WorkInTarget  int    `json:"workin_target"`  // optional number of work-in slots
}

// previewRow is one generated slot in a preview response.
type previewRow struct {
	Time     string `json:"time"`
	Kind     string `json:"kind"`
	Disabled bool   `json:"disabled"`
}

// generateDay turns a schedule request into the concrete slot rows
// for one site, running the pure generator for the regular set, the
// even-spread disable policy, and a second sparser pass for work-in
// capacity.  It is used identically by preview and publish so the two
// always agree.
func generateDay(req scheduleRequest, siteMinInterval int) (int, []repository.SlotRow, error) {
	interval, times, err := schedule.Plan(req.Open, req.Close, req.Target, siteMinInterval, req.Interval)
	if err != nil {
		return 0, nil, repository.Validation("schedule", "%s", err.Error())
	}
	disabled := schedule.DisabledPositions(len(times), req.DisabledCount)
	rows := make([]repository.SlotRow, 0, len(times)+req.WorkInTarget)
	for i, t := range times {
		rows = append(rows, repository.SlotRow{Time: t, Kind: model.KindRegular, Disabled: disabled[i]})
	}
	if req.WorkInTarget > 0 {
		// Work-in capacity spreads across the same window at its own
		// density and is not subject to the interval floor: these are
		// catch-up positions, not scale appointments.
		_, workin, err := schedule.Plan(req.Open, req.Close, req.WorkInTarget, 0, 0)
		if err != nil {
			return 0, nil, repository.Validation("workin_target", "%s", err.Error())
		}
		for _, t := range workin {
			rows = append(rows, repository.SlotRow{Time: t, Kind: model.KindWorkIn})
		}
	}
	return interval, rows, nil
}

// PreviewSchedule handles POST /v1/sites/:site/days/:date/preview.
// It runs the generator without writing anything so an admin can see
// the day before publishing it.
func (h *AdminHandler) PreviewSchedule(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	if _, err := dateParam(c); err != nil {
		return writeEngineError(c, err)
	}
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	site, err := h.SiteRepo.GetByID(c.Request().Context(), siteID)
	if err != nil {
		return writeEngineError(c, err)
	}
	interval, rows, err := generateDay(req, site.MinIntervalMinutes)
	if err != nil {
		return writeEngineError(c, err)
	}
	out := make([]previewRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, previewRow{Time: r.Time, Kind: r.Kind, Disabled: r.Disabled})
	}
	return c.JSON(http.StatusOK, echo.Map{"interval": interval, "slots": out})
}

// PublishSchedule handles POST /v1/sites/:site/days/:date/publish.
// It materializes the generated set into slot rows, records the
// parameters in day_schedules, and clears all holds for the day.
// Reserved slots survive a republish untouched.  The whole publish is
// one transaction: on any failure nothing is written.
func (h *AdminHandler) PublishSchedule(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	date, err := dateParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	site, err := h.SiteRepo.GetByID(ctx, siteID)
	if err != nil {
		return writeEngineError(c, err)
	}
	interval, rows, err := generateDay(req, site.MinIntervalMinutes)
	if err != nil {
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
	if err := h.SlotRepo.PublishTx(ctx, tx, siteID, date, rows); err != nil {
		return writeEngineError(c, err)
	}
	sched := &model.DaySchedule{
		SiteID:       siteID,
		Date:         date,
		LoadsTarget:  req.Target,
		OpenTime:     req.Open,
		CloseTime:    req.Close,
		WorkInTarget: req.WorkInTarget,
	}
	if err := h.ScheduleRepo.UpsertTx(ctx, tx, sched); err != nil {
		return writeEngineError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeEngineError(c, repository.ErrUnavailable)
	}
	committed = true

	disabledCount := 0
	for _, r := range rows {
		if r.Disabled {
			disabledCount++
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"interval":        interval,
		"generated_count": len(rows),
		"disabled_count":  disabledCount,
	})
}

// AppendTimes handles POST /v1/sites/:site/days/:date/append.  It
// widens a day with a dense run of times without disturbing existing
// rows; no deletes, holds and reservations elsewhere in the day stay
// put.  The step comes from an explicit interval or is derived from a
// target count across the window.
func (h *AdminHandler) AppendTimes(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	date, err := dateParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	var req struct {
		Start    string `json:"start"`
		End      string `json:"end"`
		Interval int    `json:"interval"`
		Target   int    `json:"target"`
		Kind     string `json:"kind"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	kind := req.Kind
	if kind == "" {
		kind = model.KindRegular
	}
	if kind != model.KindRegular && kind != model.KindWorkIn {
		return writeEngineError(c, repository.Validation("kind", "must be %s or %s", model.KindRegular, model.KindWorkIn))
	}
	ctx := c.Request().Context()
	if _, err := h.SiteRepo.GetByID(ctx, siteID); err != nil {
		return writeEngineError(c, err)
	}
	step := req.Interval
	if step <= 0 {
		if req.Target < 1 {
			return writeEngineError(c, repository.Validation("target", "either interval or a positive target is required"))
		}
		startMin, err := schedule.ParseClock(req.Start)
		if err != nil {
			return writeEngineError(c, repository.Validation("start", "%s", err.Error()))
		}
		endMin, err := schedule.ParseClock(req.End)
		if err != nil {
			return writeEngineError(c, repository.Validation("end", "%s", err.Error()))
		}
		denom := req.Target - 1
		if denom < 1 {
			denom = 1
		}
		step = (endMin - startMin) / denom
		if step < 1 {
			step = 1
		}
	}
	times, err := schedule.Span(req.Start, req.End, step)
	if err != nil {
		return writeEngineError(c, repository.Validation("times", "%s", err.Error()))
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
	inserted, err := h.SlotRepo.AppendTimesTx(ctx, tx, siteID, date, times, kind)
	if err != nil {
		return writeEngineError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeEngineError(c, repository.ErrUnavailable)
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{"inserted_times": inserted})
}

// SetDisabled handles PATCH /v1/sites/:site/days/:date/slots.  It
// bulk-flips the disabled flag; times without a matching row are
// ignored, repeating the call is harmless.
func (h *AdminHandler) SetDisabled(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	date, err := dateParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	var req struct {
		Times    []string `json:"times"`
		Disabled bool     `json:"disabled"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.Times) == 0 {
		return writeEngineError(c, repository.Validation("times", "is required"))
	}
	for _, t := range req.Times {
		if _, err := schedule.ParseClock(t); err != nil {
			return writeEngineError(c, repository.Validation("times", "%s", err.Error()))
		}
	}
	changed, err := h.SlotRepo.SetDisabled(c.Request().Context(), siteID, date, req.Times, req.Disabled)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated_count": changed})
}

// ListAllSlots handles GET /v1/sites/:site/days/:date/slots.  The
// operator's day view: every slot with its disabled flag, hold state
// and occupying reservation.
func (h *AdminHandler) ListAllSlots(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	date, err := dateParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	items, err := h.SlotRepo.ListAll(c.Request().Context(), siteID, date)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSchedule handles GET /v1/sites/:site/days/:date/schedule and
// returns the last published parameters for the day.
func (h *AdminHandler) GetSchedule(c echo.Context) error {
	siteID, err := siteParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	date, err := dateParam(c)
	if err != nil {
		return writeEngineError(c, err)
	}
	sched, err := h.ScheduleRepo.GetBySiteDate(c.Request().Context(), siteID, date)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"site_id":       sched.SiteID,
		"date":          sched.Date,
		"loads_target":  sched.LoadsTarget,
		"open":          sched.OpenTime,
		"close":         sched.CloseTime,
		"workin_target": sched.WorkInTarget,
		"updated_at":    sched.UpdatedAt,
	})
}
