package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/truck-intake-reservation/internal/model"
	"github.com/iliyamo/truck-intake-reservation/internal/repository"
)

// SiteHandler exposes site administration: registering intake sites
// and listing them.  Sites are configuration, so this surface is
// deliberately small.
type SiteHandler struct {
	SiteRepo      *repository.SiteRepo // site persistence
	DefaultMinGap int                  // interval floor applied when the request omits one
}

// NewSiteHandler constructs a SiteHandler.  The repository must be non-nil.
func NewSiteHandler(siteRepo *repository.SiteRepo, defaultMinGap int) *SiteHandler {
	if siteRepo == nil {
		panic("nil repository passed to NewSiteHandler")
	}
	return &SiteHandler{SiteRepo: siteRepo, DefaultMinGap: defaultMinGap}
}

// CreateSite handles POST /v1/sites.  The minimum interval is a
// physical property of the lane; when omitted the configured default
// applies.
func (h *SiteHandler) CreateSite(c echo.Context) error {
	var body struct {
		Name               string `json:"name"`
		MinIntervalMinutes int    `json:"min_interval_minutes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return writeEngineError(c, repository.Validation("name", "is required"))
	}
	if body.MinIntervalMinutes < 0 {
		return writeEngineError(c, repository.Validation("min_interval_minutes", "must not be negative"))
	}
	site := &model.Site{Name: name, MinIntervalMinutes: body.MinIntervalMinutes}
	if site.MinIntervalMinutes == 0 {
		site.MinIntervalMinutes = h.DefaultMinGap
	}
	if err := h.SiteRepo.Create(c.Request().Context(), site); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":                   site.ID,
		"name":                 site.Name,
		"min_interval_minutes": site.MinIntervalMinutes,
	})
}

// ListSites handles GET /v1/sites.
func (h *SiteHandler) ListSites(c echo.Context) error {
	sites, err := h.SiteRepo.ListAll(c.Request().Context())
	if err != nil {
		return writeEngineError(c, err)
	}
	items := make([]echo.Map, 0, len(sites))
	for _, s := range sites {
		items = append(items, echo.Map{
			"id":                   s.ID,
			"name":                 s.Name,
			"min_interval_minutes": s.MinIntervalMinutes,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
