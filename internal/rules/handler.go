package rules

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaxcast/vaxcast/internal/platform/auth"
	"github.com/vaxcast/vaxcast/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	read.GET("/rule-sets", h.List)
	read.GET("/rule-sets/active", h.GetActive)
	read.GET("/rule-sets/:id", h.Get)

	write := api.Group("", auth.RequireRole("admin"))
	write.POST("/rule-sets", h.Import)
	write.POST("/rule-sets/:id/activate", h.Activate)
}

// Import accepts a raw rule catalogue document. The name comes from the
// query string so the body can stay the bare exchange format.
func (h *Handler) Import(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		name = "default"
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	rec, err := h.svc.Import(c.Request().Context(), name, body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Activate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Activate(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "rule set not found")
	}
	return c.JSON(http.StatusOK, rec)
}

// GetActive exports the live catalogue in the exchange format.
func (h *Handler) GetActive(c echo.Context) error {
	doc, version, err := h.svc.ExportActive()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set("X-RuleSet-Version", version)
	return c.JSONBlob(http.StatusOK, doc)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
