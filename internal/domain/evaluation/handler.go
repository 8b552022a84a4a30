package evaluation

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaxcast/vaxcast/internal/platform/auth"
	"github.com/vaxcast/vaxcast/internal/platform/fhir"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	role := auth.RequireRole("admin", "physician", "nurse")

	api.GET("/patients/:id/evaluation", h.Evaluate, role)
	fhirGroup.GET("/Patient/:id/$immunization-forecast", h.EvaluateFHIR, role)
}

// parseAsOf reads the optional ?asOf=YYYY-MM-DD override. Zero means now.
func parseAsOf(c echo.Context) (time.Time, error) {
	asOf := c.QueryParam("asOf")
	if asOf == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", asOf)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (h *Handler) Evaluate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	asOf, err := parseAsOf(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "asOf must be formatted YYYY-MM-DD")
	}

	result, err := h.svc.Evaluate(c.Request().Context(), id, asOf)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) EvaluateFHIR(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	asOf, err := parseAsOf(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("asOf must be formatted YYYY-MM-DD"))
	}

	result, err := h.svc.Evaluate(c.Request().Context(), id, asOf)
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	return c.JSON(http.StatusOK, result.ToFHIR())
}
