package provenance

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/medcalc/medcalc/internal/platform/auth"
	"github.com/medcalc/medcalc/internal/platform/fhir"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "physician", "nurse")

	read := api.Group("/provenance", role)
	read.GET("", h.ExportJSON)
	read.GET("/bundle", h.ExportBundle)
	read.GET("/lineage", h.Lineage)

	write := api.Group("/provenance", role)
	write.POST("/calculation", h.RecordCalculation)
	write.POST("/flush", h.Flush, auth.RequireRole("admin"))
}

func (h *Handler) ExportJSON(c echo.Context) error {
	raw, err := h.svc.ExportRecordsAsJSON()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (h *Handler) ExportBundle(c echo.Context) error {
	b, err := h.svc.ExportRecordsAsBundle()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, b)
}

// Lineage handles GET /provenance/lineage?target=<reference>.
func (h *Handler) Lineage(c echo.Context) error {
	target := c.QueryParam("target")
	if target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target is required")
	}
	return c.JSON(http.StatusOK, h.svc.GenerateLineageReport(target))
}

func (h *Handler) RecordCalculation(c echo.Context) error {
	var req CalculationResult
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if p := auth.PrincipalFromContext(ctx); p != nil && p.UserID != "" {
		h.svc.SetPractitioner(p.UserID, p.Name, "")
	}
	prov, err := h.svc.RecordCalculation(ctx, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, prov)
}

func (h *Handler) Flush(c echo.Context) error {
	ctx := c.Request().Context()
	sent, err := h.svc.FlushPendingRecords(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	remaining, err := h.svc.GetPendingRecordCount(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"sent": sent, "pending": remaining})
}
