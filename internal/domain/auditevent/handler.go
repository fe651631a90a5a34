package auditevent

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
	g := api.Group("/audit", RequestInfoMiddleware())

	admin := g.Group("", auth.RequireRole("admin"))
	admin.GET("/events", h.ExportJSON)
	admin.GET("/bundle", h.ExportBundle)
	admin.GET("/pending/count", h.PendingCount)
	admin.POST("/flush", h.Flush)
	admin.DELETE("", h.Clear)

	clinical := g.Group("", auth.RequireRole("physician", "nurse", "pharmacist"))
	clinical.POST("/calculation", h.LogCalculation)
}

// RequestInfoMiddleware puts the caller's user agent and URL on the request
// context so security alerts and logins can record them.
func RequestInfoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := WithRequestInfo(req.Context(), RequestInfo{
				UserAgent: req.UserAgent(),
				URL:       req.URL.String(),
			})
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func (h *Handler) ExportJSON(c echo.Context) error {
	raw, err := h.svc.ExportEventsAsJSON()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (h *Handler) ExportBundle(c echo.Context) error {
	b, err := h.svc.ExportEventsAsBundle()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) PendingCount(c echo.Context) error {
	n, err := h.svc.GetPendingEventCount(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"pending": n})
}

func (h *Handler) Flush(c echo.Context) error {
	ctx := c.Request().Context()
	sent, err := h.svc.FlushPendingEvents(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	remaining, err := h.svc.GetPendingEventCount(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"sent": sent, "pending": remaining})
}

func (h *Handler) Clear(c echo.Context) error {
	if err := h.svc.ClearLocalEvents(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// CalculationRequest is the body of POST /audit/calculation.
type CalculationRequest struct {
	CalculatorID   string                 `json:"calculatorId" validate:"required"`
	CalculatorName string                 `json:"calculatorName" validate:"required"`
	Inputs         map[string]interface{} `json:"inputs"`
	Result         map[string]interface{} `json:"result"`
	Success        *bool                  `json:"success"`
}

func (h *Handler) LogCalculation(c echo.Context) error {
	var req CalculationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	success := req.Success == nil || *req.Success
	ctx := c.Request().Context()
	if p := auth.PrincipalFromContext(ctx); p != nil && p.UserID != "" {
		h.svc.SetPractitioner(p.UserID, p.Name, firstRole(p.Roles))
	}
	if err := h.svc.LogCalculation(ctx, req.CalculatorID, req.CalculatorName, req.Inputs, req.Result, success); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

func firstRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}
