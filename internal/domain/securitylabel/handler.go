package securitylabel

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/medcalc/medcalc/internal/platform/auth"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/middleware"
)

// BreakGlassGrantedHeader marks a response released unmasked under
// emergency access.
const BreakGlassGrantedHeader = "X-Break-Glass-Granted"

// Handler exposes the security label rules over HTTP.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// RegisterRoutes registers the security routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/security", auth.RequireRole("admin", "physician", "nurse", "pharmacist"))
	g.POST("/assess", h.Assess)
	g.POST("/mask", h.Mask)
	g.POST("/label", h.Label)
	g.GET("/display", h.Display)
	g.GET("/access-log", h.AccessLog, auth.RequireRole("admin"))
}

// LabelRequest is the body of POST /security/label.
type LabelRequest struct {
	Resource        fhir.Resource `json:"resource" validate:"required"`
	Confidentiality string        `json:"confidentiality" validate:"required,oneof=U L M N R V"`
	Sensitivities   []string      `json:"sensitivities,omitempty"`
}

// userFromContext maps the authenticated principal to a UserContext. Nil
// when the request is anonymous.
func userFromContext(c echo.Context) *UserContext {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return nil
	}
	return &UserContext{
		UserID:               p.UserID,
		Roles:                p.Roles,
		AuthorizedCategories: p.AuthorizedCategories,
		Permissions:          p.Permissions,
	}
}

func bindResource(c echo.Context) (fhir.Resource, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unable to read body")
	}
	r, err := fhir.ParseResource(body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if r.Type() == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "resourceType is required")
	}
	return r, nil
}

// Assess handles POST /api/v1/security/assess with a FHIR resource body.
func (h *Handler) Assess(c echo.Context) error {
	r, err := bindResource(c)
	if err != nil {
		return err
	}
	a := h.svc.AssessFor(c.Request().Context(), r, userFromContext(c))
	return c.JSON(http.StatusOK, a)
}

// Mask handles POST /api/v1/security/mask. DENY and REQUIRE_AUTH answer 403
// with an OperationOutcome.
func (h *Handler) Mask(c echo.Context) error {
	r, err := bindResource(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user := userFromContext(c)
	a := h.svc.AssessFor(ctx, r, user)
	if a.Decision == DecisionRequireAuth {
		if reason := middleware.BreakGlassReason(ctx); reason != "" && h.svc.RequestBreakTheGlassFor(ctx, r, reason, user) {
			c.Response().Header().Set(BreakGlassGrantedHeader, "true")
			return c.JSON(http.StatusOK, r)
		}
	}
	if a.Decision == DecisionDeny || a.Decision == DecisionRequireAuth {
		return c.JSON(http.StatusForbidden, fhir.NewOperationOutcome("error", "forbidden", a.WarningMessage))
	}
	return c.JSON(http.StatusOK, h.svc.MaskResource(ctx, r, &a))
}

// Label handles POST /api/v1/security/label.
func (h *Handler) Label(c echo.Context) error {
	var req LabelRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.AddSecurityLabel(req.Resource, req.Confidentiality, req.Sensitivities))
}

// Display handles GET /api/v1/security/display.
func (h *Handler) Display(c echo.Context) error {
	return c.JSON(http.StatusOK, DisplayConfig())
}

// AccessLog handles GET /api/v1/security/access-log.
func (h *Handler) AccessLog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.AccessLog())
}
