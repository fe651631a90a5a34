package fhirdata

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/medcalc/medcalc/internal/domain/staleness"
	"github.com/medcalc/medcalc/internal/platform/auth"
	"github.com/medcalc/medcalc/internal/platform/dom"
)

// ClientFactory returns a FHIR client bound to patientID, or nil when the
// EHR is not configured.
type ClientFactory func(patientID string) Client

type Handler struct {
	svc      *Service
	clients  ClientFactory
	validate *validator.Validate
}

func NewHandler(svc *Service, clients ClientFactory) *Handler {
	return &Handler{svc: svc, clients: clients, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "physician", "nurse")

	obs := api.Group("/observations", role)
	obs.GET("/:code", h.GetObservation)
	obs.GET("/:code/history", h.History)
	obs.GET("/:code/window", h.Window)

	api.GET("/blood-pressure", h.BloodPressure, role)
	api.GET("/demographics", h.Demographics, role)
	api.GET("/conditions", h.Conditions, role)
	api.GET("/medications", h.Medications, role)
	api.POST("/populate", h.Populate, role)
	api.DELETE("/cache", h.ClearCache, role)
}

// session binds a per-request service to the patient named by the
// "patient" query parameter.
func (h *Handler) session(c echo.Context, patientID string, container *dom.Element) (*Service, error) {
	if patientID == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "patient is required")
	}
	client := h.clients(patientID)
	if client == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "fhir server not configured")
	}
	return h.svc.Bind(client, nil, container), nil
}

func boolParam(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}

func codesParam(c echo.Context) []string {
	var out []string
	for _, code := range strings.Split(c.QueryParam("code"), ",") {
		if code = strings.TrimSpace(code); code != "" {
			out = append(out, code)
		}
	}
	return out
}

// GetObservation handles GET /observations/:code?patient=&targetUnit=&unitType=&skipCache=&textQuery=
func (h *Handler) GetObservation(c echo.Context) error {
	svc, err := h.session(c, c.QueryParam("patient"), nil)
	if err != nil {
		return err
	}
	opts := ObservationOptions{
		SkipCache:    boolParam(c, "skipCache"),
		UseTextQuery: boolParam(c, "textQuery"),
		TargetUnit:   c.QueryParam("targetUnit"),
		UnitType:     c.QueryParam("unitType"),
	}
	if d := c.QueryParam("decimals"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "decimals must be a non-negative integer")
		}
		opts.Decimals = &n
	}
	return c.JSON(http.StatusOK, svc.GetObservation(c.Request().Context(), c.Param("code"), opts))
}

// History handles GET /observations/:code/history?patient=&sort=asc|desc
func (h *Handler) History(c echo.Context) error {
	svc, err := h.session(c, c.QueryParam("patient"), nil)
	if err != nil {
		return err
	}
	order := SortAsc
	if c.QueryParam("sort") == string(SortDesc) {
		order = SortDesc
	}
	return c.JSON(http.StatusOK, svc.GetAllObservations(c.Request().Context(), c.Param("code"), order))
}

// Window handles GET /observations/:code/window?patient=&hours=&agg=min|max
func (h *Handler) Window(c echo.Context) error {
	svc, err := h.session(c, c.QueryParam("patient"), nil)
	if err != nil {
		return err
	}
	hours, err := strconv.Atoi(c.QueryParam("hours"))
	if err != nil || hours <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "hours must be a positive integer")
	}
	ctx := c.Request().Context()
	switch agg := Aggregation(c.QueryParam("agg")); agg {
	case "":
		return c.JSON(http.StatusOK, svc.GetObservationsInWindow(ctx, c.Param("code"), hours))
	case AggregateMin, AggregateMax:
		return c.JSON(http.StatusOK, svc.GetAggregatedObservation(ctx, c.Param("code"), agg, hours))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "agg must be min or max")
	}
}

func (h *Handler) BloodPressure(c echo.Context) error {
	svc, err := h.session(c, c.QueryParam("patient"), nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc.GetBloodPressure(c.Request().Context(), BloodPressureOptions{
		SkipCache:      boolParam(c, "skipCache"),
		TrackStaleness: true,
	}))
}

func (h *Handler) Demographics(c echo.Context) error {
	svc, err := h.session(c, c.QueryParam("patient"), nil)
	if err != nil {
		return err
	}
	if svc.LoadPatient(c.Request().Context()) == nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, svc.GetPatientDemographics())
}

// Conditions handles GET /conditions?patient=&code=a,b
func (h *Handler) Conditions(c echo.Context) error {
	svc, err := h.session(c, c.QueryParam("patient"), nil)
	if err != nil {
		return err
	}
	codes := codesParam(c)
	if len(codes) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	found := svc.GetConditions(c.Request().Context(), codes)
	return c.JSON(http.StatusOK, map[string]interface{}{"present": len(found) > 0, "conditions": found})
}

// Medications handles GET /medications?patient=&code=a,b
func (h *Handler) Medications(c echo.Context) error {
	svc, err := h.session(c, c.QueryParam("patient"), nil)
	if err != nil {
		return err
	}
	codes := codesParam(c)
	if len(codes) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	found := svc.GetMedications(c.Request().Context(), codes)
	return c.JSON(http.StatusOK, map[string]interface{}{"active": len(found) > 0, "medications": found})
}

func (h *Handler) ClearCache(c echo.Context) error {
	svc, err := h.session(c, c.QueryParam("patient"), nil)
	if err != nil {
		return err
	}
	svc.ClearCache(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// PopulateRequest is the body of POST /populate: a calculator form and the
// observations to fill into it.
type PopulateRequest struct {
	Patient      string       `json:"patient" validate:"required"`
	Form         string       `json:"form" validate:"required"`
	Container    string       `json:"container,omitempty"`
	Requirements Requirements `json:"requirements"`
}

type PopulateResponse struct {
	PopulateResult
	Stale []staleness.Item `json:"stale"`
	Form  string           `json:"form"`
}

// Populate handles POST /populate and returns the filled form.
func (h *Handler) Populate(c echo.Context) error {
	var req PopulateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	client := h.clients(req.Patient)
	if client == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "fhir server not configured")
	}

	resp, err := h.svc.PopulateForm(c.Request().Context(), client, req.Form, req.Container, req.Requirements)
	if errors.Is(err, ErrInvalidForm) || errors.Is(err, ErrContainerNotFound) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
