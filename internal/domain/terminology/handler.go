package terminology

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medcalc/medcalc/internal/platform/auth"
	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// Handler provides REST endpoints for terminology services.
type Handler struct {
	svc *Service
}

// NewHandler creates a new terminology handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes on the API and FHIR groups.
func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	termGroup := api.Group("/terminology", auth.RequireRole("admin", "physician", "nurse", "pharmacist", "lab-tech"))
	termGroup.GET("/loinc", h.SearchLOINC)
	termGroup.GET("/loinc/:code", h.DescribeLOINC)
	termGroup.GET("/snomed", h.SearchSNOMED)
	termGroup.GET("/rxnorm", h.SearchRxNorm)
	termGroup.GET("/vitals", h.VitalSigns)
	termGroup.GET("/labs/:category", h.LabCategory)

	fhirTerm := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "pharmacist", "lab-tech"))
	fhirTerm.POST("/CodeSystem/$lookup", h.FHIRLookup)
	fhirTerm.POST("/CodeSystem/$validate-code", h.FHIRValidateCode)
	fhirTerm.GET("/ValueSet/$expand", h.ExpandValueSet)
}

func getLimit(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("_count"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}

// SearchLOINC handles GET /api/v1/terminology/loinc?q=...
func (h *Handler) SearchLOINC(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	results, err := h.svc.SearchLOINC(c.Request().Context(), query, getLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

// DescribeLOINC handles GET /api/v1/terminology/loinc/:code
func (h *Handler) DescribeLOINC(c echo.Context) error {
	code := c.Param("code")
	if !IsValidLoincCode(code) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid LOINC code: "+code)
	}
	return c.JSON(http.StatusOK, h.svc.Describe(code))
}

// SearchSNOMED handles GET /api/v1/terminology/snomed?q=...
func (h *Handler) SearchSNOMED(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	results, err := h.svc.SearchSNOMED(c.Request().Context(), query, getLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

// SearchRxNorm handles GET /api/v1/terminology/rxnorm?q=...
func (h *Handler) SearchRxNorm(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	results, err := h.svc.SearchRxNorm(c.Request().Context(), query, getLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) VitalSigns(c echo.Context) error {
	return c.JSON(http.StatusOK, GetVitalSignsCodes())
}

// LabCategory handles GET /api/v1/terminology/labs/:category
func (h *Handler) LabCategory(c echo.Context) error {
	codes := GetLabCodesByCategory(c.Param("category"))
	if codes == nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown lab category: "+c.Param("category"))
	}
	return c.JSON(http.StatusOK, codes)
}

// FHIRLookup handles POST /fhir/CodeSystem/$lookup
func (h *Handler) FHIRLookup(c echo.Context) error {
	var req LookupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	resp, err := h.svc.Lookup(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, resp)
}

// FHIRValidateCode handles POST /fhir/CodeSystem/$validate-code
func (h *Handler) FHIRValidateCode(c echo.Context) error {
	var req ValidateCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	resp, err := h.svc.ValidateCode(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, resp)
}

// ExpandValueSet handles GET /fhir/ValueSet/$expand. A url naming a lab
// category (".../labs/lipid") expands that panel; otherwise the url picks a
// code system and filter searches it.
func (h *Handler) ExpandValueSet(c echo.Context) error {
	url := c.QueryParam("url")
	filter := c.QueryParam("filter")

	contains := []map[string]interface{}{}

	if i := strings.LastIndex(url, "/labs/"); i >= 0 {
		codes := GetLabCodesByCategory(url[i+len("/labs/"):])
		fields := make([]string, 0, len(codes))
		for f := range codes {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			contains = append(contains, map[string]interface{}{
				"system":  SystemLOINC,
				"code":    codes[f],
				"display": f,
			})
		}
	} else {
		var systemURI string
		switch {
		case strings.Contains(url, "loinc"):
			systemURI = SystemLOINC
		case strings.Contains(url, "snomed") || strings.Contains(url, "sct"):
			systemURI = SystemSNOMED
		case strings.Contains(url, "rxnorm"):
			systemURI = SystemRxNorm
		}
		if systemURI != "" && filter != "" {
			results, err := h.svc.SearchCodes(c.Request().Context(), systemURI, filter, getLimit(c))
			if err != nil {
				return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
			}
			for _, r := range results {
				contains = append(contains, map[string]interface{}{
					"system":  r.SystemURI,
					"code":    r.Code,
					"display": r.Display,
				})
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"resourceType": "ValueSet",
		"expansion": map[string]interface{}{
			"identifier": uuid.New().String(),
			"timestamp":  fhir.FormatInstant(time.Now()),
			"total":      len(contains),
			"contains":   contains,
		},
	})
}
