package securitylabel

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medcalc/medcalc/internal/platform/auth"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/middleware"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

const restrictedHIVObservation = `{"resourceType":"Observation","id":"o1",
 "meta":{"security":[{"system":"http://terminology.hl7.org/CodeSystem/v3-Confidentiality","code":"R"},
                     {"system":"http://terminology.hl7.org/CodeSystem/v3-ActCode","code":"HIV"}]},
 "note":[{"text":"disclosed to partner"}]}`

// =========== Assess Handler Tests ===========

func TestHandler_Assess_Anonymous(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/security/assess", strings.NewReader(restrictedHIVObservation))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Assess(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var a Assessment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Decision != DecisionMask {
		t.Errorf("expected MASK, got %s", a.Decision)
	}
	if len(a.Sensitivities) != 1 || a.Sensitivities[0] != "HIV" {
		t.Errorf("expected [HIV], got %v", a.Sensitivities)
	}
}

func TestHandler_Assess_AuthorizedPrincipal(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/security/assess", strings.NewReader(restrictedHIVObservation))
	ctx := auth.WithPrincipal(req.Context(), &auth.Principal{
		UserID:               "dr-1",
		Roles:                []string{"physician"},
		AuthorizedCategories: []string{"HIV"},
	})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Assess(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a Assessment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Decision != DecisionWarn {
		t.Errorf("expected WARN, got %s", a.Decision)
	}
}

func TestHandler_Assess_InvalidBody(t *testing.T) {
	h, e := newTestHandler()
	for _, body := range []string{"not json", `{"id":"x"}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c := e.NewContext(req, httptest.NewRecorder())
		err := h.Assess(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %v", body, err)
		}
	}
}

// =========== Mask Handler Tests ===========

func TestHandler_Mask(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/security/mask", strings.NewReader(restrictedHIVObservation))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Mask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := fhir.ParseResource(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	note := r["note"].([]interface{})[0].(map[string]interface{})
	if note["text"] == "disclosed to partner" {
		t.Error("expected note text masked")
	}
	if tags := r.Tags(); len(tags) != 1 || tags[0].Code != MaskedTagCode {
		t.Errorf("expected MASKED tag, got %+v", tags)
	}
}

func TestHandler_Mask_Denied(t *testing.T) {
	h, e := newTestHandler()
	body := `{"resourceType":"Patient","id":"p","meta":{"security":[{"system":"http://terminology.hl7.org/CodeSystem/v3-Confidentiality","code":"V"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Mask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "OperationOutcome") {
		t.Error("expected OperationOutcome body")
	}
}

func TestHandler_Mask_BreakGlass(t *testing.T) {
	svc, alerter := newTestService()
	h, e := NewHandler(svc), echo.New()
	body := `{"resourceType":"Patient","id":"p","meta":{"security":[{"system":"http://terminology.hl7.org/CodeSystem/v3-Confidentiality","code":"V"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	ctx := auth.WithPrincipal(req.Context(), &auth.Principal{UserID: "dr-1", Roles: []string{"physician"}})
	req = req.WithContext(middleware.WithBreakGlass(ctx, "unconscious patient"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Mask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(BreakGlassGrantedHeader) != "true" {
		t.Error("expected break-glass granted header")
	}
	if len(alerter.alerts) != 1 || alerter.alerts[0].alertType != "BREAK_THE_GLASS" {
		t.Errorf("expected one BREAK_THE_GLASS alert, got %+v", alerter.alerts)
	}
}

func TestHandler_Mask_RequireAuthWithoutBreakGlass(t *testing.T) {
	h, e := newTestHandler()
	body := `{"resourceType":"Patient","id":"p","meta":{"security":[{"system":"http://terminology.hl7.org/CodeSystem/v3-Confidentiality","code":"V"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: "dr-1", Roles: []string{"physician"}}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Mask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

// =========== Label Handler Tests ===========

func TestHandler_Label(t *testing.T) {
	h, e := newTestHandler()
	body := `{"resource":{"resourceType":"Observation","id":"o"},"confidentiality":"R","sensitivities":["PSY"]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Label(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := fhir.ParseResource(rec.Body.Bytes())
	if got := len(r.SecurityCodings()); got != 2 {
		t.Errorf("expected 2 labels, got %d", got)
	}
}

func TestHandler_Label_InvalidConfidentiality(t *testing.T) {
	h, e := newTestHandler()
	body := `{"resource":{"resourceType":"Observation"},"confidentiality":"X"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c := e.NewContext(req, httptest.NewRecorder())

	if err := h.Label(c); err == nil {
		t.Error("expected validation error")
	}
}

// =========== Display Handler Tests ===========

func TestHandler_Display(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Display(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]map[string]Display
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["confidentiality"]["V"].EN != "Very Restricted" {
		t.Errorf("unexpected display config %+v", out["confidentiality"])
	}
}
