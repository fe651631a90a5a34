package provenance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medcalc/medcalc/internal/platform/auth"
	"github.com/medcalc/medcalc/internal/platform/fhir"
)

func newTestHandler(t *testing.T, opts ...Option) (*Handler, *Service, *echo.Echo) {
	svc, _ := newTestService(t, DefaultConfig(), opts...)
	return NewHandler(svc), svc, echo.New()
}

func TestHandler_RecordCalculation(t *testing.T) {
	h, svc, e := newTestHandler(t)
	body := `{"calculatorId":"bmi","calculatorName":"BMI","inputs":{"weight":70},"outputs":{"bmi":22.9},"patientId":"p1","sources":[{"reference":"Observation/w1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/provenance/calculation", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: "dr-1", Name: "Dr. Lin", Roles: []string{"physician"}}))
	rec := httptest.NewRecorder()

	if err := h.RecordCalculation(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var p Provenance
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Agent[0].Who.Reference != "Practitioner/dr-1" {
		t.Errorf("expected principal as author, got %+v", p.Agent[0].Who)
	}
	if len(svc.GetProvenanceRecords()) != 1 {
		t.Errorf("expected record kept")
	}
}

func TestHandler_RecordCalculation_Invalid(t *testing.T) {
	h, _, e := newTestHandler(t)
	for _, body := range []string{"{", `{"calculatorId":"bmi"}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		err := h.RecordCalculation(e.NewContext(req, httptest.NewRecorder()))
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %v", body, err)
		}
	}
}

func TestHandler_Lineage(t *testing.T) {
	h, svc, e := newTestHandler(t)
	svc.RecordDerivation(context.Background(), "Observation/bmi", "BMI", []fhir.Reference{{Reference: "Observation/w"}}, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/provenance/lineage?target=Observation/bmi", nil)
	if err := h.Lineage(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var r LineageReport
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Target != "Observation/bmi" || len(r.Records) != 1 || r.Sources[0] != "Observation/w" {
		t.Errorf("unexpected report %+v", r)
	}

	err := h.Lineage(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without target, got %v", err)
	}
}

func TestHandler_ExportAndFlush(t *testing.T) {
	fwd := &mockForwarder{fail: true}
	h, svc, e := newTestHandler(t, WithForwarder(fwd))
	svc.RecordDataCreation(context.Background(), "Observation/o1", "o1", "", "")

	rec := httptest.NewRecorder()
	if err := h.ExportBundle(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := fhir.ParseBundle(rec.Body.Bytes())
	if err != nil || len(b.Entry) != 1 {
		t.Fatalf("expected 1 bundle entry (%v)", err)
	}

	rec = httptest.NewRecorder()
	if err := h.ExportJSON(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"resourceType": "Provenance"`) {
		t.Errorf("expected indented provenance export, got %s", rec.Body.String())
	}

	fwd.setFail(false)
	rec = httptest.NewRecorder()
	if err := h.Flush(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]int
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["sent"] != 1 || out["pending"] != 0 {
		t.Errorf("unexpected flush result %v", out)
	}
}
