package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/auth"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func withUser(req *http.Request, id string, roles ...string) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: id, Roles: roles}))
}

// =========== RequestID ===========

func TestRequestID_Generated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	h := RequestID()(func(c echo.Context) error {
		seen, _ = c.Get("request_id").(string)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == "" {
		t.Fatal("expected request_id to be set")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("expected response header %q, got %q", seen, got)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := RequestID()(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected abc-123, got %q", got)
	}
}

// =========== Logger ===========

func TestLogger_WritesErrorResponse(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Logger(logger)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "patient is required")
	})
	if err := h(c); err != nil {
		t.Fatalf("expected error to be handled, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level entry, got %s", out)
	}
	if !strings.Contains(out, `"status":400`) {
		t.Errorf("expected status 400 in log, got %s", out)
	}
}

func TestLogger_QuietPathAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := Logger(logger)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no info log for /health, got %s", buf.String())
	}
}

// =========== Recovery ===========

func TestRecovery_Panic(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		panic("boom")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "OperationOutcome") {
		t.Errorf("expected OperationOutcome body, got %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected panic value in log, got %s", buf.String())
	}
}

func TestRecovery_AbortHandlerRepanics(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	h := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", r)
		}
	}()
	_ = h(c)
}

// =========== RateLimit ===========

func TestRateLimit_Exceeded(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})
	h := mw(okHandler)

	for i := 0; i < 2; i++ {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil), httptest.NewRecorder())
		if err := h(c); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil), rec)
	err := h(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_PerUser(t *testing.T) {
	e := echo.New()
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(okHandler)

	for _, user := range []string{"alice", "bob"} {
		req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil), user)
		c := e.NewContext(req, httptest.NewRecorder())
		if err := h(c); err != nil {
			t.Errorf("expected %s to have an own bucket, got %v", user, err)
		}
	}
}

func TestRateLimit_IdleEviction(t *testing.T) {
	s := &limiterStore{
		cfg:      RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute},
		visitors: make(map[string]*visitor),
	}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.lastGC = now
	s.get("ip:1.2.3.4", now)
	s.get("ip:5.6.7.8", now.Add(2*time.Minute))

	if len(s.visitors) != 1 {
		t.Fatalf("expected idle visitor evicted, got %d visitors", len(s.visitors))
	}
	if _, ok := s.visitors["ip:5.6.7.8"]; !ok {
		t.Error("expected recent visitor kept")
	}
}

// =========== Audit ===========

type mockAlerter struct {
	alerts []string
}

func (m *mockAlerter) LogSecurityAlert(_ context.Context, alertType, description, severity string) error {
	m.alerts = append(m.alerts, alertType+"|"+severity+"|"+description)
	return nil
}

func TestAudit_ForbiddenRaisesAlert(t *testing.T) {
	var buf bytes.Buffer
	alerter := &mockAlerter{}
	e := echo.New()
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/audit/events?patient=p1", nil), "u1", "clinician")
	c := e.NewContext(req, httptest.NewRecorder())

	h := Audit(zerolog.New(&buf), alerter)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	})
	_ = h(c)

	if len(alerter.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerter.alerts))
	}
	if !strings.HasPrefix(alerter.alerts[0], "ACCESS_DENIED|medium|") {
		t.Errorf("expected ACCESS_DENIED medium alert, got %q", alerter.alerts[0])
	}
	out := buf.String()
	if !strings.Contains(out, `"patient_id":"p1"`) || !strings.Contains(out, `"status":403`) {
		t.Errorf("expected access entry with patient and status, got %s", out)
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	var buf bytes.Buffer
	alerter := &mockAlerter{}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), httptest.NewRecorder())

	h := Audit(zerolog.New(&buf), alerter)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized, "no token")
	})
	_ = h(c)

	if buf.Len() != 0 || len(alerter.alerts) != 0 {
		t.Errorf("expected no access entry or alert, got log=%q alerts=%d", buf.String(), len(alerter.alerts))
	}
}

func TestAudit_SuccessNoAlert(t *testing.T) {
	alerter := &mockAlerter{}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil), httptest.NewRecorder())

	if err := Audit(zerolog.Nop(), alerter)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerter.alerts) != 0 {
		t.Errorf("expected no alert, got %d", len(alerter.alerts))
	}
}

// =========== BreakGlass ===========

func TestBreakGlass_Anonymous(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/security/mask", nil)
	req.Header.Set(BreakGlassHeader, "cardiac arrest")
	c := e.NewContext(req, httptest.NewRecorder())

	err := BreakGlass(zerolog.Nop())(okHandler)(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestBreakGlass_StoresReason(t *testing.T) {
	e := echo.New()
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/security/mask", nil), "dr-1")
	req.Header.Set(BreakGlassHeader, "  cardiac arrest ")
	c := e.NewContext(req, httptest.NewRecorder())

	var reason string
	h := BreakGlass(zerolog.Nop())(func(c echo.Context) error {
		reason = BreakGlassReason(c.Request().Context())
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != "cardiac arrest" {
		t.Errorf("expected trimmed reason, got %q", reason)
	}
}

func TestBreakGlass_NoHeaderPassesThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	var reason = "unset"
	h := BreakGlass(zerolog.Nop())(func(c echo.Context) error {
		reason = BreakGlassReason(c.Request().Context())
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != "" {
		t.Errorf("expected empty reason, got %q", reason)
	}
}

func TestBreakGlass_HourlyLimit(t *testing.T) {
	e := echo.New()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := breakGlass(zerolog.Nop(), func() time.Time { return now })(okHandler)

	call := func() error {
		req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), "dr-1")
		req.Header.Set(BreakGlassHeader, "emergency")
		return h(e.NewContext(req, httptest.NewRecorder()))
	}

	for i := 0; i < breakGlassMaxPerHour; i++ {
		if err := call(); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
	var he *echo.HTTPError
	if err := call(); !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %v", err)
	}

	now = now.Add(61 * time.Minute)
	if err := call(); err != nil {
		t.Errorf("expected window to slide after an hour, got %v", err)
	}
}

// =========== SecurityHeaders ===========

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := SecurityHeaders()(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, kv := range securityHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Errorf("expected %s=%q, got %q", kv[0], kv[1], got)
		}
	}
}

// =========== RequestTimeout ===========

func TestRequestTimeout_Exceeded(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil), rec)

	h := RequestTimeout(10 * time.Millisecond)(func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
}

func TestRequestTimeout_Fast(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/observation", nil), rec)

	if err := RequestTimeout(time.Second)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequestTimeout_Disabled(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	var hasDeadline bool
	h := RequestTimeout(0)(func(c echo.Context) error {
		_, hasDeadline = c.Request().Context().Deadline()
		return nil
	})
	_ = h(c)
	if hasDeadline {
		t.Error("expected no deadline when timeout is disabled")
	}
}

// =========== BodyLimit ===========

func TestBodyLimit_DeclaredLengthTooLarge(t *testing.T) {
	e := echo.New()
	body := strings.Repeat("x", 2048)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := BodyLimit("1K", "4K", "/api/v1/populate")(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestBodyLimit_LargeRoute(t *testing.T) {
	e := echo.New()
	body := strings.Repeat("x", 2048)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/populate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var read int
	h := BodyLimit("1K", "4K", "/api/v1/populate")(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		read = len(b)
		return err
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if read != 2048 {
		t.Errorf("expected 2048 bytes read, got %d", read)
	}
}

func TestBodyLimit_UndeclaredLength(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit/events", strings.NewReader(strings.Repeat("x", 2048)))
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())

	h := BodyLimit("1K", "4K")(func(c echo.Context) error {
		_, err := io.ReadAll(c.Request().Body)
		return err
	})
	err := h(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 while reading, got %v", err)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"1K", 1 << 10},
		{"2M", 2 << 20},
		{"2MB", 2 << 20},
		{"1g", 1 << 30},
		{"", defaultBodyLimit},
		{"lots", defaultBodyLimit},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.in); got != tt.want {
			t.Errorf("parseLimit(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}
