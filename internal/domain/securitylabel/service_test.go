package securitylabel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// =========== Mock Alerter ===========

type alert struct {
	alertType, description, severity string
}

type mockAlerter struct {
	mu     sync.Mutex
	alerts []alert
	err    error
}

func (m *mockAlerter) LogSecurityAlert(_ context.Context, alertType, description, severity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert{alertType, description, severity})
	return m.err
}

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestService(opts ...Option) (*Service, *mockAlerter) {
	a := &mockAlerter{}
	opts = append([]Option{WithAlerter(a), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(DefaultConfig(), zerolog.Nop(), opts...), a
}

func labeled(resourceType, id string, security ...fhir.Coding) fhir.Resource {
	r := fhir.Resource{"resourceType": resourceType, "id": id}
	if len(security) > 0 {
		r.SetMeta(fhir.Meta{Security: security})
	}
	return r
}

func conf(code string) fhir.Coding {
	return fhir.Coding{System: fhir.SecurityLabelSystem, Code: code}
}

// =========== Confidentiality ===========

func TestGetConfidentiality(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct {
		name string
		r    fhir.Resource
		want string
	}{
		{"explicit", labeled("Observation", "1", conf("V")), "V"},
		{"bare restricted from other system", labeled("Observation", "2", fhir.Coding{System: "urn:x", Code: "V"}), "R"},
		{"invalid confidentiality ignored", labeled("Observation", "3", conf("Z")), "N"},
		{"no labels", labeled("Observation", "4"), "N"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.GetConfidentiality(tt.r); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestGetConfidentiality_ConfiguredDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultConfidentiality = "M"
	svc := NewService(cfg, zerolog.Nop())
	if got := svc.GetConfidentiality(labeled("Patient", "p")); got != "M" {
		t.Errorf("expected M, got %s", got)
	}
}

func TestCompareConfidentiality(t *testing.T) {
	if CompareConfidentiality("U", "V") >= 0 {
		t.Error("expected U < V")
	}
	if CompareConfidentiality("V", "U") <= 0 {
		t.Error("expected V > U")
	}
	if CompareConfidentiality("R", "R") != 0 {
		t.Error("expected R == R")
	}
	order := []string{"U", "L", "M", "N", "R", "V"}
	for i := 1; i < len(order); i++ {
		if CompareConfidentiality(order[i-1], order[i]) >= 0 {
			t.Errorf("expected %s < %s", order[i-1], order[i])
		}
	}
}

func TestGetHighestConfidentiality(t *testing.T) {
	svc, _ := newTestService()
	if got := svc.GetHighestConfidentiality(nil); got != "N" {
		t.Errorf("expected N for empty input, got %s", got)
	}
	rs := []fhir.Resource{
		labeled("Observation", "1", conf("L")),
		labeled("Observation", "2", conf("R")),
		labeled("Observation", "3", conf("M")),
	}
	if got := svc.GetHighestConfidentiality(rs); got != "R" {
		t.Errorf("expected R, got %s", got)
	}
	if got := svc.GetHighestConfidentiality([]fhir.Resource{labeled("Observation", "1", conf("U"))}); got != "U" {
		t.Errorf("expected U, got %s", got)
	}
}

// =========== Sensitivities ===========

func TestDetectSensitivities_Labels(t *testing.T) {
	svc, _ := newTestService()
	r := labeled("Observation", "1",
		fhir.Coding{System: fhir.ActCodeSystem, Code: "HIV"},
		fhir.Coding{System: fhir.ActCodeSystem, Code: "MENCAT"},
		fhir.Coding{System: fhir.ActCodeSystem, Code: "STD"},
		fhir.Coding{System: fhir.ActCodeSystem, Code: "SUD"},
		fhir.Coding{System: fhir.ActCodeSystem, Code: "SOC"},
		fhir.Coding{System: fhir.ActCodeSystem, Code: "PSY"},
	)
	got := svc.DetectSensitivities(r)
	want := []string{"HIV", "PSY", "SEX", "ETH", "SDV"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestDetectSensitivities_ConditionCodes(t *testing.T) {
	svc, _ := newTestService()
	tests := map[string]string{
		"B20.1":     "HIV",
		"F32.9":     "PSY",
		"F10.2":     "ETH",
		"T74.1":     "SDV",
		"A54":       "SEX",
		"405824009": "GENETIC",
		"O03":       "REPRODUCTIVE",
	}
	for code, want := range tests {
		r := fhir.Resource{
			"resourceType": "Condition",
			"code":         map[string]interface{}{"coding": []interface{}{map[string]interface{}{"code": code}}},
		}
		got := svc.DetectSensitivities(r)
		if len(got) != 1 || got[0] != want {
			t.Errorf("%s: expected [%s], got %v", code, want, got)
		}
	}

	none := fhir.Resource{
		"resourceType": "Condition",
		"code":         map[string]interface{}{"coding": []interface{}{map[string]interface{}{"code": "I10"}}},
	}
	if got := svc.DetectSensitivities(none); len(got) != 0 {
		t.Errorf("expected no sensitivities for hypertension, got %v", got)
	}
}

func TestDetectSensitivities_ObservationValue(t *testing.T) {
	svc, _ := newTestService()
	r := fhir.Resource{
		"resourceType":         "Observation",
		"code":                 map[string]interface{}{"coding": []interface{}{map[string]interface{}{"code": "75325-1"}}},
		"valueCodeableConcept": map[string]interface{}{"coding": []interface{}{map[string]interface{}{"code": "86406008"}}},
	}
	got := svc.DetectSensitivities(r)
	if len(got) != 1 || got[0] != "HIV" {
		t.Errorf("expected [HIV], got %v", got)
	}
}

func TestDetectSensitivities_Patient(t *testing.T) {
	svc, _ := newTestService()

	minor := fhir.Resource{"resourceType": "Patient", "birthDate": "2010-03-04"}
	if got := svc.DetectSensitivities(minor); len(got) != 1 || got[0] != "MINOR" {
		t.Errorf("expected [MINOR], got %v", got)
	}

	// Turns 18 the day after fixedNow.
	almost := fhir.Resource{"resourceType": "Patient", "birthDate": "2006-06-02"}
	if got := svc.DetectSensitivities(almost); len(got) != 1 {
		t.Errorf("expected MINOR one day before 18th birthday, got %v", got)
	}
	adult := fhir.Resource{"resourceType": "Patient", "birthDate": "2006-06-01"}
	if got := svc.DetectSensitivities(adult); len(got) != 0 {
		t.Errorf("expected adult on 18th birthday, got %v", got)
	}

	vip := fhir.Resource{"resourceType": "Patient", "birthDate": "1970-01-01"}
	vip.SetMeta(fhir.Meta{Tag: []fhir.Coding{{Code: "VIP"}}})
	if got := svc.DetectSensitivities(vip); len(got) != 1 || got[0] != "CELEBRITY" {
		t.Errorf("expected [CELEBRITY], got %v", got)
	}

	ext := fhir.Resource{
		"resourceType": "Patient",
		"extension":    []interface{}{map[string]interface{}{"url": "http://example.org/vip-status", "valueBoolean": true}},
	}
	if got := svc.DetectSensitivities(ext); len(got) != 1 || got[0] != "CELEBRITY" {
		t.Errorf("expected [CELEBRITY] from extension, got %v", got)
	}
}

// =========== Decision Table ===========

func TestAssessSecurity_NoUser(t *testing.T) {
	svc, _ := newTestService()
	tests := map[string]Decision{
		"U": DecisionAllow, "L": DecisionAllow, "M": DecisionAllow, "N": DecisionAllow,
		"R": DecisionMask, "V": DecisionDeny,
	}
	for code, want := range tests {
		a := svc.AssessSecurity(context.Background(), labeled("Patient", "p", conf(code)))
		if a.Decision != want {
			t.Errorf("%s: expected %s, got %s", code, want, a.Decision)
		}
		if want == DecisionAllow {
			if a.WarningMessage != "" || len(a.MaskedFields) != 0 {
				t.Errorf("%s: expected no warning or masked fields on ALLOW, got %+v", code, a)
			}
		} else if a.WarningMessage == "" || len(a.MaskedFields) == 0 {
			t.Errorf("%s: expected warning and masked fields, got %+v", code, a)
		}
	}
}

func TestAssessSecurity_AuthorizedUser(t *testing.T) {
	svc, _ := newTestService()
	hiv := fhir.Coding{System: fhir.ActCodeSystem, Code: "HIV"}
	psy := fhir.Coding{System: fhir.ActCodeSystem, Code: "PSY"}
	r := labeled("Observation", "o1", conf("V"), hiv, psy)

	ctx := context.Background()
	if a := svc.AssessSecurity(ctx, r); a.Decision != DecisionDeny {
		t.Fatalf("expected DENY without user, got %s", a.Decision)
	}

	svc.SetUserContext(UserContext{
		UserID:               "dr-1",
		AuthorizedCategories: []string{"HIV"},
		Permissions:          []string{"access:PSY"},
	})
	a := svc.AssessSecurity(ctx, r)
	if a.Decision != DecisionWarn {
		t.Errorf("expected WARN, got %s", a.Decision)
	}
	if !a.RequiresAuthorization {
		t.Error("expected V to require authorization")
	}
	if len(a.RequiredRoles) == 0 {
		t.Error("expected required roles for HIV and PSY")
	}

	restricted := labeled("Observation", "o2", conf("R"), hiv)
	if got := svc.AssessSecurity(ctx, restricted).Decision; got != DecisionWarn {
		t.Errorf("expected WARN for authorized R, got %s", got)
	}
}

func TestAssessSecurity_UnauthorizedUser(t *testing.T) {
	svc, _ := newTestService()
	svc.SetUserContext(UserContext{UserID: "nurse-1"})
	hiv := fhir.Coding{System: fhir.ActCodeSystem, Code: "HIV"}
	ctx := context.Background()

	if got := svc.AssessSecurity(ctx, labeled("Observation", "1", conf("R"), hiv)).Decision; got != DecisionMask {
		t.Errorf("expected MASK, got %s", got)
	}
	if got := svc.AssessSecurity(ctx, labeled("Observation", "2", conf("V"), hiv)).Decision; got != DecisionRequireAuth {
		t.Errorf("expected REQUIRE_AUTH with break-the-glass, got %s", got)
	}

	cfg := DefaultConfig()
	cfg.EnableBreakTheGlass = false
	strict := NewService(cfg, zerolog.Nop())
	strict.SetUserContext(UserContext{UserID: "nurse-1"})
	if got := strict.AssessSecurity(ctx, labeled("Observation", "3", conf("V"), hiv)).Decision; got != DecisionDeny {
		t.Errorf("expected DENY without break-the-glass, got %s", got)
	}

	svc.ClearUserContext()
	if svc.UserContext() != nil {
		t.Error("expected cleared user context")
	}
}

func TestAssessSecurity_MaskedFieldsByType(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p := svc.AssessSecurity(ctx, labeled("Patient", "p", conf("R")))
	if !contains(p.MaskedFields, "name") || !contains(p.MaskedFields, "identifier") {
		t.Errorf("expected Patient name and identifier masked, got %v", p.MaskedFields)
	}
	o := svc.AssessSecurity(ctx, labeled("Observation", "o", conf("V")))
	if !contains(o.MaskedFields, "valueCodeableConcept") || contains(o.MaskedFields, "name") {
		t.Errorf("expected clinical fields for Observation, got %v", o.MaskedFields)
	}
}

func TestAssessSecurity_WarningMessage(t *testing.T) {
	svc, _ := newTestService()
	a := svc.AssessSecurity(context.Background(), labeled("Observation", "o", conf("R"), fhir.Coding{Code: "HIV"}))
	want := `This data is classified as "Restricted". Contains sensitive categories: HIV/AIDS. Specially protected by law; unauthorized disclosure carries legal liability.`
	if a.WarningMessage != want {
		t.Errorf("expected %q, got %q", want, a.WarningMessage)
	}

	cfg := DefaultConfig()
	cfg.Language = "zh"
	zh := NewService(cfg, zerolog.Nop())
	got := zh.AssessSecurity(context.Background(), labeled("Observation", "o", conf("R"))).WarningMessage
	if got != "此資料為「限制級」等級。" {
		t.Errorf("unexpected zh message %q", got)
	}
}

// =========== Access Log ===========

func TestAssessSecurity_AccessLogAndAlerts(t *testing.T) {
	svc, alerter := newTestService()
	ctx := context.Background()

	svc.AssessSecurity(ctx, labeled("Observation", "a", conf("N")))
	svc.AssessSecurity(ctx, labeled("Observation", "b", conf("R")))
	svc.AssessSecurity(ctx, fhir.Resource{"resourceType": "Patient", "meta": map[string]interface{}{"security": []interface{}{map[string]interface{}{"system": fhir.SecurityLabelSystem, "code": "V"}}}})

	log := svc.AccessLog()
	if len(log) != 3 {
		t.Fatalf("expected 3 access log entries, got %d", len(log))
	}
	if log[0].Decision != DecisionAllow || log[2].ResourceID != "unknown" {
		t.Errorf("unexpected access log %+v", log)
	}
	if !log[0].Timestamp.Equal(fixedNow) {
		t.Errorf("expected timestamp from clock, got %v", log[0].Timestamp)
	}

	if len(alerter.alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerter.alerts))
	}
	if alerter.alerts[0].severity != "medium" || alerter.alerts[1].severity != "high" {
		t.Errorf("unexpected severities %+v", alerter.alerts)
	}
	if alerter.alerts[0].description != "Access to R data: Observation/b" {
		t.Errorf("unexpected description %q", alerter.alerts[0].description)
	}

	svc.ClearAccessLog()
	if len(svc.AccessLog()) != 0 {
		t.Error("expected empty access log")
	}
}

// =========== Break The Glass ===========

func TestRequestBreakTheGlass(t *testing.T) {
	svc, alerter := newTestService()
	ctx := context.Background()
	r := labeled("Patient", "p1", conf("V"))

	if svc.RequestBreakTheGlass(ctx, r, "emergency") {
		t.Error("expected refusal without user context")
	}

	svc.SetUserContext(UserContext{UserID: "dr-2"})
	if !svc.RequestBreakTheGlass(ctx, r, "emergency") {
		t.Error("expected default grant")
	}
	if len(alerter.alerts) != 1 || alerter.alerts[0].alertType != "BREAK_THE_GLASS" || alerter.alerts[0].severity != "critical" {
		t.Errorf("unexpected alerts %+v", alerter.alerts)
	}

	var gotUser string
	svc.SetBreakTheGlassCallback(func(_ context.Context, _ fhir.Resource, reason string, u UserContext) bool {
		gotUser = u.UserID
		return reason == "ok"
	})
	if svc.RequestBreakTheGlass(ctx, r, "nope") {
		t.Error("expected callback denial")
	}
	if gotUser != "dr-2" {
		t.Errorf("expected callback user dr-2, got %q", gotUser)
	}
}

// =========== Labels ===========

func TestAddSecurityLabel(t *testing.T) {
	svc, _ := newTestService()
	r := labeled("Observation", "o", conf("N"), fhir.Coding{System: "urn:other", Code: "X"})
	out := svc.AddSecurityLabel(r, "R", []string{"HIV", "GENERAL"})

	labels := out.SecurityCodings()
	if len(labels) != 3 {
		t.Fatalf("expected 3 labels, got %+v", labels)
	}
	confCount := 0
	for _, l := range labels {
		if l.System == fhir.SecurityLabelSystem {
			confCount++
			if l.Code != "R" || l.Display != "Restricted" {
				t.Errorf("unexpected confidentiality label %+v", l)
			}
		}
	}
	if confCount != 1 {
		t.Errorf("expected 1 confidentiality label, got %d", confCount)
	}
	if labels[2].Code != "HIV" || labels[2].System != fhir.ActCodeSystem {
		t.Errorf("expected HIV ActCode label last, got %+v", labels[2])
	}
	if got := r.SecurityCodings(); len(got) != 2 {
		t.Errorf("expected input untouched, got %+v", got)
	}
}
