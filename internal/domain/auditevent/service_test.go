package auditevent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/domain/securitylabel"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/hipaa"
	"github.com/medcalc/medcalc/internal/platform/store"
)

var _ securitylabel.Alerter = (*Service)(nil)

// =========== Mock Forwarder ===========

type mockForwarder struct {
	mu      sync.Mutex
	fail    bool
	created []fhir.Resource
}

func (m *mockForwarder) Create(_ context.Context, r fhir.Resource) (fhir.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("audit server unavailable")
	}
	m.created = append(m.created, r)
	return r, nil
}

func (m *mockForwarder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

// =========== Helpers ===========

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newSecurePending(t *testing.T) (*PendingRepoStore, *store.Memory) {
	t.Helper()
	enc, err := hipaa.NewPHIEncryptor(make([]byte, 32))
	if err != nil {
		t.Fatalf("encryptor: %v", err)
	}
	mem := store.NewMemory()
	return NewPendingRepoStore(store.NewSecure(mem, enc)), mem
}

func newTestService(t *testing.T, cfg Config, opts ...Option) (*Service, *PendingRepoStore) {
	t.Helper()
	repo, _ := newSecurePending(t)
	opts = append([]Option{
		WithPendingRepo(repo),
		WithClock(func() time.Time { return fixedNow }),
		WithHostname("ward-3"),
	}, opts...)
	return NewService(cfg, zerolog.Nop(), opts...), repo
}

// =========== CreateAuditEvent ===========

func TestCreateAuditEvent_EventTypeCodes(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	tests := []struct {
		eventType EventType
		code      string
		system    string
	}{
		{EventLogin, "110122", SystemDCM},
		{EventLogout, "110123", SystemDCM},
		{EventPatientRecordAccess, "110110", SystemDCM},
		{EventDataExport, "110106", SystemDCM},
		{EventCalculation, "CALCULATE", SystemIHEBALP},
		{EventConsentDecision, "110142", SystemDCM},
		{EventSecurityAlert, "110113", SystemDCM},
		{EventREST, "rest", SystemAuditEventType},
	}
	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			ev := svc.CreateAuditEvent(CreateParams{EventType: tt.eventType, Action: ActionExecute, Outcome: OutcomeSuccess})
			if ev.Type.Code != tt.code || ev.Type.System != tt.system {
				t.Errorf("expected %s|%s, got %s|%s", tt.system, tt.code, ev.Type.System, ev.Type.Code)
			}
			if ev.ResourceType != "AuditEvent" {
				t.Errorf("expected AuditEvent, got %s", ev.ResourceType)
			}
		})
	}
}

func TestCreateAuditEvent_ApplicationAgentAlwaysPresent(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	ev := svc.CreateAuditEvent(CreateParams{
		EventType: EventLogin,
		Action:    ActionExecute,
		Outcome:   OutcomeSuccess,
		Agents:    []Agent{{Type: AgentPractitioner, ID: "dr-1", Name: "Dr. Lin", Requestor: true}},
	})
	if len(ev.Agent) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(ev.Agent))
	}
	prac := ev.Agent[0]
	if prac.Who.Reference != "Practitioner/dr-1" || !prac.Requestor {
		t.Errorf("unexpected practitioner agent %+v", prac)
	}
	if prac.Network == nil || prac.Network.Address != "ward-3" || prac.Network.Type != "1" {
		t.Errorf("expected machine-name network, got %+v", prac.Network)
	}
	app := ev.Agent[1]
	if app.Requestor {
		t.Error("expected application agent requestor=false")
	}
	if app.Who.Identifier == nil || app.Who.Identifier.Value != "urn:oid:medcalc-ehr" {
		t.Errorf("expected urn:oid:medcalc-ehr, got %+v", app.Who.Identifier)
	}
	if app.Name != "MedCalc EHR 1.0.0" {
		t.Errorf("expected name with version, got %q", app.Name)
	}
	if ev.Source.Observer.Identifier.Value != "urn:oid:medcalc-ehr" {
		t.Errorf("unexpected observer %+v", ev.Source.Observer)
	}

	bare := svc.CreateAuditEvent(CreateParams{EventType: EventREST, Action: ActionRead, Outcome: OutcomeSuccess})
	if len(bare.Agent) != 1 {
		t.Errorf("expected application agent alone, got %d agents", len(bare.Agent))
	}
}

func TestCreateAuditEvent_OptionalFields(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	ev := svc.CreateAuditEvent(CreateParams{EventType: EventREST, Action: ActionRead, Outcome: OutcomeSuccess})
	if ev.Subtype != nil || ev.PurposeOfEvent != nil || ev.Entity != nil || ev.Period != nil {
		t.Errorf("expected optional fields absent, got %+v", ev)
	}

	start := fixedNow.Add(-time.Minute)
	ev = svc.CreateAuditEvent(CreateParams{
		EventType:    EventREST,
		Action:       ActionRead,
		Outcome:      OutcomeSuccess,
		Subtype:      "read",
		PurposeOfUse: "TREAT",
		Start:        &start,
		Entities: []Entity{
			{Type: EntityResource, What: "Observation/o1", SecurityLabel: []string{"R"}},
			{Type: EntityQuery, What: "Observation", Query: "code=2160-0"},
		},
	})
	if len(ev.Subtype) != 1 || ev.Subtype[0].Code != "read" {
		t.Errorf("unexpected subtype %+v", ev.Subtype)
	}
	if len(ev.PurposeOfEvent) != 1 || ev.PurposeOfEvent[0].Coding[0].Code != "TREAT" {
		t.Errorf("unexpected purpose %+v", ev.PurposeOfEvent)
	}
	if ev.Period == nil || ev.Period.Start != "2024-06-01T11:59:00.000Z" || ev.Period.End != "" {
		t.Errorf("unexpected period %+v", ev.Period)
	}
	res := ev.Entity[0]
	if len(res.SecurityLabel) != 1 || res.SecurityLabel[0].System != fhir.SecurityLabelSystem {
		t.Errorf("unexpected security labels %+v", res.SecurityLabel)
	}
	if res.Role.Code != "4" {
		t.Errorf("expected role 4, got %s", res.Role.Code)
	}
	q := ev.Entity[1]
	decoded, _ := base64.StdEncoding.DecodeString(q.Query)
	if string(decoded) != "code=2160-0" {
		t.Errorf("expected base64 query, got %q", q.Query)
	}
	if q.Role.Code != "24" {
		t.Errorf("expected query role 24, got %s", q.Role.Code)
	}
}

func TestCreateAuditEvent_CalculationDetailHasFourFields(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	ev := svc.CreateAuditEvent(CreateParams{
		EventType: EventCalculation,
		Action:    ActionExecute,
		Outcome:   OutcomeSuccess,
		AdditionalInfo: []Detail{
			{Key: "calculatorId", Value: "bmi"},
			{Key: "calculatorName", Value: "BMI"},
			{Key: "inputs", Value: "{}"},
			{Key: "result", Value: "{}"},
			{Key: "timestamp", Value: "2024-06-01"},
		},
	})
	if len(ev.Entity) != 1 {
		t.Fatalf("expected one detail entity, got %d", len(ev.Entity))
	}
	detail := ev.Entity[0].Detail
	if len(detail) != 4 {
		t.Fatalf("expected 4 details, got %d", len(detail))
	}
	for i, k := range calculationDetailKeys {
		if detail[i].Type != k {
			t.Errorf("detail %d: expected %s, got %s", i, k, detail[i].Type)
		}
	}
}

func TestCreateAuditEvent_RecordedStrictlyIncreasing(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	prev := ""
	for i := 0; i < 5; i++ {
		ev := svc.CreateAuditEvent(CreateParams{EventType: EventREST, Action: ActionRead, Outcome: OutcomeSuccess})
		if ev.Recorded <= prev {
			t.Fatalf("expected %q after %q", ev.Recorded, prev)
		}
		prev = ev.Recorded
	}
	if prev != "2024-06-01T12:00:00.004Z" {
		t.Errorf("expected 1ms steps under a frozen clock, got %s", prev)
	}
}

// =========== Convenience Loggers ===========

func TestLogLoginLogout(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	ctx := WithRequestInfo(context.Background(), RequestInfo{UserAgent: "medcalc-cli/1.0"})
	session := svc.SessionID()

	if err := svc.LogLogin(ctx, "dr-1", "Dr. Lin", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.LogLogout(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := svc.GetAuditEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	login := events[0]
	if login.Outcome != OutcomeMinorFailure || login.OutcomeDesc != "Login failed" {
		t.Errorf("unexpected login outcome %s %q", login.Outcome, login.OutcomeDesc)
	}
	if v, _ := login.DetailValue("sessionId"); v != session {
		t.Errorf("expected session %s, got %s", session, v)
	}
	if v, _ := login.DetailValue("userAgent"); v != "medcalc-cli/1.0" {
		t.Errorf("expected user agent detail, got %q", v)
	}
	if events[1].Type.Code != "110123" {
		t.Errorf("expected logout, got %s", events[1].Type.Code)
	}
	if svc.SessionID() == session {
		t.Error("expected new session after logout")
	}

	if err := svc.LogLogout(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(svc.GetAuditEvents()); got != 2 {
		t.Errorf("expected logout without practitioner to record nothing, got %d events", got)
	}
}

func TestLogResourceRead_UsesPatientContext(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	svc.SetPractitioner("dr-1", "Dr. Lin", "physician")
	svc.SetPatientContext("p1", "Chen Wei")

	if err := svc.LogResourceRead(context.Background(), "Observation", "o1", "code=29463-7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := svc.GetAuditEvents()[0]
	if ev.Action != ActionRead || ev.Subtype[0].Code != "read" {
		t.Errorf("unexpected action/subtype %s %+v", ev.Action, ev.Subtype)
	}
	if len(ev.Entity) != 3 {
		t.Fatalf("expected patient, resource and query entities, got %d", len(ev.Entity))
	}
	if ev.Entity[0].What.Reference != "Patient/p1" || ev.Entity[1].What.Reference != "Observation/o1" {
		t.Errorf("unexpected entity order %+v %+v", ev.Entity[0].What, ev.Entity[1].What)
	}
	if ev.Agent[0].Role[0].Text != "physician" {
		t.Errorf("expected practitioner role, got %+v", ev.Agent[0].Role)
	}
}

func TestLogPatientAccess(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	if err := svc.LogPatientAccess(context.Background(), "p1", "Chen Wei", "Condition", "c9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := svc.GetAuditEvents()[0]
	if ev.PurposeOfEvent[0].Coding[0].Code != "TREAT" {
		t.Error("expected TREAT purpose")
	}
	if len(ev.Entity) != 2 || ev.Entity[1].What.Reference != "Condition/c9" {
		t.Errorf("unexpected entities %+v", ev.Entity)
	}
	if p := svc.contextPatient(); p == nil || p.What != "Patient/p1" {
		t.Error("expected patient context set")
	}
}

func TestLogCalculation_SanitizesInputs(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	inputs := map[string]interface{}{
		"weight":            70.0,
		"patientIdentifier": "A123",
		"nested":            map[string]interface{}{"SSN": "123-45-6789", "age": 40.0},
	}
	if err := svc.LogCalculation(context.Background(), "bmi", "BMI", inputs, map[string]interface{}{"bmi": 22.9}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := svc.GetAuditEvents()[0]
	raw, _ := ev.DetailValue("inputs")
	var got map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("decode inputs: %v", err)
	}
	if got["patientIdentifier"] != "[REDACTED]" {
		t.Errorf("expected identifier redacted, got %v", got["patientIdentifier"])
	}
	nested := got["nested"].(map[string]interface{})
	if nested["SSN"] != "[REDACTED]" || nested["age"] != 40.0 {
		t.Errorf("unexpected nested %v", nested)
	}
	if got["weight"] != 70.0 {
		t.Errorf("expected weight kept, got %v", got["weight"])
	}
	if ev.OutcomeDesc != "BMI calculation completed" {
		t.Errorf("unexpected description %q", ev.OutcomeDesc)
	}
}

func TestLogSecurityAlert_SeverityOutcome(t *testing.T) {
	tests := []struct {
		severity string
		outcome  string
	}{
		{"low", "4"},
		{"medium", "4"},
		{"high", "8"},
		{"critical", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			svc, _ := newTestService(t, DefaultConfig())
			if err := svc.LogSecurityAlert(context.Background(), "BREAK_THE_GLASS", "override", tt.severity); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ev := svc.GetAuditEvents()[0]
			if ev.Outcome != tt.outcome {
				t.Errorf("expected %s, got %s", tt.outcome, ev.Outcome)
			}
			if v, _ := ev.DetailValue("alertType"); v != "BREAK_THE_GLASS" {
				t.Errorf("expected alertType detail, got %q", v)
			}
		})
	}
}

func TestLogDataExport(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	svc.LogDataExport(context.Background(), "bundle", []string{"Observation", "Condition"}, 12)
	ev := svc.GetAuditEvents()[0]
	if v, _ := ev.DetailValue("resourceTypes"); v != "Observation,Condition" {
		t.Errorf("unexpected resourceTypes %q", v)
	}
	if v, _ := ev.DetailValue("recordCount"); v != "12" {
		t.Errorf("unexpected recordCount %q", v)
	}
}

// =========== Local Queue ===========

func TestLocalQueue_FIFOCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLocalEvents = 3
	svc, repo := newTestService(t, cfg)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		ev := svc.CreateAuditEvent(CreateParams{EventType: EventREST, Action: ActionRead, Outcome: OutcomeSuccess})
		ids = append(ids, ev.ID)
		if err := svc.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	n, err := svc.GetPendingEventCount(ctx)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 pending, got %d (%v)", n, err)
	}
	stored, _ := repo.Load(ctx)
	for i, ev := range stored {
		if ev.ID != ids[i+2] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i+2], ev.ID)
		}
	}
	if got := len(svc.GetAuditEvents()); got != 3 {
		t.Errorf("expected session list capped at 3, got %d", got)
	}
}

func TestLocalQueue_EncryptedAtRest(t *testing.T) {
	repo, mem := newSecurePending(t)
	svc := NewService(DefaultConfig(), zerolog.Nop(), WithPendingRepo(repo))
	svc.SetPatientContext("p1", "Chen Wei")
	svc.LogPatientAccess(context.Background(), "p1", "Chen Wei", "", "")

	raw, err := mem.Get(context.Background(), PendingKey)
	if err != nil {
		t.Fatalf("expected pending key: %v", err)
	}
	if strings.Contains(raw, "Chen Wei") || strings.Contains(raw, "AuditEvent") {
		t.Error("expected pending queue stored encrypted")
	}
}

func TestLocalQueue_UnreadableQueueNotOverwritten(t *testing.T) {
	repo, mem := newSecurePending(t)
	ctx := context.Background()
	if err := mem.Set(ctx, PendingKey, "not-a-ciphertext", 0); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewService(DefaultConfig(), zerolog.Nop(), WithPendingRepo(repo))

	ev := svc.CreateAuditEvent(CreateParams{EventType: EventREST, Action: ActionRead, Outcome: OutcomeSuccess})
	if err := svc.RecordEvent(ctx, ev); err == nil {
		t.Error("expected an error when the queue cannot be read")
	}
	raw, err := mem.Get(ctx, PendingKey)
	if err != nil || raw != "not-a-ciphertext" {
		t.Errorf("expected stored queue left untouched, got %q (%v)", raw, err)
	}
	if len(svc.GetAuditEvents()) != 1 {
		t.Error("expected event kept in session list")
	}
}

func TestLocalStorageDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableLocalStorage = false
	svc, _ := newTestService(t, cfg)
	svc.LogResourceRead(context.Background(), "Observation", "o1", "")
	if n, _ := svc.GetPendingEventCount(context.Background()); n != 0 {
		t.Errorf("expected nothing queued, got %d", n)
	}
	if len(svc.GetAuditEvents()) != 1 {
		t.Error("expected event kept in session list")
	}
}

func TestClearLocalEvents(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	ctx := context.Background()
	svc.LogResourceRead(ctx, "Observation", "o1", "")
	if err := svc.ClearLocalEvents(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := svc.GetPendingEventCount(ctx); n != 0 {
		t.Errorf("expected 0 pending, got %d", n)
	}
	if len(svc.GetAuditEvents()) != 0 {
		t.Error("expected empty session list")
	}
}

func TestLoad_RestoresPending(t *testing.T) {
	repo, _ := newSecurePending(t)
	ctx := context.Background()
	first := NewService(DefaultConfig(), zerolog.Nop(), WithPendingRepo(repo))
	first.LogResourceRead(ctx, "Observation", "o1", "")
	first.LogResourceRead(ctx, "Observation", "o2", "")

	second := NewService(DefaultConfig(), zerolog.Nop(), WithPendingRepo(repo))
	if err := second.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(second.GetAuditEvents()); got != 2 {
		t.Errorf("expected 2 restored events, got %d", got)
	}
}

// =========== Forwarding ===========

func TestRecordEvent_ForwardedNotQueued(t *testing.T) {
	fwd := &mockForwarder{}
	svc, _ := newTestService(t, DefaultConfig(), WithForwarder(fwd))
	ctx := context.Background()
	svc.LogResourceRead(ctx, "Observation", "o1", "")

	if fwd.count() != 1 {
		t.Errorf("expected 1 forwarded, got %d", fwd.count())
	}
	if n, _ := svc.GetPendingEventCount(ctx); n != 0 {
		t.Errorf("expected nothing pending, got %d", n)
	}
	if got := fwd.created[0].Type(); got != "AuditEvent" {
		t.Errorf("expected AuditEvent forwarded, got %s", got)
	}
}

func TestFlushPendingEvents_KeepsFailures(t *testing.T) {
	fwd := &mockForwarder{fail: true}
	svc, _ := newTestService(t, DefaultConfig(), WithForwarder(fwd))
	ctx := context.Background()

	svc.LogResourceRead(ctx, "Observation", "o1", "")
	svc.LogResourceRead(ctx, "Observation", "o2", "")
	if n, _ := svc.GetPendingEventCount(ctx); n != 2 {
		t.Fatalf("expected 2 pending after failed forward, got %d", n)
	}

	sent, err := svc.FlushPendingEvents(ctx)
	if err != nil || sent != 0 {
		t.Fatalf("expected 0 sent, got %d (%v)", sent, err)
	}
	if n, _ := svc.GetPendingEventCount(ctx); n != 2 {
		t.Errorf("expected failures kept, got %d", n)
	}

	fwd.mu.Lock()
	fwd.fail = false
	fwd.mu.Unlock()
	sent, err = svc.FlushPendingEvents(ctx)
	if err != nil || sent != 2 {
		t.Fatalf("expected 2 sent, got %d (%v)", sent, err)
	}
	if n, _ := svc.GetPendingEventCount(ctx); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

func TestSetOnline_FlushesOnReconnect(t *testing.T) {
	fwd := &mockForwarder{}
	svc, _ := newTestService(t, DefaultConfig(), WithForwarder(fwd))
	ctx := context.Background()

	svc.SetOnline(ctx, false)
	svc.LogResourceRead(ctx, "Observation", "o1", "")
	if fwd.count() != 0 {
		t.Fatal("expected no forwarding while offline")
	}
	if sent, _ := svc.FlushPendingEvents(ctx); sent != 0 {
		t.Error("expected flush to do nothing offline")
	}

	svc.SetOnline(ctx, true)
	if fwd.count() != 1 {
		t.Errorf("expected flush on reconnect, got %d forwarded", fwd.count())
	}
	if n, _ := svc.GetPendingEventCount(ctx); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

// =========== Export ===========

func TestExportEventsAsJSON_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	ctx := context.Background()

	raw, err := svc.ExportEventsAsJSON()
	if err != nil || string(raw) != "[]" {
		t.Fatalf("expected empty array, got %s (%v)", raw, err)
	}

	svc.LogLogin(ctx, "dr-1", "Dr. Lin", true)
	svc.LogResourceRead(ctx, "Observation", "o1", "")
	raw, err = svc.ExportEventsAsJSON()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 events, got %d", len(out))
	}
	for i, ev := range out {
		if ev["resourceType"] != "AuditEvent" {
			t.Errorf("event %d: expected AuditEvent, got %v", i, ev["resourceType"])
		}
	}
}

func TestExportEventsAsBundle(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig())
	svc.LogResourceRead(context.Background(), "Observation", "o1", "")
	b, err := svc.ExportEventsAsBundle()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if b.Type != "collection" || len(b.Entry) != 1 {
		t.Fatalf("expected collection with 1 entry, got %s/%d", b.Type, len(b.Entry))
	}
	if !strings.HasPrefix(b.Entry[0].FullURL, "urn:uuid:") {
		t.Errorf("unexpected fullUrl %s", b.Entry[0].FullURL)
	}
	if got := b.Resources()[0].Type(); got != "AuditEvent" {
		t.Errorf("expected AuditEvent entry, got %s", got)
	}
}
