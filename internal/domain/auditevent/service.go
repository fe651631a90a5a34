// Package auditevent records FHIR AuditEvents following the IHE Basic Audit
// Log Patterns. Events are forwarded to an audit server when one is
// configured and kept in an encrypted local queue otherwise.
package auditevent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/telemetry"
)

type Config struct {
	ApplicationID      string
	ApplicationName    string
	ApplicationVersion string
	SiteID             string
	// Origin is the public URL of this application, reported on the
	// application agent.
	Origin             string
	EnableLocalStorage bool
	MaxLocalEvents     int
	EnableDebugLogging bool
}

func DefaultConfig() Config {
	return Config{
		ApplicationID:      "medcalc-ehr",
		ApplicationName:    "MedCalc EHR",
		ApplicationVersion: "1.0.0",
		EnableLocalStorage: true,
		MaxLocalEvents:     1000,
	}
}

// calculationDetailKeys are the only details a calculation event carries.
var calculationDetailKeys = []string{"calculatorId", "calculatorName", "inputs", "result"}

var sensitiveAuditKeys = []string{
	"ssn", "socialsecuritynumber", "password", "pin",
	"creditcard", "bankaccount", "identifier",
}

var severityOutcomes = map[string]string{
	"low":      OutcomeMinorFailure,
	"medium":   OutcomeMinorFailure,
	"high":     OutcomeSeriousFailure,
	"critical": OutcomeMajorFailure,
}

type Option func(*Service)

// WithForwarder enables forwarding to an audit server.
func WithForwarder(f Forwarder) Option {
	return func(s *Service) { s.forwarder = f }
}

func WithPendingRepo(r PendingRepository) Option {
	return func(s *Service) { s.pending = r }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHostname overrides the machine name reported on user agents.
func WithHostname(h string) Option {
	return func(s *Service) { s.hostname = h }
}

type Service struct {
	cfg       Config
	logger    zerolog.Logger
	forwarder Forwarder
	pending   PendingRepository
	metrics   *telemetry.Metrics
	now       func() time.Time
	hostname  string

	mu           sync.Mutex
	practitioner *Agent
	patient      *Entity
	sessionID    string
	events       []AuditEvent
	online       bool
	lastRecorded time.Time

	// serializes load-modify-save of the pending queue
	storeMu sync.Mutex
}

func NewService(cfg Config, logger zerolog.Logger, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.ApplicationID == "" {
		cfg.ApplicationID = def.ApplicationID
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = def.ApplicationName
	}
	if cfg.MaxLocalEvents <= 0 {
		cfg.MaxLocalEvents = def.MaxLocalEvents
	}

	l := logger.With().Str("component", "audit").Logger()
	if !cfg.EnableDebugLogging {
		l = l.Level(zerolog.InfoLevel)
	}

	s := &Service{
		cfg:       cfg,
		logger:    l,
		now:       time.Now,
		online:    true,
		sessionID: newSessionID(),
	}
	if h, err := os.Hostname(); err == nil {
		s.hostname = h
	}
	for _, o := range opts {
		o(s)
	}
	if s.pending == nil {
		s.pending = &memoryPendingRepo{}
	}
	return s
}

func newSessionID() string {
	return "session-" + uuid.NewString()
}

// Load restores the pending queue from the local store into the session
// event list.
func (s *Service) Load(ctx context.Context) error {
	events, err := s.pending.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.events = capEvents(events, s.cfg.MaxLocalEvents)
	s.mu.Unlock()
	s.metrics.SetAuditPending(len(events))
	s.logger.Debug().Int("count", len(events)).Msg("loaded pending audit events")
	return nil
}

func (s *Service) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// SetOnline records connectivity. Going online flushes the pending queue.
func (s *Service) SetOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()
	if online && !was {
		if _, err := s.FlushPendingEvents(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("flush on reconnect")
		}
	}
}

// =========== Session Context ===========

func (s *Service) SetPractitioner(id, name, role string) {
	s.mu.Lock()
	s.practitioner = &Agent{Type: AgentPractitioner, ID: id, Name: name, Role: role, Requestor: true}
	s.mu.Unlock()
	s.logger.Debug().Str("practitioner", id).Msg("practitioner context set")
}

func (s *Service) SetPatientContext(patientID, patientName string) {
	s.mu.Lock()
	s.patient = &Entity{Type: EntityPatient, What: "Patient/" + patientID, Name: patientName}
	s.mu.Unlock()
	s.logger.Debug().Str("patient", patientID).Msg("patient context set")
}

// ClearContext drops the practitioner and patient and starts a new session.
func (s *Service) ClearContext() {
	s.mu.Lock()
	s.practitioner = nil
	s.patient = nil
	s.sessionID = newSessionID()
	s.mu.Unlock()
	s.logger.Debug().Msg("session context cleared")
}

func (s *Service) contextAgents() []Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.practitioner == nil {
		return nil
	}
	return []Agent{*s.practitioner}
}

func (s *Service) contextPatient() *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patient == nil {
		return nil
	}
	p := *s.patient
	return &p
}

// =========== Event Creation ===========

// nextRecorded returns a millisecond timestamp strictly after the previous
// one issued by this service.
func (s *Service) nextRecorded() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC().Truncate(time.Millisecond)
	if !t.After(s.lastRecorded) {
		t = s.lastRecorded.Add(time.Millisecond)
	}
	s.lastRecorded = t
	return t
}

// CreateAuditEvent builds an event. The application agent is always added
// after the supplied agents.
func (s *Service) CreateAuditEvent(p CreateParams) AuditEvent {
	recorded := fhir.FormatInstant(s.nextRecorded())

	typ, ok := eventTypeCodes[p.EventType]
	if !ok {
		typ = fhir.Coding{System: SystemAuditEventType, Code: string(p.EventType)}
	}

	ev := AuditEvent{
		ResourceType: "AuditEvent",
		ID:           uuid.NewString(),
		Meta:         &fhir.Meta{Profile: []string{ProfilePatientRead}, LastUpdated: recorded},
		Type:         typ,
		Action:       p.Action,
		Recorded:     recorded,
		Outcome:      p.Outcome,
		OutcomeDesc:  p.OutcomeDescription,
		Source: EventSource{
			Site: s.cfg.SiteID,
			Observer: fhir.Reference{
				Identifier: &fhir.Identifier{System: SystemURI, Value: s.observerID()},
				Display:    s.cfg.ApplicationName,
			},
			Type: []fhir.Coding{agentTypeCodes[AgentApplication]},
		},
	}

	if p.Subtype != "" {
		ev.Subtype = []fhir.Coding{{System: SystemAuditEventSubtype, Code: p.Subtype, Display: p.Subtype}}
	}
	if p.Start != nil {
		ev.Period = &fhir.Period{Start: fhir.FormatInstant(*p.Start)}
		if p.End != nil {
			ev.Period.End = fhir.FormatInstant(*p.End)
		}
	}
	if p.PurposeOfUse != "" {
		ev.PurposeOfEvent = []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{System: SystemPurposeOfUse, Code: p.PurposeOfUse, Display: p.PurposeOfUse}},
		}}
	}

	ev.Agent = make([]EventAgent, 0, len(p.Agents)+1)
	for _, a := range p.Agents {
		ev.Agent = append(ev.Agent, s.buildAgent(a))
	}
	ev.Agent = append(ev.Agent, s.applicationAgent())

	for _, e := range p.Entities {
		ev.Entity = append(ev.Entity, buildEntity(e))
	}

	details := p.AdditionalInfo
	if p.EventType == EventCalculation {
		details = filterDetails(details, calculationDetailKeys)
	}
	if len(details) > 0 {
		t := entityTypeCodes[EntityResource]
		de := EventEntity{Type: &t}
		for _, d := range details {
			de.Detail = append(de.Detail, EntityDetail{Type: d.Key, ValueString: d.Value})
		}
		ev.Entity = append(ev.Entity, de)
	}
	return ev
}

func (s *Service) observerID() string {
	return "urn:oid:" + s.cfg.ApplicationID
}

func (s *Service) buildAgent(a Agent) EventAgent {
	code := agentTypeCodes[a.Type]
	who := &fhir.Reference{Display: a.Name}
	switch a.Type {
	case AgentPractitioner:
		who.Reference = "Practitioner/" + a.ID
	case AgentPatient:
		who.Reference = "Patient/" + a.ID
	case AgentApplication:
		who.Identifier = &fhir.Identifier{System: SystemURI, Value: a.ID}
	}
	out := EventAgent{
		Type:      &fhir.CodeableConcept{Coding: []fhir.Coding{code}},
		Who:       who,
		Name:      a.Name,
		Requestor: a.Requestor,
	}
	if a.Role != "" {
		out.Role = []fhir.CodeableConcept{{Text: a.Role}}
	}
	if s.hostname != "" {
		out.Network = &Network{Address: s.hostname, Type: "1"}
	}
	return out
}

func (s *Service) applicationAgent() EventAgent {
	name := s.cfg.ApplicationName
	if s.cfg.ApplicationVersion != "" {
		name += " " + s.cfg.ApplicationVersion
	}
	a := EventAgent{
		Type: &fhir.CodeableConcept{Coding: []fhir.Coding{agentTypeCodes[AgentApplication]}},
		Who: &fhir.Reference{
			Identifier: &fhir.Identifier{System: SystemURI, Value: s.observerID()},
			Display:    s.cfg.ApplicationName,
		},
		Name:      name,
		Requestor: false,
	}
	if s.cfg.Origin != "" {
		a.Network = &Network{Address: s.cfg.Origin, Type: "5"}
	}
	return a
}

func buildEntity(e Entity) EventEntity {
	typ := entityTypeCodes[e.Type]
	role := entityRoleCodes[e.Type]
	out := EventEntity{
		What:        &fhir.Reference{Reference: e.What, Display: e.Name},
		Type:        &typ,
		Role:        &role,
		Name:        e.Name,
		Description: e.Description,
	}
	for _, l := range e.SecurityLabel {
		out.SecurityLabel = append(out.SecurityLabel, fhir.Coding{System: fhir.SecurityLabelSystem, Code: l, Display: l})
	}
	if e.Type == EntityQuery && e.Query != "" {
		out.Query = base64.StdEncoding.EncodeToString([]byte(e.Query))
	}
	return out
}

func filterDetails(in []Detail, keys []string) []Detail {
	var out []Detail
	for _, d := range in {
		for _, k := range keys {
			if d.Key == k {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// =========== Convenience Loggers ===========

func outcomeFor(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeMinorFailure
}

// LogLogin sets the practitioner context and records a login.
func (s *Service) LogLogin(ctx context.Context, practitionerID, practitionerName string, success bool) error {
	s.SetPractitioner(practitionerID, practitionerName, "")
	desc := "Login successful"
	if !success {
		desc = "Login failed"
	}
	details := []Detail{{Key: "sessionId", Value: s.SessionID()}}
	if ua := requestInfoFrom(ctx).UserAgent; ua != "" {
		details = append(details, Detail{Key: "userAgent", Value: ua})
	}
	ev := s.CreateAuditEvent(CreateParams{
		EventType:          EventLogin,
		Action:             ActionExecute,
		Outcome:            outcomeFor(success),
		OutcomeDescription: desc,
		Agents:             []Agent{{Type: AgentPractitioner, ID: practitionerID, Name: practitionerName, Requestor: true}},
		AdditionalInfo:     details,
	})
	return s.RecordEvent(ctx, ev)
}

// LogLogout records a logout for the current practitioner and clears the
// context. Without a practitioner nothing is recorded.
func (s *Service) LogLogout(ctx context.Context) error {
	agents := s.contextAgents()
	if len(agents) == 0 {
		s.logger.Debug().Msg("no practitioner context for logout event")
		return nil
	}
	ev := s.CreateAuditEvent(CreateParams{
		EventType:      EventLogout,
		Action:         ActionExecute,
		Outcome:        OutcomeSuccess,
		Agents:         agents,
		AdditionalInfo: []Detail{{Key: "sessionId", Value: s.SessionID()}},
	})
	err := s.RecordEvent(ctx, ev)
	s.ClearContext()
	return err
}

// LogPatientAccess sets the patient context and records a treatment read of
// the patient record, optionally naming one resource.
func (s *Service) LogPatientAccess(ctx context.Context, patientID, patientName, resourceType, resourceID string) error {
	s.SetPatientContext(patientID, patientName)
	entities := []Entity{{Type: EntityPatient, What: "Patient/" + patientID, Name: patientName}}
	if resourceType != "" && resourceID != "" {
		entities = append(entities, Entity{
			Type:        EntityResource,
			What:        resourceType + "/" + resourceID,
			Description: resourceType + " resource access",
		})
	}
	ev := s.CreateAuditEvent(CreateParams{
		EventType:    EventPatientRecordAccess,
		Action:       ActionRead,
		Outcome:      OutcomeSuccess,
		PurposeOfUse: "TREAT",
		Agents:       s.contextAgents(),
		Entities:     entities,
	})
	return s.RecordEvent(ctx, ev)
}

// LogResourceRead records a RESTful read. The patient context, when set,
// comes first; the search query becomes a query entity.
func (s *Service) LogResourceRead(ctx context.Context, resourceType, resourceID, query string) error {
	var entities []Entity
	if p := s.contextPatient(); p != nil {
		entities = append(entities, *p)
	}
	entities = append(entities, Entity{
		Type:        EntityResource,
		What:        resourceType + "/" + resourceID,
		Description: "Read " + resourceType,
	})
	if query != "" {
		entities = append(entities, Entity{
			Type:        EntityQuery,
			What:        resourceType,
			Query:       query,
			Description: "FHIR Search Query",
		})
	}
	ev := s.CreateAuditEvent(CreateParams{
		EventType: EventREST,
		Action:    ActionRead,
		Outcome:   OutcomeSuccess,
		Subtype:   "read",
		Agents:    s.contextAgents(),
		Entities:  entities,
	})
	return s.RecordEvent(ctx, ev)
}

// LogCalculation records a calculator run. Sensitive keys in inputs and
// result are redacted before they are written.
func (s *Service) LogCalculation(ctx context.Context, calculatorID, calculatorName string, inputs, result map[string]interface{}, success bool) error {
	var entities []Entity
	if p := s.contextPatient(); p != nil {
		entities = append(entities, *p)
	}
	in, err := json.Marshal(sanitizeForAudit(inputs))
	if err != nil {
		return fmt.Errorf("encode calculation inputs: %w", err)
	}
	out, err := json.Marshal(sanitizeForAudit(result))
	if err != nil {
		return fmt.Errorf("encode calculation result: %w", err)
	}
	desc := calculatorName + " calculation completed"
	if !success {
		desc = calculatorName + " calculation failed"
	}
	ev := s.CreateAuditEvent(CreateParams{
		EventType:          EventCalculation,
		Action:             ActionExecute,
		Outcome:            outcomeFor(success),
		OutcomeDescription: desc,
		Agents:             s.contextAgents(),
		Entities:           entities,
		AdditionalInfo: []Detail{
			{Key: "calculatorId", Value: calculatorID},
			{Key: "calculatorName", Value: calculatorName},
			{Key: "inputs", Value: string(in)},
			{Key: "result", Value: string(out)},
		},
	})
	return s.RecordEvent(ctx, ev)
}

func (s *Service) LogDataExport(ctx context.Context, exportType string, resourceTypes []string, recordCount int) error {
	var entities []Entity
	if p := s.contextPatient(); p != nil {
		entities = append(entities, *p)
	}
	ev := s.CreateAuditEvent(CreateParams{
		EventType: EventDataExport,
		Action:    ActionRead,
		Outcome:   OutcomeSuccess,
		Agents:    s.contextAgents(),
		Entities:  entities,
		AdditionalInfo: []Detail{
			{Key: "exportType", Value: exportType},
			{Key: "resourceTypes", Value: strings.Join(resourceTypes, ",")},
			{Key: "recordCount", Value: strconv.Itoa(recordCount)},
		},
	})
	return s.RecordEvent(ctx, ev)
}

// LogSecurityAlert records an alert. Severity low and medium map to outcome
// 4, high to 8 and critical to 12.
func (s *Service) LogSecurityAlert(ctx context.Context, alertType, description, severity string) error {
	outcome, ok := severityOutcomes[severity]
	if !ok {
		outcome = OutcomeMinorFailure
	}
	details := []Detail{{Key: "alertType", Value: alertType}, {Key: "severity", Value: severity}}
	info := requestInfoFrom(ctx)
	if info.URL != "" {
		details = append(details, Detail{Key: "url", Value: info.URL})
	}
	if info.UserAgent != "" {
		details = append(details, Detail{Key: "userAgent", Value: info.UserAgent})
	}
	ev := s.CreateAuditEvent(CreateParams{
		EventType:          EventSecurityAlert,
		Action:             ActionExecute,
		Outcome:            outcome,
		OutcomeDescription: description,
		Agents:             s.contextAgents(),
		AdditionalInfo:     details,
	})
	return s.RecordEvent(ctx, ev)
}

func sanitizeForAudit(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return sanitizeForAudit(t)
	case []interface{}:
		items := make([]interface{}, len(t))
		for i, item := range t {
			items[i] = sanitizeValue(item)
		}
		return items
	default:
		return v
	}
}

func isSensitiveKey(k string) bool {
	lower := strings.ToLower(k)
	for _, f := range sensitiveAuditKeys {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// =========== Recording and Storage ===========

// RecordEvent adds ev to the session list, then forwards it when online
// with a forwarder. Events that were not forwarded go to the local queue.
func (s *Service) RecordEvent(ctx context.Context, ev AuditEvent) error {
	s.logger.Debug().Str("type", ev.Type.Display).Str("id", ev.ID).Msg("recording audit event")
	s.metrics.AuditEvent(ev.Type.Code, ev.Outcome)

	s.mu.Lock()
	s.events = capEvents(append(s.events, ev), s.cfg.MaxLocalEvents)
	online := s.online
	s.mu.Unlock()

	if online && s.forwarder != nil {
		err := s.send(ctx, ev)
		if err == nil {
			return nil
		}
		s.logger.Warn().Err(err).Str("id", ev.ID).Msg("forward audit event failed, storing locally")
	}
	if !s.cfg.EnableLocalStorage {
		return nil
	}
	return s.storeLocally(ctx, ev)
}

func (s *Service) send(ctx context.Context, ev AuditEvent) error {
	r, err := ev.Resource()
	if err != nil {
		return err
	}
	if _, err := s.forwarder.Create(ctx, r); err != nil {
		return fmt.Errorf("forward audit event: %w", err)
	}
	return nil
}

func (s *Service) storeLocally(ctx context.Context, ev AuditEvent) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	// An unreadable queue is left as is rather than overwritten.
	stored, err := s.pending.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("id", ev.ID).Msg("failed to read local audit queue, event not stored")
		return err
	}
	stored = capEvents(append(stored, ev), s.cfg.MaxLocalEvents)
	if err := s.pending.Save(ctx, stored); err != nil {
		s.logger.Error().Err(err).Msg("failed to store audit event locally")
		return err
	}
	s.metrics.SetAuditPending(len(stored))
	s.logger.Debug().Int("pending", len(stored)).Msg("audit event stored locally")
	return nil
}

// capEvents keeps the newest max entries.
func capEvents(events []AuditEvent, max int) []AuditEvent {
	if max > 0 && len(events) > max {
		kept := make([]AuditEvent, max)
		copy(kept, events[len(events)-max:])
		return kept
	}
	return events
}

// FlushPendingEvents forwards the local queue and keeps only the events that
// failed. It returns how many were sent.
func (s *Service) FlushPendingEvents(ctx context.Context) (int, error) {
	s.mu.Lock()
	online := s.online
	s.mu.Unlock()
	if s.forwarder == nil || !online {
		return 0, nil
	}

	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	pending, err := s.pending.Load(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	failed := make([]AuditEvent, 0)
	for _, ev := range pending {
		if err := s.send(ctx, ev); err != nil {
			failed = append(failed, ev)
		}
	}
	if err := s.pending.Save(ctx, failed); err != nil {
		return len(pending) - len(failed), err
	}
	s.metrics.SetAuditPending(len(failed))
	sent := len(pending) - len(failed)
	s.logger.Info().Int("sent", sent).Int("failed", len(failed)).Msg("flushed pending audit events")
	return sent, nil
}

func (s *Service) GetPendingEventCount(ctx context.Context) (int, error) {
	events, err := s.pending.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// ClearLocalEvents empties the local queue and the session list.
func (s *Service) ClearLocalEvents(ctx context.Context) error {
	s.storeMu.Lock()
	err := s.pending.Clear(ctx)
	s.storeMu.Unlock()
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
	s.metrics.SetAuditPending(0)
	s.logger.Debug().Msg("local audit events cleared")
	return err
}

// GetAuditEvents returns a copy of the session event list, oldest first.
func (s *Service) GetAuditEvents() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ExportEventsAsJSON renders the session event list as an indented JSON
// array.
func (s *Service) ExportEventsAsJSON() ([]byte, error) {
	return json.MarshalIndent(s.GetAuditEvents(), "", "  ")
}

// ExportEventsAsBundle wraps the session event list in a collection Bundle.
func (s *Service) ExportEventsAsBundle() (*fhir.Bundle, error) {
	events := s.GetAuditEvents()
	items := make([]interface{}, len(events))
	for i := range events {
		items[i] = events[i]
	}
	return fhir.NewCollectionBundle(items)
}

// =========== Request Info ===========

// RequestInfo describes the HTTP request an event is recorded under.
type RequestInfo struct {
	UserAgent string
	URL       string
}

type requestInfoKey struct{}

func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func requestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}

// memoryPendingRepo is used when no local store is configured.
type memoryPendingRepo struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (m *memoryPendingRepo) Load(_ context.Context) ([]AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *memoryPendingRepo) Save(_ context.Context, events []AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append([]AuditEvent(nil), events...)
	return nil
}

func (m *memoryPendingRepo) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	return nil
}
