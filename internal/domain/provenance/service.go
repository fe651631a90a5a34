// Package provenance records FHIR Provenance resources (TW Core profile) for
// calculations and clinical data so the lineage of a result can be traced
// back to the observations and people that produced it.
package provenance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

type Config struct {
	ApplicationID      string
	ApplicationName    string
	ApplicationVersion string
	OrganizationRef    string
	OrganizationName   string
	LocationRef        string
	LocationName       string
	EnableLocalStorage bool
	MaxLocalRecords    int
	EnableDebugLogging bool
}

func DefaultConfig() Config {
	return Config{
		ApplicationID:      "medcalc-ehr",
		ApplicationName:    "MedCalc EHR",
		ApplicationVersion: "1.0.0",
		EnableLocalStorage: true,
		MaxLocalRecords:    500,
	}
}

var sensitiveProvenanceKeys = []string{
	"ssn", "socialsecuritynumber", "password", "pin", "creditcard", "bankaccount",
}

type Option func(*Service)

// WithForwarder enables forwarding to a FHIR server.
func WithForwarder(f Forwarder) Option {
	return func(s *Service) { s.forwarder = f }
}

func WithPendingRepo(r PendingRepository) Option {
	return func(s *Service) { s.pending = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	cfg       Config
	logger    zerolog.Logger
	forwarder Forwarder
	pending   PendingRepository
	now       func() time.Time

	mu           sync.Mutex
	practitioner *Agent
	patientID    string
	patientName  string
	records      []Provenance
	online       bool

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
	if cfg.ApplicationVersion == "" {
		cfg.ApplicationVersion = def.ApplicationVersion
	}
	if cfg.MaxLocalRecords <= 0 {
		cfg.MaxLocalRecords = def.MaxLocalRecords
	}

	l := logger.With().Str("component", "provenance").Logger()
	if !cfg.EnableDebugLogging {
		l = l.Level(zerolog.InfoLevel)
	}

	s := &Service{cfg: cfg, logger: l, now: time.Now, online: true}
	for _, o := range opts {
		o(s)
	}
	if s.pending == nil {
		s.pending = &memoryPendingRepo{}
	}
	return s
}

// Load restores pending records from the local store.
func (s *Service) Load(ctx context.Context) error {
	s.storeMu.Lock()
	records, err := s.pending.Load(ctx)
	s.storeMu.Unlock()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records = capRecords(records, s.cfg.MaxLocalRecords)
	s.mu.Unlock()
	s.logger.Debug().Int("count", len(records)).Msg("loaded pending provenance records")
	return nil
}

// SetOnline records connectivity. Going online flushes the pending queue.
func (s *Service) SetOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()
	if online && !was {
		if _, err := s.FlushPendingRecords(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("flush on reconnect")
		}
	}
}

// =========== Session Context ===========

// SetPractitioner sets the authoring practitioner. A non-empty orgRef is
// recorded as the organization the practitioner acts for.
func (s *Service) SetPractitioner(id, name, orgRef string) {
	a := &Agent{Type: AgentPractitioner, ID: id, Name: name, Role: RoleAuthor}
	if orgRef != "" {
		a.OnBehalfOf = &fhir.Reference{Reference: orgRef, Display: s.cfg.OrganizationName}
	}
	s.mu.Lock()
	s.practitioner = a
	s.mu.Unlock()
	s.logger.Debug().Str("practitioner", id).Msg("practitioner context set")
}

func (s *Service) SetPatientContext(patientID, patientName string) {
	s.mu.Lock()
	s.patientID = patientID
	s.patientName = patientName
	s.mu.Unlock()
	s.logger.Debug().Str("patient", patientID).Msg("patient context set")
}

func (s *Service) ClearContext() {
	s.mu.Lock()
	s.practitioner = nil
	s.patientID = ""
	s.patientName = ""
	s.mu.Unlock()
	s.logger.Debug().Msg("context cleared")
}

func (s *Service) currentPractitioner() *Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.practitioner == nil {
		return nil
	}
	a := *s.practitioner
	return &a
}

func (s *Service) practitionerAgents() []Agent {
	if p := s.currentPractitioner(); p != nil {
		return []Agent{*p}
	}
	return nil
}

// =========== Record Creation ===========

// CreateProvenance builds a record. The application is always appended as
// the assembling device agent.
func (s *Service) CreateProvenance(p CreateParams) Provenance {
	now := s.now().UTC()
	occurred := now
	if p.OccurredAt != nil {
		occurred = p.OccurredAt.UTC()
	}
	act, ok := activityCodes[p.Activity]
	if !ok {
		act = fhir.Coding{System: SystemActivity, Code: string(p.Activity), Display: string(p.Activity)}
	}

	prov := Provenance{
		ResourceType: "Provenance",
		ID:           "prov-" + uuid.NewString(),
		Meta: &fhir.Meta{
			Profile:     []string{ProfileTWCore},
			LastUpdated: fhir.FormatInstant(now),
			VersionID:   "1",
		},
		Extension:        p.Extensions,
		Target:           p.Targets,
		OccurredDateTime: fhir.FormatInstant(occurred),
		Recorded:         fhir.FormatInstant(now),
		Activity:         &fhir.CodeableConcept{Coding: []fhir.Coding{act}, Text: act.Display},
	}

	if s.cfg.LocationRef != "" {
		prov.Location = &fhir.Reference{Reference: s.cfg.LocationRef, Display: s.cfg.LocationName}
	}
	if p.Reason != "" {
		prov.Reason = []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{System: SystemActReason, Code: "TREAT", Display: "Treatment"}},
			Text:   p.Reason,
		}}
	}
	if len(p.Policies) > 0 {
		prov.Policy = p.Policies
	}

	prov.Agent = make([]ProvenanceAgent, 0, len(p.Agents)+1)
	for _, a := range p.Agents {
		typ := agentTypeCodes[a.Type]
		prov.Agent = append(prov.Agent, ProvenanceAgent{
			Type:       &fhir.CodeableConcept{Coding: []fhir.Coding{typ}},
			Role:       []fhir.CodeableConcept{{Coding: []fhir.Coding{roleCoding(a.Role)}}},
			Who:        fhir.Reference{Reference: a.Reference(), Display: a.Name},
			OnBehalfOf: a.OnBehalfOf,
		})
	}
	prov.Agent = append(prov.Agent, s.applicationAgent())

	for _, e := range p.Entities {
		ent := ProvenanceEntity{
			Role: string(e.Role),
			What: fhir.Reference{Reference: e.What, Display: e.Display},
		}
		if e.Agent != nil {
			typ := agentTypeCodes[e.Agent.Type]
			ent.Agent = []ProvenanceAgent{{
				Type: &fhir.CodeableConcept{Coding: []fhir.Coding{typ}},
				Who:  fhir.Reference{Reference: e.Agent.Reference(), Display: e.Agent.Name},
			}}
		}
		prov.Entity = append(prov.Entity, ent)
	}
	if p.DataSource != "" {
		prov.Entity = append(prov.Entity, ProvenanceEntity{
			Role: string(EntitySource),
			What: fhir.Reference{
				Identifier: &fhir.Identifier{System: SystemDataSource, Value: string(p.DataSource)},
				Display:    dataSourceDisplay[p.DataSource],
			},
		})
	}

	if sig := p.Signature; sig != nil {
		targetFormat := sig.TargetFormat
		if targetFormat == "" {
			targetFormat = "application/fhir+json"
		}
		sigFormat := sig.SigFormat
		if sigFormat == "" {
			sigFormat = "application/signature+xml"
		}
		when := sig.When
		if when.IsZero() {
			when = now
		}
		prov.Signature = []ProvenanceSignature{{
			Type:         []fhir.Coding{signatureCodes[sig.Type]},
			When:         fhir.FormatInstant(when),
			Who:          sig.Who,
			TargetFormat: targetFormat,
			SigFormat:    sigFormat,
			Data:         sig.Data,
		}}
	}
	return prov
}

func (s *Service) applicationAgent() ProvenanceAgent {
	return ProvenanceAgent{
		Type: &fhir.CodeableConcept{Coding: []fhir.Coding{agentTypeCodes[AgentDevice]}},
		Role: []fhir.CodeableConcept{{Coding: []fhir.Coding{roleCoding(RoleAssembler)}}},
		Who: fhir.Reference{
			Identifier: &fhir.Identifier{System: SystemURI, Value: "urn:oid:" + s.cfg.ApplicationID},
			Display:    s.cfg.ApplicationName + " v" + s.cfg.ApplicationVersion,
		},
	}
}

// =========== Convenience Recorders ===========

// RecordCalculation records a calculator run against the virtual target
// "#calculation-<id>-<unix ms>". Populated observations become source
// entities and the sanitized inputs and outputs are kept as extensions.
func (s *Service) RecordCalculation(ctx context.Context, r CalculationResult) (Provenance, error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}
	agents := s.practitionerAgents()
	if len(agents) == 0 && r.PractitionerID != "" {
		agents = []Agent{{Type: AgentPractitioner, ID: r.PractitionerID, Role: RoleAuthor}}
	}

	in, err := json.Marshal(sanitizeData(r.Inputs))
	if err != nil {
		return Provenance{}, fmt.Errorf("encode calculation inputs: %w", err)
	}
	out, err := json.Marshal(sanitizeData(r.Outputs))
	if err != nil {
		return Provenance{}, fmt.Errorf("encode calculation outputs: %w", err)
	}

	entities := make([]Entity, 0, len(r.Sources))
	for _, src := range r.Sources {
		entities = append(entities, Entity{Role: EntitySource, What: src.Reference, Display: src.Display})
	}

	ts := r.Timestamp
	prov := s.CreateProvenance(CreateParams{
		Targets: []fhir.Reference{{
			Reference: CalculationTarget(r.CalculatorID, ts),
			Display:   r.CalculatorName + " Calculation Result",
		}},
		Activity:   ActivityExecute,
		OccurredAt: &ts,
		Agents:     agents,
		Entities:   entities,
		DataSource: SourceCalculated,
		Reason:     "Medical calculation: " + r.CalculatorName,
		Extensions: []fhir.Extension{
			{URL: ExtensionCalculationInputs, ValueString: string(in)},
			{URL: ExtensionCalculationOutputs, ValueString: string(out)},
		},
	})

	s.mu.Lock()
	patientID, patientName := s.patientID, s.patientName
	s.mu.Unlock()
	if r.PatientID != "" {
		patientID = r.PatientID
	}
	if patientID != "" {
		if patientName == "" {
			patientName = "Patient"
		}
		prov.Entity = append(prov.Entity, ProvenanceEntity{
			Role: string(EntitySource),
			What: fhir.Reference{Reference: "Patient/" + patientID, Display: patientName},
		})
	}
	return prov, s.RecordProvenance(ctx, prov)
}

// CalculationTarget is the reference a calculation result is recorded under.
func CalculationTarget(calculatorID string, ts time.Time) string {
	return "#calculation-" + calculatorID + "-" + strconv.FormatInt(ts.UnixMilli(), 10)
}

func (s *Service) RecordDataCreation(ctx context.Context, targetRef, targetDisplay string, source DataSource, reason string) (Provenance, error) {
	if source == "" {
		source = SourceInternal
	}
	prov := s.CreateProvenance(CreateParams{
		Targets:    []fhir.Reference{{Reference: targetRef, Display: targetDisplay}},
		Activity:   ActivityCreate,
		Agents:     s.practitionerAgents(),
		DataSource: source,
		Reason:     reason,
	})
	return prov, s.RecordProvenance(ctx, prov)
}

// RecordDataUpdate records a revision. previousRef, when set, is linked as
// the revised entity.
func (s *Service) RecordDataUpdate(ctx context.Context, targetRef, targetDisplay, previousRef, reason string) (Provenance, error) {
	var entities []Entity
	if previousRef != "" {
		entities = append(entities, Entity{Role: EntityRevision, What: previousRef, Display: "Previous version"})
	}
	prov := s.CreateProvenance(CreateParams{
		Targets:  []fhir.Reference{{Reference: targetRef, Display: targetDisplay}},
		Activity: ActivityUpdate,
		Agents:   s.practitionerAgents(),
		Entities: entities,
		Reason:   reason,
	})
	return prov, s.RecordProvenance(ctx, prov)
}

func (s *Service) RecordDerivation(ctx context.Context, targetRef, targetDisplay string, sources []fhir.Reference, reason string) (Provenance, error) {
	entities := make([]Entity, 0, len(sources))
	for _, src := range sources {
		entities = append(entities, Entity{Role: EntitySource, What: src.Reference, Display: src.Display})
	}
	prov := s.CreateProvenance(CreateParams{
		Targets:    []fhir.Reference{{Reference: targetRef, Display: targetDisplay}},
		Activity:   ActivityDerivation,
		Agents:     s.practitionerAgents(),
		Entities:   entities,
		DataSource: SourceCalculated,
		Reason:     reason,
	})
	return prov, s.RecordProvenance(ctx, prov)
}

// RecordCrossHospitalExchange records data received from another
// organization, which is added as the informant.
func (s *Service) RecordCrossHospitalExchange(ctx context.Context, targetRef, targetDisplay, orgID, orgName, reason string) (Provenance, error) {
	agents := append(s.practitionerAgents(), Agent{Type: AgentOrganization, ID: orgID, Name: orgName, Role: RoleInformant})
	if reason == "" {
		reason = "Cross-hospital data exchange from " + orgName
	}
	prov := s.CreateProvenance(CreateParams{
		Targets:    []fhir.Reference{{Reference: targetRef, Display: targetDisplay}},
		Activity:   ActivityCreate,
		Agents:     agents,
		DataSource: SourceCrossHospital,
		Reason:     reason,
	})
	return prov, s.RecordProvenance(ctx, prov)
}

// RecordPatientUpload records patient-authored data. The current
// practitioner, if any, is added as verifier.
func (s *Service) RecordPatientUpload(ctx context.Context, targetRef, targetDisplay, patientID, patientName, reason string) (Provenance, error) {
	agents := []Agent{{Type: AgentPatient, ID: patientID, Name: patientName, Role: RoleAuthor}}
	if p := s.currentPractitioner(); p != nil {
		p.Role = RoleVerifier
		agents = append(agents, *p)
	}
	if reason == "" {
		reason = "Patient uploaded data"
	}
	prov := s.CreateProvenance(CreateParams{
		Targets:    []fhir.Reference{{Reference: targetRef, Display: targetDisplay}},
		Activity:   ActivityCreate,
		Agents:     agents,
		DataSource: SourcePatientUpload,
		Reason:     reason,
	})
	return prov, s.RecordProvenance(ctx, prov)
}

// RecordWithSignature records an activity signed by the current
// practitioner. An empty sigType means authorship.
func (s *Service) RecordWithSignature(ctx context.Context, targetRef, targetDisplay string, activity Activity, data string, sigType SignatureType) (Provenance, error) {
	if sigType == "" {
		sigType = SignatureAuthorship
	}
	sig := &Signature{Type: sigType, When: s.now(), Data: data}
	if p := s.currentPractitioner(); p != nil {
		sig.Who = fhir.Reference{Reference: p.Reference(), Display: p.Name}
	}
	prov := s.CreateProvenance(CreateParams{
		Targets:    []fhir.Reference{{Reference: targetRef, Display: targetDisplay}},
		Activity:   activity,
		Agents:     s.practitionerAgents(),
		DataSource: SourceInternal,
		Signature:  sig,
	})
	return prov, s.RecordProvenance(ctx, prov)
}

func sanitizeData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		lower := strings.ToLower(k)
		redact := false
		for _, f := range sensitiveProvenanceKeys {
			if strings.Contains(lower, f) {
				redact = true
				break
			}
		}
		switch {
		case redact:
			out[k] = "[REDACTED]"
		case isMap(v):
			out[k] = sanitizeData(v.(map[string]interface{}))
		default:
			out[k] = v
		}
	}
	return out
}

func isMap(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

// =========== Recording and Storage ===========

// RecordProvenance keeps prov in the session list and forwards it when
// online with a forwarder. Records that were not forwarded are queued.
func (s *Service) RecordProvenance(ctx context.Context, prov Provenance) error {
	s.logger.Debug().Str("activity", prov.ActivityText()).Str("id", prov.ID).Msg("recording provenance")

	s.mu.Lock()
	s.records = capRecords(append(s.records, prov), s.cfg.MaxLocalRecords)
	online := s.online
	s.mu.Unlock()

	if online && s.forwarder != nil {
		err := s.send(ctx, prov)
		if err == nil {
			return nil
		}
		s.logger.Warn().Err(err).Str("id", prov.ID).Msg("forward provenance failed, storing locally")
	}
	if !s.cfg.EnableLocalStorage {
		return nil
	}
	return s.storeLocally(ctx, prov)
}

func (s *Service) send(ctx context.Context, prov Provenance) error {
	r, err := prov.Resource()
	if err != nil {
		return err
	}
	if _, err := s.forwarder.Create(ctx, r); err != nil {
		return fmt.Errorf("forward provenance: %w", err)
	}
	return nil
}

func (s *Service) storeLocally(ctx context.Context, prov Provenance) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	stored, err := s.pending.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read local provenance queue")
		stored = nil
	}
	stored = capRecords(append(stored, prov), s.cfg.MaxLocalRecords)
	if err := s.pending.Save(ctx, stored); err != nil {
		s.logger.Error().Err(err).Msg("failed to store provenance locally")
		return err
	}
	s.logger.Debug().Int("pending", len(stored)).Msg("provenance stored locally")
	return nil
}

func capRecords(records []Provenance, max int) []Provenance {
	if max > 0 && len(records) > max {
		kept := make([]Provenance, max)
		copy(kept, records[len(records)-max:])
		return kept
	}
	return records
}

// FlushPendingRecords forwards the local queue, keeps the failures and
// returns how many were sent.
func (s *Service) FlushPendingRecords(ctx context.Context) (int, error) {
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
	failed := make([]Provenance, 0)
	for _, p := range pending {
		if err := s.send(ctx, p); err != nil {
			failed = append(failed, p)
		}
	}
	sent := len(pending) - len(failed)
	if err := s.pending.Save(ctx, failed); err != nil {
		return sent, err
	}
	s.logger.Info().Int("sent", sent).Int("failed", len(failed)).Msg("flushed pending provenance records")
	return sent, nil
}

func (s *Service) GetPendingRecordCount(ctx context.Context) (int, error) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	records, err := s.pending.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Service) ClearLocalRecords(ctx context.Context) error {
	s.storeMu.Lock()
	err := s.pending.Clear(ctx)
	s.storeMu.Unlock()
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	s.logger.Debug().Msg("local provenance records cleared")
	return err
}

// GetProvenanceRecords returns a copy of the session records, oldest first.
func (s *Service) GetProvenanceRecords() []Provenance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Provenance, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Service) GetProvenanceForTarget(targetRef string) []Provenance {
	var out []Provenance
	for _, p := range s.GetProvenanceRecords() {
		if p.HasTarget(targetRef) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) ExportRecordsAsJSON() ([]byte, error) {
	return json.MarshalIndent(s.GetProvenanceRecords(), "", "  ")
}

func (s *Service) ExportRecordsAsBundle() (*fhir.Bundle, error) {
	records := s.GetProvenanceRecords()
	items := make([]interface{}, len(records))
	for i := range records {
		items[i] = records[i]
	}
	return fhir.NewCollectionBundle(items)
}

// GenerateLineageReport collects the sources, agents and activities of every
// record targeting targetRef, with a timeline ordered by recorded time.
func (s *Service) GenerateLineageReport(targetRef string) LineageReport {
	records := s.GetProvenanceForTarget(targetRef)
	report := LineageReport{
		Target:     targetRef,
		Records:    records,
		Sources:    []string{},
		Agents:     []string{},
		Activities: []string{},
		Timeline:   []LineageEvent{},
	}
	if report.Records == nil {
		report.Records = []Provenance{}
	}
	seen := map[string]bool{}
	add := func(list *[]string, kind, v string) {
		if v == "" || seen[kind+v] {
			return
		}
		seen[kind+v] = true
		*list = append(*list, v)
	}

	for _, r := range records {
		for _, e := range r.Entity {
			add(&report.Sources, "s:", e.What.Reference)
		}
		for _, a := range r.Agent {
			if a.Who.Display != "" {
				add(&report.Agents, "a:", a.Who.Display)
			} else {
				add(&report.Agents, "a:", a.Who.Reference)
			}
		}
		if r.Activity != nil {
			add(&report.Activities, "x:", r.Activity.Text)
		}
		agent := "Unknown"
		if len(r.Agent) > 0 {
			if r.Agent[0].Who.Display != "" {
				agent = r.Agent[0].Who.Display
			} else if r.Agent[0].Who.Reference != "" {
				agent = r.Agent[0].Who.Reference
			}
		}
		report.Timeline = append(report.Timeline, LineageEvent{Date: r.Recorded, Activity: r.ActivityText(), Agent: agent})
	}

	sort.SliceStable(report.Timeline, func(i, j int) bool {
		a, _ := fhir.ParseDateTime(report.Timeline[i].Date)
		b, _ := fhir.ParseDateTime(report.Timeline[j].Date)
		return a.Before(b)
	})
	return report
}
