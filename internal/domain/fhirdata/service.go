package fhirdata

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/medcalc/medcalc/internal/domain/feedback"
	"github.com/medcalc/medcalc/internal/domain/provenance"
	"github.com/medcalc/medcalc/internal/domain/staleness"
	"github.com/medcalc/medcalc/internal/domain/terminology"
	"github.com/medcalc/medcalc/internal/platform/dom"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/telemetry"
	"github.com/medcalc/medcalc/internal/platform/units"
)

// Client is the slice of the FHIR REST client the data layer needs.
// *fhirclient.Client satisfies it.
type Client interface {
	PatientID() string
	ReadPatient(ctx context.Context) (fhir.Resource, error)
	Request(ctx context.Context, query string) (*fhir.Bundle, error)
}

// Cache is the observation cache. *cache.Manager satisfies it.
type Cache interface {
	GetCachedObservation(ctx context.Context, patientID, code string) fhir.Resource
	CacheObservation(ctx context.Context, patientID, code string, obs fhir.Resource)
	GetCachedPatient(ctx context.Context, patientID string) fhir.Resource
	CachePatient(ctx context.Context, patient fhir.Resource)
	ClearPatientCache(ctx context.Context, patientID string)
}

// Auditor records resource reads. *auditevent.Service satisfies it.
type Auditor interface {
	LogResourceRead(ctx context.Context, resourceType, resourceID, query string) error
}

// Reporter renders population feedback. *feedback.Feedback satisfies it.
type Reporter interface {
	CreateLoadingBanner(container *dom.Element, message string) *dom.Element
	RemoveLoadingBanner(container *dom.Element)
	CreateDataSummary(container *dom.Element, summary feedback.Summary) *dom.Element
	SetupDynamicTracking(container *dom.Element, missing []feedback.MissingItem)
}

// ProvenanceRecorder is the calculation lineage store.
// *provenance.Service satisfies it.
type ProvenanceRecorder interface {
	RecordCalculation(ctx context.Context, r provenance.CalculationResult) (provenance.Provenance, error)
	RecordDerivation(ctx context.Context, targetRef, targetDisplay string, sources []fhir.Reference, reason string) (provenance.Provenance, error)
	GetProvenanceForTarget(targetRef string) []provenance.Provenance
	GenerateLineageReport(targetRef string) provenance.LineageReport
}

type Option func(*Service)

func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

func WithAuditor(a Auditor) Option { return func(s *Service) { s.audit = a } }

func WithReporter(r Reporter) Option { return func(s *Service) { s.reporter = r } }

func WithProvenance(p ProvenanceRecorder) Option { return func(s *Service) { s.prov = p } }

func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithStalenessOptions configures the tracker created by Initialize.
func WithStalenessOptions(opts ...staleness.Option) Option {
	return func(s *Service) { s.stalenessOpts = append(s.stalenessOpts, opts...) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// binding is the state Initialize installs. Operations work on a snapshot
// so a concurrent rebind never mixes two patients in one call.
type binding struct {
	client    Client
	patient   fhir.Resource
	patientID string
	container *dom.Element
	tracker   *staleness.Tracker
}

// Service is the FHIR data access and auto-population layer.
type Service struct {
	logger   zerolog.Logger
	cache    Cache
	audit    Auditor
	reporter Reporter
	prov     ProvenanceRecorder
	metrics  *telemetry.Metrics
	now      func() time.Time

	stalenessOpts []staleness.Option

	mu sync.RWMutex
	b  binding
}

func NewService(logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		logger: logger.With().Str("component", "fhirdata").Logger(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize binds the client, patient and form container and starts a
// fresh staleness tracker. Calling it again rebinds everything.
func (s *Service) Initialize(client Client, patient fhir.Resource, container *dom.Element) {
	b := binding{client: client, patient: patient, container: container}
	switch {
	case patient != nil && patient.ID() != "":
		b.patientID = patient.ID()
	case client != nil:
		b.patientID = client.PatientID()
	}
	opts := append([]staleness.Option{staleness.WithLogger(s.logger), staleness.WithClock(s.now)}, s.stalenessOpts...)
	b.tracker = staleness.New(opts...)
	b.tracker.SetContainer(container)

	s.mu.Lock()
	s.b = b
	s.mu.Unlock()
	s.logger.Debug().Str("patient_id", b.patientID).Bool("ready", client != nil).Msg("fhir data service initialized")
}

// Bind returns a new service sharing this one's collaborators, initialized
// with its own client, patient and container. Request handlers use it so
// concurrent requests never share a binding.
func (s *Service) Bind(client Client, patient fhir.Resource, container *dom.Element) *Service {
	ns := &Service{
		logger:        s.logger,
		cache:         s.cache,
		audit:         s.audit,
		reporter:      s.reporter,
		prov:          s.prov,
		metrics:       s.metrics,
		now:           s.now,
		stalenessOpts: s.stalenessOpts,
	}
	ns.Initialize(client, patient, container)
	return ns
}

func (s *Service) current() binding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b
}

// IsReady reports whether a client is bound.
func (s *Service) IsReady() bool {
	return s.current().client != nil
}

func (s *Service) Patient() fhir.Resource { return s.current().patient }

func (s *Service) PatientID() string { return s.current().patientID }

func (s *Service) StalenessTracker() *staleness.Tracker { return s.current().tracker }

// LoadPatient returns the bound patient, else the cached one, else reads it
// through the client. A patient found this way is bound to the service.
func (s *Service) LoadPatient(ctx context.Context) fhir.Resource {
	b := s.current()
	r := s.loadPatient(ctx, b)
	p := settle(s.logger, r, nil, "read patient", b.patientID)
	if p != nil && b.patient == nil {
		s.mu.Lock()
		if s.b.client == b.client {
			s.b.patient = p
			if s.b.patientID == "" {
				s.b.patientID = p.ID()
			}
		}
		s.mu.Unlock()
	}
	return p
}

func (s *Service) loadPatient(ctx context.Context, b binding) result[fhir.Resource] {
	if b.patient != nil {
		return ok(b.patient)
	}
	if b.client == nil {
		return fail[fhir.Resource](ErrNotReady, nil)
	}
	if s.cache != nil && b.patientID != "" {
		if cached := s.cache.GetCachedPatient(ctx, b.patientID); cached != nil {
			return ok(cached)
		}
	}
	p, err := b.client.ReadPatient(ctx)
	if err != nil {
		return fail[fhir.Resource](ErrTransport, err)
	}
	if p == nil {
		return fail[fhir.Resource](ErrNoData, nil)
	}
	if s.cache != nil {
		s.cache.CachePatient(ctx, p)
	}
	s.auditRead(ctx, "Patient", p.ID(), "")
	return ok(p)
}

// =========== Observation Fetching ===========

// GetObservation returns the most recent observation for code, processed
// into value, unit, date and staleness, converted to opts.TargetUnit when
// possible. It never fails: anything that goes wrong yields an empty result.
func (s *Service) GetObservation(ctx context.Context, code string, opts ObservationOptions) ObservationResult {
	r := s.observation(ctx, s.current(), code, opts)
	return settle(s.logger, r, emptyResult(code), "get observation", code)
}

func (s *Service) observation(ctx context.Context, b binding, code string, opts ObservationOptions) result[ObservationResult] {
	raw := s.resolve(ctx, b, code, opts.SkipCache, opts.UseTextQuery)
	if raw.err != nil {
		return failWith[ObservationResult](raw.err)
	}
	return s.process(b, raw.val, code, opts)
}

// resolve finds the most recent resource for code: the cache first, then
// a search. Fetched resources are written through to the cache and their
// read is audited.
func (s *Service) resolve(ctx context.Context, b binding, code string, skipCache, textQuery bool) result[fhir.Resource] {
	if b.client == nil {
		return fail[fhir.Resource](ErrNotReady, nil)
	}
	if !skipCache && s.cache != nil && b.patientID != "" {
		if cached := s.cache.GetCachedObservation(ctx, b.patientID, code); cached != nil {
			return ok(cached)
		}
	}
	r := s.fetchMostRecent(ctx, b, code, textQuery)
	if r.err != nil {
		return r
	}
	if s.cache != nil && b.patientID != "" {
		s.cache.CacheObservation(ctx, b.patientID, code, r.val)
	}
	s.auditRead(ctx, "Observation", r.val.ID(), "code="+code)
	return r
}

func (s *Service) fetchMostRecent(ctx context.Context, b binding, code string, textQuery bool) result[fhir.Resource] {
	bundle, err := b.client.Request(ctx, observationQuery(b.patientID, code, textQuery))
	if err != nil {
		return fail[fhir.Resource](ErrTransport, err)
	}
	obs := bundle.First()
	if obs == nil {
		return fail[fhir.Resource](ErrNoData, nil)
	}
	if obs.IsRestricted() {
		return fail[fhir.Resource](ErrRestricted, nil)
	}
	return ok(obs)
}

// observationQuery builds the most-recent search. Codes that are not LOINC
// formatted, or any code when textQuery is set, are searched by EHR text name.
func observationQuery(patientID, code string, textQuery bool) string {
	q := "Observation?"
	if patientID != "" {
		q += "patient=" + url.QueryEscape(patientID) + "&"
	}
	if textQuery || !isLoincList(code) {
		text := terminology.GetTextNameByLoinc(code)
		if text == "" {
			text = code
		}
		q += "code:text=" + url.QueryEscape(text)
	} else {
		q += "code=" + code
	}
	return q + "&_sort=-date&_count=1"
}

// isLoincList reports whether code is one LOINC code or a comma separated
// list of them.
func isLoincList(code string) bool {
	parts := fhir.SplitCodes(code)
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if !terminology.IsValidLoincCode(p) {
			return false
		}
	}
	return true
}

func (s *Service) process(b binding, raw fhir.Resource, code string, opts ObservationOptions) result[ObservationResult] {
	obs, err := fhir.ObservationFrom(raw)
	if err != nil {
		return fail[ObservationResult](ErrDecode, err)
	}
	out := ObservationResult{Observation: raw, Code: code}
	if v := obs.Value(code); v != nil {
		out.Value = v
		orig := *v
		out.OriginalValue = &orig
	}
	if u := obs.Unit(); u != "" {
		out.Unit = strPtr(u)
		out.OriginalUnit = strPtr(u)
	}
	if d, ok := obs.RecordedDate(); ok {
		out.Date = &d
	}
	if !opts.SkipStaleness && b.tracker != nil {
		if info := b.tracker.Check(obs); info != nil {
			out.IsStale = info.IsStale
			out.AgeInDays = intPtr(info.AgeInDays)
		}
	}
	if opts.TargetUnit != "" && out.Value != nil && out.Unit != nil {
		mt := opts.UnitType
		if mt == "" {
			mt = terminology.GetMeasurementType(code)
		}
		if converted := units.Convert(*out.Value, *out.Unit, opts.TargetUnit, mt); converted != nil {
			out.Value = converted
			out.Unit = strPtr(opts.TargetUnit)
		} else {
			s.logger.Debug().Str("code", code).Str("from", *out.Unit).Str("to", opts.TargetUnit).Msg("unit conversion unavailable, keeping original")
		}
	}
	if opts.Decimals != nil && out.Value != nil {
		rounded, _ := decimal.NewFromFloat(*out.Value).Round(int32(*opts.Decimals)).Float64()
		out.Value = &rounded
	}
	return ok(out)
}

func (s *Service) auditRead(ctx context.Context, resourceType, id, query string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogResourceRead(ctx, resourceType, id, query); err != nil {
		s.logger.Warn().Err(err).Str("resource_type", resourceType).Msg("audit resource read")
	}
}

// GetObservations fetches every code concurrently. A failing code yields an
// empty entry and never affects the others.
func (s *Service) GetObservations(ctx context.Context, codes []string, opts ObservationOptions) map[string]ObservationResult {
	b := s.current()
	results := make([]ObservationResult, len(codes))
	var g errgroup.Group
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			r := s.observation(ctx, b, code, opts)
			results[i] = settle(s.logger, r, emptyResult(code), "get observations", code)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]ObservationResult, len(codes))
	for i, code := range codes {
		out[code] = results[i]
	}
	return out
}

// Prefetch warms the cache for codes.
func (s *Service) Prefetch(ctx context.Context, codes []string) {
	s.GetObservations(ctx, codes, ObservationOptions{SkipStaleness: true})
}

// ClearCache drops every cached entry of the bound patient.
func (s *Service) ClearCache(ctx context.Context) {
	b := s.current()
	if b.patientID == "" || s.cache == nil {
		return
	}
	s.cache.ClearPatientCache(ctx, b.patientID)
}

// =========== Blood Pressure ===========

// GetBloodPressure reads the blood pressure panel and splits it into its
// systolic and diastolic components.
func (s *Service) GetBloodPressure(ctx context.Context, opts BloodPressureOptions) BloodPressureResult {
	r := s.bloodPressure(ctx, s.current(), opts)
	return settle(s.logger, r, BloodPressureResult{}, "get blood pressure", terminology.LOINCBPPanel)
}

func (s *Service) bloodPressure(ctx context.Context, b binding, opts BloodPressureOptions) result[BloodPressureResult] {
	raw := s.resolve(ctx, b, terminology.LOINCBPPanel, opts.SkipCache, false)
	if raw.err != nil {
		return failWith[BloodPressureResult](raw.err)
	}
	panel, err := fhir.ObservationFrom(raw.val)
	if err != nil {
		return fail[BloodPressureResult](ErrDecode, err)
	}
	out := BloodPressureResult{Observation: raw.val}
	if q := panel.ComponentQuantity(terminology.LOINCSystolicBP); q != nil && q.Value != nil {
		out.Systolic = q.Value
	}
	if q := panel.ComponentQuantity(terminology.LOINCDiastolicBP); q != nil && q.Value != nil {
		out.Diastolic = q.Value
	}
	if out.Systolic == nil && out.Diastolic == nil {
		return fail[BloodPressureResult](ErrNoData, nil)
	}
	if d, ok := panel.RecordedDate(); ok {
		out.Date = &d
	}
	if opts.TrackStaleness && b.tracker != nil {
		if info := b.tracker.Check(panel); info != nil {
			out.IsStale = info.IsStale
		}
		if out.Systolic != nil {
			b.tracker.TrackObservation("#map-sbp", panel, terminology.LOINCSystolicBP, "Systolic BP")
		}
		if out.Diastolic != nil {
			b.tracker.TrackObservation("#map-dbp", panel, terminology.LOINCDiastolicBP, "Diastolic BP")
		}
	}
	return ok(out)
}
