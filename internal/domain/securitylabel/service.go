package securitylabel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/telemetry"
)

// Config holds the security label settings.
type Config struct {
	EnableMasking          bool
	EnableWarnings         bool
	DefaultConfidentiality string
	LogSensitiveAccess     bool
	EnableBreakTheGlass    bool
	MaskCharacter          string
	// Language selects warning messages: "zh" for Traditional Chinese,
	// anything else for English.
	Language           string
	EnableDebugLogging bool
}

func DefaultConfig() Config {
	return Config{
		EnableMasking:          true,
		EnableWarnings:         true,
		DefaultConfidentiality: fhir.LabelNormal,
		LogSensitiveAccess:     true,
		EnableBreakTheGlass:    true,
		MaskCharacter:          "●",
		Language:               "en",
	}
}

// Alerter receives security alerts. The audit event service implements it.
type Alerter interface {
	LogSecurityAlert(ctx context.Context, alertType, description, severity string) error
}

// BreakTheGlassFunc decides an emergency access request.
type BreakTheGlassFunc func(ctx context.Context, resource fhir.Resource, reason string, user UserContext) bool

type Option func(*Service)

func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service classifies resources by confidentiality and sensitivity, decides
// access for the current user and masks what the user may not see.
type Service struct {
	cfg     Config
	logger  zerolog.Logger
	alerter Alerter
	metrics *telemetry.Metrics
	now     func() time.Time

	mu         sync.Mutex
	user       *UserContext
	breakGlass BreakTheGlassFunc
	accessLog  []AccessLogEntry
}

// NewService creates a security label service. An invalid default
// confidentiality falls back to N.
func NewService(cfg Config, logger zerolog.Logger, opts ...Option) *Service {
	if !fhir.IsConfidentialityCode(cfg.DefaultConfidentiality) {
		cfg.DefaultConfidentiality = fhir.LabelNormal
	}
	if cfg.MaskCharacter == "" {
		cfg.MaskCharacter = "●"
	}
	logger = logger.With().Str("component", "security-labels").Logger()
	if !cfg.EnableDebugLogging {
		logger = logger.Level(zerolog.InfoLevel)
	}
	s := &Service{cfg: cfg, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Config() Config { return s.cfg }

// -- User context --

func (s *Service) SetUserContext(u UserContext) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	s.logger.Debug().Str("user_id", u.UserID).Strs("roles", u.Roles).Msg("user context set")
}

func (s *Service) ClearUserContext() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.logger.Debug().Msg("user context cleared")
}

// UserContext returns a copy of the current context, nil when unset.
func (s *Service) UserContext() *UserContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Service) SetBreakTheGlassCallback(fn BreakTheGlassFunc) {
	s.mu.Lock()
	s.breakGlass = fn
	s.mu.Unlock()
}

// -- Classification --

// ExtractSecurityLabels returns meta.security verbatim, never nil.
func (s *Service) ExtractSecurityLabels(r fhir.Resource) []fhir.Coding {
	labels := r.SecurityCodings()
	if labels == nil {
		return []fhir.Coding{}
	}
	return labels
}

// GetConfidentiality returns the v3-Confidentiality label, R when any label
// carries a bare R or V code, else the configured default.
func (s *Service) GetConfidentiality(r fhir.Resource) string {
	labels := s.ExtractSecurityLabels(r)
	for _, l := range labels {
		if l.System == fhir.SecurityLabelSystem && fhir.IsConfidentialityCode(l.Code) {
			return l.Code
		}
	}
	for _, l := range labels {
		if l.Code == fhir.LabelRestricted || l.Code == fhir.LabelVeryRestricted {
			return fhir.LabelRestricted
		}
	}
	return s.cfg.DefaultConfidentiality
}

// DetectSensitivities combines explicit security and tag codes, clinical code
// prefixes for Condition and Observation, and the MINOR and CELEBRITY flags
// of a Patient. The result is de-duplicated in discovery order.
func (s *Service) DetectSensitivities(r fhir.Resource) []string {
	found := newOrderedSet()
	meta := r.Meta()
	for _, l := range append(append([]fhir.Coding{}, meta.Security...), meta.Tag...) {
		if cat, ok := labelCategories[l.Code]; ok {
			found.add(cat)
		}
	}

	switch r.Type() {
	case "Condition", "Observation":
		for _, code := range clinicalCodes(r) {
			if cat := categoryForCode(code); cat != "" {
				found.add(cat)
			}
		}
	case "Patient":
		p, err := fhir.PatientFrom(r)
		if err != nil {
			s.logger.Debug().Err(err).Msg("decode patient for sensitivity scan")
			break
		}
		if isMinor(p, s.now()) {
			found.add(SensitivityMinor)
		}
		if isVIP(p) {
			found.add(SensitivityCelebrity)
		}
	}
	return found.list()
}

func clinicalCodes(r fhir.Resource) []string {
	var view struct {
		Code                 fhir.CodeableConcept  `json:"code"`
		ValueCodeableConcept *fhir.CodeableConcept `json:"valueCodeableConcept"`
	}
	if err := r.Decode(&view); err != nil {
		return nil
	}
	var codes []string
	for _, c := range view.Code.Coding {
		if c.Code != "" {
			codes = append(codes, c.Code)
		}
	}
	if view.ValueCodeableConcept != nil {
		for _, c := range view.ValueCodeableConcept.Coding {
			if c.Code != "" {
				codes = append(codes, c.Code)
			}
		}
	}
	return codes
}

func categoryForCode(code string) string {
	for _, group := range sensitiveCodePrefixes {
		for _, p := range group.prefixes {
			if strings.HasPrefix(code, p) {
				return group.category
			}
		}
	}
	return ""
}

func isMinor(p *fhir.Patient, now time.Time) bool {
	birth, ok := p.BirthTime()
	if !ok {
		return false
	}
	return fhir.AgeAt(birth, now) < 18
}

// isVIP checks meta.tag first; only untagged patients fall back to a VIP
// extension.
func isVIP(p *fhir.Patient) bool {
	if p.Meta != nil && len(p.Meta.Tag) > 0 {
		for _, t := range p.Meta.Tag {
			if t.Code == "VIP" || t.Code == SensitivityCelebrity {
				return true
			}
		}
		return false
	}
	for _, ext := range p.Extension {
		if strings.Contains(strings.ToLower(ext.URL), "vip") && (ext.ValueBoolean == nil || *ext.ValueBoolean) {
			return true
		}
	}
	return false
}

// -- Assessment --

// AssessSecurity assesses r against the current user context.
func (s *Service) AssessSecurity(ctx context.Context, r fhir.Resource) Assessment {
	return s.AssessFor(ctx, r, s.UserContext())
}

// AssessFor assesses r for an explicit user. Every call is recorded in the
// access log; R and V accesses are also reported to the alerter when
// LogSensitiveAccess is on.
func (s *Service) AssessFor(ctx context.Context, r fhir.Resource, user *UserContext) Assessment {
	conf := s.GetConfidentiality(r)
	sens := s.DetectSensitivities(r)
	decision := s.decide(conf, sens, user)

	a := Assessment{
		Confidentiality:       conf,
		Sensitivities:         sens,
		Decision:              decision,
		MaskedFields:          []string{},
		RequiresAuthorization: decision == DecisionRequireAuth || conf == fhir.LabelVeryRestricted,
		RequiredRoles:         RequiredRoles(sens),
		Labels:                s.ExtractSecurityLabels(r),
	}
	if decision != DecisionAllow {
		a.MaskedFields = maskedFields(r.Type(), conf, sens)
		a.WarningMessage = s.warningMessage(conf, sens)
	}

	s.recordAccess(ctx, r, a, user)
	s.metrics.SecurityDecision(string(decision), conf)
	return a
}

// decide is the access decision table. Without a user R masks and V denies.
// A user authorized for every detected sensitivity gets WARN for R and V.
// Otherwise R masks and V requires break-the-glass authorization, or is
// denied when break-the-glass is disabled.
func (s *Service) decide(conf string, sens []string, user *UserContext) Decision {
	if user == nil {
		switch conf {
		case fhir.LabelVeryRestricted:
			return DecisionDeny
		case fhir.LabelRestricted:
			return DecisionMask
		}
		return DecisionAllow
	}

	authorized := IsAuthorized(user, sens)
	switch conf {
	case fhir.LabelVeryRestricted:
		if authorized {
			return DecisionWarn
		}
		if s.cfg.EnableBreakTheGlass {
			return DecisionRequireAuth
		}
		return DecisionDeny
	case fhir.LabelRestricted:
		if authorized {
			return DecisionWarn
		}
		return DecisionMask
	}
	return DecisionAllow
}

// IsAuthorized reports whether user covers every sensitivity, either through
// AuthorizedCategories or an "access:<CATEGORY>" permission.
func IsAuthorized(user *UserContext, sens []string) bool {
	if user == nil {
		return false
	}
	for _, cat := range sens {
		if cat == SensitivityGeneral {
			continue
		}
		if !contains(user.AuthorizedCategories, cat) && !contains(user.Permissions, "access:"+cat) {
			return false
		}
	}
	return true
}

// RequiredRoles lists the roles able to see the given categories.
func RequiredRoles(sens []string) []string {
	roles := newOrderedSet()
	for _, cat := range sens {
		for _, r := range requiredRoles[cat] {
			roles.add(r)
		}
	}
	return roles.list()
}

func maskedFields(resourceType, conf string, sens []string) []string {
	table, ok := maskedFieldsByType[resourceType]
	if !ok {
		table = personFields
	}
	fields := newOrderedSet()
	switch conf {
	case fhir.LabelRestricted:
		fields.add(table.restricted...)
	case fhir.LabelVeryRestricted:
		fields.add(table.veryRestricted...)
	}
	if contains(sens, SensitivityCelebrity) {
		fields.add("name", "photo", "identifier")
	}
	return fields.list()
}

func (s *Service) warningMessage(conf string, sens []string) string {
	zh := s.cfg.Language == "zh"
	d := confidentialityDisplay[conf]

	var parts []string
	var names []string
	for _, cat := range sens {
		if cat == SensitivityGeneral {
			continue
		}
		sd, ok := sensitivityDisplay[cat]
		if !ok {
			continue
		}
		if zh {
			names = append(names, sd.ZH)
		} else {
			names = append(names, sd.EN)
		}
	}
	legal := contains(sens, SensitivityHIV) || contains(sens, SensitivityPSY)

	if zh {
		parts = append(parts, fmt.Sprintf("此資料為「%s」等級", d.ZH))
		if len(names) > 0 {
			parts = append(parts, "包含敏感類別："+strings.Join(names, "、"))
		}
		if legal {
			parts = append(parts, "依法受特殊保護，未經授權揭露將負法律責任")
		}
		return strings.Join(parts, "。") + "。"
	}

	parts = append(parts, fmt.Sprintf("This data is classified as %q", d.EN))
	if len(names) > 0 {
		parts = append(parts, "Contains sensitive categories: "+strings.Join(names, ", "))
	}
	if legal {
		parts = append(parts, "Specially protected by law; unauthorized disclosure carries legal liability")
	}
	return strings.Join(parts, ". ") + "."
}

func (s *Service) recordAccess(ctx context.Context, r fhir.Resource, a Assessment, user *UserContext) {
	id := r.ID()
	if id == "" {
		id = "unknown"
	}
	entry := AccessLogEntry{
		Timestamp:       s.now(),
		ResourceType:    r.Type(),
		ResourceID:      id,
		Confidentiality: a.Confidentiality,
		Decision:        a.Decision,
	}
	if user != nil {
		entry.UserID = user.UserID
	}
	s.mu.Lock()
	s.accessLog = append(s.accessLog, entry)
	s.mu.Unlock()
	s.logger.Debug().Str("resource", entry.ResourceType+"/"+id).Str("decision", string(a.Decision)).Msg("access logged")

	if !s.cfg.LogSensitiveAccess || s.alerter == nil {
		return
	}
	if a.Confidentiality != fhir.LabelRestricted && a.Confidentiality != fhir.LabelVeryRestricted {
		return
	}
	severity := "medium"
	if a.Confidentiality == fhir.LabelVeryRestricted {
		severity = "high"
	}
	desc := fmt.Sprintf("Access to %s data: %s/%s", a.Confidentiality, r.Type(), r.ID())
	if err := s.alerter.LogSecurityAlert(ctx, "SENSITIVE_DATA_ACCESS", desc, severity); err != nil {
		s.logger.Warn().Err(err).Msg("failed to log sensitive access audit event")
	}
}

// AccessLog returns a copy of the access log.
func (s *Service) AccessLog() []AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AccessLogEntry(nil), s.accessLog...)
}

func (s *Service) ClearAccessLog() {
	s.mu.Lock()
	s.accessLog = nil
	s.mu.Unlock()
}

// RequestBreakTheGlass audits an emergency access request and asks the
// registered callback. Without a callback the request is granted. Requires
// break-the-glass to be enabled and a user context.
func (s *Service) RequestBreakTheGlass(ctx context.Context, r fhir.Resource, reason string) bool {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	return s.RequestBreakTheGlassFor(ctx, r, reason, user)
}

// RequestBreakTheGlassFor is RequestBreakTheGlass on behalf of an explicit
// user, as the HTTP layer does per request.
func (s *Service) RequestBreakTheGlassFor(ctx context.Context, r fhir.Resource, reason string, user *UserContext) bool {
	s.mu.Lock()
	cb := s.breakGlass
	s.mu.Unlock()
	if !s.cfg.EnableBreakTheGlass || user == nil {
		return false
	}
	if s.alerter != nil {
		desc := fmt.Sprintf("Break-the-glass requested for %s/%s: %s", r.Type(), r.ID(), reason)
		if err := s.alerter.LogSecurityAlert(ctx, "BREAK_THE_GLASS", desc, "critical"); err != nil {
			s.logger.Warn().Err(err).Msg("failed to log break-the-glass audit event")
		}
	}
	if cb != nil {
		return cb(ctx, r, reason, *user)
	}
	s.logger.Info().Str("resource", r.Reference()).Str("user_id", user.UserID).Msg("break-the-glass granted")
	return true
}

// -- Label management --

// AddSecurityLabel returns a copy of r whose confidentiality label is
// replaced by conf and which carries one ActCode label per sensitivity.
func (s *Service) AddSecurityLabel(r fhir.Resource, conf string, sens []string) fhir.Resource {
	out := r.Clone()
	if out == nil {
		out = fhir.Resource{}
	}
	meta := out.Meta()
	kept := make([]fhir.Coding, 0, len(meta.Security)+1+len(sens))
	for _, l := range meta.Security {
		if l.System != fhir.SecurityLabelSystem {
			kept = append(kept, l)
		}
	}
	kept = append(kept, fhir.Coding{
		System:  fhir.SecurityLabelSystem,
		Code:    conf,
		Display: confidentialityDisplay[conf].EN,
	})
	for _, cat := range sens {
		if cat == SensitivityGeneral {
			continue
		}
		display := cat
		if d, ok := sensitivityDisplay[cat]; ok {
			display = d.EN
		}
		kept = append(kept, fhir.Coding{System: fhir.ActCodeSystem, Code: cat, Display: display})
	}
	meta.Security = kept
	out.SetMeta(meta)
	return out
}

// CompareConfidentiality orders codes U < L < M < N < R < V. The result is
// negative, zero or positive.
func CompareConfidentiality(a, b string) int {
	return fhir.ConfidentialityLevel(a) - fhir.ConfidentialityLevel(b)
}

func (s *Service) CompareConfidentiality(a, b string) int {
	return CompareConfidentiality(a, b)
}

// GetHighestConfidentiality returns the most restrictive confidentiality
// among resources, N for none.
func (s *Service) GetHighestConfidentiality(resources []fhir.Resource) string {
	if len(resources) == 0 {
		return fhir.LabelNormal
	}
	highest := s.GetConfidentiality(resources[0])
	for _, r := range resources[1:] {
		if c := s.GetConfidentiality(r); CompareConfidentiality(c, highest) > 0 {
			highest = c
		}
	}
	return highest
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (o *orderedSet) add(vals ...string) {
	for _, v := range vals {
		if !o.seen[v] {
			o.seen[v] = true
			o.items = append(o.items, v)
		}
	}
}

func (o *orderedSet) list() []string {
	if o.items == nil {
		return []string{}
	}
	return o.items
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
