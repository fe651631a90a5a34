package fhirdata

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

const rxnormSystem = "http://www.nlm.nih.gov/research/umls/rxnorm"

// search runs query and returns the entries that pass the privacy gate.
func (s *Service) search(ctx context.Context, b binding, query string) result[[]fhir.Resource] {
	if b.client == nil {
		return fail[[]fhir.Resource](ErrNotReady, nil)
	}
	bundle, err := b.client.Request(ctx, query)
	if err != nil {
		return fail[[]fhir.Resource](ErrTransport, err)
	}
	var out []fhir.Resource
	withheld := 0
	for _, r := range bundle.Resources() {
		if r.IsRestricted() {
			withheld++
			continue
		}
		out = append(out, r)
	}
	if withheld > 0 {
		s.logger.Info().Int("withheld", withheld).Msg("restricted resources withheld from search")
	}
	if len(out) == 0 {
		return fail[[]fhir.Resource](ErrNoData, nil)
	}
	return ok(out)
}

func patientParam(patientID string) string {
	if patientID == "" {
		return ""
	}
	return "patient=" + url.QueryEscape(patientID) + "&"
}

// GetAllObservations returns the full history for code sorted by date,
// ascending unless order is SortDesc.
func (s *Service) GetAllObservations(ctx context.Context, code string, order SortOrder) []fhir.Resource {
	b := s.current()
	return settle(s.logger, s.allObservations(ctx, b, code, order), []fhir.Resource{}, "get all observations", code)
}

func (s *Service) allObservations(ctx context.Context, b binding, code string, order SortOrder) result[[]fhir.Resource] {
	sort := "date"
	if order == SortDesc {
		sort = "-date"
	}
	r := s.search(ctx, b, fmt.Sprintf("Observation?%scode=%s&_sort=%s", patientParam(b.patientID), code, sort))
	if r.err == nil {
		s.auditRead(ctx, "Observation", "", "code="+code+"&history")
	}
	return r
}

// GetObservationsInWindow returns the observations for code recorded
// strictly inside the last hoursBack hours. Entries without a parseable date
// are dropped.
func (s *Service) GetObservationsInWindow(ctx context.Context, code string, hoursBack int) []ObservationResult {
	b := s.current()
	return settle(s.logger, s.inWindow(ctx, b, code, hoursBack), []ObservationResult{}, "observations in window", code)
}

func (s *Service) inWindow(ctx context.Context, b binding, code string, hoursBack int) result[[]ObservationResult] {
	all := s.allObservations(ctx, b, code, SortAsc)
	if all.err != nil {
		return failWith[[]ObservationResult](all.err)
	}
	now := s.now()
	start := now.Add(-time.Duration(hoursBack) * time.Hour)
	out := []ObservationResult{}
	for _, raw := range all.val {
		r := s.process(b, raw, code, ObservationOptions{})
		if r.err != nil {
			s.logger.Warn().Err(r.err).Str("code", code).Msg("skipping malformed observation")
			continue
		}
		d := r.val.Date
		if d == nil || !d.After(start) || !d.Before(now) {
			continue
		}
		out = append(out, r.val)
	}
	return ok(out)
}

// GetAggregatedObservation picks the minimum or maximum valued observation
// of the window. Entries without a value are ignored.
func (s *Service) GetAggregatedObservation(ctx context.Context, code string, agg Aggregation, hoursBack int) ObservationResult {
	b := s.current()
	return settle(s.logger, s.aggregated(ctx, b, code, agg, hoursBack), emptyResult(code), "aggregate observation", code)
}

func (s *Service) aggregated(ctx context.Context, b binding, code string, agg Aggregation, hoursBack int) result[ObservationResult] {
	if agg != AggregateMin && agg != AggregateMax {
		return fail[ObservationResult](ErrNoData, fmt.Errorf("unknown aggregation %q", agg))
	}
	window := s.inWindow(ctx, b, code, hoursBack)
	if window.err != nil {
		return failWith[ObservationResult](window.err)
	}
	var best *ObservationResult
	for i := range window.val {
		r := &window.val[i]
		if r.Value == nil {
			continue
		}
		if best == nil ||
			(agg == AggregateMin && *r.Value < *best.Value) ||
			(agg == AggregateMax && *r.Value > *best.Value) {
			best = r
		}
	}
	if best == nil {
		return fail[ObservationResult](ErrNoData, nil)
	}
	return ok(*best)
}

// GetRawObservation returns the unprocessed most recent resource for code,
// bypassing the cache.
func (s *Service) GetRawObservation(ctx context.Context, code string) fhir.Resource {
	b := s.current()
	r := s.raw(ctx, b, code)
	return settle(s.logger, r, nil, "raw observation", code)
}

func (s *Service) raw(ctx context.Context, b binding, code string) result[fhir.Resource] {
	if b.client == nil {
		return fail[fhir.Resource](ErrNotReady, nil)
	}
	r := s.fetchMostRecent(ctx, b, code, false)
	if r.err == nil {
		s.auditRead(ctx, "Observation", r.val.ID(), "code="+code)
	}
	return r
}

// =========== Conditions and Medications ===========

// GetConditions returns the patient's active conditions among codes.
func (s *Service) GetConditions(ctx context.Context, codes []string) []fhir.Resource {
	b := s.current()
	if len(codes) == 0 {
		return []fhir.Resource{}
	}
	query := fmt.Sprintf("Condition?%sclinical-status=active&code=%s", patientParam(b.patientID), strings.Join(codes, ","))
	r := s.search(ctx, b, query)
	if r.err == nil {
		s.auditRead(ctx, "Condition", "", "code="+strings.Join(codes, ","))
	}
	return settle(s.logger, r, []fhir.Resource{}, "get conditions", strings.Join(codes, ","))
}

// HasCondition reports whether any of codes is an active condition.
func (s *Service) HasCondition(ctx context.Context, codes []string) bool {
	return len(s.GetConditions(ctx, codes)) > 0
}

// GetMedications returns the patient's active medication requests among the
// RxNorm codes.
func (s *Service) GetMedications(ctx context.Context, codes []string) []fhir.Resource {
	b := s.current()
	if len(codes) == 0 {
		return []fhir.Resource{}
	}
	query := fmt.Sprintf("MedicationRequest?%sstatus=active&code=%s|%s", patientParam(b.patientID), rxnormSystem, strings.Join(codes, ","))
	r := s.search(ctx, b, query)
	if r.err == nil {
		s.auditRead(ctx, "MedicationRequest", "", "code="+strings.Join(codes, ","))
	}
	return settle(s.logger, r, []fhir.Resource{}, "get medications", strings.Join(codes, ","))
}

// IsOnMedication reports whether any of codes is actively prescribed.
func (s *Service) IsOnMedication(ctx context.Context, codes []string) bool {
	return len(s.GetMedications(ctx, codes)) > 0
}
