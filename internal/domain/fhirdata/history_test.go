package fhirdata

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// hourly returns a search bundle of code observations taken hoursAgo before
// testNow.
func hourly(code string, points map[int]float64) func(string) (*fhir.Bundle, error) {
	var rs []fhir.Resource
	for ago, v := range points {
		date := testNow.Add(-time.Duration(ago) * time.Hour).Format("2006-01-02T15:04:05Z")
		rs = append(rs, observation("obs-"+date, code, v, "mmol/L", date))
	}
	return func(string) (*fhir.Bundle, error) { return fhir.NewSearchBundle(rs...), nil }
}

// =========== History ===========

func TestGetAllObservations_Query(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.svc.GetAllObservations(ctx, "2823-3", SortAsc)
	h.svc.GetAllObservations(ctx, "2823-3", SortDesc)
	if q := h.client.queries[0]; q != "Observation?patient=p1&code=2823-3&_sort=date" {
		t.Errorf("unexpected ascending query %s", q)
	}
	if q := h.client.queries[1]; !strings.HasSuffix(q, "_sort=-date") {
		t.Errorf("unexpected descending query %s", q)
	}
}

func TestGetAllObservations_DropsRestricted(t *testing.T) {
	h := newHarness(t, func(string) (*fhir.Bundle, error) {
		return fhir.NewSearchBundle(
			observation("obs-1", "2823-3", 4.1, "mmol/L", "2024-05-01T00:00:00Z"),
			restricted(observation("obs-2", "2823-3", 5.9, "mmol/L", "2024-05-02T00:00:00Z")),
		), nil
	})
	got := h.svc.GetAllObservations(context.Background(), "2823-3", SortAsc)
	if len(got) != 1 || got[0].ID() != "obs-1" {
		t.Errorf("expected only obs-1, got %v", got)
	}
	if len(h.audit.calls) != 1 || h.audit.calls[0].query != "code=2823-3&history" {
		t.Errorf("expected history audit, got %+v", h.audit.calls)
	}
}

func TestGetAllObservations_ErrorYieldsEmpty(t *testing.T) {
	h := newHarness(t, func(string) (*fhir.Bundle, error) { return nil, errors.New("down") })
	got := h.svc.GetAllObservations(context.Background(), "2823-3", SortAsc)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

// =========== Window ===========

func TestGetObservationsInWindow(t *testing.T) {
	h := newHarness(t, hourly("2823-3", map[int]float64{1: 4.0, 5: 5.5, 30: 6.1}))
	got := h.svc.GetObservationsInWindow(context.Background(), "2823-3", 24)
	if len(got) != 2 {
		t.Fatalf("expected 2 in window, got %d", len(got))
	}
	for _, r := range got {
		if *r.Value == 6.1 {
			t.Error("expected the 30h reading excluded")
		}
	}
}

func TestGetObservationsInWindow_StrictBounds(t *testing.T) {
	h := newHarness(t, hourly("2823-3", map[int]float64{24: 4.0, 0: 4.2}))
	got := h.svc.GetObservationsInWindow(context.Background(), "2823-3", 24)
	if len(got) != 0 {
		t.Errorf("expected boundary readings excluded, got %d", len(got))
	}
}

func TestGetObservationsInWindow_SkipsUndated(t *testing.T) {
	undated := observation("obs-x", "2823-3", 3.9, "mmol/L", "")
	delete(undated, "effectiveDateTime")
	h := newHarness(t, func(string) (*fhir.Bundle, error) { return fhir.NewSearchBundle(undated), nil })
	if got := h.svc.GetObservationsInWindow(context.Background(), "2823-3", 24); len(got) != 0 {
		t.Errorf("expected undated reading excluded, got %d", len(got))
	}
}

func TestGetAggregatedObservation(t *testing.T) {
	h := newHarness(t, hourly("2823-3", map[int]float64{1: 4.0, 5: 5.5, 10: 3.2, 30: 2.0}))
	ctx := context.Background()

	min := h.svc.GetAggregatedObservation(ctx, "2823-3", AggregateMin, 24)
	if min.Value == nil || *min.Value != 3.2 {
		t.Errorf("expected min 3.2, got %v", min.Value)
	}
	max := h.svc.GetAggregatedObservation(ctx, "2823-3", AggregateMax, 24)
	if max.Value == nil || *max.Value != 5.5 {
		t.Errorf("expected max 5.5, got %v", max.Value)
	}
	bad := h.svc.GetAggregatedObservation(ctx, "2823-3", Aggregation("avg"), 24)
	if bad.Value != nil || bad.Code != "2823-3" {
		t.Errorf("expected empty result for unknown aggregation, got %+v", bad)
	}
}

func TestGetAggregatedObservation_EmptyWindow(t *testing.T) {
	h := newHarness(t, hourly("2823-3", map[int]float64{48: 4.0}))
	res := h.svc.GetAggregatedObservation(context.Background(), "2823-3", AggregateMax, 24)
	if res.Value != nil {
		t.Errorf("expected empty result, got %v", *res.Value)
	}
}

// =========== Raw ===========

func TestGetRawObservation_BypassesCache(t *testing.T) {
	h := newHarness(t, byCode(map[string]fhir.Resource{
		"29463-7": observation("obs-1", "29463-7", 70, "kg", "2024-05-30T08:00:00Z"),
	}))
	ctx := context.Background()
	h.svc.GetObservation(ctx, "29463-7", ObservationOptions{})
	raw := h.svc.GetRawObservation(ctx, "29463-7")
	if raw == nil || raw.ID() != "obs-1" {
		t.Fatalf("expected obs-1, got %v", raw)
	}
	if len(h.client.queries) != 2 {
		t.Errorf("expected raw read to hit the server, got %d requests", len(h.client.queries))
	}
	if len(h.audit.calls) != 2 {
		t.Errorf("expected raw read audited, got %d", len(h.audit.calls))
	}
}

// =========== Conditions and Medications ===========

func TestGetConditions(t *testing.T) {
	h := newHarness(t, func(q string) (*fhir.Bundle, error) {
		return fhir.NewSearchBundle(fhir.Resource{"resourceType": "Condition", "id": "c1"}), nil
	})
	ctx := context.Background()

	got := h.svc.GetConditions(ctx, []string{"44054006", "73211009"})
	if len(got) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(got))
	}
	want := "Condition?patient=p1&clinical-status=active&code=44054006,73211009"
	if h.client.queries[0] != want {
		t.Errorf("expected %s, got %s", want, h.client.queries[0])
	}
	if !h.svc.HasCondition(ctx, []string{"44054006"}) {
		t.Error("expected HasCondition true")
	}
}

func TestGetConditions_EmptyCodes(t *testing.T) {
	h := newHarness(t, nil)
	if got := h.svc.GetConditions(context.Background(), nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
	if len(h.client.queries) != 0 {
		t.Error("expected no request without codes")
	}
}

func TestGetMedications(t *testing.T) {
	h := newHarness(t, func(q string) (*fhir.Bundle, error) {
		if strings.Contains(q, "860975") {
			return fhir.NewSearchBundle(fhir.Resource{"resourceType": "MedicationRequest", "id": "m1"}), nil
		}
		return fhir.NewSearchBundle(), nil
	})
	ctx := context.Background()

	if !h.svc.IsOnMedication(ctx, []string{"860975"}) {
		t.Error("expected active medication")
	}
	want := "MedicationRequest?patient=p1&status=active&code=http://www.nlm.nih.gov/research/umls/rxnorm|860975"
	if h.client.queries[0] != want {
		t.Errorf("expected %s, got %s", want, h.client.queries[0])
	}
	if h.svc.IsOnMedication(ctx, []string{"11289"}) {
		t.Error("expected no active medication")
	}
}

func TestGetMedications_RestrictedWithheld(t *testing.T) {
	h := newHarness(t, func(string) (*fhir.Bundle, error) {
		return fhir.NewSearchBundle(restricted(fhir.Resource{"resourceType": "MedicationRequest", "id": "m1"})), nil
	})
	if h.svc.IsOnMedication(context.Background(), []string{"860975"}) {
		t.Error("expected restricted prescription withheld")
	}
}
