package fhirdata

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/medcalc/medcalc/internal/domain/feedback"
	"github.com/medcalc/medcalc/internal/domain/terminology"
	"github.com/medcalc/medcalc/internal/platform/dom"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/units"
)

const (
	defaultDecimals = 1
	bpUnit          = "mmHg"
)

func decimalsOr(p *int) int {
	if p == nil {
		return defaultDecimals
	}
	return *p
}

// AutoPopulateInput fetches code and, when a value exists and selector
// matches an input under the container, writes it and dispatches an input
// event. The result is returned whether or not anything was written.
func (s *Service) AutoPopulateInput(ctx context.Context, selector, code string, opts PopulateOptions) ObservationResult {
	b := s.current()
	res := settle(s.logger, s.observation(ctx, b, code, opts.observationOptions()), emptyResult(code), "auto populate", code)
	s.apply(b, selector, code, res, opts)
	return res
}

func (o PopulateOptions) observationOptions() ObservationOptions {
	return ObservationOptions{
		SkipStaleness: o.SkipStaleness,
		TargetUnit:    o.TargetUnit,
		UnitType:      o.UnitType,
		Label:         o.Label,
	}
}

// apply writes res into the input matched by selector. It reports whether a
// value was written.
func (s *Service) apply(b binding, selector, code string, res ObservationResult, opts PopulateOptions) bool {
	if res.Value == nil || b.container == nil {
		return false
	}
	input := b.container.QuerySelector(selector)
	if input == nil {
		return false
	}
	v := *res.Value
	if opts.Transform != nil {
		v = opts.Transform(v)
	}
	input.SetValue(units.FormatFixed(v, decimalsOr(opts.Decimals)))

	if !opts.SkipStaleness && b.tracker != nil && res.Observation != nil {
		if obs, err := fhir.ObservationFrom(res.Observation); err == nil {
			b.tracker.TrackObservation(selector, obs, code, labelFor(opts.Label, code))
		}
	}
	if opts.TargetUnit != "" && res.OriginalValue != nil && res.OriginalUnit != nil {
		if units.CurrentUnit(input) != "" {
			// SetInputValue dispatches the input event itself.
			units.SetInputValue(input, *res.OriginalValue, *res.OriginalUnit)
			return true
		}
		// No unit toggle: keep the converted text, record the source.
		input.SetAttr(units.AttrOriginalValue, strconv.FormatFloat(*res.OriginalValue, 'f', -1, 64))
		input.SetAttr(units.AttrOriginalUnit, *res.OriginalUnit)
	}
	input.Dispatch(dom.EventInput)
	return true
}

func labelFor(label, code string) string {
	if label != "" {
		return label
	}
	if name := terminology.GetLoincName(code); name != "" {
		return name
	}
	return code
}

func isBPCode(code string) bool {
	switch code {
	case terminology.LOINCBPPanel, terminology.LOINCSystolicBP, terminology.LOINCDiastolicBP:
		return true
	}
	return false
}

// bpComponent names the panel member a BP field reads.
func bpComponent(f FieldRequirement) string {
	switch f.Code {
	case terminology.LOINCDiastolicBP:
		return ComponentDiastolic
	case terminology.LOINCSystolicBP:
		return ComponentSystolic
	}
	if f.Component == ComponentDiastolic {
		return ComponentDiastolic
	}
	return ComponentSystolic
}

// selector accepts both "weight" and "#weight" style input ids.
func selectorFor(inputID string) string {
	if strings.HasPrefix(inputID, "#") {
		return inputID
	}
	return "#" + inputID
}

func fieldKey(inputID string) string {
	return strings.TrimPrefix(inputID, "#")
}

func (f FieldRequirement) populateOptions() PopulateOptions {
	return PopulateOptions{
		Transform:  f.Transform,
		Decimals:   f.Decimals,
		TargetUnit: f.TargetUnit,
		UnitType:   f.UnitType,
		Label:      f.Label,
	}
}

// AutoPopulateFields fills a batch of inputs. Blood pressure fields share a
// single panel fetch; the remaining fields are fetched concurrently. Inputs
// are written on the calling goroutine in field order once every fetch has
// settled. The loading banner is shown for the whole batch and the summary
// rendered afterwards, with live tracking of whatever stayed missing.
func (s *Service) AutoPopulateFields(ctx context.Context, fields []FieldRequirement) PopulateResult {
	b := s.current()
	out := PopulateResult{Results: make(map[string]ObservationResult, len(fields))}

	if b.container != nil && s.reporter != nil {
		s.reporter.CreateLoadingBanner(b.container, "")
		defer s.reporter.RemoveLoadingBanner(b.container)
	}

	done := make([]bool, len(fields))
	s.populateBloodPressure(ctx, b, fields, done, out.Results)

	// Component coded BP fields the panel could not fill fall back to a
	// lookup of their own code. Panel coded fields do not.
	type pending struct {
		idx int
		res ObservationResult
	}
	var rest []*pending
	for i, f := range fields {
		if done[i] || f.Code == terminology.LOINCBPPanel {
			continue
		}
		rest = append(rest, &pending{idx: i})
	}
	var g errgroup.Group
	for _, p := range rest {
		p := p
		f := fields[p.idx]
		g.Go(func() error {
			r := s.observation(ctx, b, f.Code, f.populateOptions().observationOptions())
			p.res = settle(s.logger, r, emptyResult(f.Code), "auto populate", f.Code)
			return nil
		})
	}
	_ = g.Wait()
	for _, p := range rest {
		f := fields[p.idx]
		s.apply(b, selectorFor(f.InputID), f.Code, p.res, f.populateOptions())
		out.Results[fieldKey(f.InputID)] = p.res
	}

	out.Summary = summarize(fields, out.Results)
	if b.container != nil && s.reporter != nil {
		s.reporter.CreateDataSummary(b.container, out.Summary)
		if len(out.Summary.Missing) > 0 {
			s.reporter.SetupDynamicTracking(b.container, out.Summary.Missing)
		}
	}
	s.metrics.FieldsPopulated(len(out.Summary.Loaded), len(out.Summary.Missing), len(out.Summary.Failed))
	s.logger.Debug().
		Int("loaded", len(out.Summary.Loaded)).
		Int("missing", len(out.Summary.Missing)).
		Msg("auto population finished")
	return out
}

// populateBloodPressure fills every BP field from one panel read. A field
// whose component has a value is recorded whether or not its input exists.
// A failed read leaves the fields for the fallback path.
func (s *Service) populateBloodPressure(ctx context.Context, b binding, fields []FieldRequirement, done []bool, results map[string]ObservationResult) {
	var idx []int
	for i, f := range fields {
		if isBPCode(f.Code) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return
	}
	r := s.bloodPressure(ctx, b, BloodPressureOptions{})
	if r.err != nil {
		settle(s.logger, r, BloodPressureResult{}, "auto populate blood pressure", terminology.LOINCBPPanel)
		return
	}
	bp := r.val
	var isStale bool
	if b.tracker != nil {
		if obs, err := fhir.ObservationFrom(bp.Observation); err == nil {
			if info := b.tracker.Check(obs); info != nil {
				isStale = info.IsStale
			}
		}
	}
	for _, i := range idx {
		f := fields[i]
		v := bp.Systolic
		if bpComponent(f) == ComponentDiastolic {
			v = bp.Diastolic
		}
		if v == nil {
			continue
		}
		res := ObservationResult{
			Value:         v,
			OriginalValue: v,
			Unit:          strPtr(bpUnit),
			OriginalUnit:  strPtr(bpUnit),
			Date:          bp.Date,
			Observation:   bp.Observation,
			IsStale:       isStale,
			Code:          f.Code,
		}
		opts := PopulateOptions{Decimals: f.Decimals, Label: f.Label, Transform: f.Transform}
		s.apply(b, selectorFor(f.InputID), f.Code, res, opts)
		results[fieldKey(f.InputID)] = res
		done[i] = true
	}
}

func summarize(fields []FieldRequirement, results map[string]ObservationResult) feedback.Summary {
	sum := feedback.Summary{Loaded: []string{}, Missing: []feedback.MissingItem{}, Failed: []string{}}
	for _, f := range fields {
		if r, ok := results[fieldKey(f.InputID)]; ok && r.Value != nil {
			sum.Loaded = append(sum.Loaded, f.Label)
			continue
		}
		sum.Missing = append(sum.Missing, feedback.Field(f.InputID, f.Label))
	}
	return sum
}

// AutoPopulateFromRequirements populates the observation fields of req. It
// does nothing when there are none.
func (s *Service) AutoPopulateFromRequirements(ctx context.Context, req Requirements) PopulateResult {
	if len(req.Observations) == 0 {
		return PopulateResult{Results: map[string]ObservationResult{}}
	}
	return s.AutoPopulateFields(ctx, req.Observations)
}
