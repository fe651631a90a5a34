package fhir

import "time"

// Observation is the subset of the Observation resource the data layer reads.
type Observation struct {
	ResourceType         string                 `json:"resourceType"`
	ID                   string                 `json:"id,omitempty"`
	Meta                 *Meta                  `json:"meta,omitempty"`
	Status               string                 `json:"status,omitempty"`
	Code                 CodeableConcept        `json:"code"`
	ValueQuantity        *Quantity              `json:"valueQuantity,omitempty"`
	ValueCodeableConcept *CodeableConcept       `json:"valueCodeableConcept,omitempty"`
	Component            []ObservationComponent `json:"component,omitempty"`
	EffectiveDateTime    string                 `json:"effectiveDateTime,omitempty"`
	EffectiveInstant     string                 `json:"effectiveInstant,omitempty"`
	EffectivePeriod      *Period                `json:"effectivePeriod,omitempty"`
	Issued               string                 `json:"issued,omitempty"`
}

type ObservationComponent struct {
	Code          CodeableConcept `json:"code"`
	ValueQuantity *Quantity       `json:"valueQuantity,omitempty"`
}

// ObservationFrom decodes a raw resource. A nil resource yields nil.
func ObservationFrom(r Resource) (*Observation, error) {
	if r == nil {
		return nil, nil
	}
	var obs Observation
	if err := r.Decode(&obs); err != nil {
		return nil, err
	}
	return &obs, nil
}

// Value returns the numeric value recorded for code: the top-level
// valueQuantity first, then a component whose coding matches one of the
// comma separated codes.
func (o *Observation) Value(code string) *float64 {
	if o == nil {
		return nil
	}
	if o.ValueQuantity != nil && o.ValueQuantity.Value != nil {
		v := *o.ValueQuantity.Value
		return &v
	}
	for _, c := range SplitCodes(code) {
		if q := o.ComponentQuantity(c); q != nil && q.Value != nil {
			v := *q.Value
			return &v
		}
	}
	return nil
}

// ComponentQuantity returns the valueQuantity of the first component coded
// with code.
func (o *Observation) ComponentQuantity(code string) *Quantity {
	if o == nil {
		return nil
	}
	for _, comp := range o.Component {
		if comp.Code.HasCode(code) {
			return comp.ValueQuantity
		}
	}
	return nil
}

// Unit returns valueQuantity.unit or "".
func (o *Observation) Unit() string {
	if o == nil || o.ValueQuantity == nil {
		return ""
	}
	return o.ValueQuantity.Unit
}

// RecordedDate is effectiveDateTime, else issued.
func (o *Observation) RecordedDate() (time.Time, bool) {
	if o == nil {
		return time.Time{}, false
	}
	if o.EffectiveDateTime != "" {
		return ParseDateTime(o.EffectiveDateTime)
	}
	return ParseDateTime(o.Issued)
}

// ClinicalDate walks every date element an observation may carry:
// effectiveDateTime, effectiveInstant, effectivePeriod.end,
// effectivePeriod.start and finally issued.
func (o *Observation) ClinicalDate() (time.Time, bool) {
	if o == nil {
		return time.Time{}, false
	}
	candidates := []string{o.EffectiveDateTime, o.EffectiveInstant}
	if o.EffectivePeriod != nil {
		candidates = append(candidates, o.EffectivePeriod.End, o.EffectivePeriod.Start)
	}
	candidates = append(candidates, o.Issued)
	for _, c := range candidates {
		if c != "" {
			return ParseDateTime(c)
		}
	}
	return time.Time{}, false
}
