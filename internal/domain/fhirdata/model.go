package fhirdata

import (
	"time"

	"github.com/medcalc/medcalc/internal/domain/feedback"
	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// ObservationResult is the processed view of the most recent observation for
// a code. Every pointer is nil when the EHR had nothing usable.
type ObservationResult struct {
	Value         *float64      `json:"value"`
	OriginalValue *float64      `json:"originalValue"`
	Unit          *string       `json:"unit"`
	OriginalUnit  *string       `json:"originalUnit"`
	Date          *time.Time    `json:"date"`
	Observation   fhir.Resource `json:"observation"`
	IsStale       bool          `json:"isStale"`
	AgeInDays     *int          `json:"ageInDays"`
	Code          string        `json:"code"`
}

func emptyResult(code string) ObservationResult {
	return ObservationResult{Code: code}
}

// HasValue reports whether a numeric value was found.
func (r ObservationResult) HasValue() bool { return r.Value != nil }

// BloodPressureResult is one blood pressure panel split into its components.
type BloodPressureResult struct {
	Systolic    *float64      `json:"systolic"`
	Diastolic   *float64      `json:"diastolic"`
	Date        *time.Time    `json:"date"`
	Observation fhir.Resource `json:"observation"`
	IsStale     bool          `json:"isStale"`
}

// ObservationOptions tune GetObservation. Staleness is tracked unless
// SkipStaleness is set.
type ObservationOptions struct {
	SkipCache     bool
	UseTextQuery  bool
	SkipStaleness bool
	// TargetUnit converts the value when set. UnitType overrides the
	// measurement type derived from the code.
	TargetUnit string
	UnitType   string
	// Decimals rounds the returned value when set.
	Decimals *int
	Label    string
}

// BloodPressureOptions tune GetBloodPressure.
type BloodPressureOptions struct {
	SkipCache      bool
	TrackStaleness bool
}

// PopulateOptions tune AutoPopulateInput.
type PopulateOptions struct {
	Transform     func(float64) float64
	Decimals      *int
	TargetUnit    string
	UnitType      string
	Label         string
	SkipStaleness bool
}

// Blood pressure panel component selectors for panel coded fields.
const (
	ComponentSystolic  = "systolic"
	ComponentDiastolic = "diastolic"
)

// FieldRequirement binds one form input to an observation code. Code may be
// a comma separated list of alternatives.
type FieldRequirement struct {
	Code       string `json:"code" yaml:"code" validate:"required"`
	InputID    string `json:"inputId" yaml:"inputId" validate:"required"`
	Label      string `json:"label" yaml:"label" validate:"required"`
	TargetUnit string `json:"targetUnit,omitempty" yaml:"targetUnit"`
	UnitType   string `json:"unitType,omitempty" yaml:"unitType"`
	Decimals   *int   `json:"decimals,omitempty" yaml:"decimals" validate:"omitempty,min=0,max=6"`
	// Component picks the panel member for a field coded with the blood
	// pressure panel code. Defaults to systolic.
	Component string                `json:"component,omitempty" yaml:"component" validate:"omitempty,oneof=systolic diastolic"`
	Transform func(float64) float64 `json:"-" yaml:"-"`
}

// Requirements is everything a calculator reads from the EHR.
type Requirements struct {
	Calculator   string             `json:"calculator,omitempty" yaml:"calculator"`
	Observations []FieldRequirement `json:"observations" yaml:"observations" validate:"dive"`
	Conditions   []string           `json:"conditions,omitempty" yaml:"conditions"`
	Medications  []string           `json:"medications,omitempty" yaml:"medications"`
}

// PopulateResult is the outcome of AutoPopulateFields. Results are keyed by
// input id without the leading "#".
type PopulateResult struct {
	Results map[string]ObservationResult `json:"results"`
	Summary feedback.Summary             `json:"summary"`
}

// Demographics aggregates the patient accessors. Each field is nil when the
// patient resource lacks it.
type Demographics struct {
	Name            *string    `json:"name"`
	DisplayName     string     `json:"displayName"`
	Age             *int       `json:"age"`
	Gender          *string    `json:"gender"`
	BirthDate       *time.Time `json:"birthDate"`
	BirthDateString *string    `json:"birthDateString"`
}

// Aggregation selects the extremum for GetAggregatedObservation.
type Aggregation string

const (
	AggregateMin Aggregation = "min"
	AggregateMax Aggregation = "max"
)

// SortOrder orders GetAllObservations by date.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
