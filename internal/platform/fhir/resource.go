package fhir

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Resource is a raw FHIR resource as received from a server. Values follow
// encoding/json decoding rules (objects are map[string]interface{}, arrays are
// []interface{}, numbers are float64).
type Resource map[string]interface{}

// ParseResource decodes a JSON document into a Resource.
func ParseResource(data []byte) (Resource, error) {
	var r Resource
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	return r, nil
}

// Type returns resourceType or "" when absent.
func (r Resource) Type() string {
	s, _ := r["resourceType"].(string)
	return s
}

// ID returns the logical id or "" when absent.
func (r Resource) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Reference returns "<type>/<id>".
func (r Resource) Reference() string {
	return FormatReference(r.Type(), r.ID())
}

// Clone returns a deep copy. Resources that cannot be encoded come back empty.
func (r Resource) Clone() Resource {
	if r == nil {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return Resource{}
	}
	var out Resource
	if err := json.Unmarshal(raw, &out); err != nil {
		return Resource{}
	}
	return out
}

// Decode converts the resource into a typed view.
func (r Resource) Decode(into interface{}) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode resource: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode %s: %w", r.Type(), err)
	}
	return nil
}

// Meta returns the decoded meta element. A missing or malformed meta yields
// an empty value.
func (r Resource) Meta() Meta {
	var m Meta
	raw, ok := r["meta"]
	if !ok {
		return m
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return m
	}
	_ = json.Unmarshal(b, &m)
	return m
}

// SetMeta replaces the meta element.
func (r Resource) SetMeta(m Meta) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return
	}
	r["meta"] = generic
}

// FormatReference builds a relative reference.
func FormatReference(resourceType, id string) string {
	return resourceType + "/" + id
}

// Meta is the FHIR meta element.
type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Profile     []string `json:"profile,omitempty"`
	Security    []Coding `json:"security,omitempty"`
	Tag         []Coding `json:"tag,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// HasCode reports whether any coding carries code.
func (c CodeableConcept) HasCode(code string) bool {
	for _, cd := range c.Coding {
		if cd.Code == code {
			return true
		}
	}
	return false
}

type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

type Identifier struct {
	Use    string `json:"use,omitempty"`
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
}

// Period keeps the raw FHIR dateTime strings; use ParseDateTime to read them.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type Extension struct {
	URL          string `json:"url"`
	ValueString  string `json:"valueString,omitempty"`
	ValueCode    string `json:"valueCode,omitempty"`
	ValueBoolean *bool  `json:"valueBoolean,omitempty"`
}

// OperationOutcome represents a FHIR OperationOutcome for errors.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome("error", "processing", diagnostics)
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDateTime parses the FHIR date, dateTime and instant forms. Values
// without a zone are read as UTC.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatInstant renders t the way FHIR instants are written by this module.
func FormatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
