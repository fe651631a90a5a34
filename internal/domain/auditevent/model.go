package auditevent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

type EventType string

const (
	EventREST                EventType = "rest"
	EventLogin               EventType = "login"
	EventLogout              EventType = "logout"
	EventPatientRecordAccess EventType = "patient-record-access"
	EventDataExport          EventType = "data-export"
	EventCalculation         EventType = "calculation"
	EventConsentDecision     EventType = "consent-decision"
	EventSecurityAlert       EventType = "security-alert"
)

// Action codes: Create, Read, Update, Delete, Execute.
const (
	ActionCreate  = "C"
	ActionRead    = "R"
	ActionUpdate  = "U"
	ActionDelete  = "D"
	ActionExecute = "E"
)

const (
	OutcomeSuccess        = "0"
	OutcomeMinorFailure   = "4"
	OutcomeSeriousFailure = "8"
	OutcomeMajorFailure   = "12"
)

type AgentType string

const (
	AgentPractitioner AgentType = "practitioner"
	AgentPatient      AgentType = "patient"
	AgentApplication  AgentType = "application"
	AgentDevice       AgentType = "device"
)

type EntityType string

const (
	EntityPatient  EntityType = "patient"
	EntityResource EntityType = "resource"
	EntityQuery    EntityType = "query"
)

const (
	SystemAuditEventType    = "http://terminology.hl7.org/CodeSystem/audit-event-type"
	SystemAuditEventSubtype = "http://hl7.org/fhir/restful-interaction"
	SystemDCM               = "http://dicom.nema.org/resources/ontology/DCM"
	SystemParticipantType   = "http://terminology.hl7.org/CodeSystem/v3-ParticipationType"
	SystemEntityType        = "http://terminology.hl7.org/CodeSystem/audit-entity-type"
	SystemEntityRole        = "http://terminology.hl7.org/CodeSystem/object-role"
	SystemPurposeOfUse      = "http://terminology.hl7.org/CodeSystem/v3-ActReason"
	SystemIHEBALP           = "https://profiles.ihe.net/ITI/BALP/CodeSystem/BasicAuditLogPatterns"
	SystemURI               = "urn:ietf:rfc:3986"

	ProfilePatientRead = "https://profiles.ihe.net/ITI/BALP/StructureDefinition/IHE.BasicAudit.PatientRead"
)

var eventTypeCodes = map[EventType]fhir.Coding{
	EventREST:                {System: SystemAuditEventType, Code: "rest", Display: "RESTful Operation"},
	EventLogin:               {System: SystemDCM, Code: "110122", Display: "Login"},
	EventLogout:              {System: SystemDCM, Code: "110123", Display: "Logout"},
	EventPatientRecordAccess: {System: SystemDCM, Code: "110110", Display: "Patient Record"},
	EventDataExport:          {System: SystemDCM, Code: "110106", Display: "Export"},
	EventCalculation:         {System: SystemIHEBALP, Code: "CALCULATE", Display: "Medical Calculation"},
	EventConsentDecision:     {System: SystemDCM, Code: "110142", Display: "Consent Directive"},
	EventSecurityAlert:       {System: SystemDCM, Code: "110113", Display: "Security Alert"},
}

var agentTypeCodes = map[AgentType]fhir.Coding{
	AgentPractitioner: {System: SystemParticipantType, Code: "PROV", Display: "Healthcare Provider"},
	AgentPatient:      {System: SystemParticipantType, Code: "PAT", Display: "Patient"},
	AgentApplication:  {System: SystemDCM, Code: "110150", Display: "Application"},
	AgentDevice:       {System: SystemDCM, Code: "110153", Display: "Source Role ID"},
}

var entityTypeCodes = map[EntityType]fhir.Coding{
	EntityPatient:  {System: SystemEntityType, Code: "1", Display: "Person"},
	EntityResource: {System: SystemEntityType, Code: "2", Display: "System Object"},
	EntityQuery:    {System: SystemEntityType, Code: "2", Display: "System Object"},
}

var entityRoleCodes = map[EntityType]fhir.Coding{
	EntityPatient:  {System: SystemEntityRole, Code: "1", Display: "Patient"},
	EntityResource: {System: SystemEntityRole, Code: "4", Display: "Domain Resource"},
	EntityQuery:    {System: SystemEntityRole, Code: "24", Display: "Query"},
}

// EventTypeCoding returns the coded type for an event type.
func EventTypeCoding(t EventType) (fhir.Coding, bool) {
	c, ok := eventTypeCodes[t]
	return c, ok
}

// Agent is a participant supplied by a caller.
type Agent struct {
	Type      AgentType
	ID        string
	Name      string
	Role      string
	Requestor bool
}

// Entity is the data an event is about.
type Entity struct {
	Type          EntityType
	What          string
	Name          string
	Description   string
	SecurityLabel []string
	Query         string
}

// Detail is one additionalInfo pair. Order is kept.
type Detail struct {
	Key   string
	Value string
}

// CreateParams describes an event for CreateAuditEvent.
type CreateParams struct {
	EventType          EventType
	Action             string
	Outcome            string
	OutcomeDescription string
	Agents             []Agent
	Entities           []Entity
	PurposeOfUse       string
	Subtype            string
	Start              *time.Time
	End                *time.Time
	AdditionalInfo     []Detail
}

// AuditEvent is the FHIR R4 AuditEvent resource.
type AuditEvent struct {
	ResourceType   string                 `json:"resourceType"`
	ID             string                 `json:"id,omitempty"`
	Meta           *fhir.Meta             `json:"meta,omitempty"`
	Type           fhir.Coding            `json:"type"`
	Subtype        []fhir.Coding          `json:"subtype,omitempty"`
	Action         string                 `json:"action"`
	Period         *fhir.Period           `json:"period,omitempty"`
	Recorded       string                 `json:"recorded"`
	Outcome        string                 `json:"outcome"`
	OutcomeDesc    string                 `json:"outcomeDesc,omitempty"`
	PurposeOfEvent []fhir.CodeableConcept `json:"purposeOfEvent,omitempty"`
	Agent          []EventAgent           `json:"agent"`
	Source         EventSource            `json:"source"`
	Entity         []EventEntity          `json:"entity,omitempty"`
}

type EventAgent struct {
	Type      *fhir.CodeableConcept  `json:"type,omitempty"`
	Role      []fhir.CodeableConcept `json:"role,omitempty"`
	Who       *fhir.Reference        `json:"who,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Requestor bool                   `json:"requestor"`
	Network   *Network               `json:"network,omitempty"`
}

// Network type "1" is a machine name, "5" a URI.
type Network struct {
	Address string `json:"address,omitempty"`
	Type    string `json:"type,omitempty"`
}

type EventSource struct {
	Site     string         `json:"site,omitempty"`
	Observer fhir.Reference `json:"observer"`
	Type     []fhir.Coding  `json:"type,omitempty"`
}

type EventEntity struct {
	What          *fhir.Reference `json:"what,omitempty"`
	Type          *fhir.Coding    `json:"type,omitempty"`
	Role          *fhir.Coding    `json:"role,omitempty"`
	SecurityLabel []fhir.Coding   `json:"securityLabel,omitempty"`
	Name          string          `json:"name,omitempty"`
	Description   string          `json:"description,omitempty"`
	Query         string          `json:"query,omitempty"`
	Detail        []EntityDetail  `json:"detail,omitempty"`
}

type EntityDetail struct {
	Type        string `json:"type"`
	ValueString string `json:"valueString,omitempty"`
}

// Resource converts the event to a generic resource for the FHIR client.
func (e *AuditEvent) Resource() (fhir.Resource, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode audit event: %w", err)
	}
	return fhir.ParseResource(raw)
}

// DetailValue returns the detail value for key across all entities.
func (e *AuditEvent) DetailValue(key string) (string, bool) {
	for _, ent := range e.Entity {
		for _, d := range ent.Detail {
			if d.Type == key {
				return d.ValueString, true
			}
		}
	}
	return "", false
}
