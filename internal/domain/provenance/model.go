package provenance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// Activity is an HL7 v3 DataOperation.
type Activity string

const (
	ActivityCreate     Activity = "CREATE"
	ActivityUpdate     Activity = "UPDATE"
	ActivityDelete     Activity = "DELETE"
	ActivityExecute    Activity = "EXECUTE"
	ActivityVerify     Activity = "VERIFY"
	ActivityTransform  Activity = "TRANSFORM"
	ActivityCompose    Activity = "COMPOSE"
	ActivityDerivation Activity = "DERIVATION"
)

type AgentRole string

const (
	RoleAuthor    AgentRole = "author"
	RolePerformer AgentRole = "performer"
	RoleVerifier  AgentRole = "verifier"
	RoleAttester  AgentRole = "attester"
	RoleInformant AgentRole = "informant"
	RoleCustodian AgentRole = "custodian"
	RoleAssembler AgentRole = "assembler"
	RoleComposer  AgentRole = "composer"
)

type AgentType string

const (
	AgentPractitioner  AgentType = "practitioner"
	AgentPatient       AgentType = "patient"
	AgentOrganization  AgentType = "organization"
	AgentDevice        AgentType = "device"
	AgentRelatedPerson AgentType = "relatedPerson"
)

type EntityRole string

const (
	EntityDerivation EntityRole = "derivation"
	EntityRevision   EntityRole = "revision"
	EntityQuotation  EntityRole = "quotation"
	EntitySource     EntityRole = "source"
	EntityRemoval    EntityRole = "removal"
)

// DataSource says where the target data came from.
type DataSource string

const (
	SourceInternal       DataSource = "internal"
	SourcePatientUpload  DataSource = "patient-upload"
	SourceCrossHospital  DataSource = "cross-hospital"
	SourceExternalSystem DataSource = "external-system"
	SourceManualEntry    DataSource = "manual-entry"
	SourceDevice         DataSource = "device"
	SourceCalculated     DataSource = "calculated"
)

type SignatureType string

const (
	SignatureAuthorship   SignatureType = "authorship"
	SignatureWitness      SignatureType = "witness"
	SignatureVerification SignatureType = "verification"
	SignatureValidation   SignatureType = "validation"
	SignatureConsent      SignatureType = "consent"
)

const (
	SystemActivity      = "http://terminology.hl7.org/CodeSystem/v3-DataOperation"
	SystemAgentType     = "http://terminology.hl7.org/CodeSystem/provenance-participant-type"
	SystemSignatureType = "urn:iso-astm:E1762-95:2013"
	SystemActReason     = "http://terminology.hl7.org/CodeSystem/v3-ActReason"
	SystemDataSource    = "https://medcalc-ehr.example.com/CodeSystem/data-source-type"
	SystemURI           = "urn:ietf:rfc:3986"

	ProfileTWCore = "https://twcore.mohw.gov.tw/ig/twcore/StructureDefinition/Provenance-twcore"

	ExtensionCalculationInputs  = "https://medcalc-ehr.example.com/StructureDefinition/calculation-inputs"
	ExtensionCalculationOutputs = "https://medcalc-ehr.example.com/StructureDefinition/calculation-outputs"
)

var activityCodes = map[Activity]fhir.Coding{
	ActivityCreate:     {System: SystemActivity, Code: "CREATE", Display: "Create"},
	ActivityUpdate:     {System: SystemActivity, Code: "UPDATE", Display: "Update/Revise"},
	ActivityDelete:     {System: SystemActivity, Code: "DELETE", Display: "Delete"},
	ActivityExecute:    {System: SystemActivity, Code: "EXECUTE", Display: "Execute"},
	ActivityVerify:     {System: SystemActivity, Code: "VERIFY", Display: "Verify"},
	ActivityTransform:  {System: SystemActivity, Code: "TRANSFORM", Display: "Transform"},
	ActivityCompose:    {System: SystemActivity, Code: "COMPOSE", Display: "Compose"},
	ActivityDerivation: {System: SystemActivity, Code: "DERIVE", Display: "Derivation"},
}

var agentTypeCodes = map[AgentType]fhir.Coding{
	AgentPractitioner:  {System: SystemAgentType, Code: "author", Display: "Author"},
	AgentPatient:       {System: SystemAgentType, Code: "informant", Display: "Informant"},
	AgentOrganization:  {System: SystemAgentType, Code: "custodian", Display: "Custodian"},
	AgentDevice:        {System: SystemAgentType, Code: "assembler", Display: "Assembler"},
	AgentRelatedPerson: {System: SystemAgentType, Code: "informant", Display: "Informant"},
}

var referencePrefixes = map[AgentType]string{
	AgentPractitioner:  "Practitioner/",
	AgentPatient:       "Patient/",
	AgentOrganization:  "Organization/",
	AgentDevice:        "Device/",
	AgentRelatedPerson: "RelatedPerson/",
}

var signatureCodes = map[SignatureType]fhir.Coding{
	SignatureAuthorship:   {System: SystemSignatureType, Code: "1.2.840.10065.1.12.1.1", Display: "Author's Signature"},
	SignatureWitness:      {System: SystemSignatureType, Code: "1.2.840.10065.1.12.1.5", Display: "Witness Signature"},
	SignatureVerification: {System: SystemSignatureType, Code: "1.2.840.10065.1.12.1.5", Display: "Verification Signature"},
	SignatureValidation:   {System: SystemSignatureType, Code: "1.2.840.10065.1.12.1.6", Display: "Validation Signature"},
	SignatureConsent:      {System: SystemSignatureType, Code: "1.2.840.10065.1.12.1.7", Display: "Consent Signature"},
}

var dataSourceDisplay = map[DataSource]string{
	SourceInternal:       "本院產生",
	SourcePatientUpload:  "病患上傳",
	SourceCrossHospital:  "跨院交換",
	SourceExternalSystem: "外部系統",
	SourceManualEntry:    "人工輸入",
	SourceDevice:         "設備產生",
	SourceCalculated:     "計算衍生",
}

func roleCoding(r AgentRole) fhir.Coding {
	display := string(r)
	if display != "" {
		display = string(display[0]-'a'+'A') + display[1:]
	}
	return fhir.Coding{System: SystemAgentType, Code: string(r), Display: display}
}

// Agent is a participant supplied by a caller.
type Agent struct {
	Type       AgentType
	ID         string
	Name       string
	Role       AgentRole
	OnBehalfOf *fhir.Reference
}

// Reference returns "<Type>/<id>".
func (a Agent) Reference() string {
	if p, ok := referencePrefixes[a.Type]; ok {
		return p + a.ID
	}
	return a.ID
}

// Entity is a source the target was produced from.
type Entity struct {
	Role    EntityRole
	What    string
	Display string
	Agent   *Agent
}

type Signature struct {
	Type         SignatureType
	When         time.Time
	Who          fhir.Reference
	TargetFormat string
	SigFormat    string
	Data         string
}

// CreateParams describes a record for CreateProvenance.
type CreateParams struct {
	Targets    []fhir.Reference
	Activity   Activity
	OccurredAt *time.Time
	Agents     []Agent
	Entities   []Entity
	DataSource DataSource
	Reason     string
	Policies   []string
	Signature  *Signature
	Extensions []fhir.Extension
}

// CalculationResult is a calculator run to record lineage for.
type CalculationResult struct {
	CalculatorID   string                 `json:"calculatorId" validate:"required"`
	CalculatorName string                 `json:"calculatorName" validate:"required"`
	Inputs         map[string]interface{} `json:"inputs"`
	Outputs        map[string]interface{} `json:"outputs"`
	Timestamp      time.Time              `json:"timestamp"`
	PatientID      string                 `json:"patientId,omitempty"`
	PractitionerID string                 `json:"practitionerId,omitempty"`
	// Sources are the observations the inputs were populated from.
	Sources []fhir.Reference `json:"sources,omitempty"`
}

// Provenance is the FHIR R4 Provenance resource.
type Provenance struct {
	ResourceType     string                 `json:"resourceType"`
	ID               string                 `json:"id,omitempty"`
	Meta             *fhir.Meta             `json:"meta,omitempty"`
	Extension        []fhir.Extension       `json:"extension,omitempty"`
	Target           []fhir.Reference       `json:"target"`
	OccurredDateTime string                 `json:"occurredDateTime,omitempty"`
	Recorded         string                 `json:"recorded"`
	Policy           []string               `json:"policy,omitempty"`
	Location         *fhir.Reference        `json:"location,omitempty"`
	Reason           []fhir.CodeableConcept `json:"reason,omitempty"`
	Activity         *fhir.CodeableConcept  `json:"activity,omitempty"`
	Agent            []ProvenanceAgent      `json:"agent"`
	Entity           []ProvenanceEntity     `json:"entity,omitempty"`
	Signature        []ProvenanceSignature  `json:"signature,omitempty"`
}

type ProvenanceAgent struct {
	Type       *fhir.CodeableConcept  `json:"type,omitempty"`
	Role       []fhir.CodeableConcept `json:"role,omitempty"`
	Who        fhir.Reference         `json:"who"`
	OnBehalfOf *fhir.Reference        `json:"onBehalfOf,omitempty"`
}

type ProvenanceEntity struct {
	Role  string            `json:"role"`
	What  fhir.Reference    `json:"what"`
	Agent []ProvenanceAgent `json:"agent,omitempty"`
}

type ProvenanceSignature struct {
	Type         []fhir.Coding  `json:"type"`
	When         string         `json:"when"`
	Who          fhir.Reference `json:"who"`
	TargetFormat string         `json:"targetFormat,omitempty"`
	SigFormat    string         `json:"sigFormat,omitempty"`
	Data         string         `json:"data,omitempty"`
}

// Resource converts the record to a generic resource for the FHIR client.
func (p *Provenance) Resource() (fhir.Resource, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode provenance: %w", err)
	}
	return fhir.ParseResource(raw)
}

// HasTarget reports whether ref is one of the record's targets.
func (p *Provenance) HasTarget(ref string) bool {
	for _, t := range p.Target {
		if t.Reference == ref {
			return true
		}
	}
	return false
}

// ActivityText returns the activity display or "Unknown".
func (p *Provenance) ActivityText() string {
	if p.Activity == nil || p.Activity.Text == "" {
		return "Unknown"
	}
	return p.Activity.Text
}

// LineageEvent is one step of a lineage timeline.
type LineageEvent struct {
	Date     string `json:"date"`
	Activity string `json:"activity"`
	Agent    string `json:"agent"`
}

// LineageReport summarizes every recorded step that produced a target.
type LineageReport struct {
	Target     string         `json:"target"`
	Records    []Provenance   `json:"records"`
	Sources    []string       `json:"sources"`
	Agents     []string       `json:"agents"`
	Activities []string       `json:"activities"`
	Timeline   []LineageEvent `json:"timeline"`
}
