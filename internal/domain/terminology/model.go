package terminology

// LOINCCode is a registry entry. Code may hold a comma separated list when
// several LOINC codes describe the same measurement (e.g. BP panels).
type LOINCCode struct {
	Key       string `json:"key"`
	Code      string `json:"code"`
	Display   string `json:"display"`
	Category  string `json:"category,omitempty"`
	SystemURI string `json:"system_uri"`
}

// SNOMEDCode is a condition or procedure registry entry.
type SNOMEDCode struct {
	Key       string `json:"key"`
	Code      string `json:"code"`
	Display   string `json:"display"`
	SystemURI string `json:"system_uri"`
}

// RxNormCode is a medication registry entry.
type RxNormCode struct {
	Key       string `json:"key"`
	Code      string `json:"code"`
	Display   string `json:"display"`
	SystemURI string `json:"system_uri"`
}

// LabName is the EHR display name of a LOINC registry entry plus the
// abbreviations clinicians search by.
type LabName struct {
	Key     string   `json:"key"`
	Primary string   `json:"primary"`
	Aliases []string `json:"aliases,omitempty"`
}

// CodeInfo summarizes everything known about one LOINC code.
type CodeInfo struct {
	Code            string `json:"code"`
	Name            string `json:"name,omitempty"`
	TextName        string `json:"text_name,omitempty"`
	MeasurementType string `json:"measurement_type"`
	ValidLOINC      bool   `json:"valid_loinc"`
}

// SearchResult is a generic terminology search result used by the service layer.
type SearchResult struct {
	Code      string `json:"code"`
	Display   string `json:"display"`
	SystemURI string `json:"system"`
}

// LookupRequest represents a FHIR CodeSystem $lookup request.
type LookupRequest struct {
	System string `json:"system"`
	Code   string `json:"code"`
}

// LookupResponse represents a FHIR CodeSystem $lookup response.
type LookupResponse struct {
	ResourceType string            `json:"resourceType"`
	Parameter    []LookupParameter `json:"parameter"`
}

// LookupParameter is a name/value pair in a FHIR Parameters resource.
type LookupParameter struct {
	Name        string `json:"name"`
	ValueString string `json:"valueString,omitempty"`
	ValueCode   string `json:"valueCode,omitempty"`
}

// ValidateCodeRequest represents a FHIR CodeSystem $validate-code request.
type ValidateCodeRequest struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// ValidateCodeResponse represents a FHIR CodeSystem $validate-code response.
type ValidateCodeResponse struct {
	ResourceType string                  `json:"resourceType"`
	Parameter    []ValidateCodeParameter `json:"parameter"`
}

// ValidateCodeParameter is a name/value pair in a validate-code response.
type ValidateCodeParameter struct {
	Name         string `json:"name"`
	ValueBoolean *bool  `json:"valueBoolean,omitempty"`
	ValueString  string `json:"valueString,omitempty"`
}

// CodeSystemURI constants for well-known terminology systems.
const (
	SystemLOINC  = "http://loinc.org"
	SystemICD10  = "http://hl7.org/fhir/sid/icd-10-cm"
	SystemSNOMED = "http://snomed.info/sct"
	SystemRxNorm = "http://www.nlm.nih.gov/research/umls/rxnorm"
)
