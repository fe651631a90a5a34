package fhir

import "strings"

// Confidentiality classification labels from the HL7 v3 ConfidentialityClassification
// code system. These form a hierarchy: U < L < M < N < R < V.
const (
	LabelUnrestricted   = "U" // unrestricted
	LabelLow            = "L" // low
	LabelModerate       = "M" // moderate
	LabelNormal         = "N" // normal
	LabelRestricted     = "R" // restricted
	LabelVeryRestricted = "V" // very restricted
)

// SecurityLabelSystem is the FHIR code system URI for confidentiality classifications.
const SecurityLabelSystem = "http://terminology.hl7.org/CodeSystem/v3-Confidentiality"

// ActCodeSystem is the FHIR code system URI for act codes including sensitivity labels.
const ActCodeSystem = "http://terminology.hl7.org/CodeSystem/v3-ActCode"

// confidentialityOrder maps confidentiality codes to their numeric level for
// hierarchical comparison. Higher values indicate more restricted access.
var confidentialityOrder = map[string]int{
	LabelUnrestricted:   0,
	LabelLow:            1,
	LabelModerate:       2,
	LabelNormal:         3,
	LabelRestricted:     4,
	LabelVeryRestricted: 5,
}

// ConfidentialityLevel returns a numeric level for the given confidentiality code.
// Higher values mean more restricted. Unknown codes return -1.
func ConfidentialityLevel(code string) int {
	if level, ok := confidentialityOrder[code]; ok {
		return level
	}
	return -1
}

// IsConfidentialityCode reports whether code is one of U, L, M, N, R, V.
func IsConfidentialityCode(code string) bool {
	return ConfidentialityLevel(code) >= 0
}

// SecurityCodings returns meta.security of a raw resource.
func (r Resource) SecurityCodings() []Coding {
	return r.Meta().Security
}

// Tags returns meta.tag of a raw resource.
func (r Resource) Tags() []Coding {
	return r.Meta().Tag
}

// IsRestricted reports whether the resource carries an R or V security label
// under any system.
func (r Resource) IsRestricted() bool {
	for _, c := range r.SecurityCodings() {
		if c.Code == LabelRestricted || c.Code == LabelVeryRestricted {
			return true
		}
	}
	return false
}

// SplitCodes splits a comma separated code list, trimming blanks.
func SplitCodes(codes string) []string {
	parts := strings.Split(codes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
