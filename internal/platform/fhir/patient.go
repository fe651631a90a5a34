package fhir

import (
	"strings"
	"time"
)

// Patient is the subset of the Patient resource used for demographics and
// security decisions.
type Patient struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id,omitempty"`
	Meta         *Meta        `json:"meta,omitempty"`
	Name         []HumanName  `json:"name,omitempty"`
	Gender       string       `json:"gender,omitempty"`
	BirthDate    string       `json:"birthDate,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`
	Extension    []Extension  `json:"extension,omitempty"`
}

// PatientFrom decodes a raw resource. A nil resource yields nil.
func PatientFrom(r Resource) (*Patient, error) {
	if r == nil {
		return nil, nil
	}
	var p Patient
	if err := r.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PreferredName returns the official name entry, else the first one.
func (p *Patient) PreferredName() *HumanName {
	if p == nil || len(p.Name) == 0 {
		return nil
	}
	for i := range p.Name {
		if p.Name[i].Use == "official" {
			return &p.Name[i]
		}
	}
	return &p.Name[0]
}

// DisplayName renders a HumanName: text when present, else given names
// followed by the family name. Returns "" when nothing is displayable.
func (n *HumanName) DisplayName() string {
	if n == nil {
		return ""
	}
	if t := strings.TrimSpace(n.Text); t != "" {
		return t
	}
	parts := make([]string, 0, len(n.Given)+1)
	for _, g := range n.Given {
		if g = strings.TrimSpace(g); g != "" {
			parts = append(parts, g)
		}
	}
	if f := strings.TrimSpace(n.Family); f != "" {
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}

// BirthTime parses birthDate.
func (p *Patient) BirthTime() (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	return ParseDateTime(p.BirthDate)
}

// AgeAt returns completed years at now.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
