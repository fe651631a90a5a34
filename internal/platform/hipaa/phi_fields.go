package hipaa

import (
	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// MinimalPatient is the only patient data written to the local store.
type MinimalPatient struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`
}

// MinimizePatient strips a Patient resource down to id, preferred display
// name, birth date and gender. A patient without a displayable name keeps an
// empty name. Returns nil for a nil or undecodable resource.
func MinimizePatient(r fhir.Resource) *MinimalPatient {
	p, err := fhir.PatientFrom(r)
	if err != nil || p == nil {
		return nil
	}
	return &MinimalPatient{
		ID:        p.ID,
		Name:      p.PreferredName().DisplayName(),
		BirthDate: p.BirthDate,
		Gender:    p.Gender,
	}
}

// Resource renders the minimal view back into a Patient resource.
func (m *MinimalPatient) Resource() fhir.Resource {
	r := fhir.Resource{"resourceType": "Patient", "id": m.ID}
	if m.Name != "" {
		r["name"] = []interface{}{map[string]interface{}{"text": m.Name}}
	}
	if m.BirthDate != "" {
		r["birthDate"] = m.BirthDate
	}
	if m.Gender != "" {
		r["gender"] = m.Gender
	}
	return r
}
