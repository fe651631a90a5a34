package fhirdata

import (
	"strings"
	"time"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

const unknownPatient = "Unknown Patient"

func (s *Service) patient() *fhir.Patient {
	raw := s.current().patient
	if raw == nil {
		return nil
	}
	p, err := fhir.PatientFrom(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("decode patient")
		return nil
	}
	return p
}

// GetPatientAge returns the age in completed years, or nil without a birth
// date.
func (s *Service) GetPatientAge() *int {
	birth, ok := s.patient().BirthTime()
	if !ok {
		return nil
	}
	return intPtr(fhir.AgeAt(birth, s.now()))
}

// GetPatientGender returns "female" or "male". Other administrative genders
// ("other", "unknown") and a missing value yield nil, never a default sex;
// callers pick their own fallback. See DESIGN.md section 5, gender mapping.
func (s *Service) GetPatientGender() *string {
	p := s.patient()
	if p == nil || p.Gender == "" {
		return nil
	}
	switch g := strings.ToLower(strings.TrimSpace(p.Gender)); g {
	case "female", "male":
		return strPtr(g)
	default:
		s.logger.Debug().Str("gender", g).Msg("gender not usable for sex specific formulas")
		return nil
	}
}

// GetPatientName renders the official name entry, else the first one.
func (s *Service) GetPatientName() *string {
	name := s.patient().PreferredName().DisplayName()
	if name == "" {
		return nil
	}
	return &name
}

// GetPatientDisplayName is GetPatientName with a placeholder.
func (s *Service) GetPatientDisplayName() string {
	if n := s.GetPatientName(); n != nil {
		return *n
	}
	return unknownPatient
}

func (s *Service) GetPatientBirthDate() *time.Time {
	birth, ok := s.patient().BirthTime()
	if !ok {
		return nil
	}
	return &birth
}

// GetPatientBirthDateString returns birthDate as recorded.
func (s *Service) GetPatientBirthDateString() *string {
	p := s.patient()
	if p == nil || p.BirthDate == "" {
		return nil
	}
	return strPtr(p.BirthDate)
}

func (s *Service) GetPatientDemographics() Demographics {
	return Demographics{
		Name:            s.GetPatientName(),
		DisplayName:     s.GetPatientDisplayName(),
		Age:             s.GetPatientAge(),
		Gender:          s.GetPatientGender(),
		BirthDate:       s.GetPatientBirthDate(),
		BirthDateString: s.GetPatientBirthDateString(),
	}
}
