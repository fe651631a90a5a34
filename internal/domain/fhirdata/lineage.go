package fhirdata

import (
	"context"

	"github.com/medcalc/medcalc/internal/domain/provenance"
	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// RecordCalculationProvenance records a calculator run and, when source
// observations are given, a derivation linking the result to them. Lineage
// is best effort: failures are logged and the calculation record, if any,
// is returned.
func (s *Service) RecordCalculationProvenance(ctx context.Context, calculatorID, calculatorName string, inputs, outputs map[string]interface{}, sources []fhir.Reference) *provenance.Provenance {
	if s.prov == nil {
		return nil
	}
	calc, err := s.prov.RecordCalculation(ctx, provenance.CalculationResult{
		CalculatorID:   calculatorID,
		CalculatorName: calculatorName,
		Inputs:         inputs,
		Outputs:        outputs,
		PatientID:      s.current().patientID,
		Sources:        sources,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("calculator", calculatorID).Msg("record calculation provenance")
		if calc.ID == "" {
			return nil
		}
	}
	if len(sources) > 0 && len(calc.Target) > 0 {
		target := calc.Target[0]
		if _, err := s.prov.RecordDerivation(ctx, target.Reference, target.Display, sources, "Derived from "+calculatorName+" inputs"); err != nil {
			s.logger.Warn().Err(err).Str("calculator", calculatorID).Msg("record derivation provenance")
		}
	}
	return &calc
}

// GetProvenance returns the records targeting ref.
func (s *Service) GetProvenance(ref string) []provenance.Provenance {
	if s.prov == nil {
		return []provenance.Provenance{}
	}
	return s.prov.GetProvenanceForTarget(ref)
}

func (s *Service) GenerateLineageReport(ref string) provenance.LineageReport {
	if s.prov == nil {
		return provenance.LineageReport{Target: ref}
	}
	return s.prov.GenerateLineageReport(ref)
}
