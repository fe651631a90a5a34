package fhirdata

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// LoadRequirements reads a calculator requirements file.
//
//	calculator: bmi
//	observations:
//	  - code: 29463-7
//	    inputId: "#weight"
//	    label: Weight
//	    targetUnit: kg
func LoadRequirements(path string) (Requirements, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Requirements{}, fmt.Errorf("read requirements: %w", err)
	}
	return ParseRequirements(data)
}

// ParseRequirements decodes and validates YAML (or JSON) requirements.
func ParseRequirements(data []byte) (Requirements, error) {
	var req Requirements
	if err := yaml.Unmarshal(data, &req); err != nil {
		return Requirements{}, fmt.Errorf("decode requirements: %w", err)
	}
	if err := ValidateRequirements(req); err != nil {
		return Requirements{}, err
	}
	return req, nil
}

func ValidateRequirements(req Requirements) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid requirements: %w", err)
	}
	return nil
}
