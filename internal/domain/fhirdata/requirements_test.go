package fhirdata

import (
	"os"
	"path/filepath"
	"testing"
)

const bmiRequirements = `
calculator: bmi
observations:
  - code: 29463-7
    inputId: "#weight"
    label: Weight
    targetUnit: kg
    decimals: 1
  - code: 8302-2
    inputId: "#height"
    label: Height
    targetUnit: cm
conditions: ["44054006"]
`

func TestLoadRequirements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bmi.yaml")
	if err := os.WriteFile(path, []byte(bmiRequirements), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	req, err := LoadRequirements(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Calculator != "bmi" || len(req.Observations) != 2 {
		t.Fatalf("unexpected requirements %+v", req)
	}
	if req.Observations[0].Decimals == nil || *req.Observations[0].Decimals != 1 {
		t.Error("expected decimals 1")
	}
	if req.Observations[1].TargetUnit != "cm" {
		t.Errorf("expected cm, got %s", req.Observations[1].TargetUnit)
	}
	if len(req.Conditions) != 1 {
		t.Errorf("expected 1 condition, got %d", len(req.Conditions))
	}
}

func TestLoadRequirements_MissingFile(t *testing.T) {
	if _, err := LoadRequirements(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseRequirements_JSON(t *testing.T) {
	req, err := ParseRequirements([]byte(`{"calculator":"map","observations":[{"code":"85354-9","inputId":"map-dbp","label":"Diastolic BP","component":"diastolic"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Observations[0].Component != ComponentDiastolic {
		t.Errorf("expected diastolic component, got %s", req.Observations[0].Component)
	}
}

func TestParseRequirements_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing label":  "observations:\n  - code: 29463-7\n    inputId: weight\n",
		"missing input":  "observations:\n  - code: 29463-7\n    label: Weight\n",
		"decimals range": "observations:\n  - code: 29463-7\n    inputId: weight\n    label: Weight\n    decimals: 9\n",
		"not yaml":       "observations: [",
		"bad component":  "observations:\n  - code: 85354-9\n    inputId: x\n    label: X\n    component: mean\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRequirements([]byte(src)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
