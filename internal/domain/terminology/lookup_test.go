package terminology

import "testing"

func TestCodeFormats(t *testing.T) {
	loinc := map[string]bool{"2160-0": true, "85354-9": true, "123-4": false, "2160-00": false, "": false}
	for code, want := range loinc {
		if got := IsValidLoincCode(code); got != want {
			t.Errorf("IsValidLoincCode(%q): expected %v, got %v", code, want, got)
		}
	}
	snomed := map[string]bool{"38341003": true, "12345": false, "1234567890123456789": false, "abc123456": false}
	for code, want := range snomed {
		if got := IsValidSnomedCode(code); got != want {
			t.Errorf("IsValidSnomedCode(%q): expected %v, got %v", code, want, got)
		}
	}
}

func TestGetLoincName(t *testing.T) {
	if got := GetLoincName("29463-7"); got != "weight" {
		t.Errorf("expected weight, got %q", got)
	}
	if got := GetLoincName("8480-6"); got != "systolic bp" {
		t.Errorf("expected systolic bp, got %q", got)
	}
	if got := GetLoincName("9999-9"); got != "" {
		t.Errorf("expected empty name, got %q", got)
	}
}

func TestGetTextNameByLoinc(t *testing.T) {
	if got := GetTextNameByLoinc("2160-0"); got != "Creatinine" {
		t.Errorf("expected Creatinine, got %q", got)
	}
	// member of a comma separated registry code
	if got := GetTextNameByLoinc("8331-1"); got != "Temperature" {
		t.Errorf("expected Temperature, got %q", got)
	}
	if got := GetTextNameByLoinc("0000-0"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestGetLoincByTextName(t *testing.T) {
	cases := map[string]string{
		"Creatinine": "2160-0",
		" cr ":       "2160-0",
		"hgb":        "718-7",
		"LDL-C":      "2089-1",
		"nonsense":   "",
		"":           "",
	}
	for in, want := range cases {
		if got := GetLoincByTextName(in); got != want {
			t.Errorf("GetLoincByTextName(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestGetLoincCode(t *testing.T) {
	if got := GetLoincCode("heart rate"); got != "8867-4" {
		t.Errorf("expected 8867-4, got %q", got)
	}
	if got := GetLoincCode("bp-panel"); got != LOINCBPPanel {
		t.Errorf("expected %s, got %q", LOINCBPPanel, got)
	}
	if got := GetSnomedCode("hypertension"); got != "38341003" {
		t.Errorf("expected 38341003, got %q", got)
	}
	if got := GetSnomedName("38341003"); got != "hypertension" {
		t.Errorf("expected hypertension, got %q", got)
	}
	if got := GetRxNormCode("p2y12 inhibitor"); got != "32968,1116632,855812" {
		t.Errorf("unexpected P2Y12 codes %q", got)
	}
}

func TestGetMeasurementType(t *testing.T) {
	cases := map[string]string{
		"8310-5":          "temperature",
		"2085-9":          "cholesterol",
		"2089-1":          "cholesterol",
		"29463-7":         "weight",
		"8302-2":          "height",
		"2160-0,38483-4":  "creatinine",
		"8310-5,8331-1":   "temperature",
		"1920-8":          "concentration",
		"85354-9,55284-4": "pressure",
	}
	for code, want := range cases {
		if got := GetMeasurementType(code); got != want {
			t.Errorf("GetMeasurementType(%q): expected %q, got %q", code, want, got)
		}
	}
}

func TestVitalSignsAndLabCategories(t *testing.T) {
	vitals := GetVitalSignsCodes()
	if vitals["respiratoryRate"] != "9279-1" {
		t.Errorf("expected 9279-1, got %q", vitals["respiratoryRate"])
	}
	if vitals["oxygenSaturation"] != "59408-5" {
		t.Errorf("expected 59408-5, got %q", vitals["oxygenSaturation"])
	}

	lipid := GetLabCodesByCategory("Lipid")
	if lipid["ldl"] != "2089-1" {
		t.Errorf("expected ldl 2089-1, got %q", lipid["ldl"])
	}
	if GetLabCodesByCategory("unknown") != nil {
		t.Error("expected nil for unknown category")
	}
}

func TestLabNamesReferenceRegistry(t *testing.T) {
	for _, n := range labNames {
		if GetLoincCode(n.Key) == "" {
			t.Errorf("lab name %s has no registry code", n.Key)
		}
	}
}
