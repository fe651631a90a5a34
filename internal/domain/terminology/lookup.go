package terminology

import (
	"regexp"
	"strings"

	"github.com/medcalc/medcalc/internal/platform/units"
)

// Frequently used LOINC codes.
const (
	LOINCSystolicBP  = "8480-6"
	LOINCDiastolicBP = "8462-4"
	LOINCBPPanel     = "85354-9,55284-4"
	LOINCHeartRate   = "8867-4"
	LOINCTemperature = "8310-5,8331-1"
	LOINCHeight      = "8302-2"
	LOINCWeight      = "29463-7"
	LOINCCreatinine  = "2160-0"
	LOINCHemoglobin  = "718-7"
	LOINCGlucose     = "2345-7"
	LOINCSodium      = "2951-2"
	LOINCPotassium   = "2823-3"
)

var (
	loincPattern  = regexp.MustCompile(`^\d{4,5}-\d$`)
	snomedPattern = regexp.MustCompile(`^\d{6,18}$`)
)

// IsValidLoincCode checks the LOINC code format: 4-5 digits, dash, check digit.
func IsValidLoincCode(code string) bool { return loincPattern.MatchString(code) }

// IsValidSnomedCode checks the SNOMED CT identifier format.
func IsValidSnomedCode(code string) bool { return snomedPattern.MatchString(code) }

func normalizeKey(name string) string {
	return strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToUpper(name))
}

func humanize(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", " "))
}

// GetLoincCode resolves a common name such as "heart rate" to its code.
func GetLoincCode(name string) string {
	k := normalizeKey(name)
	for _, c := range loincRegistry {
		if c.Key == k {
			return c.Code
		}
	}
	return ""
}

// GetLoincName returns the lower-case registry name of an exact code value,
// e.g. "29463-7" yields "weight". Returns "" when unknown.
func GetLoincName(code string) string {
	for _, c := range loincRegistry {
		if c.Code == code {
			return humanize(c.Key)
		}
	}
	return ""
}

func GetSnomedCode(name string) string {
	k := normalizeKey(name)
	for _, c := range snomedRegistry {
		if c.Key == k {
			return c.Code
		}
	}
	return ""
}

func GetSnomedName(code string) string {
	for _, c := range snomedRegistry {
		if c.Code == code {
			return humanize(c.Key)
		}
	}
	return ""
}

// GetRxNormCode resolves a medication name; class aliases such as
// P2Y12_INHIBITOR return a comma separated list.
func GetRxNormCode(name string) string {
	k := normalizeKey(name)
	for _, c := range rxnormRegistry {
		if c.Key == k {
			return c.Code
		}
	}
	return ""
}

// findLOINC returns the first registry entry whose code list contains code.
func findLOINC(code string) *LOINCCode {
	for i := range loincRegistry {
		for _, c := range strings.Split(loincRegistry[i].Code, ",") {
			if strings.TrimSpace(c) == code {
				return &loincRegistry[i]
			}
		}
	}
	return nil
}

func textNameForKey(key string) string {
	for _, n := range labNames {
		if n.Key == key {
			return n.Primary
		}
	}
	return ""
}

// GetTextNameByLoinc returns the EHR text name for a LOINC code. A code
// that is one member of a registry list also resolves.
func GetTextNameByLoinc(code string) string {
	c := findLOINC(code)
	if c == nil {
		return ""
	}
	return textNameForKey(c.Key)
}

// GetLoincByTextName resolves a primary text name or alias, ignoring case.
func GetLoincByTextName(text string) string {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return ""
	}
	for _, n := range labNames {
		hit := strings.ToLower(n.Primary) == q
		for _, a := range n.Aliases {
			if strings.ToLower(a) == q {
				hit = true
			}
		}
		if !hit {
			continue
		}
		for _, c := range loincRegistry {
			if c.Key == n.Key {
				return c.Code
			}
		}
		return ""
	}
	return ""
}

var measurementTypes = map[string]string{
	"8310-5":  units.Temperature,
	"8331-1":  units.Temperature,
	"2093-3":  units.Cholesterol,
	"2085-9":  units.Cholesterol,
	"2089-1":  units.Cholesterol,
	"2571-8":  units.Triglycerides,
	"2345-7":  units.Glucose,
	"2339-0":  units.Glucose,
	"2160-0":  units.Creatinine,
	"38483-4": units.Creatinine,
	"17861-6": units.Calcium,
	"1751-7":  units.Albumin,
	"1975-2":  units.Bilirubin,
	"1968-7":  units.Bilirubin,
	"718-7":   units.Hemoglobin,
	"3094-0":  units.BUN,
	"6299-8":  units.BUN,
	"6299-2":  units.BUN,
	"2951-2":  units.Electrolyte,
	"2823-3":  units.Electrolyte,
	"29463-7": units.Weight,
	"8302-2":  units.Height,
	"8480-6":  units.Pressure,
	"8462-4":  units.Pressure,
	"85354-9": units.Pressure,
	"777-3":   units.Platelet,
	"26515-7": units.Platelet,
	"6690-2":  units.WBC,
	"48065-7": units.DDimer,
	"3255-7":  units.Fibrinogen,
	"20448-7": units.Insulin,
}

// GetMeasurementType maps a LOINC code (the first of a comma list) to the
// unit conversion family, defaulting to concentration.
func GetMeasurementType(code string) string {
	primary := strings.TrimSpace(strings.Split(code, ",")[0])
	if t, ok := measurementTypes[primary]; ok {
		return t
	}
	return units.Concentration
}

// GetVitalSignsCodes returns the vital sign codes by field name.
func GetVitalSignsCodes() map[string]string {
	return map[string]string{
		"systolicBP":       LOINCSystolicBP,
		"diastolicBP":      LOINCDiastolicBP,
		"heartRate":        LOINCHeartRate,
		"respiratoryRate":  GetLoincCode("respiratory rate"),
		"temperature":      LOINCTemperature,
		"oxygenSaturation": GetLoincCode("oxygen saturation"),
	}
}

var labCategories = map[string]map[string]string{
	"hematology": {
		"hemoglobin": "HEMOGLOBIN", "hematocrit": "HEMATOCRIT", "wbc": "WBC", "platelets": "PLATELETS",
	},
	"chemistry": {
		"sodium": "SODIUM", "potassium": "POTASSIUM", "chloride": "CHLORIDE", "co2": "CO2",
		"bun": "BUN", "creatinine": "CREATININE", "glucose": "GLUCOSE",
	},
	"liver": {
		"bilirubinTotal": "BILIRUBIN_TOTAL", "ast": "AST", "alt": "ALT", "alp": "ALP",
		"albumin": "ALBUMIN_SERUM", "inr": "INR",
	},
	"lipid": {
		"totalCholesterol": "CHOLESTEROL_TOTAL", "hdl": "HDL", "ldl": "LDL", "triglycerides": "TRIGLYCERIDES",
	},
	"cardiac": {
		"troponinI": "TROPONIN_I", "troponinT": "TROPONIN_T", "bnp": "BNP", "ntProBnp": "NT_PRO_BNP",
	},
}

// GetLabCodesByCategory returns the codes of a lab panel category, or nil
// for an unknown category.
func GetLabCodesByCategory(category string) map[string]string {
	keys, ok := labCategories[strings.ToLower(category)]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(keys))
	for field, key := range keys {
		out[field] = GetLoincCode(key)
	}
	return out
}
