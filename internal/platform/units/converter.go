// Package units converts clinical measurements between unit systems and
// writes converted values into document inputs.
package units

import (
	"math"
	"sort"
)

// Measurement types.
const (
	Weight        = "weight"
	Height        = "height"
	Temperature   = "temperature"
	Pressure      = "pressure"
	Volume        = "volume"
	Concentration = "concentration"
	Glucose       = "glucose"
	Creatinine    = "creatinine"
	Calcium       = "calcium"
	Albumin       = "albumin"
	Bilirubin     = "bilirubin"
	Hemoglobin    = "hemoglobin"
	BUN           = "bun"
	Electrolyte   = "electrolyte"
	Cholesterol   = "cholesterol"
	Triglycerides = "triglycerides"
	Platelet      = "platelet"
	WBC           = "wbc"
	DDimer        = "ddimer"
	Fibrinogen    = "fibrinogen"
	Insulin       = "insulin"
	Phenytoin     = "phenytoin"
)

type conversion struct {
	factor float64
	fn     func(float64) float64
}

func (c conversion) apply(v float64) float64 {
	if c.fn != nil {
		return c.fn(v)
	}
	return v * c.factor
}

func f(x float64) conversion { return conversion{factor: x} }

type table map[string]map[string]conversion

var conversions = map[string]table{
	Weight: {
		"kg":  {"lbs": f(2.20462), "g": f(1000)},
		"lbs": {"kg": f(0.453592), "g": f(453.592)},
		"g":   {"kg": f(0.001), "lbs": f(0.00220462)},
	},
	Height: {
		"cm": {"in": f(0.393701), "ft": f(0.0328084), "m": f(0.01)},
		"in": {"cm": f(2.54), "ft": f(0.0833333), "m": f(0.0254)},
		"ft": {"cm": f(30.48), "in": f(12), "m": f(0.3048)},
		"m":  {"cm": f(100), "in": f(39.3701), "ft": f(3.28084)},
	},
	Temperature: {
		"C": {
			"F": {fn: func(v float64) float64 { return v*9/5 + 32 }},
			"K": {fn: func(v float64) float64 { return v + 273.15 }},
		},
		"F": {
			"C": {fn: func(v float64) float64 { return (v - 32) * 5 / 9 }},
			"K": {fn: func(v float64) float64 { return (v-32)*5/9 + 273.15 }},
		},
		"K": {
			"C": {fn: func(v float64) float64 { return v - 273.15 }},
			"F": {fn: func(v float64) float64 { return (v-273.15)*9/5 + 32 }},
		},
	},
	Pressure: {
		"mmHg":   {"kPa": f(0.133322), "bar": f(0.00133322), "mm[Hg]": f(1)},
		"kPa":    {"mmHg": f(7.50062), "bar": f(0.01), "mm[Hg]": f(7.50062)},
		"bar":    {"mmHg": f(750.062), "kPa": f(100), "mm[Hg]": f(750.062)},
		"mm[Hg]": {"mmHg": f(1), "kPa": f(0.133322), "bar": f(0.00133322)},
	},
	Volume: {
		"mL":    {"L": f(0.001), "fl oz": f(0.033814), "cup": f(0.00422675)},
		"L":     {"mL": f(1000), "fl oz": f(33.814), "cup": f(4.22675)},
		"fl oz": {"mL": f(29.5735), "L": f(0.0295735), "cup": f(0.125)},
		"cup":   {"mL": f(236.588), "L": f(0.236588), "fl oz": f(8)},
	},
	// mg/dL to mmol/L has no generic factor; use the analyte type instead.
	Concentration: {
		"g/L":  {"mg/dL": f(100), "g/dL": f(0.1)},
		"g/dL": {"mg/dL": f(1000), "g/L": f(10)},
	},
	Glucose: {
		"mg/dL":  {"mmol/L": f(0.0555)},
		"mmol/L": {"mg/dL": f(18.018)},
	},
	Creatinine: {
		"mg/dL":  {"µmol/L": f(88.4), "umol/L": f(88.4)},
		"µmol/L": {"mg/dL": f(0.0113)},
		"umol/L": {"mg/dL": f(0.0113)},
	},
	Calcium: {
		"mg/dL":  {"mmol/L": f(0.2495)},
		"mmol/L": {"mg/dL": f(4.008)},
	},
	Albumin: {
		"g/dL": {"g/L": f(10)},
		"g/L":  {"g/dL": f(0.1)},
	},
	Bilirubin: {
		"mg/dL":  {"µmol/L": f(17.1), "umol/L": f(17.1)},
		"µmol/L": {"mg/dL": f(0.0585)},
		"umol/L": {"mg/dL": f(0.0585)},
	},
	Hemoglobin: {
		"g/dL":   {"g/L": f(10), "mmol/L": f(0.6206)},
		"g/L":    {"g/dL": f(0.1)},
		"mmol/L": {"g/dL": f(1.611)},
	},
	BUN: {
		"mg/dL":  {"mmol/L": f(0.357)},
		"mmol/L": {"mg/dL": f(2.801)},
	},
	Electrolyte: {
		"mEq/L":  {"mmol/L": f(1)},
		"mmol/L": {"mEq/L": f(1)},
	},
	Cholesterol: {
		"mg/dL":  {"mmol/L": f(0.02586)},
		"mmol/L": {"mg/dL": f(38.67)},
	},
	Triglycerides: {
		"mg/dL":  {"mmol/L": f(0.01129)},
		"mmol/L": {"mg/dL": f(88.57)},
	},
	Platelet: {
		"×10⁹/L":  {"×10³/µL": f(1), "K/µL": f(1)},
		"×10³/µL": {"×10⁹/L": f(1)},
		"K/µL":    {"×10⁹/L": f(1)},
	},
	WBC: {
		"×10⁹/L":  {"×10³/µL": f(1), "K/µL": f(1)},
		"×10³/µL": {"×10⁹/L": f(1)},
		"K/µL":    {"×10⁹/L": f(1)},
	},
	DDimer: {
		"mg/L":  {"µg/mL": f(1), "ng/mL": f(1000)},
		"µg/mL": {"mg/L": f(1)},
		"ng/mL": {"mg/L": f(0.001)},
	},
	Fibrinogen: {
		"g/L":   {"mg/dL": f(100)},
		"mg/dL": {"g/L": f(0.01)},
	},
	Insulin: {
		"µU/mL":  {"pmol/L": f(6.945), "mU/L": f(1)},
		"mU/L":   {"pmol/L": f(6.945), "µU/mL": f(1)},
		"pmol/L": {"µU/mL": f(0.144), "mU/L": f(0.144)},
	},
	Phenytoin: {
		"mcg/mL": {"µmol/L": f(3.964), "mg/L": f(1)},
		"µmol/L": {"mcg/mL": f(0.252), "mg/L": f(0.252)},
		"mg/L":   {"mcg/mL": f(1), "µmol/L": f(3.964)},
	},
}

var decimalPlaces = map[string]map[string]int{
	Weight:        {"kg": 1, "lbs": 1, "g": 0},
	Height:        {"cm": 1, "in": 1, "ft": 2, "m": 2},
	Temperature:   {"C": 1, "F": 1, "K": 1},
	Cholesterol:   {"mg/dL": 0, "mmol/L": 2},
	Triglycerides: {"mg/dL": 0, "mmol/L": 2},
	Insulin:       {"µU/mL": 1, "pmol/L": 0, "mU/L": 1},
	Phenytoin:     {"mcg/mL": 1, "µmol/L": 0, "mg/L": 1},
	Pressure:      {"mmHg": 0, "kPa": 2, "bar": 3, "mm[Hg]": 0},
	Volume:        {"mL": 0, "L": 2, "fl oz": 1, "cup": 2},
	Glucose:       {"mmol/L": 1, "mg/dL": 0},
	Creatinine:    {"mg/dL": 2, "µmol/L": 0, "umol/L": 0},
	Calcium:       {"mg/dL": 2, "mmol/L": 2},
	Albumin:       {"g/dL": 1, "g/L": 0},
	Bilirubin:     {"mg/dL": 1, "µmol/L": 0, "umol/L": 0},
}

// Convert converts value from one unit to another within a measurement type.
// It returns nil when no conversion is defined or value is NaN. Identical
// units return the value unchanged.
func Convert(value float64, from, to, measurementType string) *float64 {
	if math.IsNaN(value) {
		return nil
	}
	if from == to {
		return &value
	}
	byFrom, ok := conversions[measurementType][from]
	if !ok {
		return nil
	}
	c, ok := byFrom[to]
	if !ok {
		return nil
	}
	out := c.apply(value)
	return &out
}

// DecimalPlaces returns the display precision for a unit, 2 by default.
func DecimalPlaces(measurementType, unit string) int {
	if p, ok := decimalPlaces[measurementType][unit]; ok {
		return p
	}
	return 2
}

// Units lists the units known for a measurement type, sorted.
func Units(measurementType string) []string {
	t := conversions[measurementType]
	out := make([]string, 0, len(t))
	for u := range t {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Types lists every measurement type with a conversion table.
func Types() []string {
	out := make([]string, 0, len(conversions))
	for t := range conversions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
