package securitylabel

import (
	"time"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// Decision is the outcome of a security assessment.
type Decision string

const (
	DecisionAllow       Decision = "ALLOW"
	DecisionWarn        Decision = "WARN"
	DecisionMask        Decision = "MASK"
	DecisionDeny        Decision = "DENY"
	DecisionRequireAuth Decision = "REQUIRE_AUTH"
)

// Sensitivity categories.
const (
	SensitivityHIV          = "HIV"
	SensitivityPSY          = "PSY"
	SensitivityETH          = "ETH"
	SensitivitySDV          = "SDV"
	SensitivitySEX          = "SEX"
	SensitivityGenetic      = "GENETIC"
	SensitivityReproductive = "REPRODUCTIVE"
	SensitivityMinor        = "MINOR"
	SensitivityCelebrity    = "CELEBRITY"
	SensitivityResearch     = "RESEARCH"
	SensitivityGeneral      = "GENERAL"
)

// Code systems used when labeling resources.
const (
	ObservationValueSystem = "http://terminology.hl7.org/CodeSystem/v3-ObservationValue"
	SecurityLabelSystem    = "http://terminology.hl7.org/CodeSystem/v3-SecurityLabel"
	TWSecuritySystem       = "https://twcore.mohw.gov.tw/ig/twcore/CodeSystem/security-category-tw"
	MaskedTagSystem        = "http://medcalc-ehr.example.com/tags"
	MaskedTagCode          = "MASKED"
)

// MaskStyle selects how MaskString hides a value.
type MaskStyle string

const (
	MaskFull    MaskStyle = "full"
	MaskPartial MaskStyle = "partial"
	MaskRedact  MaskStyle = "redact"
	MaskBlur    MaskStyle = "blur"
)

type MaskOptions struct {
	Style         MaskStyle `json:"style"`
	VisibleChars  int       `json:"visibleChars,omitempty"`
	MaskText      string    `json:"maskText,omitempty"`
	ShowIndicator bool      `json:"showIndicator,omitempty"`
}

// UserContext is the authorization context assessments run against. A nil
// context is the strictest default.
type UserContext struct {
	UserID               string   `json:"userId"`
	Roles                []string `json:"roles,omitempty"`
	AuthorizedCategories []string `json:"authorizedCategories,omitempty"`
	Permissions          []string `json:"permissions,omitempty"`
}

// Assessment is the result of AssessSecurity.
type Assessment struct {
	Confidentiality       string        `json:"confidentiality"`
	Sensitivities         []string      `json:"sensitivities"`
	Decision              Decision      `json:"decision"`
	MaskedFields          []string      `json:"maskedFields"`
	WarningMessage        string        `json:"warningMessage,omitempty"`
	RequiresAuthorization bool          `json:"requiresAuthorization"`
	RequiredRoles         []string      `json:"requiredRoles"`
	Labels                []fhir.Coding `json:"labels"`
}

// AccessLogEntry is appended for every assessment.
type AccessLogEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	ResourceType    string    `json:"resourceType"`
	ResourceID      string    `json:"resourceId"`
	Confidentiality string    `json:"confidentiality"`
	Decision        Decision  `json:"decision"`
	UserID          string    `json:"userId,omitempty"`
}

// Display is an English and Traditional Chinese rendering of a code.
type Display struct {
	EN          string `json:"en"`
	ZH          string `json:"zh"`
	Description string `json:"description,omitempty"`
}

var confidentialityDisplay = map[string]Display{
	fhir.LabelUnrestricted:   {EN: "Unrestricted", ZH: "無限制"},
	fhir.LabelLow:            {EN: "Low", ZH: "低度保密"},
	fhir.LabelModerate:       {EN: "Moderate", ZH: "中度保密"},
	fhir.LabelNormal:         {EN: "Normal", ZH: "一般保密"},
	fhir.LabelRestricted:     {EN: "Restricted", ZH: "限制級"},
	fhir.LabelVeryRestricted: {EN: "Very Restricted", ZH: "極機密"},
}

var sensitivityDisplay = map[string]Display{
	SensitivityHIV:          {EN: "HIV/AIDS", ZH: "愛滋病相關", Description: "包含 HIV 感染狀態或治療資訊"},
	SensitivityPSY:          {EN: "Psychiatric", ZH: "精神疾病", Description: "精神科診斷或治療紀錄"},
	SensitivityETH:          {EN: "Substance Abuse", ZH: "物質濫用", Description: "藥物或酒精濫用相關紀錄"},
	SensitivitySDV:          {EN: "Sexual/Domestic Violence", ZH: "性侵害/家暴", Description: "性侵害或家庭暴力相關紀錄"},
	SensitivitySEX:          {EN: "Sexual Health", ZH: "性健康", Description: "性傳染病或性健康相關紀錄"},
	SensitivityGenetic:      {EN: "Genetic", ZH: "基因檢測", Description: "基因檢測或遺傳疾病資訊"},
	SensitivityReproductive: {EN: "Reproductive Health", ZH: "生殖健康", Description: "生殖健康或懷孕相關紀錄"},
	SensitivityMinor:        {EN: "Minor", ZH: "未成年人", Description: "未成年人敏感醫療紀錄"},
	SensitivityCelebrity:    {EN: "Celebrity/VIP", ZH: "特殊身分", Description: "公眾人物或 VIP 病患"},
	SensitivityResearch:     {EN: "Research", ZH: "研究用途", Description: "研究用途限定資料"},
	SensitivityGeneral:      {EN: "General", ZH: "一般", Description: "一般醫療資料"},
}

var sensitivityIcons = map[string]string{
	SensitivityHIV:          "🔴",
	SensitivityPSY:          "🧠",
	SensitivityETH:          "⚠️",
	SensitivitySDV:          "🛡️",
	SensitivitySEX:          "💊",
	SensitivityGenetic:      "🧬",
	SensitivityReproductive: "👶",
	SensitivityMinor:        "👧",
	SensitivityCelebrity:    "⭐",
	SensitivityResearch:     "🔬",
}

// Clinical code prefixes (ICD-10 and SNOMED CT) per sensitivity category.
// Checked in this order; the first matching category wins.
var sensitiveCodePrefixes = []struct {
	category string
	prefixes []string
}{
	{SensitivityHIV, []string{"86406008", "62479008", "B20", "B21", "B22", "B23", "B24"}},
	{SensitivityPSY, []string{"F20", "F21", "F22", "F23", "F24", "F25", "F30", "F31", "F32", "F33", "F40", "F41", "191736004", "35489007", "13746004"}},
	{SensitivityETH, []string{"F10", "F11", "F12", "F13", "F14", "F15", "F16", "F17", "F18", "F19", "7200002", "66214007"}},
	{SensitivitySDV, []string{"T74", "T76", "Y07", "95930005"}},
	{SensitivitySEX, []string{"A50", "A51", "A52", "A53", "A54", "A55", "A56", "8098009"}},
	{SensitivityGenetic, []string{"Z13.7", "405824009"}},
	{SensitivityReproductive, []string{"O00", "O01", "O02", "O03", "O04", "O05", "O06", "O07", "O08", "Z30", "Z31", "Z32", "Z33", "Z34", "Z35", "Z36", "Z37", "77386006"}},
}

// labelCategories maps explicit security or tag codes, aliases included, to
// a sensitivity category.
var labelCategories = map[string]string{
	"HIV":     SensitivityHIV,
	"PSY":     SensitivityPSY,
	"ETH":     SensitivityETH,
	"SDV":     SensitivitySDV,
	"SEX":     SensitivitySEX,
	"GENETIC": SensitivityGenetic,
	"SOC":     SensitivitySDV,
	"MENCAT":  SensitivityPSY,
	"STD":     SensitivitySEX,
	"SUD":     SensitivityETH,
}

var requiredRoles = map[string][]string{
	SensitivityHIV:     {"infectious-disease-specialist", "hiv-care-provider"},
	SensitivityPSY:     {"psychiatrist", "psychologist", "mental-health-provider"},
	SensitivityETH:     {"addiction-specialist", "substance-abuse-counselor"},
	SensitivitySDV:     {"social-worker", "forensic-specialist"},
	SensitivityGenetic: {"genetic-counselor", "geneticist"},
}

var defaultMasking = map[string]MaskOptions{
	fhir.LabelUnrestricted:   {Style: MaskFull},
	fhir.LabelLow:            {Style: MaskFull},
	fhir.LabelModerate:       {Style: MaskFull},
	fhir.LabelNormal:         {Style: MaskFull},
	fhir.LabelRestricted:     {Style: MaskPartial, VisibleChars: 2, ShowIndicator: true},
	fhir.LabelVeryRestricted: {Style: MaskRedact, MaskText: "[極機密資料]", ShowIndicator: true},
}

type levelFields struct {
	restricted     []string
	veryRestricted []string
}

var personFields = levelFields{
	restricted:     []string{"name", "identifier", "telecom", "address", "contact"},
	veryRestricted: []string{"name", "identifier", "telecom", "address", "contact", "birthDate", "photo", "text"},
}

var clinicalFields = levelFields{
	restricted:     []string{"note", "valueString"},
	veryRestricted: []string{"note", "valueString", "valueCodeableConcept", "text"},
}

// maskedFieldsByType lists the fields hidden per resource type. Unlisted
// types use personFields.
var maskedFieldsByType = map[string]levelFields{
	"Patient":           personFields,
	"Practitioner":      personFields,
	"RelatedPerson":     personFields,
	"Person":            personFields,
	"Observation":       clinicalFields,
	"Condition":         clinicalFields,
	"MedicationRequest": clinicalFields,
	"DiagnosticReport":  clinicalFields,
	"Procedure":         clinicalFields,
}

// ConfidentialityDisplay returns the display names for a confidentiality code.
func ConfidentialityDisplay(code string) (Display, bool) {
	d, ok := confidentialityDisplay[code]
	return d, ok
}

// SensitivityDisplay returns the display names for a sensitivity category.
func SensitivityDisplay(category string) (Display, bool) {
	d, ok := sensitivityDisplay[category]
	return d, ok
}

// SensitivityIcon returns the badge icon for a category, "" when none.
func SensitivityIcon(category string) string {
	return sensitivityIcons[category]
}

// DisplayConfig exposes both display tables.
func DisplayConfig() map[string]map[string]Display {
	conf := make(map[string]Display, len(confidentialityDisplay))
	for k, v := range confidentialityDisplay {
		conf[k] = v
	}
	sens := make(map[string]Display, len(sensitivityDisplay))
	for k, v := range sensitivityDisplay {
		sens[k] = v
	}
	return map[string]map[string]Display{"confidentiality": conf, "sensitivity": sens}
}
