package units

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/medcalc/medcalc/internal/platform/dom"
)

// Attribute names written on enhanced inputs and their toggle buttons.
const (
	AttrCurrentUnit   = "data-current-unit"
	AttrUnits         = "data-units"
	AttrType          = "data-type"
	AttrUnit          = "data-unit"
	AttrUnitType      = "data-unit-type"
	AttrOriginalValue = "data-original-value"
	AttrOriginalUnit  = "data-original-unit"

	wrapperClass = "unit-converter-wrapper"
	toggleClass  = "unit-toggle-btn"
)

// FormatFixed renders v with exactly places decimals.
func FormatFixed(v float64, places int) string {
	return decimal.NewFromFloat(v).StringFixed(int32(places))
}

// EnhanceInput wraps input in a unit converter with a toggle button cycling
// through units. Enhancing twice returns the existing wrapper.
func EnhanceInput(input *dom.Element, measurementType string, unitList []string, defaultUnit string) *dom.Element {
	if p := input.Parent(); p != nil && p.HasClass(wrapperClass) {
		return p
	}
	if len(unitList) == 0 {
		return nil
	}
	if defaultUnit == "" {
		defaultUnit = unitList[0]
	}
	doc := input.Owner()

	wrapper := doc.CreateElement("div")
	wrapper.SetClassName(wrapperClass)
	wrapper.SetStyle("display", "inline-flex")
	wrapper.SetStyle("align-items", "center")
	wrapper.SetStyle("gap", "5px")
	if p := input.Parent(); p != nil {
		p.InsertBefore(wrapper, input)
	}
	wrapper.AppendChild(input)

	unitsJSON, _ := json.Marshal(unitList)
	btn := doc.CreateElement("button")
	btn.SetAttr("type", "button")
	btn.SetClassName(toggleClass)
	btn.SetAttr(AttrCurrentUnit, defaultUnit)
	btn.SetAttr(AttrUnits, string(unitsJSON))
	btn.SetAttr(AttrType, measurementType)
	btn.SetAttr("title", fmt.Sprintf("Click to switch units (%s)", strings.Join(unitList, " ↔ ")))
	btn.SetText(defaultUnit)
	wrapper.AppendChild(btn)

	input.SetAttr(AttrCurrentUnit, defaultUnit)

	idx := indexOf(unitList, defaultUnit)
	btn.AddEventListener(dom.EventClick, func(dom.Event) {
		oldUnit := unitList[idx]
		idx = (idx + 1) % len(unitList)
		newUnit := unitList[idx]

		if v, err := strconv.ParseFloat(strings.TrimSpace(input.Value()), 64); err == nil {
			if converted := Convert(v, oldUnit, newUnit, measurementType); converted != nil {
				input.SetValue(FormatFixed(*converted, DecimalPlaces(measurementType, newUnit)))
				input.SetAttr(AttrCurrentUnit, newUnit)
			}
		}
		btn.SetText(newUnit)
		btn.SetAttr(AttrCurrentUnit, newUnit)
		input.Dispatch(dom.EventInput)
	})
	return wrapper
}

// CurrentUnit reports the unit the input is displaying: the toggle button of
// an enhanced input, else a data-unit attribute.
func CurrentUnit(input *dom.Element) string {
	if btn := toggleFor(input); btn != nil {
		return btn.Attr(AttrCurrentUnit)
	}
	return input.Attr(AttrUnit)
}

func measurementTypeOf(input *dom.Element) string {
	if btn := toggleFor(input); btn != nil {
		return btn.Attr(AttrType)
	}
	return input.Attr(AttrUnitType)
}

func toggleFor(input *dom.Element) *dom.Element {
	w := input.Closest("." + wrapperClass)
	if w == nil {
		return nil
	}
	return w.QuerySelector("." + toggleClass)
}

// SetInputValue writes value, given in unit, into input. When the input
// displays a different unit of a known type the value is converted first;
// on a failed conversion the raw value is written. The original value and
// unit are recorded on the element and an input event is dispatched.
func SetInputValue(input *dom.Element, value float64, unit string) {
	if input == nil {
		return
	}
	current := CurrentUnit(input)
	mt := measurementTypeOf(input)

	text := strconv.FormatFloat(value, 'f', -1, 64)
	if current != "" && unit != "" && current != unit && mt != "" {
		if converted := Convert(value, unit, current, mt); converted != nil {
			text = FormatFixed(*converted, DecimalPlaces(mt, current))
		}
	}
	input.SetValue(text)
	input.SetAttr(AttrOriginalValue, strconv.FormatFloat(value, 'f', -1, 64))
	if unit != "" {
		input.SetAttr(AttrOriginalUnit, unit)
	}
	input.Dispatch(dom.EventInput)
}

// GetInputValue parses the input's numeric value. ok is false for blank or
// non-numeric values.
func GetInputValue(input *dom.Element) (float64, bool) {
	if input == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(input.Value()), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// GetStandardValue reads the input and converts it to standardUnit. Values
// that cannot be converted are returned as displayed.
func GetStandardValue(input *dom.Element, standardUnit string) (float64, bool) {
	v, ok := GetInputValue(input)
	if !ok {
		return 0, false
	}
	current := CurrentUnit(input)
	mt := measurementTypeOf(input)
	if current == "" || mt == "" {
		return v, true
	}
	if converted := Convert(v, current, standardUnit, mt); converted != nil {
		return *converted, true
	}
	return v, true
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}
