package feedback

import (
	"fmt"
	"html"
	"strings"
)

// MissingItem is an entry of the "please enter manually" list. It is either
// a bare label or a field with the id of its input.
type MissingItem struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
}

// Label makes a label-only item.
func Label(label string) MissingItem { return MissingItem{Label: label} }

// Field makes an item bound to an input id. A leading "#" is dropped.
func Field(id, label string) MissingItem {
	return MissingItem{ID: strings.TrimPrefix(id, "#"), Label: label}
}

// IsField reports whether the item names an input.
func (m MissingItem) IsField() bool { return m.ID != "" }

func (m MissingItem) listItem() string {
	if !m.IsField() {
		return "<li>" + html.EscapeString(m.Label) + "</li>"
	}
	return fmt.Sprintf(`<li data-field-id="%s">%s</li>`, html.EscapeString(m.ID), html.EscapeString(m.Label))
}

// Summary is the outcome of a population batch.
type Summary struct {
	Loaded  []string      `json:"loaded"`
	Missing []MissingItem `json:"missing"`
	Failed  []string      `json:"failed"`
}

// Status is the summary banner state.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

var statusIcons = map[Status]string{
	StatusSuccess: "✓",
	StatusWarning: "⚠️",
	StatusError:   "❌",
}

var statusTitles = map[Status]string{
	StatusSuccess: "Patient data loaded successfully",
	StatusWarning: "Some patient data is missing",
	StatusError:   "Error loading some patient data",
}

// Status is error when anything failed, else warning when anything is
// missing, else success.
func (s Summary) Status() Status {
	switch {
	case len(s.Failed) > 0:
		return StatusError
	case len(s.Missing) > 0:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

// MissingIDs returns the input ids of field items.
func (s Summary) MissingIDs() []string {
	var ids []string
	for _, m := range s.Missing {
		if m.IsField() {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
