// Package feedback renders FHIR loading status into calculator forms:
// per-field indicators, a loading banner, a data summary banner and live
// tracking of fields the user still has to fill in.
package feedback

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/dom"
)

const (
	successFade   = 5000 * time.Millisecond
	removeDelay   = 300 * time.Millisecond
	summaryHide   = 3000 * time.Millisecond
	styleID       = "fhir-feedback-styles"
	bannerID      = "fhir-loading-banner"
	summaryID     = "fhir-data-summary"
	sectionSel    = ".ui-section, .section"
	wrapperClass  = "fhir-feedback-wrapper"
	indicatorSel  = ".fhir-feedback-indicator"
	defaultBanner = "Loading patient data from EHR..."
)

// Kind is an indicator or inline message flavour.
type Kind string

const (
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

var fieldIcons = map[Kind]string{
	KindSuccess: "✓",
	KindWarning: "⚠️",
	KindInfo:    "ℹ️",
}

type Feedback struct {
	logger zerolog.Logger

	mu       sync.Mutex
	registry *registry
}

func New(logger zerolog.Logger) *Feedback {
	return &Feedback{logger: logger.With().Str("component", "feedback").Logger()}
}

// InjectStyles adds the feedback stylesheet once per document.
func (f *Feedback) InjectStyles(doc *dom.Document) {
	if doc == nil || doc.GetElementByID(styleID) != nil {
		return
	}
	parent := doc.Head()
	if parent == nil {
		parent = doc.Body()
	}
	if parent == nil {
		return
	}
	el := doc.CreateElement("style")
	el.SetAttr("id", styleID)
	el.SetText(styles)
	parent.AppendChild(el)
}

// =========== Field Indicators ===========

func (f *Feedback) ShowLoading(input *dom.Element, label string) {
	f.indicate(input, KindLoading, "⏳", fmt.Sprintf("Loading %s from EHR...", orData(label)))
}

// ShowSuccess marks a loaded field. The indicator fades after five seconds.
func (f *Feedback) ShowSuccess(input *dom.Element, label, value string) {
	tip := fmt.Sprintf("✓ %s loaded from EHR", orData(label))
	if value != "" {
		tip += ": " + value
	}
	ind := f.indicate(input, KindSuccess, "✓", tip)
	if ind == nil {
		return
	}
	doc := input.Owner()
	doc.AfterFunc(successFade, func() {
		if !ind.IsConnected() {
			return
		}
		ind.SetStyle("opacity", "0")
		doc.AfterFunc(removeDelay, ind.Remove)
	})
}

// ShowWarning marks a field with no EHR data. The first input or change on
// the field removes the warning and its entry in the summary banner.
func (f *Feedback) ShowWarning(input *dom.Element, label, message string) {
	if message == "" {
		message = fmt.Sprintf("⚠️ No %s found in EHR. Please enter manually.", orData(label))
	}
	ind := f.indicate(input, KindWarning, "⚠️", message)
	if ind == nil {
		return
	}
	doc := input.Owner()
	var ids [2]dom.ListenerID
	dismiss := func(dom.Event) {
		doc.RemoveEventListener(ids[0])
		doc.RemoveEventListener(ids[1])
		ind.Remove()
		removeSummaryItem(doc, input.ID(), label)
	}
	ids[0] = input.AddEventListener(dom.EventInput, dismiss)
	ids[1] = input.AddEventListener(dom.EventChange, dismiss)
}

// ShowError marks a field whose load failed. A nil err shows a generic message.
func (f *Feedback) ShowError(input *dom.Element, label string, err error) {
	msg := "Failed to load from EHR"
	if err != nil {
		msg = err.Error()
	}
	f.indicate(input, KindError, "❌", fmt.Sprintf("❌ %s: %s", orData(label), msg))
}

func (f *Feedback) ShowInfo(input *dom.Element, message string) {
	f.indicate(input, KindInfo, "ℹ️", message)
}

func (f *Feedback) indicate(input *dom.Element, kind Kind, icon, tooltip string) *dom.Element {
	if input == nil {
		return nil
	}
	f.InjectStyles(input.Owner())
	removeIndicators(input)
	wrapper := ensureWrapper(input)

	ind := input.Owner().CreateElement("div")
	ind.SetClassName("fhir-feedback-indicator fhir-status-" + string(kind))
	markup := fmt.Sprintf(`<span>%s</span><div class="fhir-feedback-tooltip">%s</div>`, icon, html.EscapeString(tooltip))
	if err := ind.SetInnerHTML(markup); err != nil {
		f.logger.Warn().Err(err).Msg("render indicator")
	}
	wrapper.AppendChild(ind)
	return ind
}

// ensureWrapper returns the positioning wrapper of input, reusing a
// .ui-input-wrapper or wrapping the input in a new div.
func ensureWrapper(input *dom.Element) *dom.Element {
	if w := input.Closest("." + wrapperClass); w != nil {
		return w
	}
	if w := input.Closest(".ui-input-wrapper"); w != nil {
		w.AddClass(wrapperClass)
		return w
	}
	w := input.Owner().CreateElement("div")
	w.SetClassName(wrapperClass)
	if p := input.Parent(); p != nil {
		p.InsertBefore(w, input)
	}
	w.AppendChild(input)
	return w
}

func removeIndicators(input *dom.Element) {
	w := input.Closest("." + wrapperClass + ", .ui-input-wrapper")
	if w == nil {
		return
	}
	for _, ind := range w.QuerySelectorAll(indicatorSel) {
		ind.Remove()
	}
}

// AddFieldFeedback puts an inline message under an input. Inputs outside a
// .ui-input-group are left alone.
func (f *Feedback) AddFieldFeedback(input *dom.Element, message string, kind Kind) {
	if input == nil {
		return
	}
	group := input.Closest(".ui-input-group")
	if group == nil {
		return
	}
	if _, ok := fieldIcons[kind]; !ok {
		kind = KindInfo
	}
	if old := group.QuerySelector(".fhir-field-feedback"); old != nil {
		old.Remove()
	}
	el := input.Owner().CreateElement("div")
	el.SetClassName("fhir-field-feedback " + string(kind))
	markup := fmt.Sprintf(`<span class="icon">%s</span><span>%s</span>`, fieldIcons[kind], html.EscapeString(message))
	if err := el.SetInnerHTML(markup); err != nil {
		f.logger.Warn().Err(err).Msg("render field feedback")
	}
	anchor := input.Closest(".ui-input-wrapper")
	if anchor == nil {
		anchor = input.Closest("." + wrapperClass)
	}
	if anchor == nil {
		anchor = input
	}
	anchor.After(el)
}

// =========== Banners ===========

// CreateLoadingBanner replaces any loading banner in container with a new
// one placed before the first section.
func (f *Feedback) CreateLoadingBanner(container *dom.Element, message string) *dom.Element {
	if container == nil {
		return nil
	}
	if message == "" {
		message = defaultBanner
	}
	f.InjectStyles(container.Owner())
	if old := container.QuerySelector("#" + bannerID); old != nil {
		old.Remove()
	}
	banner := container.Owner().CreateElement("div")
	banner.SetClassName("fhir-loading-banner")
	banner.SetAttr("id", bannerID)
	if err := banner.SetInnerHTML(`<div class="spinner"></div><span>` + html.EscapeString(message) + `</span>`); err != nil {
		f.logger.Warn().Err(err).Msg("render loading banner")
	}
	placeFirst(container, banner)
	return banner
}

// RemoveLoadingBanner fades the banner out and removes it 300ms later.
func (f *Feedback) RemoveLoadingBanner(container *dom.Element) {
	if container == nil {
		return
	}
	banner := container.QuerySelector("#" + bannerID)
	if banner == nil {
		return
	}
	banner.SetStyle("opacity", "0")
	container.Owner().AfterFunc(removeDelay, banner.Remove)
}

func placeFirst(container, el *dom.Element) {
	if sec := container.QuerySelector(sectionSel); sec != nil {
		if p := sec.Parent(); p != nil {
			p.InsertBefore(el, sec)
			return
		}
	}
	container.Prepend(el)
}

// CreateDataSummary renders summary as the single summary banner of
// container, replacing any previous one.
func (f *Feedback) CreateDataSummary(container *dom.Element, summary Summary) *dom.Element {
	if container == nil {
		return nil
	}
	f.InjectStyles(container.Owner())
	f.RemoveDataSummary(container)

	el := container.Owner().CreateElement("div")
	el.SetAttr("id", summaryID)
	status := summary.Status()
	el.SetClassName("fhir-data-summary " + string(status))

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="icon">%s</div><div class="content"><div class="title">%s</div>`,
		statusIcons[status], html.EscapeString(statusTitles[status]))
	if len(summary.Loaded) > 0 {
		fmt.Fprintf(&b, `<div class="details">Loaded: %s</div>`, html.EscapeString(strings.Join(summary.Loaded, ", ")))
	}
	if len(summary.Missing) > 0 {
		b.WriteString(missingBlock(summary.Missing))
	}
	if len(summary.Failed) > 0 {
		b.WriteString(`<div class="details"><strong>Failed to load:</strong><ul class="failed-list">`)
		for _, label := range summary.Failed {
			b.WriteString("<li>" + html.EscapeString(label) + "</li>")
		}
		b.WriteString(`</ul></div>`)
	}
	b.WriteString(`</div>`)

	if err := el.SetInnerHTML(b.String()); err != nil {
		f.logger.Warn().Err(err).Msg("render data summary")
	}
	placeFirst(container, el)
	return el
}

func missingBlock(items []MissingItem) string {
	var b strings.Builder
	b.WriteString(`<div class="details missing-details"><strong>Please enter manually:</strong><ul class="missing-list">`)
	for _, it := range items {
		b.WriteString(it.listItem())
	}
	b.WriteString(`</ul></div>`)
	return b.String()
}

func (f *Feedback) RemoveDataSummary(container *dom.Element) {
	if container == nil {
		return
	}
	if s := container.QuerySelector("#" + summaryID); s != nil {
		s.Remove()
	}
}

// removeSummaryItem drops the summary entry for a field, matching on
// data-field-id or, for label-only entries, on the label text. An emptied
// summary is removed.
func removeSummaryItem(doc *dom.Document, fieldID, label string) {
	summary := doc.GetElementByID(summaryID)
	if summary == nil {
		return
	}
	list := summary.QuerySelector(".missing-list")
	if list == nil {
		return
	}
	var item *dom.Element
	if fieldID != "" {
		item = list.QuerySelector(fmt.Sprintf(`li[data-field-id=%q]`, fieldID))
	}
	if item == nil {
		for _, li := range list.QuerySelectorAll("li") {
			if !li.HasAttr("data-field-id") && strings.Contains(li.Text(), label) {
				item = li
				break
			}
		}
	}
	if item == nil {
		return
	}
	item.Remove()
	if len(list.Children()) == 0 {
		summary.Remove()
	}
}

func orData(label string) string {
	if label == "" {
		return "data"
	}
	return label
}

const styles = `.fhir-feedback-wrapper { position: relative; }
.fhir-feedback-indicator { position: absolute; top: 50%; right: -30px; transform: translateY(-50%); font-size: 18px; cursor: help; z-index: 10; transition: all 0.3s ease; }
.fhir-feedback-tooltip { position: absolute; top: 50%; right: -35px; background: #2c3e50; color: white; padding: 8px 12px; border-radius: 6px; font-size: 0.85em; white-space: nowrap; opacity: 0; pointer-events: none; transition: opacity 0.3s ease; z-index: 1000; }
.fhir-feedback-indicator:hover .fhir-feedback-tooltip { opacity: 1; }
.fhir-status-loading { animation: fhir-pulse 1.5s ease-in-out infinite; }
.fhir-status-success { color: #28a745; transition: opacity 0.3s ease; }
.fhir-status-warning { color: #ffc107; }
.fhir-status-error { color: #dc3545; }
.fhir-status-info { color: #17a2b8; }
.fhir-loading-banner { display: flex; align-items: center; gap: 12px; padding: 12px 16px; margin-bottom: 16px; border-radius: 8px; background: #e3f2fd; transition: opacity 0.3s ease; }
.fhir-loading-banner .spinner { width: 20px; height: 20px; border: 3px solid #bbdefb; border-top-color: #1976d2; border-radius: 50%; animation: fhir-spin 1s linear infinite; }
.fhir-data-summary { display: flex; gap: 12px; padding: 12px 16px; margin-bottom: 16px; border-radius: 8px; transition: opacity 0.3s ease; }
.fhir-data-summary.success { background: #d4edda; color: #155724; }
.fhir-data-summary.warning { background: #fff3cd; color: #856404; }
.fhir-data-summary.error { background: #f8d7da; color: #721c24; }
.fhir-data-summary .missing-list li { transition: opacity 0.3s ease; }
.fhir-field-feedback { display: flex; gap: 6px; margin-top: 6px; padding: 6px 10px; border-radius: 4px; font-size: 0.85em; }
.fhir-field-feedback.success { background: #d4edda; color: #155724; }
.fhir-field-feedback.warning { background: #fff3cd; color: #856404; }
.fhir-field-feedback.info { background: #d1ecf1; color: #0c5460; }
@keyframes fhir-spin { to { transform: rotate(360deg); } }
@keyframes fhir-pulse { 0%, 100% { opacity: 1; } 50% { opacity: 0.5; } }
@media (max-width: 768px) { .fhir-feedback-indicator { right: -25px; font-size: 16px; } .fhir-feedback-tooltip { font-size: 0.8em; max-width: 200px; white-space: normal; } }`
