package feedback

import (
	"fmt"
	"strings"
	"time"

	"github.com/medcalc/medcalc/internal/platform/dom"
)

type fieldState int

const (
	// stateMissing fields are listed in the summary and awaiting input.
	stateMissing fieldState = iota
	stateFilled
)

func (s fieldState) String() string {
	if s == stateFilled {
		return "filled"
	}
	return "missing"
}

const allEnteredTitle = "All required data has been entered"

type trackedField struct {
	item  MissingItem
	input *dom.Element
	state fieldState
}

// registry owns every listener and timer installed by one
// SetupDynamicTracking call. teardown releases all of them.
type registry struct {
	f         *Feedback
	doc       *dom.Document
	container *dom.Element
	fields    []*trackedField
	listeners []dom.ListenerID
	timers    []dom.Timer
	closed    bool
}

// SetupDynamicTracking keeps the summary banner in step with the user
// filling in missing fields. Filling a field removes its summary entry,
// clearing it adds the entry back, and once nothing is missing the banner
// turns to success and hides itself. Each call replaces the previous
// registration.
func (f *Feedback) SetupDynamicTracking(container *dom.Element, missing []MissingItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registry != nil {
		f.registry.teardown()
		f.registry = nil
	}
	if container == nil {
		return
	}

	r := &registry{f: f, doc: container.Owner(), container: container}
	seen := map[string]bool{}
	for _, m := range missing {
		m = Field(m.ID, m.Label)
		if !m.IsField() || seen[m.ID] {
			continue
		}
		input := container.QuerySelector("#" + m.ID)
		if input == nil {
			continue
		}
		seen[m.ID] = true
		tf := &trackedField{item: m, input: input, state: stateMissing}
		r.fields = append(r.fields, tf)
		handler := func(dom.Event) { r.onChange(tf) }
		r.listeners = append(r.listeners,
			input.AddEventListener(dom.EventInput, handler),
			input.AddEventListener(dom.EventChange, handler),
		)
	}
	if len(r.fields) == 0 {
		return
	}
	f.registry = r
	f.logger.Debug().Int("fields", len(r.fields)).Msg("dynamic tracking installed")
}

// StopDynamicTracking removes the current registration, if any.
func (f *Feedback) StopDynamicTracking() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registry != nil {
		f.registry.teardown()
		f.registry = nil
	}
}

// TrackedFields returns the tracked field ids and their state, for
// diagnostics and tests.
func (f *Feedback) TrackedFields() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	if f.registry == nil {
		return out
	}
	for _, tf := range f.registry.fields {
		out[tf.item.ID] = tf.state.String()
	}
	return out
}

func (r *registry) teardown() {
	r.closed = true
	for _, id := range r.listeners {
		r.doc.RemoveEventListener(id)
	}
	for _, t := range r.timers {
		t.Stop()
	}
	r.listeners = nil
	r.timers = nil
}

func (r *registry) schedule(delay time.Duration, fn func()) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.closed {
		return
	}
	r.timers = append(r.timers, r.doc.AfterFunc(delay, func() {
		r.f.mu.Lock()
		closed := r.closed
		r.f.mu.Unlock()
		if !closed {
			fn()
		}
	}))
}

func (r *registry) onChange(tf *trackedField) {
	r.f.mu.Lock()
	if r.closed {
		r.f.mu.Unlock()
		return
	}
	filled := strings.TrimSpace(tf.input.Value()) != ""
	prev := tf.state
	if filled {
		tf.state = stateFilled
	} else {
		tf.state = stateMissing
	}
	r.f.mu.Unlock()

	if prev == tf.state {
		return
	}
	summary := r.ensureSummary()
	if filled {
		r.dropItem(summary, tf)
	} else {
		r.restoreItem(summary, tf)
	}
	r.refresh(summary)
}

func (r *registry) missingItems() []MissingItem {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []MissingItem
	for _, tf := range r.fields {
		if tf.state == stateMissing {
			out = append(out, tf.item)
		}
	}
	return out
}

// ensureSummary returns the summary banner, recreating it from the current
// field states when it was removed.
func (r *registry) ensureSummary() *dom.Element {
	if s := r.container.QuerySelector("#" + summaryID); s != nil {
		return s
	}
	return r.f.CreateDataSummary(r.container, Summary{Missing: r.missingItems()})
}

func itemSelector(id string) string {
	return fmt.Sprintf(`li[data-field-id=%q]`, id)
}

// dropItem fades the field's entry and removes it after 300ms unless the
// field went back to missing in the meantime.
func (r *registry) dropItem(summary *dom.Element, tf *trackedField) {
	li := summary.QuerySelector(itemSelector(tf.item.ID))
	if li == nil {
		return
	}
	li.SetStyle("opacity", "0")
	r.schedule(removeDelay, func() {
		r.f.mu.Lock()
		still := tf.state == stateFilled
		r.f.mu.Unlock()
		if still {
			li.Remove()
		}
	})
}

func (r *registry) restoreItem(summary *dom.Element, tf *trackedField) {
	if li := summary.QuerySelector(itemSelector(tf.item.ID)); li != nil {
		li.SetStyle("opacity", "")
		return
	}
	list := summary.QuerySelector(".missing-list")
	if list == nil {
		content := summary.QuerySelector(".content")
		if content == nil {
			return
		}
		block := r.doc.CreateElement("div")
		if err := block.SetInnerHTML(missingBlock(nil)); err != nil {
			return
		}
		details := block.FirstElementChild()
		content.AppendChild(details)
		list = details.QuerySelector(".missing-list")
	}
	li := r.doc.CreateElement("li")
	li.SetAttr("data-field-id", tf.item.ID)
	li.SetText(tf.item.Label)
	list.AppendChild(li)
}

// refresh sets the banner state from the remaining missing fields. A banner
// that reaches success hides itself after three seconds unless its state
// changed again.
func (r *registry) refresh(summary *dom.Element) {
	remaining := len(r.missingItems())
	if remaining > 0 {
		if !summary.HasClass(string(StatusError)) {
			setSummaryState(summary, StatusWarning, statusTitles[StatusWarning])
		}
		return
	}
	if summary.HasClass(string(StatusError)) {
		return
	}
	setSummaryState(summary, StatusSuccess, allEnteredTitle)
	r.f.logger.Debug().Msg("all missing fields entered")
	r.schedule(summaryHide, func() {
		if !summary.IsConnected() || !summary.HasClass(string(StatusSuccess)) {
			return
		}
		summary.SetStyle("opacity", "0")
		r.doc.AfterFunc(removeDelay, summary.Remove)
	})
}

func setSummaryState(summary *dom.Element, status Status, title string) {
	summary.RemoveClass(string(StatusSuccess), string(StatusWarning), string(StatusError))
	summary.AddClass(string(status))
	if icon := summary.QuerySelector(".icon"); icon != nil {
		icon.SetText(statusIcons[status])
	}
	if t := summary.QuerySelector(".title"); t != nil {
		t.SetText(title)
	}
}
