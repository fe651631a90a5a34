// Package staleness flags auto-populated values whose source observation is
// older than a threshold and renders a warning list into the form.
package staleness

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/domain/terminology"
	"github.com/medcalc/medcalc/internal/platform/dom"
	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/telemetry"
)

const (
	DefaultThreshold   = 90 * 24 * time.Hour
	DefaultContainerID = "staleness-warnings"

	containerClass = "staleness-warning-container"
	styleID        = "staleness-warning-styles"
	dateLayout     = "Jan 2, 2006"
	day            = 24 * time.Hour
)

// Info describes the age of one observation.
type Info struct {
	IsStale      bool      `json:"isStale"`
	Date         time.Time `json:"date"`
	DateStr      string    `json:"dateStr"`
	AgeInDays    int       `json:"ageInDays"`
	AgeFormatted string    `json:"ageFormatted"`
}

// Item is a tracked stale field.
type Item struct {
	FieldID      string    `json:"fieldId"`
	Code         string    `json:"code"`
	Label        string    `json:"label"`
	Date         time.Time `json:"date"`
	DateStr      string    `json:"dateStr"`
	AgeInDays    int       `json:"ageInDays"`
	AgeFormatted string    `json:"ageFormatted"`
}

type Option func(*Tracker)

func WithThreshold(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.threshold = d
		}
	}
}

func WithContainerID(id string) Option {
	return func(t *Tracker) {
		if id != "" {
			t.containerID = id
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// Tracker keeps the stale fields of one form in insertion order.
type Tracker struct {
	mu          sync.Mutex
	threshold   time.Duration
	containerID string
	container   *dom.Element
	items       map[string]Item
	order       []string
	now         func() time.Time
	logger      zerolog.Logger
	metrics     *telemetry.Metrics
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		threshold:   DefaultThreshold,
		containerID: DefaultContainerID,
		items:       make(map[string]Item),
		now:         time.Now,
		logger:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tracker) Threshold() time.Duration { return t.threshold }

// SetContainer binds the form root and makes sure the warning container
// exists: right after .calculator-header when present, else first child.
func (t *Tracker) SetContainer(container *dom.Element) {
	t.mu.Lock()
	t.container = container
	t.mu.Unlock()
	if container == nil {
		return
	}
	injectStyles(container.Owner())
	if container.QuerySelector("#"+t.containerID) != nil {
		return
	}
	doc := container.Owner()
	warn := doc.CreateElement("div")
	warn.SetAttr("id", t.containerID)
	warn.SetClassName(containerClass)
	if header := container.QuerySelector(".calculator-header"); header != nil && header.NextElementSibling() != nil {
		header.After(warn)
		return
	}
	container.Prepend(warn)
}

// Check computes staleness for obs. Nil when obs carries no usable date.
func (t *Tracker) Check(obs *fhir.Observation) *Info {
	date, ok := ObservationDate(obs)
	if !ok {
		return nil
	}
	age := t.now().Sub(date)
	days := int(age / day)
	return &Info{
		IsStale:      age > t.threshold,
		Date:         date,
		DateStr:      date.Format(dateLayout),
		AgeInDays:    days,
		AgeFormatted: FormatAge(days),
	}
}

// TrackObservation records fieldID as stale when obs is past the threshold
// and forgets it otherwise. The label falls back to the LOINC name, then the
// code itself.
func (t *Tracker) TrackObservation(fieldID string, obs *fhir.Observation, code, label string) *Info {
	info := t.Check(obs)

	t.mu.Lock()
	_, tracked := t.items[fieldID]
	changed := false
	switch {
	case info != nil && info.IsStale:
		if label == "" {
			label = terminology.GetLoincName(code)
		}
		if label == "" {
			label = code
		}
		if !tracked {
			t.order = append(t.order, fieldID)
		}
		t.items[fieldID] = Item{
			FieldID:      fieldID,
			Code:         code,
			Label:        titleCase(label),
			Date:         info.Date,
			DateStr:      info.DateStr,
			AgeInDays:    info.AgeInDays,
			AgeFormatted: info.AgeFormatted,
		}
		changed = true
		t.logger.Debug().Str("field", fieldID).Str("code", code).Int("age_days", info.AgeInDays).Msg("stale observation")
	case tracked:
		t.removeLocked(fieldID)
		changed = true
	}
	t.mu.Unlock()

	if changed {
		t.render()
	}
	return info
}

func (t *Tracker) ClearField(fieldID string) {
	t.mu.Lock()
	_, ok := t.items[fieldID]
	if ok {
		t.removeLocked(fieldID)
	}
	t.mu.Unlock()
	if ok {
		t.render()
	}
}

func (t *Tracker) ClearAll() {
	t.mu.Lock()
	t.items = make(map[string]Item)
	t.order = nil
	t.mu.Unlock()
	t.render()
}

func (t *Tracker) StaleCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// StaleItems returns the tracked items in the order they were first flagged.
func (t *Tracker) StaleItems() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.itemsLocked()
}

func (t *Tracker) itemsLocked() []Item {
	out := make([]Item, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.items[id])
	}
	return out
}

func (t *Tracker) removeLocked(fieldID string) {
	delete(t.items, fieldID)
	for i, id := range t.order {
		if id == fieldID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *Tracker) render() {
	t.mu.Lock()
	container := t.container
	items := t.itemsLocked()
	t.mu.Unlock()

	t.metrics.SetStaleItems(len(items))
	if container == nil {
		return
	}
	warn := container.QuerySelector("#" + t.containerID)
	if warn == nil {
		return
	}
	if len(items) == 0 {
		_ = warn.SetInnerHTML("")
		warn.SetStyle("display", "none")
		return
	}
	warn.SetStyle("display", "block")

	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, `<li class="staleness-item" data-field="%s"><strong>%s</strong>: <span class="staleness-date">%s</span> <span class="staleness-age">(%s)</span></li>`,
			html.EscapeString(it.FieldID), html.EscapeString(it.Label),
			html.EscapeString(it.DateStr), html.EscapeString(it.AgeFormatted))
	}
	markup := `<div class="staleness-warning ui-alert ui-alert-warning">` +
		`<span class="ui-alert-icon">⚠️</span>` +
		`<div class="ui-alert-content"><strong>Stale Data Warning</strong>` +
		`<p style="margin: 8px 0 8px 0; font-size: 1.2rem;">The following auto-populated values are older than 3 months. Please verify if updates are needed:</p>` +
		`<ul class="staleness-list" style="margin: 0; padding-left: 20px;">` + b.String() + `</ul></div></div>`
	if err := warn.SetInnerHTML(markup); err != nil {
		t.logger.Warn().Err(err).Msg("render staleness warning")
	}
}

// ObservationDate returns the first date the observation carries, in the
// order effectiveDateTime, effectiveInstant, effectivePeriod.end,
// effectivePeriod.start, issued.
func ObservationDate(obs *fhir.Observation) (time.Time, bool) {
	return obs.ClinicalDate()
}

// IsStale reports whether obs is older than threshold at now. Observations
// without a date are never stale.
func IsStale(obs *fhir.Observation, threshold time.Duration, now time.Time) bool {
	date, ok := ObservationDate(obs)
	if !ok {
		return false
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return now.Sub(date) > threshold
}

// FormatAge renders an age in days as "1 year 2 months ago", "3 months ago"
// or "5 days ago". Years are 365 days and months 30.
func FormatAge(days int) string {
	switch {
	case days >= 365:
		years := days / 365
		months := (days % 365) / 30
		if months > 0 {
			return fmt.Sprintf("%s %s ago", plural(years, "year"), plural(months, "month"))
		}
		return plural(years, "year") + " ago"
	case days >= 30:
		return plural(days/30, "month") + " ago"
	default:
		return plural(days, "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}

func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

const styles = `.staleness-warning-container { margin: 10px 0 15px 0; }
.staleness-warning { animation: staleness-fade-in 0.3s ease-out; }
.staleness-list { list-style-type: disc; font-size: 1.25rem; }
.staleness-item { margin: 4px 0; line-height: 1.5; }
.staleness-date { color: #22d3ee; font-family: monospace; font-size: 1.25rem; }
.staleness-age { color: #06b6d4; font-size: 1.15rem; }
@keyframes staleness-fade-in { from { opacity: 0; transform: translateY(-10px); } to { opacity: 1; transform: translateY(0); } }`

func injectStyles(doc *dom.Document) {
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
