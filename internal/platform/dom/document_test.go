package dom

import (
	"strings"
	"testing"
	"time"
)

const form = `<div class="calculator-header"><h3>BMI</h3></div>
<div class="ui-section">
  <div class="ui-input-group">
    <div class="ui-input-wrapper"><input id="weight" type="number"></div>
  </div>
  <div class="ui-input-group">
    <input id="height" type="number" data-unit="cm">
  </div>
  <ul class="missing-list"><li data-field-id="weight">Weight</li></ul>
</div>`

func TestParse_Query(t *testing.T) {
	doc := MustParse(form)

	w := doc.QuerySelector("#weight")
	if w == nil {
		t.Fatal("expected #weight")
	}
	if w.TagName() != "input" {
		t.Errorf("expected input, got %s", w.TagName())
	}
	if doc.GetElementByID("height").Data("unit") != "cm" {
		t.Error("expected data-unit cm")
	}
	if got := len(doc.QuerySelectorAll(".ui-input-group input")); got != 2 {
		t.Errorf("expected 2 inputs, got %d", got)
	}
	if li := doc.QuerySelector(`li[data-field-id="weight"]`); li == nil || li.Text() != "Weight" {
		t.Error("expected missing-list item for weight")
	}
	if doc.QuerySelector(".ui-section, .section") == nil {
		t.Error("expected selector list to match")
	}
	if doc.QuerySelector("[[bad") != nil {
		t.Error("expected nil for an invalid selector")
	}
}

func TestElement_Closest(t *testing.T) {
	doc := MustParse(form)
	w := doc.QuerySelector("#weight")
	if g := w.Closest(".ui-input-group"); g == nil {
		t.Fatal("expected input group ancestor")
	}
	if w.Closest(".nope") != nil {
		t.Error("expected nil for no match")
	}
	if !w.Closest("input").Is(w) {
		t.Error("expected Closest to include self")
	}
}

func TestElement_Classes(t *testing.T) {
	doc := MustParse(`<div id="x" class="a b"></div>`)
	x := doc.QuerySelector("#x")
	x.AddClass("c", "a")
	if x.ClassName() != "a b c" {
		t.Errorf("expected 'a b c', got %q", x.ClassName())
	}
	x.RemoveClass("b")
	if x.HasClass("b") || !x.HasClass("c") {
		t.Errorf("unexpected classes %q", x.ClassName())
	}
}

func TestElement_Style(t *testing.T) {
	doc := MustParse(`<div id="x" style="color: red"></div>`)
	x := doc.QuerySelector("#x")
	x.SetStyle("opacity", "0")
	if x.Style("opacity") != "0" || x.Style("color") != "red" {
		t.Errorf("unexpected style %q", x.Attr("style"))
	}
	x.SetStyle("color", "")
	if x.Style("color") != "" {
		t.Errorf("expected color removed, got %q", x.Attr("style"))
	}
}

func TestElement_TreeEditing(t *testing.T) {
	doc := MustParse(form)
	section := doc.QuerySelector(".ui-section")
	banner := doc.CreateElement("div")
	banner.SetAttr("id", "banner")
	section.Parent().InsertBefore(banner, section)

	if !banner.IsConnected() {
		t.Fatal("expected banner attached")
	}
	if !banner.NextElementSibling().Is(section) {
		t.Error("expected banner directly before section")
	}

	note := doc.CreateElement("span")
	w := doc.QuerySelector("#weight")
	w.After(note)
	if !w.NextElementSibling().Is(note) {
		t.Error("expected note after input")
	}

	banner.Remove()
	if banner.IsConnected() || doc.QuerySelector("#banner") != nil {
		t.Error("expected banner removed")
	}
}

func TestElement_InnerHTML(t *testing.T) {
	doc := MustParse(`<div id="x"></div>`)
	x := doc.QuerySelector("#x")
	if err := x.SetInnerHTML(`<span class="icon">✓</span><strong>Done</strong>`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(x.Children()) != 2 {
		t.Fatalf("expected 2 children, got %d", len(x.Children()))
	}
	if x.Text() != "✓Done" {
		t.Errorf("unexpected text %q", x.Text())
	}
	if !strings.Contains(x.OuterHTML(), `class="icon"`) {
		t.Errorf("unexpected html %s", x.OuterHTML())
	}
}

func TestElement_Value(t *testing.T) {
	doc := MustParse(`<input id="a"><textarea id="b"></textarea>`)
	a, b := doc.QuerySelector("#a"), doc.QuerySelector("#b")
	a.SetValue("70.0")
	b.SetValue("note")
	if a.Value() != "70.0" || b.Value() != "note" {
		t.Errorf("unexpected values %q %q", a.Value(), b.Value())
	}
}

func TestDispatch_BubblesAndOnce(t *testing.T) {
	doc := MustParse(form)
	w := doc.QuerySelector("#weight")
	group := w.Closest(".ui-input-group")

	var got []string
	w.AddEventListener(EventInput, func(e Event) { got = append(got, "input:"+e.Target.ID()) })
	group.AddEventListener(EventInput, func(Event) { got = append(got, "group") })
	w.Once(EventInput, func(Event) { got = append(got, "once") })

	w.Dispatch(EventInput)
	w.Dispatch(EventInput)

	want := "input:weight,once,group,input:weight,group"
	if strings.Join(got, ",") != want {
		t.Errorf("expected %s, got %s", want, strings.Join(got, ","))
	}
}

func TestRemoveEventListener(t *testing.T) {
	doc := MustParse(form)
	w := doc.QuerySelector("#weight")
	calls := 0
	id := w.AddEventListener(EventChange, func(Event) { calls++ })
	doc.RemoveEventListener(id)
	w.Dispatch(EventChange)
	if calls != 0 {
		t.Errorf("expected 0 calls, got %d", calls)
	}
	if w.ListenerCount(EventChange) != 0 {
		t.Error("expected no listeners left")
	}
}

func TestDispatch_ListenerMayMutate(t *testing.T) {
	doc := MustParse(form)
	w := doc.QuerySelector("#weight")
	w.AddEventListener(EventInput, func(e Event) {
		e.Target.SetAttr("data-seen", "1")
		doc.QuerySelector(".missing-list").Remove()
	})
	w.Dispatch(EventInput)
	if w.Data("seen") != "1" || doc.QuerySelector(".missing-list") != nil {
		t.Error("expected listener mutations applied")
	}
}

func TestDocument_AfterFunc(t *testing.T) {
	sched := NewVirtualScheduler(time.Unix(0, 0))
	doc := MustParse(form, WithScheduler(sched))
	fired := false
	doc.AfterFunc(300*time.Millisecond, func() { fired = true })
	sched.Advance(299 * time.Millisecond)
	if fired {
		t.Fatal("fired early")
	}
	sched.Advance(time.Millisecond)
	if !fired {
		t.Error("expected callback after 300ms")
	}
}
