package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Element is a handle to an element node. Handles are cheap; two handles for
// the same node compare equal with Is.
type Element struct {
	doc *Document
	n   *html.Node
}

// Owner returns the document this element belongs to.
func (e *Element) Owner() *Document { return e.doc }

func (e *Element) Is(other *Element) bool {
	return e != nil && other != nil && e.n == other.n
}

func (e *Element) TagName() string { return e.n.Data }

func (e *Element) ID() string { return e.Attr("id") }

func (e *Element) Attr(key string) string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return getAttr(e.n, key)
}

func (e *Element) HasAttr(key string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, a := range e.n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func (e *Element) SetAttr(key, val string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.n, key, val)
}

func (e *Element) RemoveAttr(key string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	removeAttr(e.n, key)
}

// Data reads a data-* attribute.
func (e *Element) Data(key string) string { return e.Attr("data-" + key) }

func (e *Element) SetData(key, val string) { e.SetAttr("data-"+key, val) }

func (e *Element) ClassName() string { return e.Attr("class") }

func (e *Element) SetClassName(c string) { e.SetAttr("class", c) }

func (e *Element) HasClass(c string) bool {
	for _, f := range strings.Fields(e.ClassName()) {
		if f == c {
			return true
		}
	}
	return false
}

func (e *Element) AddClass(classes ...string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	fields := strings.Fields(getAttr(e.n, "class"))
	for _, c := range classes {
		if !contains(fields, c) {
			fields = append(fields, c)
		}
	}
	setAttr(e.n, "class", strings.Join(fields, " "))
}

func (e *Element) RemoveClass(classes ...string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	fields := strings.Fields(getAttr(e.n, "class"))
	kept := fields[:0]
	for _, f := range fields {
		if !contains(classes, f) {
			kept = append(kept, f)
		}
	}
	setAttr(e.n, "class", strings.Join(kept, " "))
}

// Value is the form value: textarea content, else the value attribute.
func (e *Element) Value() string {
	if e.n.Data == "textarea" {
		return e.Text()
	}
	return e.Attr("value")
}

func (e *Element) SetValue(v string) {
	if e.n.Data == "textarea" {
		e.SetText(v)
		return
	}
	e.SetAttr("value", v)
}

// Text returns the concatenated text of all descendants.
func (e *Element) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var sb strings.Builder
	walk(e.n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		return true
	})
	return sb.String()
}

// SetText replaces all children with a single text node.
func (e *Element) SetText(s string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	clearChildren(e.n)
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// SetInnerHTML replaces all children with the parsed fragment.
func (e *Element) SetInnerHTML(src string) error {
	nodes, err := html.ParseFragment(strings.NewReader(src), e.n)
	if err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	clearChildren(e.n)
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

func (e *Element) InnerHTML() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func (e *Element) OuterHTML() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, e.n)
	return buf.String()
}

// Style reads one inline style property.
func (e *Element) Style(prop string) string {
	for _, kv := range parseStyle(e.Attr("style")) {
		if kv[0] == prop {
			return kv[1]
		}
	}
	return ""
}

// SetStyle sets one inline style property; an empty value removes it.
func (e *Element) SetStyle(prop, val string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	decls := parseStyle(getAttr(e.n, "style"))
	out := decls[:0]
	replaced := false
	for _, kv := range decls {
		if kv[0] == prop {
			replaced = true
			if val == "" {
				continue
			}
			kv[1] = val
		}
		out = append(out, kv)
	}
	if !replaced && val != "" {
		out = append(out, [2]string{prop, val})
	}
	parts := make([]string, 0, len(out))
	for _, kv := range out {
		parts = append(parts, kv[0]+": "+kv[1])
	}
	if len(parts) == 0 {
		removeAttr(e.n, "style")
		return
	}
	setAttr(e.n, "style", strings.Join(parts, "; ")+";")
}

func (e *Element) Parent() *Element {
	e.doc.mu.Lock()
	p := e.n.Parent
	e.doc.mu.Unlock()
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(p)
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

func (e *Element) FirstElementChild() *Element {
	kids := e.Children()
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}

func (e *Element) NextElementSibling() *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for s := e.n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return e.doc.wrap(s)
		}
	}
	return nil
}

// IsConnected reports whether the element is attached to its document.
func (e *Element) IsConnected() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.n; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := other.n; n != nil; n = n.Parent {
		if n == e.n {
			return true
		}
	}
	return false
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	detach(child.n)
	e.n.AppendChild(child.n)
}

// Prepend inserts child as the first child.
func (e *Element) Prepend(child *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	detach(child.n)
	if e.n.FirstChild == nil {
		e.n.AppendChild(child.n)
		return
	}
	e.n.InsertBefore(child.n, e.n.FirstChild)
}

// InsertBefore inserts child before ref; a nil or foreign ref appends.
func (e *Element) InsertBefore(child, ref *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	detach(child.n)
	if ref == nil || ref.n.Parent != e.n {
		e.n.AppendChild(child.n)
		return
	}
	e.n.InsertBefore(child.n, ref.n)
}

// After inserts sibling directly after e. No-op when e is detached.
func (e *Element) After(sibling *Element) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	p := e.n.Parent
	if p == nil {
		return
	}
	detach(sibling.n)
	if e.n.NextSibling == nil {
		p.AppendChild(sibling.n)
		return
	}
	p.InsertBefore(sibling.n, e.n.NextSibling)
}

// Remove detaches e from its parent. Listeners stay registered and fire
// again if the element is re-attached.
func (e *Element) Remove() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	detach(e.n)
}

// QuerySelector returns the first descendant matching sel, or nil when
// nothing matches or sel is invalid.
func (e *Element) QuerySelector(sel string) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	s, err := e.doc.compile(sel)
	if err != nil {
		return nil
	}
	var found *html.Node
	for c := e.n.FirstChild; c != nil && found == nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if n.Type == html.ElementNode && s.Match(n) {
				found = n
				return false
			}
			return true
		})
	}
	return e.doc.wrap(found)
}

// QuerySelectorAll returns every descendant matching sel in document order.
func (e *Element) QuerySelectorAll(sel string) []*Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	s, err := e.doc.compile(sel)
	if err != nil {
		return nil
	}
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if n.Type == html.ElementNode && s.Match(n) {
				out = append(out, e.doc.wrap(n))
			}
			return true
		})
	}
	return out
}

// Matches reports whether e matches sel.
func (e *Element) Matches(sel string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	s, err := e.doc.compile(sel)
	if err != nil {
		return false
	}
	return s.Match(e.n)
}

// Closest returns e or its nearest ancestor matching sel.
func (e *Element) Closest(sel string) *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	s, err := e.doc.compile(sel)
	if err != nil {
		return nil
	}
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && s.Match(n) {
			return e.doc.wrap(n)
		}
	}
	return nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func parseStyle(s string) [][2]string {
	var out [][2]string
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" {
			out = append(out, [2]string{k, v})
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
