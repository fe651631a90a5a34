// Package dom is a small in-process document model used to render and
// auto-populate calculator forms. Documents are parsed HTML trees; element
// operations are serialized per document and event listeners are kept in an
// explicit registry.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNotFound = errors.New("element not found")

// Document owns a parsed HTML tree.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	sched     Scheduler
	listeners map[*html.Node][]listener
	nextID    ListenerID
	selectors map[string]cascadia.Selector
}

type Option func(*Document)

// WithScheduler sets the scheduler used for UI timers. The default is a
// VirtualScheduler starting at the current time.
func WithScheduler(s Scheduler) Option {
	return func(d *Document) { d.sched = s }
}

// Parse builds a Document from an HTML document or fragment. Fragments are
// placed in <body>.
func Parse(src string, opts ...Option) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	d := &Document{
		root:      root,
		listeners: make(map[*html.Node][]listener),
		selectors: make(map[string]cascadia.Selector),
	}
	for _, o := range opts {
		o(d)
	}
	if d.sched == nil {
		d.sched = NewVirtualScheduler(time.Now())
	}
	return d, nil
}

// MustParse is Parse for fixed markup; it panics on error.
func MustParse(src string, opts ...Option) *Document {
	d, err := Parse(src, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Document) Scheduler() Scheduler { return d.sched }

// AfterFunc schedules f on the document scheduler.
func (d *Document) AfterFunc(delay time.Duration, f func()) Timer {
	return d.sched.AfterFunc(delay, f)
}

func (d *Document) Head() *Element { return d.wrap(findAtom(d.root, atom.Head)) }
func (d *Document) Body() *Element { return d.wrap(findAtom(d.root, atom.Body)) }

// Root is the document node; queries against it search the whole tree.
func (d *Document) Root() *Element { return d.wrap(d.root) }

func (d *Document) QuerySelector(sel string) *Element {
	return d.Root().QuerySelector(sel)
}

func (d *Document) QuerySelectorAll(sel string) []*Element {
	return d.Root().QuerySelectorAll(sel)
}

func (d *Document) GetElementByID(id string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && getAttr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return d.wrap(found)
}

// CreateElement returns a detached element owned by d.
func (d *Document) CreateElement(tag string) *Element {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	return d.wrap(n)
}

// Render serializes the whole document.
func (d *Document) Render() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{doc: d, n: n}
}

// compile caches parsed selectors. Caller holds d.mu.
func (d *Document) compile(sel string) (cascadia.Selector, error) {
	if s, ok := d.selectors[sel]; ok {
		return s, nil
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel, err)
	}
	d.selectors[sel] = s
	return s, nil
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && c.DataAtom == a {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits n and its descendants depth first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
