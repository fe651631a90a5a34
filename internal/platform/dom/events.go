package dom

import "golang.org/x/net/html"

// Common event types.
const (
	EventInput  = "input"
	EventChange = "change"
	EventClick  = "click"
)

// Event is delivered to listeners. Events bubble from Target to the root.
type Event struct {
	Type   string
	Target *Element
}

type Listener func(Event)

// ListenerID identifies one registration for removal.
type ListenerID uint64

type listener struct {
	id   ListenerID
	typ  string
	fn   Listener
	once bool
}

// AddEventListener registers fn for typ events on e.
func (e *Element) AddEventListener(typ string, fn Listener) ListenerID {
	return e.addListener(typ, fn, false)
}

// Once registers fn to run for the first typ event only.
func (e *Element) Once(typ string, fn Listener) ListenerID {
	return e.addListener(typ, fn, true)
}

func (e *Element) addListener(typ string, fn Listener, once bool) ListenerID {
	d := e.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.listeners[e.n] = append(d.listeners[e.n], listener{id: d.nextID, typ: typ, fn: fn, once: once})
	return d.nextID
}

// RemoveEventListener drops a registration. Unknown ids are ignored.
func (d *Document) RemoveEventListener(id ListenerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for n, ls := range d.listeners {
		for i, l := range ls {
			if l.id == id {
				d.listeners[n] = append(ls[:i], ls[i+1:]...)
				if len(d.listeners[n]) == 0 {
					delete(d.listeners, n)
				}
				return
			}
		}
	}
}

// ListenerCount counts registrations on e, for diagnostics and tests.
func (e *Element) ListenerCount(typ string) int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	n := 0
	for _, l := range e.doc.listeners[e.n] {
		if l.typ == typ {
			n++
		}
	}
	return n
}

// Dispatch delivers an event of typ to e and its ancestors. Listeners run on
// the calling goroutine without the document lock held, so they may freely
// mutate the document.
func (e *Element) Dispatch(typ string) {
	d := e.doc
	ev := Event{Type: typ, Target: e}

	d.mu.Lock()
	var path []*html.Node
	for n := e.n; n != nil; n = n.Parent {
		path = append(path, n)
	}
	var calls []Listener
	for _, n := range path {
		ls := d.listeners[n]
		kept := ls[:0]
		for _, l := range ls {
			if l.typ == typ {
				calls = append(calls, l.fn)
				if l.once {
					continue
				}
			}
			kept = append(kept, l)
		}
		if len(kept) == 0 {
			delete(d.listeners, n)
		} else {
			d.listeners[n] = kept
		}
	}
	d.mu.Unlock()

	for _, fn := range calls {
		fn(ev)
	}
}
