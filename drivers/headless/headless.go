// Package headless implements the document abstraction of the ui package on
// top of an in-memory HTML tree. It is used for tests and server-side
// pre-rendering.
//
// Events are dispatched the way a browser does: capture from the document
// down to the target, then at target, then bubbling back up. An activation
// whose default action is not prevented is treated as a full page load.
package headless

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ui "github.com/atdiar/rtforum"
)

// DefaultPage is the host page of the forum client.
const DefaultPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Forum</title></head>
<body>
<nav id="navbar"></nav>
<main id="app"></main>
</body>
</html>`

// Document is an in-memory ui.Document.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	listeners map[*html.Node]*ui.EventListeners
	window    *ui.EventListeners
	location  string
	history   *History
	reloads   int
	loadID    string

	Logger *slog.Logger
}

// NewDocument parses page and returns a document located at path.
// An empty page is DefaultPage.
func NewDocument(page, path string) (*Document, error) {
	if page == "" {
		page = DefaultPage
	}
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	if path == "" {
		path = "/"
	}
	d := &Document{
		root:      root,
		listeners: make(map[*html.Node]*ui.EventListeners),
		window:    ui.NewEventListenerStore(),
		location:  path,
		loadID:    uuid.NewString(),
		Logger:    slog.Default(),
	}
	d.history = &History{doc: d, entries: []entry{{path: path}}}
	return d, nil
}

// MustDocument is like NewDocument but panics on error.
func MustDocument(page, path string) *Document {
	d, err := NewDocument(page, path)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

// GetElementByID implements ui.Document.
func (d *Document) GetElementByID(id string) (ui.Element, bool) {
	e, ok := d.Element(id)
	if !ok {
		return nil, false
	}
	return e, true
}

// Element is GetElementByID returning the concrete type.
func (d *Document) Element(id string) (*Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := find(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	})
	if n == nil {
		return nil, false
	}
	return d.wrap(n), true
}

// Link returns the first anchor whose href is href.
func (d *Document) Link(href string) (*Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := find(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "href")
		return n.DataAtom == atom.A && ok && v == href
	})
	if n == nil {
		return nil, false
	}
	return d.wrap(n), true
}

// Query returns the elements with the given tag name, in document order.
func (d *Document) Query(tag string) []*Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var l []*Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			l = append(l, d.wrap(n))
		}
	})
	return l
}

func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := find(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if t == nil {
		head := find(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Head })
		if head == nil {
			return
		}
		t = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		head.AppendChild(t)
	}
	clearChildren(t)
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := find(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if t == nil {
		return ""
	}
	return textContent(t)
}

// AddEventListener registers a document level handler. Window events such
// as popstate are delivered there too.
func (d *Document) AddEventListener(event string, h *ui.EventHandler) func() {
	d.window.AddEventHandler(event, h)
	var once sync.Once
	return func() {
		once.Do(func() { d.window.RemoveEventHandler(event, h) })
	}
}

// ListenerCount returns the number of document level handlers for event.
func (d *Document) ListenerCount(event string) int {
	return d.window.Len(event)
}

func (d *Document) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

func (d *Document) History() ui.History { return d.history }

// Reloads returns the number of full page loads that happened since the
// document was created.
func (d *Document) Reloads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reloads
}

// LoadID identifies the current page load. It changes on every full load.
func (d *Document) LoadID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadID
}

// HTML renders the whole document.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b bytes.Buffer
	if err := html.Render(&b, d.root); err != nil {
		d.Logger.Error("rendering document", "err", err)
	}
	return b.String()
}

// ClickOptions describes the mouse button and modifier keys of a click.
type ClickOptions struct {
	Button int
	ui.Modifiers
}

// Click dispatches a click on el. When the default action is not prevented
// and el is within an anchor with an href, the browser behavior is
// simulated: the document is reloaded at that location.
// It reports whether the default action was prevented.
func (d *Document) Click(el *Element, opts ClickOptions) bool {
	evt := ui.NewMouseEvent("click", el, opts.Button, opts.Modifiers, nil)
	d.dispatch(evt, el.node)
	if evt.DefaultPrevented() {
		return true
	}
	if a, ok := el.Closest("a"); ok {
		if href, ok := a.GetAttribute("href"); ok && strings.HasPrefix(href, "/") {
			d.load(href)
		}
	}
	return false
}

// Submit dispatches a submit event on a form. A submission that is not
// prevented reloads the document.
func (d *Document) Submit(form *Element) bool {
	evt := ui.NewEvent("submit", true, form, nil)
	d.dispatch(evt, form.node)
	if evt.DefaultPrevented() {
		return true
	}
	action, ok := form.GetAttribute("action")
	if !ok || action == "" {
		action = d.Location()
	}
	d.load(action)
	return false
}

// Input sets the value of a form control and dispatches an input event.
func (d *Document) Input(el *Element, value string) {
	el.SetValue(value)
	d.dispatch(ui.NewEvent("input", true, el, nil), el.node)
}

// Dispatch delivers evt to the document, or to the target of evt when it
// has one that belongs to this document.
func (d *Document) Dispatch(evt ui.Event) {
	var n *html.Node
	if t, ok := evt.Target().(*Element); ok && t != nil && t.doc == d {
		n = t.node
	}
	d.dispatch(evt, n)
}

func (d *Document) load(path string) {
	d.mu.Lock()
	d.reloads++
	d.loadID = uuid.NewString()
	d.location = path
	d.mu.Unlock()
	d.history.push(entry{path: path})
	d.Logger.Debug("full page load", "path", path)
}

func (d *Document) dispatch(evt ui.Event, target *html.Node) {
	d.mu.Lock()
	var path []*html.Node
	for n := target; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			path = append([]*html.Node{n}, path...)
		}
	}
	stores := make([]*ui.EventListeners, len(path))
	for i, n := range path {
		stores[i] = d.listeners[n]
	}
	d.mu.Unlock()

	if len(path) == 0 {
		evt.SetPhase(2)
		d.handle(d.window, evt, nil)
		return
	}
	last := len(path) - 1

	evt.SetPhase(1)
	if d.handle(d.window, evt, nil) {
		return
	}
	for i := 0; i < last; i++ {
		if d.handle(stores[i], evt, path[i]) {
			return
		}
	}

	evt.SetPhase(2)
	if d.handle(stores[last], evt, path[last]) {
		return
	}

	if !evt.Bubbles() {
		return
	}
	evt.SetPhase(3)
	for i := last - 1; i >= 0; i-- {
		if d.handle(stores[i], evt, path[i]) {
			return
		}
	}
	d.handle(d.window, evt, nil)
}

// handle runs the handlers of a node and reports whether propagation must
// end.
func (d *Document) handle(store *ui.EventListeners, evt ui.Event, n *html.Node) (done bool) {
	if store == nil {
		return evt.Stopped()
	}
	if n != nil {
		evt.SetCurrentTarget(d.wrap(n))
	} else {
		evt.SetCurrentTarget(nil)
	}
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("event handler panic", "event", evt.Type(), "panic", r)
			done = evt.Stopped()
		}
	}()
	if store.Handle(evt) {
		return true
	}
	return evt.Stopped()
}

func (d *Document) addListener(n *html.Node, event string, h *ui.EventHandler) func() {
	d.mu.Lock()
	store, ok := d.listeners[n]
	if !ok {
		store = ui.NewEventListenerStore()
		d.listeners[n] = store
	}
	d.mu.Unlock()
	store.AddEventHandler(event, h)
	var once sync.Once
	return func() {
		once.Do(func() { store.RemoveEventHandler(event, h) })
	}
}

// forget drops the listeners of the descendants of n, which are about to be
// detached.
func (d *Document) forget(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(x *html.Node) { delete(d.listeners, x) })
	}
}

type entry struct {
	state    int
	hasState bool
	path     string
}

// History is the session history of a Document. Back and Forward deliver a
// popstate event to the document listeners.
type History struct {
	doc     *Document
	mu      sync.Mutex
	entries []entry
	cursor  int
}

func (h *History) push(e entry) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.cursor+1], e)
	h.cursor++
	h.mu.Unlock()
}

func (h *History) PushState(state int, path string) {
	h.push(entry{state, true, path})
	h.setLocation(path)
}

func (h *History) ReplaceState(state int, path string) {
	h.mu.Lock()
	h.entries[h.cursor] = entry{state, true, path}
	h.mu.Unlock()
	h.setLocation(path)
}

func (h *History) State() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entries[h.cursor]
	return e.state, e.hasState
}

func (h *History) Back() { h.move(-1) }

func (h *History) Forward() { h.move(1) }

// Len returns the number of entries in the session history.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Paths returns the paths of the entries, oldest first, and the index of the
// current one.
func (h *History) Paths() ([]string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l := make([]string, len(h.entries))
	for i, e := range h.entries {
		l[i] = e.path
	}
	return l, h.cursor
}

func (h *History) move(delta int) {
	h.mu.Lock()
	c := h.cursor + delta
	if c < 0 || c >= len(h.entries) {
		h.mu.Unlock()
		return
	}
	h.cursor = c
	path := h.entries[c].path
	h.mu.Unlock()

	h.setLocation(path)
	h.doc.dispatch(ui.NewEvent("popstate", false, nil, nil), nil)
}

func (h *History) setLocation(path string) {
	h.doc.mu.Lock()
	h.doc.location = path
	h.doc.mu.Unlock()
}
