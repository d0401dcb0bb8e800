package ui

import "sync"

// LinkAttr marks anchors whose activation is handled by the router instead
// of the browser.
const LinkAttr = "data-link"

// Element is a handle on a native DOM element.
type Element interface {
	ID() string
	TagName() string
	GetAttribute(name string) (string, bool)
	SetAttribute(name, value string)

	// SetInnerHTML replaces the children of the element wholesale.
	SetInnerHTML(markup string)
	AppendHTML(markup string)
	InnerHTML() string
	SetText(text string)
	Text() string

	Value() string
	SetValue(v string)
	Checked() bool
	SetChecked(b bool)

	// Closest returns the element itself or its nearest ancestor with the
	// given tag name.
	Closest(tag string) (Element, bool)

	AddEventListener(event string, h *EventHandler) (remove func())
}

// History is the browser session history. The state attached to an entry is
// the position of that entry in the router's NavHistory.
type History interface {
	PushState(state int, path string)
	ReplaceState(state int, path string)
	State() (int, bool)
	Back()
	Forward()
}

// Document is the attachment surface of the router. Window level events
// such as "popstate" are delivered to the Document listeners too.
type Document interface {
	GetElementByID(id string) (Element, bool)
	SetTitle(title string)
	Title() string

	AddEventListener(event string, h *EventHandler) (remove func())

	// Location returns the current path, including query and fragment.
	Location() string
	History() History
}

// scopedDocument is the Document handed to the views of a single mount.
// Every mutation goes through live: once the mount is neither displayed nor
// being built by the latest navigation, mutations and listener
// registrations are dropped.
// Listeners registered through it are removed when the mount is released.
type scopedDocument struct {
	Document
	live func() bool

	mu       sync.Mutex
	removers []func()
	released bool
}

func newScopedDocument(d Document, live func() bool) *scopedDocument {
	return &scopedDocument{Document: d, live: live}
}

func (s *scopedDocument) alive() bool {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	return !released && s.live()
}

func (s *scopedDocument) track(remove func()) func() {
	var once sync.Once
	rm := func() { once.Do(remove) }
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		rm()
		return func() {}
	}
	s.removers = append(s.removers, rm)
	s.mu.Unlock()
	return rm
}

// release detaches every listener registered during the mount.
func (s *scopedDocument) release() {
	s.mu.Lock()
	removers := s.removers
	s.removers = nil
	s.released = true
	s.mu.Unlock()
	for _, rm := range removers {
		rm()
	}
}

func (s *scopedDocument) listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.removers)
}

func (s *scopedDocument) GetElementByID(id string) (Element, bool) {
	e, ok := s.Document.GetElementByID(id)
	if !ok {
		return nil, false
	}
	return scopedElement{e, s}, true
}

func (s *scopedDocument) SetTitle(title string) {
	if s.alive() {
		s.Document.SetTitle(title)
	}
}

func (s *scopedDocument) AddEventListener(event string, h *EventHandler) func() {
	if !s.alive() {
		return func() {}
	}
	return s.track(s.Document.AddEventListener(event, h))
}

type scopedElement struct {
	Element
	doc *scopedDocument
}

func (e scopedElement) SetAttribute(name, value string) {
	if e.doc.alive() {
		e.Element.SetAttribute(name, value)
	}
}

func (e scopedElement) SetInnerHTML(markup string) {
	if e.doc.alive() {
		e.Element.SetInnerHTML(markup)
	}
}

func (e scopedElement) AppendHTML(markup string) {
	if e.doc.alive() {
		e.Element.AppendHTML(markup)
	}
}

func (e scopedElement) SetText(text string) {
	if e.doc.alive() {
		e.Element.SetText(text)
	}
}

func (e scopedElement) SetValue(v string) {
	if e.doc.alive() {
		e.Element.SetValue(v)
	}
}

func (e scopedElement) SetChecked(b bool) {
	if e.doc.alive() {
		e.Element.SetChecked(b)
	}
}

func (e scopedElement) Closest(tag string) (Element, bool) {
	c, ok := e.Element.Closest(tag)
	if !ok {
		return nil, false
	}
	return scopedElement{c, e.doc}, true
}

func (e scopedElement) AddEventListener(event string, h *EventHandler) func() {
	if !e.doc.alive() {
		return func() {}
	}
	return e.doc.track(e.Element.AddEventListener(event, h))
}
