// Package ui is the navigation and view-lifecycle engine of the forum client.
package ui

import "sync"

// Event is the driver-independent representation of a DOM event.
// Phases follow the DOM: 1 capture, 2 at target, 3 bubbling. Phase 0 means
// that propagation was stopped.
type Event interface {
	Type() string
	Target() Element
	CurrentTarget() Element

	PreventDefault()
	StopPropagation()          // the phase is still 1,2,or 3 but Stopped returns true
	StopImmediatePropagation() // sets the Phase to 0 and Stopped to true
	SetPhase(int)
	SetCurrentTarget(Element)

	Phase() int
	Bubbles() bool
	DefaultPrevented() bool
	Stopped() bool

	Native() interface{} // returns the native event object
}

// MouseEvent is implemented by click events. It exposes what the router
// needs to tell a plain primary-button activation from other gestures.
type MouseEvent interface {
	Event
	Button() int
	CtrlKey() bool
	MetaKey() bool
	ShiftKey() bool
	AltKey() bool
}

// Modifiers lists the modifier keys held during a mouse event.
type Modifiers struct {
	Ctrl  bool
	Meta  bool
	Shift bool
	Alt   bool
}

type eventObject struct {
	typ           string
	target        Element
	currentTarget Element

	defaultPrevented bool
	bubbles          bool
	stopped          bool
	phase            int

	nativeObject interface{}
}

type defaultPreventer interface {
	PreventDefault()
}

func (e *eventObject) Type() string           { return e.typ }
func (e *eventObject) Target() Element        { return e.target }
func (e *eventObject) CurrentTarget() Element { return e.currentTarget }
func (e *eventObject) PreventDefault() {
	if v, ok := e.nativeObject.(defaultPreventer); ok {
		v.PreventDefault()
	}
	e.defaultPrevented = true
}
func (e *eventObject) StopPropagation() { e.stopped = true }
func (e *eventObject) StopImmediatePropagation() {
	e.stopped = true
	e.phase = 0
}
func (e *eventObject) SetPhase(i int)             { e.phase = i }
func (e *eventObject) SetCurrentTarget(t Element) { e.currentTarget = t }
func (e *eventObject) Phase() int                 { return e.phase }
func (e *eventObject) Bubbles() bool              { return e.bubbles }
func (e *eventObject) DefaultPrevented() bool     { return e.defaultPrevented }
func (e *eventObject) Stopped() bool              { return e.stopped }
func (e *eventObject) Native() interface{}        { return e.nativeObject }

// NewEvent returns an Event. The native event, if any, receives the
// PreventDefault calls.
func NewEvent(typ string, bubbles bool, target Element, nativeEvent interface{}) Event {
	return &eventObject{typ, target, target, false, bubbles, false, 0, nativeEvent}
}

type mouseEvent struct {
	*eventObject
	button int
	mods   Modifiers
}

func (m mouseEvent) Button() int    { return m.button }
func (m mouseEvent) CtrlKey() bool  { return m.mods.Ctrl }
func (m mouseEvent) MetaKey() bool  { return m.mods.Meta }
func (m mouseEvent) ShiftKey() bool { return m.mods.Shift }
func (m mouseEvent) AltKey() bool   { return m.mods.Alt }

// NewMouseEvent returns a bubbling MouseEvent of type typ.
func NewMouseEvent(typ string, target Element, button int, mods Modifiers, nativeEvent interface{}) MouseEvent {
	return mouseEvent{&eventObject{typ, target, target, false, true, false, 0, nativeEvent}, button, mods}
}

// EventListeners stores the handlers registered on a single node, by event
// type. It is safe for concurrent use; handlers run without the lock held so
// that they may register or remove other handlers.
type EventListeners struct {
	mu   sync.Mutex
	list map[string]*eventHandlers
}

func NewEventListenerStore() *EventListeners {
	return &EventListeners{list: make(map[string]*eventHandlers)}
}

func (e *EventListeners) AddEventHandler(typ string, handler *EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	eh, ok := e.list[typ]
	if !ok {
		eh = newEventHandlers()
		e.list[typ] = eh
	}
	eh.Add(handler)
}

func (e *EventListeners) RemoveEventHandler(typ string, handler *EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	eh, ok := e.list[typ]
	if !ok {
		return
	}
	eh.Remove(handler)
	if len(eh.List) == 0 {
		delete(e.list, typ)
	}
}

// Len returns the number of handlers registered for an event type.
func (e *EventListeners) Len(typ string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	eh, ok := e.list[typ]
	if !ok {
		return 0
	}
	return len(eh.List)
}

// Handle runs the handlers matching the current phase of evt.
// It returns true when a handler asked for the dispatch to end.
func (e *EventListeners) Handle(evt Event) bool {
	e.mu.Lock()
	evh, ok := e.list[evt.Type()]
	var handlers []*EventHandler
	if ok {
		handlers = append(handlers, evh.List...)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}

	var done bool
	switch evt.Phase() {
	case 0:
		return true
	case 1:
		done = e.run(evt, handlers, func(h *EventHandler) bool { return h.Capture })
	case 2:
		done = e.run(evt, handlers, func(h *EventHandler) bool { return true })
	case 3:
		if !evt.Bubbles() {
			return true
		}
		done = e.run(evt, handlers, func(h *EventHandler) bool { return !h.Capture })
	}
	return done
}

func (e *EventListeners) run(evt Event, handlers []*EventHandler, eligible func(*EventHandler) bool) bool {
	for _, h := range handlers {
		if !eligible(h) {
			continue
		}
		done := h.Handle(evt)
		if h.Once {
			e.RemoveEventHandler(evt.Type(), h)
		}
		if done {
			return done
		}
		if evt.Stopped() && (evt.Phase() == 0) {
			return true
		}
	}
	return false
}

type eventHandlers struct {
	List []*EventHandler
}

func newEventHandlers() *eventHandlers {
	return &eventHandlers{make([]*EventHandler, 0)}
}

func (e *eventHandlers) Add(h *EventHandler) *eventHandlers {
	e.List = append(e.List, h)
	return e
}

func (e *eventHandlers) Remove(h *EventHandler) *eventHandlers {
	index := -1
	for k, v := range e.List {
		if v != h {
			continue
		}
		index = k
		break
	}
	if index >= 0 {
		e.List = append(e.List[:index], e.List[index+1:]...)
	}
	return e
}

type EventHandler struct {
	Fn      func(Event) bool
	Capture bool // propagation mode: if false bubbles up, otherwise captured by the top most element and propagate down .

	Once bool
}

func (e EventHandler) Handle(evt Event) bool {
	return e.Fn(evt)
}

func NewEventHandler(fn func(Event) bool) *EventHandler {
	return &EventHandler{fn, false, false}
}

func (e *EventHandler) ForCapture() *EventHandler {
	e.Capture = true
	return e
}

func (e *EventHandler) TriggerOnce() *EventHandler {
	e.Once = true
	return e
}
