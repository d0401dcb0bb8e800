//go:build js && wasm

// Package doc implements the document abstraction of the ui package on top
// of the browser DOM, through syscall/js.
package doc

import (
	"log/slog"
	"sync"
	"syscall/js"

	ui "github.com/atdiar/rtforum"
)

type nativeEvent struct {
	js.Value
}

func (e nativeEvent) PreventDefault() {
	e.Value.Call("preventDefault")
}

// Document is the browser document. Window events such as popstate are
// delivered to its listeners as well.
type Document struct {
	js.Value
	window js.Value
	Logger *slog.Logger
}

// GetDocument returns the document of the page running the program.
func GetDocument() *Document {
	return &Document{
		Value:  js.Global().Get("document"),
		window: js.Global(),
		Logger: slog.Default(),
	}
}

func (d *Document) GetElementByID(id string) (ui.Element, bool) {
	v := d.Call("getElementById", id)
	if !v.Truthy() {
		return nil, false
	}
	return Element{v, d}, true
}

func (d *Document) SetTitle(title string) {
	d.Set("title", title)
}

func (d *Document) Title() string {
	return d.Get("title").String()
}

// AddEventListener registers h on the document, or on the window for window
// events.
func (d *Document) AddEventListener(event string, h *ui.EventHandler) func() {
	target := d.Value
	switch event {
	case "popstate", "hashchange", "resize", "beforeunload":
		target = d.window
	}
	return listen(target, event, h, d.Logger)
}

// Location returns the path of the page with its query and fragment.
func (d *Document) Location() string {
	l := d.window.Get("location")
	return l.Get("pathname").String() + l.Get("search").String() + l.Get("hash").String()
}

func (d *Document) History() ui.History {
	return History{d.window.Get("history")}
}

// Origin returns the scheme, host and port of the page.
func (d *Document) Origin() string {
	return d.window.Get("location").Get("origin").String()
}

// Meta returns the content of the <meta name="..."> tag of the page.
func (d *Document) Meta(name string) (string, bool) {
	v := d.Call("querySelector", `meta[name="`+name+`"]`)
	if !v.Truthy() {
		return "", false
	}
	c := v.Call("getAttribute", "content")
	if c.IsNull() {
		return "", false
	}
	return c.String(), true
}

// listen bridges a native event listener to a ui.EventHandler.
func listen(target js.Value, event string, h *ui.EventHandler, logger *slog.Logger) func() {
	var cb js.Func
	cb = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("event handler panic", "event", event, "panic", r)
			}
		}()
		if len(args) == 0 {
			return nil
		}
		evt := newEvent(args[0], logger)
		h.Handle(evt)
		if h.Once {
			target.Call("removeEventListener", event, cb, h.Capture)
			cb.Release()
		}
		return nil
	})
	target.Call("addEventListener", event, cb, h.Capture)

	var once sync.Once
	return func() {
		once.Do(func() {
			target.Call("removeEventListener", event, cb, h.Capture)
			if !h.Once {
				cb.Release()
			}
		})
	}
}

func newEvent(v js.Value, logger *slog.Logger) ui.Event {
	d := &Document{Value: js.Global().Get("document"), window: js.Global(), Logger: logger}
	var target ui.Element
	if t := v.Get("target"); t.Truthy() && t.Get("nodeType").Int() == 1 {
		target = Element{t, d}
	}
	typ := v.Get("type").String()
	if v.InstanceOf(js.Global().Get("MouseEvent")) {
		mods := ui.Modifiers{
			Ctrl:  v.Get("ctrlKey").Bool(),
			Meta:  v.Get("metaKey").Bool(),
			Shift: v.Get("shiftKey").Bool(),
			Alt:   v.Get("altKey").Bool(),
		}
		evt := ui.NewMouseEvent(typ, target, v.Get("button").Int(), mods, nativeEvent{v})
		evt.SetPhase(v.Get("eventPhase").Int())
		return evt
	}
	evt := ui.NewEvent(typ, v.Get("bubbles").Bool(), target, nativeEvent{v})
	evt.SetPhase(v.Get("eventPhase").Int())
	return evt
}

// History is the browser session history.
type History struct {
	js.Value
}

func (h History) PushState(state int, path string) {
	h.Call("pushState", state, "", path)
}

func (h History) ReplaceState(state int, path string) {
	h.Call("replaceState", state, "", path)
}

func (h History) State() (int, bool) {
	s := h.Get("state")
	if s.Type() != js.TypeNumber {
		return 0, false
	}
	return s.Int(), true
}

func (h History) Back() { h.Call("back") }

func (h History) Forward() { h.Call("forward") }
