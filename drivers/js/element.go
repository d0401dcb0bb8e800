//go:build js && wasm

package doc

import (
	"strings"
	"syscall/js"

	ui "github.com/atdiar/rtforum"
)

// Element wraps a native DOM element.
type Element struct {
	js.Value
	doc *Document
}

func (e Element) ID() string { return e.Get("id").String() }

func (e Element) TagName() string { return e.Get("tagName").String() }

func (e Element) GetAttribute(name string) (string, bool) {
	if !e.Call("hasAttribute", name).Bool() {
		return "", false
	}
	return e.Call("getAttribute", name).String(), true
}

func (e Element) SetAttribute(name, value string) {
	e.Call("setAttribute", name, value)
}

func (e Element) SetInnerHTML(markup string) { e.Set("innerHTML", markup) }

func (e Element) AppendHTML(markup string) {
	e.Call("insertAdjacentHTML", "beforeend", markup)
}

func (e Element) InnerHTML() string { return e.Get("innerHTML").String() }

func (e Element) SetText(text string) { e.Set("textContent", text) }

func (e Element) Text() string { return e.Get("textContent").String() }

func (e Element) Value() string {
	v := e.Get("value")
	if v.IsUndefined() || v.IsNull() {
		return ""
	}
	return v.String()
}

func (e Element) SetValue(v string) { e.Set("value", v) }

func (e Element) Checked() bool { return e.Get("checked").Truthy() }

func (e Element) SetChecked(b bool) { e.Set("checked", b) }

func (e Element) Closest(tag string) (ui.Element, bool) {
	c := e.Call("closest", strings.ToLower(tag))
	if !c.Truthy() {
		return nil, false
	}
	return Element{c, e.doc}, true
}

func (e Element) AddEventListener(event string, h *ui.EventHandler) func() {
	return listen(e.Value, event, h, e.doc.Logger)
}
