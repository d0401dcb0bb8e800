package headless

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ui "github.com/atdiar/rtforum"
)

// Element is a ui.Element backed by a node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

func (e *Element) ID() string {
	v, _ := e.GetAttribute("id")
	return v
}

func (e *Element) TagName() string {
	return strings.ToUpper(e.node.Data)
}

func (e *Element) GetAttribute(name string) (string, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return attr(e.node, name)
}

func (e *Element) SetAttribute(name, value string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.node, name, value)
}

// RemoveAttribute deletes an attribute.
func (e *Element) RemoveAttribute(name string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	removeAttr(e.node, name)
}

func (e *Element) SetInnerHTML(markup string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		e.doc.Logger.Error("parsing markup", "id", e.id(), "err", err)
		return
	}
	e.doc.forget(e.node)
	clearChildren(e.node)
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
}

func (e *Element) AppendHTML(markup string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		e.doc.Logger.Error("parsing markup", "id", e.id(), "err", err)
		return
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
}

func (e *Element) InnerHTML() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var b bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			e.doc.Logger.Error("rendering markup", "id", e.id(), "err", err)
		}
	}
	return b.String()
}

func (e *Element) SetText(text string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.forget(e.node)
	clearChildren(e.node)
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func (e *Element) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return textContent(e.node)
}

// Value returns the value of a form control. The value of a textarea is its
// text content.
func (e *Element) Value() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.node.DataAtom == atom.Textarea {
		return textContent(e.node)
	}
	v, _ := attr(e.node, "value")
	return v
}

func (e *Element) SetValue(v string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.node.DataAtom == atom.Textarea {
		clearChildren(e.node)
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: v})
		return
	}
	setAttr(e.node, "value", v)
}

func (e *Element) Checked() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	_, ok := attr(e.node, "checked")
	return ok
}

func (e *Element) SetChecked(b bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if b {
		setAttr(e.node, "checked", "")
		return
	}
	removeAttr(e.node, "checked")
}

func (e *Element) Closest(tag string) (ui.Element, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	tag = strings.ToLower(tag)
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == tag {
			return e.doc.wrap(n), true
		}
	}
	return nil, false
}

func (e *Element) AddEventListener(event string, h *ui.EventHandler) func() {
	return e.doc.addListener(e.node, event, h)
}

// ListenerCount returns the number of handlers registered on the element for
// event.
func (e *Element) ListenerCount(event string) int {
	e.doc.mu.Lock()
	store, ok := e.doc.listeners[e.node]
	e.doc.mu.Unlock()
	if !ok {
		return 0
	}
	return store.Len(event)
}

func (e *Element) id() string {
	v, _ := attr(e.node, "id")
	return v
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func textContent(n *html.Node) string {
	switch n.Type {
	case html.TextNode, html.RawNode:
		return n.Data
	case html.ElementNode, html.DocumentNode:
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.CommentNode {
				b.WriteString(textContent(c))
			}
		}
		return b.String()
	}
	return ""
}

func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root.Type == html.ElementNode && match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := find(c, match); n != nil {
			return n
		}
	}
	return nil
}

func walk(root *html.Node, fn func(*html.Node)) {
	fn(root)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
