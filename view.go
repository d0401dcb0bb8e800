package ui

import (
	"context"
	"fmt"
)

// DefaultAppName is used as the document title when a view does not set
// its own.
const DefaultAppName = "Forum"

// View is a screen of the application.
//
// Render returns the markup of the view. It must not have side effects and
// may be called more than once.
// Init is called exactly once, after the markup has been attached to the
// document. It may register listeners, fetch data, open the shared
// connection and start recurring timers. The context is cancelled when the
// view is unmounted or when its mount is superseded.
type View interface {
	Render(ctx context.Context) (string, error)
	Init(ctx context.Context) error
}

// Titled views provide the document title applied on mount.
type Titled interface {
	Title() string
}

// Teardowner views have Teardown called first when they are unmounted,
// while the shared connection is still open.
type Teardowner interface {
	Teardown() error
}

// Params maps route parameter names to their values.
type Params map[string]string

// Get returns the value of a parameter, or the empty string.
func (p Params) Get(name string) string {
	if p == nil {
		return ""
	}
	return p[name]
}

func (p Params) clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Mount is what a view receives at construction: its route parameters,
// a snapshot of the session taken by the router, and the capabilities it
// may use during Init.
type Mount struct {
	Path    string
	Params  Params
	User    User
	AppName string

	// Document is scoped to this mount: mutations are dropped once the
	// mount is stale.
	Document    Document
	Router      *Router
	Connections *ConnectionRegistry
	Timers      *TimerRegistry
}

// ViewConstructor creates a view for a resolved route.
type ViewConstructor func(Mount) View

// BaseView provides the state shared by every view. Concrete views embed it.
type BaseView struct {
	Mount
	title string
}

func NewBaseView(m Mount) BaseView {
	name := m.AppName
	if name == "" {
		name = DefaultAppName
	}
	return BaseView{Mount: m, title: name}
}

func (b *BaseView) SetTitle(title string) { b.title = title }

func (b *BaseView) Title() string { return b.title }

// Init does nothing. Views without behavior rely on it.
func (b *BaseView) Init(ctx context.Context) error { return nil }

type staticView struct {
	BaseView
	markup string
}

func (s *staticView) Render(ctx context.Context) (string, error) { return s.markup, nil }

// StaticView returns a constructor for a view made of fixed markup.
func StaticView(title, markup string) ViewConstructor {
	return func(m Mount) View {
		v := &staticView{BaseView: NewBaseView(m), markup: markup}
		if title != "" {
			v.SetTitle(title)
		}
		return v
	}
}

var defaultNotFound = StaticView("Not Found", `<h1>404</h1><p>This page does not exist.</p><a href="/" data-link>Home</a>`)

func construct(ctor ViewConstructor, m Mount) (v View, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("view constructor panic: %v", r)
		}
	}()
	v = ctor(m)
	if v == nil {
		return nil, fmt.Errorf("view constructor returned nil for %s", m.Path)
	}
	return v, nil
}

func render(ctx context.Context, v View) (markup string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return v.Render(ctx)
}

func initialize(ctx context.Context, v View) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init panic: %v", r)
		}
	}()
	return v.Init(ctx)
}

func teardown(v View) (err error) {
	t, ok := v.(Teardowner)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("teardown panic: %v", r)
		}
	}()
	return t.Teardown()
}
