// Package views holds the screens of the forum client.
package views

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/api"
	"github.com/atdiar/rtforum/session"
)

// Deps are the services the screens depend on.
type Deps struct {
	API     *api.Client
	Session *session.Store
	// WSURL is the address of the chat websocket.
	WSURL string
	// ImageHost serves the user avatars.
	ImageHost string
	// PresenceEvery is the period of the chat presence refresh.
	PresenceEvery time.Duration
	Logger        *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Constructors returns the view constructors by the names used in route
// files.
func Constructors(d Deps) map[string]ui.ViewConstructor {
	return map[string]ui.ViewConstructor{
		"home":     Home(d),
		"sign-in":  SignIn(d),
		"sign-up":  SignUp(d),
		"new-post": NewPost(d),
		"post":     Post(d),
		"profile":  Profile(d),
		"chats":    Chats(d),
	}
}

// screen is embedded by every view of the package.
type screen struct {
	ui.BaseView
	deps Deps
	log  *slog.Logger
	ctx  context.Context
}

func newScreen(m ui.Mount, d Deps, title string) screen {
	s := screen{BaseView: ui.NewBaseView(m), deps: d, ctx: context.Background()}
	s.log = d.logger().With("view", title, "path", m.Path)
	if title != "" {
		s.SetTitle(title)
	}
	return s
}

func (s *screen) el(id string) (ui.Element, bool) {
	return s.Document.GetElementByID(id)
}

func (s *screen) value(id string) string {
	e, ok := s.el(id)
	if !ok {
		return ""
	}
	return strings.TrimSpace(e.Value())
}

func (s *screen) setText(id, text string) {
	if e, ok := s.el(id); ok {
		e.SetText(text)
	}
}

func (s *screen) setHTML(id, markup string) {
	if e, ok := s.el(id); ok {
		e.SetInnerHTML(markup)
	}
}

// on registers fn as a handler of event on the element id.
func (s *screen) on(id, event string, fn func(ui.Event)) error {
	e, ok := s.el(id)
	if !ok {
		return fmt.Errorf("element %q not found", id)
	}
	e.AddEventListener(event, ui.NewEventHandler(func(evt ui.Event) bool {
		fn(evt)
		return false
	}))
	return nil
}

// async runs fn outside of the event callback that triggered it. Callbacks
// must return without waiting on the network.
func (s *screen) async(fn func(ctx context.Context)) {
	ctx := s.ctx
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("background task panic", "panic", r)
			}
		}()
		fn(ctx)
	}()
}

func (s *screen) navigate(path string) {
	if s.Router != nil {
		s.Router.Go(path)
	}
}

func execute(name string, data interface{}) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

var genders = map[int]string{1: "Male", 2: "Female"}

var templates = template.Must(template.New("views").Funcs(template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"gender": func(g int) string { return genders[g] },
}).Parse(markup))
