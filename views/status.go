package views

import (
	"context"

	ui "github.com/atdiar/rtforum"
)

// NotFound is mounted for paths no route matches.
var NotFound = ui.StaticView("Not Found", `<h1>404</h1><p>This page does not exist.</p><a href="/" data-link>Home</a>`)

type failure struct {
	screen
}

// Failure is mounted when a view could not be rendered. The failed path
// and the error are in its parameters; only the former is shown.
func Failure(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		return &failure{newScreen(m, d, "Error")}
	}
}

func (v *failure) Render(ctx context.Context) (string, error) {
	v.log.Debug("showing failure", "err", v.Params.Get("error"))
	return execute("failure", v.Params.Get("path")+" could not be displayed.")
}
