package views

import (
	"context"
	"strconv"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/api"
)

type signIn struct {
	screen
}

// SignIn authenticates the user and goes back to the home page.
func SignIn(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		return &signIn{newScreen(m, d, "Sign in")}
	}
}

func (v *signIn) Render(ctx context.Context) (string, error) {
	return execute("sign-in", nil)
}

func (v *signIn) Init(ctx context.Context) error {
	v.ctx = ctx
	return v.on("sign-in-form", "submit", func(evt ui.Event) {
		evt.PreventDefault()
		username, password := v.value("username"), v.value("password")
		if username == "" || password == "" {
			v.setText("error-message", "Username and password are required")
			return
		}
		v.async(func(ctx context.Context) {
			if err := v.deps.Session.SignIn(ctx, username, password); err != nil {
				v.log.Info("sign in rejected", "err", err)
				v.setText("error-message", message(err))
				return
			}
			v.navigate("/")
		})
	})
}

type signUp struct {
	screen
}

// SignUp registers a user then leads to the sign in form.
func SignUp(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		return &signUp{newScreen(m, d, "Sign up")}
	}
}

func (v *signUp) Render(ctx context.Context) (string, error) {
	return execute("sign-up", nil)
}

func (v *signUp) Init(ctx context.Context) error {
	v.ctx = ctx
	return v.on("sign-up-form", "submit", func(evt ui.Event) {
		evt.PreventDefault()
		if v.value("password") != v.value("password-confirm") {
			v.setText("error-message", "Passwords Don't Match")
			return
		}
		in := api.SignUpInput{
			Username:  v.value("username"),
			FirstName: v.value("first-name"),
			LastName:  v.value("last-name"),
			Email:     v.value("email"),
			Password:  v.value("password"),
			Gender:    1,
		}
		in.Age, _ = strconv.Atoi(v.value("age"))
		if e, ok := v.el("gender-female"); ok && e.Checked() {
			in.Gender = 2
		}
		v.async(func(ctx context.Context) {
			if err := v.deps.API.Post(ctx, "/api/users/sign-up", in, nil); err != nil {
				v.setText("error-message", message(err))
				return
			}
			v.navigate("/sign-in")
		})
	})
}
