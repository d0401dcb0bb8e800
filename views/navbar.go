package views

import (
	"context"
	"time"

	ui "github.com/atdiar/rtforum"
)

// SignOutTimeout bounds the revocation request sent after signing out.
var SignOutTimeout = 10 * time.Second

type navBar struct {
	screen
}

// NavBar is the slot view mounted in the "navbar" container. Its links
// depend on whether the session is authorized.
func NavBar(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		return &navBar{newScreen(m, d, "")}
	}
}

func (v *navBar) Render(ctx context.Context) (string, error) {
	return execute("navbar", v.User)
}

func (v *navBar) Init(ctx context.Context) error {
	if v.User.Anonymous() {
		return nil
	}
	return v.on("sign-out", "click", func(evt ui.Event) {
		evt.PreventDefault()
		v.signOut()
	})
}

// signOut drops the local session first so that the navigation it starts
// is already anonymous, then revokes the refresh token in the background.
func (v *navBar) signOut() {
	if v.deps.Session == nil {
		return
	}
	refresh := v.deps.Session.Clear()
	v.navigate("/")
	if refresh == "" {
		return
	}
	log := v.log
	store := v.deps.Session
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), SignOutTimeout)
		defer cancel()
		if err := store.Revoke(ctx, refresh); err != nil {
			log.Warn("revoking refresh token", "err", err)
		}
	}()
}
