package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/api"
)

type profile struct {
	screen
	id int
}

// Profile shows a user with the posts they published, liked and disliked.
func Profile(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		v := &profile{screen: newScreen(m, d, "Profile")}
		v.id, _ = strconv.Atoi(m.Params.Get("id"))
		return v
	}
}

func (v *profile) Render(ctx context.Context) (string, error) {
	if v.id <= 0 {
		return "", fmt.Errorf("invalid user id %q", v.Params.Get("id"))
	}
	return execute("profile", nil)
}

func (v *profile) Init(ctx context.Context) error {
	var user api.User
	if err := v.deps.API.Get(ctx, fmt.Sprintf("/api/users/%d", v.id), &user); err != nil {
		return err
	}
	v.drawUser(user)

	var posts, rated []api.Post
	if err := v.deps.API.Get(ctx, fmt.Sprintf("/api/users/%d/posts", v.id), &posts); err != nil {
		return err
	}
	if err := v.deps.API.Get(ctx, fmt.Sprintf("/api/users/%d/rated-posts", v.id), &rated); err != nil {
		return err
	}

	var liked, disliked []api.Post
	for _, p := range rated {
		switch p.UserRate {
		case api.Liked:
			liked = append(liked, p)
		case api.Disliked:
			disliked = append(disliked, p)
		}
	}
	for id, list := range map[string][]api.Post{
		"users-posts":          posts,
		"users-liked-posts":    liked,
		"users-disliked-posts": disliked,
	} {
		markup, err := execute("posts", list)
		if err != nil {
			return err
		}
		v.setHTML(id, markup)
	}
	return nil
}

func (v *profile) drawUser(u api.User) {
	if u.Avatar != "" {
		if img, err := execute("avatar", v.avatarURL(u.Avatar)); err == nil {
			v.setHTML("avatar", img)
		}
	}
	v.setText("username", "Username: "+u.Username)
	v.setText("first-name", "First name: "+u.FirstName)
	v.setText("last-name", "Last name: "+u.LastName)
	v.setText("age", "Age: "+strconv.Itoa(u.Age))
	v.setText("gender", "Gender: "+genders[u.Gender])
	if !u.Registered.IsZero() {
		v.setText("registered", "Registered on "+u.Registered.Format("2006-01-02 15:04"))
	}
}

func (v *profile) avatarURL(name string) string {
	host := v.deps.ImageHost
	if host == "" {
		return "/images/" + name
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimSuffix(host, "/") + "/images/" + name
}
