package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/api"
)

type home struct {
	screen
}

// Home lists the latest posts.
func Home(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		return &home{newScreen(m, d, "")}
	}
}

func (v *home) Render(ctx context.Context) (string, error) {
	return execute("home", nil)
}

func (v *home) Init(ctx context.Context) error {
	var posts []api.Post
	if err := v.deps.API.Get(ctx, "/api/posts", &posts); err != nil {
		v.setText("posts", "Posts could not be loaded")
		return err
	}
	list, err := execute("posts", posts)
	if err != nil {
		return err
	}
	v.setHTML("posts", list)
	return nil
}

type post struct {
	screen
	id int
}

// Post shows a post with its comments and a form to add one.
func Post(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		v := &post{screen: newScreen(m, d, "Post")}
		v.id, _ = strconv.Atoi(m.Params.Get("id"))
		return v
	}
}

func (v *post) Render(ctx context.Context) (string, error) {
	if v.id <= 0 {
		return "", fmt.Errorf("invalid post id %q", v.Params.Get("id"))
	}
	return execute("post", nil)
}

func (v *post) Init(ctx context.Context) error {
	v.ctx = ctx
	var p api.Post
	if err := v.deps.API.Get(ctx, fmt.Sprintf("/api/posts/%d", v.id), &p); err != nil {
		v.setText("post", "Post could not be loaded")
		return err
	}
	detail, err := execute("post-detail", p)
	if err != nil {
		return err
	}
	v.setHTML("post", detail)
	if p.Title != "" {
		v.Document.SetTitle(p.Title)
	}

	if err := v.loadComments(ctx); err != nil {
		v.log.Warn("loading comments", "err", err)
	}
	return v.on("comment-form", "submit", func(evt ui.Event) {
		evt.PreventDefault()
		data := v.value("comment-data")
		if data == "" {
			v.setText("error-message", "Comment is empty")
			return
		}
		v.async(func(ctx context.Context) {
			in := api.NewCommentInput{PostID: v.id, Data: data}
			if err := v.deps.API.Post(ctx, "/api/comments/create", in, nil); err != nil {
				v.setText("error-message", message(err))
				return
			}
			if e, ok := v.el("comment-data"); ok {
				e.SetValue("")
			}
			v.setText("error-message", "")
			if err := v.loadComments(ctx); err != nil {
				v.log.Warn("reloading comments", "err", err)
			}
		})
	})
}

func (v *post) loadComments(ctx context.Context) error {
	var comments []api.Comment
	if err := v.deps.API.Get(ctx, fmt.Sprintf("/api/posts/%d/comments", v.id), &comments); err != nil {
		return err
	}
	list, err := execute("comments", comments)
	if err != nil {
		return err
	}
	v.setHTML("comments", list)
	return nil
}

type newPost struct {
	screen
	categories []api.Category
}

// NewPost is the post creation form. A created post is shown right away.
func NewPost(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		return &newPost{screen: newScreen(m, d, "New post")}
	}
}

func (v *newPost) Render(ctx context.Context) (string, error) {
	return execute("new-post", nil)
}

func (v *newPost) Init(ctx context.Context) error {
	v.ctx = ctx
	if err := v.deps.API.Get(ctx, "/api/categories", &v.categories); err != nil {
		v.log.Warn("loading categories", "err", err)
	} else if list, err := execute("categories", v.categories); err == nil {
		v.setHTML("post-categories", list)
	}

	return v.on("new-post-form", "submit", func(evt ui.Event) {
		evt.PreventDefault()
		in := api.NewPostInput{Title: v.value("post-title"), Data: v.value("post-data")}
		if in.Title == "" || in.Data == "" {
			v.setText("error-message", "Title and text are required")
			return
		}
		for _, c := range v.categories {
			if e, ok := v.el(fmt.Sprintf("category-%d", c.ID)); ok && e.Checked() {
				in.Categories = append(in.Categories, c.ID)
			}
		}
		v.async(func(ctx context.Context) {
			var created api.Post
			if err := v.deps.API.Post(ctx, "/api/posts/create", in, &created); err != nil {
				v.setText("error-message", message(err))
				return
			}
			v.navigate(fmt.Sprintf("/post/%d", created.ID))
		})
	})
}

// message returns the text shown to the user for a failed request.
func message(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return ""
	}
	return "Request failed, try again later"
}
