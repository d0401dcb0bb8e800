package views_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/api"
	"github.com/atdiar/rtforum/config"
	"github.com/atdiar/rtforum/drivers/headless"
	"github.com/atdiar/rtforum/session"
	"github.com/atdiar/rtforum/views"
)

type app struct {
	t      *testing.T
	doc    *headless.Document
	r      *ui.Router
	store  *session.Store
	conns  *ui.ConnectionRegistry
	timers *ui.TimerRegistry
}

// accessToken is also called from API handlers, so it cannot fail a test.
func accessToken(id int, username string) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      id,
		"role":     1,
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		panic(err)
	}
	return s
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// newApp serves the forum client at path against the API handlers of mux.
func newApp(t *testing.T, path string, mux *http.ServeMux, signedIn bool) *app {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient(srv.URL, api.WithLogger(logger))
	store := session.NewStore(client, session.WithLogger(logger))
	client.Tokens = store
	if signedIn {
		require.NoError(t, store.SetToken(accessToken(7, "ada"), "refresh-7"))
	}

	deps := views.Deps{
		API:           client,
		Session:       store,
		WSURL:         "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		ImageHost:     "images.test",
		PresenceEvery: 20 * time.Millisecond,
		Logger:        logger,
	}
	table, err := config.LoadDefaultRoutes(views.Constructors(deps))
	require.NoError(t, err)

	a := &app{
		t:      t,
		doc:    headless.MustDocument("", path),
		store:  store,
		conns:  ui.NewConnectionRegistry(),
		timers: ui.NewTimerRegistry(),
	}
	a.doc.Logger = logger
	a.r = ui.NewRouter(a.doc, "app", table,
		ui.WithSession(store),
		ui.WithRegistries(a.conns, a.timers),
		ui.WithLogger(logger),
		ui.WithSlot("navbar", views.NavBar(deps)),
		ui.WithNotFound(views.NotFound),
		ui.WithFailureView(views.Failure(deps)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.r.ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
		a.conns.ReleaseAll()
		a.timers.ReleaseAll()
	})
	a.wait()
	return a
}

func (a *app) wait() {
	a.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(a.t, a.r.Wait(ctx))
}

func (a *app) navigate(path string) {
	a.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(a.t, a.r.NavigateTo(ctx, path, false))
}

func (a *app) el(id string) *headless.Element {
	a.t.Helper()
	e, ok := a.doc.Element(id)
	require.True(a.t, ok, "no element %s", id)
	return e
}

func (a *app) text(id string) string {
	a.t.Helper()
	return a.el(id).Text()
}

func (a *app) eventuallyAt(path string) {
	a.t.Helper()
	require.Eventually(a.t, func() bool {
		a.r.Wait(context.Background())
		return a.r.CurrentPath() == path
	}, 2*time.Second, 5*time.Millisecond, "never reached %s", path)
	a.wait()
}

func postsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Post{
			{ID: 1, Title: "First <post>", Author: api.Author{ID: 7, FirstName: "Ada", LastName: "Lovelace"}},
			{ID: 2, Title: "Second post", Author: api.Author{ID: 8, FirstName: "Bob", LastName: "Marley"}},
		})
	})
	return mux
}

func TestHomeAndNavBarAnonymous(t *testing.T) {
	a := newApp(t, "/", postsMux(), false)

	assert.Contains(t, a.el("posts").InnerHTML(), "First &lt;post&gt;")
	_, ok := a.doc.Link("/post/2")
	assert.True(t, ok)

	_, ok = a.doc.Link("/sign-in")
	assert.True(t, ok)
	_, ok = a.doc.Link("/sign-up")
	assert.True(t, ok)
	_, ok = a.doc.Element("sign-out")
	assert.False(t, ok)
}

func TestNavBarAuthenticated(t *testing.T) {
	a := newApp(t, "/", postsMux(), true)

	profile, ok := a.doc.Link("/user/7")
	require.True(t, ok)
	assert.Equal(t, "ada", profile.Text())
	for _, href := range []string{"/new-post", "/chats"} {
		_, ok := a.doc.Link(href)
		assert.True(t, ok, href)
	}
	_, ok = a.doc.Link("/sign-in")
	assert.False(t, ok)
}

func TestSignIn(t *testing.T) {
	mux := postsMux()
	mux.HandleFunc("/api/users/sign-in", func(w http.ResponseWriter, r *http.Request) {
		var in api.SignInInput
		json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, api.Tokens{AccessToken: accessToken(7, in.Username), RefreshToken: "r"})
	})
	a := newApp(t, "/sign-in", mux, false)

	a.el("username").SetValue("ada")
	a.el("password").SetValue("wrong")
	assert.True(t, a.doc.Submit(a.el("sign-in-form")))
	require.Eventually(t, func() bool {
		return a.text("error-message") == "invalid credentials"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "/sign-in", a.r.CurrentPath())

	a.el("password").SetValue("secret")
	a.doc.Submit(a.el("sign-in-form"))
	a.eventuallyAt("/")

	assert.True(t, a.store.IsAuthenticated())
	_, ok := a.doc.Link("/user/7")
	assert.True(t, ok)
	assert.Zero(t, a.doc.Reloads())
}

func TestSignUp(t *testing.T) {
	received := make(chan api.SignUpInput, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/sign-up", func(w http.ResponseWriter, r *http.Request) {
		var in api.SignUpInput
		json.NewDecoder(r.Body).Decode(&in)
		received <- in
		writeJSON(w, map[string]bool{"ok": true})
	})
	a := newApp(t, "/sign-up", mux, false)

	for id, value := range map[string]string{
		"username":         "ada",
		"first-name":       "Ada",
		"last-name":        "Lovelace",
		"age":              "36",
		"email":            "ada@example.com",
		"password":         "one",
		"password-confirm": "two",
	} {
		a.el(id).SetValue(value)
	}
	a.el("gender-female").SetChecked(true)

	a.doc.Submit(a.el("sign-up-form"))
	assert.Equal(t, "Passwords Don't Match", a.text("error-message"))
	assert.Empty(t, received)

	a.el("password-confirm").SetValue("one")
	a.doc.Submit(a.el("sign-up-form"))
	select {
	case in := <-received:
		assert.Equal(t, "ada", in.Username)
		assert.Equal(t, 36, in.Age)
		assert.Equal(t, 2, in.Gender)
		assert.Equal(t, "one", in.Password)
	case <-time.After(2 * time.Second):
		t.Fatal("sign up request not sent")
	}
	a.eventuallyAt("/sign-in")
}

func TestAuthenticatedRoutesRedirect(t *testing.T) {
	a := newApp(t, "/chats", postsMux(), false)
	assert.Equal(t, "/sign-in", a.r.CurrentPath())
	assert.Equal(t, "Sign in", a.doc.Title())
}

func TestProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.User{ID: 7, Username: "ada", FirstName: "Ada", LastName: "Lovelace", Age: 36, Gender: 2, Avatar: "ada.png"})
	})
	mux.HandleFunc("/api/users/7/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Post{})
	})
	mux.HandleFunc("/api/users/7/rated-posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Post{
			{ID: 3, Title: "Liked one", UserRate: api.Liked},
			{ID: 4, Title: "Disliked one", UserRate: api.Disliked},
		})
	})
	a := newApp(t, "/user/7", mux, true)

	assert.Equal(t, "Profile", a.doc.Title())
	assert.Equal(t, "Username: ada", a.text("username"))
	assert.Equal(t, "Gender: Female", a.text("gender"))
	assert.Contains(t, a.el("avatar").InnerHTML(), `src="http://images.test/images/ada.png"`)
	assert.Equal(t, "No posts", a.text("users-posts"))
	assert.Contains(t, a.text("users-liked-posts"), "Liked one")
	assert.NotContains(t, a.text("users-liked-posts"), "Disliked one")
	assert.Contains(t, a.text("users-disliked-posts"), "Disliked one")
}

func TestSignOut(t *testing.T) {
	revoked := make(chan string, 1)
	mux := postsMux()
	mux.HandleFunc("/api/users/sign-out", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		revoked <- in["refreshToken"]
		writeJSON(w, map[string]bool{"ok": true})
	})
	a := newApp(t, "/", mux, true)

	assert.True(t, a.doc.Click(a.el("sign-out"), headless.ClickOptions{}))
	a.wait()
	assert.False(t, a.store.IsAuthenticated())
	assert.Equal(t, "/", a.r.CurrentPath())
	_, ok := a.doc.Link("/sign-in")
	assert.True(t, ok)
	assert.Zero(t, a.doc.Reloads())

	select {
	case refresh := <-revoked:
		assert.Equal(t, "refresh-7", refresh)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh token not revoked")
	}
}

func TestNewPost(t *testing.T) {
	var (
		mu      sync.Mutex
		created api.NewPostInput
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Category{{ID: 1, Name: "go"}, {ID: 2, Name: "web"}})
	})
	mux.HandleFunc("/api/posts/create", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		json.NewDecoder(r.Body).Decode(&created)
		writeJSON(w, api.Post{ID: 42})
	})
	mux.HandleFunc("/api/posts/42", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		writeJSON(w, api.Post{ID: 42, Title: created.Title, Data: created.Data})
	})
	mux.HandleFunc("/api/posts/42/comments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.Comment{})
	})
	a := newApp(t, "/new-post", mux, true)

	a.doc.Submit(a.el("new-post-form"))
	assert.Equal(t, "Title and text are required", a.text("error-message"))

	a.el("post-title").SetValue("Hello")
	a.el("post-data").SetValue("World")
	a.el("category-2").SetChecked(true)
	a.doc.Submit(a.el("new-post-form"))
	a.eventuallyAt("/post/42")

	mu.Lock()
	assert.Equal(t, []int{2}, created.Categories)
	mu.Unlock()
	assert.Equal(t, "Hello", a.doc.Title())
	assert.Contains(t, a.text("post"), "World")
	assert.Equal(t, "No comments", a.text("comments"))
}

func TestPostComment(t *testing.T) {
	var comments []api.Comment
	posted := atomic.NewInt32(0)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.Post{ID: 5, Title: "Five"})
	})
	mux.HandleFunc("/api/posts/5/comments", func(w http.ResponseWriter, r *http.Request) {
		if posted.Load() > 0 {
			writeJSON(w, []api.Comment{{ID: 1, PostID: 5, Data: "nice", Author: api.Author{ID: 7, Username: "ada"}}})
			return
		}
		writeJSON(w, comments)
	})
	mux.HandleFunc("/api/comments/create", func(w http.ResponseWriter, r *http.Request) {
		var in api.NewCommentInput
		json.NewDecoder(r.Body).Decode(&in)
		if in.PostID == 5 && in.Data == "nice" {
			posted.Inc()
		}
		writeJSON(w, map[string]bool{"ok": true})
	})
	a := newApp(t, "/post/5", mux, true)
	assert.Equal(t, "No comments", a.text("comments"))

	a.el("comment-data").SetValue("nice")
	a.doc.Submit(a.el("comment-form"))
	require.Eventually(t, func() bool {
		return strings.Contains(a.text("comments"), "nice")
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), posted.Load())
	assert.Empty(t, a.el("comment-data").Value())
}

func TestPostFailureView(t *testing.T) {
	a := newApp(t, "/", postsMux(), true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := a.r.NavigateTo(ctx, "/post/abc", false)
	assert.ErrorIs(t, err, ui.ErrRenderFailure)
	assert.Equal(t, "/post/abc could not be displayed.", a.text("failure-message"))
	assert.Equal(t, "Error", a.doc.Title())
}

func TestNotFound(t *testing.T) {
	a := newApp(t, "/nowhere", postsMux(), false)
	assert.Equal(t, "Not Found", a.doc.Title())
	assert.Contains(t, a.el("app").InnerHTML(), "404")
}

func TestChats(t *testing.T) {
	auth := atomic.NewString("")
	sent := make(chan api.Message, 1)
	mux := postsMux()
	mux.HandleFunc("/api/chats/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.ChatUser{{ID: 2, Username: "bob"}, {ID: 3, Username: "eve"}})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()
		for {
			var msg api.Message
			if err := wsjson.Read(ctx, c, &msg); err != nil {
				return
			}
			switch msg.Type {
			case views.TypeOnline:
				if err := wsjson.Write(ctx, c, api.Message{Type: views.TypeOnline, OnlineIDs: []int{2}}); err != nil {
					return
				}
			case views.TypeMessage:
				select {
				case sent <- msg:
				default:
				}
			}
		}
	})
	a := newApp(t, "/chats", mux, true)

	_, ok := a.conns.Current()
	require.True(t, ok)
	assert.Equal(t, 1, a.timers.Len())
	assert.Equal(t, "Bearer "+a.store.Token(), auth.Load())

	require.Eventually(t, func() bool {
		return strings.Contains(a.el("chat-users").InnerHTML(), `class="chat-user online" id="chat-user-2"`)
	}, 2*time.Second, 5*time.Millisecond)

	a.doc.Click(a.el("chat-user-2"), headless.ClickOptions{})
	assert.Equal(t, "2", a.el("message-to").Value())
	a.el("message-text").SetValue("hi bob")
	a.doc.Submit(a.el("message-form"))

	select {
	case msg := <-sent:
		assert.Equal(t, 7, msg.From)
		assert.Equal(t, 2, msg.To)
		assert.Equal(t, "hi bob", msg.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("message not sent")
	}
	require.Eventually(t, func() bool {
		return strings.Contains(a.text("messages"), "hi bob")
	}, 2*time.Second, 5*time.Millisecond)

	a.navigate("/")
	_, ok = a.conns.Current()
	assert.False(t, ok)
	assert.Zero(t, a.timers.Len())
}
