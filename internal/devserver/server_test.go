package devserver

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atdiar/rtforum/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func site(t *testing.T, api string) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>index</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.wasm"), []byte("\x00asm"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "forum.css"), []byte("body{}"), 0o644))

	s, err := New(&config.DevServer{
		Addr:      "127.0.0.1:0",
		StaticDir: dir,
		Wasm:      filepath.Join(dir, "app.wasm"),
		Index:     filepath.Join(dir, "index.html"),
		API:       api,
	}, discard)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStaticRoutes(t *testing.T) {
	h := site(t, "http://127.0.0.1:1").Handler()

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "index"},
		{"/post/12", http.StatusOK, "index"},
		{"/user/3/", http.StatusOK, "index"},
		{"/css/forum.css", http.StatusOK, "body{}"},
		{"/css/missing.css", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Contains(t, rec.Body.String(), tt.body)
			}
		})
	}

	rec := get(t, h, "/app.wasm")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/wasm", rec.Header().Get("Content-Type"))
}

func TestAPIProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"path":"`+r.URL.Path+`","auth":"`+r.Header.Get("Authorization")+`"}`)
	}))
	defer upstream.Close()
	h := site(t, upstream.URL).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"/api/posts","auth":"Bearer t"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/sign-in", strings.NewReader("{}")))
	assert.JSONEq(t, `{"path":"/api/users/sign-in","auth":""}`, rec.Body.String())
}

func TestAPIProxyUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	rec := get(t, site(t, addr).Handler(), "/api/posts")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"API server unreachable"}`, rec.Body.String())
}

func TestNewRejectsBadUpstream(t *testing.T) {
	_, err := New(&config.DevServer{StaticDir: "web", API: "localhost"}, discard)
	assert.Error(t, err)
}

func TestMessageString(t *testing.T) {
	assert.Equal(t, "event: reload\ndata: a\ndata: b\n\n", Message{Event: "reload", Data: "a\nb"}.String())
	assert.Equal(t, "event: ping\ndata: \n\n", Message{Event: "ping"}.String())
	assert.Equal(t, "retry: 1000\n\n", Message{Retry: "1000"}.String())
}

func TestReloadStream(t *testing.T) {
	s := site(t, "http://127.0.0.1:1")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+ReloadPath, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return s.Broker.Clients() == 1 }, time.Second, 5*time.Millisecond)
	s.Broker.SendEvent("reload", "app.wasm")

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended")
			if line == "event: reload" {
				assert.Equal(t, "data: app.wasm", <-lines)
				return
			}
		case <-timeout:
			t.Fatal("no reload event")
		}
	}
}

func TestWatchDir(t *testing.T) {
	dir := t.TempDir()
	events := make(chan fsnotify.Event, 16)
	w, err := WatchDir(dir, 20*time.Millisecond, discard, func(evt fsnotify.Event) { events <- evt })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("b"), 0o644))

	select {
	case evt := <-events:
		assert.Equal(t, "index.html", filepath.Base(evt.Name))
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}

	sub := filepath.Join(dir, "css")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// let the watcher pick up the new directory and the burst settle
	time.Sleep(100 * time.Millisecond)
	for len(events) > 0 {
		<-events
	}
	require.NoError(t, os.WriteFile(filepath.Join(sub, "forum.css"), []byte("body{}"), 0o644))
	select {
	case evt := <-events:
		assert.Equal(t, "forum.css", filepath.Base(evt.Name))
	case <-time.After(2 * time.Second):
		t.Fatal("no event from the new directory")
	}
}

func TestListenAndServeStops(t *testing.T) {
	s := site(t, "http://127.0.0.1:1")
	s.Config.Watch = true
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}
