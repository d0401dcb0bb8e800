package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ui "github.com/atdiar/rtforum"
)

// echoServer sends back every message it receives and reports the
// Authorization header of each connection.
func echoServer(t *testing.T, auth chan<- string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth != nil {
			auth <- r.Header.Get("Authorization")
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		for {
			typ, msg, err := c.Read(r.Context())
			if err != nil {
				return
			}
			if err := c.Write(r.Context(), typ, msg); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialSendReceive(t *testing.T) {
	auth := make(chan string, 1)
	srv := echoServer(t, auth)
	defer srv.Close()

	reg := ui.NewConnectionRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv), WithRegistry(reg), WithToken("tok"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", <-auth)

	current, ok := reg.Current()
	require.True(t, ok)
	assert.Same(t, c, current)

	require.NoError(t, c.SendJSON(ctx, map[string]string{"type": "ping"}))
	select {
	case msg := <-c.Messages():
		assert.JSONEq(t, `{"type":"ping"}`, string(msg))
	case <-ctx.Done():
		t.Fatal("no echo")
	}

	require.NoError(t, reg.ReleaseAll())
	select {
	case <-c.Done():
	case <-ctx.Done():
		t.Fatal("connection not terminated")
	}
	_, open := <-c.Messages()
	assert.False(t, open)
	assert.NoError(t, c.Close())
}

func TestDialReplacesSharedConnection(t *testing.T) {
	srv := echoServer(t, nil)
	defer srv.Close()

	reg := ui.NewConnectionRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := Dial(ctx, wsURL(srv), WithRegistry(reg))
	require.NoError(t, err)
	second, err := Dial(ctx, wsURL(srv), WithRegistry(reg))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())

	select {
	case <-first.Done():
	case <-ctx.Done():
		t.Fatal("replaced connection still open")
	}
	current, _ := reg.Current()
	assert.Same(t, second, current)
	require.NoError(t, reg.ReleaseAll())
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	reg := ui.NewConnectionRegistry()
	_, err := Dial(context.Background(), wsURL(srv), WithRegistry(reg))
	assert.Error(t, err)
	_, ok := reg.Current()
	assert.False(t, ok)
}
