package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var blank = StaticView("", "")

func TestRouteTableSpecificity(t *testing.T) {
	table := MustRouteTable(
		Route{Pattern: "/users/:id", View: blank, Name: "profile"},
		Route{Pattern: "/users/new", View: blank, Name: "new-user"},
		Route{Pattern: "/*/edit", View: blank, Name: "edit"},
		Route{Pattern: "/posts/:id/edit", View: blank, Name: "edit-post"},
		Route{Pattern: "/", View: blank, Name: "home"},
	)

	cases := []struct {
		path   string
		name   string
		params Params
	}{
		{"/", "home", Params{}},
		{"/users/new", "new-user", Params{}},
		{"/users/42", "profile", Params{"id": "42"}},
		{"/users/edit", "profile", Params{"id": "edit"}},
		{"/drafts/edit", "edit", Params{"param1": "drafts"}},
		{"/posts/7/edit", "edit-post", Params{"id": "7"}},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			m, err := table.Match(c.path)
			require.NoError(t, err)
			assert.Equal(t, c.name, m.Route.Name)
			assert.Equal(t, c.params, m.Params)
		})
	}
}

func TestRouteTableNotFound(t *testing.T) {
	table := MustRouteTable(Route{Pattern: "/post/:id", View: blank})
	for _, p := range []string{"/post", "/post/1/2", "/other", "/post/a%20b"} {
		_, err := table.Match(p)
		assert.True(t, errors.Is(err, ErrRouteNotFound), p)
	}
}

func TestRouteTableRejectsBadRoutes(t *testing.T) {
	_, err := NewRouteTable(Route{Pattern: "/a/:id", View: blank}, Route{Pattern: "/a/:name", View: blank})
	assert.Error(t, err)

	_, err = NewRouteTable(Route{Pattern: "/a/:id/:id", View: blank})
	assert.ErrorIs(t, err, ErrMalformedPath)

	_, err = NewRouteTable(Route{Pattern: "relative", View: blank})
	assert.ErrorIs(t, err, ErrMalformedPath)

	_, err = NewRouteTable(Route{Pattern: "/no-view"})
	assert.Error(t, err)

	assert.Panics(t, func() { MustRouteTable(Route{Pattern: "/x?y", View: blank}) })
}

func TestLink(t *testing.T) {
	l, err := Link("/post/:id", Params{"id": "12"})
	require.NoError(t, err)
	assert.Equal(t, "/post/12", l)

	l, err = Link("/*/edit", Params{"param1": "drafts"})
	require.NoError(t, err)
	assert.Equal(t, "/drafts/edit", l)

	_, err = Link("/post/:id", Params{})
	assert.Error(t, err)
	_, err = Link("/post/:id", Params{"id": "../x"})
	assert.Error(t, err)
}

func TestValidatePath(t *testing.T) {
	for _, p := range []string{"/", "/a/b", "/a?x=1", "/a#top", "/a/"} {
		assert.NoError(t, validatePath(p), p)
	}
	for _, p := range []string{"", "a", "//evil.com", "/a//b", "/a b", `/a\b`, "javascript:alert(1)"} {
		assert.ErrorIs(t, validatePath(p), ErrMalformedPath, p)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/a", normalize("/a/?x=1#f", false))
	assert.Equal(t, "/a/", normalize("/a/?x=1", true))
	assert.Equal(t, "/", normalize("/?x", false))
	assert.Equal(t, "/", normalize("/#top", false))
}

func TestParseAccess(t *testing.T) {
	for _, a := range []Access{AccessAny, AccessAnonymous, AccessAuthenticated} {
		got, err := ParseAccess(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := ParseAccess("")
	require.NoError(t, err)
	assert.Equal(t, AccessAny, got)
	_, err = ParseAccess("admin")
	assert.Error(t, err)
}
