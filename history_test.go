package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavHistory(t *testing.T) {
	h := NewNavigationHistory()
	assert.Equal(t, -1, h.Position())
	assert.Equal(t, "", h.Current())

	h.Replace("/")
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 0, h.Position())

	h.Push("/a").Push("/b")
	assert.Equal(t, 2, h.Position())
	assert.True(t, h.BackAllowed())
	assert.False(t, h.ForwardAllowed())

	assert.Equal(t, "/a", h.Back())
	assert.True(t, h.ForwardAllowed())

	h.Push("/c")
	assert.Equal(t, []string{"/", "/a", "/c"}, h.Stack)
	assert.False(t, h.ForwardAllowed())
}

func TestNavHistorySeek(t *testing.T) {
	h := NewNavigationHistory()
	h.Replace("/")
	h.Push("/a")
	h.Push("/b")

	assert.True(t, h.Seek(0, "/"))
	assert.Equal(t, "/", h.Current())
	assert.Equal(t, 3, h.Len())

	assert.False(t, h.Seek(17, "/x"))
	assert.Equal(t, "/x", h.Current())
	assert.Equal(t, 3, h.Len())
}

func TestNavHistoryBounded(t *testing.T) {
	h := NewNavigationHistory()
	h.Length = 3
	for _, p := range []string{"/1", "/2", "/3", "/4", "/5"} {
		h.Push(p)
	}
	assert.Equal(t, []string{"/3", "/4", "/5"}, h.Stack)
	assert.Equal(t, 4, h.Position())

	assert.True(t, h.Seek(3, "/4"))
	assert.Equal(t, "/4", h.Current())
	assert.False(t, h.Seek(0, "/1"))
}
