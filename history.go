package ui

import "sync"

/*

   Navigation History

*/

// NavHistory mirrors the browser session history of the application.
// (aka NavStack)
//
// Each entry is identified by its position, which is what the router stores
// as the browser history state. When the stack is full, the oldest entry is
// dropped and positions keep increasing.
type NavHistory struct {
	mu     sync.Mutex
	Stack  []string
	Cursor int
	Length int

	base int
}

func NewNavigationHistory() *NavHistory {
	n := &NavHistory{}
	n.Stack = make([]string, 0, 64)
	n.Cursor = -1
	n.Length = 1024
	return n
}

// Push adds an entry after the current one, discarding forward entries.
func (n *NavHistory) Push(URI string) *NavHistory {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Cursor++
	n.Stack = append(n.Stack[:n.Cursor], URI)
	if n.Length > 0 && len(n.Stack) > n.Length {
		n.Stack = n.Stack[1:]
		n.Cursor--
		n.base++
	}
	return n
}

// Replace substitutes the current entry. An empty history gets its first
// entry.
func (n *NavHistory) Replace(URI string) *NavHistory {
	n.mu.Lock()
	if n.Cursor < 0 {
		n.mu.Unlock()
		return n.Push(URI)
	}
	defer n.mu.Unlock()
	n.Stack[n.Cursor] = URI
	return n
}

// Seek moves the cursor to the entry at position pos, as reported by the
// browser after a back or forward move, and records URI for it.
// It reports false when pos is not a known entry, in which case the current
// entry is replaced instead.
func (n *NavHistory) Seek(pos int, URI string) bool {
	n.mu.Lock()
	idx := pos - n.base
	if idx < 0 || idx >= len(n.Stack) {
		n.mu.Unlock()
		n.Replace(URI)
		return false
	}
	defer n.mu.Unlock()
	n.Cursor = idx
	n.Stack[idx] = URI
	return true
}

func (n *NavHistory) Back() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Cursor > 0 {
		n.Cursor--
	}
	return n.current()
}

func (n *NavHistory) Forward() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Cursor < len(n.Stack)-1 {
		n.Cursor++
	}
	return n.current()
}

func (n *NavHistory) BackAllowed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Cursor > 0
}

func (n *NavHistory) ForwardAllowed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Cursor < len(n.Stack)-1
}

// Current returns the URI of the current entry.
func (n *NavHistory) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current()
}

func (n *NavHistory) current() string {
	if n.Cursor < 0 {
		return ""
	}
	return n.Stack[n.Cursor]
}

// Position returns the position of the current entry, -1 if empty.
func (n *NavHistory) Position() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Cursor < 0 {
		return -1
	}
	return n.base + n.Cursor
}

func (n *NavHistory) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Stack)
}
