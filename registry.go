package ui

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Connection is a long-lived bidirectional channel, typically a websocket.
type Connection interface {
	Close() error
}

// Timer is a recurring timer.
type Timer interface {
	Stop()
}

// TimerID identifies a timer tracked by a TimerRegistry.
type TimerID uint64

var (
	// Connections holds the single shared connection of the application.
	Connections = NewConnectionRegistry()

	// Timers tracks every recurring timer started by the mounted views.
	Timers = NewTimerRegistry()
)

// ConnectionRegistry holds at most one open Connection.
// Views register the connection they open during Init. The router releases
// it when the view is unmounted, whichever view opened it.
type ConnectionRegistry struct {
	mu   sync.Mutex
	conn Connection
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{}
}

// Register makes c the shared connection. A previously registered connection
// is closed first.
func (r *ConnectionRegistry) Register(c Connection) error {
	r.mu.Lock()
	old := r.conn
	r.conn = c
	r.mu.Unlock()
	if old == nil || old == c {
		return nil
	}
	if err := closeConnection(old); err != nil {
		return fmt.Errorf("%w: closing replaced connection: %w", ErrCleanupFailure, err)
	}
	return nil
}

// Current returns the registered connection if any.
func (r *ConnectionRegistry) Current() (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn, r.conn != nil
}

// ReleaseAll closes the registered connection and forgets it.
// It is a no-op when nothing is registered.
func (r *ConnectionRegistry) ReleaseAll() error {
	r.mu.Lock()
	c := r.conn
	r.conn = nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	if err := closeConnection(c); err != nil {
		return fmt.Errorf("%w: closing connection: %w", ErrCleanupFailure, err)
	}
	return nil
}

func closeConnection(c Connection) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.Close()
}

// TimerRegistry is the set of active recurring timers.
// ReleaseAll clears every entry regardless of which view created it.
type TimerRegistry struct {
	mu     sync.Mutex
	next   TimerID
	timers map[TimerID]Timer
}

func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{timers: make(map[TimerID]Timer)}
}

// Register tracks t until it is cancelled or the registry is released.
func (t *TimerRegistry) Register(tm Timer) TimerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.timers[t.next] = tm
	return t.next
}

// Every calls fn every d until the timer is cancelled, and registers that
// timer.
func (t *TimerRegistry) Every(d time.Duration, fn func()) TimerID {
	return t.Register(newInterval(d, fn))
}

// Cancel stops and forgets a single timer.
func (t *TimerRegistry) Cancel(id TimerID) bool {
	t.mu.Lock()
	tm, ok := t.timers[id]
	delete(t.timers, id)
	t.mu.Unlock()
	if ok {
		tm.Stop()
	}
	return ok
}

// Len returns the number of tracked timers.
func (t *TimerRegistry) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// ReleaseAll stops every tracked timer and empties the set.
func (t *TimerRegistry) ReleaseAll() error {
	t.mu.Lock()
	timers := t.timers
	t.timers = make(map[TimerID]Timer)
	t.mu.Unlock()

	var errs []error
	for id, tm := range timers {
		if err := stopTimer(tm); err != nil {
			errs = append(errs, fmt.Errorf("timer %d: %w", id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCleanupFailure, errors.Join(errs...))
	}
	return nil
}

func stopTimer(tm Timer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	tm.Stop()
	return nil
}

type interval struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func newInterval(d time.Duration, fn func()) *interval {
	i := &interval{ticker: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-i.done:
				return
			case <-i.ticker.C:
				select {
				case <-i.done:
					return
				default:
				}
				fn()
			}
		}
	}()
	return i
}

func (i *interval) Stop() {
	i.once.Do(func() {
		i.ticker.Stop()
		close(i.done)
	})
}
