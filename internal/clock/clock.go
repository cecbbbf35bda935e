// Package clock provides an injectable time source so timers can be driven
// deterministically in tests.
//
// Production code uses Real(). Tests use Fake(start) and call Advance to fire
// any timers whose deadline has passed. Fake callbacks run synchronously
// inside Advance, in deadline order.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts the time operations the service depends on.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once d has elapsed. The returned Timer cancels it.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled call.
type Timer interface {
	// Stop prevents the call. It reports false if the call already ran or
	// was already stopped.
	Stop() bool
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// FakeClock is a manually advanced Clock. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	seq     int
	waiters []*fakeTimer
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	seq      int
	callback func()
	done     bool
}

// Fake returns a FakeClock that starts at initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to run when the clock is advanced past now+d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	timer := &fakeTimer{clock: c, deadline: c.current.Add(d), seq: c.seq, callback: f}
	c.waiters = append(c.waiters, timer)
	return timer
}

// Advance moves time forward by d and runs every timer that came due.
// Callbacks must not call Advance.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	var due []*fakeTimer
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		switch {
		case w.done:
		case !w.deadline.After(now):
			w.done = true
			due = append(due, w)
		default:
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if !due[i].deadline.Equal(due[j].deadline) {
			return due[i].deadline.Before(due[j].deadline)
		}
		return due[i].seq < due[j].seq
	})
	for _, w := range due {
		w.callback()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waiters {
		if !w.done {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
