package effect

import (
	"sync"
	"time"
)

// Timer is a pending single-shot callback. Stop reports whether it was
// still pending.
type Timer interface {
	Stop() bool
}

// Clock schedules single-shot callbacks. Time-based combinators take an
// explicit Clock so tests can drive them with virtual time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// System schedules on the runtime timer heap using wall time.
var System Clock = systemClock{}

// VirtualClock is a deterministic Clock for tests. Time only moves when
// Advance is called; due callbacks fire synchronously inside Advance, in
// deadline order with FIFO tie-breaking.
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*virtualTimer
}

type virtualTimer struct {
	clock    *VirtualClock
	deadline time.Time
	seq      int
	fn       func()
}

// NewVirtualClock creates a virtual clock starting at the Unix epoch.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{now: time.Unix(0, 0).UTC()}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn to fire once d of virtual time has elapsed.
// A non-positive d fires on the next Advance, even Advance(0).
func (c *VirtualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &virtualTimer{
		clock:    c,
		deadline: c.now.Add(d),
		seq:      c.seq,
		fn:       fn,
	}
	c.seq++
	c.timers = append(c.timers, t)
	return t
}

// Advance moves virtual time forward by d, firing every timer that
// falls due, in order. Callbacks may schedule further timers; those are
// also fired if their deadlines fall within the advanced window.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		t := c.popDueLocked(target)
		if t == nil {
			break
		}
		if t.deadline.After(c.now) {
			c.now = t.deadline
		}
		c.mu.Unlock()
		t.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// popDueLocked removes and returns the earliest timer due at or before
// target, or nil.
func (c *VirtualClock) popDueLocked(target time.Time) *virtualTimer {
	best := -1
	for i, t := range c.timers {
		if t.deadline.After(target) {
			continue
		}
		if best < 0 || earlier(t, c.timers[best]) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	t := c.timers[best]
	c.timers = append(c.timers[:best], c.timers[best+1:]...)
	return t
}

func earlier(a, b *virtualTimer) bool {
	if a.deadline.Equal(b.deadline) {
		return a.seq < b.seq
	}
	return a.deadline.Before(b.deadline)
}

// Stop removes the timer if it has not fired yet.
func (t *virtualTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, pending := range c.timers {
		if pending == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of unfired timers, for tests.
func (c *VirtualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
