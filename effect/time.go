package effect

import (
	"sync"
	"time"
)

// Delay defers subscription to e by d on the given clock. Disposal
// before the delay elapses stops e from ever starting.
func Delay[Out any](e Effect[Out], d time.Duration, c Clock) Effect[Out] {
	if d <= 0 {
		return e
	}
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		var (
			mu        sync.Mutex
			sub       *Subscription
			cancelled bool
		)
		timer := c.AfterFunc(d, func() {
			mu.Lock()
			if cancelled {
				mu.Unlock()
				return
			}
			mu.Unlock()
			started := e.Subscribe(obs)
			mu.Lock()
			if cancelled {
				mu.Unlock()
				started.Cancel()
				return
			}
			sub = started
			mu.Unlock()
		})
		return func() {
			mu.Lock()
			cancelled = true
			started := sub
			mu.Unlock()
			timer.Stop()
			if started != nil {
				started.Cancel()
			}
		}
	}}
}

// Debounce delays e's start by d under token with cancel-in-flight
// semantics: subscribing a later debounced effect for the same token
// cancels an earlier one still waiting out its delay. The idiom is one
// debounced effect per triggering action, so only the last action in a
// burst takes effect.
func Debounce[Out any](e Effect[Out], token any, d time.Duration, c Clock) Effect[Out] {
	return Cancellable(Delay(e, d, c), token, true)
}

// Tick emits successive integers 0, 1, 2, ... every interval, starting
// one interval after subscription, until cancelled via token.
func Tick(token any, interval time.Duration, c Clock) Effect[int] {
	base := Effect[int]{start: func(obs Observer[int]) func() {
		t := &ticker{obs: obs, interval: interval, clock: c}
		t.arm()
		return t.stop
	}}
	return Cancellable(base, token, false)
}

type ticker struct {
	mu       sync.Mutex
	obs      Observer[int]
	interval time.Duration
	clock    Clock
	timer    Timer
	count    int
	stopped  bool
}

func (t *ticker) arm() {
	timer := t.clock.AfterFunc(t.interval, t.fire)
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		timer.Stop()
		return
	}
	t.timer = timer
	t.mu.Unlock()
}

func (t *ticker) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	n := t.count
	t.count++
	t.mu.Unlock()

	t.obs.Next(n)

	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped {
		t.arm()
	}
}

func (t *ticker) stop() {
	t.mu.Lock()
	t.stopped = true
	timer := t.timer
	t.timer = nil
	t.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// Throttle limits e's output rate to one value per interval, registered
// under token with cancel-in-flight semantics.
//
// The first value after an idle period emits immediately and opens a
// window. Values arriving inside the window are buffered, keeping just
// enough to serve either policy. When the window closes: with latest
// true the most recent buffered value emits, otherwise the first value
// seen in the window emits; either way a new window opens. A window
// that saw no values closes silently and the next value again emits
// immediately.
func Throttle[Out any](e Effect[Out], token any, interval time.Duration, latest bool, c Clock) Effect[Out] {
	base := Effect[Out]{start: func(obs Observer[Out]) func() {
		th := &throttler[Out]{obs: obs, interval: interval, latest: latest, clock: c}
		sub := e.Subscribe(Observer[Out]{
			Next: th.next,
			Complete: func() {
				th.stop()
				obs.Complete()
			},
			Fail: func(err error) {
				th.stop()
				obs.Fail(err)
			},
			interrupt: obs.interrupt,
		})
		return func() {
			th.stop()
			sub.Cancel()
		}
	}}
	return Cancellable(base, token, true)
}

type throttler[Out any] struct {
	mu       sync.Mutex
	obs      Observer[Out]
	interval time.Duration
	latest   bool
	clock    Clock
	timer    Timer
	window   bool
	buffered bool
	first    Out
	last     Out
	stopped  bool
}

func (t *throttler[Out]) next(v Out) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if t.window {
		if !t.buffered {
			t.first = v
			t.buffered = true
		}
		t.last = v
		t.mu.Unlock()
		return
	}
	t.window = true
	t.mu.Unlock()

	t.obs.Next(v)
	t.arm()
}

func (t *throttler[Out]) arm() {
	timer := t.clock.AfterFunc(t.interval, t.fire)
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		timer.Stop()
		return
	}
	t.timer = timer
	t.mu.Unlock()
}

func (t *throttler[Out]) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	if !t.buffered {
		// Idle window: the next value may emit immediately.
		t.window = false
		t.mu.Unlock()
		return
	}
	v := t.first
	if t.latest {
		v = t.last
	}
	var zero Out
	t.first, t.last = zero, zero
	t.buffered = false
	t.mu.Unlock()

	t.obs.Next(v)
	t.arm()
}

func (t *throttler[Out]) stop() {
	t.mu.Lock()
	t.stopped = true
	timer := t.timer
	t.timer = nil
	t.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}
