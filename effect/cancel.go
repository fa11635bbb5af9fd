package effect

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Tokens key the process-wide cancellation registry. Any value with
// stable equality and hashability works: strings, ints, struct values.
// Multiple effects may share one token; cancelling the token stops all
// of them.

// CancelToken returns a fresh unique token. Use it when no natural
// domain identity exists for an effect.
func CancelToken() string {
	return ulid.Make().String()
}

// registration is one live (token, subscription) pair in the registry.
type registration struct {
	token     any
	mu        sync.Mutex
	cancelFn  func()
	cancelled bool
}

// markCancelled closes the registration's output gate and returns the
// subscription teardown to invoke, if one was attached.
func (r *registration) markCancelled() func() {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return nil
	}
	r.cancelled = true
	fn := r.cancelFn
	r.cancelFn = nil
	r.mu.Unlock()
	return fn
}

// attach wires the live subscription's teardown into the registration.
// If the token was already cancelled during startup, the teardown runs
// immediately.
func (r *registration) attach(cancel func()) {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	r.cancelFn = cancel
	r.mu.Unlock()
}

func (r *registration) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// cancelRegistry maps tokens to the registrations of effects currently
// running under them. It is the only datum in the package mutated from
// arbitrary goroutines; every read-modify-write holds the mutex.
type cancelRegistry struct {
	mu      sync.Mutex
	entries map[any][]*registration
}

var shared = &cancelRegistry{entries: make(map[any][]*registration)}

func (r *cancelRegistry) add(reg *registration) {
	r.mu.Lock()
	r.entries[reg.token] = append(r.entries[reg.token], reg)
	r.mu.Unlock()
}

// remove drops reg from its token's entry, deleting the entry when reg
// was the last registration. Removing an absent registration is a no-op,
// which makes cleanup idempotent.
func (r *cancelRegistry) remove(reg *registration) {
	r.mu.Lock()
	regs := r.entries[reg.token]
	for i, candidate := range regs {
		if candidate == reg {
			regs = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(r.entries, reg.token)
	} else {
		r.entries[reg.token] = regs
	}
	r.mu.Unlock()
}

// cancelAll removes every registration under token and cancels each one.
// The output gates close before any teardown runs, so no output from a
// cancelled effect reaches downstream after cancelAll returns.
func (r *cancelRegistry) cancelAll(token any) {
	r.mu.Lock()
	regs := r.entries[token]
	delete(r.entries, token)
	r.mu.Unlock()

	teardowns := make([]func(), 0, len(regs))
	for _, reg := range regs {
		if fn := reg.markCancelled(); fn != nil {
			teardowns = append(teardowns, fn)
		}
	}
	for _, fn := range teardowns {
		fn()
	}
}

// liveCount reports the registrations currently held under token.
func (r *cancelRegistry) liveCount(token any) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries[token])
}

// Cancellable assigns token as e's identity in the cancellation
// registry. While the returned effect runs, Cancel(token) stops it. If
// cancelInFlight is true, subscribing first cancels everything already
// registered under token, enforcing single occupancy. The registration
// is removed when the effect completes, fails, is cancelled by token, or
// is disposed by its own subscriber.
func Cancellable[Out any](e Effect[Out], token any, cancelInFlight bool) Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		if cancelInFlight {
			shared.cancelAll(token)
		}
		reg := &registration{token: token}
		shared.add(reg)

		sub := e.Subscribe(Observer[Out]{
			Next: func(v Out) {
				// Drop output that was already in flight when the
				// token was cancelled.
				if reg.isCancelled() {
					return
				}
				obs.Next(v)
			},
			Complete: func() {
				shared.remove(reg)
				obs.Complete()
			},
			Fail: func(err error) {
				shared.remove(reg)
				obs.Fail(err)
			},
			interrupt: obs.interrupt,
		})

		interrupt := obs.interrupt
		reg.attach(func() {
			sub.Cancel()
			// Settle the downstream subscription too; registry
			// cancellation is silent but not invisible.
			if interrupt != nil {
				interrupt()
			}
		})

		return func() {
			shared.remove(reg)
			reg.markCancelled()
			sub.Cancel()
		}
	}}
}

// Cancel returns an effect that cancels every effect currently
// registered under token, then completes with no output. Cancelling a
// token with no live registrations is a successful no-op. The returned
// effect is itself not cancellable.
func Cancel[Out any](token any) Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		shared.cancelAll(token)
		obs.Complete()
		return nil
	}}
}
