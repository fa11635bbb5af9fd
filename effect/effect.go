// Package effect models asynchronous, cancellable units of work. An
// Effect produces zero or more outputs and settles exactly once as
// completed, failed, or cancelled. Effects carry no identity of their
// own; identity is assigned with Cancellable and a token.
package effect

import (
	"sync"
	"sync/atomic"
)

// Observer receives the outputs of a running effect. Any field may be
// nil; missing callbacks are skipped.
type Observer[Out any] struct {
	Next     func(Out)
	Complete func()
	Fail     func(error)

	// interrupt is wired by Subscribe so that upstream cancellation
	// (for example a registry cancel) can settle the downstream
	// subscription without delivering a terminal callback.
	interrupt func()
}

// Effect is a producer of Out values ending in completion or failure.
// The zero Effect completes immediately with no output.
type Effect[Out any] struct {
	start func(Observer[Out]) func()
}

// Subscription tracks one running effect. It settles exactly once:
// completed, failed, or cancelled. All delivery to the subscribing
// observer stops the moment the subscription settles.
type Subscription struct {
	mu            sync.Mutex
	state         subState
	err           error
	delivering    int
	pendingCancel bool
	dispose       func()
	finished      bool
	done          chan struct{}
	settlers      []func()
}

type subState int

const (
	subActive subState = iota
	subCompleted
	subFailed
	subCancelled
)

// Subscribe starts the effect and returns its subscription. Constructors
// may emit synchronously before Subscribe returns.
func (e Effect[Out]) Subscribe(obs Observer[Out]) *Subscription {
	sub := &Subscription{done: make(chan struct{})}
	gated := Observer[Out]{
		Next: func(v Out) {
			sub.mu.Lock()
			if sub.state != subActive {
				sub.mu.Unlock()
				return
			}
			sub.delivering++
			sub.mu.Unlock()

			if obs.Next != nil {
				obs.Next(v)
			}

			sub.mu.Lock()
			sub.delivering--
			finish := sub.pendingCancel && sub.delivering == 0
			sub.mu.Unlock()
			if finish {
				sub.finish()
			}
		},
		Complete: func() {
			if sub.settle(subCompleted, nil) {
				if obs.Complete != nil {
					obs.Complete()
				}
				sub.finish()
			}
		},
		Fail: func(err error) {
			if sub.settle(subFailed, err) {
				if obs.Fail != nil {
					obs.Fail(err)
				}
				sub.finish()
			}
		},
		interrupt: func() {
			sub.Cancel()
			if obs.interrupt != nil {
				obs.interrupt()
			}
		},
	}
	if e.start == nil {
		gated.Complete()
		return sub
	}
	dispose := e.start(gated)
	sub.attachDispose(dispose)
	return sub
}

// Cancel settles the subscription as cancelled and tears the producer
// down. No output is delivered after Cancel returns, even output already
// in flight on another goroutine. Cancelling a settled subscription is a
// no-op. Cancellation is silent: no terminal callback fires.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.state != subActive {
		s.mu.Unlock()
		return
	}
	s.state = subCancelled
	if s.delivering > 0 {
		// A delivery that already passed the gate finishes first;
		// the delivering goroutine runs teardown on its way out.
		s.pendingCancel = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.finish()
}

// Done is closed once the subscription has settled and torn down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure the effect settled with, or nil. Cancellation
// is not an error.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancelled reports whether the subscription settled by cancellation.
func (s *Subscription) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == subCancelled
}

// Settled reports whether the subscription has reached a terminal state.
func (s *Subscription) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != subActive
}

// OnSettle registers fn to run after the subscription settles and its
// teardown has completed. If the subscription already settled, fn runs
// immediately.
func (s *Subscription) OnSettle(fn func()) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	if !s.finished {
		s.settlers = append(s.settlers, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

func (s *Subscription) settle(state subState, err error) bool {
	s.mu.Lock()
	if s.state != subActive {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.err = err
	s.mu.Unlock()
	return true
}

func (s *Subscription) finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	dispose := s.dispose
	s.dispose = nil
	settlers := s.settlers
	s.settlers = nil
	s.mu.Unlock()

	if dispose != nil {
		dispose()
	}
	close(s.done)
	for _, fn := range settlers {
		fn()
	}
}

func (s *Subscription) attachDispose(dispose func()) {
	if dispose == nil {
		return
	}
	s.mu.Lock()
	if s.finished {
		// Settled synchronously inside start; run teardown now.
		s.mu.Unlock()
		dispose()
		return
	}
	s.dispose = dispose
	s.mu.Unlock()
}

// None completes immediately with no output.
func None[Out any]() Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		obs.Complete()
		return nil
	}}
}

// Just emits value then completes.
func Just[Out any](value Out) Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		obs.Next(value)
		obs.Complete()
		return nil
	}}
}

// FailWith fails immediately with err.
func FailWith[Out any](err error) Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		obs.Fail(err)
		return nil
	}}
}

// Future adapts a one-shot asynchronous callback API. The resolver is
// invoked once per subscription and must eventually call resolve or
// reject exactly once; later invocations of either are ignored.
func Future[Out any](resolver func(resolve func(Out), reject func(error))) Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		if resolver == nil {
			obs.Complete()
			return nil
		}
		var once atomic.Bool
		resolver(
			func(v Out) {
				if !once.CompareAndSwap(false, true) {
					return
				}
				obs.Next(v)
				obs.Complete()
			},
			func(err error) {
				if !once.CompareAndSwap(false, true) {
					return
				}
				obs.Fail(err)
			},
		)
		return nil
	}}
}

// Run adapts an arbitrary multi-value producer. The producer receives
// the observer and returns a teardown hook invoked when the
// subscription settles, or nil when there is nothing to tear down.
func Run[Out any](producer func(obs Observer[Out]) func()) Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		if producer == nil {
			obs.Complete()
			return nil
		}
		return producer(obs)
	}}
}

// FireAndForget executes work for its side effect when subscribed. It
// never emits and always completes.
func FireAndForget[Out any](work func()) Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		if work != nil {
			work()
		}
		obs.Complete()
		return nil
	}}
}

// Result carries the outcome of fallible work as a plain value, so a
// reducer can map failures into actions instead of losing them on the
// failure channel.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the result carries a value.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Catching runs work when subscribed and emits its outcome as a Result.
// The effect itself always completes; the error travels inside the
// emitted value.
func Catching[Out any](work func() (Out, error)) Effect[Result[Out]] {
	return Effect[Result[Out]]{start: func(obs Observer[Result[Out]]) func() {
		if work == nil {
			obs.Complete()
			return nil
		}
		v, err := work()
		obs.Next(Result[Out]{Value: v, Err: err})
		obs.Complete()
		return nil
	}}
}
