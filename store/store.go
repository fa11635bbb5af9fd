package store

import (
	"sync"

	"github.com/odvcencio/undertow/effect"
	"github.com/odvcencio/undertow/stream"
)

// Store owns a state value and dispatches actions through a reducer.
// The root store holds the single authoritative state; scoped stores
// are projections that share the root's dispatch and state stream.
//
// Send is synchronous and must only be called from the store's
// designated goroutine. Effects may settle on arbitrary goroutines;
// configure Redelivery so their output re-enters Send on the designated
// one.
type Store[State, Action any] struct {
	value    *stream.Value[State]
	dispatch func(Action)
	teardown func()
}

// Config configures a root store.
type Config[State, Action, Env any] struct {
	InitialState State
	Reducer      Reducer[State, Action, Env]
	Environment  Env

	// Redelivery, when set, receives a callback per effect output; the
	// scheduler decides where the feedback Send runs. A stream.Queue
	// flushed by an event loop keeps all dispatch on one goroutine.
	// When nil, effect output re-enters Send on whatever goroutine the
	// effect emitted from.
	Redelivery stream.Scheduler
}

// New creates a root store owning initial state.
func New[State, Action, Env any](cfg Config[State, Action, Env]) *Store[State, Action] {
	core := &rootCore[State, Action, Env]{
		value:      stream.NewValue(cfg.InitialState),
		reducer:    cfg.Reducer,
		env:        cfg.Environment,
		redelivery: cfg.Redelivery,
		live:       make(map[*effect.Subscription]struct{}),
	}
	return &Store[State, Action]{
		value:    core.value,
		dispatch: core.send,
		teardown: core.cancelLive,
	}
}

// rootCore is the dispatch loop behind a root store.
type rootCore[State, Action, Env any] struct {
	value      *stream.Value[State]
	reducer    Reducer[State, Action, Env]
	env        Env
	redelivery stream.Scheduler
	reducing   bool

	liveMu sync.Mutex
	live   map[*effect.Subscription]struct{}
}

func (c *rootCore[State, Action, Env]) send(action Action) {
	if c.reducing {
		panic("store: Send called re-entrantly from within a reducer")
	}
	state := c.value.Get()
	var eff effect.Effect[Action]
	if c.reducer != nil {
		c.reducing = true
		eff = c.reducer(&state, action, c.env)
		c.reducing = false
	}
	c.value.Set(state)
	c.run(eff)
}

// run subscribes the effect returned by a reducer, feeding its outputs
// back into send. Failures are not surfaced here: a failing effect
// simply stops, and reducers that care wrap their work with
// effect.Catching.
func (c *rootCore[State, Action, Env]) run(eff effect.Effect[Action]) {
	sub := eff.Subscribe(effect.Observer[Action]{
		Next: func(action Action) {
			if c.redelivery != nil {
				c.redelivery.Schedule(func() { c.send(action) })
				return
			}
			c.send(action)
		},
	})
	if sub.Settled() {
		return
	}
	c.liveMu.Lock()
	c.live[sub] = struct{}{}
	c.liveMu.Unlock()
	sub.OnSettle(func() {
		c.liveMu.Lock()
		delete(c.live, sub)
		c.liveMu.Unlock()
	})
}

func (c *rootCore[State, Action, Env]) cancelLive() {
	c.liveMu.Lock()
	subs := make([]*effect.Subscription, 0, len(c.live))
	for sub := range c.live {
		subs = append(subs, sub)
	}
	c.liveMu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}

// State returns the current state.
func (s *Store[State, Action]) State() State {
	if s == nil {
		var zero State
		return zero
	}
	return s.value.Get()
}

// Send dispatches an action: the reducer runs synchronously on the
// calling goroutine, state updates, then the returned effect starts.
func (s *Store[State, Action]) Send(action Action) {
	if s == nil || s.dispatch == nil {
		return
	}
	s.dispatch(action)
}

// Observe registers fn on the state stream; it receives the current
// state immediately and then every published state. Returns an
// unsubscribe func.
func (s *Store[State, Action]) Observe(fn func(State)) func() {
	if s == nil {
		return func() {}
	}
	return s.value.Observe(fn)
}

// ObserveWithScheduler registers fn with delivery through a scheduler.
func (s *Store[State, Action]) ObserveWithScheduler(scheduler stream.Scheduler, fn func(State)) func() {
	if s == nil {
		return func() {}
	}
	return s.value.ObserveWithScheduler(scheduler, fn)
}

// Teardown releases the store. A root store cancels the effect
// subscriptions it is running; a scoped store detaches from its parent.
// Effects registered under cancellation tokens are not cancelled here:
// the scope that introduced a token owns cancelling it.
func (s *Store[State, Action]) Teardown() {
	if s == nil || s.teardown == nil {
		return
	}
	s.teardown()
}

// Scope derives a child store restricted to a substructure of the
// parent's state and action spaces. The child holds projection
// closures, not copied state: reads follow the parent's stream and
// sends embed into the parent's dispatch, so all mutation flows up to
// the root.
func Scope[PS, PA, CS, CA any](
	parent *Store[PS, PA],
	toChild func(PS) CS,
	fromChild func(CA) PA,
) *Store[CS, CA] {
	child := &Store[CS, CA]{
		value: stream.NewValue(toChild(parent.State())),
		dispatch: func(ca CA) {
			parent.Send(fromChild(ca))
		},
	}
	child.teardown = parent.Observe(func(ps PS) {
		child.value.Set(toChild(ps))
	})
	return child
}
