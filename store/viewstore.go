package store

import (
	"github.com/odvcencio/undertow/stream"
)

// ViewStore adapts a store for a display layer: it caches the last-seen
// state and forwards only changes that survive an equality check, so a
// view is never redrawn for a publish that did not alter what it shows.
//
// A ViewStore is not safe for concurrent use. Reads and Sends belong on
// the store's designated goroutine; effect output completing elsewhere
// must be redelivered there first (see Config.Redelivery).
type ViewStore[State, Action any] struct {
	store *Store[State, Action]
	value *stream.Value[State]
	unsub func()
}

// NewViewStore derives a deduplicating observer over s. A nil equal
// defaults to structural equality.
func NewViewStore[State, Action any](s *Store[State, Action], equal stream.EqualFunc[State]) *ViewStore[State, Action] {
	if equal == nil {
		equal = stream.EqualDeep[State]
	}
	vs := &ViewStore[State, Action]{
		store: s,
		value: stream.NewValue(s.State()),
	}
	vs.value.SetEqualFunc(equal)
	vs.unsub = s.Observe(func(state State) {
		vs.value.Set(state)
	})
	return vs
}

// State returns the cached state snapshot.
func (v *ViewStore[State, Action]) State() State {
	if v == nil {
		var zero State
		return zero
	}
	return v.value.Get()
}

// Send forwards an action to the underlying store.
func (v *ViewStore[State, Action]) Send(action Action) {
	if v == nil {
		return
	}
	v.store.Send(action)
}

// Observe registers fn for deduplicated state changes. fn receives the
// cached state immediately, then every state that differs from its
// predecessor under the view store's equality. Returns an unsubscribe
// func.
func (v *ViewStore[State, Action]) Observe(fn func(State)) func() {
	if v == nil {
		return func() {}
	}
	return v.value.Observe(fn)
}

// ObserveWithScheduler registers fn with delivery through a scheduler.
func (v *ViewStore[State, Action]) ObserveWithScheduler(scheduler stream.Scheduler, fn func(State)) func() {
	if v == nil {
		return func() {}
	}
	return v.value.ObserveWithScheduler(scheduler, fn)
}

// Teardown detaches the view store from its store. Effects registered
// under tokens introduced by this view's scope are the owner's to
// cancel.
func (v *ViewStore[State, Action]) Teardown() {
	if v == nil || v.unsub == nil {
		return
	}
	v.unsub()
}
