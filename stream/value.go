// Package stream provides the hot, replay-one observable primitive that
// stores and view stores are built on, together with the schedulers that
// move change notifications between goroutines.
package stream

import (
	"reflect"
	"sync"
)

// EqualFunc compares two values for equality.
type EqualFunc[T any] func(a, b T) bool

// EqualComparable compares comparable values with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

// EqualDeep compares values structurally. It is the default equality used
// by view stores when no predicate is supplied.
func EqualDeep[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

// NeverEqual always reports inequality, forcing every publish through.
func NeverEqual[T any](a, b T) bool {
	return false
}

// Observable emits its current value on subscription and every subsequent
// change.
type Observable[T any] interface {
	Observe(fn func(T)) func()
}

type observer[T any] struct {
	fn        func(T)
	scheduler Scheduler
}

// Value holds a current value and replays it to new observers.
//
// Observers registered with Observe receive the value held at subscription
// time, then every later value that survives the equality check. Writes
// are serialized by an internal lock; notification happens outside it.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	obs     map[int]observer[T]
	next    int
	equal   EqualFunc[T]
}

// NewValue creates a Value seeded with initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{current: initial}
}

// SetEqualFunc configures the equality check used to suppress redundant
// publishes. A nil func publishes every Set.
func (v *Value[T]) SetEqualFunc(fn EqualFunc[T]) {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.equal = fn
	v.mu.Unlock()
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	if v == nil {
		var zero T
		return zero
	}
	v.mu.Lock()
	current := v.current
	v.mu.Unlock()
	return current
}

// Set publishes a new value and notifies observers if it changed.
func (v *Value[T]) Set(value T) bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	if v.equal != nil && v.equal(v.current, value) {
		v.mu.Unlock()
		return false
	}
	v.current = value
	obs := v.copyObserversLocked()
	v.mu.Unlock()

	v.notify(value, obs)
	return true
}

// Update replaces the value using fn.
// fn runs outside the lock; Update is not atomic across goroutines.
func (v *Value[T]) Update(fn func(T) T) bool {
	if v == nil || fn == nil {
		return false
	}
	return v.Set(fn(v.Get()))
}

// Observe registers fn, replays the current value to it, and returns an
// unsubscribe func. Callbacks run synchronously on the publishing
// goroutine.
func (v *Value[T]) Observe(fn func(T)) func() {
	return v.ObserveWithScheduler(nil, fn)
}

// ObserveWithScheduler registers fn using a scheduler for delivery.
// If scheduler is nil, callbacks run synchronously. The replayed initial
// value is also delivered through the scheduler.
func (v *Value[T]) ObserveWithScheduler(scheduler Scheduler, fn func(T)) func() {
	if v == nil || fn == nil {
		return func() {}
	}
	v.mu.Lock()
	if v.obs == nil {
		v.obs = make(map[int]observer[T])
	}
	id := v.next
	v.next++
	v.obs[id] = observer[T]{fn: fn, scheduler: scheduler}
	current := v.current
	v.mu.Unlock()

	deliver(observer[T]{fn: fn, scheduler: scheduler}, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.obs, id)
			v.mu.Unlock()
		})
	}
}

func (v *Value[T]) copyObserversLocked() []observer[T] {
	if len(v.obs) == 0 {
		return nil
	}
	obs := make([]observer[T], 0, len(v.obs))
	for _, o := range v.obs {
		obs = append(obs, o)
	}
	return obs
}

func (v *Value[T]) notify(value T, obs []observer[T]) {
	for _, o := range obs {
		deliver(o, value)
	}
}

func deliver[T any](o observer[T], value T) {
	if o.fn == nil {
		return
	}
	if o.scheduler == nil {
		o.fn(value)
		return
	}
	o.scheduler.Schedule(func() { o.fn(value) })
}
