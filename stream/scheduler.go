package stream

import "sync"

// Scheduler dispatches observer callbacks.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(func())

// Schedule dispatches fn using the wrapped function.
func (f SchedulerFunc) Schedule(fn func()) {
	if f == nil || fn == nil {
		return
	}
	f(fn)
}

// Direct runs callbacks immediately in the caller goroutine.
var Direct Scheduler = SchedulerFunc(func(fn func()) {
	if fn != nil {
		fn()
	}
})

// Async runs callbacks in a new goroutine.
type Async struct{}

// Schedule dispatches fn asynchronously.
func (Async) Schedule(fn func()) {
	if fn == nil {
		return
	}
	go fn()
}

// Queue batches callbacks for explicit flushing. A store's owner flushes
// the queue on its designated goroutine, which is how effect output that
// completed on a worker goroutine is redelivered before becoming an
// action.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    func()
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// SetWake configures a callback invoked after a schedule transitions the
// queue from empty to non-empty. Event loops use it to post a wakeup.
func (q *Queue) SetWake(fn func()) {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.wake = fn
	q.mu.Unlock()
}

// Schedule enqueues a callback for later flushing.
func (q *Queue) Schedule(fn func()) {
	if q == nil || fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	wake := q.wake
	wasEmpty := len(q.pending) == 1
	q.mu.Unlock()
	if wasEmpty && wake != nil {
		wake()
	}
}

// Flush executes queued callbacks and returns the count.
func (q *Queue) Flush() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}
