package stream

import "sync"

// Subscriptions tracks and clears multiple unsubscribe callbacks. A scope
// that derives stores and view stores collects their teardowns here and
// clears the bag when the scope is torn down.
type Subscriptions struct {
	mu     sync.Mutex
	unsubs []func()
	sched  Scheduler
}

// NewSubscriptions creates a Subscriptions with a default scheduler.
func NewSubscriptions(scheduler Scheduler) *Subscriptions {
	return &Subscriptions{sched: scheduler}
}

// SetScheduler updates the default scheduler.
func (s *Subscriptions) SetScheduler(scheduler Scheduler) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.sched = scheduler
	s.mu.Unlock()
}

// Scheduler returns the default scheduler.
func (s *Subscriptions) Scheduler() Scheduler {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	scheduler := s.sched
	s.mu.Unlock()
	return scheduler
}

// Add registers an unsubscribe callback.
func (s *Subscriptions) Add(unsub func()) {
	if s == nil || unsub == nil {
		return
	}
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
}

// Clear unsubscribes all tracked callbacks in registration order.
func (s *Subscriptions) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}

// ObserveValue registers fn on v using the default scheduler and tracks
// the unsubscribe.
func ObserveValue[T any](s *Subscriptions, v *Value[T], fn func(T)) {
	if s == nil || v == nil || fn == nil {
		return
	}
	s.Add(v.ObserveWithScheduler(s.Scheduler(), fn))
}
