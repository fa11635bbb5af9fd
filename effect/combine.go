package effect

import "sync"

// Map transforms each output of e with f.
func Map[In, Out any](e Effect[In], f func(In) Out) Effect[Out] {
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		sub := e.Subscribe(Observer[In]{
			Next: func(v In) {
				obs.Next(f(v))
			},
			Complete:  obs.Complete,
			Fail:      obs.Fail,
			interrupt: obs.interrupt,
		})
		return sub.Cancel
	}}
}

// Merge runs the given effects in parallel. Outputs interleave in
// arrival order with no ordering guarantee across inputs. The merged
// effect completes when every input has completed; the first failure
// fails the merge and cancels the remaining inputs. A cancelled input
// counts as completed.
func Merge[Out any](effects ...Effect[Out]) Effect[Out] {
	switch len(effects) {
	case 0:
		return None[Out]()
	case 1:
		return effects[0]
	}
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		m := &merger[Out]{obs: obs, remaining: len(effects)}
		for _, e := range effects {
			if m.aborted() {
				break
			}
			m.add(e.Subscribe(Observer[Out]{
				Next:      obs.Next,
				Complete:  m.branchDone,
				Fail:      m.branchFailed,
				interrupt: m.branchDone,
			}))
		}
		return m.cancel
	}}
}

type merger[Out any] struct {
	mu        sync.Mutex
	obs       Observer[Out]
	remaining int
	failed    bool
	cancelled bool
	subs      []*Subscription
}

func (m *merger[Out]) add(sub *Subscription) {
	m.mu.Lock()
	if m.failed || m.cancelled {
		m.mu.Unlock()
		sub.Cancel()
		return
	}
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
}

func (m *merger[Out]) aborted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed || m.cancelled
}

func (m *merger[Out]) branchDone() {
	m.mu.Lock()
	m.remaining--
	last := m.remaining == 0 && !m.failed && !m.cancelled
	m.mu.Unlock()
	if last {
		m.obs.Complete()
	}
}

func (m *merger[Out]) branchFailed(err error) {
	m.mu.Lock()
	if m.failed || m.cancelled {
		m.mu.Unlock()
		return
	}
	m.failed = true
	subs := m.snapshotLocked()
	m.mu.Unlock()

	m.obs.Fail(err)
	for _, sub := range subs {
		sub.Cancel()
	}
}

func (m *merger[Out]) cancel() {
	m.mu.Lock()
	if m.cancelled {
		m.mu.Unlock()
		return
	}
	m.cancelled = true
	subs := m.snapshotLocked()
	m.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}

func (m *merger[Out]) snapshotLocked() []*Subscription {
	subs := make([]*Subscription, len(m.subs))
	copy(subs, m.subs)
	return subs
}

// Concat runs the given effects sequentially: each stage is subscribed
// only after the previous one completed, so outputs arrive strictly in
// stage order. A failing stage aborts the remaining stages.
func Concat[Out any](effects ...Effect[Out]) Effect[Out] {
	switch len(effects) {
	case 0:
		return None[Out]()
	case 1:
		return effects[0]
	}
	return Effect[Out]{start: func(obs Observer[Out]) func() {
		c := &sequencer[Out]{obs: obs, effects: effects}
		c.advance()
		return c.cancel
	}}
}

type sequencer[Out any] struct {
	mu        sync.Mutex
	obs       Observer[Out]
	effects   []Effect[Out]
	index     int
	current   *Subscription
	cancelled bool
	done      bool
}

func (c *sequencer[Out]) advance() {
	c.mu.Lock()
	if c.cancelled || c.done {
		c.mu.Unlock()
		return
	}
	if c.index >= len(c.effects) {
		c.done = true
		c.mu.Unlock()
		c.obs.Complete()
		return
	}
	e := c.effects[c.index]
	c.index++
	stage := c.index
	c.mu.Unlock()

	sub := e.Subscribe(Observer[Out]{
		Next:     c.obs.Next,
		Complete: c.advance,
		Fail: func(err error) {
			c.mu.Lock()
			c.done = true
			c.mu.Unlock()
			c.obs.Fail(err)
		},
		interrupt: c.obs.interrupt,
	})

	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		sub.Cancel()
		return
	}
	// A synchronous completion may already have advanced past this
	// stage; only the newest stage owns c.current.
	if c.index == stage {
		c.current = sub
	}
	c.mu.Unlock()
}

func (c *sequencer[Out]) cancel() {
	c.mu.Lock()
	c.cancelled = true
	current := c.current
	c.current = nil
	c.mu.Unlock()
	if current != nil {
		current.Cancel()
	}
}
