package effect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualClock_AdvanceFiresDueTimersInOrder(t *testing.T) {
	c := NewVirtualClock()

	var got []string
	c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(time.Second, func() { got = append(got, "a") })
	c.AfterFunc(3*time.Second, func() { got = append(got, "c") })

	c.Advance(2 * time.Second)
	require.Equal(t, []string{"a", "b"}, got)

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, c.Pending())
}

func TestVirtualClock_EqualDeadlinesFireFIFO(t *testing.T) {
	c := NewVirtualClock()

	var got []int
	c.AfterFunc(time.Second, func() { got = append(got, 1) })
	c.AfterFunc(time.Second, func() { got = append(got, 2) })

	c.Advance(time.Second)
	assert.Equal(t, []int{1, 2}, got)
}

func TestVirtualClock_CallbackMayScheduleMoreTimers(t *testing.T) {
	c := NewVirtualClock()

	var got []int
	var arm func(n int)
	arm = func(n int) {
		c.AfterFunc(time.Second, func() {
			got = append(got, n)
			arm(n + 1)
		})
	}
	arm(0)

	c.Advance(3 * time.Second)
	assert.Equal(t, []int{0, 1, 2}, got, "rescheduled timers fire within the same advance window")
}

func TestVirtualClock_StopPreventsFiring(t *testing.T) {
	c := NewVirtualClock()

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })
	require.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports not pending")

	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestVirtualClock_NowTracksAdvance(t *testing.T) {
	c := NewVirtualClock()
	start := c.Now()

	var at time.Time
	c.AfterFunc(time.Second, func() { at = c.Now() })
	c.Advance(5 * time.Second)

	assert.Equal(t, start.Add(time.Second), at, "Now reflects the firing timer's deadline")
	assert.Equal(t, start.Add(5*time.Second), c.Now())
}

func TestSystemClock_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	System.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, System.Now().IsZero())
}
