package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ObserveReplaysCurrent(t *testing.T) {
	v := NewValue(7)

	var got []int
	unsub := v.Observe(func(n int) { got = append(got, n) })
	defer unsub()

	require.Equal(t, []int{7}, got, "observer should see the current value at subscription")

	v.Set(8)
	assert.Equal(t, []int{7, 8}, got)
}

func TestValue_EqualFuncSuppressesRedundantPublishes(t *testing.T) {
	v := NewValue(5)
	v.SetEqualFunc(EqualComparable[int])

	calls := 0
	unsub := v.Observe(func(int) { calls++ })
	defer unsub()
	require.Equal(t, 1, calls)

	assert.False(t, v.Set(5), "setting an equal value should report no change")
	assert.Equal(t, 1, calls)

	assert.True(t, v.Set(6))
	assert.Equal(t, 2, calls)
}

func TestValue_Update(t *testing.T) {
	v := NewValue(1)
	v.SetEqualFunc(EqualComparable[int])

	assert.True(t, v.Update(func(n int) int { return n + 1 }))
	assert.Equal(t, 2, v.Get())
	assert.False(t, v.Update(func(n int) int { return n }))
	assert.False(t, v.Update(nil))
}

func TestValue_UnsubscribeStopsDelivery(t *testing.T) {
	v := NewValue("a")

	calls := 0
	unsub := v.Observe(func(string) { calls++ })
	require.Equal(t, 1, calls)

	unsub()
	unsub() // idempotent
	v.Set("b")
	assert.Equal(t, 1, calls)
}

func TestValue_ObserveWithSchedulerDefersDelivery(t *testing.T) {
	v := NewValue(1)
	q := NewQueue()

	var got []int
	unsub := v.ObserveWithScheduler(q, func(n int) { got = append(got, n) })
	defer unsub()

	require.Empty(t, got, "replay should ride the scheduler too")
	v.Set(2)
	require.Empty(t, got)

	require.Equal(t, 2, q.Flush())
	assert.Equal(t, []int{1, 2}, got)
}

func TestValue_NilReceiver(t *testing.T) {
	var v *Value[int]
	assert.Equal(t, 0, v.Get())
	assert.False(t, v.Set(1))
	unsub := v.Observe(func(int) {})
	require.NotNil(t, unsub)
	unsub()
}

func TestEqualDeep(t *testing.T) {
	type pair struct{ A, B []int }
	assert.True(t, EqualDeep(pair{A: []int{1}}, pair{A: []int{1}}))
	assert.False(t, EqualDeep(pair{A: []int{1}}, pair{A: []int{2}}))
	assert.False(t, NeverEqual(1, 1))
}
