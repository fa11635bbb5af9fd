package effect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_TransformsOutput(t *testing.T) {
	rec := &recorder[string]{}
	Map(Just(5), func(n int) string {
		return string(rune('a' + n))
	}).Subscribe(rec.observer())

	assert.Equal(t, []string{"f"}, rec.values)
	assert.True(t, rec.completed)
}

func TestMap_ForwardsFailure(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder[int]{}
	Map(FailWith[int](boom), func(n int) int { return n }).Subscribe(rec.observer())
	assert.ErrorIs(t, rec.failed, boom)
}

func TestMerge_CompletesWhenAllComplete(t *testing.T) {
	var a, b Observer[int]
	ea := Run(func(obs Observer[int]) func() { a = obs; return nil })
	eb := Run(func(obs Observer[int]) func() { b = obs; return nil })

	rec := &recorder[int]{}
	Merge(ea, eb).Subscribe(rec.observer())

	a.Next(1)
	b.Next(2)
	a.Next(3)
	assert.Equal(t, []int{1, 2, 3}, rec.values, "merge interleaves in arrival order")

	a.Complete()
	require.False(t, rec.completed, "merge waits for every input")
	b.Complete()
	assert.True(t, rec.completed)
}

func TestMerge_FirstFailureCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	var a Observer[int]
	siblingDown := false
	ea := Run(func(obs Observer[int]) func() { a = obs; return nil })
	eb := Run(func(obs Observer[int]) func() {
		return func() { siblingDown = true }
	})

	rec := &recorder[int]{}
	Merge(ea, eb).Subscribe(rec.observer())

	a.Fail(boom)
	assert.ErrorIs(t, rec.failed, boom)
	assert.True(t, siblingDown, "a failing input cancels its siblings")
}

func TestMerge_Empty(t *testing.T) {
	rec := &recorder[int]{}
	Merge[int]().Subscribe(rec.observer())
	assert.True(t, rec.completed)
}

func TestMerge_DisposeCancelsAllInputs(t *testing.T) {
	downA, downB := false, false
	ea := Run(func(obs Observer[int]) func() { return func() { downA = true } })
	eb := Run(func(obs Observer[int]) func() { return func() { downB = true } })

	sub := Merge(ea, eb).Subscribe(Observer[int]{})
	sub.Cancel()

	assert.True(t, downA)
	assert.True(t, downB)
}

func TestConcat_PreservesStageOrder(t *testing.T) {
	var a, b Observer[string]
	started := 0
	ea := Run(func(obs Observer[string]) func() { a = obs; started++; return nil })
	eb := Run(func(obs Observer[string]) func() { b = obs; started++; return nil })

	rec := &recorder[string]{}
	Concat(ea, eb).Subscribe(rec.observer())

	require.Equal(t, 1, started, "the second stage must not start early")
	a.Next("x")
	a.Complete()
	require.Equal(t, 2, started)
	b.Next("y")
	b.Complete()

	assert.Equal(t, []string{"x", "y"}, rec.values)
	assert.True(t, rec.completed)
}

func TestConcat_SynchronousStagesKeepOrder(t *testing.T) {
	rec := &recorder[int]{}
	Concat(Just(1), Just(2), Just(3)).Subscribe(rec.observer())

	assert.Equal(t, []int{1, 2, 3}, rec.values)
	assert.True(t, rec.completed)
}

func TestConcat_FailureAbortsRemainingStages(t *testing.T) {
	boom := errors.New("boom")
	secondStarted := false
	eb := Run(func(obs Observer[int]) func() {
		secondStarted = true
		return nil
	})

	rec := &recorder[int]{}
	Concat(FailWith[int](boom), eb).Subscribe(rec.observer())

	assert.ErrorIs(t, rec.failed, boom)
	assert.False(t, secondStarted)
}

func TestConcat_DisposeCancelsCurrentStage(t *testing.T) {
	down := false
	ea := Run(func(obs Observer[int]) func() { return func() { down = true } })
	secondStarted := false
	eb := Run(func(obs Observer[int]) func() {
		secondStarted = true
		return nil
	})

	sub := Concat(ea, eb).Subscribe(Observer[int]{})
	sub.Cancel()

	assert.True(t, down)
	assert.False(t, secondStarted)
}
