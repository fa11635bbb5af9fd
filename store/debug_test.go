package store

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/undertow/effect"
	"github.com/odvcencio/undertow/stream"
)

type debugState struct {
	Count int
}

type debugAction struct {
	Name  string
	Delta int
}

func TestRenderDebug_NoStateChanges(t *testing.T) {
	record := renderDebug("app", debugAction{Name: "noop"}, debugState{Count: 1}, debugState{Count: 1}, nil)

	g := goldie.New(t)
	g.Assert(t, "debug_no_changes", []byte(record))
}

func TestRenderDebug_DiffNamesChangedFields(t *testing.T) {
	record := renderDebug("app", debugAction{Name: "bump", Delta: 1}, debugState{Count: 1}, debugState{Count: 2}, nil)

	assert.Contains(t, record, `received action: store.debugAction{Name:"bump", Delta:1}`)
	assert.Contains(t, record, "Count")
	for _, line := range strings.Split(record, "\n")[1:] {
		assert.True(t, strings.HasPrefix(line, "  "), "diff lines are indented: %q", line)
	}
}

func TestDebugWith_PrintsOneRecordPerAction(t *testing.T) {
	var records []string
	base := func(s *debugState, a debugAction, _ struct{}) effect.Effect[debugAction] {
		s.Count += a.Delta
		return effect.None[debugAction]()
	}
	r := DebugWith(base, "counter", DebugConfig{
		Enabled:   true,
		Printer:   func(msg string) { records = append(records, msg) },
		Scheduler: stream.Direct,
	})

	s := New(Config[debugState, debugAction, struct{}]{Reducer: r})
	defer s.Teardown()

	s.Send(debugAction{Name: "bump", Delta: 2})

	require.Len(t, records, 1)
	assert.Contains(t, records[0], "store[counter]")
	assert.Equal(t, 2, s.State().Count, "debug wrapping must not disturb state")
}

func TestDebugWith_DisabledReturnsReducerUntouched(t *testing.T) {
	calls := 0
	base := func(s *debugState, a debugAction, _ struct{}) effect.Effect[debugAction] {
		calls++
		return effect.None[debugAction]()
	}
	r := DebugWith(base, "counter", DebugConfig{})

	state := debugState{}
	r(&state, debugAction{}, struct{}{})
	assert.Equal(t, 1, calls)
}
