package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/odvcencio/undertow/effect"
	"github.com/odvcencio/undertow/stream"
)

// Printer receives one rendered debug record per dispatched action.
type Printer func(string)

// StderrPrinter writes records to standard error.
func StderrPrinter(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// DebugConfig configures action/state-diff logging for a reducer. The
// zero value is disabled; enabling is an explicit decision made where
// the root reducer is composed, typically keyed on the build profile.
type DebugConfig struct {
	Enabled bool

	// Printer defaults to StderrPrinter.
	Printer Printer

	// Scheduler moves rendering-output delivery off the dispatch
	// goroutine. Defaults to stream.Async.
	Scheduler stream.Scheduler

	// DiffOpts are passed through to cmp.Diff; supply cmp.Exporter or
	// cmpopts helpers when state carries unexported fields.
	DiffOpts []cmp.Option
}

// DebugWith wraps r so every action it handles is printed together with
// the resulting state diff. Rendering captures both state snapshots
// synchronously during dispatch; delivery to the printer rides a
// fire-and-forget effect merged with the reducer's own, scheduled off
// the dispatch goroutine. Purely observational: state and control flow
// are untouched.
func DebugWith[S, A, E any](r Reducer[S, A, E], name string, cfg DebugConfig) Reducer[S, A, E] {
	if !cfg.Enabled || r == nil {
		return r
	}
	printer := cfg.Printer
	if printer == nil {
		printer = StderrPrinter
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = stream.Async{}
	}
	return func(state *S, action A, env E) effect.Effect[A] {
		before := *state
		eff := r(state, action, env)
		after := *state
		record := renderDebug(name, action, before, after, cfg.DiffOpts)
		return effect.Merge(eff, effect.FireAndForget[A](func() {
			scheduler.Schedule(func() {
				printer(record)
			})
		}))
	}
}

func renderDebug[S, A any](name string, action A, before, after S, opts []cmp.Option) string {
	var b strings.Builder
	fmt.Fprintf(&b, "store[%s]: received action: %#v\n", name, action)
	diff := cmp.Diff(before, after, opts...)
	if diff == "" {
		b.WriteString("  (no state changes)")
		return b.String()
	}
	for i, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  ")
		b.WriteString(line)
	}
	return b.String()
}
