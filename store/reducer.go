// Package store provides the runtime side of unidirectional data flow:
// reducers compute state transitions and effects, stores own state and
// dispatch actions, view stores observe stores with deduplication.
package store

import (
	"fmt"

	"github.com/odvcencio/undertow/effect"
)

// Reducer computes the next state and a follow-up effect from the
// current state and an action. Reducers mutate state through the
// pointer and must otherwise be pure; all side effects belong in the
// returned effect.
type Reducer[State, Action, Env any] func(state *State, action Action, env Env) effect.Effect[Action]

// StateLens is an explicit get/set-back accessor pair projecting a
// child state out of a parent. Mutation flows back through Set so the
// parent remains the single owner; the child value is never an
// independent copy that can drift.
type StateLens[Parent, Child any] struct {
	Get func(Parent) Child
	Set func(*Parent, Child)
}

// ActionPrism embeds child actions into a parent action space. Extract
// is partial: it reports false for parent actions that carry no child
// action.
type ActionPrism[Parent, Child any] struct {
	Embed   func(Child) Parent
	Extract func(Parent) (Child, bool)
}

// Combine runs every reducer against the same state and action, in the
// listed order, and merges their effects to run in parallel. Each
// reducer sees the cumulative mutations of the reducers before it.
func Combine[S, A, E any](reducers ...Reducer[S, A, E]) Reducer[S, A, E] {
	return func(state *S, action A, env E) effect.Effect[A] {
		effects := make([]effect.Effect[A], 0, len(reducers))
		for _, r := range reducers {
			if r == nil {
				continue
			}
			effects = append(effects, r(state, action, env))
		}
		return effect.Merge(effects...)
	}
}

// Pullback lifts a reducer on a child domain to the parent domain: the
// lens projects state down and writes it back, the prism extracts the
// child action, envMap derives the child environment. Parent actions
// that do not extract are ignored.
func Pullback[PS, PA, PE, CS, CA, CE any](
	r Reducer[CS, CA, CE],
	state StateLens[PS, CS],
	action ActionPrism[PA, CA],
	envMap func(PE) CE,
) Reducer[PS, PA, PE] {
	return func(ps *PS, pa PA, pe PE) effect.Effect[PA] {
		ca, ok := action.Extract(pa)
		if !ok {
			return effect.None[PA]()
		}
		cs := state.Get(*ps)
		eff := r(&cs, ca, envMap(pe))
		state.Set(ps, cs)
		return effect.Map(eff, action.Embed)
	}
}

// ForEach lifts a per-element reducer over a slice-valued substructure.
// extract yields the element index and action; embed maps element
// actions from effects back into the parent action space.
//
// An out-of-range index means an action arrived for an element no
// longer present, which violates the caller's identity bookkeeping.
// ForEach panics rather than dropping the action.
func ForEach[PS, PA, PE, ES, EA, EE any](
	r Reducer[ES, EA, EE],
	state StateLens[PS, []ES],
	extract func(PA) (int, EA, bool),
	embed func(int, EA) PA,
	envMap func(PE) EE,
) Reducer[PS, PA, PE] {
	return func(ps *PS, pa PA, pe PE) effect.Effect[PA] {
		index, ea, ok := extract(pa)
		if !ok {
			return effect.None[PA]()
		}
		elems := state.Get(*ps)
		if index < 0 || index >= len(elems) {
			panic(fmt.Sprintf(
				"store: forEach received %T for index %d when the collection holds %d elements",
				pa, index, len(elems),
			))
		}
		eff := r(&elems[index], ea, envMap(pe))
		state.Set(ps, elems)
		return effect.Map(eff, func(ea EA) PA {
			return embed(index, ea)
		})
	}
}
