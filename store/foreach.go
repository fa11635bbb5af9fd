package store

import (
	"github.com/odvcencio/undertow/stream"
)

// ReloadCondition decides whether a same-identity element change should
// force the child-store array to be republished.
type ReloadCondition[Elem any] func(old, new Elem) bool

// NeverReload keeps the published child-store array stable across
// same-identity element mutations; per-element changes still flow into
// the affected child's state stream.
func NeverReload[Elem any](old, new Elem) bool {
	return false
}

// ScopeForEach derives one child store per element of a slice-valued
// substructure. The returned value publishes the child-store array; it
// is republished only when the element count changes, an element's
// identity changes, or reload holds for a same-identity element. A
// per-element mutation that triggers none of those updates the affected
// child's state in place, leaving every sibling store reference intact.
//
// The teardown func detaches from the parent and retires the children.
// Like the parent's state stream, the published array must be consumed
// on the store's designated goroutine.
func ScopeForEach[PS, PA, Elem, EA any](
	parent *Store[PS, PA],
	toElems func(PS) []Elem,
	id func(Elem) any,
	embed func(index int, action EA) PA,
	reload ReloadCondition[Elem],
) (*stream.Value[[]*Store[Elem, EA]], func()) {
	scope := &forEachScope[PS, PA, Elem, EA]{
		parent: parent,
		embed:  embed,
		id:     id,
		reload: reload,
		out:    stream.NewValue[[]*Store[Elem, EA]](nil),
	}
	unsub := parent.Observe(func(ps PS) {
		scope.apply(toElems(ps))
	})
	return scope.out, func() {
		unsub()
		scope.retire()
	}
}

type forEachScope[PS, PA, Elem, EA any] struct {
	parent   *Store[PS, PA]
	embed    func(int, EA) PA
	id       func(Elem) any
	reload   ReloadCondition[Elem]
	out      *stream.Value[[]*Store[Elem, EA]]
	elems    []Elem
	ids      []any
	children []*Store[Elem, EA]
	seeded   bool
	retired  bool
}

func (s *forEachScope[PS, PA, Elem, EA]) apply(elems []Elem) {
	if s.retired {
		return
	}
	if s.seeded && !s.needsRebuild(elems) {
		for i, child := range s.children {
			child.value.Set(elems[i])
		}
		s.remember(elems)
		return
	}
	s.seeded = true
	s.children = s.build(elems)
	s.remember(elems)
	s.out.Set(s.children)
}

// needsRebuild reports whether the child-store array itself must change:
// a different count, a different identity at any index, or a
// same-identity element for which the reload condition holds.
func (s *forEachScope[PS, PA, Elem, EA]) needsRebuild(elems []Elem) bool {
	if len(elems) != len(s.elems) {
		return true
	}
	for i, elem := range elems {
		if s.id(elem) != s.ids[i] {
			return true
		}
		if s.reload != nil && s.reload(s.elems[i], elem) {
			return true
		}
	}
	return false
}

func (s *forEachScope[PS, PA, Elem, EA]) build(elems []Elem) []*Store[Elem, EA] {
	children := make([]*Store[Elem, EA], len(elems))
	for i, elem := range elems {
		index := i
		children[i] = &Store[Elem, EA]{
			value: stream.NewValue(elem),
			dispatch: func(action EA) {
				s.parent.Send(s.embed(index, action))
			},
		}
	}
	return children
}

func (s *forEachScope[PS, PA, Elem, EA]) remember(elems []Elem) {
	s.elems = append(s.elems[:0], elems...)
	if s.ids == nil || len(s.ids) != len(elems) {
		s.ids = make([]any, len(elems))
	}
	for i, elem := range elems {
		s.ids[i] = s.id(elem)
	}
}

func (s *forEachScope[PS, PA, Elem, EA]) retire() {
	s.retired = true
	s.children = nil
	s.out.Set(nil)
}
