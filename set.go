package persistent

import (
	"fmt"
	"iter"
	"strings"
)

// Set is an immutable hash set: a Map whose values are dropped.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

func EmptySet[K comparable]() *Set[K] {
	return &Set[K]{m: Empty[K, struct{}]()}
}

// SetOf returns a set holding items.
func SetOf[K comparable](items ...K) *Set[K] {
	return EmptySet[K]().ConjAll(items...)
}

func (s *Set[K]) wrap(m *Map[K, struct{}]) *Set[K] {
	if m == s.m {
		return s
	}
	return &Set[K]{m: m}
}

func (s *Set[K]) Count() int {
	return s.m.Count()
}

func (s *Set[K]) IsEmpty() bool {
	return s.m.IsEmpty()
}

func (s *Set[K]) Contains(k K) bool {
	return s.m.ContainsKey(k)
}

// Conj returns a set with k added, or the receiver if k is already present.
func (s *Set[K]) Conj(k K) *Set[K] {
	return s.wrap(s.m.Assoc(k, struct{}{}))
}

// ConjAll returns a set with every element of ks added.
func (s *Set[K]) ConjAll(ks ...K) *Set[K] {
	var t *TransientMap[K, struct{}]
	for _, k := range ks {
		if t == nil {
			if s.m.ContainsKey(k) {
				continue
			}
			t = s.m.AsTransient()
		}
		t.assoc(k, struct{}{})
	}
	if t == nil {
		return s
	}
	return &Set[K]{m: t.persistent()}
}

// Disj returns a set without k, or the receiver if k is absent.
func (s *Set[K]) Disj(k K) *Set[K] {
	return s.wrap(s.m.Dissoc(k))
}

// Filter returns a set of the elements for which keep returns true. If
// every element is kept the receiver itself is returned.
func (s *Set[K]) Filter(keep func(K) bool) *Set[K] {
	return s.wrap(s.m.Filter(func(k K, _ struct{}) bool { return keep(k) }))
}

func (s *Set[K]) FilterOut(drop func(K) bool) *Set[K] {
	return s.Filter(func(k K) bool { return !drop(k) })
}

// Union returns the elements in s or o.
func (s *Set[K]) Union(o *Set[K]) *Set[K] {
	if s.Count() < o.Count() {
		return o.wrap(o.m.Merge(s.m))
	}
	return s.wrap(s.m.Merge(o.m))
}

// Intersection returns the elements in both s and o.
func (s *Set[K]) Intersection(o *Set[K]) *Set[K] {
	return s.Filter(o.Contains)
}

// Difference returns the elements of s that are not in o.
func (s *Set[K]) Difference(o *Set[K]) *Set[K] {
	return s.FilterOut(o.Contains)
}

// All iterates over the elements.
func (s *Set[K]) All() iter.Seq[K] {
	return s.m.Keys()
}

func (s *Set[K]) ToSlice() []K {
	var ks = make([]K, 0, s.Count())
	for k := range s.All() {
		ks = append(ks, k)
	}
	return ks
}

// RawSet is implemented by every *Set. Serializers use it to tell sets
// from vectors, whose Raw also returns []any.
type RawSet interface {
	Raw() []any
	rawSet()
}

func (s *Set[K]) rawSet() {}

// Raw returns the elements boxed as any, for serializers.
func (s *Set[K]) Raw() []any {
	var ks = make([]any, 0, s.Count())
	for k := range s.All() {
		ks = append(ks, k)
	}
	return ks
}

func (s *Set[K]) Equal(o *Set[K]) bool {
	return s == o || (s != nil && o != nil && s.m.Equal(o.m))
}

// Equiv implements equiv.Equiver.
func (s *Set[K]) Equiv(other any) bool {
	var o, ok = other.(*Set[K])
	return ok && s.Equal(o)
}

func (s *Set[K]) String() string {
	var sb strings.Builder
	sb.WriteString("#{")
	var first = true
	for k := range s.All() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		fmt.Fprint(&sb, k)
	}
	sb.WriteByte('}')
	return sb.String()
}

// TransientSet is a mutable view of a Set for batched updates.
type TransientSet[K comparable] struct {
	t *TransientMap[K, struct{}]
}

// AsTransient starts a transient session over s.
func (s *Set[K]) AsTransient() *TransientSet[K] {
	return &TransientSet[K]{t: s.m.AsTransient()}
}

func (ts *TransientSet[K]) Count() (int, error) {
	return ts.t.Count()
}

func (ts *TransientSet[K]) Contains(k K) (bool, error) {
	var _, found, err = ts.t.Lookup(k)
	return found, err
}

// Conj adds k in place.
func (ts *TransientSet[K]) Conj(k K) (*TransientSet[K], error) {
	if _, err := ts.t.Assoc(k, struct{}{}); err != nil {
		return nil, err
	}
	return ts, nil
}

// Disj removes k in place.
func (ts *TransientSet[K]) Disj(k K) (*TransientSet[K], error) {
	if _, err := ts.t.Dissoc(k); err != nil {
		return nil, err
	}
	return ts, nil
}

// Persistent ends the session and returns the resulting Set.
func (ts *TransientSet[K]) Persistent() (*Set[K], error) {
	var m, err = ts.t.Persistent()
	if err != nil {
		return nil, err
	}
	return &Set[K]{m: m}, nil
}
