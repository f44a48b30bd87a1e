/*
Package vector implements a persistent vector: an indexed sequence backed by
a 32-way trie plus a tail buffer of up to 32 elements.

Get and Assoc are O(log32 n). Cons is amortized O(1) since it usually only
copies the tail; once every 32 appends the tail is pushed into the trie as
a new leaf. Every update returns a new *Vector and leaves the receiver
untouched; the two share every trie node not on the path to the change.

A Transient, obtained from AsTransient, batches updates in place and is
turned back into a Vector by Persistent.
*/
package vector

import (
	"fmt"
	"iter"
	"strings"

	"github.com/lleo/go-persistent/internal/equiv"
	"github.com/lleo/go-persistent/trie"
)

// Vector is an immutable indexed sequence. Use Empty, Of or FromSlice to
// build one; a nil *Vector is not valid.
type Vector[T any] struct {
	count int
	shift uint
	root  *trie.Node[any]
	tail  []T
}

// Empty returns an empty vector.
func Empty[T any]() *Vector[T] {
	return &Vector[T]{shift: bits, root: trie.New[any](nil)}
}

// Of returns a vector holding items in order.
func Of[T any](items ...T) *Vector[T] {
	return FromSlice(items)
}

// FromSlice returns a vector holding a copy of s.
func FromSlice[T any](s []T) *Vector[T] {
	var t = Empty[T]().AsTransient()
	for _, x := range s {
		t.v.conj(t.edit, x)
	}
	return t.persistent()
}

func (v *Vector[T]) Count() int {
	return v.count
}

func (v *Vector[T]) IsEmpty() bool {
	return v.count == 0
}

// Get returns the element at index i.
func (v *Vector[T]) Get(i int) (T, error) {
	if i < 0 || i >= v.count {
		var zero T
		return zero, outOfRange(i, v.count)
	}
	return v.get(i), nil
}

// Nth returns the element at index i, or notFound when i is out of range.
func (v *Vector[T]) Nth(i int, notFound T) T {
	if i < 0 || i >= v.count {
		return notFound
	}
	return v.get(i)
}

// Assoc returns a vector with the element at i replaced by x. i may equal
// Count(), in which case x is appended.
func (v *Vector[T]) Assoc(i int, x T) (*Vector[T], error) {
	if i == v.count {
		return v.Cons(x), nil
	}
	if i < 0 || i > v.count {
		return nil, outOfRange(i, v.count)
	}
	var nv = *v
	nv.assoc(nil, i, x)
	return &nv, nil
}

// Cons returns a vector with x appended.
func (v *Vector[T]) Cons(x T) *Vector[T] {
	var nv = *v
	nv.conj(nil, x)
	return &nv
}

// ConsAll returns a vector with xs appended in order.
func (v *Vector[T]) ConsAll(xs ...T) *Vector[T] {
	if len(xs) == 0 {
		return v
	}
	var t = v.AsTransient()
	for _, x := range xs {
		t.v.conj(t.edit, x)
	}
	return t.persistent()
}

// Pop returns a vector without its last element.
func (v *Vector[T]) Pop() (*Vector[T], error) {
	if v.count == 0 {
		return nil, ErrEmptyCollection
	}
	var nv = *v
	nv.pop(nil)
	return &nv, nil
}

// Peek returns the last element.
func (v *Vector[T]) Peek() (T, error) {
	if v.count == 0 {
		var zero T
		return zero, ErrEmptyCollection
	}
	return v.get(v.count - 1), nil
}

// Slice returns the elements [lo, hi). When the range covers the whole
// vector the receiver itself is returned.
func (v *Vector[T]) Slice(lo, hi int) (*Vector[T], error) {
	if lo < 0 || lo > v.count {
		return nil, outOfRange(lo, v.count)
	}
	if hi < lo || hi > v.count {
		return nil, outOfRange(hi, v.count)
	}
	if lo == 0 && hi == v.count {
		return v, nil
	}
	if lo == 0 {
		// Trimming from the end keeps the prefix's trie nodes shared.
		var t = v.AsTransient()
		for t.v.count > hi {
			t.v.pop(t.edit)
		}
		return t.persistent(), nil
	}
	var t = Empty[T]().AsTransient()
	for i := lo; i < hi; i++ {
		t.v.conj(t.edit, v.get(i))
	}
	return t.persistent(), nil
}

// Insert returns a vector with x inserted before index i. i may equal
// Count().
func (v *Vector[T]) Insert(i int, x T) (*Vector[T], error) {
	if i < 0 || i > v.count {
		return nil, outOfRange(i, v.count)
	}
	if i == v.count {
		return v.Cons(x), nil
	}
	var t = Empty[T]().AsTransient()
	for j := 0; j < v.count; j++ {
		if j == i {
			t.v.conj(t.edit, x)
		}
		t.v.conj(t.edit, v.get(j))
	}
	return t.persistent(), nil
}

// Remove returns a vector without the element at index i.
func (v *Vector[T]) Remove(i int) (*Vector[T], error) {
	if i < 0 || i >= v.count {
		return nil, outOfRange(i, v.count)
	}
	if i == v.count-1 {
		return v.Pop()
	}
	var t = Empty[T]().AsTransient()
	for j := 0; j < v.count; j++ {
		if j != i {
			t.v.conj(t.edit, v.get(j))
		}
	}
	return t.persistent(), nil
}

// Filter returns a vector of the elements for which keep returns true. If
// every element is kept the receiver itself is returned.
func (v *Vector[T]) Filter(keep func(T) bool) *Vector[T] {
	var t *Transient[T]
	for i := 0; i < v.count; i++ {
		var x = v.get(i)
		if keep(x) {
			if t != nil {
				t.v.conj(t.edit, x)
			}
			continue
		}
		if t == nil {
			// first dropped element; copy the kept prefix
			t = v.AsTransient()
			for t.v.count > i {
				t.v.pop(t.edit)
			}
		}
	}
	if t == nil {
		return v
	}
	return t.persistent()
}

// FilterOut is Filter with the predicate negated.
func (v *Vector[T]) FilterOut(drop func(T) bool) *Vector[T] {
	return v.Filter(func(x T) bool { return !drop(x) })
}

// Reduce folds f over the elements of v from first to last.
func Reduce[T, A any](v *Vector[T], init A, f func(A, T) A) A {
	var acc = init
	for i := 0; i < v.count; i++ {
		acc = f(acc, v.get(i))
	}
	return acc
}

// Map returns a vector of f applied to every element of v.
func Map[T, U any](v *Vector[T], f func(T) U) *Vector[U] {
	var t = Empty[U]().AsTransient()
	for i := 0; i < v.count; i++ {
		t.v.conj(t.edit, f(v.get(i)))
	}
	return t.persistent()
}

// IndexOf returns the index of the first element equal to x by value, or
// -1.
func (v *Vector[T]) IndexOf(x T) int {
	for i := 0; i < v.count; i++ {
		if equiv.Equal(v.get(i), x) {
			return i
		}
	}
	return -1
}

// LastIndexOf returns the index of the last element equal to x by value, or
// -1.
func (v *Vector[T]) LastIndexOf(x T) int {
	for i := v.count - 1; i >= 0; i-- {
		if equiv.Equal(v.get(i), x) {
			return i
		}
	}
	return -1
}

func (v *Vector[T]) Contains(x T) bool {
	return v.IndexOf(x) >= 0
}

// All iterates over the index/element pairs in order.
func (v *Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		var base int
		for base = 0; base < v.tailoff(); base += trie.Width {
			var leaf = v.leafFor(base)
			for j := range leaf {
				if !yield(base+j, leaf[j]) {
					return
				}
			}
		}
		for j, x := range v.tail {
			if !yield(base+j, x) {
				return
			}
		}
	}
}

// ToSlice returns the elements in a new slice.
func (v *Vector[T]) ToSlice() []T {
	var s = make([]T, 0, v.count)
	for _, x := range v.All() {
		s = append(s, x)
	}
	return s
}

// Raw returns the elements boxed as any, for serializers.
func (v *Vector[T]) Raw() []any {
	var s = make([]any, 0, v.count)
	for _, x := range v.All() {
		s = append(s, x)
	}
	return s
}

// Equal reports whether v and o hold equal elements in the same order. A nil
// vector only equals nil.
func (v *Vector[T]) Equal(o *Vector[T]) bool {
	if v == o {
		return true
	}
	if v == nil || o == nil || v.count != o.count {
		return false
	}
	for i := 0; i < v.count; i++ {
		if !equiv.Equal(v.get(i), o.get(i)) {
			return false
		}
	}
	return true
}

// Equiv implements equiv.Equiver.
func (v *Vector[T]) Equiv(other any) bool {
	var o, ok = other.(*Vector[T])
	return ok && v.Equal(o)
}

func (v *Vector[T]) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range v.All() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, x)
	}
	sb.WriteByte(']')
	return sb.String()
}
