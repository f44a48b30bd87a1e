package stm

import (
	"fmt"
	"sync/atomic"

	"github.com/lleo/go-persistent"
	"github.com/lleo/go-persistent/internal/equiv"
)

type box[T any] struct {
	v T
}

// Atom is a single shared cell, updated with compare-and-set. The value
// only ever holds states accepted by its validator.
type Atom[T any] struct {
	state     atomic.Pointer[box[T]]
	validator validator[T]
	watches   watches[*Atom[T], T]
	meta      meta
}

func NewAtom[T any](v T) *Atom[T] {
	var a = new(Atom[T])
	a.state.Store(&box[T]{v})
	return a
}

// Deref returns the current value.
func (a *Atom[T]) Deref() T {
	return a.state.Load().v
}

// Swap sets the value to f(current) and returns it. If another goroutine
// changes the value between the read and the write, f is called again on
// the new value, so f must be free of side effects.
func (a *Atom[T]) Swap(f func(T) T) (T, error) {
	var _, nv, err = a.SwapVals(f)
	return nv, err
}

// SwapVals is Swap returning both the replaced and the new value.
func (a *Atom[T]) SwapVals(f func(T) T) (oldVal, newVal T, err error) {
	for {
		var cur = a.state.Load()
		var nv = f(cur.v)
		if err = a.validator.check(nv); err != nil {
			return cur.v, cur.v, err
		}
		if a.state.CompareAndSwap(cur, &box[T]{nv}) {
			a.watches.notify(a, cur.v, nv)
			return cur.v, nv, nil
		}
	}
}

// CompareAndSet sets the value to newVal only if the current value is
// oldVal. It makes a single attempt. Values are compared with == (identity
// for pointers), not by value.
func (a *Atom[T]) CompareAndSet(oldVal, newVal T) (bool, error) {
	var cur = a.state.Load()
	if !equiv.Same(cur.v, oldVal) {
		return false, nil
	}
	if err := a.validator.check(newVal); err != nil {
		return false, err
	}
	if !a.state.CompareAndSwap(cur, &box[T]{newVal}) {
		return false, nil
	}
	a.watches.notify(a, cur.v, newVal)
	return true, nil
}

// Reset sets the value to v whatever it was.
func (a *Atom[T]) Reset(v T) (T, error) {
	var _, nv, err = a.ResetVals(v)
	return nv, err
}

// ResetVals is Reset returning both the replaced and the new value.
func (a *Atom[T]) ResetVals(v T) (oldVal, newVal T, err error) {
	if err = a.validator.check(v); err != nil {
		var cur = a.Deref()
		return cur, cur, err
	}
	var prev = a.state.Swap(&box[T]{v})
	a.watches.notify(a, prev.v, v)
	return prev.v, v, nil
}

// SetValidator installs fn, which must accept the current value. A nil fn
// removes the validator.
func (a *Atom[T]) SetValidator(fn func(T) bool) error {
	return a.validator.set(fn, a.Deref())
}

func (a *Atom[T]) Validator() func(T) bool {
	return a.validator.get()
}

// AddWatch calls fn synchronously after every successful change of the
// value. Watches run in no particular order and must not swap a itself.
// Adding under an existing key replaces its function.
func (a *Atom[T]) AddWatch(key any, fn WatchFn[*Atom[T], T]) {
	a.watches.add(key, fn)
}

func (a *Atom[T]) RemoveWatch(key any) {
	a.watches.remove(key)
}

// Meta returns the metadata map of a, empty until set.
func (a *Atom[T]) Meta() *persistent.Map[any, any] {
	return a.meta.get()
}

// AlterMeta replaces the metadata with f(current) and returns it. f may be
// called more than once.
func (a *Atom[T]) AlterMeta(f func(*persistent.Map[any, any]) *persistent.Map[any, any]) *persistent.Map[any, any] {
	return a.meta.alter(f)
}

func (a *Atom[T]) ResetMeta(m *persistent.Map[any, any]) *persistent.Map[any, any] {
	return a.meta.reset(m)
}

func (a *Atom[T]) String() string {
	return fmt.Sprintf("Atom{%v}", a.Deref())
}
