package stm

import (
	"sync/atomic"

	"github.com/lleo/go-persistent"
)

// WatchFn is called after every change of the value of the reference r it
// was added to, with the key it was added under.
type WatchFn[R any, T any] func(key any, r R, oldVal, newVal T)

// watches is a copy-on-write table of watch functions.
type watches[R any, T any] struct {
	table atomic.Pointer[persistent.Map[any, WatchFn[R, T]]]
}

func (w *watches[R, T]) add(key any, fn WatchFn[R, T]) {
	for {
		var cur = w.table.Load()
		var next = persistent.Empty[any, WatchFn[R, T]]()
		if cur != nil {
			next = cur
		}
		if w.table.CompareAndSwap(cur, next.Assoc(key, fn)) {
			return
		}
	}
}

func (w *watches[R, T]) remove(key any) {
	for {
		var cur = w.table.Load()
		if cur == nil || !cur.ContainsKey(key) {
			return
		}
		if w.table.CompareAndSwap(cur, cur.Dissoc(key)) {
			return
		}
	}
}

func (w *watches[R, T]) notify(r R, oldVal, newVal T) {
	var cur = w.table.Load()
	if cur == nil {
		return
	}
	for key, fn := range cur.All() {
		fn(key, r, oldVal, newVal)
	}
}

// validator holds an optional predicate over candidate values.
type validator[T any] struct {
	fn atomic.Pointer[func(T) bool]
}

func (v *validator[T]) get() func(T) bool {
	if p := v.fn.Load(); p != nil {
		return *p
	}
	return nil
}

// set installs fn after checking the current value against it.
func (v *validator[T]) set(fn func(T) bool, current T) error {
	if fn == nil {
		v.fn.Store(nil)
		return nil
	}
	if !fn(current) {
		return validationFailed(current)
	}
	v.fn.Store(&fn)
	return nil
}

func (v *validator[T]) check(x T) error {
	if fn := v.get(); fn != nil && !fn(x) {
		return validationFailed(x)
	}
	return nil
}

// meta is a metadata map replaced by compare-and-set. A nil map reads as
// empty.
type meta struct {
	m atomic.Pointer[persistent.Map[any, any]]
}

func (md *meta) get() *persistent.Map[any, any] {
	if m := md.m.Load(); m != nil {
		return m
	}
	return persistent.Empty[any, any]()
}

func (md *meta) alter(f func(*persistent.Map[any, any]) *persistent.Map[any, any]) *persistent.Map[any, any] {
	for {
		var cur = md.m.Load()
		var next = f(md.orEmpty(cur))
		if md.m.CompareAndSwap(cur, next) {
			return md.orEmpty(next)
		}
	}
}

func (md *meta) reset(m *persistent.Map[any, any]) *persistent.Map[any, any] {
	md.m.Store(m)
	return md.orEmpty(m)
}

func (md *meta) orEmpty(m *persistent.Map[any, any]) *persistent.Map[any, any] {
	if m == nil {
		return persistent.Empty[any, any]()
	}
	return m
}
