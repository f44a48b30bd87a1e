package stm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lleo/go-persistent"
)

var lastRefID atomic.Uint64

// tval is a committed value and the commit point that installed it.
type tval[T any] struct {
	val   T
	point uint64
}

// Ref is a transactional reference. Its value only changes when a
// transaction that set, altered or commuted it commits.
type Ref[T any] struct {
	id uint64

	mu         sync.RWMutex
	history    []tval[T] // oldest first; never empty
	minHistory int
	maxHistory int

	faults    atomic.Int32
	validator validator[T]
	watches   watches[*Ref[T], T]
	meta      meta
}

// RefOption configures a new Ref.
type RefOption func(*refOptions)

type refOptions struct {
	minHistory, maxHistory int
}

// WithHistory bounds the number of committed values a Ref keeps for
// readers with older read points.
func WithHistory(minHistory, maxHistory int) RefOption {
	return func(o *refOptions) {
		o.minHistory = max(minHistory, 0)
		o.maxHistory = max(maxHistory, o.minHistory, 1)
	}
}

// NewRef returns a Ref holding v. History bounds default to those of the
// Default engine's Config.
func NewRef[T any](v T, opts ...RefOption) *Ref[T] {
	return newRef(Default().Config(), v, opts)
}

// NewRefIn is NewRef taking the default history bounds from the Config of
// the engine carried by ctx (see WithEngine), or of the Default engine.
func NewRefIn[T any](ctx context.Context, v T, opts ...RefOption) *Ref[T] {
	return newRef(engineFrom(ctx).Config(), v, opts)
}

func newRef[T any](cfg Config, v T, opts []RefOption) *Ref[T] {
	var o = refOptions{minHistory: cfg.MinHistory, maxHistory: cfg.MaxHistory}
	for _, opt := range opts {
		opt(&o)
	}
	return &Ref[T]{
		id:         lastRefID.Add(1),
		history:    []tval[T]{{val: v}},
		minHistory: o.minHistory,
		maxHistory: o.maxHistory,
	}
}

// Deref returns the newest committed value, outside of any transaction.
func (r *Ref[T]) Deref() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history[len(r.history)-1].val
}

// Get returns the value of r in tx: the value tx set or commuted, or else
// the committed value as of the read point of tx. A nil tx is Deref.
//
// An error means the attempt cannot go on; return it from the transaction
// body.
func (r *Ref[T]) Get(tx *Txn) (T, error) {
	if tx == nil {
		return r.Deref(), nil
	}
	var v, err = tx.get(r)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v), nil
}

// Set stages v as the new value of r in tx.
func (r *Ref[T]) Set(tx *Txn, v T) error {
	if tx == nil {
		return ErrNoTransaction
	}
	return tx.set(r, v)
}

// Alter stages f applied to the value of r in tx, and returns it.
func (r *Ref[T]) Alter(tx *Txn, f func(T) T) (T, error) {
	if tx == nil {
		var zero T
		return zero, ErrNoTransaction
	}
	var cur, err = r.Get(tx)
	if err != nil {
		return cur, err
	}
	var v = f(cur)
	if err = tx.set(r, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Commute stages f to be applied to the newest committed value of r when
// tx commits. It returns f applied to the current value of r in tx, which
// may differ from the value finally committed. f may run several times.
func (r *Ref[T]) Commute(tx *Txn, f func(T) T) (T, error) {
	if tx == nil {
		var zero T
		return zero, ErrNoTransaction
	}
	var v = tx.commute(r, func(x any) any { return f(as[T](x)) })
	return as[T](v), nil
}

// Ensure reads r in tx, so that tx only commits if no other transaction
// commits r first, without writing r.
func (r *Ref[T]) Ensure(tx *Txn) error {
	if tx == nil {
		return ErrNoTransaction
	}
	var _, err = tx.get(r)
	return err
}

// SetValidator installs fn, which must accept the current value. A nil fn
// removes the validator.
func (r *Ref[T]) SetValidator(fn func(T) bool) error {
	return r.validator.set(fn, r.Deref())
}

func (r *Ref[T]) Validator() func(T) bool {
	return r.validator.get()
}

// AddWatch calls fn after every commit that changes r, outside of the
// transaction. Adding under an existing key replaces its function.
func (r *Ref[T]) AddWatch(key any, fn WatchFn[*Ref[T], T]) {
	r.watches.add(key, fn)
}

func (r *Ref[T]) RemoveWatch(key any) {
	r.watches.remove(key)
}

// Meta returns the metadata map of r, empty until set.
func (r *Ref[T]) Meta() *persistent.Map[any, any] {
	return r.meta.get()
}

// AlterMeta replaces the metadata with f(current) and returns it. Like
// Atom.Swap, f may be called more than once.
func (r *Ref[T]) AlterMeta(f func(*persistent.Map[any, any]) *persistent.Map[any, any]) *persistent.Map[any, any] {
	return r.meta.alter(f)
}

func (r *Ref[T]) ResetMeta(m *persistent.Map[any, any]) *persistent.Map[any, any] {
	return r.meta.reset(m)
}

func (r *Ref[T]) HistoryCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history)
}

func (r *Ref[T]) MinHistory() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minHistory
}

func (r *Ref[T]) MaxHistory() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxHistory
}

func (r *Ref[T]) SetMinHistory(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minHistory = max(n, 0)
	r.maxHistory = max(r.maxHistory, r.minHistory)
}

func (r *Ref[T]) SetMaxHistory(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxHistory = max(n, 1)
	r.minHistory = min(r.minHistory, r.maxHistory)
}

// TrimHistory drops every committed value but the newest.
func (r *Ref[T]) TrimHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n = len(r.history)
	r.history = []tval[T]{r.history[n-1]}
}

func (r *Ref[T]) String() string {
	return fmt.Sprintf("Ref#%d{%v}", r.id, r.Deref())
}

func (r *Ref[T]) refID() uint64 {
	return r.id
}

func (r *Ref[T]) readAt(point uint64) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].point <= point {
			return r.history[i].val, true
		}
	}
	return nil, false
}

func (r *Ref[T]) fault() {
	r.faults.Add(1)
}

func (r *Ref[T]) lockShared()      { r.mu.RLock() }
func (r *Ref[T]) unlockShared()    { r.mu.RUnlock() }
func (r *Ref[T]) lockExclusive()   { r.mu.Lock() }
func (r *Ref[T]) unlockExclusive() { r.mu.Unlock() }

func (r *Ref[T]) latestPoint() uint64 {
	return r.history[len(r.history)-1].point
}

func (r *Ref[T]) latest() any {
	return r.history[len(r.history)-1].val
}

// install appends v as the newest value. The history grows while it is
// below minHistory, or below maxHistory after a reader faulted on it;
// otherwise the oldest value is dropped.
func (r *Ref[T]) install(v any, point uint64) {
	var nv = tval[T]{val: as[T](v), point: point}
	var n = len(r.history)

	if n < r.minHistory || (r.faults.Load() > 0 && n < r.maxHistory) {
		r.history = append(r.history, nv)
		r.faults.Store(0)
		return
	}

	if n > r.maxHistory {
		// maxHistory was lowered
		r.history = append(r.history[:0], r.history[n-r.maxHistory:]...)
		n = r.maxHistory
	}
	copy(r.history, r.history[1:])
	r.history[n-1] = nv
}

func (r *Ref[T]) check(v any) error {
	return r.validator.check(as[T](v))
}

func (r *Ref[T]) notify(oldVal, newVal any) {
	r.watches.notify(r, as[T](oldVal), as[T](newVal))
}

// as unboxes v; a nil v, as boxed from a nil interface T, yields the zero T.
func as[T any](v any) T {
	var t, _ = v.(T)
	return t
}
