package stm

import (
	"cmp"
	"runtime/debug"
	"slices"

	"github.com/google/uuid"
)

// TxnState is the lifecycle state of a transaction.
type TxnState int32

const (
	NotStarted TxnState = iota
	Running
	Committing
	Committed
	Aborted
	Retrying
)

func (s TxnState) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Committing:
		return "Committing"
	case Committed:
		return "Committed"
	case Aborted:
		return "Aborted"
	case Retrying:
		return "Retrying"
	}
	return "TxnState(?)"
}

// refI is the untyped view of a *Ref[T] that a Txn works with. Values
// cross it boxed as any.
type refI interface {
	refID() uint64
	readAt(point uint64) (any, bool)
	fault()

	// The methods below are called with the ref locked.
	lockShared()
	unlockShared()
	lockExclusive()
	unlockExclusive()
	latestPoint() uint64
	latest() any
	install(v any, point uint64)

	check(v any) error
	notify(oldVal, newVal any)
}

type commitNote struct {
	ref            refI
	oldVal, newVal any
}

// Txn is one transaction. It is created by DoSync, used by the goroutine
// running the transaction body, and must not be retained after the body
// returns.
type Txn struct {
	id     uuid.UUID
	engine *Engine
	state  TxnState

	attempt     int
	readPoint   uint64
	commitPoint uint64
	mustRetry   bool

	vals     map[refI]any
	reads    map[refI]struct{}
	sets     map[refI]struct{}
	commutes map[refI][]func(any) any

	notes []commitNote
}

func (tx *Txn) ID() uuid.UUID {
	return tx.id
}

func (tx *Txn) State() TxnState {
	return tx.state
}

// ReadPoint is the commit point whose snapshot the current attempt reads.
func (tx *Txn) ReadPoint() uint64 {
	return tx.readPoint
}

// Attempt is zero on the first run of the body and counts retries after.
func (tx *Txn) Attempt() int {
	return tx.attempt
}

func (tx *Txn) begin(attempt int) {
	tx.reset()
	tx.attempt = attempt
	tx.readPoint = clock.Load()
	tx.state = Running
}

func (tx *Txn) reset() {
	tx.vals = make(map[refI]any)
	tx.reads = make(map[refI]struct{})
	tx.sets = make(map[refI]struct{})
	tx.commutes = make(map[refI][]func(any) any)
	tx.mustRetry = false
	tx.notes = tx.notes[:0]
}

// get returns the in-transaction value of r, reading the snapshot at the
// read point if the transaction has not touched r yet.
func (tx *Txn) get(r refI) (any, error) {
	if v, ok := tx.vals[r]; ok {
		return v, nil
	}
	var v, ok = r.readAt(tx.readPoint)
	if !ok {
		// r was committed over more times than it keeps history for.
		r.fault()
		tx.mustRetry = true
		return nil, errRetry
	}
	tx.reads[r] = struct{}{}
	return v, nil
}

func (tx *Txn) set(r refI, v any) error {
	if _, ok := tx.commutes[r]; ok {
		return ErrSetAfterCommute
	}
	tx.sets[r] = struct{}{}
	tx.vals[r] = v
	return nil
}

func (tx *Txn) commute(r refI, f func(any) any) any {
	var v, ok = tx.vals[r]
	if !ok {
		r.lockShared()
		v = r.latest()
		r.unlockShared()
	}
	v = f(v)
	tx.vals[r] = v
	tx.commutes[r] = append(tx.commutes[r], f)
	return v
}

type lockedRef struct {
	ref       refI
	exclusive bool
}

// commit validates the attempt and installs its writes. A nil error means
// the writes are visible.
func (tx *Txn) commit() error {
	if tx.mustRetry {
		return errRetry
	}
	if len(tx.sets) == 0 && len(tx.commutes) == 0 {
		// Read only: the snapshot at readPoint is already consistent.
		tx.commitPoint = tx.readPoint
		return nil
	}
	tx.state = Committing

	var locked = make([]lockedRef, 0, len(tx.reads)+len(tx.sets)+len(tx.commutes))
	for r := range tx.sets {
		locked = append(locked, lockedRef{r, true})
	}
	for r := range tx.commutes {
		if _, ok := tx.sets[r]; !ok {
			locked = append(locked, lockedRef{r, true})
		}
	}
	for r := range tx.reads {
		if _, ok := tx.vals[r]; !ok {
			locked = append(locked, lockedRef{r, false})
		}
	}
	slices.SortFunc(locked, func(a, b lockedRef) int {
		return cmp.Compare(a.ref.refID(), b.ref.refID())
	})

	for _, l := range locked {
		if l.exclusive {
			l.ref.lockExclusive()
		} else {
			l.ref.lockShared()
		}
	}
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			if locked[i].exclusive {
				locked[i].ref.unlockExclusive()
			} else {
				locked[i].ref.unlockShared()
			}
		}
	}()

	for r := range tx.reads {
		if r.latestPoint() > tx.readPoint {
			return errRetry
		}
	}
	for r := range tx.sets {
		if r.latestPoint() > tx.readPoint {
			return errRetry
		}
	}

	if err := tx.settle(locked); err != nil {
		return err
	}

	var point = clock.Add(1)
	for _, l := range locked {
		if !l.exclusive {
			continue
		}
		var v = tx.vals[l.ref]
		tx.notes = append(tx.notes, commitNote{l.ref, l.ref.latest(), v})
		l.ref.install(v, point)
	}
	tx.commitPoint = point
	return nil
}

// settle recomputes the commuted values against the newest committed ones
// and runs the validators, turning a panic in either into a *PanicError.
// The caller holds the locks.
func (tx *Txn) settle(locked []lockedRef) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	for r, fns := range tx.commutes {
		if _, ok := tx.sets[r]; ok {
			continue
		}
		var v = r.latest()
		for _, f := range fns {
			v = f(v)
		}
		tx.vals[r] = v
	}

	for _, l := range locked {
		if !l.exclusive {
			continue
		}
		if err = l.ref.check(tx.vals[l.ref]); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Txn) notifyWatches() {
	for _, n := range tx.notes {
		n.ref.notify(n.oldVal, n.newVal)
	}
}
