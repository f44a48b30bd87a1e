package stm_test

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lleo/go-persistent"
	"github.com/lleo/go-persistent/stm"
	"github.com/lleo/go-persistent/vector"
)

func add(n int) func(int) int {
	return func(x int) int { return x + n }
}

func TestDoSyncCommitsAtomically(t *testing.T) {
	var x, y = stm.NewRef(3), stm.NewRef(4)

	var err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		if _, err := x.Alter(tx, add(1)); err != nil {
			return err
		}
		_, err := y.Alter(tx, add(-1))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 4, x.Deref())
	assert.Equal(t, 3, y.Deref())
}

func TestPanicRollsBack(t *testing.T) {
	var x, y = stm.NewRef(3), stm.NewRef(4)
	var zero = 0

	var err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		if _, err := x.Alter(tx, add(1)); err != nil {
			return err
		}
		_, err := y.Alter(tx, func(v int) int { return v / zero })
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, stm.ErrTransactionAborted)

	var aborted *stm.AbortedError
	require.ErrorAs(t, err, &aborted)
	var perr *stm.PanicError
	require.ErrorAs(t, err, &perr)
	var rerr runtime.Error
	require.ErrorAs(t, err, &rerr)

	assert.Equal(t, 3, x.Deref())
	assert.Equal(t, 4, y.Deref())
}

func TestErrorAbortsWithCause(t *testing.T) {
	var x = stm.NewRef("before")
	var boom = errors.New("boom")

	var err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		if err := x.Set(tx, "after"); err != nil {
			return err
		}
		return errors.Wrap(boom, "body failed")
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, stm.ErrTransactionAborted)
	assert.Equal(t, "before", x.Deref())
}

func TestReadYourOwnWrites(t *testing.T) {
	var x = stm.NewRef(vector.Of(1))

	var n, err = stm.Sync(context.Background(), func(ctx context.Context, tx *stm.Txn) (int, error) {
		if _, err := x.Alter(tx, func(v *vector.Vector[int]) *vector.Vector[int] { return v.Cons(2) }); err != nil {
			return 0, err
		}
		var v, err = x.Get(tx)
		if err != nil {
			return 0, err
		}
		return v.Count(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "[1 2]", x.Deref().String())
}

func TestNestedDoSyncJoins(t *testing.T) {
	var x, y = stm.NewRef(0), stm.NewRef(0)

	var err = stm.DoSync(context.Background(), func(ctx context.Context, outer *stm.Txn) error {
		require.Same(t, outer, stm.Current(ctx))
		if err := x.Set(outer, 1); err != nil {
			return err
		}
		return stm.DoSync(ctx, func(ctx context.Context, inner *stm.Txn) error {
			require.Same(t, outer, inner)
			var v, err = x.Get(inner)
			if err != nil {
				return err
			}
			return y.Set(inner, v+1)
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, x.Deref())
	assert.Equal(t, 2, y.Deref())

	assert.Nil(t, stm.Current(context.Background()))
}

func TestNestedErrorAbortsOuter(t *testing.T) {
	var x = stm.NewRef(0)
	var err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		if err := x.Set(tx, 1); err != nil {
			return err
		}
		return stm.DoSync(ctx, func(ctx context.Context, tx *stm.Txn) error {
			panic("inner")
		})
	})
	var perr *stm.PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "inner", perr.Value)
	assert.Equal(t, 0, x.Deref())
}

func TestRefOpsNeedTransaction(t *testing.T) {
	var x = stm.NewRef(1)
	require.ErrorIs(t, x.Set(nil, 2), stm.ErrNoTransaction)
	var _, err = x.Alter(nil, add(1))
	require.ErrorIs(t, err, stm.ErrNoTransaction)
	_, err = x.Commute(nil, add(1))
	require.ErrorIs(t, err, stm.ErrNoTransaction)
	require.ErrorIs(t, x.Ensure(nil), stm.ErrNoTransaction)

	v, err := x.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSetAfterCommute(t *testing.T) {
	var x = stm.NewRef(1)
	var err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		if _, err := x.Commute(tx, add(1)); err != nil {
			return err
		}
		return x.Set(tx, 5)
	})
	require.ErrorIs(t, err, stm.ErrSetAfterCommute)
	assert.Equal(t, 1, x.Deref())
}

func TestCommutePanicAtCommitAborts(t *testing.T) {
	var r, other = stm.NewRef(1), stm.NewRef(0)

	var err error
	require.NotPanics(t, func() {
		err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
			if err := other.Set(tx, 1); err != nil {
				return err
			}
			if _, err := r.Commute(tx, func(v int) int { return 10 / v }); err != nil {
				return err
			}
			// the commute is recomputed on 0 at commit
			commitElsewhere(t, r, 0)
			return nil
		})
	})
	require.ErrorIs(t, err, stm.ErrTransactionAborted)
	var perr *stm.PanicError
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, perr.Stack)
	var rerr runtime.Error
	require.ErrorAs(t, err, &rerr)

	assert.Equal(t, 0, r.Deref())
	assert.Equal(t, 0, other.Deref(), "no write of the aborted transaction lands")
}

func TestValidatorPanicAtCommitAborts(t *testing.T) {
	var x = stm.NewRef(1)
	require.NoError(t, x.SetValidator(func(v int) bool {
		if v > 5 {
			panic("too big")
		}
		return true
	}))

	var err error
	require.NotPanics(t, func() {
		err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
			return x.Set(tx, 6)
		})
	})
	var perr *stm.PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "too big", perr.Value)
	assert.Equal(t, 1, x.Deref())

	// the locks taken by the failed commit were released
	require.NoError(t, stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		return x.Set(tx, 2)
	}))
	assert.Equal(t, 2, x.Deref())
}

func TestCommuteUnderContention(t *testing.T) {
	const goroutines, incs = 32, 200
	var counter = stm.NewRef(0)
	var engine = stm.NewEngine(stm.DefaultConfig())
	var ctx = stm.WithEngine(context.Background(), engine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < incs; i++ {
				var err = stm.DoSync(ctx, func(ctx context.Context, tx *stm.Txn) error {
					var _, err = counter.Commute(tx, add(1))
					return err
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*incs, counter.Deref())
	var stats = engine.Stats()
	assert.Equal(t, uint64(goroutines*incs), stats.Commits)
	assert.Zero(t, stats.Retries, "commutes never conflict")
}

func TestConcurrentTransfersKeepTotal(t *testing.T) {
	const accounts, goroutines, transfers = 8, 16, 300
	var refs = make([]*stm.Ref[int], accounts)
	for i := range refs {
		refs[i] = stm.NewRef(1000)
	}
	var engine = stm.NewEngine(stm.DefaultConfig())
	var ctx = stm.WithEngine(context.Background(), engine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			var rnd = rand.New(rand.NewSource(seed))
			for i := 0; i < transfers; i++ {
				var from, to = rnd.Intn(accounts), rnd.Intn(accounts)
				var amount = rnd.Intn(50)
				var err = stm.DoSync(ctx, func(ctx context.Context, tx *stm.Txn) error {
					var bal, err = refs[from].Get(tx)
					if err != nil {
						return err
					}
					if bal < amount {
						return nil
					}
					if _, err = refs[from].Alter(tx, add(-amount)); err != nil {
						return err
					}
					_, err = refs[to].Alter(tx, add(amount))
					return err
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(int64(g))
	}

	// Concurrent readers must always see the full total.
	var stop atomic.Bool
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for !stop.Load() {
			var total, err = stm.Sync(ctx, func(ctx context.Context, tx *stm.Txn) (int, error) {
				var sum int
				for _, r := range refs {
					var v, err = r.Get(tx)
					if err != nil {
						return 0, err
					}
					sum += v
				}
				return sum, nil
			})
			if err != nil {
				t.Error(err)
				return
			}
			if total != accounts*1000 {
				t.Errorf("snapshot total %d", total)
				return
			}
		}
	}()

	wg.Wait()
	stop.Store(true)
	readers.Wait()

	var total int
	for _, r := range refs {
		require.GreaterOrEqual(t, r.Deref(), 0)
		total += r.Deref()
	}
	assert.Equal(t, accounts*1000, total)
}

// commitElsewhere commits v to r from another transaction and waits for it,
// so a transaction running on the calling goroutine sees a conflict.
func commitElsewhere(t *testing.T, r *stm.Ref[int], v int) {
	var done = make(chan error)
	go func() {
		done <- stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
			return r.Set(tx, v)
		})
	}()
	require.NoError(t, <-done)
}

func TestReadConflictRetries(t *testing.T) {
	var x, y = stm.NewRef(1), stm.NewRef(0)
	var attempts int

	var err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		attempts++
		assert.Equal(t, attempts-1, tx.Attempt())
		var v, err = x.Get(tx)
		if err != nil {
			return err
		}
		if attempts == 1 {
			commitElsewhere(t, x, 100)
		}
		return y.Set(tx, v*2)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 200, y.Deref(), "committed value must come from the second attempt")
}

func TestHistoryGrowsAfterFault(t *testing.T) {
	var x = stm.NewRef(0, stm.WithHistory(0, 5))
	require.Equal(t, 1, x.HistoryCount())

	var attempts int
	var v, err = stm.Sync(context.Background(), func(ctx context.Context, tx *stm.Txn) (int, error) {
		attempts++
		if attempts == 1 {
			// x moves past this attempt's read point before it reads x
			commitElsewhere(t, x, 1)
		}
		return x.Get(tx)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, v)

	commitElsewhere(t, x, 2)
	assert.Equal(t, 2, x.HistoryCount())

	x.TrimHistory()
	assert.Equal(t, 1, x.HistoryCount())
	assert.Equal(t, 2, x.Deref())

	x.SetMinHistory(3)
	for i := 0; i < 4; i++ {
		commitElsewhere(t, x, 10+i)
	}
	assert.Equal(t, 3, x.HistoryCount())
	assert.Equal(t, 3, x.MinHistory())
	assert.Equal(t, 5, x.MaxHistory())

	x.SetMaxHistory(2)
	commitElsewhere(t, x, 20)
	assert.Equal(t, 2, x.MinHistory())
	assert.Equal(t, 2, x.HistoryCount())
}

func TestRefValidator(t *testing.T) {
	var x = stm.NewRef(10)
	require.NoError(t, x.SetValidator(func(v int) bool { return v >= 0 }))

	var err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		var _, err = x.Alter(tx, add(-20))
		return err
	})
	require.ErrorIs(t, err, stm.ErrValidationFailed)
	assert.ErrorIs(t, err, stm.ErrTransactionAborted)
	assert.Equal(t, 10, x.Deref())

	require.ErrorIs(t, x.SetValidator(func(v int) bool { return v > 10 }), stm.ErrValidationFailed)
}

func TestRefWatches(t *testing.T) {
	var x = stm.NewRef(1)
	var calls [][2]int
	x.AddWatch("log", func(key any, r *stm.Ref[int], oldVal, newVal int) {
		assert.Equal(t, "log", key)
		assert.Same(t, x, r)
		calls = append(calls, [2]int{oldVal, newVal})
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
			var _, err = x.Alter(tx, add(1))
			return err
		}))
	}
	// a read-only transaction changes nothing
	require.NoError(t, stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		return x.Ensure(tx)
	}))
	x.RemoveWatch("log")
	commitElsewhere(t, x, 0)

	assert.Equal(t, [][2]int{{1, 2}, {2, 3}, {3, 4}}, calls)
}

func TestRefMeta(t *testing.T) {
	var x = stm.NewRef(0)
	assert.True(t, x.Meta().IsEmpty())

	var m = x.AlterMeta(func(m *persistent.Map[any, any]) *persistent.Map[any, any] {
		return m.Assoc("owner", "bank")
	})
	assert.Equal(t, "bank", m.Get("owner", nil))
	assert.Same(t, m, x.Meta())

	var fresh = persistent.Empty[any, any]().Assoc("n", 1)
	assert.Same(t, fresh, x.ResetMeta(fresh))
	assert.False(t, x.Meta().ContainsKey("owner"))

	assert.True(t, x.ResetMeta(nil).IsEmpty())
	assert.True(t, x.Meta().IsEmpty())
}

func TestRetryLimit(t *testing.T) {
	var cfg = stm.DefaultConfig()
	cfg.MaxRetries = 2
	cfg.BackoffBase = 0
	var ctx = stm.WithEngine(context.Background(), stm.NewEngine(cfg))

	var x = stm.NewRef(0)
	var attempts int
	var err = stm.DoSync(ctx, func(ctx context.Context, tx *stm.Txn) error {
		attempts++
		var v, err = x.Get(tx)
		if err != nil {
			return err
		}
		commitElsewhere(t, x, v+1)
		return x.Set(tx, -1)
	})
	require.ErrorIs(t, err, stm.ErrRetryLimit)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, x.Deref())
}

func TestTxnState(t *testing.T) {
	var seen *stm.Txn
	var err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		seen = tx
		assert.Equal(t, stm.Running, tx.State())
		assert.NotEqual(t, [16]byte{}, [16]byte(tx.ID()))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, stm.Committed, seen.State())
	assert.Equal(t, "Committed", seen.State().String())

	err = stm.DoSync(context.Background(), func(ctx context.Context, tx *stm.Txn) error {
		seen = tx
		return errors.New("no")
	})
	require.Error(t, err)
	assert.Equal(t, stm.Aborted, seen.State())

	var aborted *stm.AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, seen.ID(), aborted.TxnID)
}
