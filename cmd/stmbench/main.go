// stmbench exercises the collections and reference types under load: it
// runs concurrent bank transfers over Refs and checks that money is never
// created or lost, hammers an Atom counter, and compares building
// collections with and without transients.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lleo/go-persistent"
	"github.com/lleo/go-persistent/codec"
	"github.com/lleo/go-persistent/hamt32"
	"github.com/lleo/go-persistent/stm"
	"github.com/lleo/go-persistent/vector"
)

const initialBalance = 1000

type options struct {
	workers   int
	accounts  int
	transfers int
	bulk      int
	config    string
	snapshot  string
	verbose   bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options

	flagSet := pflag.NewFlagSet("stmbench", pflag.ContinueOnError)
	flagSet.IntVarP(&opts.workers, "workers", "w", 8, "number of concurrent workers")
	flagSet.IntVarP(&opts.accounts, "accounts", "a", 10, "number of bank accounts")
	flagSet.IntVarP(&opts.transfers, "transfers", "n", 10000, "transfers per worker")
	flagSet.IntVar(&opts.bulk, "bulk", 100000, "elements for the bulk build comparison")
	flagSet.StringVarP(&opts.config, "config", "c", "", "YAML file with engine settings")
	flagSet.StringVar(&opts.snapshot, "snapshot", "", "write the final balances to this file as CBOR")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log every retry and abort")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if opts.workers < 1 || opts.accounts < 2 || opts.transfers < 0 || opts.bulk < 0 {
		return errors.New("need at least one worker, two accounts and non-negative counts")
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	stm.UseLogger(logger)
	hamt32.UseLogger(logger)

	var cfg = stm.DefaultConfig()
	if opts.config != "" {
		if cfg, err = stm.LoadConfig(opts.config); err != nil {
			return err
		}
	}
	var engine = stm.NewEngine(cfg, stm.WithLogger(logger))
	var ctx = stm.WithEngine(context.Background(), engine)

	balances, err := runTransfers(ctx, opts)
	if err != nil {
		return err
	}
	var stats = engine.Stats()
	fmt.Printf("transfers: %d commits, %d retries, %d aborts\n",
		stats.Commits, stats.Retries, stats.Aborts)

	fmt.Printf("atom: %s\n", runCounter(opts))

	persistentTime, transientTime, err := bulkBuild(opts.bulk)
	if err != nil {
		return err
	}
	fmt.Printf("bulk build of %d: persistent %s, transient %s\n",
		opts.bulk, persistentTime, transientTime)

	if opts.snapshot != "" {
		data, err := codec.Marshal(balances)
		if err != nil {
			return err
		}
		if err = os.WriteFile(opts.snapshot, data, 0o644); err != nil {
			return errors.Wrap(err, "writing snapshot")
		}
		logger.Info("wrote snapshot", zap.String("path", opts.snapshot), zap.Int("bytes", len(data)))
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	var cfg = zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// runTransfers moves random amounts between random accounts from every
// worker, while one more goroutine audits the total in read-only
// transactions. Every committed transfer is also recorded, by commute, in a
// shared ledger vector.
func runTransfers(ctx context.Context, opts options) (*persistent.Map[int, int], error) {
	var accounts = make([]*stm.Ref[int], opts.accounts)
	for i := range accounts {
		accounts[i] = stm.NewRefIn(ctx, initialBalance)
	}
	var ledger = stm.NewRefIn(ctx, vector.Empty[int]())
	var want = initialBalance * opts.accounts

	var wg sync.WaitGroup
	var errs = make(chan error, opts.workers+1)
	var done = make(chan struct{})

	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opts.transfers; i++ {
				if err := transfer(ctx, accounts, ledger); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	var audits int
	var auditor sync.WaitGroup
	auditor.Add(1)
	go func() {
		defer auditor.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			total, err := sum(ctx, accounts)
			if err != nil {
				errs <- err
				return
			}
			if total != want {
				errs <- errors.Errorf("audit saw a total of %d, want %d", total, want)
				return
			}
			audits++
		}
	}()

	wg.Wait()
	close(done)
	auditor.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	total, err := sum(ctx, accounts)
	if err != nil {
		return nil, err
	}
	if total != want {
		return nil, errors.Errorf("final total is %d, want %d", total, want)
	}
	var moved = vector.Reduce(ledger.Deref(), 0, func(acc, amt int) int { return acc + amt })
	fmt.Printf("accounts: %d, total %d, audits %d, ledger %d entries moving %d\n",
		opts.accounts, total, audits, ledger.Deref().Count(), moved)

	var t = persistent.Empty[int, int]().AsTransient()
	for i, r := range accounts {
		if _, err = t.Assoc(i, r.Deref()); err != nil {
			return nil, err
		}
	}
	return t.Persistent()
}

func transfer(ctx context.Context, accounts []*stm.Ref[int], ledger *stm.Ref[*vector.Vector[int]]) error {
	var from = rand.N(len(accounts))
	var to = rand.N(len(accounts) - 1)
	if to >= from {
		to++
	}
	var amount = rand.N(100) + 1

	return stm.DoSync(ctx, func(ctx context.Context, tx *stm.Txn) error {
		balance, err := accounts[from].Get(tx)
		if err != nil {
			return err
		}
		if balance < amount {
			return nil
		}
		if _, err = accounts[from].Alter(tx, func(b int) int { return b - amount }); err != nil {
			return err
		}
		if _, err = accounts[to].Alter(tx, func(b int) int { return b + amount }); err != nil {
			return err
		}
		_, err = ledger.Commute(tx, func(v *vector.Vector[int]) *vector.Vector[int] {
			return v.Cons(amount)
		})
		return err
	})
}

func sum(ctx context.Context, accounts []*stm.Ref[int]) (int, error) {
	return stm.Sync(ctx, func(ctx context.Context, tx *stm.Txn) (int, error) {
		var total int
		for _, r := range accounts {
			b, err := r.Get(tx)
			if err != nil {
				return 0, err
			}
			total += b
		}
		return total, nil
	})
}

// runCounter increments one Atom from every worker and reports the final
// value against the expected count.
func runCounter(opts options) string {
	var counter = stm.NewAtom(0)
	var start = time.Now()

	var wg sync.WaitGroup
	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opts.transfers; i++ {
				_, _ = counter.Swap(func(n int) int { return n + 1 })
			}
		}()
	}
	wg.Wait()

	return fmt.Sprintf("%d increments (want %d) in %s",
		counter.Deref(), opts.workers*opts.transfers, time.Since(start))
}

// bulkBuild builds a vector and a map of n elements twice, once through
// persistent updates and once through transients, and checks that both
// ways produce equal collections.
func bulkBuild(n int) (persistentTime, transientTime time.Duration, err error) {
	var start = time.Now()
	var pv = vector.Empty[int]()
	var pm = persistent.Empty[int, int]()
	for i := 0; i < n; i++ {
		pv = pv.Cons(i)
		pm = pm.Assoc(i, i*i)
	}
	persistentTime = time.Since(start)

	start = time.Now()
	var tv = vector.Empty[int]().AsTransient()
	var tm = persistent.Empty[int, int]().AsTransient()
	for i := 0; i < n; i++ {
		if _, err = tv.Conj(i); err != nil {
			return 0, 0, err
		}
		if _, err = tm.Assoc(i, i*i); err != nil {
			return 0, 0, err
		}
	}
	v, err := tv.Persistent()
	if err != nil {
		return 0, 0, err
	}
	m, err := tm.Persistent()
	if err != nil {
		return 0, 0, err
	}
	transientTime = time.Since(start)

	if !pv.Equal(v) || !pm.Equal(m) {
		return 0, 0, errors.New("transient and persistent builds differ")
	}
	return persistentTime, transientTime, nil
}
