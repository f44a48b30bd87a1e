package stm

import (
	"context"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// clock is the global commit point. Every commit advances it by one, and
// every transaction attempt reads it as its read point.
var clock atomic.Uint64

// Engine runs transactions with a given Config. Refs are not bound to an
// engine; any engine may run a transaction over any Ref.
type Engine struct {
	cfg Config
	log *zap.Logger

	commits atomic.Uint64
	retries atomic.Uint64
	aborts  atomic.Uint64
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	var e = &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = sync.OnceValue(func() *Engine {
	return NewEngine(DefaultConfig())
})

// Default returns the process-wide engine, created with DefaultConfig on
// first use.
func Default() *Engine {
	return defaultEngine()
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) logger() *zap.Logger {
	if e.log != nil {
		return e.log
	}
	return log
}

// Stats counts the outcomes of transactions run by an engine.
type Stats struct {
	Commits uint64
	Retries uint64
	Aborts  uint64
}

func (e *Engine) Stats() Stats {
	return Stats{
		Commits: e.commits.Load(),
		Retries: e.retries.Load(),
		Aborts:  e.aborts.Load(),
	}
}

type engineKey struct{}
type txnKey struct{}

// WithEngine returns a context that makes DoSync and Sync use e.
func WithEngine(ctx context.Context, e *Engine) context.Context {
	return context.WithValue(ctx, engineKey{}, e)
}

func engineFrom(ctx context.Context) *Engine {
	if e, ok := ctx.Value(engineKey{}).(*Engine); ok && e != nil {
		return e
	}
	return Default()
}

// Current returns the transaction running in ctx, or nil.
func Current(ctx context.Context) *Txn {
	var tx, _ = ctx.Value(txnKey{}).(*Txn)
	if tx == nil || tx.state != Running {
		return nil
	}
	return tx
}

// DoSync runs fn in a transaction of the engine carried by ctx, or of the
// Default engine. See Engine.DoSync.
func DoSync(ctx context.Context, fn func(ctx context.Context, tx *Txn) error) error {
	return engineFrom(ctx).DoSync(ctx, fn)
}

// Sync is DoSync for a body that produces a result. The result of the
// committed attempt is returned.
func Sync[R any](ctx context.Context, fn func(ctx context.Context, tx *Txn) (R, error)) (R, error) {
	var result R
	var err = DoSync(ctx, func(ctx context.Context, tx *Txn) error {
		var r, err = fn(ctx, tx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}

// DoSync runs fn in a transaction and commits it.
//
// If ctx already carries a running transaction, fn joins it: it runs once
// in that transaction and its error is returned as is, for the outer
// transaction to handle.
//
// Otherwise fn runs in a new transaction, and again from scratch every time
// the commit finds a conflict. fn gets a context carrying the transaction,
// which nested DoSync calls join. An error returned by fn, a panic in fn,
// or a validator rejecting a value at commit aborts the transaction, and
// DoSync returns an *AbortedError wrapping the cause.
func (e *Engine) DoSync(ctx context.Context, fn func(ctx context.Context, tx *Txn) error) error {
	if tx := Current(ctx); tx != nil {
		return fn(ctx, tx)
	}

	var tx = &Txn{id: uuid.New(), engine: e}
	ctx = context.WithValue(ctx, txnKey{}, tx)
	var logger = e.logger().With(zap.Stringer("txn", tx.id))

	for attempt := 0; ; attempt++ {
		if e.cfg.MaxRetries > 0 && attempt > e.cfg.MaxRetries {
			return e.abort(tx, logger, errors.Wrapf(ErrRetryLimit, "%d retries", e.cfg.MaxRetries))
		}

		tx.begin(attempt)
		var err = tx.run(ctx, fn)
		if err == nil {
			err = tx.commit()
		}

		switch {
		case err == nil:
			tx.state = Committed
			e.commits.Add(1)
			logger.Debug("committed", zap.Uint64("point", tx.commitPoint), zap.Int("attempt", attempt))
			tx.notifyWatches()
			tx.reset()
			return nil
		case errors.Is(err, errRetry):
			tx.state = Retrying
			e.retries.Add(1)
			logger.Debug("retrying", zap.Int("attempt", attempt), zap.Uint64("readPoint", tx.readPoint))
			e.backoff(attempt)
		default:
			return e.abort(tx, logger, err)
		}
	}
}

func (e *Engine) abort(tx *Txn, logger *zap.Logger, cause error) error {
	tx.state = Aborted
	tx.reset()
	e.aborts.Add(1)
	logger.Debug("aborted", zap.Error(cause))
	return &AbortedError{TxnID: tx.id, Cause: cause}
}

func (e *Engine) backoff(attempt int) {
	if e.cfg.BackoffBase <= 0 {
		return
	}
	var d = e.cfg.BackoffMax
	if attempt < 32 {
		d = min(e.cfg.BackoffBase<<attempt, e.cfg.BackoffMax)
	}
	if d > 0 {
		time.Sleep(rand.N(d) + 1)
	}
}

// run calls fn, turning a panic into a *PanicError.
func (tx *Txn) run(ctx context.Context, fn func(ctx context.Context, tx *Txn) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, tx)
}
