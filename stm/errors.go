package stm

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrValidationFailed is returned when a validator rejects a candidate
	// value. The current value is left unchanged.
	ErrValidationFailed = errors.New("validator rejected value")

	// ErrTransactionAborted matches every *AbortedError.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrNoTransaction is returned by Ref operations that need a running
	// transaction when given none.
	ErrNoTransaction = errors.New("no transaction running")

	ErrSetAfterCommute = errors.New("ref set after commute in the same transaction")

	// ErrRetryLimit is the cause of an abort after Config.MaxRetries retries.
	ErrRetryLimit = errors.New("transaction retry limit reached")
)

// errRetry unwinds the body of a transaction that must be restarted.
var errRetry = errors.New("stm: retry")

// AbortedError is returned by DoSync when a transaction ends without
// committing. No write of the transaction is visible.
type AbortedError struct {
	TxnID uuid.UUID
	Cause error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("transaction %s aborted: %v", e.TxnID, e.Cause)
}

func (e *AbortedError) Unwrap() error {
	return e.Cause
}

func (e *AbortedError) Is(target error) bool {
	return target == ErrTransactionAborted
}

// PanicError carries a value recovered from a panicking transaction body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in transaction: %v", e.Value)
}

// Unwrap returns the panic value when it is an error, such as a
// runtime.Error for an integer division by zero.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func validationFailed(v any) error {
	return errors.Wrapf(ErrValidationFailed, "value %v", v)
}
