package trie

import "github.com/pkg/errors"

// ErrInvalidatedTransient is returned by every operation on a transient
// collection after it has been turned back into a persistent one.
var ErrInvalidatedTransient = errors.New("transient used after persistent! call")

// Check returns ErrInvalidatedTransient unless e is alive.
func (e *Edit) Check() error {
	if !e.Alive() {
		return errors.WithStack(ErrInvalidatedTransient)
	}
	return nil
}
