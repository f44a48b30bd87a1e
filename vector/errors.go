package vector

import (
	"github.com/pkg/errors"

	"github.com/lleo/go-persistent/trie"
)

var (
	// ErrIndexOutOfRange is returned when an index falls outside the
	// vector. Reads accept [0, count); Assoc and Insert also accept count.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEmptyCollection is returned by Pop and Peek on an empty vector.
	ErrEmptyCollection = errors.New("empty collection")

	ErrInvalidatedTransient = trie.ErrInvalidatedTransient
)

func outOfRange(i, count int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "index %d, count %d", i, count)
}
