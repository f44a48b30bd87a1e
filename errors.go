package persistent

import (
	"github.com/pkg/errors"

	"github.com/lleo/go-persistent/trie"
)

var (
	// ErrKeyNotFound is returned by strict lookups of a missing key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists is returned by AssocEx when the key is already present.
	ErrKeyExists = errors.New("key already present")

	// ErrStructuralTypeMismatch is returned when a path operation meets a
	// value that is not a map where it expected one.
	ErrStructuralTypeMismatch = errors.New("structural type mismatch")

	ErrEmptyPath = errors.New("empty key path")

	ErrInvalidatedTransient = trie.ErrInvalidatedTransient
)
