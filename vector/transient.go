package vector

import (
	"github.com/lleo/go-persistent/trie"
)

// Transient is a mutable view of a Vector for batched updates. It is not
// safe for concurrent use. Every method returns ErrInvalidatedTransient
// once Persistent has been called.
type Transient[T any] struct {
	edit *trie.Edit
	v    Vector[T]
}

// AsTransient starts a transient session over v. v itself is never
// modified.
func (v *Vector[T]) AsTransient() *Transient[T] {
	var edit = trie.NewEdit()
	var tail = make([]T, len(v.tail), trie.Width)
	copy(tail, v.tail)
	return &Transient[T]{
		edit: edit,
		v: Vector[T]{
			count: v.count,
			shift: v.shift,
			root:  v.root.Clone(edit),
			tail:  tail,
		},
	}
}

func (t *Transient[T]) Count() (int, error) {
	if err := t.edit.Check(); err != nil {
		return 0, err
	}
	return t.v.count, nil
}

func (t *Transient[T]) Get(i int) (T, error) {
	if err := t.edit.Check(); err != nil {
		var zero T
		return zero, err
	}
	return t.v.Get(i)
}

// Conj appends x in place.
func (t *Transient[T]) Conj(x T) (*Transient[T], error) {
	if err := t.edit.Check(); err != nil {
		return nil, err
	}
	t.v.conj(t.edit, x)
	return t, nil
}

// Assoc replaces the element at i in place; i may equal the count.
func (t *Transient[T]) Assoc(i int, x T) (*Transient[T], error) {
	if err := t.edit.Check(); err != nil {
		return nil, err
	}
	if i == t.v.count {
		t.v.conj(t.edit, x)
		return t, nil
	}
	if i < 0 || i > t.v.count {
		return nil, outOfRange(i, t.v.count)
	}
	t.v.assoc(t.edit, i, x)
	return t, nil
}

// Pop removes the last element in place.
func (t *Transient[T]) Pop() (*Transient[T], error) {
	if err := t.edit.Check(); err != nil {
		return nil, err
	}
	if t.v.count == 0 {
		return nil, ErrEmptyCollection
	}
	t.v.pop(t.edit)
	return t, nil
}

// Persistent ends the session and returns the resulting Vector.
func (t *Transient[T]) Persistent() (*Vector[T], error) {
	if !t.edit.Kill() {
		return nil, trie.ErrInvalidatedTransient
	}
	return t.freeze(), nil
}

// persistent is Persistent for sessions the package itself started.
func (t *Transient[T]) persistent() *Vector[T] {
	t.edit.Kill()
	return t.freeze()
}

func (t *Transient[T]) freeze() *Vector[T] {
	var nv = t.v
	nv.tail = nv.tail[:len(nv.tail):len(nv.tail)]
	return &nv
}
