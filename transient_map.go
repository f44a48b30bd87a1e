package persistent

import (
	"github.com/lleo/go-persistent/hamt32"
	"github.com/lleo/go-persistent/trie"
)

// TransientMap is a mutable view of a Map for batched updates. It is not
// safe for concurrent use.
//
// A transient flat map moves to a hash trie once it reaches FlatThreshold
// entries but does not move back while the session lasts; Persistent picks
// the representation for the final count.
type TransientMap[K comparable, V any] struct {
	edit   *trie.Edit
	flat   []KeyVal[K, V]
	trie   hamt32.Hamt[K, V]
	hashed bool
}

// AsTransient starts a transient session over m. m itself is never
// modified.
func (m *Map[K, V]) AsTransient() *TransientMap[K, V] {
	var t = &TransientMap[K, V]{
		edit:   trie.NewEdit(),
		trie:   m.trie,
		hashed: m.hashed,
	}
	if !m.hashed {
		t.flat = make([]KeyVal[K, V], len(m.flat), FlatThreshold)
		copy(t.flat, m.flat)
	}
	return t
}

func (t *TransientMap[K, V]) Count() (int, error) {
	if err := t.edit.Check(); err != nil {
		return 0, err
	}
	return t.count(), nil
}

func (t *TransientMap[K, V]) Lookup(k K) (V, bool, error) {
	if err := t.edit.Check(); err != nil {
		var zero V
		return zero, false, err
	}
	var v, found = t.lookup(k)
	return v, found, nil
}

// Assoc maps k to v in place.
func (t *TransientMap[K, V]) Assoc(k K, v V) (*TransientMap[K, V], error) {
	if err := t.edit.Check(); err != nil {
		return nil, err
	}
	t.assoc(k, v)
	return t, nil
}

// Dissoc removes k in place.
func (t *TransientMap[K, V]) Dissoc(k K) (*TransientMap[K, V], error) {
	if err := t.edit.Check(); err != nil {
		return nil, err
	}
	t.dissoc(k)
	return t, nil
}

// Persistent ends the session and returns the resulting Map.
func (t *TransientMap[K, V]) Persistent() (*Map[K, V], error) {
	if err := t.edit.Check(); err != nil {
		return nil, err
	}
	return t.persistent(), nil
}

func (t *TransientMap[K, V]) count() int {
	if t.hashed {
		return int(t.trie.Nentries())
	}
	return len(t.flat)
}

func (t *TransientMap[K, V]) lookup(k K) (V, bool) {
	if t.hashed {
		return t.trie.Get(k)
	}
	if i := flatIndex(t.flat, k); i >= 0 {
		return t.flat[i].Val, true
	}
	var zero V
	return zero, false
}

func (t *TransientMap[K, V]) assoc(k K, v V) {
	if t.hashed {
		t.trie.Assoc(t.edit, k, v)
		return
	}
	if i := flatIndex(t.flat, k); i >= 0 {
		t.flat[i].Val = v
		return
	}
	if len(t.flat)+1 >= FlatThreshold {
		t.trie = flatToHamt(t.edit, t.flat)
		t.trie.Assoc(t.edit, k, v)
		t.flat = nil
		t.hashed = true
		return
	}
	t.flat = append(t.flat, KeyVal[K, V]{Key: k, Val: v})
}

func (t *TransientMap[K, V]) dissoc(k K) {
	if t.hashed {
		t.trie.Dissoc(t.edit, k)
		return
	}
	var i = flatIndex(t.flat, k)
	if i < 0 {
		return
	}
	var last = len(t.flat) - 1
	copy(t.flat[i:], t.flat[i+1:])
	t.flat[last] = KeyVal[K, V]{}
	t.flat = t.flat[:last]
}

func (t *TransientMap[K, V]) persistent() *Map[K, V] {
	t.edit.Kill()
	if t.hashed {
		if t.trie.Nentries() < FlatThreshold {
			return &Map[K, V]{flat: hamtToFlat(t.trie)}
		}
		return &Map[K, V]{trie: t.trie, hashed: true}
	}
	var n = len(t.flat)
	return &Map[K, V]{flat: t.flat[:n:n]}
}
