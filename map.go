package persistent

import (
	"fmt"
	"iter"
	"strings"

	"github.com/pkg/errors"

	"github.com/lleo/go-persistent/hamt32"
	"github.com/lleo/go-persistent/internal/equiv"
	"github.com/lleo/go-persistent/trie"
)

// FlatThreshold is the entry count at which a Map stops being a flat slice
// and becomes a hash trie.
const FlatThreshold = 16

type KeyVal[K comparable, V any] = hamt32.KeyVal[K, V]

// Map is an immutable hash map. Keys are compared with ==; values are
// compared by value (see Assoc). Use Empty, FromMap or Zip to build one.
type Map[K comparable, V any] struct {
	flat   []KeyVal[K, V]
	trie   hamt32.Hamt[K, V]
	hashed bool
}

// Empty returns an empty map.
func Empty[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

// FromMap returns a Map holding the pairs of m.
func FromMap[K comparable, V any](m map[K]V) *Map[K, V] {
	var t = Empty[K, V]().AsTransient()
	for k, v := range m {
		t.assoc(k, v)
	}
	return t.persistent()
}

// Zip returns a Map of keys[i] to vals[i]. Extra elements of the longer
// slice are ignored.
func Zip[K comparable, V any](keys []K, vals []V) *Map[K, V] {
	var t = Empty[K, V]().AsTransient()
	for i := 0; i < len(keys) && i < len(vals); i++ {
		t.assoc(keys[i], vals[i])
	}
	return t.persistent()
}

func (m *Map[K, V]) Count() int {
	if m.hashed {
		return int(m.trie.Nentries())
	}
	return len(m.flat)
}

func (m *Map[K, V]) IsEmpty() bool {
	return m.Count() == 0
}

func flatIndex[K comparable, V any](flat []KeyVal[K, V], k K) int {
	for i := range flat {
		if flat[i].Key == k {
			return i
		}
	}
	return -1
}

// Lookup returns the value for k and whether k is present.
func (m *Map[K, V]) Lookup(k K) (V, bool) {
	if m.hashed {
		return m.trie.Get(k)
	}
	if i := flatIndex(m.flat, k); i >= 0 {
		return m.flat[i].Val, true
	}
	var zero V
	return zero, false
}

// Get returns the value for k, or def when k is absent.
func (m *Map[K, V]) Get(k K, def V) V {
	if v, found := m.Lookup(k); found {
		return v
	}
	return def
}

// Find returns the value for k, or ErrKeyNotFound.
func (m *Map[K, V]) Find(k K) (V, error) {
	var v, found = m.Lookup(k)
	if !found {
		return v, errors.Wrapf(ErrKeyNotFound, "key %v", k)
	}
	return v, nil
}

func (m *Map[K, V]) ContainsKey(k K) bool {
	var _, found = m.Lookup(k)
	return found
}

// ContainsValue reports whether some key maps to a value equal to v. It
// visits every entry.
func (m *Map[K, V]) ContainsValue(v V) bool {
	for _, mv := range m.All() {
		if equiv.Equal(mv, v) {
			return true
		}
	}
	return false
}

// Assoc returns a map with k mapped to v. If k already maps to a value
// equal to v, the receiver itself is returned.
func (m *Map[K, V]) Assoc(k K, v V) *Map[K, V] {
	if old, found := m.Lookup(k); found && equiv.Equal(old, v) {
		return m
	}

	if m.hashed {
		var nt, _ = m.trie.Put(k, v)
		return &Map[K, V]{trie: nt, hashed: true}
	}

	if i := flatIndex(m.flat, k); i >= 0 {
		var nf = make([]KeyVal[K, V], len(m.flat))
		copy(nf, m.flat)
		nf[i].Val = v
		return &Map[K, V]{flat: nf}
	}

	if len(m.flat)+1 >= FlatThreshold {
		var h = flatToHamt(nil, m.flat)
		h, _ = h.Put(k, v)
		return &Map[K, V]{trie: h, hashed: true}
	}

	var nf = make([]KeyVal[K, V], len(m.flat)+1)
	copy(nf, m.flat)
	nf[len(m.flat)] = KeyVal[K, V]{Key: k, Val: v}
	return &Map[K, V]{flat: nf}
}

// AssocEx is Assoc for a key that must not be present yet.
func (m *Map[K, V]) AssocEx(k K, v V) (*Map[K, V], error) {
	if m.ContainsKey(k) {
		return nil, errors.Wrapf(ErrKeyExists, "key %v", k)
	}
	return m.Assoc(k, v), nil
}

// Dissoc returns a map without k. If k is absent the receiver itself is
// returned.
func (m *Map[K, V]) Dissoc(k K) *Map[K, V] {
	if m.hashed {
		var nt, _, deleted = m.trie.Del(k)
		if !deleted {
			return m
		}
		if nt.Nentries() < FlatThreshold {
			return &Map[K, V]{flat: hamtToFlat(nt)}
		}
		return &Map[K, V]{trie: nt, hashed: true}
	}

	var i = flatIndex(m.flat, k)
	if i < 0 {
		return m
	}
	var nf = make([]KeyVal[K, V], 0, len(m.flat)-1)
	nf = append(nf, m.flat[:i]...)
	nf = append(nf, m.flat[i+1:]...)
	return &Map[K, V]{flat: nf}
}

// Update returns a map with k mapped to f(old, found).
func (m *Map[K, V]) Update(k K, f func(old V, found bool) V) *Map[K, V] {
	var old, found = m.Lookup(k)
	return m.Assoc(k, f(old, found))
}

// Merge returns a map with every pair of other added to m. Keys of other
// win. If nothing changes the receiver itself is returned.
func (m *Map[K, V]) Merge(other *Map[K, V]) *Map[K, V] {
	return m.merge(other, nil)
}

// MergeWith is Merge, except that when both maps hold a key the result
// holds f(existing, incoming).
func (m *Map[K, V]) MergeWith(f func(existing, incoming V) V, other *Map[K, V]) *Map[K, V] {
	return m.merge(other, f)
}

func (m *Map[K, V]) merge(other *Map[K, V], f func(V, V) V) *Map[K, V] {
	if other == nil || other.IsEmpty() {
		return m
	}
	if m.IsEmpty() {
		return other
	}

	var t *TransientMap[K, V]
	for k, v := range other.All() {
		// keys of other are distinct, so m still holds the old value
		var old, found = m.Lookup(k)
		if found && f != nil {
			v = f(old, v)
		}
		if found && equiv.Equal(old, v) {
			continue
		}
		if t == nil {
			t = m.AsTransient()
		}
		t.assoc(k, v)
	}
	if t == nil {
		return m
	}
	return t.persistent()
}

// Filter returns a map of the pairs for which keep returns true. If every
// pair is kept the receiver itself is returned.
func (m *Map[K, V]) Filter(keep func(K, V) bool) *Map[K, V] {
	var t *TransientMap[K, V]
	for k, v := range m.All() {
		if keep(k, v) {
			continue
		}
		if t == nil {
			t = m.AsTransient()
		}
		t.dissoc(k)
	}
	if t == nil {
		return m
	}
	return t.persistent()
}

// All iterates over the key/val pairs. Small maps yield pairs in insertion
// order; larger ones in hash order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	if m.hashed {
		return m.trie.All()
	}
	var flat = m.flat
	return func(yield func(K, V) bool) {
		for _, kv := range flat {
			if !yield(kv.Key, kv.Val) {
				return
			}
		}
	}
}

func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// ToMap returns the pairs in a new Go map.
func (m *Map[K, V]) ToMap() map[K]V {
	var gm = make(map[K]V, m.Count())
	for k, v := range m.All() {
		gm[k] = v
	}
	return gm
}

// Raw returns the pairs boxed as any, for serializers.
func (m *Map[K, V]) Raw() map[any]any {
	var rm = make(map[any]any, m.Count())
	for k, v := range m.All() {
		rm[k] = v
	}
	return rm
}

// Equal reports whether m and o hold the same keys mapped to equal values.
// A nil map only equals nil.
func (m *Map[K, V]) Equal(o *Map[K, V]) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil || m.Count() != o.Count() {
		return false
	}
	for k, v := range m.All() {
		var ov, found = o.Lookup(k)
		if !found || !equiv.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Equiv implements equiv.Equiver.
func (m *Map[K, V]) Equiv(other any) bool {
	var o, ok = other.(*Map[K, V])
	return ok && m.Equal(o)
}

func (m *Map[K, V]) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	var first = true
	for k, v := range m.All() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%v %v", k, v)
	}
	sb.WriteByte('}')
	return sb.String()
}

// flatToHamt builds a Hamt from flat pairs. A nil edit builds it under a
// private session.
func flatToHamt[K comparable, V any](edit *trie.Edit, flat []KeyVal[K, V]) hamt32.Hamt[K, V] {
	var own = edit == nil
	if own {
		edit = trie.NewEdit()
	}
	var h hamt32.Hamt[K, V]
	for _, kv := range flat {
		h.Assoc(edit, kv.Key, kv.Val)
	}
	if own {
		edit.Kill()
	}
	return h
}

func hamtToFlat[K comparable, V any](h hamt32.Hamt[K, V]) []KeyVal[K, V] {
	var flat = make([]KeyVal[K, V], 0, h.Nentries())
	for k, v := range h.All() {
		flat = append(flat, KeyVal[K, V]{Key: k, Val: v})
	}
	return flat
}
