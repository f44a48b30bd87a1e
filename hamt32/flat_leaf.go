package hamt32

import "fmt"

type flatLeaf[K comparable, V any] struct {
	hash30 uint32 //Hash30(key)
	key    K
	val    V
}

func newFlatLeaf[K comparable, V any](h30 uint32, k K, v V) *flatLeaf[K, V] {
	var fl = new(flatLeaf[K, V])
	fl.hash30 = h30
	fl.key = k
	fl.val = v
	return fl
}

func (l *flatLeaf[K, V]) Hash30() uint32 {
	return l.hash30
}

func (l *flatLeaf[K, V]) String() string {
	return fmt.Sprintf("flatLeaf{hash30:%s, key:%v, val:%v}", h30ToString(l.hash30), l.key, l.val)
}

func (l *flatLeaf[K, V]) get(k K) (V, bool) {
	if l.key == k {
		return l.val, true
	}
	var zero V
	return zero, false
}

// put is only called with a key whose Hash30() equals l.hash30.
func (l *flatLeaf[K, V]) put(k K, v V) (leafI[K, V], bool) {
	if l.key == k {
		return newFlatLeaf(l.hash30, l.key, v), false //replaced
	}

	var nl = newCollisionLeaf(l.hash30, []KeyVal[K, V]{{l.key, l.val}, {k, v}})

	return nl, true //added
}

func (l *flatLeaf[K, V]) del(k K) (leafI[K, V], V, bool) {
	if l.key == k {
		return nil, l.val, true //deleted entry
	}
	var zero V
	return l, zero, false //didn't delete
}

func (l *flatLeaf[K, V]) keyVals() []KeyVal[K, V] {
	return []KeyVal[K, V]{{l.key, l.val}}
}
