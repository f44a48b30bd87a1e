package hamt32

import (
	"fmt"
	"strings"
)

// collisionLeaf holds every key/val pair whose keys share the same 30 bit
// hash, which exhausts the hash path of the Trie.
type collisionLeaf[K comparable, V any] struct {
	hash30 uint32
	kvs    []KeyVal[K, V]
}

func newCollisionLeaf[K comparable, V any](h30 uint32, kvs []KeyVal[K, V]) *collisionLeaf[K, V] {
	var leaf = new(collisionLeaf[K, V])
	leaf.hash30 = h30
	leaf.kvs = append(leaf.kvs, kvs...)

	return leaf
}

func (l *collisionLeaf[K, V]) Hash30() uint32 {
	return l.hash30
}

func (l *collisionLeaf[K, V]) String() string {
	var kvstrs = make([]string, len(l.kvs))
	for i := 0; i < len(l.kvs); i++ {
		kvstrs[i] = l.kvs[i].String()
	}
	var jkvstr = strings.Join(kvstrs, ",")

	return fmt.Sprintf("collisionLeaf{hash30:%s, kvs:[%s]}", h30ToString(l.hash30), jkvstr)
}

func (l *collisionLeaf[K, V]) get(k K) (V, bool) {
	for i := 0; i < len(l.kvs); i++ {
		if l.kvs[i].Key == k {
			return l.kvs[i].Val, true
		}
	}
	var zero V
	return zero, false
}

// put inserts a new key,val pair into a copy of the leaf, and returns the new
// leaf and a bool representing if the new leaf is bigger (ie accumulated a
// key/val pair).
func (l *collisionLeaf[K, V]) put(k K, v V) (leafI[K, V], bool) {
	var nl = newCollisionLeaf(l.hash30, l.kvs)

	for i := 0; i < len(nl.kvs); i++ {
		if nl.kvs[i].Key == k {
			nl.kvs[i].Val = v
			return nl, false // key,val was not added, merely replaced Val
		}
	}

	nl.kvs = append(nl.kvs, KeyVal[K, V]{k, v})
	return nl, true // k,v was added
}

// del searches the current list of key/val pairs; if k is found it returns a
// new leaf without it, the removed value, and true. Removing down to one pair
// turns the collisionLeaf back into a flatLeaf.
func (l *collisionLeaf[K, V]) del(k K) (leafI[K, V], V, bool) {
	for i := 0; i < len(l.kvs); i++ {
		if l.kvs[i].Key != k {
			continue
		}
		var retVal = l.kvs[i].Val

		if len(l.kvs) == 2 {
			var other = l.kvs[1-i]
			return newFlatLeaf(l.hash30, other.Key, other.Val), retVal, true
		}

		var nl = new(collisionLeaf[K, V])
		nl.hash30 = l.hash30
		nl.kvs = make([]KeyVal[K, V], 0, len(l.kvs)-1)
		nl.kvs = append(nl.kvs, l.kvs[:i]...)
		nl.kvs = append(nl.kvs, l.kvs[i+1:]...)

		return nl, retVal, true
	}

	var zero V
	return l, zero, false
}

func (l *collisionLeaf[K, V]) keyVals() []KeyVal[K, V] {
	return l.kvs
}
