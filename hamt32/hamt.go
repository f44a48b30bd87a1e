/*
Package hamt32 implements a functional Hash Array Mapped Trie (HAMT).
It is called hamt32 because this package is using 32 nodes branching factor for
each level of the Trie. The term functional is used to imply immutable and
persistent.

Keys are hashed by Hash30 into 30 bits. The 30 bits of hash are separated into
six 5 bit values that constitute the hash path of any key in this Trie.
However, not all six levels of the Trie are used. As many levels (six or less)
are used to find a unique location for the leaf to be placed within the Trie.

If all six levels of the Trie are used for two or more key/val pairs, then a
special collision leaf will be used to store those key/val pairs at the sixth
level of the Trie.

Put and Del return a new Hamt and leave the receiver untouched; only the
tables on the path from the root to the changed leaf are copied. Assoc and
Dissoc are the transient forms: they take the trie.Edit of a transient
session, modify tables owned by that session in place, and copy (and take
ownership of) every other table they touch.
*/
package hamt32

import (
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/lleo/go-persistent/trie"
)

// Nbits constant is the number of bits(5) a 30bit hash value is split into,
// to provide the indexes of a HAMT.
const Nbits uint = trie.Bits

// MaxDepth constant is the maximum depth(5) of Nbits values that constitute
// the path in a HAMT, from [0..MaxDepth] for a total of MaxDepth+1(6) levels.
// Nbits*(MaxDepth+1) == HASHBITS (ie 5*(5+1) == 30).
const MaxDepth uint = 5

// TableCapacity constant is the number of table entries in a each node of
// a HAMT datastructure; its value is 1<<Nbits (ie 2^5 == 32).
const TableCapacity uint = trie.Width

// GradeTables variable controls whether Hamt structures will upgrade/
// downgrade compressed/full tables. This variable and FullTableInit
// should not be changed during the lifetime of any Hamt structure.
// Default: true
var GradeTables = true

// FullTableInit variable controls whether the initial new table type is
// fullTable, else the initial new table type is compressedTable.
// Default: false
var FullTableInit = false

// UpgradeThreshold is a variable that defines when a compressedTable meets
// or exceeds that number of entries, then that table will be upgraded to
// a fullTable. This only applies when GradeTables is true.
// The current value is TableCapacity*2/3.
var UpgradeThreshold = TableCapacity * 2 / 3

// DowngradeThreshold is a variable that defines when a fullTable becomes
// lower than that number of entries, then that table will be downgraded to
// a compressedTable. This only applies when GradeTables is true.
// The current value is TableCapacity/4.
var DowngradeThreshold = TableCapacity / 4

const halfIndent = "  "
const fullIndent = "    "

// Hamt is a persistent map from K to V. The zero value is an empty Hamt.
type Hamt[K comparable, V any] struct {
	root     tableI[K, V]
	nentries uint
}

func (h Hamt[K, V]) IsEmpty() bool {
	return h.root == nil
}

func (h Hamt[K, V]) Nentries() uint {
	return h.nentries
}

// persist() is ONLY called on a fresh copy of the current Hamt (or on the
// Hamt held by a transient session). Hence, modifying it is allowed.
//
// The change propagates up the path until a table comes back unchanged,
// which happens when a transient edits a table it already owns.
func (h *Hamt[K, V]) persist(edit *trie.Edit, oldTable, newTable tableI[K, V], path tableStack[K, V]) {
	if path.isEmpty() {
		h.root = newTable
		return
	}

	if oldTable == newTable {
		return
	}

	var depth = uint(path.len())
	var parentDepth = depth - 1

	var parentIdx = index(oldTable.Hash30(), parentDepth)

	var oldParent = path.pop()
	var newParent tableI[K, V]

	if newTable == nil {
		newParent = oldParent.remove(edit, parentIdx)
	} else {
		newParent = oldParent.replace(edit, parentIdx, newTable)
	}

	h.persist(edit, oldParent, newParent, path) //recurses at most MaxDepth times
}

func (h Hamt[K, V]) find(k K, h30 uint32) (path tableStack[K, V], leaf leafI[K, V], idx uint) {
	if h.IsEmpty() {
		return nil, nil, 0
	}

	path = newTableStack[K, V]()
	var curTable = h.root

	var depth uint
	var curNode nodeI[K, V]

DepthIter:
	for depth = 0; depth <= MaxDepth; depth++ {
		path.push(curTable)
		idx = index(h30, depth)
		curNode = curTable.Get(idx)

		switch n := curNode.(type) {
		case nil:
			leaf = nil
			break DepthIter
		case leafI[K, V]:
			leaf = n
			break DepthIter
		case tableI[K, V]:
			if depth == MaxDepth {
				log.Error("find: table below MaxDepth",
					zap.Any("key", k), zap.Stringer("path", path),
					zap.Uint("idx", idx), zap.Stringer("curNode", curNode))
				panic(fmt.Sprintf("hamt32: SHOULD NOT BE REACHED; depth,%d == MaxDepth,%d & invalid type=%T;", depth, MaxDepth, curNode))
			}
			curTable = n
			// exit switch then loop for
		default:
			log.Error("find: unknown node type", zap.Uint("depth", depth), zap.String("type", fmt.Sprintf("%T", curNode)))
			panic(fmt.Sprintf("hamt32: SHOULD NOT BE REACHED: depth=%d; curNode unknown type=%T;", depth, curNode))
		}
	}

	return
}

// Get(k) retrieves the value for a given key from the Hamt. The bool
// represents whether the key was found.
func (h Hamt[K, V]) Get(k K) (val V, found bool) {
	var _, leaf, _ = h.find(k, Hash30(k))

	if leaf == nil {
		return
	}

	return leaf.get(k)
}

// Put inserts a key/val pair into Hamt, returning a new persistent Hamt and a
// bool indicating if the key/val pair was added(true) or merely updated(false).
func (h Hamt[K, V]) Put(k K, v V) (nh Hamt[K, V], added bool) {
	nh = h //copy by value
	added = nh.put(nil, Hash30(k), k, v)
	return
}

// Del returns a Hamt structure, a value, and a boolean that specifies
// whether or not the key was found (and therefore deleted). If the key was
// found & deleted it returns the value associated with the key and a new
// persistent Hamt structure, otherwise it returns a zero value and the
// original (immutable) Hamt structure.
func (h Hamt[K, V]) Del(k K) (nh Hamt[K, V], val V, deleted bool) {
	nh = h // copy by value
	val, deleted = nh.del(nil, Hash30(k), k)
	return
}

// Assoc is the transient form of Put. It modifies h in place, reusing tables
// owned by edit. edit must be non-nil and alive.
func (h *Hamt[K, V]) Assoc(edit *trie.Edit, k K, v V) (added bool) {
	return h.put(edit, Hash30(k), k, v)
}

// Dissoc is the transient form of Del. It modifies h in place, reusing tables
// owned by edit. edit must be non-nil and alive.
func (h *Hamt[K, V]) Dissoc(edit *trie.Edit, k K) (val V, deleted bool) {
	return h.del(edit, Hash30(k), k)
}

func (h *Hamt[K, V]) put(edit *trie.Edit, h30 uint32, k K, v V) (added bool) {
	var path, leaf, idx = h.find(k, h30)

	if path == nil { // h.IsEmpty()
		h.root = createRootTable[K, V](edit, newFlatLeaf(h30, k, v))
		h.nentries++
		return true
	}

	var curTable = path.pop()
	var depth = uint(path.len())

	var newTable tableI[K, V]

	if leaf == nil {
		newTable = curTable.insert(edit, idx, newFlatLeaf(h30, k, v))
		added = true
	} else {
		if leaf.Hash30() == h30 {
			var newLeaf leafI[K, V]
			newLeaf, added = leaf.put(k, v)
			newTable = curTable.replace(edit, idx, newLeaf)
		} else {
			var tmpTable = createTable(edit, depth+1, leaf, leafI[K, V](newFlatLeaf(h30, k, v)))
			newTable = curTable.replace(edit, idx, tmpTable)
			added = true
		}
	}

	if added {
		h.nentries++
	}

	h.persist(edit, curTable, newTable, path)

	return
}

func (h *Hamt[K, V]) del(edit *trie.Edit, h30 uint32, k K) (val V, deleted bool) {
	var path, leaf, idx = h.find(k, h30)

	if path == nil || leaf == nil {
		return
	}

	var newLeaf leafI[K, V]
	newLeaf, val, deleted = leaf.del(k)

	if !deleted {
		return
	}

	var curTable = path.pop()
	var newTable tableI[K, V]

	if newLeaf == nil {
		newTable = curTable.remove(edit, idx)
	} else {
		newTable = curTable.replace(edit, idx, newLeaf)
	}

	h.nentries--

	h.persist(edit, curTable, newTable, path)

	return
}

// All returns an iterator over every key/val pair in the Hamt. The order is
// the order of the hash paths, so it is stable for a given set of keys.
func (h Hamt[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if h.root == nil {
			return
		}
		walkTable(h.root, yield)
	}
}

func walkTable[K comparable, V any](t tableI[K, V], yield func(K, V) bool) bool {
	return t.walk(func(n nodeI[K, V]) bool {
		switch x := n.(type) {
		case leafI[K, V]:
			for _, kv := range x.keyVals() {
				if !yield(kv.Key, kv.Val) {
					return false
				}
			}
			return true
		case tableI[K, V]:
			return walkTable(x, yield)
		}
		return true
	})
}

func (h Hamt[K, V]) String() string {
	return fmt.Sprintf("Hamt{ nentries: %d, root: %v }", h.nentries, h.root)
}

func (h Hamt[K, V]) LongString(indent string) string {
	var str string
	if h.root != nil {
		str = indent + fmt.Sprintf("Hamt{ nentries: %d, root:\n", h.nentries)
		str += indent + h.root.LongString(indent+fullIndent, true)
		str += indent + "}end\n"
	} else {
		str = indent + fmt.Sprintf("Hamt{ nentries: %d, root: nil }", h.nentries)
	}
	return str
}
