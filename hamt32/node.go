package hamt32

import "fmt"

// nodeI is the interface for every entry in a table; so table entries are
// either a leaf or a table or nil.
//
// The nodeI interface can be for compressedTable, fullTable, flatLeaf, or
// collisionLeaf.
//
// The tableI interface is for compressedTable and fullTable.
//
// The Hash30() method for leaf structs is the 30 bit hash of the leaf's
// key(s). For collisionLeafs that shared value is the definition of what a
// collision is.
//
// The Hash30() method for table structs is the depth*Nbits of the hash path
// that leads to the table's position in the Trie.
type nodeI[K comparable, V any] interface {
	Hash30() uint32
	String() string
}

// KeyVal is a single key/value pair stored in a leaf.
type KeyVal[K comparable, V any] struct {
	Key K
	Val V
}

func (kv KeyVal[K, V]) String() string {
	return fmt.Sprintf("{%v:%v}", kv.Key, kv.Val)
}
