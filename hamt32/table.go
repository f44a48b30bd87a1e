package hamt32

import "github.com/lleo/go-persistent/trie"

// Every tableI is a nodeI.
//
// The insert, replace, and remove methods take the Edit of the transient
// session performing the change. A table owned by that Edit is modified in
// place and returned; any other table is copied (the copy is owned by edit)
// and the copy is returned. A nil edit is a persistent update and always
// copies.
type tableI[K comparable, V any] interface {
	nodeI[K, V]

	LongString(indent string, recurse bool) string

	nentries() uint // get the number of nodeI entries

	// Get an Ordered list of index and node pairs. This slice MUST BE Ordered
	// from lowest index to highest.
	entries() []tableEntry[K, V]

	// walk calls fn for every populated slot, lowest index first, until fn
	// returns false.
	walk(fn func(n nodeI[K, V]) bool) bool

	Get(idx uint) nodeI[K, V]

	insert(edit *trie.Edit, idx uint, entry nodeI[K, V]) tableI[K, V]
	replace(edit *trie.Edit, idx uint, entry nodeI[K, V]) tableI[K, V]
	remove(edit *trie.Edit, idx uint) tableI[K, V]
}

type tableEntry[K comparable, V any] struct {
	idx  uint
	node nodeI[K, V]
}

// newTable builds a table at depth from ents, which MUST be ordered by idx.
// FullTableInit selects the initial table type.
func newTable[K comparable, V any](edit *trie.Edit, depth uint, hashPath uint32, ents []tableEntry[K, V]) tableI[K, V] {
	if FullTableInit {
		return upgradeToFullTable(edit, hashPath, depth, ents)
	}
	return downgradeToCompressedTable(edit, hashPath, depth, ents)
}

func createRootTable[K comparable, V any](edit *trie.Edit, leaf leafI[K, V]) tableI[K, V] {
	var idx = index(leaf.Hash30(), 0)
	return newTable(edit, 0, 0, []tableEntry[K, V]{{idx, leaf}})
}

// createTable builds the chain of tables, starting at depth, needed to
// separate two leaves with different Hash30() values.
func createTable[K comparable, V any](edit *trie.Edit, depth uint, leaf1, leaf2 leafI[K, V]) tableI[K, V] {
	var hashPath = leaf1.Hash30() & hashPathMask(depth)

	var idx1 = index(leaf1.Hash30(), depth)
	var idx2 = index(leaf2.Hash30(), depth)

	if idx1 != idx2 {
		var ents = []tableEntry[K, V]{{idx1, leaf1}, {idx2, leaf2}}
		if idx2 < idx1 {
			ents[0], ents[1] = ents[1], ents[0]
		}
		return newTable(edit, depth, hashPath, ents)
	}

	if depth == MaxDepth {
		// The caller already checked leaf1.Hash30() != leaf2.Hash30(), so the
		// indexes must differ somewhere before the hash runs out.
		log.Error("createTable: identical hash paths",
			zapHash("leaf1", leaf1.Hash30()), zapHash("leaf2", leaf2.Hash30()))
		panic("hamt32: createTable: SHOULD NOT BE REACHED")
	}

	var sub = createTable(edit, depth+1, leaf1, leaf2)
	return newTable(edit, depth, hashPath, []tableEntry[K, V]{{idx1, sub}})
}
