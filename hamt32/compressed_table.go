package hamt32

import (
	"fmt"
	"strings"

	"github.com/lleo/go-persistent/trie"
)

// The compressedTable is a low memory usage version of a fullTable. It applies
// to tables with less than UpgradeThreshold number of entries in the table.
//
// It records which table entries are populated using a bit map called nodeMap.
//
// It stores the nodes in a go slice starting with the node corresponding to
// the Least Significant Bit(LSB) of the nodeMap. So the number of entries in
// the node slice is equal to the number of bits set in the nodeMap.
//
// To figure out the index of a node in the nodes slice from the index of the
// bit in the nodeMap we first find out if that bit in the nodeMap is set by
// calculating if "nodeMap & (1<<idx) > 0" is true. Then the position in the
// nodes slice is the number of bits set in the nodeMap below the idx'th bit.
type compressedTable[K comparable, V any] struct {
	hashPath uint32 // depth*Nbits of hash to get to this location in the Trie
	depth    uint
	nodeMap  uint32
	nodes    []nodeI[K, V]
	edit     *trie.Edit
}

// downgradeToCompressedTable() builds a compressedTable from a list of
// tableEntry's. One important thing we know is that none of the entries will
// collide with another.
//
// The ents []tableEntry slice is guaranteed to be in order from lowest idx to
// highest. tableI.entries() also adhears to this contract.
func downgradeToCompressedTable[K comparable, V any](edit *trie.Edit, hashPath uint32, depth uint, ents []tableEntry[K, V]) *compressedTable[K, V] {
	var nt = new(compressedTable[K, V])
	nt.hashPath = hashPath
	nt.depth = depth
	nt.edit = edit
	nt.nodes = make([]nodeI[K, V], len(ents), max(len(ents), 2))

	for i := 0; i < len(ents); i++ {
		var ent = ents[i]
		var nodeBit = uint32(1 << ent.idx)
		nt.nodeMap |= nodeBit
		nt.nodes[i] = ent.node
	}

	return nt
}

func (t *compressedTable[K, V]) Hash30() uint32 {
	return t.hashPath
}

func (t *compressedTable[K, V]) owned(edit *trie.Edit) bool {
	return edit != nil && t.edit == edit
}

func (t *compressedTable[K, V]) copyExceptNodes(edit *trie.Edit) *compressedTable[K, V] {
	var nt = new(compressedTable[K, V])
	nt.hashPath = t.hashPath
	nt.depth = t.depth
	nt.nodeMap = t.nodeMap
	nt.edit = edit
	return nt
}

func (t *compressedTable[K, V]) nentries() uint {
	return uint(len(t.nodes))
}

// This function MUST return the slice of tableEntry structs from lowest
// tableEntry.idx to highest tableEntry.idx .
func (t *compressedTable[K, V]) entries() []tableEntry[K, V] {
	var n = t.nentries()
	var ents = make([]tableEntry[K, V], n)

	for i, j := uint(0), uint(0); i < TableCapacity; i++ {
		var nodeBit = uint32(1 << i)

		if (t.nodeMap & nodeBit) > 0 {
			ents[j] = tableEntry[K, V]{i, t.nodes[j]}
			j++
		}
	}

	return ents
}

func (t *compressedTable[K, V]) walk(fn func(n nodeI[K, V]) bool) bool {
	for _, n := range t.nodes {
		if !fn(n) {
			return false
		}
	}
	return true
}

func (t *compressedTable[K, V]) Get(idx uint) nodeI[K, V] {
	var nodeBit = uint32(1 << idx)

	if (t.nodeMap & nodeBit) == 0 {
		return nil
	}

	// Count the number of bits in the nodeMap below the idx'th bit
	var i = bitCount32(t.nodeMap & (nodeBit - 1))

	return t.nodes[i]
}

func (t *compressedTable[K, V]) insert(edit *trie.Edit, idx uint, entry nodeI[K, V]) tableI[K, V] {
	var nodeBit = uint32(1 << idx)
	var bitMask = nodeBit - 1
	var i = bitCount32(t.nodeMap & bitMask)

	var nt *compressedTable[K, V]
	if t.owned(edit) {
		nt = t
		nt.nodes = append(nt.nodes, nil)
		copy(nt.nodes[i+1:], nt.nodes[i:])
		nt.nodes[i] = entry
	} else {
		nt = t.copyExceptNodes(edit)
		nt.nodes = make([]nodeI[K, V], len(t.nodes)+1)
		copy(nt.nodes, t.nodes[:i])
		nt.nodes[i] = entry
		copy(nt.nodes[i+1:], t.nodes[i:])
	}
	nt.nodeMap |= nodeBit

	if GradeTables && uint(len(nt.nodes)) >= UpgradeThreshold {
		// promote compressedTable to fullTable
		return upgradeToFullTable(edit, nt.hashPath, nt.depth, nt.entries())
	}

	return nt
}

func (t *compressedTable[K, V]) replace(edit *trie.Edit, idx uint, entry nodeI[K, V]) tableI[K, V] {
	var nodeBit = uint32(1 << idx)
	var bitMask = nodeBit - 1
	var i = bitCount32(t.nodeMap & bitMask)

	if t.owned(edit) {
		t.nodes[i] = entry
		return t
	}

	var nt = t.copyExceptNodes(edit)
	nt.nodes = make([]nodeI[K, V], len(t.nodes))
	copy(nt.nodes, t.nodes)
	nt.nodes[i] = entry

	return nt
}

func (t *compressedTable[K, V]) remove(edit *trie.Edit, idx uint) tableI[K, V] {
	var nodeBit = uint32(1 << idx)
	var bitMask = nodeBit - 1
	var i = bitCount32(t.nodeMap & bitMask)

	if t.nodeMap&^nodeBit == 0 {
		return nil
	}

	var nt *compressedTable[K, V]
	if t.owned(edit) {
		nt = t
		copy(nt.nodes[i:], nt.nodes[i+1:])
		nt.nodes[len(nt.nodes)-1] = nil
		nt.nodes = nt.nodes[:len(nt.nodes)-1]
	} else {
		nt = t.copyExceptNodes(edit)
		nt.nodes = make([]nodeI[K, V], len(t.nodes)-1)
		copy(nt.nodes, t.nodes[:i])
		copy(nt.nodes[i:], t.nodes[i+1:])
	}
	nt.nodeMap &^= nodeBit

	return nt
}

func nodeMapString(nodeMap uint32) string {
	var strs = make([]string, 4)

	var top2 = nodeMap >> 30
	strs[0] = fmt.Sprintf("%02b", top2)

	const tenBitMask uint32 = 1<<10 - 1
	for i := uint(0); i < 3; i++ {
		tenBitVal := (nodeMap & (tenBitMask << (i * 10))) >> (i * 10)
		strs[3-i] = fmt.Sprintf("%010b", tenBitVal)
	}

	return strings.Join(strs, " ")
}

func (t *compressedTable[K, V]) String() string {
	return fmt.Sprintf("compressedTable{hashPath:%s, nentries()=%d, depth=%d}",
		hashPathString(t.hashPath, t.depth), t.nentries(), t.depth)
}

func (t *compressedTable[K, V]) LongString(indent string, recurse bool) string {
	var strs = make([]string, 2+len(t.nodes))

	strs[0] = indent + fmt.Sprintf("compressedTable{hashPath=%s, nentries()=%d, depth=%d, nodeMap=%s,",
		hashPathString(t.hashPath, t.depth), t.nentries(), t.depth, nodeMapString(t.nodeMap))

	for i, n := range t.nodes {
		if tt, ok := n.(tableI[K, V]); ok && recurse {
			strs[1+i] = indent + fmt.Sprintf(halfIndent+"t.nodes[%d]:\n%s", i, tt.LongString(indent+fullIndent, recurse))
		} else {
			strs[1+i] = indent + fmt.Sprintf(halfIndent+"t.nodes[%d]: %s", i, n.String())
		}
	}

	strs[len(strs)-1] = indent + "}"

	return strings.Join(strs, "\n")
}
