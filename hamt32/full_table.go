package hamt32

import (
	"fmt"
	"strings"

	"github.com/lleo/go-persistent/trie"
)

// fullTable keeps every one of its TableCapacity slots in a trie.Node, so
// Get() is a plain array index. It costs more memory than a compressedTable
// and is used once a table holds UpgradeThreshold entries or more.
type fullTable[K comparable, V any] struct {
	trie.Node[nodeI[K, V]]
	hashPath uint32 // depth*Nbits of hash to get to this location in the Trie
	depth    uint
	numEnts  uint
}

// upgradeToFullTable builds a fullTable from a list of tableEntry's ordered
// from lowest idx to highest.
func upgradeToFullTable[K comparable, V any](edit *trie.Edit, hashPath uint32, depth uint, tabEnts []tableEntry[K, V]) *fullTable[K, V] {
	var ft = new(fullTable[K, V])
	ft.Own(edit)
	ft.hashPath = hashPath
	ft.depth = depth
	ft.numEnts = uint(len(tabEnts))

	for _, ent := range tabEnts {
		ft.Slots[ent.idx] = ent.node
	}

	return ft
}

func (t *fullTable[K, V]) Hash30() uint32 {
	return t.hashPath
}

// editable returns t when edit owns it, otherwise a copy owned by edit.
func (t *fullTable[K, V]) editable(edit *trie.Edit) *fullTable[K, V] {
	if t.Owned(edit) {
		return t
	}
	var nt = new(fullTable[K, V])
	*nt = *t
	nt.Own(edit)
	return nt
}

func (t *fullTable[K, V]) nentries() uint {
	return t.numEnts
}

// This function MUST return the slice of tableEntry structs from lowest
// tableEntry.idx to highest tableEntry.idx .
func (t *fullTable[K, V]) entries() []tableEntry[K, V] {
	var ents = make([]tableEntry[K, V], 0, t.numEnts)
	for i := uint(0); i < TableCapacity; i++ {
		if t.Slots[i] != nil {
			ents = append(ents, tableEntry[K, V]{i, t.Slots[i]})
		}
	}
	return ents
}

func (t *fullTable[K, V]) walk(fn func(n nodeI[K, V]) bool) bool {
	for _, n := range t.Slots {
		if n != nil && !fn(n) {
			return false
		}
	}
	return true
}

func (t *fullTable[K, V]) Get(idx uint) nodeI[K, V] {
	return t.Slots[idx]
}

func (t *fullTable[K, V]) insert(edit *trie.Edit, idx uint, entry nodeI[K, V]) tableI[K, V] {
	var nt = t.editable(edit)
	nt.Slots[idx] = entry
	nt.numEnts++
	return nt
}

func (t *fullTable[K, V]) replace(edit *trie.Edit, idx uint, entry nodeI[K, V]) tableI[K, V] {
	var nt = t.editable(edit)
	nt.Slots[idx] = entry
	return nt
}

func (t *fullTable[K, V]) remove(edit *trie.Edit, idx uint) tableI[K, V] {
	if t.numEnts == 1 {
		return nil
	}

	var nt = t.editable(edit)
	nt.Slots[idx] = nil
	nt.numEnts--

	if GradeTables && nt.numEnts < DowngradeThreshold {
		return downgradeToCompressedTable(edit, nt.hashPath, nt.depth, nt.entries())
	}

	return nt
}

func (t *fullTable[K, V]) String() string {
	return fmt.Sprintf("fullTable{hashPath:%s, nentries()=%d, depth=%d}",
		hashPathString(t.hashPath, t.depth), t.nentries(), t.depth)
}

func (t *fullTable[K, V]) LongString(indent string, recurse bool) string {
	var strs = make([]string, 0, 2+t.numEnts)

	strs = append(strs, indent+fmt.Sprintf("fullTable{hashPath:%s, nentries()=%d, depth=%d,",
		hashPathString(t.hashPath, t.depth), t.nentries(), t.depth))

	for i, n := range t.Slots {
		if n == nil {
			continue
		}
		if tt, ok := n.(tableI[K, V]); ok && recurse {
			strs = append(strs, indent+fmt.Sprintf(halfIndent+"t.Slots[%d]:\n%s", i, tt.LongString(indent+fullIndent, recurse)))
		} else {
			strs = append(strs, indent+fmt.Sprintf(halfIndent+"t.Slots[%d]: %s", i, n.String()))
		}
	}

	strs = append(strs, indent+"}")

	return strings.Join(strs, "\n")
}
