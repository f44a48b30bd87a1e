/*
Package trie holds the fixed-width node shared by the persistent vector and
the hash array mapped trie, plus the Edit token that marks nodes as writable
during a transient session.

A Node is a table of Width(32) slots. Nodes are immutable once they are
reachable from a persistent value. A transient session owns exactly one live
Edit; a node whose edit field equals that Edit was created by the session and
may be modified in place. Every other node is copied, and the copy is tagged
with the session's Edit, before it is modified.

Killing an Edit (when the transient is persisted) freezes every node tagged
with it, since no later session can hold the same Edit.
*/
package trie

import "sync/atomic"

// Bits is the number of index bits consumed per level of a trie.
const Bits uint = 5

// Width is the number of slots in a Node; 1<<Bits == 32.
const Width = 1 << Bits

// Mask selects the low Bits of an index.
const Mask = Width - 1

var lastEditID atomic.Uint64

// Edit is an owner token for a transient session.
type Edit struct {
	id    uint64
	alive atomic.Bool
}

// NewEdit returns a fresh, live Edit.
func NewEdit() *Edit {
	var e = &Edit{id: lastEditID.Add(1)}
	e.alive.Store(true)
	return e
}

// ID returns the unique id of the session that owns e.
func (e *Edit) ID() uint64 {
	if e == nil {
		return 0
	}
	return e.id
}

// Alive reports whether the session owning e has not been persisted yet.
func (e *Edit) Alive() bool {
	return e != nil && e.alive.Load()
}

// Kill ends the session. It reports false if e was already dead.
func (e *Edit) Kill() bool {
	return e != nil && e.alive.CompareAndSwap(true, false)
}

// Node is a fixed-width trie node. The zero value is an empty node owned by
// no session.
type Node[S any] struct {
	edit  *Edit
	Slots [Width]S
}

// New returns an empty node owned by edit (which may be nil).
func New[S any](edit *Edit) *Node[S] {
	return &Node[S]{edit: edit}
}

// Owned reports whether n may be modified in place by the session holding
// edit. A nil edit never owns anything.
func (n *Node[S]) Owned(edit *Edit) bool {
	return edit != nil && n.edit == edit
}

// Own tags n with edit. Only call this on a node nobody else can see yet.
func (n *Node[S]) Own(edit *Edit) {
	n.edit = edit
}

// Edit returns the token n was tagged with, possibly nil.
func (n *Node[S]) Edit() *Edit {
	return n.edit
}

// Clone returns a copy of n owned by edit.
func (n *Node[S]) Clone(edit *Edit) *Node[S] {
	var nn = new(Node[S])
	nn.Slots = n.Slots
	nn.edit = edit
	return nn
}

// Editable returns n itself when edit owns it, otherwise a copy owned by
// edit. Persistent updates pass a nil edit and therefore always copy.
func (n *Node[S]) Editable(edit *Edit) *Node[S] {
	if n.Owned(edit) {
		return n
	}
	return n.Clone(edit)
}

// Count returns the number of slots for which occupied returns true.
func (n *Node[S]) Count(occupied func(S) bool) int {
	var c int
	for i := range n.Slots {
		if occupied(n.Slots[i]) {
			c++
		}
	}
	return c
}
