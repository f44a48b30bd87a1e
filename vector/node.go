package vector

import "github.com/lleo/go-persistent/trie"

// The trie below root has two node types. Interior nodes are
// *trie.Node[any] whose slots hold either interior nodes or, at level Bits,
// leaves. Leaves are *trie.Node[T] holding Width elements. An empty slot is
// an untyped nil, never a typed nil pointer.

const bits = trie.Bits

func tailoff(count int) int {
	if count < trie.Width {
		return 0
	}
	return ((count - 1) >> bits) << bits
}

func (v *Vector[T]) tailoff() int {
	return tailoff(v.count)
}

// leafFor returns the Width elements holding index i. i must be below
// tailoff().
func (v *Vector[T]) leafFor(i int) *[trie.Width]T {
	var node = v.root
	for level := v.shift; level > bits; level -= bits {
		node = node.Slots[(i>>level)&trie.Mask].(*trie.Node[any])
	}
	return &node.Slots[(i>>bits)&trie.Mask].(*trie.Node[T]).Slots
}

func (v *Vector[T]) get(i int) T {
	if i >= v.tailoff() {
		return v.tail[i-v.tailoff()]
	}
	return v.leafFor(i)[i&trie.Mask]
}

// newPath builds a chain of interior nodes from level down to leaf.
func newPath[T any](edit *trie.Edit, level uint, leaf *trie.Node[T]) any {
	if level == 0 {
		return leaf
	}
	var ret = trie.New[any](edit)
	ret.Slots[0] = newPath(edit, level-bits, leaf)
	return ret
}

// pushTail hangs a full tail leaf under parent, which lives at level.
func (v *Vector[T]) pushTail(edit *trie.Edit, level uint, parent *trie.Node[any], leaf *trie.Node[T]) *trie.Node[any] {
	var subidx = ((v.count - 1) >> level) & trie.Mask
	var ret = parent.Editable(edit)

	if level == bits {
		ret.Slots[subidx] = leaf
		return ret
	}

	if child := parent.Slots[subidx]; child != nil {
		ret.Slots[subidx] = v.pushTail(edit, level-bits, child.(*trie.Node[any]), leaf)
	} else {
		ret.Slots[subidx] = newPath(edit, level-bits, leaf)
	}
	return ret
}

// popTail removes the rightmost leaf below node. It returns nil when node
// becomes empty.
func (v *Vector[T]) popTail(edit *trie.Edit, level uint, node *trie.Node[any]) *trie.Node[any] {
	var subidx = ((v.count - 2) >> level) & trie.Mask

	if level > bits {
		var child = v.popTail(edit, level-bits, node.Slots[subidx].(*trie.Node[any]))
		if child == nil && subidx == 0 {
			return nil
		}
		var ret = node.Editable(edit)
		if child == nil {
			ret.Slots[subidx] = nil
		} else {
			ret.Slots[subidx] = child
		}
		return ret
	}

	if subidx == 0 {
		return nil
	}
	var ret = node.Editable(edit)
	ret.Slots[subidx] = nil
	return ret
}

func (v *Vector[T]) doAssoc(edit *trie.Edit, level uint, node *trie.Node[any], i int, x T) *trie.Node[any] {
	var ret = node.Editable(edit)
	var subidx = (i >> level) & trie.Mask

	if level == bits {
		var leaf = node.Slots[subidx].(*trie.Node[T]).Editable(edit)
		leaf.Slots[i&trie.Mask] = x
		ret.Slots[subidx] = leaf
		return ret
	}

	ret.Slots[subidx] = v.doAssoc(edit, level-bits, node.Slots[subidx].(*trie.Node[any]), i, x)
	return ret
}

// The methods below modify v in place. Persistent operations call them on a
// fresh copy of the receiver with a nil edit, so every touched node and the
// tail are copied. Transients pass their live edit and own their tail.

func (v *Vector[T]) conj(edit *trie.Edit, x T) {
	if v.count-v.tailoff() < trie.Width {
		if edit == nil {
			var nt = make([]T, len(v.tail)+1)
			copy(nt, v.tail)
			nt[len(v.tail)] = x
			v.tail = nt
		} else {
			v.tail = append(v.tail, x)
		}
		v.count++
		return
	}

	var leaf = trie.New[T](edit)
	copy(leaf.Slots[:], v.tail)

	if (v.count >> bits) > (1 << v.shift) {
		// root overflow
		var nr = trie.New[any](edit)
		nr.Slots[0] = v.root
		nr.Slots[1] = newPath(edit, v.shift, leaf)
		v.root = nr
		v.shift += bits
	} else {
		v.root = v.pushTail(edit, v.shift, v.root, leaf)
	}

	if edit == nil {
		v.tail = []T{x}
	} else {
		v.tail = append(v.tail[:0], x)
	}
	v.count++
}

func (v *Vector[T]) assoc(edit *trie.Edit, i int, x T) {
	if i >= v.tailoff() {
		if edit == nil {
			var nt = make([]T, len(v.tail))
			copy(nt, v.tail)
			v.tail = nt
		}
		v.tail[i-v.tailoff()] = x
		return
	}
	v.root = v.doAssoc(edit, v.shift, v.root, i, x)
}

// pop removes the last element. v.count must be at least 1.
func (v *Vector[T]) pop(edit *trie.Edit) {
	if v.count == 1 {
		var zero T
		if edit == nil {
			v.tail = nil
		} else {
			v.tail[0] = zero
			v.tail = v.tail[:0]
		}
		v.count = 0
		return
	}

	if v.count-v.tailoff() > 1 {
		if edit == nil {
			var nt = make([]T, len(v.tail)-1)
			copy(nt, v.tail)
			v.tail = nt
		} else {
			var zero T
			v.tail[len(v.tail)-1] = zero
			v.tail = v.tail[:len(v.tail)-1]
		}
		v.count--
		return
	}

	// The tail holds only the last element; the rightmost leaf becomes the
	// new tail.
	var leaf = v.leafFor(v.count - 2)
	var nt []T
	if edit == nil {
		nt = make([]T, trie.Width)
	} else {
		nt = v.tail[:trie.Width]
	}
	copy(nt, leaf[:])

	var nr = v.popTail(edit, v.shift, v.root)
	var shift = v.shift
	if nr == nil {
		nr = trie.New[any](edit)
	}
	if shift > bits && nr.Slots[1] == nil {
		nr = nr.Slots[0].(*trie.Node[any])
		shift -= bits
	}

	v.root = nr
	v.shift = shift
	v.tail = nt
	v.count--
}
