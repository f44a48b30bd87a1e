package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lleo/go-persistent/trie"
)

func TestAssocCopiesOnlyThePath(t *testing.T) {
	var v = Empty[int]()
	for i := 0; i < 32*32*3; i++ {
		v = v.Cons(i)
	}
	require.Equal(t, 2*bits, v.shift)

	var w, err = v.Assoc(5, -5)
	require.NoError(t, err)

	assert.NotSame(t, v.root, w.root)
	// leaf 0 is on the path, leaf 1 is not
	assert.NotSame(t, v.leafFor(0), w.leafFor(0))
	assert.Same(t, v.leafFor(32), w.leafFor(32))
	// the second subtree is untouched
	assert.Same(t, v.root.Slots[1].(*trie.Node[any]), w.root.Slots[1].(*trie.Node[any]))
	// and so is the tail
	assert.Same(t, &v.tail[0], &w.tail[0])
}

func TestConsSharesTrie(t *testing.T) {
	var v = Empty[int]()
	for i := 0; i < 100; i++ {
		v = v.Cons(i)
	}
	var w = v.Cons(100)
	assert.Same(t, v.root, w.root)
	assert.Len(t, v.tail, 4)
	assert.Len(t, w.tail, 5)
}

func TestPopTypedNilNeverStored(t *testing.T) {
	var v = Empty[int]()
	for i := 0; i < 32*32+33; i++ {
		v = v.Cons(i)
	}
	require.Equal(t, 2*bits, v.shift)
	for v.count > 33 {
		v, _ = v.Pop()
	}
	// back to a single level
	assert.Equal(t, bits, v.shift)
	for i, s := range v.root.Slots {
		if i > 0 {
			// a typed nil pointer would not compare equal to nil here
			assert.True(t, s == nil, "slot %d holds %T", i, s)
		}
	}
}

func TestTransientEditsInPlace(t *testing.T) {
	var tv = Empty[int]().AsTransient()
	for i := 0; i < 64+1; i++ {
		tv.v.conj(tv.edit, i)
	}
	var root = tv.v.root
	tv.v.assoc(tv.edit, 3, 99)
	assert.Same(t, root, tv.v.root)
	assert.True(t, tv.v.root.Owned(tv.edit))
}
