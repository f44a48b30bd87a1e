package persistent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lleo/go-persistent"
)

func TestAssocInCreatesIntermediateMaps(t *testing.T) {
	var m = persistent.Empty[string, any]()

	var m2, err = persistent.AssocIn(m, []string{"a", "b", "c"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, persistent.ValueAt(m2, []string{"a", "b", "c"}, nil))
	assert.True(t, m.IsEmpty())

	m3, err := persistent.AssocIn(m2, []string{"a", "x"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, persistent.ValueAt(m3, []string{"a", "x"}, nil))
	assert.Equal(t, 1, persistent.ValueAt(m3, []string{"a", "b", "c"}, nil))
	assert.Nil(t, persistent.ValueAt(m2, []string{"a", "x"}, nil))

	assert.Same(t, m3, persistent.ValueAt(m3, nil, nil))
	assert.Equal(t, "def", persistent.ValueAt(m3, []string{"a", "b", "c", "d"}, "def"))
}

func TestAssocInIdentity(t *testing.T) {
	var m, err = persistent.AssocIn(persistent.Empty[string, any](), []string{"a", "b"}, 1)
	require.NoError(t, err)

	m2, err := persistent.AssocIn(m, []string{"a", "b"}, 1)
	require.NoError(t, err)
	assert.Same(t, m, m2)
}

func TestPathErrors(t *testing.T) {
	var m = persistent.Empty[string, any]().Assoc("leaf", 42)

	var _, err = persistent.AssocIn(m, nil, 1)
	require.ErrorIs(t, err, persistent.ErrEmptyPath)
	_, err = persistent.DissocIn(m, []string{})
	require.ErrorIs(t, err, persistent.ErrEmptyPath)

	_, err = persistent.AssocIn(m, []string{"leaf", "x"}, 1)
	require.ErrorIs(t, err, persistent.ErrStructuralTypeMismatch)
	_, err = persistent.DissocIn(m, []string{"leaf", "x"})
	require.ErrorIs(t, err, persistent.ErrStructuralTypeMismatch)
}

func TestDissocIn(t *testing.T) {
	var m, err = persistent.AssocIn(persistent.Empty[string, any](), []string{"a", "b"}, 1)
	require.NoError(t, err)
	m, err = persistent.AssocIn(m, []string{"a", "c"}, 2)
	require.NoError(t, err)

	m2, err := persistent.DissocIn(m, []string{"a", "b"})
	require.NoError(t, err)
	assert.Nil(t, persistent.ValueAt(m2, []string{"a", "b"}, nil))
	assert.Equal(t, 2, persistent.ValueAt(m2, []string{"a", "c"}, nil))
	assert.Equal(t, 1, persistent.ValueAt(m, []string{"a", "b"}, nil))

	m3, err := persistent.DissocIn(m, []string{"q", "r"})
	require.NoError(t, err)
	assert.Same(t, m, m3)
	m3, err = persistent.DissocIn(m, []string{"a", "zz"})
	require.NoError(t, err)
	assert.Same(t, m, m3)
}

func TestUpdateIn(t *testing.T) {
	var m = persistent.Empty[string, any]()
	var inc = func(old any, found bool) any {
		if !found {
			return 1
		}
		return old.(int) + 1
	}
	var err error
	for i := 0; i < 3; i++ {
		m, err = persistent.UpdateIn(m, []string{"counters", "hits"}, inc)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, persistent.ValueAt(m, []string{"counters", "hits"}, 0))
}
