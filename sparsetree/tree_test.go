package sparsetree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"

	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexSum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestNewRejectsBadDepth(t *testing.T) {
	for _, depth := range []int{-1, 0, 1, MaxDepth + 1} {
		_, err := New(depth)
		require.ErrorIs(t, err, merkle.ErrInvalidConfiguration, "depth %d", depth)
		assert.True(t, merkle.IsStructural(err))
	}
}

func TestEmptyTreeRootIsDefault(t *testing.T) {
	for depth := MinDepth; depth <= 8; depth++ {
		tree, err := New(depth)
		require.NoError(t, err)

		defaults := tree.DefaultDigests()
		require.Len(t, defaults, depth+1)
		assert.Equal(t, defaults[depth], tree.Root())
		assert.Equal(t, uint64(0), tree.Count())

		levels := tree.Levels()
		for l := 0; l <= depth; l++ {
			require.Len(t, levels[l], 1<<(depth-l))
		}
	}
}

func TestDefaultDigests(t *testing.T) {
	tree, err := New(3)
	require.NoError(t, err)
	defaults := tree.DefaultDigests()

	d0 := hexSum("")
	d1 := hexSum(d0 + d0)
	d2 := hexSum(d1 + d1)
	d3 := hexSum(d2 + d2)
	assert.Equal(t, []string{d0, d1, d2, d3}, []string{
		defaults[0].String(), defaults[1].String(), defaults[2].String(), defaults[3].String(),
	})

	custom, err := New(3, WithDefaultLeafValue([]byte("empty")))
	require.NoError(t, err)
	assert.Equal(t, hexSum("empty"), custom.DefaultDigests()[0].String())
	assert.NotEqual(t, tree.Root(), custom.Root())
}

func TestSetValueMatchesManualRoot(t *testing.T) {
	tree, err := New(3)
	require.NoError(t, err)
	require.NoError(t, tree.SetValue(2, []byte("20")))

	d := tree.DefaultDigests()
	h := tree.Hasher()
	leaf := h.Sum([]byte("20"))

	// slot 2 is the left child of level 1 node 1
	n1 := h.Pair(leaf, d[0])
	n2 := h.Pair(d[1], n1)
	root := h.Pair(n2, d[2])
	assert.Equal(t, root, tree.Root())

	assert.True(t, tree.Assigned(2))
	assert.False(t, tree.Assigned(3))
	v, ok, err := tree.Value(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("20"), v)
}

func TestSetValueOutOfRange(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	before := tree.Root()

	err = tree.SetValue(4, []byte("x"))
	require.ErrorIs(t, err, merkle.ErrIndexOutOfRange)
	assert.Equal(t, before, tree.Root())
	assert.Equal(t, uint64(0), tree.Count())

	_, _, err = tree.Value(4)
	require.ErrorIs(t, err, merkle.ErrIndexOutOfRange)
	assert.False(t, tree.Assigned(4))
}

func TestSetValueOrderIndependent(t *testing.T) {
	a, err := New(4)
	require.NoError(t, err)
	b, err := New(4)
	require.NoError(t, err)

	writes := map[uint64]string{0: "zero", 5: "five", 6: "six", 15: "fifteen"}
	order := []uint64{0, 5, 6, 15}
	for _, i := range order {
		require.NoError(t, a.SetValue(i, []byte(writes[i])))
	}
	for j := len(order) - 1; j >= 0; j-- {
		i := order[j]
		require.NoError(t, b.SetValue(i, []byte(writes[i])))
	}
	assert.Equal(t, a.Root(), b.Root())
	assert.True(t, a.Levels().Equal(b.Levels()))
	assert.Equal(t, order, a.AssignedSlots())

	// a full rebuild of the leaves gives the same table
	levels := a.Levels()
	levels.RecomputeAll(a.Hasher())
	assert.True(t, levels.Equal(a.Levels()))
}

func TestProofs(t *testing.T) {
	tree, err := New(4)
	require.NoError(t, err)
	for i, v := range map[uint64]string{1: "a", 7: "b", 8: "c", 14: "d"} {
		require.NoError(t, tree.SetValue(i, []byte(v)))
	}
	root := tree.Root()
	h := tree.Hasher()

	for _, v := range []string{"a", "b", "c", "d"} {
		proof, err := tree.ProveByValue([]byte(v))
		require.NoError(t, err)
		require.Len(t, proof, tree.Depth())
		assert.True(t, merkle.VerifyProof(h, proof, root, []byte(v)))
		assert.False(t, merkle.VerifyProof(h, proof, root, []byte(v+"!")))
	}

	proof, err := tree.ProveIndex(14)
	require.NoError(t, err)
	assert.True(t, merkle.VerifyProof(h, proof, root, []byte("d")))

	// an unassigned slot proves the default leaf value
	proof, err = tree.ProveIndex(3)
	require.NoError(t, err)
	assert.True(t, merkle.VerifyProof(h, proof, root, nil))

	_, err = tree.ProveByValue([]byte("missing"))
	require.ErrorIs(t, err, merkle.ErrNotFound)
}

func TestOverwriteRestoresDefault(t *testing.T) {
	tree, err := New(3)
	require.NoError(t, err)
	empty := tree.Root()

	require.NoError(t, tree.SetValue(5, []byte("x")))
	assert.NotEqual(t, empty, tree.Root())

	require.NoError(t, tree.SetValue(5, nil))
	assert.Equal(t, empty, tree.Root())
}

func TestNewMaxDepth(t *testing.T) {
	tree, err := New(MaxDepth)
	require.NoError(t, err)
	require.Equal(t, uint64(1)<<MaxDepth, tree.Capacity())

	last := tree.Capacity() - 1
	require.NoError(t, tree.SetValue(last, []byte("x")))
	proof, err := tree.ProveIndex(last)
	require.NoError(t, err)
	require.Len(t, proof, MaxDepth)
	assert.True(t, merkle.VerifyProof(tree.Hasher(), proof, tree.Root(), []byte("x")))

	_, err = New(MaxDepth + 1)
	require.ErrorIs(t, err, merkle.ErrInvalidConfiguration)
}

func TestValuesAreCopied(t *testing.T) {
	defaultValue := []byte("empty")
	tree, err := New(3, WithDefaultLeafValue(defaultValue))
	require.NoError(t, err)
	defaultValue[0] = 'E'

	value := []byte("abc")
	require.NoError(t, tree.SetValue(1, value))
	value[0] = 'z'

	got, ok, err := tree.Value(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), got)
	got[0] = 'q'

	got, _, err = tree.Value(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	unset, ok, err := tree.Value(2)
	require.NoError(t, err)
	require.False(t, ok)
	assert.Equal(t, []byte("empty"), unset)
	unset[0] = 'X'
	unset, _, err = tree.Value(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("empty"), unset)

	proof, err := tree.ProveIndex(1)
	require.NoError(t, err)
	assert.True(t, merkle.VerifyProof(tree.Hasher(), proof, tree.Root(), []byte("abc")))
}

func TestConcurrentSetValueAndProve(t *testing.T) {
	tree, err := New(6)
	require.NoError(t, err)
	h := tree.Hasher()

	const writers = 4
	perWriter := tree.Capacity() / writers

	var wg sync.WaitGroup
	for w := uint64(0); w < writers; w++ {
		wg.Add(1)
		go func(w uint64) {
			defer wg.Done()
			for i := w * perWriter; i < (w+1)*perWriter; i++ {
				if err := tree.SetValue(i, []byte(fmt.Sprint(i))); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = tree.Root()
				proof, err := tree.ProveIndex(uint64((r*200 + i)) % tree.Capacity())
				if err != nil {
					t.Error(err)
					return
				}
				if len(proof) != tree.Depth() {
					t.Errorf("proof has %d steps", len(proof))
					return
				}
				_ = tree.Count()
			}
		}(r)
	}
	wg.Wait()

	require.Equal(t, tree.Capacity(), tree.Count())
	root := tree.Root()
	for i := uint64(0); i < tree.Capacity(); i++ {
		proof, err := tree.ProveIndex(i)
		require.NoError(t, err)
		require.True(t, merkle.VerifyProof(h, proof, root, []byte(fmt.Sprint(i))), "slot %d", i)
	}
}
