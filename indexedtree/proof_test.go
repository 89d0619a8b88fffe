package indexedtree

import (
	"encoding/json"
	"testing"

	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func committedTree(t *testing.T, height int, values ...uint64) (*Tree, merkle.Digest) {
	t.Helper()
	tree := newTestTree(t, height)
	insertAll(t, tree, values...)
	tree.Commit()
	root, err := tree.Root()
	require.NoError(t, err)
	return tree, root
}

func TestMembershipProofs(t *testing.T) {
	values := []uint64{10, 30, 20, 5}
	tree, root := committedTree(t, 3, values...)
	h := tree.Hasher()

	for _, v := range values {
		p, err := tree.ProveByValue(v)
		require.NoError(t, err)
		assert.Equal(t, v, p.Leaf.Value)
		assert.Len(t, p.Path, 3)
		assert.True(t, VerifyLeafProof(h, p, root), "value %d", v)

		tampered := p
		tampered.Leaf.NextValue++
		assert.False(t, VerifyLeafProof(h, tampered, root))

		moved := p
		moved.Slot ^= 1
		assert.False(t, VerifyLeafProof(h, moved, root))
	}

	_, err := tree.ProveByValue(11)
	require.ErrorIs(t, err, merkle.ErrNotFound)
}

func TestProveSlotAndDigest(t *testing.T) {
	tree, root := committedTree(t, 3, 10, 20)
	h := tree.Hasher()

	for slot := uint64(0); slot < tree.Capacity(); slot++ {
		p, err := tree.ProveSlot(slot)
		require.NoError(t, err)
		assert.Equal(t, slot, PathSlot(p.Path))
		assert.True(t, VerifyLeafProof(h, p, root))
	}
	_, err := tree.ProveSlot(tree.Capacity())
	require.ErrorIs(t, err, merkle.ErrIndexOutOfRange)

	leaf, err := tree.Leaf(2)
	require.NoError(t, err)
	path, err := tree.ProveByDigest(leaf.Digest(h))
	require.NoError(t, err)
	assert.True(t, merkle.VerifyDigestProof(h, path, root, leaf.Digest(h)))

	_, err = tree.ProveByDigest(h.Sum([]byte("nope")))
	require.ErrorIs(t, err, merkle.ErrNotFound)
	_, err = tree.ProveByDigest(merkle.Digest{1, 2, 3})
	require.ErrorIs(t, err, merkle.ErrBadDigestSize)
}

func TestProofsRequireCommit(t *testing.T) {
	tree := newTestTree(t, 3)
	insertAll(t, tree, 10)

	_, err := tree.ProveSlot(1)
	require.ErrorIs(t, err, merkle.ErrUncommitted)
	_, err = tree.ProveByValue(10)
	require.ErrorIs(t, err, merkle.ErrUncommitted)
	_, err = tree.ProveByDigest(Leaf{}.Digest(tree.Hasher()))
	require.ErrorIs(t, err, merkle.ErrUncommitted)
	_, err = tree.ProveNonMembership(11)
	require.ErrorIs(t, err, merkle.ErrUncommitted)
}

func TestNonMembership(t *testing.T) {
	tree, root := committedTree(t, 3, 10, 30, 20)
	h := tree.Hasher()

	for _, target := range []uint64{1, 9, 11, 15, 25, 31, 1 << 60} {
		p, err := tree.ProveNonMembership(target)
		require.NoError(t, err)
		assert.True(t, VerifyNonMembership(h, p, root, target), "target %d", target)
		assert.Less(t, p.Low.Leaf.Value, target)
	}

	for _, present := range []uint64{0, 10, 20, 30} {
		_, err := tree.ProveNonMembership(present)
		require.ErrorIs(t, err, merkle.ErrValuePresent, "value %d", present)
	}

	t.Run("proof does not transfer to another target", func(t *testing.T) {
		p, err := tree.ProveNonMembership(15)
		require.NoError(t, err)
		assert.False(t, VerifyNonMembership(h, p, root, 25))

		// low leaf 10 points at 20, so it can not vouch for 20
		p.Target = 20
		assert.False(t, VerifyNonMembership(h, p, root, 20))
	})

	t.Run("unused slots are not low leaves", func(t *testing.T) {
		unused, err := tree.ProveSlot(7)
		require.NoError(t, err)
		require.True(t, unused.Leaf.IsZero())
		require.True(t, VerifyLeafProof(h, unused, root))

		forged := NonMembershipProof{Target: 20, Low: unused}
		assert.False(t, VerifyNonMembership(h, forged, root, 20))
	})

	t.Run("stale root", func(t *testing.T) {
		p, err := tree.ProveNonMembership(25)
		require.NoError(t, err)
		insertAll(t, tree, 25)
		tree.Commit()
		newRoot, err := tree.Root()
		require.NoError(t, err)
		assert.False(t, VerifyNonMembership(h, p, newRoot, 25))
	})
}

func TestNonMembershipEmptyTree(t *testing.T) {
	tree, root := committedTree(t, 2)
	p, err := tree.ProveNonMembership(42)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.Low.Slot)
	assert.True(t, VerifyNonMembership(tree.Hasher(), p, root, 42))
}

func TestNonMembershipProofEncodings(t *testing.T) {
	tree, root := committedTree(t, 3, 10, 30)
	p, err := tree.ProveNonMembership(20)
	require.NoError(t, err)

	data, err := cbor.Marshal(p)
	require.NoError(t, err)
	var fromCBOR NonMembershipProof
	require.NoError(t, cbor.Unmarshal(data, &fromCBOR))
	assert.True(t, VerifyNonMembership(tree.Hasher(), fromCBOR, root, 20))

	data, err = json.Marshal(p)
	require.NoError(t, err)
	var fromJSON NonMembershipProof
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.True(t, VerifyNonMembership(tree.Hasher(), fromJSON, root, 20))
}
