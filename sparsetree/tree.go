// Package sparsetree implements a fixed depth sparse Merkle tree with 2^depth
// addressable leaf slots.
//
// Slots that were never assigned hold the default leaf value. The digest of
// an untouched subtree at level l is therefore a constant, DefaultDigests()[l],
// computed once when the tree is created:
//
//	defaults[0] = H(defaultLeafValue)
//	defaults[l] = H(defaults[l-1] || defaults[l-1])
//
// The level table is materialised in full and SetValue rehashes the depth
// nodes on the path of the slot it writes.
package sparsetree

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/forestrie/go-merkletrees/merkle"
)

const (
	MinDepth = 2
	// MaxDepth bounds the fully materialised level table, 2^(MaxDepth+1)
	// digests.
	MaxDepth = 20
)

type Options struct {
	DefaultLeafValue []byte
}

func WithDefaultLeafValue(value []byte) merkle.Option {
	return func(opts any) {
		if o, ok := opts.(*Options); ok {
			o.DefaultLeafValue = bytes.Clone(value)
		}
	}
}

type Tree struct {
	mu sync.RWMutex

	common merkle.Options
	opts   Options

	depth    int
	defaults []merkle.Digest
	levels   merkle.Levels

	values   map[uint64][]byte
	assigned *bitset.BitSet
}

// New creates an empty tree of the given depth.
func New(depth int, opts ...merkle.Option) (*Tree, error) {
	if depth < MinDepth || depth > MaxDepth {
		return nil, fmt.Errorf(
			"%w: sparse tree depth %d not in [%d, %d]", merkle.ErrInvalidConfiguration, depth, MinDepth, MaxDepth)
	}

	t := &Tree{
		common: merkle.NewOptions(opts...),
		depth:  depth,
		values: make(map[uint64][]byte),
	}
	for _, o := range opts {
		o(&t.opts)
	}
	if !t.common.Hasher.Valid() {
		return nil, fmt.Errorf("%w: hasher not provided", merkle.ErrInvalidConfiguration)
	}

	t.defaults = DefaultDigests(t.common.Hasher, t.opts.DefaultLeafValue, depth)
	t.levels = merkle.FullLevels(depth, t.defaults)
	t.assigned = bitset.New(uint(t.Capacity()))

	t.common.Debugf("sparsetree: initialised depth %d, empty root %s", depth, t.defaults[depth])
	return t, nil
}

// DefaultDigests returns the digest of an untouched subtree for every level
// 0..depth.
func DefaultDigests(h merkle.Hasher, defaultLeafValue []byte, depth int) []merkle.Digest {
	defaults := make([]merkle.Digest, depth+1)
	defaults[0] = h.Sum(defaultLeafValue)
	for l := 1; l <= depth; l++ {
		defaults[l] = h.Pair(defaults[l-1], defaults[l-1])
	}
	return defaults
}

func (t *Tree) Depth() int { return t.depth }

// Capacity returns the number of leaf slots, 2^depth.
func (t *Tree) Capacity() uint64 { return uint64(1) << t.depth }

func (t *Tree) Hasher() merkle.Hasher { return t.common.Hasher }

// DefaultDigests returns a copy of the per level default digests.
func (t *Tree) DefaultDigests() []merkle.Digest {
	out := make([]merkle.Digest, len(t.defaults))
	copy(out, t.defaults)
	return out
}

// Root returns the current root. It equals DefaultDigests()[Depth()] until a
// slot is assigned.
func (t *Tree) Root() merkle.Digest {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.levels.Root()
}

// Levels returns a copy of the level table.
func (t *Tree) Levels() merkle.Levels {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.levels.Clone()
}

// SetValue assigns value to slot index and rehashes the path to the root.
func (t *Tree) SetValue(index uint64, value []byte) error {
	if index >= t.Capacity() {
		return fmt.Errorf("%w: slot %d, capacity %d", merkle.ErrIndexOutOfRange, index, t.Capacity())
	}

	leaf := t.common.Hasher.Sum(value)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.levels.SetLeaf(t.common.Hasher, index, leaf); err != nil {
		return err
	}
	t.values[index] = bytes.Clone(value)
	t.assigned.Set(uint(index))
	return nil
}

// Value returns the value of slot index and whether it was ever assigned.
// Unassigned slots report the default leaf value.
func (t *Tree) Value(index uint64) ([]byte, bool, error) {
	if index >= t.Capacity() {
		return nil, false, fmt.Errorf("%w: slot %d, capacity %d", merkle.ErrIndexOutOfRange, index, t.Capacity())
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if v, ok := t.values[index]; ok {
		return bytes.Clone(v), true, nil
	}
	return bytes.Clone(t.opts.DefaultLeafValue), false, nil
}

// Assigned reports whether slot index has been assigned.
func (t *Tree) Assigned(index uint64) bool {
	if index >= t.Capacity() {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.assigned.Test(uint(index))
}

// Count returns the number of assigned slots.
func (t *Tree) Count() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(t.assigned.Count())
}

// AssignedSlots returns the assigned slot indices in ascending order.
func (t *Tree) AssignedSlots() []uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]uint64, 0, t.assigned.Count())
	for i, ok := t.assigned.NextSet(0); ok; i, ok = t.assigned.NextSet(i + 1) {
		out = append(out, uint64(i))
	}
	return out
}

// ProveByValue returns the sibling path of the first slot whose leaf digest
// is H(value). Note that for the default leaf value this is the first
// unassigned slot.
func (t *Tree) ProveByValue(value []byte) (merkle.Proof, error) {
	return t.ProveByDigest(t.common.Hasher.Sum(value))
}

// ProveByDigest returns the sibling path of the first slot whose leaf digest
// is leaf.
func (t *Tree) ProveByDigest(leaf merkle.Digest) (merkle.Proof, error) {
	if err := t.common.Hasher.CheckDigest(leaf); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.levels.IndexOf(leaf)
	if !ok {
		return nil, fmt.Errorf("%w: %s", merkle.ErrNotFound, leaf)
	}
	return t.levels.Path(i)
}

// ProveIndex returns the sibling path of slot index.
func (t *Tree) ProveIndex(index uint64) (merkle.Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.levels.Path(index)
}
