package indexedtree

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/forestrie/go-merkletrees/merkle"
)

const (
	MinHeight = 1
	MaxHeight = 24

	DefaultBloomBitsPerValue = 8
	DefaultBloomK            = 5
)

type Options struct {
	AllowDuplicates   bool
	BloomBitsPerValue uint64
	BloomK            uint8
}

// WithDuplicates permits inserting values that are already present.
func WithDuplicates() merkle.Option {
	return func(opts any) {
		if o, ok := opts.(*Options); ok {
			o.AllowDuplicates = true
		}
	}
}

// WithBloom sizes the membership prefilter.
func WithBloom(bitsPerValue uint64, k uint8) merkle.Option {
	return func(opts any) {
		if o, ok := opts.(*Options); ok {
			o.BloomBitsPerValue = bitsPerValue
			o.BloomK = k
		}
	}
}

// Insertion describes the two slots an insert wrote.
type Insertion struct {
	Slot    uint64
	LowSlot uint64
	Leaf    Leaf
	Low     Leaf
}

type indexEntry struct {
	value uint64
	slot  uint64
}

type Tree struct {
	mu sync.RWMutex

	common merkle.Options
	opts   Options

	height    int
	leafTable []byte
	levels    merkle.Levels

	// index is sorted by value. Equal values (only possible WithDuplicates)
	// appear in chain order.
	index   []indexEntry
	cursor  uint64
	maxSlot uint64

	dirty  *bitset.BitSet
	filter *prefilter
}

// New creates a tree of 2^height slots, all holding the zero record.
func New(height int, opts ...merkle.Option) (*Tree, error) {
	if height < MinHeight || height > MaxHeight {
		return nil, fmt.Errorf(
			"%w: indexed tree height %d not in [%d, %d]", merkle.ErrInvalidConfiguration, height, MinHeight, MaxHeight)
	}

	t := &Tree{
		common: merkle.NewOptions(opts...),
		opts: Options{
			BloomBitsPerValue: DefaultBloomBitsPerValue,
			BloomK:            DefaultBloomK,
		},
		height: height,
	}
	for _, o := range opts {
		o(&t.opts)
	}
	if !t.common.Hasher.Valid() {
		return nil, fmt.Errorf("%w: hasher not provided", merkle.ErrInvalidConfiguration)
	}
	if t.opts.BloomBitsPerValue == 0 || t.opts.BloomK == 0 {
		return nil, fmt.Errorf("%w: bloom prefilter needs bits per value and k", merkle.ErrInvalidConfiguration)
	}
	// keeps capacity * bitsPerValue well inside uint64 for every height
	if t.opts.BloomBitsPerValue > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: bloom bits per value %d", merkle.ErrInvalidConfiguration, t.opts.BloomBitsPerValue)
	}

	capacity := t.Capacity()
	t.leafTable = make([]byte, LeafTableBytes(capacity))

	// Every slot starts as the zero record, so every level is uniform.
	fill := make([]merkle.Digest, height+1)
	fill[0] = Leaf{}.Digest(t.common.Hasher)
	for l := 1; l <= height; l++ {
		fill[l] = t.common.Hasher.Pair(fill[l-1], fill[l-1])
	}
	t.levels = merkle.FullLevels(height, fill)

	t.index = []indexEntry{{value: 0, slot: 0}}
	t.cursor = 1
	t.maxSlot = 0
	t.dirty = bitset.New(uint(capacity))
	t.filter = newPrefilter(capacity, t.opts.BloomBitsPerValue, t.opts.BloomK)
	t.filter.insert(0)

	t.common.Debugf("indexedtree: initialised height %d, capacity %d", height, capacity)
	return t, nil
}

func (t *Tree) Height() int { return t.height }

// Capacity returns the number of slots, including the sentinel.
func (t *Tree) Capacity() uint64 { return uint64(1) << t.height }

func (t *Tree) Hasher() merkle.Hasher { return t.common.Hasher }

// Len returns the number of inserted values, not counting the sentinel.
func (t *Tree) Len() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor - 1
}

// MaxSlot returns the slot of the leaf that ends the chain.
func (t *Tree) MaxSlot() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxSlot
}

// Insert links value into the sorted chain and stores it in the next free
// slot. Digests are not refreshed, see RecomputeAffected, Commit and
// RecomputeAll.
func (t *Tree) Insert(value uint64) (Insertion, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor >= t.Capacity() {
		return Insertion{}, fmt.Errorf("%w: all %d slots used", merkle.ErrCapacityExceeded, t.Capacity())
	}

	pos := t.upperBound(value)
	low := t.index[pos-1]
	if low.value == value && !t.opts.AllowDuplicates {
		return Insertion{}, fmt.Errorf("%w: %d", merkle.ErrDuplicateValue, value)
	}

	slot := t.cursor
	lowLeaf := LeafAt(t.leafTable, low.slot)

	// The new leaf takes over the low leaf's successor. If the low leaf ended
	// the chain, the new leaf now does.
	leaf := Leaf{Value: value, NextIndex: lowLeaf.NextIndex, NextValue: lowLeaf.NextValue}
	if lowLeaf.NextIndex == 0 {
		t.maxSlot = slot
	}
	lowLeaf.NextIndex = slot
	lowLeaf.NextValue = value

	LeafSet(t.leafTable, low.slot, lowLeaf)
	LeafSet(t.leafTable, slot, leaf)

	t.index = append(t.index, indexEntry{})
	copy(t.index[pos+1:], t.index[pos:])
	t.index[pos] = indexEntry{value: value, slot: slot}

	t.cursor++
	t.dirty.Set(uint(low.slot))
	t.dirty.Set(uint(slot))
	t.filter.insert(value)

	return Insertion{Slot: slot, LowSlot: low.slot, Leaf: leaf, Low: lowLeaf}, nil
}

// RecomputeAll rehashes every leaf and every interior level.
func (t *Tree) RecomputeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for slot := uint64(0); slot < t.Capacity(); slot++ {
		t.levels[0][slot] = t.common.Hasher.Sum(LeafRecord(t.leafTable, slot))
	}
	t.levels.RecomputeAll(t.common.Hasher)
	t.dirty.ClearAll()
	t.common.Debugf("indexedtree: recomputed all %d slots", t.Capacity())
}

// RecomputeAffected rehashes the leaves at newSlot and lowSlot and their
// paths to the root. Ancestors the two paths share are hashed once.
func (t *Tree) RecomputeAffected(newSlot, lowSlot uint64) error {
	if newSlot >= t.Capacity() || lowSlot >= t.Capacity() {
		return fmt.Errorf("%w: slots %d, %d, capacity %d", merkle.ErrIndexOutOfRange, newSlot, lowSlot, t.Capacity())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.recompute([]uint64{newSlot, lowSlot})
	return nil
}

// Commit rehashes every leaf dirtied since the last recompute, merging their
// paths level by level.
func (t *Tree) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()

	slots := make([]uint64, 0, t.dirty.Count())
	for i, ok := t.dirty.NextSet(0); ok; i, ok = t.dirty.NextSet(i + 1) {
		slots = append(slots, uint64(i))
	}
	if len(slots) == 0 {
		return
	}
	t.recompute(slots)
	t.common.Debugf("indexedtree: committed %d dirty slots", len(slots))
}

func (t *Tree) recompute(slots []uint64) {
	for _, slot := range slots {
		t.levels[0][slot] = t.common.Hasher.Sum(LeafRecord(t.leafTable, slot))
		t.dirty.Clear(uint(slot))
	}
	t.levels.Recompute(t.common.Hasher, slots)
}

// Dirty reports whether leaves changed since the last recompute.
func (t *Tree) Dirty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dirty.Any()
}

// Root returns the root, or merkle.ErrUncommitted if inserts have not been
// recomputed.
func (t *Tree) Root() (merkle.Digest, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.dirty.Any() {
		return nil, merkle.ErrUncommitted
	}
	return t.levels.Root(), nil
}

// Levels returns a copy of the level table as last recomputed.
func (t *Tree) Levels() merkle.Levels {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.levels.Clone()
}

// Leaf returns the record at slot.
func (t *Tree) Leaf(slot uint64) (Leaf, error) {
	if slot >= t.Capacity() {
		return Leaf{}, fmt.Errorf("%w: slot %d, capacity %d", merkle.ErrIndexOutOfRange, slot, t.Capacity())
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return LeafAt(t.leafTable, slot), nil
}

// Walk calls fn for every inserted leaf in chain order, starting after the
// sentinel. It stops early when fn returns false.
func (t *Tree) Walk(fn func(slot uint64, leaf Leaf) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	next := LeafAt(t.leafTable, 0).NextIndex
	// the chain can not be longer than the number of used slots
	for steps := uint64(1); next != 0 && steps < t.cursor; steps++ {
		leaf := LeafAt(t.leafTable, next)
		if !fn(next, leaf) {
			return
		}
		next = leaf.NextIndex
	}
}

// Values returns the inserted values in chain order.
func (t *Tree) Values() []uint64 {
	var out []uint64
	t.Walk(func(_ uint64, leaf Leaf) bool {
		out = append(out, leaf.Value)
		return true
	})
	return out
}

// Contains reports whether value has been inserted. The sentinel's 0 counts
// as present.
func (t *Tree) Contains(value uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.filter.maybeContains(value) {
		return false
	}
	_, ok := t.slotOf(value)
	return ok
}

// LowLeaf returns the slot and record of the leaf with the largest value not
// exceeding value.
func (t *Tree) LowLeaf(value uint64) (uint64, Leaf) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	low := t.index[t.upperBound(value)-1]
	return low.slot, LeafAt(t.leafTable, low.slot)
}

// upperBound returns the position of the first index entry with a value
// greater than value. The sentinel guarantees the result is at least 1.
func (t *Tree) upperBound(value uint64) int {
	return sort.Search(len(t.index), func(i int) bool {
		return t.index[i].value > value
	})
}

// slotOf returns the slot of the last leaf in chain order holding value.
func (t *Tree) slotOf(value uint64) (uint64, bool) {
	e := t.index[t.upperBound(value)-1]
	if e.value != value {
		return 0, false
	}
	return e.slot, true
}
