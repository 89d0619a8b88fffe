package merkle

import (
	"fmt"
	"slices"
)

// Levels is the level table of a tree. Levels[0] are the leaf digests and the
// last level holds exactly the root.
type Levels [][]Digest

// BuildLevels hashes leaves pairwise, level by level, until one digest
// remains. A single leaf is paired with itself, so the table of a non empty
// tree always has at least two levels.
func BuildLevels(h Hasher, leaves []Digest) (Levels, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyInput
	}
	return Levels(nil).Extend(h, leaves), nil
}

// Extend appends leaves to level 0 and recomputes only the parents whose
// children changed: for each level that is the suffix starting at the parent
// of the first new (or previously self paired) entry.
//
// The receiver is modified and the updated table is returned. Extending an
// empty table builds it from scratch.
func (ls Levels) Extend(h Hasher, leaves []Digest) Levels {
	if len(leaves) == 0 {
		return ls
	}
	if len(ls) == 0 {
		ls = Levels{nil}
	}

	// start is the first index in level l whose digest changed.
	start := len(ls[0])
	ls[0] = append(ls[0], leaves...)

	for l := 0; ; l++ {
		cur := ls[l]
		if l > 0 && len(cur) == 1 {
			return ls[:l+1]
		}
		if l+1 == len(ls) {
			ls = append(ls, nil)
		}
		pstart := start / 2
		n := (len(cur) + 1) / 2

		parent := ls[l+1]
		if pstart < len(parent) {
			parent = parent[:pstart]
		}
		for j := pstart; j < n; j++ {
			parent = append(parent, pairAt(h, cur, j))
		}
		ls[l+1] = parent
		start = pstart
	}
}

// FullLevels returns a table of height levels above 2^height leaves, all
// initialised from the per level digests in fill (fill[l] for level l).
func FullLevels(height int, fill []Digest) Levels {
	ls := make(Levels, height+1)
	width := 1 << height
	for l := 0; l <= height; l++ {
		level := make([]Digest, width)
		for i := range level {
			level[i] = fill[l]
		}
		ls[l] = level
		width >>= 1
	}
	return ls
}

// Recompute rehashes every ancestor of the dirty leaf indices. Paths which
// share an ancestor hash it once.
//
// The caller must already have written the new leaf digests into level 0.
func (ls Levels) Recompute(h Hasher, dirty []uint64) {
	idx := slices.Clone(dirty)
	slices.Sort(idx)
	idx = slices.Compact(idx)

	for l := 0; l+1 < len(ls); l++ {
		parents := make([]uint64, 0, len(idx))
		for _, i := range idx {
			p := i / 2
			if len(parents) == 0 || parents[len(parents)-1] != p {
				parents = append(parents, p)
			}
		}
		for _, p := range parents {
			ls[l+1][p] = pairAt(h, ls[l], int(p))
		}
		idx = parents
	}
}

// RecomputeAll rehashes every interior level from level 0.
func (ls Levels) RecomputeAll(h Hasher) {
	for l := 0; l+1 < len(ls); l++ {
		for j := range ls[l+1] {
			ls[l+1][j] = pairAt(h, ls[l], j)
		}
	}
}

// SetLeaf writes leaf at index i and rehashes its path to the root.
func (ls Levels) SetLeaf(h Hasher, i uint64, leaf Digest) error {
	if len(ls) == 0 || i >= uint64(len(ls[0])) {
		return fmt.Errorf("%w: leaf %d", ErrIndexOutOfRange, i)
	}
	ls[0][i] = leaf

	for l := 0; l+1 < len(ls); l++ {
		i /= 2
		ls[l+1][i] = pairAt(h, ls[l], int(i))
	}
	return nil
}

// Root returns the single digest of the last level, or nil for an empty
// table.
func (ls Levels) Root() Digest {
	if len(ls) == 0 || len(ls[len(ls)-1]) == 0 {
		return nil
	}
	return ls[len(ls)-1][0]
}

// Height returns the number of levels above the leaves.
func (ls Levels) Height() int {
	if len(ls) == 0 {
		return 0
	}
	return len(ls) - 1
}

// LeafCount returns the width of level 0.
func (ls Levels) LeafCount() uint64 {
	if len(ls) == 0 {
		return 0
	}
	return uint64(len(ls[0]))
}

// Leaf returns the digest at index i of level 0.
func (ls Levels) Leaf(i uint64) (Digest, error) {
	if i >= ls.LeafCount() {
		return nil, fmt.Errorf("%w: leaf %d", ErrIndexOutOfRange, i)
	}
	return ls[0][i], nil
}

// IndexOf returns the index of the first leaf equal to d.
func (ls Levels) IndexOf(d Digest) (uint64, bool) {
	if len(ls) == 0 {
		return 0, false
	}
	for i, leaf := range ls[0] {
		if leaf.Equal(d) {
			return uint64(i), true
		}
	}
	return 0, false
}

// Path collects the sibling path of leaf i, ordered leaf to root.
//
// For every level below the root the sibling of an even index is at i+1 (the
// node on the path is the left child) and of an odd index at i-1. When i+1 is
// past the end of an odd length level the node was paired with itself, and
// its own digest is the sibling. The root level has no sibling and contributes
// no step.
func (ls Levels) Path(i uint64) (Proof, error) {
	if i >= ls.LeafCount() {
		return nil, fmt.Errorf("%w: leaf %d", ErrIndexOutOfRange, i)
	}

	proof := make(Proof, 0, ls.Height())
	for l := 0; l+1 < len(ls); l++ {
		level := ls[l]

		var sibling uint64
		isLeft := i%2 == 0
		if isLeft {
			sibling = i + 1
		} else {
			sibling = i - 1
		}
		if sibling >= uint64(len(level)) {
			sibling = i
		}
		proof = append(proof, ProofStep{Sibling: level[sibling], CurrentIsLeft: isLeft})

		i /= 2
	}
	return proof, nil
}

// Clone returns a deep copy of the table structure. Digests are shared, they
// are never modified in place.
func (ls Levels) Clone() Levels {
	if ls == nil {
		return nil
	}
	out := make(Levels, len(ls))
	for l, level := range ls {
		out[l] = cloneDigests(level)
	}
	return out
}

// Equal reports whether both tables hold identical digests.
func (ls Levels) Equal(other Levels) bool {
	return slices.EqualFunc(ls, other, func(a, b []Digest) bool {
		return slices.EqualFunc(a, b, Digest.Equal)
	})
}

// pairAt returns the parent digest of the pair at j, pairing an odd tail
// with itself.
func pairAt(h Hasher, level []Digest, j int) Digest {
	left := level[2*j]
	if 2*j+1 < len(level) {
		return h.Pair(left, level[2*j+1])
	}
	return h.Pair(left, left)
}
