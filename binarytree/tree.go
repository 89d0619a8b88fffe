// Package binarytree implements a dense, append only binary Merkle tree over
// an ordered list of items.
//
// Leaf i is H(items[i]). Levels of odd length pair their last digest with
// itself, so a tree over [a, b, c] has the root
//
//	H( H(H(a) || H(b)) || H(H(c) || H(c)) )
//
// Appending is cheap: Append only records the item, and IncrementalRebuild
// hashes the new leaves and the parents along the growing right edge.
package binarytree

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/forestrie/go-merkletrees/merkle"
)

type Tree struct {
	mu sync.RWMutex

	opts   merkle.Options
	items  [][]byte
	levels merkle.Levels
}

// New creates a tree over items. The table is not built until Rebuild or
// IncrementalRebuild is called.
func New(items [][]byte, opts ...merkle.Option) (*Tree, error) {
	t := &Tree{opts: merkle.NewOptions(opts...)}
	if !t.opts.Hasher.Valid() {
		return nil, fmt.Errorf("%w: hasher not provided", merkle.ErrInvalidConfiguration)
	}
	t.items = cloneItems(items)
	return t, nil
}

// NewFromValues creates a tree over the text form of each value, see
// merkle.Stringify.
func NewFromValues(values []any, opts ...merkle.Option) (*Tree, error) {
	items := make([][]byte, len(values))
	for i, v := range values {
		items[i] = merkle.Stringify(v)
	}
	return New(items, opts...)
}

// Rebuild recomputes the whole level table from the items.
func (t *Tree) Rebuild() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.items) == 0 {
		return merkle.ErrEmptyInput
	}
	leaves := t.leafDigests(t.items)
	levels, err := merkle.BuildLevels(t.opts.Hasher, leaves)
	if err != nil {
		return err
	}
	t.levels = levels
	t.opts.Debugf("binarytree: rebuilt %d leaves, height %d", len(leaves), levels.Height())
	return nil
}

// Append adds an item to the end of the tree. The root does not reflect it
// until the next Rebuild or IncrementalRebuild.
func (t *Tree) Append(item []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, bytes.Clone(item))
}

func (t *Tree) AppendValue(v any) {
	t.Append(merkle.Stringify(v))
}

// IncrementalRebuild hashes only the items appended since the table was last
// built, then extends each level with the parents of the new suffix.
//
// The caller must only have appended to the tree since the last build.
// Nothing checks this: any other change yields a wrong root.
func (t *Tree) IncrementalRebuild() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.items) == 0 {
		return merkle.ErrEmptyInput
	}
	built := t.levels.LeafCount()
	if built > uint64(len(t.items)) {
		return fmt.Errorf("%w: %d items but %d leaves built", merkle.ErrIndexOutOfRange, len(t.items), built)
	}

	added := t.items[built:]
	if len(added) == 0 {
		return nil
	}
	t.levels = t.levels.Extend(t.opts.Hasher, t.leafDigests(added))
	t.opts.Debugf("binarytree: extended by %d leaves to %d, height %d", len(added), len(t.items), t.levels.Height())
	return nil
}

// Root returns the root of the last built table.
func (t *Tree) Root() (merkle.Digest, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	root := t.levels.Root()
	if root == nil {
		return nil, merkle.ErrEmptyInput
	}
	return root, nil
}

// Levels returns a copy of the last built level table.
func (t *Tree) Levels() merkle.Levels {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.levels.Clone()
}

// Items returns a copy of the item list, including items not yet built.
func (t *Tree) Items() [][]byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneItems(t.items)
}

func cloneItems(items [][]byte) [][]byte {
	out := make([][]byte, len(items))
	for i, item := range items {
		out[i] = bytes.Clone(item)
	}
	return out
}

// Len returns the number of items, including items not yet built.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *Tree) Hasher() merkle.Hasher { return t.opts.Hasher }

// ProveByValue returns the sibling path of the first leaf equal to H(item).
func (t *Tree) ProveByValue(item []byte) (merkle.Proof, error) {
	return t.ProveByDigest(t.opts.Hasher.Sum(item))
}

// ProveByDigest returns the sibling path of the first leaf equal to leaf.
func (t *Tree) ProveByDigest(leaf merkle.Digest) (merkle.Proof, error) {
	if err := t.opts.Hasher.CheckDigest(leaf); err != nil {
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

// ProveIndex returns the sibling path of leaf i.
func (t *Tree) ProveIndex(i uint64) (merkle.Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.levels.Path(i)
}

func (t *Tree) leafDigests(items [][]byte) []merkle.Digest {
	leaves := make([]merkle.Digest, len(items))
	for i, item := range items {
		leaves[i] = t.opts.Hasher.Sum(item)
	}
	return leaves
}
