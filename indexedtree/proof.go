package indexedtree

import (
	"fmt"

	"github.com/forestrie/go-merkletrees/merkle"
)

// LeafProof proves the record at Slot is included under a root.
type LeafProof struct {
	Slot uint64       `cbor:"1,keyasint" json:"slot"`
	Leaf Leaf         `cbor:"2,keyasint" json:"leaf"`
	Path merkle.Proof `cbor:"3,keyasint" json:"path"`
}

// NonMembershipProof shows Target is absent by proving the inclusion of its
// low leaf.
type NonMembershipProof struct {
	Target uint64    `cbor:"1,keyasint" json:"target"`
	Low    LeafProof `cbor:"2,keyasint" json:"low"`
}

// ProveSlot returns the inclusion proof of the record at slot.
func (t *Tree) ProveSlot(slot uint64) (LeafProof, error) {
	if slot >= t.Capacity() {
		return LeafProof{}, fmt.Errorf("%w: slot %d, capacity %d", merkle.ErrIndexOutOfRange, slot, t.Capacity())
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.dirty.Any() {
		return LeafProof{}, merkle.ErrUncommitted
	}
	return t.proveSlot(slot)
}

// ProveByValue proves the leaf holding value. WithDuplicates, the last leaf
// in chain order holding value is proven.
func (t *Tree) ProveByValue(value uint64) (LeafProof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.dirty.Any() {
		return LeafProof{}, merkle.ErrUncommitted
	}
	slot, ok := t.slotOf(value)
	if !ok {
		return LeafProof{}, fmt.Errorf("%w: value %d", merkle.ErrNotFound, value)
	}
	return t.proveSlot(slot)
}

// ProveByDigest returns the path of the first slot whose leaf digest is d.
func (t *Tree) ProveByDigest(d merkle.Digest) (merkle.Proof, error) {
	if err := t.common.Hasher.CheckDigest(d); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.dirty.Any() {
		return nil, merkle.ErrUncommitted
	}
	slot, ok := t.levels.IndexOf(d)
	if !ok {
		return nil, fmt.Errorf("%w: leaf %s", merkle.ErrNotFound, d)
	}
	return t.levels.Path(slot)
}

// ProveNonMembership proves value has not been inserted. It fails with
// merkle.ErrValuePresent if it has.
func (t *Tree) ProveNonMembership(value uint64) (NonMembershipProof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.dirty.Any() {
		return NonMembershipProof{}, merkle.ErrUncommitted
	}
	low := t.index[t.upperBound(value)-1]
	if low.value == value {
		return NonMembershipProof{}, fmt.Errorf("%w: %d", merkle.ErrValuePresent, value)
	}
	lp, err := t.proveSlot(low.slot)
	if err != nil {
		return NonMembershipProof{}, err
	}
	return NonMembershipProof{Target: value, Low: lp}, nil
}

func (t *Tree) proveSlot(slot uint64) (LeafProof, error) {
	path, err := t.levels.Path(slot)
	if err != nil {
		return LeafProof{}, err
	}
	return LeafProof{Slot: slot, Leaf: LeafAt(t.leafTable, slot), Path: path}, nil
}

// PathSlot returns the slot a path of full height leads to. A step whose
// node is the right child sets the corresponding bit.
func PathSlot(path merkle.Proof) uint64 {
	var slot uint64
	for l, step := range path {
		if !step.CurrentIsLeft {
			slot |= uint64(1) << l
		}
	}
	return slot
}

// VerifyLeafProof returns true if p.Leaf is the record at p.Slot under root.
func VerifyLeafProof(h merkle.Hasher, p LeafProof, root merkle.Digest) bool {
	if len(p.Path) == 0 || len(p.Path) > MaxHeight {
		return false
	}
	if PathSlot(p.Path) != p.Slot {
		return false
	}
	return merkle.VerifyProof(h, p.Path, root, p.Leaf.Encode())
}

// VerifyNonMembership returns true if p shows target is absent from the tree
// committed to by root: the low leaf is included, its value is below target
// and its successor, if any, is above it.
//
// Unused slots hold the same zero record as the untouched sentinel, so a
// zero low leaf is only accepted at slot 0.
func VerifyNonMembership(h merkle.Hasher, p NonMembershipProof, root merkle.Digest, target uint64) bool {
	if p.Target != target {
		return false
	}
	low := p.Low.Leaf
	if low.IsZero() && p.Low.Slot != 0 {
		return false
	}
	if low.Value >= target {
		return false
	}
	if low.NextIndex != 0 && target >= low.NextValue {
		return false
	}
	return VerifyLeafProof(h, p.Low, root)
}
