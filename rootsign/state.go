package rootsign

import (
	"time"

	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/google/uuid"
)

const (
	KindBinary  = "binary"
	KindSparse  = "sparse"
	KindIndexed = "indexed"
)

// TreeState is the signed commitment to a tree at a point in time.
type TreeState struct {
	// TreeID names the tree across successive states.
	TreeID uuid.UUID `cbor:"1,keyasint"`
	Kind   string    `cbor:"2,keyasint"`
	// Size is the item count for binary trees, the number of assigned slots
	// for sparse trees and the number of inserted values for indexed trees.
	Size uint64 `cbor:"3,keyasint"`
	// Root is detached from published messages, see RootSigner.Sign1.
	Root []byte `cbor:"4,keyasint"`
	// Timestamp is the unix time (milliseconds) read when the state was
	// created. Including it allows for the same root to be re-signed.
	Timestamp int64  `cbor:"5,keyasint"`
	HashName  string `cbor:"6,keyasint"`
	RawPairs  bool   `cbor:"7,keyasint"`
}

func NewTreeState(treeID uuid.UUID, kind string, size uint64, root merkle.Digest, h merkle.Hasher) TreeState {
	return TreeState{
		TreeID:    treeID,
		Kind:      kind,
		Size:      size,
		Root:      root,
		Timestamp: time.Now().UnixMilli(),
		HashName:  h.Name(),
		RawPairs:  h.RawPairs(),
	}
}

// NewTreeID returns a fresh random tree identity.
func NewTreeID() uuid.UUID {
	return uuid.New()
}
