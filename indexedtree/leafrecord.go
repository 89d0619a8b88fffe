package indexedtree

import (
	"encoding/binary"
	"fmt"

	"github.com/forestrie/go-merkletrees/merkle"
)

// LeafRecordBytes is the fixed byte width of a leaf table record:
//
//	record[0:8]   = value_be8
//	record[8:16]  = nextIndex_be8
//	record[16:24] = nextValue_be8
//
// The record bytes are exactly what the leaf digest commits to. Fixed width
// fields keep the encoding unambiguous: (1, 23) and (12, 3) can not collide.
const LeafRecordBytes = 24

const (
	leafValueOff     = 0
	leafNextIndexOff = 8
	leafNextValueOff = 16
)

// Leaf is one link of the sorted chain. NextIndex == 0 marks the leaf holding
// the current maximum; slot 0 is the sentinel (0, 0, 0) until the first
// insert.
type Leaf struct {
	Value     uint64 `json:"value"`
	NextIndex uint64 `json:"nextIndex"`
	NextValue uint64 `json:"nextValue"`
}

// Encode returns the canonical record bytes of l.
func (l Leaf) Encode() []byte {
	var b [LeafRecordBytes]byte
	writeU64BE(b[leafValueOff:], l.Value)
	writeU64BE(b[leafNextIndexOff:], l.NextIndex)
	writeU64BE(b[leafNextValueOff:], l.NextValue)
	return b[:]
}

// IsZero reports whether l is the all zero record, which is what both the
// untouched sentinel and every unused slot hold.
func (l Leaf) IsZero() bool {
	return l == Leaf{}
}

// Digest returns the leaf digest H(record).
func (l Leaf) Digest(h merkle.Hasher) merkle.Digest {
	return h.Sum(l.Encode())
}

func DecodeLeaf(b []byte) (Leaf, error) {
	if len(b) != LeafRecordBytes {
		return Leaf{}, fmt.Errorf("%w: leaf record is %d bytes, want %d", merkle.ErrProofEncoding, len(b), LeafRecordBytes)
	}
	return leafFromRecord(b), nil
}

// LeafRecordOffset returns the byte offset of slot in leafTable.
func LeafRecordOffset(slot uint64) uint64 {
	return slot * LeafRecordBytes
}

// LeafTableBytes returns the leaf table size for capacity slots.
func LeafTableBytes(capacity uint64) uint64 {
	return capacity * LeafRecordBytes
}

// LeafSet stores l at slot. Caller must ensure leafTable is large enough.
func LeafSet(leafTable []byte, slot uint64, l Leaf) {
	off := LeafRecordOffset(slot)
	rec := leafTable[off : off+LeafRecordBytes]
	writeU64BE(rec[leafValueOff:], l.Value)
	writeU64BE(rec[leafNextIndexOff:], l.NextIndex)
	writeU64BE(rec[leafNextValueOff:], l.NextValue)
}

// LeafAt returns the record at slot. Caller must ensure leafTable is large
// enough.
func LeafAt(leafTable []byte, slot uint64) Leaf {
	off := LeafRecordOffset(slot)
	return leafFromRecord(leafTable[off : off+LeafRecordBytes])
}

// LeafRecord returns the raw record bytes at slot, without copying.
func LeafRecord(leafTable []byte, slot uint64) []byte {
	off := LeafRecordOffset(slot)
	return leafTable[off : off+LeafRecordBytes]
}

func leafFromRecord(rec []byte) Leaf {
	return Leaf{
		Value:     readU64BE(rec[leafValueOff:]),
		NextIndex: readU64BE(rec[leafNextIndexOff:]),
		NextValue: readU64BE(rec[leafNextValueOff:]),
	}
}

func readU64BE(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func writeU64BE(dst []byte, v uint64) { binary.BigEndian.PutUint64(dst, v) }
