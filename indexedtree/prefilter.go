package indexedtree

import (
	"crypto/sha256"

	"github.com/bits-and-blooms/bitset"
)

const prefilterDomain = 0xB0

// prefilter is a Bloom filter over the inserted values. It only answers
// "definitely absent" quickly; a "maybe" is settled by the sorted index.
type prefilter struct {
	bits  *bitset.BitSet
	mBits uint64
	k     uint8
}

func newPrefilter(capacity uint64, bitsPerValue uint64, k uint8) *prefilter {
	mBits := capacity * bitsPerValue
	return &prefilter{
		bits:  bitset.New(uint(mBits)),
		mBits: mBits,
		k:     k,
	}
}

func (f *prefilter) insert(value uint64) {
	h1, h2 := prefilterHashPair(value)
	for i := uint64(0); i < uint64(f.k); i++ {
		f.bits.Set(uint((h1 + i*h2) % f.mBits))
	}
}

func (f *prefilter) maybeContains(value uint64) bool {
	h1, h2 := prefilterHashPair(value)
	for i := uint64(0); i < uint64(f.k); i++ {
		if !f.bits.Test(uint((h1 + i*h2) % f.mBits)) {
			return false
		}
	}
	return true
}

// prefilterHashPair derives the double hashing pair from
// SHA-256( 0xB0 || value_be8 ).
func prefilterHashPair(value uint64) (h1 uint64, h2 uint64) {
	var buf [1 + 8]byte
	buf[0] = prefilterDomain
	writeU64BE(buf[1:], value)
	sum := sha256.Sum256(buf[:])
	h1 = readU64BE(sum[0:8])
	h2 = readU64BE(sum[8:16])
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}
