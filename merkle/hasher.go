package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

const (
	HashSHA256    = "sha256"
	HashSHA3      = "sha3-256"
	HashKeccak256 = "keccak256"
	HashBlake2b   = "blake2b-256"
)

// Hasher is the one way function a tree commits its contents with.
//
// A Hasher is immutable and creates a fresh hash.Hash for every digest, so a
// single value may be shared by concurrent readers.
//
// Interior nodes are, by default, computed over the hex text of the two child
// digests: H(hex(left) || hex(right)). This matches the published reference
// vectors for these trees. WithRawPairs selects H(left || right) instead.
type Hasher struct {
	name     string
	newHash  func() hash.Hash
	rawPairs bool
}

type HasherOption func(*Hasher)

// WithRawPairs hashes interior nodes over the raw child bytes.
func WithRawPairs() HasherOption {
	return func(h *Hasher) {
		h.rawPairs = true
	}
}

func WithHasherName(name string) HasherOption {
	return func(h *Hasher) {
		h.name = name
	}
}

func NewHasher(newHash func() hash.Hash, opts ...HasherOption) Hasher {
	h := Hasher{name: "custom", newHash: newHash}
	for _, o := range opts {
		o(&h)
	}
	return h
}

// DefaultHasher returns the SHA-256 hasher with hex pair encoding.
func DefaultHasher() Hasher {
	return NewHasher(sha256.New, WithHasherName(HashSHA256))
}

var namedHashes = map[string]func() hash.Hash{
	HashSHA256:    sha256.New,
	HashSHA3:      sha3.New256,
	HashKeccak256: sha3.NewLegacyKeccak256,
	HashBlake2b: func() hash.Hash {
		// only fails for keys longer than 64 bytes
		h, _ := blake2b.New256(nil)
		return h
	},
}

// HasherNames lists the names accepted by HasherByName.
func HasherNames() []string {
	names := make([]string, 0, len(namedHashes))
	for name := range namedHashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasherByName returns one of the built in hashers.
func HasherByName(name string, opts ...HasherOption) (Hasher, error) {
	newHash, ok := namedHashes[strings.ToLower(name)]
	if !ok {
		return Hasher{}, fmt.Errorf("%w: unknown hash function %q", ErrInvalidConfiguration, name)
	}
	return NewHasher(newHash, append([]HasherOption{WithHasherName(strings.ToLower(name))}, opts...)...), nil
}

func (h Hasher) Name() string { return h.name }

// RawPairs reports whether interior nodes hash the raw child bytes.
func (h Hasher) RawPairs() bool { return h.rawPairs }

// Size returns the digest width in bytes.
func (h Hasher) Size() int { return h.newHash().Size() }

// Sum returns the leaf digest of data.
func (h Hasher) Sum(data []byte) Digest {
	hasher := h.newHash()
	_, _ = hasher.Write(data)
	return hasher.Sum(nil)
}

// Pair returns the digest of the interior node over left and right.
func (h Hasher) Pair(left, right Digest) Digest {
	hasher := h.newHash()
	if h.rawPairs {
		_, _ = hasher.Write(left)
		_, _ = hasher.Write(right)
		return hasher.Sum(nil)
	}
	buf := make([]byte, hex.EncodedLen(len(left))+hex.EncodedLen(len(right)))
	n := hex.Encode(buf, left)
	hex.Encode(buf[n:], right)
	_, _ = hasher.Write(buf)
	return hasher.Sum(nil)
}

// Stringify returns the canonical text bytes of v. nil encodes as the empty
// string.
func Stringify(v any) []byte {
	switch x := v.(type) {
	case nil:
		return []byte{}
	case []byte:
		return x
	case string:
		return []byte(x)
	case fmt.Stringer:
		return []byte(x.String())
	default:
		return []byte(fmt.Sprint(x))
	}
}

// CheckDigest returns ErrBadDigestSize unless d is as wide as the digests h
// produces.
func (h Hasher) CheckDigest(d Digest) error {
	if len(d) != h.Size() {
		return fmt.Errorf("%w: %d bytes, want %d", ErrBadDigestSize, len(d), h.Size())
	}
	return nil
}

// Valid reports whether h can produce digests. The zero Hasher can not.
func (h Hasher) Valid() bool { return h.newHash != nil }
