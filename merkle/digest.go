package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Digest is the fixed width output of a Hasher. Externally it is always
// rendered as lower case hex.
type Digest []byte

func (d Digest) String() string { return hex.EncodeToString(d) }

func (d Digest) Equal(other Digest) bool { return bytes.Equal(d, other) }

func (d Digest) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(d)))
	hex.Encode(out, d)
	return out, nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	b := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(b, text); err != nil {
		return fmt.Errorf("%w: %v", ErrProofEncoding, err)
	}
	*d = b
	return nil
}

// ParseDigest decodes a hex digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return d, nil
}

func cloneDigests(in []Digest) []Digest {
	out := make([]Digest, len(in))
	copy(out, in)
	return out
}
