package merkle

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ProofStep is one level of a sibling path.
type ProofStep struct {
	_             struct{} `cbor:",toarray"`
	Sibling       Digest   `json:"sibling"`
	CurrentIsLeft bool     `json:"currentIsLeft"`
}

// Proof is a sibling path ordered from the leaf to the root.
type Proof []ProofStep

var proofEncMode cbor.EncMode

func init() {
	var err error
	proofEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// MarshalCBOR encodes the proof as a deterministic CBOR array of
// [sibling, currentIsLeft] pairs.
func (p Proof) MarshalCBOR() ([]byte, error) {
	return proofEncMode.Marshal([]ProofStep(p))
}

func (p *Proof) UnmarshalCBOR(data []byte) error {
	var steps []ProofStep
	if err := cbor.Unmarshal(data, &steps); err != nil {
		return fmt.Errorf("%w: %v", ErrProofEncoding, err)
	}
	*p = steps
	return nil
}

func (p Proof) MarshalJSON() ([]byte, error) {
	steps := []ProofStep(p)
	if steps == nil {
		steps = []ProofStep{}
	}
	return json.Marshal(steps)
}

func (p *Proof) UnmarshalJSON(data []byte) error {
	var steps []ProofStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return fmt.Errorf("%w: %v", ErrProofEncoding, err)
	}
	*p = steps
	return nil
}

// IncludedRoot replays proof from leaf and returns the root it commits to.
func IncludedRoot(h Hasher, proof Proof, leaf Digest) Digest {
	cur := leaf
	for _, step := range proof {
		if step.CurrentIsLeft {
			cur = h.Pair(cur, step.Sibling)
		} else {
			cur = h.Pair(step.Sibling, cur)
		}
	}
	return cur
}

// VerifyProof returns true if target, hashed as a leaf and combined with the
// proof, reproduces root.
func VerifyProof(h Hasher, proof Proof, root Digest, target []byte) bool {
	return VerifyDigestProof(h, proof, root, h.Sum(target))
}

// VerifyDigestProof is VerifyProof for a caller that already has the leaf
// digest.
func VerifyDigestProof(h Hasher, proof Proof, root Digest, leaf Digest) bool {
	return IncludedRoot(h, proof, leaf).Equal(root)
}
