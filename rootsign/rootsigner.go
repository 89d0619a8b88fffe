// Package rootsign produces and checks COSE Sign1 attestations of tree roots.
//
// The root is removed from the payload after signing, so a signed state can
// only be verified by a party that recomputes the root from the tree itself.
package rootsign

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/veraison/go-cose"
)

type publicKeyProvider interface {
	PublicKey() (crypto.PublicKey, cose.Algorithm, error)
}

// RootSigner signs TreeState values on behalf of issuer.
type RootSigner struct {
	issuer    string
	cborCodec dtcbor.CBORCodec
	log       logger.Logger
}

func NewRootSigner(issuer string, cborCodec dtcbor.CBORCodec, opts ...merkle.Option) RootSigner {
	o := merkle.NewOptions(opts...)
	return RootSigner{
		issuer:    issuer,
		cborCodec: cborCodec,
		log:       o.Log,
	}
}

// Sign1 signs state and returns the encoded message with the root detached.
// The public key is carried in the CWT claims of the protected header.
func (rs RootSigner) Sign1(
	coseSigner cose.Signer, keyIdentifier string, publicKey *ecdsa.PublicKey, subject string, state TreeState, external []byte,
) ([]byte, error) {
	payload, err := rs.cborCodec.MarshalCBOR(state)
	if err != nil {
		return nil, err
	}

	coseHeaders := cose.Headers{
		Protected: cose.ProtectedHeader{
			dtcose.HeaderLabelCWTClaims: dtcose.NewCNFClaim(
				rs.issuer, subject, keyIdentifier, coseSigner.Algorithm(), *publicKey),
		},
	}

	msg := cose.Sign1Message{
		Headers: coseHeaders,
		Payload: payload,
	}
	if err = msg.Sign(rand.Reader, external, coseSigner); err != nil {
		return nil, err
	}

	state.Root = nil
	if msg.Payload, err = rs.cborCodec.MarshalCBOR(state); err != nil {
		return nil, err
	}

	if rs.log != nil {
		rs.log.Debugf("rootsign: signed %s tree %s at size %d", state.Kind, state.TreeID, state.Size)
	}
	return msg.MarshalCBOR()
}

func NewRootSignerCodec() (dtcbor.CBORCodec, error) {
	codec, err := dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(), // unsigned int decodes to uint64
	)
	if err != nil {
		return dtcbor.CBORCodec{}, err
	}
	return codec, nil
}

// DecodeSignedState decodes the message and its payload. The returned state
// has no root and does not verify until one is supplied.
func DecodeSignedState(codec dtcbor.CBORCodec, msg []byte) (*dtcose.CoseSign1Message, TreeState, error) {
	signed, err := dtcose.NewCoseSign1MessageFromCBOR(
		msg, dtcose.WithDecOptions(dtcbor.NewDeterministicDecOpts()))
	if err != nil {
		return nil, TreeState{}, err
	}

	var unverifiedState TreeState
	if err = codec.UnmarshalInto(signed.Payload, &unverifiedState); err != nil {
		return nil, TreeState{}, err
	}
	return signed, unverifiedState, nil
}

// VerifySignedState re-encodes state, which must carry the root recomputed
// from the tree, as the payload of signed and checks the signature.
func VerifySignedState(
	codec dtcbor.CBORCodec, keyProvider publicKeyProvider, signed *dtcose.CoseSign1Message, state TreeState, external []byte,
) error {
	var err error
	signed.Payload, err = codec.MarshalCBOR(state)
	if err != nil {
		return err
	}
	return signed.VerifyWithProvider(keyProvider, external)
}

// VerifyRoot checks msg against root using the key embedded in its CWT
// claims. The caller is responsible for trusting that key.
func VerifyRoot(codec dtcbor.CBORCodec, msg []byte, root merkle.Digest, external []byte) (TreeState, error) {
	signed, state, err := DecodeSignedState(codec, msg)
	if err != nil {
		return TreeState{}, err
	}
	state.Root = root
	if err = VerifySignedState(codec, dtcose.NewCWTPublicKeyProvider(signed), signed, state, external); err != nil {
		return TreeState{}, err
	}
	return state, nil
}
