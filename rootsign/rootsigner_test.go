package rootsign

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkletrees/binarytree"
	"github.com/forestrie/go-merkletrees/indexedtree"
	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"
)

func testGenerateECKey(t *testing.T, curve elliptic.Curve) *ecdsa.PrivateKey {
	privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)
	return privateKey
}

func testNewRootSigner(t *testing.T, issuer string) RootSigner {
	cborCodec, err := NewRootSignerCodec()
	require.NoError(t, err)
	return NewRootSigner(issuer, cborCodec, merkle.WithLogger(logger.Sugar.WithServiceName("rootsign")))
}

func TestRootSigner_Sign1(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	binary, err := binarytree.New([][]byte{[]byte("1"), []byte("2"), []byte("3")})
	require.NoError(t, err)
	require.NoError(t, binary.Rebuild())
	binaryRoot, err := binary.Root()
	require.NoError(t, err)

	indexed, err := indexedtree.New(3)
	require.NoError(t, err)
	_, err = indexed.Insert(42)
	require.NoError(t, err)
	indexed.Commit()
	indexedRoot, err := indexed.Root()
	require.NoError(t, err)

	tests := []struct {
		name     string
		state    TreeState
		external []byte
	}{
		{
			name:  "binary tree",
			state: NewTreeState(NewTreeID(), KindBinary, uint64(binary.Len()), binaryRoot, binary.Hasher()),
		},
		{
			name:     "indexed tree with external data",
			state:    NewTreeState(NewTreeID(), KindIndexed, indexed.Len(), indexedRoot, indexed.Hasher()),
			external: []byte("checkpoint 7"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := testGenerateECKey(t, elliptic.P256())
			rs := testNewRootSigner(t, "merkletrees.test")

			coseSigner, err := cose.NewSigner(cose.AlgorithmES256, key)
			require.NoError(t, err)

			msg, err := rs.Sign1(coseSigner, "tree attestation key 1", &key.PublicKey, "merkletrees", tt.state, tt.external)
			require.NoError(t, err)

			signed, state, err := DecodeSignedState(rs.cborCodec, msg)
			require.NoError(t, err)
			assert.Nil(t, state.Root)
			assert.Equal(t, tt.state.TreeID, state.TreeID)
			assert.Equal(t, tt.state.Size, state.Size)
			assert.Equal(t, "sha256", state.HashName)

			// the detached root must be supplied before the signature checks out
			err = VerifySignedState(rs.cborCodec, dtcose.NewCWTPublicKeyProvider(signed), signed, state, tt.external)
			assert.Error(t, err)

			state.Root = tt.state.Root
			err = VerifySignedState(rs.cborCodec, dtcose.NewCWTPublicKeyProvider(signed), signed, state, tt.external)
			assert.NoError(t, err)

			_, err = VerifyRoot(rs.cborCodec, msg, tt.state.Root, tt.external)
			assert.NoError(t, err)

			wrong := merkle.DefaultHasher().Sum([]byte("not the root"))
			_, err = VerifyRoot(rs.cborCodec, msg, wrong, tt.external)
			assert.Error(t, err)

			_, err = VerifyRoot(rs.cborCodec, msg, tt.state.Root, []byte("other"))
			assert.Error(t, err)
		})
	}
}
