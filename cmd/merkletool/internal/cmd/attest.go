package cmd

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/forestrie/go-merkletrees/rootsign"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/veraison/go-cose"
)

const attestKeyID = "merkletool"

var attestCmd = &cobra.Command{
	Use:   "attest ITEM...",
	Short: "Sign the root of the binary tree over the items",
	Long: `Sign the root of the binary tree over the items as a COSE Sign1 message and
print it as hex. The root is detached from the signed payload, so the message
only verifies for a party holding the same items.

With --check the given message is verified against the tree instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := buildBinaryTree(args)
		if err != nil {
			return err
		}
		root, err := tree.Root()
		if err != nil {
			return err
		}
		codec, err := rootsign.NewRootSignerCodec()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("check") {
			msg, err := hex.DecodeString(cmd.Flag("check").Value.String())
			if err != nil {
				return err
			}
			state, err := rootsign.VerifyRoot(codec, msg, root, nil)
			if err != nil {
				return fmt.Errorf("attestation does not verify: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s %s size %d\n", state.TreeID, state.Kind, state.Size)
			return nil
		}

		key, err := loadSigningKey(conf.Attest.KeyPath)
		if err != nil {
			return err
		}
		signer, err := cose.NewSigner(cose.AlgorithmES256, key)
		if err != nil {
			return err
		}

		treeID := rootsign.NewTreeID()
		if id := cmd.Flag("tree-id").Value.String(); id != "" {
			if treeID, err = uuid.Parse(id); err != nil {
				return err
			}
		}
		state := rootsign.NewTreeState(treeID, rootsign.KindBinary, uint64(tree.Len()), root, tree.Hasher())

		rs := rootsign.NewRootSigner(conf.Attest.Issuer, codec, merkle.WithLogger(log))
		msg, err := rs.Sign1(signer, attestKeyID, &key.PublicKey, conf.Attest.Subject, state, nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(msg))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(attestCmd)
	attestCmd.Flags().String("check", "", "Verify this hex encoded attestation against the tree")
	attestCmd.Flags().String("tree-id", "", "Tree identity to sign, a random one is used when empty")
}

// loadSigningKey reads a PEM encoded EC private key, or generates a P-256 key
// when path is empty.
func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM data in %s", path)
	}
	return x509.ParseECPrivateKey(block.Bytes)
}
