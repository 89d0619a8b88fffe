package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/forestrie/go-merkletrees/binarytree"
	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/spf13/cobra"
)

// ProofDocument is what prove prints and verify reads.
type ProofDocument struct {
	Hash     string        `json:"hash"`
	RawPairs bool          `json:"rawPairs"`
	Root     merkle.Digest `json:"root"`
	Item     string        `json:"item"`
	Proof    merkle.Proof  `json:"proof"`
}

var rootCmd = &cobra.Command{
	Use:   "root ITEM...",
	Short: "Print the root of the binary tree over the items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := buildBinaryTree(args)
		if err != nil {
			return err
		}
		levels, _ := cmd.Flags().GetBool("levels")
		if levels {
			for l, level := range tree.Levels() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d:", l)
				for _, d := range level {
					fmt.Fprintf(cmd.OutOrStdout(), " %s", d)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		}
		root, err := tree.Root()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), root)
		return nil
	},
}

var proveCmd = &cobra.Command{
	Use:   "prove --item ITEM ITEM...",
	Short: "Print a JSON inclusion proof for one item of the binary tree",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item := cmd.Flag("item").Value.String()
		tree, err := buildBinaryTree(args)
		if err != nil {
			return err
		}
		proof, err := tree.ProveByValue([]byte(item))
		if err != nil {
			return err
		}
		root, err := tree.Root()
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ProofDocument{
			Hash:     conf.Hash,
			RawPairs: conf.RawPairs,
			Root:     root,
			Item:     item,
			Proof:    proof,
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [FILE]",
	Short: "Check a proof document printed by prove",
	Long: `Check a proof document printed by prove. The document is read from FILE,
or from standard input when FILE is absent or "-".

The hash named in the document is used, not the configured one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		var doc ProofDocument
		if err = json.Unmarshal(data, &doc); err != nil {
			return err
		}
		var opts []merkle.HasherOption
		if doc.RawPairs {
			opts = append(opts, merkle.WithRawPairs())
		}
		h, err := merkle.HasherByName(doc.Hash, opts...)
		if err != nil {
			return err
		}
		if !merkle.VerifyProof(h, doc.Proof, doc.Root, []byte(doc.Item)) {
			return fmt.Errorf("proof for %q does not verify against %s", doc.Item, doc.Root)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(rootCmd)
	rootCmd.Flags().Bool("levels", false, "Print every level of the tree, leaves first")

	RootCmd.AddCommand(proveCmd)
	proveCmd.Flags().String("item", "", "The item to prove")
	_ = proveCmd.MarkFlagRequired("item")

	RootCmd.AddCommand(verifyCmd)
}

func buildBinaryTree(items []string) (*binarytree.Tree, error) {
	opts, err := conf.treeOptions()
	if err != nil {
		return nil, err
	}
	raw := make([][]byte, 0, len(items))
	for _, item := range items {
		raw = append(raw, []byte(item))
	}
	tree, err := binarytree.New(raw, opts...)
	if err != nil {
		return nil, err
	}
	if err = tree.Rebuild(); err != nil {
		return nil, err
	}
	return tree, nil
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
