package cmd

import (
	"fmt"
	"strconv"

	"github.com/forestrie/go-merkletrees/indexedtree"
	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/spf13/cobra"
)

// AbsenceDocument is printed by indexed --absent.
type AbsenceDocument struct {
	Root     merkle.Digest                  `json:"root"`
	Proof    indexedtree.NonMembershipProof `json:"proof"`
	Verified bool                           `json:"verified"`
}

var indexedCmd = &cobra.Command{
	Use:   "indexed VALUE...",
	Short: "Insert values into an indexed tree and print its chain and root",
	Long: `Insert values into an indexed tree and print the sorted chain of leaves,
one "slot: value -> nextIndex (nextValue)" line each, followed by the root.

With --absent the non-membership proof of that value is printed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("height") {
			conf.Indexed.Height, _ = cmd.Flags().GetInt("height")
		}
		opts, err := conf.treeOptions()
		if err != nil {
			return err
		}
		opts = append(opts, indexedtree.WithBloom(conf.Indexed.BloomBitsPerValue, conf.Indexed.BloomK))
		if conf.Indexed.AllowDuplicates {
			opts = append(opts, indexedtree.WithDuplicates())
		}

		tree, err := indexedtree.New(conf.Indexed.Height, opts...)
		if err != nil {
			return err
		}
		for _, arg := range args {
			v, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad value %q", merkle.ErrInvalidConfiguration, arg)
			}
			ins, err := tree.Insert(v)
			if err != nil {
				return err
			}
			if err = tree.RecomputeAffected(ins.Slot, ins.LowSlot); err != nil {
				return err
			}
		}
		root, err := tree.Root()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("absent") {
			target, _ := cmd.Flags().GetUint64("absent")
			proof, err := tree.ProveNonMembership(target)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), AbsenceDocument{
				Root:     root,
				Proof:    proof,
				Verified: indexedtree.VerifyNonMembership(tree.Hasher(), proof, root, target),
			})
		}

		out := cmd.OutOrStdout()
		tree.Walk(func(slot uint64, leaf indexedtree.Leaf) bool {
			fmt.Fprintf(out, "%d: %d -> %d (%d)\n", slot, leaf.Value, leaf.NextIndex, leaf.NextValue)
			return true
		})
		fmt.Fprintln(out, root)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(indexedCmd)
	indexedCmd.Flags().Int("height", 0, "Tree height, overrides indexed.height")
	indexedCmd.Flags().Uint64("absent", 0, "Print the non-membership proof of this value")
}
