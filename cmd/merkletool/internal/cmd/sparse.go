package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/forestrie/go-merkletrees/sparsetree"
	"github.com/spf13/cobra"
)

// SlotProofDocument is printed by sparse --prove.
type SlotProofDocument struct {
	Root  merkle.Digest `json:"root"`
	Index uint64        `json:"index"`
	Value string        `json:"value"`
	Proof merkle.Proof  `json:"proof"`
}

var sparseCmd = &cobra.Command{
	Use:   "sparse INDEX=VALUE...",
	Short: "Print the root of a sparse tree with the given slots assigned",
	Long: `Print the root of a sparse tree with the given slots assigned.

The depth and the value of unassigned slots come from the [sparse] section of
the configuration, --depth overrides it. With --prove the inclusion proof of
that slot is printed instead of the root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("depth") {
			conf.Sparse.Depth, _ = cmd.Flags().GetInt("depth")
		}
		opts, err := conf.treeOptions()
		if err != nil {
			return err
		}
		opts = append(opts, sparsetree.WithDefaultLeafValue([]byte(conf.Sparse.DefaultLeaf)))

		tree, err := sparsetree.New(conf.Sparse.Depth, opts...)
		if err != nil {
			return err
		}
		for _, arg := range args {
			index, value, err := parseAssignment(arg)
			if err != nil {
				return err
			}
			if err = tree.SetValue(index, []byte(value)); err != nil {
				return err
			}
		}

		if !cmd.Flags().Changed("prove") {
			fmt.Fprintln(cmd.OutOrStdout(), tree.Root())
			return nil
		}
		index, _ := cmd.Flags().GetUint64("prove")
		proof, err := tree.ProveIndex(index)
		if err != nil {
			return err
		}
		value, _, err := tree.Value(index)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), SlotProofDocument{
			Root:  tree.Root(),
			Index: index,
			Value: string(value),
			Proof: proof,
		})
	},
}

func init() {
	RootCmd.AddCommand(sparseCmd)
	sparseCmd.Flags().Int("depth", 0, "Tree depth, overrides sparse.depth")
	sparseCmd.Flags().Uint64("prove", 0, "Print the inclusion proof of this slot")
}

func parseAssignment(arg string) (uint64, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok {
		return 0, "", fmt.Errorf("%w: expected INDEX=VALUE, got %q", merkle.ErrInvalidConfiguration, arg)
	}
	index, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: bad slot index %q", merkle.ErrInvalidConfiguration, key)
	}
	return index, value, nil
}
