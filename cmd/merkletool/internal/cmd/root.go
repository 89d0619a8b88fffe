// Package cmd implements the merkletool commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"
)

var (
	conf Config
	log  logger.Logger
)

// RootCmd represents the base "merkletool" command when called without any
// subcommands.
var RootCmd = &cobra.Command{
	Use:   "merkletool",
	Short: "Build Merkle trees and produce and check their proofs",
	Long: `merkletool builds binary, sparse and indexed Merkle trees from its
arguments and prints their roots and proofs.

Settings are read from the TOML file named by --config, if any. The hash
flags override the file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if conf, err = LoadConfig(cmd.Flag("config").Value.String()); err != nil {
			return err
		}
		if cmd.Flags().Changed("hash") {
			conf.Hash = cmd.Flag("hash").Value.String()
		}
		if cmd.Flags().Changed("raw-pairs") {
			conf.RawPairs, _ = cmd.Flags().GetBool("raw-pairs")
		}
		if err = conf.Validate(); err != nil {
			return err
		}
		logger.New(conf.LogLevel)
		log = logger.Sugar.WithServiceName("merkletool")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.OnExit()
	},
}

func init() {
	RootCmd.PersistentFlags().StringP("config", "c", "", "Path to a TOML configuration file")
	RootCmd.PersistentFlags().String("hash", "", "Hash function: sha256, sha3-256, keccak256 or blake2b-256")
	RootCmd.PersistentFlags().Bool("raw-pairs", false, "Hash interior nodes over raw child bytes instead of their hex text")
}

// Execute adds all subcommands to the RootCmd and sets their flags
// appropriately.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
