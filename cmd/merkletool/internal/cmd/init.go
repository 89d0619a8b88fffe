package cmd

import (
	"bytes"
	"os"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file holding the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cmd.Flag("dir").Value.String()
		return mkConfig(path.Join(dir, "merkletool.toml"))
	},
}

func init() {
	RootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("dir", "d", ".", "Location of directory for storing the configuration file")
}

func mkConfig(file string) error {
	var confBuf bytes.Buffer

	e := toml.NewEncoder(&confBuf)
	if err := e.Encode(DefaultConfig()); err != nil {
		return err
	}
	return os.WriteFile(file, confBuf.Bytes(), 0644)
}
