// Executable merkletool builds Merkle trees from the command line and
// produces and checks their proofs. See "merkletool help" for the commands.
package main

import "github.com/forestrie/go-merkletrees/cmd/merkletool/internal/cmd"

func main() {
	cmd.Execute()
}
