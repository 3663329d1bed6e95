package commands

import (
	"fmt"
	"io"
)

// Verify downloads the chain of a node and checks every block and
// transaction in it.
func Verify(args []string, w io.Writer) error {
	blocks, utxos, err := fetchChain(args)
	if err != nil {
		return err
	}

	latest := blocks[len(blocks)-1]

	fmt.Fprintf(w, "Chain is valid\n\n")
	fmt.Fprintf(w, "Blocks: %d\n", len(blocks))
	fmt.Fprintf(w, "LatestBlockHash: %s\n", latest.Hash)
	fmt.Fprintf(w, "Difficulty: %d\n", latest.Difficulty)
	fmt.Fprintf(w, "Unspent: %d outputs holding %d\n", utxos.Len(), utxos.Total())

	return nil
}
