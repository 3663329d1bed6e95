package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
)

// Balances prints the balance of every address, or of the address given
// after the url, from a replay of the chain of a node.
func Balances(args []string, w io.Writer) error {
	var onlyAddr string
	if len(args) == 4 {
		onlyAddr = args[3]
	}

	blocks, utxos, err := fetchChain(args)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", blocks[len(blocks)-1].Hash)

	bals := make(map[string]uint64)
	for _, utxo := range utxos.Values() {
		if onlyAddr != "" && utxo.Address != onlyAddr {
			continue
		}
		bals[utxo.Address] += utxo.Amount
	}

	addrs := slices.Sorted(maps.Keys(bals))
	for _, addr := range addrs {
		fmt.Fprintf(w, "Address: %.16s  Balance: %d\n", addr, bals[addr])
	}

	return nil
}
