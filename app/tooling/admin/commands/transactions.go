package commands

import (
	"fmt"
	"io"
)

// Transactions prints the committed transactions of the chain of a node. An
// address given after the url limits the list to the transactions paying it.
func Transactions(args []string, w io.Writer) error {
	var onlyAddr string
	if len(args) == 4 {
		onlyAddr = args[3]
	}

	blocks, _, err := fetchChain(args)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		for _, tx := range block.Data {
			var total uint64
			var match bool
			for _, out := range tx.TxOuts {
				total += out.Amount
				if out.Address == onlyAddr {
					match = true
				}
			}

			if onlyAddr != "" && !match {
				continue
			}

			fmt.Fprintf(w, "Block: %d  ID: %s  Inputs: %d  Outputs: %d  Amount: %d\n",
				block.Index, tx.ID, len(tx.TxIns), len(tx.TxOuts), total)
		}
	}

	return nil
}
