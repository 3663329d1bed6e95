package commands

import (
	"encoding/json"
	"io"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/genesis"
)

// Genesis prints the consensus parameters and the genesis block every node
// starts with.
func Genesis(w io.Writer) error {
	out := struct {
		Genesis genesis.Genesis `json:"genesis"`
		Block   database.Block  `json:"block"`
	}{
		Genesis: genesis.Default(),
		Block:   database.GenesisBlock(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
