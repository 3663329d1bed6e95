// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/genesis"
)

var client = http.Client{
	Timeout: 30 * time.Second,
}

// fetchChain downloads the chain held by the node at the url and replays it
// from the genesis block.
func fetchChain(args []string) ([]database.Block, database.UTXOSet, error) {
	if len(args) < 3 {
		return nil, database.UTXOSet{}, errors.New("the url of a node is required")
	}
	url := strings.TrimRight(args[2], "/")

	resp, err := client.Get(url + "/blocks")
	if err != nil {
		return nil, database.UTXOSet{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, database.UTXOSet{}, fmt.Errorf("node responded %s", resp.Status)
	}

	var blocks []database.Block
	if err := json.NewDecoder(resp.Body).Decode(&blocks); err != nil {
		return nil, database.UTXOSet{}, fmt.Errorf("decoding chain: %w", err)
	}

	utxos, err := database.ValidateChain(blocks, genesis.Default(), time.Now(), nil)
	if err != nil {
		return nil, database.UTXOSet{}, err
	}

	return blocks, utxos, nil
}
