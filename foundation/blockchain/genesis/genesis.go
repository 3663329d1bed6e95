// Package genesis maintains access to the consensus parameters every node
// must agree on.
package genesis

import (
	"time"
)

// Genesis represents the consensus parameters of the chain.
type Genesis struct {
	ChainName               string        `json:"chain_name"`
	CoinbaseAmount          uint64        `json:"coinbase_amount"`            // Reward paid to the minter of a block.
	BlockInterval           time.Duration `json:"block_interval"`             // Target time between blocks.
	AdjustmentInterval      uint64        `json:"adjustment_interval"`        // Number of blocks between difficulty retargets.
	MintingWithoutCoinIndex uint64        `json:"minting_without_coin_index"` // Blocks below this height can be minted without stake.
	TimestampTolerance      int64         `json:"timestamp_tolerance"`        // Seconds a block timestamp may drift.
}

// Default returns the parameters of the CheCoin chain.
func Default() Genesis {
	return Genesis{
		ChainName:               "CheCoin",
		CoinbaseAmount:          50,
		BlockInterval:           10 * time.Second,
		AdjustmentInterval:      10,
		MintingWithoutCoinIndex: 100,
		TimestampTolerance:      60,
	}
}

// AdjustmentWindow returns the expected time in seconds for a full
// difficulty adjustment window.
func (g Genesis) AdjustmentWindow() int64 {
	return int64(g.BlockInterval/time.Second) * int64(g.AdjustmentInterval)
}
