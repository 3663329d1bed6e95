// Package database handles all the lower level support for maintaining the
// blockchain in memory along with the set of unspent transaction outputs
// that results from replaying it.
package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/checoin/checoin/foundation/blockchain/genesis"
)

// ErrNotFound is returned when a block or transaction is not in the chain.
var ErrNotFound = errors.New("not found")

// Database manages the chain of blocks and the matching set of unspent
// outputs. Both are always replaced together.
type Database struct {
	mu sync.RWMutex

	genesis genesis.Genesis
	blocks  []Block
	utxos   UTXOSet
}

// New constructs a new database holding only the genesis block.
func New(g genesis.Genesis) (*Database, error) {
	gb := GenesisBlock()

	utxos, err := UTXOSet{}.Apply(gb.Data, gb.Index, g)
	if err != nil {
		return nil, fmt.Errorf("applying genesis block: %w", err)
	}

	db := Database{
		genesis: g,
		blocks:  []Block{gb},
		utxos:   utxos,
	}

	return &db, nil
}

// LatestBlock returns the last block in the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1].Copy()
}

// Height returns the number of blocks in the chain.
func (db *Database) Height() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// Blocks returns a copy of the full chain.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return copyBlocks(db.blocks)
}

// UTXOs returns the current set of unspent outputs. The set is immutable so
// the value can be handed out directly.
func (db *Database) UTXOs() UTXOSet {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos
}

// Snapshot returns the latest block, the unspent outputs and the difficulty
// expected for the next block as one consistent view.
func (db *Database) Snapshot() (Block, UTXOSet, uint64) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1].Copy(), db.utxos, NextDifficulty(db.blocks, db.genesis)
}

// Validate checks the block is the next block for the current chain and
// returns the set of unspent outputs it would produce.
func (db *Database) Validate(block Block, now int64, evHandler func(v string, args ...any)) (UTXOSet, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	args := ValidateArgs{
		PrevBlock:  db.blocks[len(db.blocks)-1],
		Difficulty: NextDifficulty(db.blocks, db.genesis),
		UTXOs:      db.utxos,
		Genesis:    db.genesis,
		Now:        now,
		EvHandler:  evHandler,
	}

	return block.ValidateBlock(args)
}

// Commit appends a validated block and installs the matching set of
// unspent outputs. The block must extend the current latest block.
func (db *Database) Commit(block Block, utxos UTXOSet) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	latest := db.blocks[len(db.blocks)-1]
	if block.Index != latest.Index+1 || block.PreviousHash != latest.Hash {
		return fmt.Errorf("%w: commit blk[%s] on top of blk[%s]", ErrLinkage, block, latest)
	}

	db.blocks = append(db.blocks, block.Copy())
	db.utxos = utxos

	return nil
}

// Replace swaps the full chain and the set of unspent outputs. The chain
// must be strictly longer than the current one.
func (db *Database) Replace(blocks []Block, utxos UTXOSet) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(blocks) <= len(db.blocks) {
		return fmt.Errorf("%w: got %d blocks, have %d", ErrChainTooShort, len(blocks), len(db.blocks))
	}

	db.blocks = copyBlocks(blocks)
	db.utxos = utxos

	return nil
}

// QueryBlockByHash returns the block with the specified hash.
func (db *Database) QueryBlockByHash(hash string) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, block := range db.blocks {
		if block.Hash == hash {
			return block.Copy(), nil
		}
	}

	return Block{}, fmt.Errorf("block %q: %w", hash, ErrNotFound)
}

// QueryTx returns the committed transaction with the specified id.
func (db *Database) QueryTx(id string) (Tx, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, block := range db.blocks {
		for _, tx := range block.Data {
			if tx.ID == id {
				return tx.Copy(), nil
			}
		}
	}

	return Tx{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
}

// =============================================================================

// ValidateChain validates a full chain starting from the genesis block and
// returns the set of unspent outputs produced by replaying it from empty.
func ValidateChain(blocks []Block, g genesis.Genesis, now time.Time, evHandler func(v string, args ...any)) (UTXOSet, error) {
	if len(blocks) == 0 {
		return UTXOSet{}, fmt.Errorf("%w: empty chain", ErrStructural)
	}

	gb := GenesisBlock()
	if !blocks[0].Equal(gb) || blocks[0].Index != gb.Index || blocks[0].Timestamp != gb.Timestamp {
		return UTXOSet{}, fmt.Errorf("%w: genesis block does not match, got %s", ErrLinkage, blocks[0])
	}

	utxos, err := UTXOSet{}.Apply(gb.Data, gb.Index, g)
	if err != nil {
		return UTXOSet{}, err
	}

	for i := 1; i < len(blocks); i++ {
		args := ValidateArgs{
			PrevBlock:  blocks[i-1],
			Difficulty: NextDifficulty(blocks[:i], g),
			UTXOs:      utxos,
			Genesis:    g,
			Now:        now.Unix(),
			EvHandler:  evHandler,
		}

		utxos, err = blocks[i].ValidateBlock(args)
		if err != nil {
			return UTXOSet{}, err
		}
	}

	return utxos, nil
}

// NextDifficulty returns the difficulty expected for the block following the
// specified chain. Every adjustment interval the time taken for the last
// window is compared with the expected window time.
func NextDifficulty(blocks []Block, g genesis.Genesis) uint64 {
	latest := blocks[len(blocks)-1]

	interval := g.AdjustmentInterval
	if interval == 0 || latest.Index == 0 || latest.Index%interval != 0 || uint64(len(blocks)) < interval {
		return latest.Difficulty
	}

	prevAdjustment := blocks[uint64(len(blocks))-interval]
	expected := g.AdjustmentWindow()
	taken := latest.Timestamp - prevAdjustment.Timestamp

	switch {
	case taken < expected/2:
		return prevAdjustment.Difficulty + 1
	case taken > expected*2:
		if prevAdjustment.Difficulty == 0 {
			return 0
		}
		return prevAdjustment.Difficulty - 1
	default:
		return prevAdjustment.Difficulty
	}
}

// copyBlocks returns a deep copy of the chain.
func copyBlocks(blocks []Block) []Block {
	cpy := make([]Block, len(blocks))
	for i, block := range blocks {
		cpy[i] = block.Copy()
	}
	return cpy
}
