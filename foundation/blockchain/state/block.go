package state

import (
	"encoding/json"
	"fmt"

	"github.com/checoin/checoin/foundation/blockchain/database"
)

// ProcessProposedBlock takes a block minted by this node or received from a
// peer, validates it and if that passes, appends the block to the chain.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%.16s]: newBlk[%s]: numTrans[%d]", block.PreviousHash, block, len(block.Data))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: ProcessProposedBlock: validate block")

	utxos, err := s.db.Validate(block, s.clock().Unix(), s.evHandler)
	if err != nil {
		s.metrics.BlockRejected("block")
		return err
	}

	s.evHandler("state: ProcessProposedBlock: commit block")

	if err := s.db.Commit(block, utxos); err != nil {
		s.metrics.BlockRejected("block")
		return err
	}

	s.metrics.BlockAccepted()
	s.updateLocalState(utxos)

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}

// ReplaceChain takes a full chain received from a peer and replaces the
// current chain if the new chain is valid and longer.
func (s *State) ReplaceChain(blocks []database.Block) error {
	s.evHandler("state: ReplaceChain: started: blocks[%d]", len(blocks))
	defer s.evHandler("state: ReplaceChain: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	if height := s.db.Height(); len(blocks) <= height {
		s.metrics.BlockRejected("chain")
		return fmt.Errorf("%w: got %d blocks, have %d", database.ErrChainTooShort, len(blocks), height)
	}

	s.evHandler("state: ReplaceChain: validate chain")

	utxos, err := database.ValidateChain(blocks, s.genesis, s.clock(), s.evHandler)
	if err != nil {
		s.metrics.BlockRejected("chain")
		return err
	}

	s.evHandler("state: ReplaceChain: replace chain")

	if err := s.db.Replace(blocks, utxos); err != nil {
		s.metrics.BlockRejected("chain")
		return err
	}

	s.metrics.ChainReplaced()
	s.updateLocalState(utxos)

	s.blockEvent(blocks[len(blocks)-1])

	return nil
}

// =============================================================================

// updateLocalState runs after the chain changed. The caller must hold the
// write lock so no transaction is admitted against the old set of outputs.
func (s *State) updateLocalState(utxos database.UTXOSet) {
	s.evHandler("state: updateLocalState: reconcile mempool")

	for _, tx := range s.mempool.Reconcile(utxos) {
		s.evHandler("state: updateLocalState: tx[%s] removed from mempool", tx)
	}

	latest, _, difficulty := s.db.Snapshot()
	s.metrics.Chain(int(latest.Index)+1, difficulty)
	s.metrics.Mempool(s.mempool.Count())

	// If a minting operation is running it is building on a block that is
	// no longer the latest.
	s.Worker.SignalCancelMinting()

	s.NetBroadcastLatestBlock()
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: %s`, string(blockJSON))
}
