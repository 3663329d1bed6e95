package state

import (
	"context"

	"github.com/checoin/checoin/foundation/blockchain/database"
)

// MintNextBlock attempts to mint a block holding the coinbase for this node
// and every transaction in the mempool.
func (s *State) MintNextBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MintNextBlock: MINTING: started")
	defer s.evHandler("state: MintNextBlock: MINTING: completed")

	latest := s.db.LatestBlock()
	coinbase := database.NewCoinbaseTx(s.wallet.Address(), latest.Index+1, s.genesis)

	data := []database.Tx{coinbase}
	data = append(data, s.mempool.Snapshot()...)

	return s.MintRawBlock(ctx, data)
}

// MintTransaction attempts to mint a block holding the coinbase for this
// node and a single payment from this node to the receiver.
func (s *State) MintTransaction(ctx context.Context, receiver string, amount uint64) (database.Block, error) {
	s.evHandler("state: MintTransaction: MINTING: started: to[%.16s]: amount[%d]", receiver, amount)
	defer s.evHandler("state: MintTransaction: MINTING: completed")

	s.mu.RLock()
	latest, utxos, _ := s.db.Snapshot()
	tx, err := s.wallet.CreateTransaction(receiver, amount, utxos, s.mempool.SpentOutPoints())
	s.mu.RUnlock()

	if err != nil {
		return database.Block{}, err
	}

	coinbase := database.NewCoinbaseTx(s.wallet.Address(), latest.Index+1, s.genesis)

	return s.MintRawBlock(ctx, []database.Tx{coinbase, tx})
}

// MintRawBlock attempts to mint a block holding exactly the specified
// transactions, coinbase included. The search for a valid timestamp can be
// cancelled through the context.
func (s *State) MintRawBlock(ctx context.Context, data []database.Tx) (database.Block, error) {
	latest, utxos, difficulty := s.db.Snapshot()

	s.evHandler("state: MintRawBlock: MINTING: perform POS: prevBlk[%s]: difficulty[%d]", latest, difficulty)

	block, err := database.POS(ctx, database.POSArgs{
		MinterAddress: s.wallet.Address(),
		MinterBalance: utxos.Balance(s.wallet.Address()),
		Difficulty:    difficulty,
		PrevBlock:     latest,
		Data:          data,
		Genesis:       s.genesis,
		Clock:         s.clock,
		EvHandler:     s.evHandler,
	})
	if err != nil {
		s.metrics.MintAttempt("cancelled")
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		s.metrics.MintAttempt("cancelled")
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MintRawBlock: MINTING: validate and update database")

	if err := s.ProcessProposedBlock(block); err != nil {
		s.metrics.MintAttempt("rejected")
		return database.Block{}, err
	}

	s.metrics.MintAttempt("solved")

	return block, nil
}
