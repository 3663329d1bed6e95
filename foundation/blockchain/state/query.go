package state

import (
	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/genesis"
	"github.com/checoin/checoin/foundation/blockchain/peer"
)

// QueryBlocks returns a copy of the full chain.
func (s *State) QueryBlocks() []database.Block {
	return s.db.Blocks()
}

// QueryLatestBlock returns a copy the current latest block.
func (s *State) QueryLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// QueryBlockByHash returns the block with the specified hash.
func (s *State) QueryBlockByHash(hash string) (database.Block, error) {
	return s.db.QueryBlockByHash(hash)
}

// QueryTx returns the committed transaction with the specified id.
func (s *State) QueryTx(id string) (database.Tx, error) {
	return s.db.QueryTx(id)
}

// QueryUTXOs returns every unspent output.
func (s *State) QueryUTXOs() []database.UnspentTxOut {
	return s.db.UTXOs().Values()
}

// QueryUTXOsByAddress returns the unspent outputs owned by the address.
func (s *State) QueryUTXOsByAddress(address string) []database.UnspentTxOut {
	return s.db.UTXOs().ForAddress(address)
}

// QueryMyUTXOs returns the unspent outputs owned by the wallet of this node.
func (s *State) QueryMyUTXOs() []database.UnspentTxOut {
	return s.QueryUTXOsByAddress(s.wallet.Address())
}

// QueryBalance returns the balance of the address.
func (s *State) QueryBalance(address string) uint64 {
	return s.db.UTXOs().Balance(address)
}

// QueryMyBalance returns the balance of the wallet of this node.
func (s *State) QueryMyBalance() uint64 {
	return s.QueryBalance(s.wallet.Address())
}

// QueryMempool returns a copy of the mempool.
func (s *State) QueryMempool() []database.Tx {
	return s.mempool.Snapshot()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryDifficulty returns the difficulty expected for the next block.
func (s *State) QueryDifficulty() uint64 {
	_, _, difficulty := s.db.Snapshot()
	return difficulty
}

// QueryStatus returns the status of this node for its peers.
func (s *State) QueryStatus() peer.PeerStatus {
	latest := s.db.LatestBlock()

	return peer.PeerStatus{
		LatestBlockHash:  latest.Hash,
		LatestBlockIndex: latest.Index,
		KnownPeers:       s.RetrieveKnownPeers(),
	}
}

// =============================================================================

// RetrieveAddress returns the address of the wallet of this node.
func (s *State) RetrieveAddress() string {
	return s.wallet.Address()
}

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveConnectedPeers returns the address of every peer with an open
// connection.
func (s *State) RetrieveConnectedPeers() []string {
	return s.Gossip.Peers()
}
