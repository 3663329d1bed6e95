package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/peer"
)

// AddPeer adds the host to the known peers and opens a connection to it.
func (s *State) AddPeer(ctx context.Context, host string) error {
	pr := peer.New(host)
	if pr.Match(s.host) {
		return fmt.Errorf("peer %q is this node", host)
	}

	if s.knownPeers.Add(pr) {
		s.evHandler("state: AddPeer: add peer-node %s", pr.Host)
	}

	return s.Gossip.Connect(ctx, pr.Host)
}

// RemoveKnownPeer removes the peer from the known peer list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}

// HandleMessage processes a message received from a peer. The returned
// messages are sent back to that peer only.
func (s *State) HandleMessage(msg peer.Message) ([]peer.Message, error) {
	s.evHandler("state: HandleMessage: started: type[%s]", msg.Type)
	defer s.evHandler("state: HandleMessage: completed: type[%s]", msg.Type)

	s.metrics.MessageReceived(msg.Type.String())

	switch msg.Type {
	case peer.QueryLatest:
		resp, err := peer.NewBlocksResponse([]database.Block{s.db.LatestBlock()})
		if err != nil {
			return nil, err
		}
		return []peer.Message{resp}, nil

	case peer.QueryAll:
		resp, err := peer.NewBlocksResponse(s.db.Blocks())
		if err != nil {
			return nil, err
		}
		return []peer.Message{resp}, nil

	case peer.QueryTransactionPool:
		resp, err := peer.NewTxsResponse(s.mempool.Snapshot())
		if err != nil {
			return nil, err
		}
		return []peer.Message{resp}, nil

	case peer.ResponseBlockchain:
		blocks, err := msg.Blocks()
		if err != nil {
			return nil, err
		}
		return s.handleBlockchainResponse(blocks)

	case peer.ResponseTransactionPool:
		txs, err := msg.Txs()
		if err != nil {
			return nil, err
		}
		s.handleTransactionPoolResponse(txs)
		return nil, nil
	}

	return nil, fmt.Errorf("%w: unknown message type %d", database.ErrStructural, int(msg.Type))
}

// NetBroadcastLatestBlock sends the latest block to every connected peer.
func (s *State) NetBroadcastLatestBlock() {
	msg, err := peer.NewBlocksResponse([]database.Block{s.db.LatestBlock()})
	if err != nil {
		s.evHandler("state: NetBroadcastLatestBlock: ERROR: %s", err)
		return
	}

	s.Gossip.Broadcast(msg)
}

// NetBroadcastTransactionPool sends the mempool to every connected peer.
func (s *State) NetBroadcastTransactionPool() {
	msg, err := peer.NewTxsResponse(s.mempool.Snapshot())
	if err != nil {
		s.evHandler("state: NetBroadcastTransactionPool: ERROR: %s", err)
		return
	}

	s.Gossip.Broadcast(msg)
}

// =============================================================================

// handleBlockchainResponse decides what to do with blocks sent by a peer.
// A block that extends our chain is appended, a single block that is too far
// ahead triggers a request for the full chain and a longer chain replaces
// ours.
func (s *State) handleBlockchainResponse(blocks []database.Block) ([]peer.Message, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: received an empty chain", database.ErrStructural)
	}

	received := blocks[len(blocks)-1]
	held := s.db.LatestBlock()

	if received.Index <= held.Index {
		s.evHandler("state: handleBlockchainResponse: received blk[%s] is not longer than blk[%s]: do nothing", received, held)
		return nil, nil
	}

	s.evHandler("state: handleBlockchainResponse: blockchain possibly behind: we have blk[%s], peer has blk[%s]", held, received)

	switch {
	case held.Hash == received.PreviousHash:
		s.evHandler("state: handleBlockchainResponse: append received block")
		if err := s.ProcessProposedBlock(received); err != nil {
			return nil, err
		}
		return nil, nil

	case len(blocks) == 1:
		s.evHandler("state: handleBlockchainResponse: query the chain from the peer")
		return []peer.Message{peer.NewQuery(peer.QueryAll)}, nil

	default:
		s.evHandler("state: handleBlockchainResponse: replace the chain")
		if err := s.ReplaceChain(blocks); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

// handleTransactionPoolResponse submits the transactions sent by a peer. The
// mempool is shared again when any of them was new.
func (s *State) handleTransactionPoolResponse(txs []database.Tx) {
	var added int
	for _, tx := range txs {
		err := s.SubmitTransaction(tx)
		switch {
		case err == nil:
			added++
		case errors.Is(err, database.ErrDuplicateSpend):
			s.evHandler("state: handleTransactionPoolResponse: tx[%s]: already known", tx)
		default:
			s.evHandler("state: handleTransactionPoolResponse: tx[%s]: WARNING: %s", tx, err)
		}
	}

	if added > 0 {
		s.NetBroadcastTransactionPool()
	}
}
