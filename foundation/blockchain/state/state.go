// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/genesis"
	"github.com/checoin/checoin/foundation/blockchain/mempool"
	"github.com/checoin/checoin/foundation/blockchain/metrics"
	"github.com/checoin/checoin/foundation/blockchain/peer"
	"github.com/checoin/checoin/foundation/blockchain/wallet"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for minting and transaction sharing.
type Worker interface {
	Shutdown()
	SignalStartMinting()
	SignalCancelMinting()
	SignalShareTx(tx database.Tx)
}

// Gossip interface represents the behavior required to be implemented by any
// package providing the transport of messages between nodes.
type Gossip interface {
	Broadcast(msg peer.Message)
	Connect(ctx context.Context, host string) error
	Peers() []string
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Wallet     *wallet.Wallet
	Host       string
	Genesis    genesis.Genesis
	KnownPeers *peer.PeerSet
	Metrics    *metrics.Metrics
	Clock      func() time.Time
	EvHandler  EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.RWMutex

	wallet    *wallet.Wallet
	host      string
	evHandler EventHandler
	clock     func() time.Time

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	db         *database.Database
	metrics    *metrics.Metrics

	Worker Worker
	Gossip Gossip
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {
	if cfg.Wallet == nil {
		return nil, errors.New("a wallet is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	mtrcs := cfg.Metrics
	if mtrcs == nil {
		mtrcs = metrics.New()
	}

	// Start the chain with the genesis block.
	db, err := database.New(cfg.Genesis)
	if err != nil {
		return nil, err
	}

	state := State{
		wallet:    cfg.Wallet,
		host:      cfg.Host,
		evHandler: ev,
		clock:     clock,

		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		mempool:    mempool.New(),
		db:         db,
		metrics:    mtrcs,

		Worker: nopWorker{},
		Gossip: nopGossip{},
	}

	mtrcs.Chain(db.Height(), 0)

	// The Worker and Gossip start as no-ops. The call to worker.Run will
	// assign itself and the node assigns the gossip transport once it is
	// constructed.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return nil
}

// =============================================================================

type nopWorker struct{}

func (nopWorker) Shutdown()                    {}
func (nopWorker) SignalStartMinting()          {}
func (nopWorker) SignalCancelMinting()         {}
func (nopWorker) SignalShareTx(tx database.Tx) {}

type nopGossip struct{}

func (nopGossip) Broadcast(msg peer.Message) {}
func (nopGossip) Peers() []string            { return nil }
func (nopGossip) Connect(ctx context.Context, host string) error {
	return errors.New("no gossip transport configured")
}
