// Package worker implements minting, peer updates, and transaction sharing for
// the blockchain.
package worker

import (
	"sync"
	"time"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/state"
)

// peerUpdateInterval represents the interval of reconnecting to known peers
// that have no open connection.
const peerUpdateInterval = time.Minute

// =============================================================================

// Config represents the settings of the background processes.
type Config struct {
	AutoMint     bool
	PeerInterval time.Duration
	EvHandler    state.EventHandler
}

// Worker manages the POS workflows for the blockchain.
type Worker struct {
	state         *state.State
	autoMint      bool
	wg            sync.WaitGroup
	ticker        *time.Ticker
	shut          chan struct{}
	startMinting  chan bool
	cancelMinting chan bool
	txSharing     chan database.Tx
	evHandler     state.EventHandler
	peerFailures  map[string]int
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config) {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	interval := cfg.PeerInterval
	if interval <= 0 {
		interval = peerUpdateInterval
	}

	w := Worker{
		state:         st,
		autoMint:      cfg.AutoMint,
		ticker:        time.NewTicker(interval),
		shut:          make(chan struct{}),
		startMinting:  make(chan bool, 1),
		cancelMinting: make(chan bool, 1),
		txSharing:     make(chan database.Tx, maxTxShareRequests),
		evHandler:     ev,
		peerFailures:  make(map[string]int),
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Connect this node to the known peers before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.mintingOperations,
		w.shareTxOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	// Start minting right away when the node mints on its own.
	w.SignalStartMinting()
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: signal cancel minting")
	w.SignalCancelMinting()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMinting starts a minting operation. If there is already a signal
// pending in the channel, just return since a minting operation will start.
func (w *Worker) SignalStartMinting() {
	if !w.autoMint {
		return
	}

	select {
	case w.startMinting <- true:
	default:
	}
	w.evHandler("worker: SignalStartMinting: minting signaled")
}

// SignalCancelMinting signals the G executing the runMintingOperation
// function to stop immediately.
func (w *Worker) SignalCancelMinting() {
	select {
	case w.cancelMinting <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMinting: MINTING: CANCEL: signaled")
}

// SignalShareTx signals a share transaction operation. If
// maxTxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
