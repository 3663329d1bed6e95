package worker

import (
	"context"
	"slices"
	"time"
)

// connectTimeout bounds the time spent opening a connection to a peer.
const connectTimeout = 5 * time.Second

// maxPeerFailures is the number of connection attempts in a row a known
// peer may fail before it is dropped from the known peer list.
const maxPeerFailures = 3

// peerOperations handles reconnecting to known peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// Sync opens a connection to the known peers. Once connected, the peers
// exchange their latest block and mempool.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	w.runPeersOperation()
}

// runPeersOperation connects to every known peer with no open connection.
// It only runs from Sync before the operational G's start and from the
// peerOperations G, so the failure counts need no lock.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	connected := w.state.RetrieveConnectedPeers()

	for _, peer := range w.state.RetrieveKnownPeers() {
		if slices.Contains(connected, peer.Host) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err := w.state.AddPeer(ctx, peer.Host)
		cancel()

		if err != nil {
			w.evHandler("worker: runPeersOperation: connect: %s: ERROR: %s", peer.Host, err)

			w.peerFailures[peer.Host]++
			if w.peerFailures[peer.Host] >= maxPeerFailures {
				w.evHandler("worker: runPeersOperation: remove peer-node %s: failures[%d]", peer.Host, w.peerFailures[peer.Host])
				w.state.RemoveKnownPeer(peer)
				delete(w.peerFailures, peer.Host)
			}
			continue
		}

		delete(w.peerFailures, peer.Host)
		w.evHandler("worker: runPeersOperation: connect: %s: connected", peer.Host)
	}
}
