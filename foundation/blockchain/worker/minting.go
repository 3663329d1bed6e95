package worker

import (
	"context"
	"sync"
	"time"
)

// mintingOperations handles minting.
func (w *Worker) mintingOperations() {
	w.evHandler("worker: mintingOperations: G started")
	defer w.evHandler("worker: mintingOperations: G completed")

	for {
		select {
		case <-w.startMinting:
			if !w.isShutdown() {
				w.runMintingOperation()
			}
		case <-w.shut:
			w.evHandler("worker: mintingOperations: received shut signal")
			return
		}
	}
}

// runMintingOperation takes all the transactions from the mempool and tries
// to mint the next block until it succeeds or another block is accepted.
func (w *Worker) runMintingOperation() {
	w.evHandler("worker: runMintingOperation: MINTING: started")
	defer w.evHandler("worker: runMintingOperation: MINTING: completed")

	// A node minting on its own always starts the next attempt, on top of
	// whatever block is the latest now.
	defer func() {
		if !w.isShutdown() {
			w.SignalStartMinting()
		}
	}()

	// Drain the cancel minting channel before starting.
	select {
	case <-w.cancelMinting:
		w.evHandler("worker: runMintingOperation: MINTING: drained cancel channel")
	default:
	}

	// Create a context so minting can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the minting operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMinting:
			w.evHandler("worker: runMintingOperation: MINTING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runMintingOperation: MINTING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	// This G is performing the minting.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.state.MintNextBlock(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runMintingOperation: MINTING: minting duration[%v]", duration)

		if err != nil {
			switch {
			case ctx.Err() != nil:
				w.evHandler("worker: runMintingOperation: MINTING: CANCEL: complete")
			default:
				w.evHandler("worker: runMintingOperation: MINTING: ERROR: %s", err)
			}
			return
		}

		w.evHandler("worker: runMintingOperation: MINTING: SOLVED: blk[%s]: txs[%d]", block, len(block.Data))
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}
