// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"fmt"
	"sync"

	"github.com/checoin/checoin/foundation/blockchain/database"
)

// Mempool represents a cache of transactions waiting to be minted, kept in
// arrival order with a second key on every output the transactions spend.
type Mempool struct {
	mu    sync.RWMutex
	pool  []database.Tx
	spent map[database.OutPoint]string
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{
		spent: make(map[database.OutPoint]string),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Submit validates the transaction against the set of unspent outputs and
// the transactions already in the pool. The first transaction to spend an
// output wins and later transactions spending it are rejected.
func (mp *Mempool) Submit(tx database.Tx, utxos database.UTXOSet) error {
	if err := database.ValidateTx(tx, utxos); err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, in := range tx.TxIns {
		if id, exists := mp.spent[in.OutPoint()]; exists {
			return fmt.Errorf("%w: tx[%s]: output %s already spent by pool tx[%.16s]", database.ErrDuplicateSpend, tx, in.OutPoint(), id)
		}
	}

	tx = tx.Copy()
	mp.pool = append(mp.pool, tx)
	for _, in := range tx.TxIns {
		mp.spent[in.OutPoint()] = tx.ID
	}

	return nil
}

// Reconcile removes every transaction spending an output that is no longer
// in the set. The removed transactions are returned.
func (mp *Mempool) Reconcile(utxos database.UTXOSet) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var kept []database.Tx
	var removed []database.Tx

next:
	for _, tx := range mp.pool {
		for _, in := range tx.TxIns {
			if _, exists := utxos.Find(in.OutPoint()); !exists {
				removed = append(removed, tx)
				for _, in := range tx.TxIns {
					delete(mp.spent, in.OutPoint())
				}
				continue next
			}
		}
		kept = append(kept, tx)
	}

	mp.pool = kept

	return removed
}

// Snapshot returns a copy of the transactions in arrival order.
func (mp *Mempool) Snapshot() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.Tx, len(mp.pool))
	for i, tx := range mp.pool {
		txs[i] = tx.Copy()
	}

	return txs
}

// SpentOutPoints returns the set of outputs referenced by the transactions
// in the pool.
func (mp *Mempool) SpentOutPoints() map[database.OutPoint]struct{} {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	ops := make(map[database.OutPoint]struct{}, len(mp.spent))
	for op := range mp.spent {
		ops[op] = struct{}{}
	}

	return ops
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.spent = make(map[database.OutPoint]string)
}
