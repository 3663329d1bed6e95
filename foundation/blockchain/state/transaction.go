package state

import (
	"github.com/checoin/checoin/foundation/blockchain/database"
)

// SendTransaction builds a payment from the wallet of this node and adds it
// to the mempool. The transaction is shared with the peers.
func (s *State) SendTransaction(receiver string, amount uint64) (database.Tx, error) {
	s.evHandler("state: SendTransaction: started: to[%.16s]: amount[%d]", receiver, amount)
	defer s.evHandler("state: SendTransaction: completed")

	tx, err := s.submit(func(utxos database.UTXOSet) (database.Tx, error) {
		return s.wallet.CreateTransaction(receiver, amount, utxos, s.mempool.SpentOutPoints())
	})
	if err != nil {
		return database.Tx{}, err
	}

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMinting()

	return tx, nil
}

// SubmitTransaction accepts a transaction built outside of this node for
// inclusion in the mempool.
func (s *State) SubmitTransaction(tx database.Tx) error {
	s.evHandler("state: SubmitTransaction: started: tx[%s]", tx)
	defer s.evHandler("state: SubmitTransaction: completed")

	_, err := s.submit(func(database.UTXOSet) (database.Tx, error) {
		return tx, nil
	})
	if err != nil {
		return err
	}

	s.Worker.SignalStartMinting()

	return nil
}

// SubmitWalletTransaction accepts a transaction signed by a wallet outside of
// this node and shares it with the peers.
func (s *State) SubmitWalletTransaction(tx database.Tx) error {
	if err := s.SubmitTransaction(tx); err != nil {
		return err
	}

	s.Worker.SignalShareTx(tx)

	return nil
}

// =============================================================================

// submit adds the transaction produced by the build function to the mempool.
// The read lock keeps a block from being committed between validating the
// transaction and adding it to the mempool.
func (s *State) submit(build func(utxos database.UTXOSet) (database.Tx, error)) (database.Tx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	utxos := s.db.UTXOs()

	tx, err := build(utxos)
	if err != nil {
		s.metrics.TxRejected()
		return database.Tx{}, err
	}

	if err := s.mempool.Submit(tx, utxos); err != nil {
		s.metrics.TxRejected()
		return database.Tx{}, err
	}

	s.metrics.Mempool(s.mempool.Count())
	s.evHandler("state: submit: tx[%s] added to mempool", tx)

	return tx, nil
}
