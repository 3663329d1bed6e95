package database

import (
	"fmt"

	"github.com/checoin/checoin/foundation/blockchain/genesis"
)

// OutPoint identifies a single output of a transaction.
type OutPoint struct {
	TxOutID    string `json:"txOutId"`
	TxOutIndex uint64 `json:"txOutIndex"`
}

// String implements the fmt.Stringer interface for logging.
func (op OutPoint) String() string {
	id := op.TxOutID
	if len(id) > 16 {
		id = id[:16]
	}
	return fmt.Sprintf("%s:%d", id, op.TxOutIndex)
}

// UnspentTxOut is an output that has not been consumed by any input.
type UnspentTxOut struct {
	TxOutID    string `json:"txOutId"`
	TxOutIndex uint64 `json:"txOutIndex"`
	Address    string `json:"address"`
	Amount     uint64 `json:"amount"`
}

// OutPoint returns the key of the unspent output.
func (u UnspentTxOut) OutPoint() OutPoint {
	return OutPoint{TxOutID: u.TxOutID, TxOutIndex: u.TxOutIndex}
}

// =============================================================================

// UTXOSet is the ordered set of spendable outputs. A set is never modified
// in place. Apply returns a new set, which lets the chain swap sets
// atomically and hand out values without copying on every read.
type UTXOSet struct {
	outs  []UnspentTxOut
	index map[OutPoint]int
}

// NewUTXOSet constructs a set from the list of outputs keeping their order.
// Outputs with a key already in the set are rejected.
func NewUTXOSet(outs []UnspentTxOut) (UTXOSet, error) {
	set := UTXOSet{
		outs:  make([]UnspentTxOut, 0, len(outs)),
		index: make(map[OutPoint]int, len(outs)),
	}

	for _, out := range outs {
		op := out.OutPoint()
		if _, exists := set.index[op]; exists {
			return UTXOSet{}, fmt.Errorf("%w: %s", ErrDuplicateSpend, op)
		}
		set.index[op] = len(set.outs)
		set.outs = append(set.outs, out)
	}

	return set, nil
}

// Len returns the number of unspent outputs.
func (s UTXOSet) Len() int {
	return len(s.outs)
}

// Find returns the unspent output for the specified key.
func (s UTXOSet) Find(op OutPoint) (UnspentTxOut, bool) {
	i, exists := s.index[op]
	if !exists {
		return UnspentTxOut{}, false
	}
	return s.outs[i], true
}

// Values returns a copy of the unspent outputs in set order.
func (s UTXOSet) Values() []UnspentTxOut {
	outs := make([]UnspentTxOut, len(s.outs))
	copy(outs, s.outs)
	return outs
}

// ForAddress returns the unspent outputs owned by the address in set order.
func (s UTXOSet) ForAddress(address string) []UnspentTxOut {
	var outs []UnspentTxOut
	for _, out := range s.outs {
		if out.Address == address {
			outs = append(outs, out)
		}
	}
	return outs
}

// Balance sums the amounts of all the outputs owned by the address.
func (s UTXOSet) Balance(address string) uint64 {
	var balance uint64
	for _, out := range s.outs {
		if out.Address == address {
			balance += out.Amount
		}
	}
	return balance
}

// Total sums the amounts of every output in the set.
func (s UTXOSet) Total() uint64 {
	var total uint64
	for _, out := range s.outs {
		total += out.Amount
	}
	return total
}

// Without returns a new set excluding the specified outputs.
func (s UTXOSet) Without(ops map[OutPoint]struct{}) UTXOSet {
	set := UTXOSet{
		outs:  make([]UnspentTxOut, 0, len(s.outs)),
		index: make(map[OutPoint]int, len(s.outs)),
	}

	for _, out := range s.outs {
		op := out.OutPoint()
		if _, exists := ops[op]; exists {
			continue
		}
		set.index[op] = len(set.outs)
		set.outs = append(set.outs, out)
	}

	return set
}

// FindSpendable selects outputs owned by the address, in set order, until
// their sum covers the amount. The amount left over is returned as change.
func (s UTXOSet) FindSpendable(address string, amount uint64) ([]UnspentTxOut, uint64, error) {
	var selected []UnspentTxOut
	var total uint64

	for _, out := range s.outs {
		if out.Address != address {
			continue
		}

		selected = append(selected, out)
		total += out.Amount
		if total >= amount {
			return selected, total - amount, nil
		}
	}

	return nil, 0, fmt.Errorf("%w: address holds %d, needs %d", ErrInsufficientFunds, total, amount)
}

// Apply validates the transactions of the block at the specified index and
// returns the set that results from replaying them. The receiver is left
// untouched when any transaction is invalid.
func (s UTXOSet) Apply(txs []Tx, blockIndex uint64, g genesis.Genesis) (UTXOSet, error) {
	if err := validateBlockTxs(txs, s, blockIndex, g); err != nil {
		return UTXOSet{}, err
	}

	// The coinbase input only carries the block index.
	consumed := make(map[OutPoint]struct{})
	for _, tx := range txs[1:] {
		for _, in := range tx.TxIns {
			consumed[in.OutPoint()] = struct{}{}
		}
	}

	set := s.Without(consumed)
	for _, tx := range txs {
		for i, out := range tx.TxOuts {
			utxo := UnspentTxOut{
				TxOutID:    tx.ID,
				TxOutIndex: uint64(i),
				Address:    out.Address,
				Amount:     out.Amount,
			}

			op := utxo.OutPoint()
			if _, exists := set.index[op]; exists {
				return UTXOSet{}, fmt.Errorf("%w: output %s already exists", ErrDuplicateSpend, op)
			}
			set.index[op] = len(set.outs)
			set.outs = append(set.outs, utxo)
		}
	}

	return set, nil
}

// =============================================================================

// validateBlockTxs checks the full set of transactions for a block. The
// first transaction is the coinbase and consumes nothing. No output may be
// consumed twice within the block and every other transaction is checked
// against the set as it was before the block.
func validateBlockTxs(txs []Tx, utxos UTXOSet, blockIndex uint64, g genesis.Genesis) error {
	if len(txs) == 0 {
		return fmt.Errorf("%w: block %d has no coinbase transaction", ErrStructural, blockIndex)
	}

	if err := ValidateCoinbaseTx(txs[0], blockIndex, g); err != nil {
		return err
	}

	seen := make(map[OutPoint]struct{})
	for _, tx := range txs[1:] {
		for _, in := range tx.TxIns {
			op := in.OutPoint()
			if _, exists := seen[op]; exists {
				return fmt.Errorf("%w: block %d: %s", ErrDuplicateSpend, blockIndex, op)
			}
			seen[op] = struct{}{}
		}
	}

	for _, tx := range txs[1:] {
		if err := ValidateTx(tx, utxos); err != nil {
			return err
		}
	}

	return nil
}
