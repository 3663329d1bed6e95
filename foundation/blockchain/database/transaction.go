package database

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/checoin/checoin/foundation/blockchain/genesis"
	"github.com/checoin/checoin/foundation/blockchain/signature"
	"github.com/checoin/checoin/foundation/validate"
)

// TxIn references a previously produced output and carries the signature
// that proves the right to spend it.
type TxIn struct {
	TxOutID    string `json:"txOutId" validate:"omitempty,len=64,hexstring"`
	TxOutIndex uint64 `json:"txOutIndex"`
	Signature  string `json:"signature" validate:"omitempty,hexstring"`
}

// OutPoint returns the output this input consumes.
func (in TxIn) OutPoint() OutPoint {
	return OutPoint{TxOutID: in.TxOutID, TxOutIndex: in.TxOutIndex}
}

// TxOut assigns an amount to an address.
type TxOut struct {
	Address string `json:"address" validate:"required,len=130,hexstring,startswith=04"`
	Amount  uint64 `json:"amount"`
}

// Tx is a value transfer between a set of outputs and a set of new outputs.
type Tx struct {
	ID     string  `json:"id" validate:"required,len=64,hexstring"`
	TxIns  []TxIn  `json:"txIns" validate:"required,min=1,dive"`
	TxOuts []TxOut `json:"txOuts" validate:"required,dive"`
}

// NewTx constructs an unsigned transaction and calculates its id.
func NewTx(txIns []TxIn, txOuts []TxOut) Tx {
	tx := Tx{
		TxIns:  txIns,
		TxOuts: txOuts,
	}
	tx.ID = CalculateTxID(tx)

	return tx
}

// NewCoinbaseTx constructs the reward transaction for the block at the
// specified index. The input carries the block index so the same reward
// can't be replayed at another height.
func NewCoinbaseTx(address string, blockIndex uint64, g genesis.Genesis) Tx {
	txIn := TxIn{
		TxOutIndex: blockIndex,
	}
	txOut := TxOut{
		Address: address,
		Amount:  g.CoinbaseAmount,
	}

	return NewTx([]TxIn{txIn}, []TxOut{txOut})
}

// CalculateTxID hashes the inputs and outputs of the transaction. The
// signatures are not part of the id since they sign it.
func CalculateTxID(tx Tx) string {
	var b strings.Builder
	for _, in := range tx.TxIns {
		b.WriteString(in.TxOutID)
		b.WriteString(strconv.FormatUint(in.TxOutIndex, 10))
	}
	for _, out := range tx.TxOuts {
		b.WriteString(out.Address)
		b.WriteString(strconv.FormatUint(out.Amount, 10))
	}

	return signature.Hash(b.String())
}

// Copy returns a deep copy of the transaction.
func (tx Tx) Copy() Tx {
	cpy := Tx{
		ID:     tx.ID,
		TxIns:  make([]TxIn, len(tx.TxIns)),
		TxOuts: make([]TxOut, len(tx.TxOuts)),
	}
	copy(cpy.TxIns, tx.TxIns)
	copy(cpy.TxOuts, tx.TxOuts)

	return cpy
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	if len(tx.ID) < 16 {
		return tx.ID
	}
	return tx.ID[:16]
}

// =============================================================================

// ValidateTxStructure checks the shape of the transaction before any
// cryptographic work is performed.
func ValidateTxStructure(tx Tx) error {
	for i, out := range tx.TxOuts {
		if !signature.IsAddress(out.Address) {
			return fmt.Errorf("%w: tx[%s]: output[%d]: %q", ErrInvalidAddress, tx, i, out.Address)
		}
	}

	if err := validate.Check(tx); err != nil {
		return fmt.Errorf("%w: tx[%s]: %w", ErrStructural, tx, err)
	}

	return nil
}

// ValidateTx checks a regular transaction against the set of unspent outputs.
func ValidateTx(tx Tx, utxos UTXOSet) error {
	if err := ValidateTxStructure(tx); err != nil {
		return err
	}

	if id := CalculateTxID(tx); id != tx.ID {
		return fmt.Errorf("%w: tx[%s]: calculated id %s", ErrHashMismatch, tx, id)
	}

	seen := make(map[OutPoint]struct{}, len(tx.TxIns))
	var totalIn uint64
	for i, in := range tx.TxIns {
		op := in.OutPoint()
		if _, exists := seen[op]; exists {
			return fmt.Errorf("%w: tx[%s]: input[%d] references %s twice", ErrDuplicateSpend, tx, i, op)
		}
		seen[op] = struct{}{}

		utxo, exists := utxos.Find(op)
		if !exists {
			return fmt.Errorf("%w: tx[%s]: input[%d]: %s", ErrMissingReference, tx, i, op)
		}

		if err := signature.Verify(tx.ID, in.Signature, utxo.Address); err != nil {
			return fmt.Errorf("%w: tx[%s]: input[%d]: %w", ErrInvalidSignature, tx, i, err)
		}

		var carry uint64
		totalIn, carry = bits.Add64(totalIn, utxo.Amount, 0)
		if carry != 0 {
			return fmt.Errorf("%w: tx[%s]: input amounts overflow", ErrConservation, tx)
		}
	}

	totalOut, err := sumOutputs(tx)
	if err != nil {
		return err
	}

	if totalIn != totalOut {
		return fmt.Errorf("%w: tx[%s]: inputs %d, outputs %d", ErrConservation, tx, totalIn, totalOut)
	}

	return nil
}

// ValidateCoinbaseTx checks the reward transaction of the block at the
// specified index.
func ValidateCoinbaseTx(tx Tx, blockIndex uint64, g genesis.Genesis) error {
	if err := ValidateTxStructure(tx); err != nil {
		return err
	}

	if id := CalculateTxID(tx); id != tx.ID {
		return fmt.Errorf("%w: coinbase[%s]: calculated id %s", ErrHashMismatch, tx, id)
	}

	if len(tx.TxIns) != 1 {
		return fmt.Errorf("%w: coinbase[%s]: must have one input, got %d", ErrStructural, tx, len(tx.TxIns))
	}

	if in := tx.TxIns[0]; in.TxOutID != "" || in.Signature != "" {
		return fmt.Errorf("%w: coinbase[%s]: input must not reference an output", ErrStructural, tx)
	}

	if tx.TxIns[0].TxOutIndex != blockIndex {
		return fmt.Errorf("%w: coinbase[%s]: input index %d must equal block index %d", ErrStructural, tx, tx.TxIns[0].TxOutIndex, blockIndex)
	}

	if len(tx.TxOuts) != 1 {
		return fmt.Errorf("%w: coinbase[%s]: must have one output, got %d", ErrStructural, tx, len(tx.TxOuts))
	}

	if tx.TxOuts[0].Amount != g.CoinbaseAmount {
		return fmt.Errorf("%w: coinbase[%s]: amount %d, exp %d", ErrConservation, tx, tx.TxOuts[0].Amount, g.CoinbaseAmount)
	}

	return nil
}

// =============================================================================

// sumOutputs adds up the output amounts checking for overflow.
func sumOutputs(tx Tx) (uint64, error) {
	var total uint64
	for _, out := range tx.TxOuts {
		var carry uint64
		total, carry = bits.Add64(total, out.Amount, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: tx[%s]: output amounts overflow", ErrConservation, tx)
		}
	}

	return total, nil
}
