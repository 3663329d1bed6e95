// Package wallet maintains the private key of the node and builds signed
// payment transactions from the outputs the key controls.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds a private key. The key never leaves the wallet, callers can
// only ask for the address or for a signature.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// New constructs a wallet for the specified private key.
func New(privateKey *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: privateKey,
		address:    signature.PublicKeyToAddress(privateKey.PublicKey),
	}
}

// Generate constructs a wallet with a new random private key.
func Generate() (*Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	return New(privateKey), nil
}

// Load reads the private key from the specified key file.
func Load(path string) (*Wallet, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("loading key file %q: %w", path, err)
	}

	return New(privateKey), nil
}

// Init loads the private key from the key file, creating a new key file
// first when none exists.
func Init(path string) (*Wallet, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return Load(path)

	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("checking key file %q: %w", path, err)
	}

	w, err := Generate()
	if err != nil {
		return nil, err
	}

	if err := w.Save(path); err != nil {
		return nil, err
	}

	return w, nil
}

// Save writes the private key to the specified key file.
func (w *Wallet) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating key folder: %w", err)
		}
	}

	if err := crypto.SaveECDSA(path, w.privateKey); err != nil {
		return fmt.Errorf("saving key file %q: %w", path, err)
	}

	return nil
}

// Address returns the address for the wallet.
func (w *Wallet) Address() string {
	return w.address
}

// Sign signs the transaction id with the private key of the wallet.
func (w *Wallet) Sign(txID string) (string, error) {
	return signature.Sign(txID, w.privateKey)
}

// CreateTransaction builds and signs a payment of the amount to the
// receiver. Outputs already spent by pending transactions are not used.
// The amount left over is paid back to the wallet.
func (w *Wallet) CreateTransaction(receiver string, amount uint64, utxos database.UTXOSet, pending map[database.OutPoint]struct{}) (database.Tx, error) {
	receiver = strings.ToLower(receiver)
	if !signature.IsAddress(receiver) {
		return database.Tx{}, fmt.Errorf("%w: %q", database.ErrInvalidAddress, receiver)
	}

	if amount == 0 {
		return database.Tx{}, fmt.Errorf("%w: amount must be greater than zero", database.ErrStructural)
	}

	spendable, change, err := utxos.Without(pending).FindSpendable(w.address, amount)
	if err != nil {
		return database.Tx{}, err
	}

	txIns := make([]database.TxIn, len(spendable))
	for i, utxo := range spendable {
		txIns[i] = database.TxIn{
			TxOutID:    utxo.TxOutID,
			TxOutIndex: utxo.TxOutIndex,
		}
	}

	txOuts := []database.TxOut{{Address: receiver, Amount: amount}}
	if change > 0 {
		txOuts = append(txOuts, database.TxOut{Address: w.address, Amount: change})
	}

	tx := database.NewTx(txIns, txOuts)
	for i := range tx.TxIns {
		sig, err := w.Sign(tx.ID)
		if err != nil {
			return database.Tx{}, fmt.Errorf("signing input %d: %w", i, err)
		}
		tx.TxIns[i].Signature = sig
	}

	return tx, nil
}
