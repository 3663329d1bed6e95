package mempool_test

import (
	"errors"
	"testing"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/genesis"
	"github.com/checoin/checoin/foundation/blockchain/mempool"
	"github.com/checoin/checoin/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	founderKey  = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	founderAddr = "04412ffaffb78f2931e193f1add952fcb84ceaa55c8491b3a71f25f89fbb482aaf9b74f0fc0d3b6a71da07425d3ef94ac0a1b1d7972f10c2c38bd77257b346fbf8"
	otherAddr   = "0440ee457d69843e6d5a569684861731422623d0bb04cfcec2e0b6ba23843c1dd1a72e9397751351a4b0f8f335c50d31e27f949de1a9603a1d258422545f0cad0e"
)

func sign(t *testing.T, ins []database.TxIn, outs []database.TxOut) database.Tx {
	pk, err := crypto.HexToECDSA(founderKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %v", failed, err)
	}

	tx := database.NewTx(ins, outs)
	for i := range tx.TxIns {
		sig, err := signature.Sign(tx.ID, pk)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
		}
		tx.TxIns[i].Signature = sig
	}

	return tx
}

func TestSubmit(t *testing.T) {
	g := genesis.Default()
	gb := database.GenesisBlock()

	t.Log("Given the need to validate mempool api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a set of transactions.", testID)
		{
			utxos, err := database.UTXOSet{}.Apply(gb.Data, 0, g)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply the genesis block: %v", failed, testID, err)
			}

			genesisOut := database.TxIn{TxOutID: gb.Data[0].ID, TxOutIndex: 0}
			tx1 := sign(t, []database.TxIn{genesisOut}, []database.TxOut{{Address: otherAddr, Amount: 10}, {Address: founderAddr, Amount: 40}})
			tx2 := sign(t, []database.TxIn{genesisOut}, []database.TxOut{{Address: otherAddr, Amount: 50}})

			mp := mempool.New()

			if err := mp.Submit(tx1, utxos); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add new transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to add new transaction: %s", success, testID, tx1)

			if err := mp.Submit(tx2, utxos); !errors.Is(err, database.ErrDuplicateSpend) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a second spend of the same output: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a second spend of the same output.", success, testID)

			bad := tx2
			bad.TxOuts = []database.TxOut{{Address: otherAddr, Amount: 60}}
			if err := mp.Submit(bad, utxos); !errors.Is(err, database.ErrHashMismatch) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a tampered transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a tampered transaction.", success, testID)

			if mp.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have one transaction, got %d.", failed, testID, mp.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould have one transaction.", success, testID)

			snap := mp.Snapshot()
			snap[0].TxOuts[0].Amount = 1000
			if mp.Snapshot()[0].TxOuts[0].Amount != 10 {
				t.Fatalf("\t%s\tTest %d:\tShould not be able to change the pool through a snapshot.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not be able to change the pool through a snapshot.", success, testID)

			if _, exists := mp.SpentOutPoints()[genesisOut.OutPoint()]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould report the spent output.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report the spent output.", success, testID)

			removed := mp.Reconcile(utxos)
			if len(removed) != 0 || mp.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould keep transactions with spendable inputs.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep transactions with spendable inputs.", success, testID)

			next, err := utxos.Apply([]database.Tx{database.NewCoinbaseTx(otherAddr, 1, g), tx1}, 1, g)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to apply the block: %v", failed, testID, err)
			}

			removed = mp.Reconcile(next)
			if len(removed) != 1 || removed[0].ID != tx1.ID || mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould remove transactions minted in a block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould remove transactions minted in a block.", success, testID)

			if len(mp.SpentOutPoints()) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould release the spent outputs.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould release the spent outputs.", success, testID)

			change := database.TxIn{TxOutID: tx1.ID, TxOutIndex: 1}
			tx3 := sign(t, []database.TxIn{change}, []database.TxOut{{Address: otherAddr, Amount: 40}})
			if err := mp.Submit(tx3, next); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to spend the change: %v", failed, testID, err)
			}

			mp.Truncate()
			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
		}
	}
}
