package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/genesis"
	"github.com/checoin/checoin/foundation/blockchain/peer"
	"github.com/checoin/checoin/foundation/blockchain/state"
	"github.com/checoin/checoin/foundation/blockchain/wallet"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	MINTER_ECDSA = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// =============================================================================

func Test_MintBlock(t *testing.T) {
	t.Log("Given the need to mint a block with no stake.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen minting on top of the genesis block.", testID)
		{
			st, _ := newState(t, loadWallet(t, MINTER_ECDSA))

			if st.QueryMyBalance() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould start with no balance.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould start with no balance.", success, testID)

			block := mint(t, st)

			if block.Index != 1 || block.PreviousHash != database.GenesisBlock().Hash {
				t.Fatalf("\t%s\tTest %d:\tShould mint on top of the genesis block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould mint on top of the genesis block.", success, testID)

			if bal := st.QueryMyBalance(); bal != 50 {
				t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, bal)
				t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, 50)
				t.Fatalf("\t%s\tTest %d:\tShould receive the coinbase.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the coinbase.", success, testID)

			if st.QueryLatestBlock().Hash != block.Hash || len(st.QueryBlocks()) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould have the block in the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have the block in the chain.", success, testID)
		}
	}
}

func Test_SendTransaction(t *testing.T) {
	t.Log("Given the need to pay another wallet.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the sender holds a single output.", testID)
		{
			a := loadWallet(t, MINTER_ECDSA)
			b := generateWallet(t)
			c := generateWallet(t)

			st, _ := newState(t, a)
			mint(t, st)

			tx, err := st.SendTransaction(b.Address(), 20)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to send the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to send the transaction.", success, testID)

			exp := []database.TxOut{{Address: b.Address(), Amount: 20}, {Address: a.Address(), Amount: 30}}
			if len(tx.TxOuts) != 2 || tx.TxOuts[0] != exp[0] || tx.TxOuts[1] != exp[1] {
				t.Logf("\t%s\tTest %d:\tgot: %+v", failed, testID, tx.TxOuts)
				t.Logf("\t%s\tTest %d:\texp: %+v", failed, testID, exp)
				t.Fatalf("\t%s\tTest %d:\tShould pay the receiver and return the change.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould pay the receiver and return the change.", success, testID)

			if _, err := st.SendTransaction(b.Address(), 20); !errors.Is(err, database.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest %d:\tShould not spend outputs already in the mempool: %v", failed, testID, err)
			}
			if err := st.SubmitTransaction(tx); !errors.Is(err, database.ErrDuplicateSpend) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the same transaction twice: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not double spend through the mempool.", success, testID)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			next := st.QueryLatestBlock().Index + 1
			coinbase := database.NewCoinbaseTx(c.Address(), next, genesis.Default())
			if _, err := st.MintRawBlock(ctx, []database.Tx{coinbase, tx}); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mint the payment: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to mint the payment.", success, testID)

			if bal := st.QueryBalance(a.Address()); bal != 30 {
				t.Fatalf("\t%s\tTest %d:\tShould have a sender balance of 30, got %d.", failed, testID, bal)
			}
			if bal := st.QueryBalance(b.Address()); bal != 20 {
				t.Fatalf("\t%s\tTest %d:\tShould have a receiver balance of 20, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould have the correct balances.", success, testID)

			if st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould remove the minted transaction from the mempool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould remove the minted transaction from the mempool.", success, testID)

			if _, err := st.QueryTx(tx.ID); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to find the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to find the transaction.", success, testID)

			block, err := st.MintTransaction(ctx, b.Address(), 30)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mint a direct payment: %v", failed, testID, err)
			}
			if len(block.Data) != 2 || st.QueryBalance(b.Address()) != 50 || st.QueryMyBalance() != 50 {
				t.Fatalf("\t%s\tTest %d:\tShould have the direct payment in the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have the direct payment in the chain.", success, testID)
		}
	}
}

func Test_ReplaceChain(t *testing.T) {
	t.Log("Given the need to adopt the longest valid chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen receiving chains from another node.", testID)
		{
			st1, _ := newState(t, generateWallet(t))
			st2, _ := newState(t, generateWallet(t))

			mint(t, st1)
			mint(t, st2)

			if err := st2.ReplaceChain(st1.QueryBlocks()); !errors.Is(err, database.ErrChainTooShort) {
				t.Fatalf("\t%s\tTest %d:\tShould not adopt a chain of the same length: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not adopt a chain of the same length.", success, testID)

			mint(t, st1)

			tampered := st1.QueryBlocks()
			tampered[1].MinterBalance = 1
			if err := st2.ReplaceChain(tampered); !errors.Is(err, database.ErrHashMismatch) {
				t.Fatalf("\t%s\tTest %d:\tShould not adopt an invalid chain: %v", failed, testID, err)
			}
			if st2.QueryMyBalance() != 50 || len(st2.QueryBlocks()) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the current chain after a rejection.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not adopt an invalid chain.", success, testID)

			if err := st2.ReplaceChain(st1.QueryBlocks()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould adopt a longer chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould adopt a longer chain.", success, testID)

			if st2.QueryLatestBlock().Hash != st1.QueryLatestBlock().Hash {
				t.Fatalf("\t%s\tTest %d:\tShould hold the same chain.", failed, testID)
			}
			if st2.QueryMyBalance() != 0 || st2.QueryBalance(st1.RetrieveAddress()) != 100 {
				t.Fatalf("\t%s\tTest %d:\tShould replace the unspent outputs with the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould replace the unspent outputs with the chain.", success, testID)

			if err := st2.ReplaceChain(st1.QueryBlocks()[:2]); !errors.Is(err, database.ErrChainTooShort) {
				t.Fatalf("\t%s\tTest %d:\tShould not adopt a shorter chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not adopt a shorter chain.", success, testID)
		}
	}
}

func Test_HandleMessage(t *testing.T) {
	t.Log("Given the need to synchronize nodes through messages.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a node is behind.", testID)
		{
			st1, _ := newState(t, loadWallet(t, MINTER_ECDSA))
			st2, gsp2 := newState(t, generateWallet(t))

			mint(t, st1)
			mint(t, st1)

			latest := respond(t, st1, peer.NewQuery(peer.QueryLatest))
			replies, err := st2.HandleMessage(latest)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould handle the latest block: %v", failed, testID, err)
			}
			if len(replies) != 1 || replies[0].Type != peer.QueryAll {
				t.Fatalf("\t%s\tTest %d:\tShould ask for the full chain: %v", failed, testID, replies)
			}
			t.Logf("\t%s\tTest %d:\tShould ask for the full chain.", success, testID)

			all := respond(t, st1, replies[0])
			if _, err := st2.HandleMessage(all); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould handle the full chain: %v", failed, testID, err)
			}
			if st2.QueryLatestBlock().Hash != st1.QueryLatestBlock().Hash {
				t.Fatalf("\t%s\tTest %d:\tShould replace the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould replace the chain.", success, testID)

			mint(t, st1)

			if _, err := st2.HandleMessage(respond(t, st1, peer.NewQuery(peer.QueryLatest))); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould handle the next block: %v", failed, testID, err)
			}
			if st2.QueryLatestBlock().Hash != st1.QueryLatestBlock().Hash {
				t.Fatalf("\t%s\tTest %d:\tShould append the next block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould append the next block.", success, testID)

			if n := gsp2.count(peer.ResponseBlockchain); n != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould broadcast the latest block after each change, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould broadcast the latest block after each change.", success, testID)

			if replies, err := st2.HandleMessage(respond(t, st1, peer.NewQuery(peer.QueryLatest))); err != nil || len(replies) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould ignore a block it already has: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould ignore a block it already has.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a node shares its mempool.", testID)
		{
			st1, _ := newState(t, loadWallet(t, MINTER_ECDSA))
			st2, gsp2 := newState(t, generateWallet(t))

			mint(t, st1)
			if err := st2.ReplaceChain(st1.QueryBlocks()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould adopt the chain: %v", failed, testID, err)
			}

			if _, err := st1.SendTransaction(st2.RetrieveAddress(), 10); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to send the transaction: %v", failed, testID, err)
			}

			pool := respond(t, st1, peer.NewQuery(peer.QueryTransactionPool))
			if _, err := st2.HandleMessage(pool); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould handle the mempool: %v", failed, testID, err)
			}
			if st2.QueryMempoolLength() != 1 || gsp2.count(peer.ResponseTransactionPool) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould add and share the transactions.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould add and share the transactions.", success, testID)

			if _, err := st2.HandleMessage(pool); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould handle the mempool again: %v", failed, testID, err)
			}
			if st2.QueryMempoolLength() != 1 || gsp2.count(peer.ResponseTransactionPool) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould not share known transactions again.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not share known transactions again.", success, testID)

			block := mint(t, st2)
			if len(block.Data) != 2 || st2.QueryMyBalance() != 60 {
				t.Fatalf("\t%s\tTest %d:\tShould mint the shared transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould mint the shared transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a message is malformed.", testID)
		{
			st, _ := newState(t, generateWallet(t))

			bad := peer.Message{Type: peer.ResponseBlockchain, Data: []byte(`{"index":1}`)}
			if _, err := st.HandleMessage(bad); !errors.Is(err, database.ErrStructural) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a malformed payload: %v", failed, testID, err)
			}
			if _, err := st.HandleMessage(peer.Message{Type: 42}); !errors.Is(err, database.ErrStructural) {
				t.Fatalf("\t%s\tTest %d:\tShould reject an unknown message: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject malformed messages.", success, testID)
		}
	}
}

// =============================================================================

type gossip struct {
	mu   sync.Mutex
	msgs []peer.Message
}

func (g *gossip) Broadcast(msg peer.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.msgs = append(g.msgs, msg)
}

func (g *gossip) Connect(ctx context.Context, host string) error {
	return nil
}

func (g *gossip) Peers() []string {
	return nil
}

func (g *gossip) count(mt peer.MessageType) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	var n int
	for _, msg := range g.msgs {
		if msg.Type == mt {
			n++
		}
	}
	return n
}

func newState(t *testing.T, w *wallet.Wallet) (*state.State, *gossip) {
	st, err := state.New(state.Config{
		Wallet:  w,
		Host:    "localhost:9080",
		Genesis: genesis.Default(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	gsp := gossip{}
	st.Gossip = &gsp

	return st, &gsp
}

func mint(t *testing.T, st *state.State) database.Block {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	block, err := st.MintNextBlock(ctx)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mint a block: %v", failed, err)
	}

	return block
}

func respond(t *testing.T, st *state.State, query peer.Message) peer.Message {
	replies, err := st.HandleMessage(query)
	if err != nil || len(replies) != 1 {
		t.Fatalf("\t%s\tShould be able to answer %s: %v", failed, query.Type, err)
	}

	return replies[0]
}

func loadWallet(t *testing.T, key string) *wallet.Wallet {
	pk, err := crypto.HexToECDSA(key)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %v", failed, err)
	}

	return wallet.New(pk)
}

func generateWallet(t *testing.T) *wallet.Wallet {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a wallet: %v", failed, err)
	}

	return w
}
