package gossip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/checoin/checoin/foundation/blockchain/genesis"
	"github.com/checoin/checoin/foundation/blockchain/gossip"
	"github.com/checoin/checoin/foundation/blockchain/peer"
	"github.com/checoin/checoin/foundation/blockchain/state"
	"github.com/checoin/checoin/foundation/blockchain/wallet"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Sync(t *testing.T) {
	t.Log("Given the need to keep two nodes in sync over websockets.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a node connects to a node holding a longer chain.", testID)
		{
			stA, trA := newNode(t)
			stB, trB := newNode(t)
			defer trA.Shutdown()
			defer trB.Shutdown()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trB.ServeWS(w, r)
			}))
			defer srv.Close()

			blkB, err := stB.MintNextBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mint on node B: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to mint on node B.", success, testID)

			hostB := strings.TrimPrefix(srv.URL, "http://")
			if err := trA.Connect(context.Background(), hostB); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to connect to node B: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to connect to node B.", success, testID)

			if !waitFor(func() bool { return stA.QueryLatestBlock().Hash == blkB.Hash }) {
				t.Fatalf("\t%s\tTest %d:\tShould receive the latest block on connect.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the latest block on connect.", success, testID)

			peers := trA.Peers()
			if len(peers) != 1 || peers[0] != hostB {
				t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, peers)
				t.Fatalf("\t%s\tTest %d:\tShould report the dialed host as a peer.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report the dialed host as a peer.", success, testID)

			if err := trA.Connect(context.Background(), hostB); err != nil || len(trA.Peers()) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould not dial the same host twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not dial the same host twice.", success, testID)

			blkB, err = stB.MintNextBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mint again on node B: %v", failed, testID, err)
			}

			if !waitFor(func() bool { return stA.QueryLatestBlock().Hash == blkB.Hash }) {
				t.Fatalf("\t%s\tTest %d:\tShould receive the broadcast of a new block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the broadcast of a new block.", success, testID)

			blkA, err := stA.MintNextBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mint on node A: %v", failed, testID, err)
			}

			if !waitFor(func() bool { return stB.QueryLatestBlock().Hash == blkA.Hash }) {
				t.Fatalf("\t%s\tTest %d:\tShould broadcast over an accepted connection.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould broadcast over an accepted connection.", success, testID)
		}
	}
}

func Test_Reply(t *testing.T) {
	t.Log("Given the need to answer a peer on its own connection.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a peer connects.", testID)
		{
			h := handler{received: make(chan peer.Message, 10)}
			trA := gossip.New(&h, nil)
			trB := gossip.New(&h, nil)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trB.ServeWS(w, r)
			}))
			defer srv.Close()

			if err := trA.Connect(context.Background(), strings.TrimPrefix(srv.URL, "http://")); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to connect: %v", failed, testID, err)
			}

			seen := make(map[peer.MessageType]int)
			timeout := time.After(5 * time.Second)
			for len(seen) < 3 {
				select {
				case msg := <-h.received:
					seen[msg.Type]++
				case <-timeout:
					t.Fatalf("\t%s\tTest %d:\tShould receive the initial queries and replies, got %v.", failed, testID, seen)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould receive the initial queries and replies.", success, testID)

			trA.Shutdown()
			trB.Shutdown()

			if len(trA.Peers()) != 0 || len(trB.Peers()) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have no peers after shutdown.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have no peers after shutdown.", success, testID)

			if err := trA.Connect(context.Background(), strings.TrimPrefix(srv.URL, "http://")); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not connect after shutdown.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not connect after shutdown.", success, testID)
		}
	}
}

// =============================================================================

// handler answers both queries with an empty pool and records every message.
type handler struct {
	received chan peer.Message
}

func (h *handler) HandleMessage(msg peer.Message) ([]peer.Message, error) {
	h.received <- msg

	switch msg.Type {
	case peer.QueryLatest, peer.QueryTransactionPool:
		resp, err := peer.NewTxsResponse(nil)
		if err != nil {
			return nil, err
		}
		return []peer.Message{resp}, nil
	}

	return nil, nil
}

func newNode(t *testing.T) (*state.State, *gossip.Transport) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a wallet: %v", failed, err)
	}

	st, err := state.New(state.Config{
		Wallet:  w,
		Genesis: genesis.Default(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	tr := gossip.New(st, nil)
	st.Gossip = tr

	return st, tr
}

func waitFor(f func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
