package peer_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host3"}, {Host: "host1"}, {Host: "host2"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer)
			}

			if ps.Add(tst.peers[0]) {
				t.Fatalf("Test %s:\tShould not add a known peer twice.", tst.name)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			if peers[0].Host != "host1" || peers[2].Host != "host3" {
				t.Fatalf("Test %s:\tShould get back the peers sorted by host: %v", tst.name, peers)
			}

			peers = ps.Copy("host2/")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			ps.Remove(peer.New("ws://host1/"))
			if len(ps.Copy("")) != len(tst.peers)-1 {
				t.Fatalf("Test %s:\tShould be able to remove a peer given as a url.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Message(t *testing.T) {
	type table struct {
		name string
		data string
		err  error
	}

	tt := []table{
		{name: "genesis", data: ""},
		{name: "garbage", data: `{"index":"one"}`, err: database.ErrStructural},
		{name: "hash", data: `[{"index":1,"hash":"zz","data":[{}]}]`, err: database.ErrStructural},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			msg, err := peer.NewBlocksResponse([]database.Block{database.GenesisBlock()})
			if err != nil {
				t.Fatalf("Test %s:\tShould be able to encode blocks: %v", tst.name, err)
			}

			if tst.data != "" {
				msg.Data = json.RawMessage(tst.data)
			}

			data, err := json.Marshal(msg)
			if err != nil {
				t.Fatalf("Test %s:\tShould be able to encode the message: %v", tst.name, err)
			}

			var got peer.Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Test %s:\tShould be able to decode the message: %v", tst.name, err)
			}

			blocks, err := got.Blocks()
			if tst.err != nil {
				if !errors.Is(err, tst.err) {
					t.Fatalf("Test %s:\tShould fail with %v, got %v.", tst.name, tst.err, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Test %s:\tShould be able to decode the blocks: %v", tst.name, err)
			}

			if len(blocks) != 1 || !blocks[0].Equal(database.GenesisBlock()) {
				t.Fatalf("Test %s:\tShould get back the genesis block.", tst.name)
			}

			if _, err := got.Txs(); !errors.Is(err, database.ErrStructural) {
				t.Fatalf("Test %s:\tShould not decode blocks as transactions: %v", tst.name, err)
			}
		}

		t.Run(tst.name, f)
	}
}
