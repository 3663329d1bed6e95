// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/checoin/checoin/business/web/errs"
	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/state"
	"github.com/checoin/checoin/foundation/events"
	"github.com/checoin/checoin/foundation/nameservice"
	"github.com/checoin/checoin/foundation/validate"
	"github.com/checoin/checoin/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints used by the operator.
type Handlers struct {
	Log         *zap.SugaredLogger
	State       *state.State
	NS          *nameservice.NameService
	WS          websocket.Upgrader
	Evts        *events.Events
	MintTimeout time.Duration
	Shutdown    chan os.Signal
}

// Events handles a web socket to provide events to a client. The prefix
// query parameter selects the events to receive.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Subscribe(r.URL.Query().Get("prefix"))
	defer h.Evts.Unsubscribe(id)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the consensus parameters of the chain.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// Blocks returns the full chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryBlocks(), http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.QueryBlockByHash(web.Param(r, "hash"))
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Transaction returns the committed transaction with the specified id.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tx, err := h.State.QueryTx(web.Param(r, "id"))
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// AddressOutputs returns the unspent outputs owned by the address. The
// address can be given by name.
func (h Handlers) AddressOutputs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := h.NS.ReverseLookup(web.Param(r, "address"))

	resp := struct {
		UnspentTxOuts []database.UnspentTxOut `json:"unspentTxOuts"`
	}{
		UnspentTxOuts: nonNil(h.State.QueryUTXOsByAddress(address)),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UnspentOutputs returns every unspent output.
func (h Handlers) UnspentOutputs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, nonNil(h.State.QueryUTXOs()), http.StatusOK)
}

// MyUnspentOutputs returns the unspent outputs owned by the node wallet.
func (h Handlers) MyUnspentOutputs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, nonNil(h.State.QueryMyUTXOs()), http.StatusOK)
}

// Balance returns the balance of the node wallet.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Balance uint64 `json:"balance"`
	}{
		Balance: h.State.QueryMyBalance(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Address returns the address of the node wallet.
func (h Handlers) Address(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Address string `json:"address"`
	}{
		Address: h.State.RetrieveAddress(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// MintRawBlock mints a block holding exactly the provided transactions.
func (h Handlers) MintRawBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Data []database.Tx `json:"data" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, h.MintTimeout)
	defer cancel()

	block, err := h.State.MintRawBlock(ctx, req.Data)
	if err != nil {
		return mintError(err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// MintBlock mints a block holding the coinbase and the mempool.
func (h Handlers) MintBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(ctx, h.MintTimeout)
	defer cancel()

	block, err := h.State.MintNextBlock(ctx)
	if err != nil {
		return mintError(err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// MintTransaction mints a block holding the coinbase and a single payment
// from the node wallet.
func (h Handlers) MintTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req payment
	if err := decode(r, &req); err != nil {
		return err
	}

	h.Log.Infow("mint transaction", "traceid", web.GetTraceID(ctx), "to", req.Address, "amount", req.Amount)

	ctx, cancel := context.WithTimeout(ctx, h.MintTimeout)
	defer cancel()

	block, err := h.State.MintTransaction(ctx, h.NS.ReverseLookup(req.Address), req.Amount)
	if err != nil {
		return mintError(err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// SendTransaction adds a payment from the node wallet to the mempool.
func (h Handlers) SendTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req payment
	if err := decode(r, &req); err != nil {
		return err
	}

	h.Log.Infow("send transaction", "traceid", web.GetTraceID(ctx), "to", req.Address, "amount", req.Amount)

	tx, err := h.State.SendTransaction(h.NS.ReverseLookup(req.Address), req.Amount)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// SubmitTransaction adds a transaction signed by an outside wallet to the
// mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tx database.Tx
	if err := decode(r, &tx); err != nil {
		return err
	}

	h.Log.Infow("submit transaction", "traceid", web.GetTraceID(ctx), "tx", tx.ID)

	if err := h.State.SubmitWalletTransaction(tx); err != nil {
		return toTrusted(err)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// TransactionPool returns the set of uncommitted transactions.
func (h Handlers) TransactionPool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs := h.State.QueryMempool()
	if txs == nil {
		txs = []database.Tx{}
	}

	return web.Respond(ctx, w, txs, http.StatusOK)
}

// Peers returns the address of every connected peer.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveConnectedPeers(), http.StatusOK)
}

// AddPeer connects the node to a new peer.
func (h Handlers) AddPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Peer string `json:"peer" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	if err := h.State.AddPeer(ctx, req.Peer); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "connected",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Stop asks the node to shut down.
func (h Handlers) Stop(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Msg string `json:"msg"`
	}{
		Msg: "stopping server",
	}

	if err := web.Respond(ctx, w, resp, http.StatusOK); err != nil {
		return err
	}

	select {
	case h.Shutdown <- syscall.SIGTERM:
	default:
	}

	return nil
}

// =============================================================================

type payment struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"required"`
}

// decode reads the body into the value and checks its fields.
func decode(r *http.Request, val any) error {
	if err := web.Decode(r, val); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return validate.Check(val)
}

// toTrusted turns the domain errors into responses for the client.
func toTrusted(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return errs.NewTrusted(err, http.StatusBadRequest)
}

// mintError reports a failed mint attempt to the client.
func mintError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.NewTrusted(errors.New("could not generate block"), http.StatusBadRequest)
	}

	return toTrusted(err)
}

func nonNil(outs []database.UnspentTxOut) []database.UnspentTxOut {
	if outs == nil {
		return []database.UnspentTxOut{}
	}
	return outs
}
