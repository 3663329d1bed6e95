// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"
	"os"
	"time"

	"github.com/checoin/checoin/app/services/node/handlers/v1/private"
	"github.com/checoin/checoin/app/services/node/handlers/v1/public"
	"github.com/checoin/checoin/foundation/blockchain/gossip"
	"github.com/checoin/checoin/foundation/blockchain/state"
	"github.com/checoin/checoin/foundation/events"
	"github.com/checoin/checoin/foundation/nameservice"
	"github.com/checoin/checoin/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log         *zap.SugaredLogger
	State       *state.State
	NS          *nameservice.NameService
	Evts        *events.Events
	Gossip      *gossip.Transport
	MintTimeout time.Duration
	Shutdown    chan os.Signal
}

// PublicRoutes binds all the operator routes. They are served without a
// version prefix.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:         cfg.Log,
		State:       cfg.State,
		NS:          cfg.NS,
		WS:          websocket.Upgrader{},
		Evts:        cfg.Evts,
		MintTimeout: cfg.MintTimeout,
		Shutdown:    cfg.Shutdown,
	}

	app.Handle(http.MethodGet, "", "/events", pbl.Events)
	app.Handle(http.MethodGet, "", "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, "", "/blocks", pbl.Blocks)
	app.Handle(http.MethodGet, "", "/block/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, "", "/transaction/:id", pbl.Transaction)
	app.Handle(http.MethodGet, "", "/address/:address", pbl.AddressOutputs)
	app.Handle(http.MethodGet, "", "/unspentTransactionOutputs", pbl.UnspentOutputs)
	app.Handle(http.MethodGet, "", "/myUnspentTransactionOutputs", pbl.MyUnspentOutputs)
	app.Handle(http.MethodGet, "", "/balance", pbl.Balance)
	app.Handle(http.MethodGet, "", "/address", pbl.Address)
	app.Handle(http.MethodPost, "", "/mintRawBlock", pbl.MintRawBlock)
	app.Handle(http.MethodPost, "", "/mintBlock", pbl.MintBlock)
	app.Handle(http.MethodPost, "", "/mintTransaction", pbl.MintTransaction)
	app.Handle(http.MethodPost, "", "/sendTransaction", pbl.SendTransaction)
	app.Handle(http.MethodPost, "", "/submitTransaction", pbl.SubmitTransaction)
	app.Handle(http.MethodGet, "", "/transactionPool", pbl.TransactionPool)
	app.Handle(http.MethodGet, "", "/peers", pbl.Peers)
	app.Handle(http.MethodPost, "", "/addPeer", pbl.AddPeer)
	app.Handle(http.MethodPost, "", "/stop", pbl.Stop)
}

// PrivateRoutes binds all the version 1 node to node routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		Gossip: cfg.Gossip,
	}

	app.Handle(http.MethodGet, version, "/node/ws", prv.WS)
	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
}
