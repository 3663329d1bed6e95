// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/checoin/checoin/foundation/blockchain/gossip"
	"github.com/checoin/checoin/foundation/blockchain/state"
	"github.com/checoin/checoin/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Gossip *gossip.Transport
}

// WS upgrades the request to a websocket used to exchange peer messages
// for as long as the connection stays open.
func (h Handlers) WS(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.Log.Infow("gossip", "traceid", web.GetTraceID(ctx), "remoteaddr", r.RemoteAddr)

	return h.Gossip.ServeWS(w, r)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryStatus(), http.StatusOK)
}
