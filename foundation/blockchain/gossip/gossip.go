// Package gossip provides the websocket transport used by nodes to exchange
// peer messages. Every connection, dialed or accepted, is treated the same:
// messages read from it are given to the handler and any reply goes back to
// that connection only.
package gossip

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/checoin/checoin/foundation/blockchain/peer"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Path is the route a node serves its gossip endpoint on.
const Path = "/v1/node/ws"

const (
	sendBuffer   = 100
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// ErrShutdown is returned when the transport has been shut down.
var ErrShutdown = errors.New("gossip transport is shut down")

// Handler processes a message received from a peer and returns the messages
// to send back to that peer.
type Handler interface {
	HandleMessage(msg peer.Message) ([]peer.Message, error)
}

// EventHandler defines a function that is called when events occur in the
// transport.
type EventHandler func(v string, args ...any)

// Transport manages the set of open websocket connections with peers.
type Transport struct {
	handler   Handler
	evHandler EventHandler
	upgrader  websocket.Upgrader
	dialer    websocket.Dialer

	mu    sync.RWMutex
	conns map[uuid.UUID]*conn
	shut  bool
	wg    sync.WaitGroup
}

// New constructs a transport that gives received messages to the handler.
func New(handler Handler, evHandler EventHandler) *Transport {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Transport{
		handler:   handler,
		evHandler: ev,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dialer: websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
		conns: make(map[uuid.UUID]*conn),
	}
}

// Connect dials the gossip endpoint of the specified host. Nothing happens
// if a connection to that host is already open.
func (t *Transport) Connect(ctx context.Context, host string) error {
	if t.connected(host) {
		return nil
	}

	u := url.URL{Scheme: "ws", Host: host, Path: Path}

	ws, _, err := t.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", u.String(), err)
	}

	c, err := t.add(ws, host, true)
	if err != nil {
		ws.Close()
		return err
	}

	t.evHandler("gossip: Connect: peer[%s]: id[%s]: connected", host, c.id)

	go func() {
		defer t.wg.Done()
		t.serve(c)
	}()

	return nil
}

// ServeWS upgrades the request to a websocket and serves the peer until the
// connection is closed.
func (t *Transport) ServeWS(w http.ResponseWriter, r *http.Request) error {
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c, err := t.add(ws, r.RemoteAddr, false)
	if err != nil {
		ws.Close()
		return err
	}

	t.evHandler("gossip: ServeWS: peer[%s]: id[%s]: accepted", r.RemoteAddr, c.id)

	defer t.wg.Done()

	t.serve(c)

	return nil
}

// Broadcast queues the message on every open connection. A connection
// whose queue is full misses the message.
func (t *Transport) Broadcast(msg peer.Message) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, c := range t.conns {
		if !c.queue(msg) {
			t.evHandler("gossip: Broadcast: peer[%s]: WARNING: queue full, dropped %s", c.host, msg.Type)
		}
	}
}

// Peers returns the address of every open connection. Dialed connections
// report the host they were dialed with.
func (t *Transport) Peers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	peers := make([]string, 0, len(t.conns))
	for _, c := range t.conns {
		peers = append(peers, c.host)
	}
	slices.Sort(peers)

	return peers
}

// Shutdown closes every connection and waits for them to finish.
func (t *Transport) Shutdown() {
	t.mu.Lock()
	t.shut = true
	for _, c := range t.conns {
		c.close()
	}
	t.mu.Unlock()

	t.wg.Wait()
}

// =============================================================================

// connected reports if a dialed connection to the host is open.
func (t *Transport) connected(host string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, c := range t.conns {
		if c.dialed && c.host == host {
			return true
		}
	}

	return false
}

// add registers the websocket and queues the initial queries every new
// connection starts with. The caller must call wg.Done once the connection
// has been served.
func (t *Transport) add(ws *websocket.Conn, host string, dialed bool) (*conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shut {
		return nil, ErrShutdown
	}

	c := conn{
		id:     uuid.New(),
		host:   host,
		dialed: dialed,
		ws:     ws,
		send:   make(chan peer.Message, sendBuffer),
		done:   make(chan struct{}),
	}
	t.conns[c.id] = &c
	t.wg.Add(1)

	c.queue(peer.NewQuery(peer.QueryLatest))
	c.queue(peer.NewQuery(peer.QueryTransactionPool))

	return &c, nil
}

// remove forgets the connection.
func (t *Transport) remove(c *conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.conns, c.id)
}

// serve runs the writer for the connection on its own goroutine and reads
// messages until the connection fails or is closed.
func (t *Transport) serve(c *conn) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.write(c)
	}()

	t.read(c)

	c.close()
	wg.Wait()
	c.ws.Close()
	t.remove(c)

	t.evHandler("gossip: serve: peer[%s]: id[%s]: disconnected", c.host, c.id)
}

// read gives every message received on the connection to the handler and
// queues the replies.
func (t *Transport) read(c *conn) {
	for {
		var msg peer.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.evHandler("gossip: serve: peer[%s]: read: %s", c.host, err)
			}
			return
		}

		replies, err := t.handler.HandleMessage(msg)
		if err != nil {
			t.evHandler("gossip: serve: peer[%s]: type[%s]: WARNING: %s", c.host, msg.Type, err)
			continue
		}

		for _, reply := range replies {
			if !c.queue(reply) {
				t.evHandler("gossip: serve: peer[%s]: WARNING: queue full, dropped %s", c.host, reply.Type)
			}
		}
	}
}

// write sends queued messages and keep alive pings until the connection is
// closed.
func (t *Transport) write(c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(msg); err != nil {
				t.evHandler("gossip: write: peer[%s]: %s", c.host, err)
				c.close()
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

// =============================================================================

// conn represents a single websocket connection with a peer.
type conn struct {
	id     uuid.UUID
	host   string
	dialed bool
	ws     *websocket.Conn
	send   chan peer.Message
	done   chan struct{}
	once   sync.Once
}

// queue adds the message to the send queue without blocking.
func (c *conn) queue(msg peer.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the writer and unblocks the reader.
func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.SetReadDeadline(time.Now())
	})
}
