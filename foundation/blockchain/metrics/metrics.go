// Package metrics maintains the prometheus collectors describing the
// chain, the mempool and the minter of a node.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checoin"

// Metrics holds the collectors for a node. Every node owns its own
// registry so several nodes can run inside one process.
type Metrics struct {
	registry *prometheus.Registry

	chainHeight       prometheus.Gauge
	difficulty        prometheus.Gauge
	blocksAccepted    prometheus.Counter
	blocksRejected    *prometheus.CounterVec
	chainReplacements prometheus.Counter
	mempoolSize       prometheus.Gauge
	txsRejected       prometheus.Counter
	mintAttempts      *prometheus.CounterVec
	gossipMessages    *prometheus.CounterVec
}

// New constructs the collectors on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	m := Metrics{
		registry: reg,

		chainHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "height",
			Help:      "Number of blocks in the chain",
		}),
		difficulty: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "difficulty",
			Help:      "Difficulty expected for the next block",
		}),
		blocksAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "blocks_accepted_total",
			Help:      "Total number of blocks appended to the chain",
		}),
		blocksRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "blocks_rejected_total",
			Help:      "Total number of blocks rejected by source",
		}, []string{"source"}),
		chainReplacements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "replacements_total",
			Help:      "Total number of times the chain was replaced by a longer chain",
		}),
		mempoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mempool",
			Name:      "size",
			Help:      "Number of transactions waiting to be minted",
		}),
		txsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mempool",
			Name:      "rejected_total",
			Help:      "Total number of transactions rejected by the mempool",
		}),
		mintAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "minter",
			Name:      "attempts_total",
			Help:      "Total number of minting attempts by result",
		}, []string{"result"}),
		gossipMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "messages_received_total",
			Help:      "Total number of messages received from peers by type",
		}, []string{"type"}),
	}

	return &m
}

// Handler returns the http handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer returns the registry for callers that need to read the values.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Chain records the height of the chain and the next difficulty.
func (m *Metrics) Chain(height int, difficulty uint64) {
	m.chainHeight.Set(float64(height))
	m.difficulty.Set(float64(difficulty))
}

// BlockAccepted counts a block appended to the chain.
func (m *Metrics) BlockAccepted() {
	m.blocksAccepted.Inc()
}

// BlockRejected counts a block rejected from the specified source.
func (m *Metrics) BlockRejected(source string) {
	m.blocksRejected.WithLabelValues(source).Inc()
}

// ChainReplaced counts a chain replacement.
func (m *Metrics) ChainReplaced() {
	m.chainReplacements.Inc()
}

// Mempool records the number of pending transactions.
func (m *Metrics) Mempool(size int) {
	m.mempoolSize.Set(float64(size))
}

// TxRejected counts a transaction rejected by the mempool.
func (m *Metrics) TxRejected() {
	m.txsRejected.Inc()
}

// MintAttempt counts a minting attempt with the specified result.
func (m *Metrics) MintAttempt(result string) {
	m.mintAttempts.WithLabelValues(result).Inc()
}

// MessageReceived counts a gossip message of the specified type.
func (m *Metrics) MessageReceived(msgType string) {
	m.gossipMessages.WithLabelValues(msgType).Inc()
}
