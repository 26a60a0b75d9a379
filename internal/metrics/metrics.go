// Package metrics exposes prometheus collectors for document transactions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carbon"

// Transaction results.
const (
	ResultCommitted  = "committed"
	ResultRolledBack = "rolled_back"
	ResultNoop       = "noop"
)

// Action results.
const (
	ActionOK     = "ok"
	ActionNoop   = "noop"
	ActionFailed = "failed"
)

// Collector records transaction metrics on one registry.
// A nil *Collector records nothing.
type Collector struct {
	transactions *prometheus.CounterVec
	actions      *prometheus.CounterVec
	duration     prometheus.Histogram
	compactions  prometheus.Counter
	treeNodes    prometheus.Gauge
	version      prometheus.Gauge
}

// New registers the collectors on reg. Passing nil uses a private
// registry, which keeps tests and multiple engines independent.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Collector{
		// transactions counts transactions by outcome.
		// Labels: origin, result (committed, rolled_back, noop)
		transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transaction",
			Name:      "total",
			Help:      "Transactions by origin and result",
		}, []string{"origin", "result"}),

		// actions counts executed actions.
		// Labels: kind, result (ok, noop, failed)
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "total",
			Help:      "Executed actions by kind and result",
		}, []string{"kind", "result"}),

		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transaction",
			Name:      "duration_seconds",
			Help:      "Time from draft open to commit or rollback",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),

		compactions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "compactions_total",
			Help:      "Sibling index maps compacted after commit",
		}),

		treeNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "nodes",
			Help:      "Registered nodes after the last commit",
		}),

		version: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "version",
			Help:      "Version of the last committed state",
		}),
	}
}

// Transaction records a finished transaction.
func (c *Collector) Transaction(origin, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(origin, result).Inc()
	c.duration.Observe(d.Seconds())
}

// Action records one executed action. result is "ok", "noop" or "failed".
func (c *Collector) Action(kind, result string) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(kind, result).Inc()
}

// Commit records tree size, version and compactions after a commit.
func (c *Collector) Commit(version uint64, nodes, compacted int) {
	if c == nil {
		return
	}
	c.version.Set(float64(version))
	c.treeNodes.Set(float64(nodes))
	c.compactions.Add(float64(compacted))
}
