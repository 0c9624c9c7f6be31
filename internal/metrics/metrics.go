// Package metrics records RPC and wallet operation metrics in a Prometheus
// registry owned by the application.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dnawallet"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	walletOps   *prometheus.CounterVec
	breaker     *prometheus.GaugeVec

	// Cheap totals for the CLI's verbose summary.
	rpcCallsTotal  atomic.Int64
	rpcErrorsTotal atomic.Int64
	rpcLatencyNano atomic.Int64
}

// New creates collectors registered in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rpcCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc_client",
			Name:      "calls_total",
			Help:      "Count of node RPC calls by outcome.",
		}, []string{"chain", "method", "outcome"}),
		rpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc_client",
			Name:      "call_duration_seconds",
			Help:      "Duration of node RPC calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain", "method"}),
		walletOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "operations_total",
			Help:      "Count of wallet operations by status.",
		}, []string{"operation", "status"}),
		breaker: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpc_client",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per endpoint (0 closed, 1 half-open, 2 open).",
		}, []string{"endpoint"}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRPC records one RPC call. outcome is "ok" or an error class.
func (m *Metrics) ObserveRPC(chain, method, outcome string, started time.Time) {
	if m == nil {
		return
	}
	d := time.Since(started)
	m.rpcCalls.WithLabelValues(chain, method, outcome).Inc()
	m.rpcDuration.WithLabelValues(chain, method).Observe(d.Seconds())

	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNano.Add(d.Nanoseconds())
	if outcome != OutcomeOK {
		m.rpcErrorsTotal.Add(1)
	}
}

// RecordWalletOp records a wallet operation such as "create" or "send".
func (m *Metrics) RecordWalletOp(op string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.walletOps.WithLabelValues(op, status).Inc()
}

// SetBreakerState records a circuit breaker transition.
func (m *Metrics) SetBreakerState(endpoint string, state int) {
	if m == nil {
		return
	}
	m.breaker.WithLabelValues(endpoint).Set(float64(state))
}

// OutcomeOK is the outcome label of a successful call.
const OutcomeOK = "ok"

// Snapshot is a point-in-time copy of the RPC totals.
type Snapshot struct {
	RPCCallsTotal   int64
	RPCErrorsTotal  int64
	RPCLatencyAvgMs float64
}

// Snapshot returns the RPC totals.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	s := Snapshot{
		RPCCallsTotal:  m.rpcCallsTotal.Load(),
		RPCErrorsTotal: m.rpcErrorsTotal.Load(),
	}
	if s.RPCCallsTotal > 0 {
		s.RPCLatencyAvgMs = float64(m.rpcLatencyNano.Load()) / float64(s.RPCCallsTotal) / 1e6
	}
	return s
}
