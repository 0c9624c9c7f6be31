package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestObserveRPC(t *testing.T) {
	t.Parallel()

	m := New()
	start := time.Now().Add(-10 * time.Millisecond)

	m.ObserveRPC("cell", "balance", OutcomeOK, start)
	m.ObserveRPC("cell", "balance", OutcomeOK, start)
	m.ObserveRPC("cell", "tx_create", "network", start)

	assert.InDelta(t, 2, testutil.ToFloat64(m.rpcCalls.WithLabelValues("cell", "balance", OutcomeOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rpcCalls.WithLabelValues("cell", "tx_create", "network")), 0)

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.RPCCallsTotal)
	assert.Equal(t, int64(1), s.RPCErrorsTotal)
	assert.GreaterOrEqual(t, s.RPCLatencyAvgMs, 10.0)
}

func TestRecordWalletOp(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordWalletOp("create", nil)
	m.RecordWalletOp("create", errBoom)
	m.RecordWalletOp("create", errBoom)

	assert.InDelta(t, 1, testutil.ToFloat64(m.walletOps.WithLabelValues("create", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.walletOps.WithLabelValues("create", "error")), 0)
}

func TestBreakerGaugeAndRegistry(t *testing.T) {
	t.Parallel()

	m := New()
	m.SetBreakerState("http://node", 2)
	assert.InDelta(t, 2, testutil.ToFloat64(m.breaker.WithLabelValues("http://node")), 0)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveRPC("cell", "balance", OutcomeOK, time.Now())
	m.RecordWalletOp("create", nil)
	m.SetBreakerState("x", 0)
	assert.Nil(t, m.Registry())
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
