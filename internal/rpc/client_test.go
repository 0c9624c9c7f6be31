package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/metrics"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// nodeFunc answers a decoded request with either a result or an error object.
type nodeFunc func(t *testing.T, method string, params json.RawMessage) (any, *Error)

func newNode(t *testing.T, fn nodeFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			ID     string          `json:"id"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := fn(t, req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, m *metrics.Metrics, urls ...string) *Client {
	t.Helper()
	c, err := New(Options{Endpoints: urls, Timeout: 2 * time.Second, Metrics: m, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return c
}

func TestNewRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)

	_, err = New(Options{Endpoints: []string{""}})
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)
}

func TestBalance(t *testing.T) {
	t.Parallel()

	srv := newNode(t, func(t *testing.T, method string, params json.RawMessage) (any, *Error) {
		assert.Equal(t, MethodBalance, method)
		var p addressParams
		assert.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, "Backbone", p.Net)
		assert.Equal(t, "CELL", p.Ticker)
		return BalanceResult{Address: p.Address, Ticker: p.Ticker, Value: "1500000000000000000", Decimals: 18}, nil
	})

	m := metrics.New()
	c := newClient(t, m, srv.URL)
	res, err := c.Balance(context.Background(), "Backbone", "addr", "CELL")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", res.Value)
	assert.Equal(t, int32(18), res.Decimals)
	assert.Equal(t, int64(1), m.Snapshot().RPCCallsTotal)
	assert.Equal(t, int64(0), m.Snapshot().RPCErrorsTotal)
}

func TestBalanceRejectsBadValue(t *testing.T) {
	t.Parallel()

	srv := newNode(t, func(_ *testing.T, _ string, _ json.RawMessage) (any, *Error) {
		return BalanceResult{Value: "-1"}, nil
	})
	_, err := newClient(t, nil, srv.URL).Balance(context.Background(), "Backbone", "addr", "CELL")
	require.ErrorIs(t, err, walleterr.ErrMalformedResponse)
}

func TestOutputs(t *testing.T) {
	t.Parallel()

	srv := newNode(t, func(_ *testing.T, method string, _ json.RawMessage) (any, *Error) {
		assert.Equal(t, MethodOutputs, method)
		return []Output{{TxHash: "0xAB", OutIndex: 1, Value: "100"}}, nil
	})
	outs, err := newClient(t, nil, srv.URL).Outputs(context.Background(), "Backbone", "addr", "CELL")
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, uint32(1), outs[0].OutIndex)
}

func TestSubmitOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		result    any
		rpcErr    *Error
		wantErr   error
		transient bool
	}{
		{"created", SubmitResult{Hash: "0x01", Status: StatusCreated}, nil, nil, false},
		{"not created", SubmitResult{Hash: "0x01", Status: StatusNotCreated, Reason: "mempool full"}, nil, walleterr.ErrTxNotCreated, false},
		{"rejected status", SubmitResult{Hash: "0x01", Status: StatusRejected}, nil, walleterr.ErrTxRejected, false},
		{"rejected code", nil, &Error{Code: CodeTxRejected, Message: "bad sig"}, walleterr.ErrTxRejected, false},
		{"not created code", nil, &Error{Code: CodeTxNotCreated, Message: "no"}, walleterr.ErrTxNotCreated, false},
		{"unknown code", nil, &Error{Code: -32600, Message: "invalid request"}, ErrRPCFailed, false},
		{"unknown status", SubmitResult{Status: "weird"}, nil, walleterr.ErrMalformedResponse, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newNode(t, func(_ *testing.T, method string, _ json.RawMessage) (any, *Error) {
				assert.Equal(t, MethodTxCreate, method)
				return tt.result, tt.rpcErr
			})

			res, err := newClient(t, nil, srv.URL).Submit(context.Background(), "Backbone", json.RawMessage(`{"items":[]}`))
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "0x01", res.Hash)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, walleterr.ErrNetworkError)
			assert.Equal(t, tt.transient, walleterr.IsTransient(err))
		})
	}
}

func TestTxStatusNotFound(t *testing.T) {
	t.Parallel()

	srv := newNode(t, func(_ *testing.T, _ string, _ json.RawMessage) (any, *Error) {
		return nil, &Error{Code: CodeNotFound, Message: "unknown hash"}
	})
	_, err := newClient(t, nil, srv.URL).TxStatus(context.Background(), "Backbone", "0x01")
	require.ErrorIs(t, err, walleterr.ErrTransactionNotFound)
}

func TestMalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"id mismatch", `{"jsonrpc":"2.0","id":"other","result":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			_, err := newClient(t, nil, srv.URL).TxStatus(context.Background(), "Backbone", "0x01")
			require.ErrorIs(t, err, walleterr.ErrMalformedResponse)
			assert.True(t, walleterr.IsTransient(err))
		})
	}
}

func TestMissingResult(t *testing.T) {
	t.Parallel()

	srv := newNode(t, func(_ *testing.T, _ string, _ json.RawMessage) (any, *Error) {
		return nil, nil
	})
	_, err := newClient(t, nil, srv.URL).TxStatus(context.Background(), "Backbone", "0x01")
	require.ErrorIs(t, err, walleterr.ErrMalformedResponse)
}

func TestNetworkFailures(t *testing.T) {
	t.Parallel()

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		m := metrics.New()
		_, err := newClient(t, m, srv.URL).Balance(context.Background(), "Backbone", "a", "CELL")
		require.ErrorIs(t, err, walleterr.ErrNetworkError)
		assert.True(t, walleterr.IsTransient(err))
		assert.Equal(t, int64(1), m.Snapshot().RPCErrorsTotal)
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newClient(t, nil, url).Balance(context.Background(), "Backbone", "a", "CELL")
		require.ErrorIs(t, err, walleterr.ErrNetworkError)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		srv := newNode(t, func(_ *testing.T, _ string, _ json.RawMessage) (any, *Error) {
			return BalanceResult{Value: "1"}, nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newClient(t, nil, srv.URL).Balance(ctx, "Backbone", "a", "CELL")
		require.ErrorIs(t, err, walleterr.ErrNetworkError)
	})
}

func TestBreakerFallsOverWithoutResending(t *testing.T) {
	t.Parallel()

	var primaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(primary.Close)

	fallback := newNode(t, func(_ *testing.T, _ string, _ json.RawMessage) (any, *Error) {
		return BalanceResult{Value: "7"}, nil
	})

	m := metrics.New()
	c := newClient(t, m, primary.URL, fallback.URL)
	ctx := context.Background()

	// Failures on a closed breaker are returned, not retried elsewhere.
	for range 5 {
		_, err := c.Balance(ctx, "Backbone", "a", "CELL")
		require.ErrorIs(t, err, walleterr.ErrNetworkError)
	}
	assert.Equal(t, int32(5), primaryHits.Load())

	res, err := c.Balance(ctx, "Backbone", "a", "CELL")
	require.NoError(t, err)
	assert.Equal(t, "7", res.Value)
	assert.Equal(t, int32(5), primaryHits.Load())
}

func TestNodeVerdictsDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newNode(t, func(_ *testing.T, _ string, _ json.RawMessage) (any, *Error) {
		hits.Add(1)
		return nil, &Error{Code: CodeNotFound, Message: "unknown"}
	})
	c := newClient(t, nil, srv.URL)

	for range 8 {
		_, err := c.TxStatus(context.Background(), "Backbone", "0x01")
		require.ErrorIs(t, err, walleterr.ErrTransactionNotFound)
	}
	assert.Equal(t, int32(8), hits.Load())
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	v, err := ParseValue("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)
	assert.Equal(t, 256, v.BitLen())

	_, err = ParseValue("1.5")
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
}
