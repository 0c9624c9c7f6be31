// Package rpc is the JSON-RPC channel to a cell network node.
//
// The client never retries. Each call reports one of the outcomes of the
// wallet error taxonomy: a transient transport failure, a malformed
// response, or a node verdict such as rejected or not created. Endpoints
// are tried in order only while their circuit breaker is open, which means
// a request is never sent twice.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/mrz1836/dnawallet/internal/metrics"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

const (
	// DefaultTimeout bounds a single request when the caller's context has no deadline.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 4 << 20

	jsonRPCVersion = "2.0"
)

// Options configures a Client.
type Options struct {
	Endpoints     []string
	Chain         string // metrics label
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Metrics       *metrics.Metrics
	Logger        zerolog.Logger
}

type endpoint struct {
	url     string
	breaker *gobreaker.CircuitBreaker
}

// Client sends JSON-RPC 2.0 requests to one primary endpoint and optional fallbacks.
type Client struct {
	endpoints  []*endpoint
	chain      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *Limiter
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New creates a client. At least one endpoint is required.
func New(opts Options) (*Client, error) {
	if len(opts.Endpoints) == 0 {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"field": "rpc endpoint"})
	}

	c := &Client{
		chain:      opts.Chain,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		limiter:    NewLimiter(opts.RatePerSecond, opts.Burst),
		metrics:    opts.Metrics,
		logger:     opts.Logger.With().Str("component", "rpc").Logger(),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.chain == "" {
		c.chain = "cell"
	}

	for _, url := range opts.Endpoints {
		if url == "" {
			continue
		}
		c.endpoints = append(c.endpoints, &endpoint{url: url, breaker: c.newBreaker(url)})
	}
	if len(c.endpoints) == 0 {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"field": "rpc endpoint"})
	}
	return c, nil
}

func (c *Client) newBreaker(url string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    url,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.metrics.SetBreakerState(name, int(to))
			switch {
			case to == gobreaker.StateOpen:
				c.logger.Warn().Str("endpoint", name).Msg("node seems down, stop sending requests")
			case from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen:
				c.logger.Info().Str("endpoint", name).Msg("checking node status")
			case from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed:
				c.logger.Info().Str("endpoint", name).Msg("node seems ok, resume requests")
			}
		},
	})
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Call invokes method with params and decodes the result into out (which may be nil).
func (c *Client) Call(ctx context.Context, method string, params, out any) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.ObserveRPC(c.chain, method, outcome(err), started)
	}()

	req := request{JSONRPC: jsonRPCVersion, Method: method, Params: params, ID: uuid.NewString()}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", method, err)
	}

	var resp *response
	for _, ep := range c.endpoints {
		resp, err = c.send(ctx, ep, req.ID, body)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Debug().Str("endpoint", ep.url).Str("method", method).Msg("breaker open, trying next endpoint")
			continue
		}
		break
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{
			"method": method,
			"reason": "all endpoints unavailable",
		})
	}
	if err != nil {
		return err
	}

	if resp.Error != nil {
		return resp.Error.classify()
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return malformed(method, "missing result")
	}
	if err = json.Unmarshal(resp.Result, out); err != nil {
		return malformed(method, err.Error())
	}
	return nil
}

// send performs one HTTP exchange through the endpoint's breaker. Only
// transport and framing failures count against the breaker; a node verdict
// in the error object is a healthy response.
func (c *Client) send(ctx context.Context, ep *endpoint, id string, body []byte) (*response, error) {
	result, err := ep.breaker.Execute(func() (any, error) {
		if err := c.limiter.Wait(ctx, ep.url); err != nil {
			return nil, network(ep.url, err)
		}

		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating HTTP request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, network(ep.url, err)
		}
		defer func() { _ = httpResp.Body.Close() }()

		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, network(ep.url, fmt.Errorf("http status %d", httpResp.StatusCode))
		}

		raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
		if err != nil {
			return nil, network(ep.url, err)
		}

		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, malformed(ep.url, fmt.Sprintf("http status %d: %v", httpResp.StatusCode, err))
		}
		if resp.ID != id {
			return nil, malformed(ep.url, "response id does not match request")
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*response), nil //nolint:forcetypeassert // Execute returns what the closure returned
}

func network(where string, cause error) error {
	return walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{
		"endpoint": where,
		"reason":   cause.Error(),
	})
}

func malformed(where, reason string) error {
	return walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{
		"at":     where,
		"reason": reason,
	})
}
