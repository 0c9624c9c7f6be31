// Package cell implements the chain.Chain operations for the cell network:
// UTXO lookup, transaction assembly in the validator wire format,
// post-quantum signing and submission over JSON-RPC.
package cell

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/metrics"
	"github.com/mrz1836/dnawallet/internal/rpc"
	"github.com/mrz1836/dnawallet/internal/txstore"
	"github.com/mrz1836/dnawallet/internal/walletfile"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

const (
	// DefaultDecimals is the precision of the native token.
	DefaultDecimals int32 = 18

	// DefaultTicker is the native token of the default network.
	DefaultTicker = "CELL"
)

// Node is the slice of the RPC client the chain needs.
type Node interface {
	Balance(ctx context.Context, net, address, ticker string) (*rpc.BalanceResult, error)
	Outputs(ctx context.Context, net, address, ticker string) ([]rpc.Output, error)
	Submit(ctx context.Context, net string, tx json.RawMessage) (*rpc.SubmitResult, error)
	TxStatus(ctx context.Context, net, hash string) (*rpc.StatusResult, error)
}

// Config describes the network a Client talks to.
type Config struct {
	Network      string // node-side network name, e.g. "Backbone"
	NetID        uint64
	Ticker       string
	Decimals     int32
	FeeCollector string       // receives the network fee; empty disables it
	NetworkFee   *uint256.Int // fixed per transaction
	ValidatorFee *uint256.Int // default when a request carries none
}

// Client is the cell chain.
type Client struct {
	cfg     Config
	node    Node
	journal *txstore.Store
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithJournal records submitted transactions and keeps their inputs out of later selections.
func WithJournal(s *txstore.Store) Option { return func(c *Client) { c.journal = s } }

// WithMetrics records wallet operations.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.logger = l } }

// WithClock overrides the transaction timestamp source.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// New creates a client for cfg backed by node.
func New(cfg Config, node Node, opts ...Option) (*Client, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", walleterr.ErrInvalidInput)
	}
	if cfg.Network == "" {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"field": "network"})
	}
	if cfg.Ticker == "" {
		cfg.Ticker = DefaultTicker
	}
	if cfg.Decimals == 0 {
		cfg.Decimals = DefaultDecimals
	}
	if cfg.NetworkFee == nil {
		cfg.NetworkFee = new(uint256.Int)
	}
	if cfg.ValidatorFee == nil {
		cfg.ValidatorFee = new(uint256.Int)
	}

	c := &Client{cfg: cfg, node: node, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("chain", chain.TypeCell.String()).Str("net", cfg.Network).Logger()
	return c, nil
}

// Init checks the configured fee collector belongs to the network and that
// a validator fee is set.
func (c *Client) Init(context.Context) error {
	if c.cfg.FeeCollector == "" {
		if !c.cfg.NetworkFee.IsZero() {
			return walleterr.WithSuggestion(
				walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"field": "fee_collector"}),
				"set network.fee_collector or a zero network fee")
		}
	} else if err := c.ValidateAddress(c.cfg.FeeCollector); err != nil {
		return fmt.Errorf("fee collector: %w", err)
	}
	if c.cfg.ValidatorFee.IsZero() {
		return walleterr.WithSuggestion(
			walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"field": "validator_fee"}),
			"set network.validator_fee to a positive amount")
	}
	return nil
}

// Close implements chain.Chain. The journal belongs to the caller.
func (c *Client) Close() error { return nil }

// ValidateAddress checks the address checksum and network.
func (c *Client) ValidateAddress(address string) error {
	return walletfile.ValidateAddress(address, c.cfg.NetID)
}

// Balance returns the balance of address in ticker (native when empty).
func (c *Client) Balance(ctx context.Context, address, ticker string) (*chain.Balance, error) {
	if err := c.ValidateAddress(address); err != nil {
		return nil, err
	}
	if ticker == "" {
		ticker = c.cfg.Ticker
	}

	res, err := c.node.Balance(ctx, c.cfg.Network, address, ticker)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", address, err)
	}
	value, err := rpc.ParseValue(res.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: balance value %q", walleterr.ErrMalformedResponse, res.Value)
	}

	decimals := res.Decimals
	if decimals == 0 {
		decimals = c.cfg.Decimals
	}
	return &chain.Balance{Address: address, Ticker: ticker, Value: value, Decimals: decimals}, nil
}

// EstimateFee returns the fixed network fee plus the validator fee of req.
func (c *Client) EstimateFee(_ context.Context, req *chain.SendRequest) (*chain.FeeEstimate, error) {
	validatorFee := c.validatorFee(req)
	total, overflow := new(uint256.Int).AddOverflow(c.cfg.NetworkFee, validatorFee)
	if overflow {
		return nil, fmt.Errorf("%w: fees overflow 256 bits", walleterr.ErrInvalidAmount)
	}
	return &chain.FeeEstimate{
		Ticker:       c.cfg.Ticker,
		NetworkFee:   c.cfg.NetworkFee.Clone(),
		ValidatorFee: validatorFee.Clone(),
		Total:        total,
		Decimals:     c.cfg.Decimals,
	}, nil
}

func (c *Client) validatorFee(req *chain.SendRequest) *uint256.Int {
	if req != nil && req.ValidatorFee != nil && !req.ValidatorFee.IsZero() {
		return req.ValidatorFee
	}
	return c.cfg.ValidatorFee
}

// TxStatus asks the node about hash and updates the journal.
func (c *Client) TxStatus(ctx context.Context, hash string) (*chain.TxStatusResult, error) {
	if hash == "" {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"field": "hash"})
	}

	res, err := c.node.TxStatus(ctx, c.cfg.Network, hash)
	if walleterr.Is(err, walleterr.ErrTransactionNotFound) {
		return &chain.TxStatusResult{Hash: hash, Status: chain.StatusNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("status of %s: %w", hash, err)
	}

	out := &chain.TxStatusResult{Hash: hash, Confirmations: res.Confirmations, Reason: res.Reason}
	switch res.Status {
	case rpc.StatusConfirmed:
		out.Status = chain.StatusConfirmed
	case rpc.StatusRejected, rpc.StatusNotCreated:
		out.Status = chain.StatusRejected
	case rpc.StatusPending, rpc.StatusCreated:
		out.Status = chain.StatusPending
	default:
		return nil, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"status": res.Status})
	}

	if c.journal != nil && out.Status != chain.StatusPending {
		if jerr := c.journal.UpdateStatus(hash, string(out.Status), out.Reason); jerr != nil &&
			!walleterr.Is(jerr, walleterr.ErrTransactionNotFound) {
			c.logger.Warn().Err(jerr).Str("hash", hash).Msg("journal status update failed")
		}
	}
	return out, nil
}
