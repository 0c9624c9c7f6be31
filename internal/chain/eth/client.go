// Package eth implements chain.Chain for Ethereum on go-ethereum's client.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/metrics"
	"github.com/mrz1836/dnawallet/internal/txstore"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

const (
	// Decimals is the precision of ETH.
	Decimals int32 = 18

	// Ticker is the native asset.
	Ticker = "ETH"

	// GasLimitTransfer is the gas of a plain value transfer.
	GasLimitTransfer uint64 = 21000
)

// ErrRPCURLRequired is returned when neither a URL nor a backend is configured.
var ErrRPCURLRequired = &walleterr.WalletError{
	Code:     "ETH_RPC_URL_REQUIRED",
	Message:  "RPC URL is required",
	ExitCode: walleterr.ExitInput,
	Category: walleterr.CategoryInput,
}

// Backend is the node API the client uses. *ethclient.Client implements it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

// Config selects the node.
type Config struct {
	RPCURL  string
	ChainID *big.Int // queried from the node when nil
}

// Client is the ETH chain.
type Client struct {
	cfg     Config
	mu      sync.Mutex
	backend Backend
	chainID *big.Int
	nonces  *NonceManager
	journal *txstore.Store
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBackend uses b instead of dialing cfg.RPCURL.
func WithBackend(b Backend) Option { return func(c *Client) { c.backend = b } }

// WithJournal records sent transactions.
func WithJournal(s *txstore.Store) Option { return func(c *Client) { c.journal = s } }

// WithMetrics records wallet operations.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.logger = l } }

// New creates a client. The connection is made by Init.
func New(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{cfg: cfg, nonces: NewNonceManager(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.backend == nil && cfg.RPCURL == "" {
		return nil, ErrRPCURLRequired
	}
	c.logger = c.logger.With().Str("chain", chain.TypeETH.String()).Logger()
	return c, nil
}

// Init dials the node if needed and resolves the chain ID.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.connect(ctx)
	return err
}

// Close closes the node connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
	return nil
}

// connect returns the backend, dialing on first use. A failed attempt can be retried.
func (c *Client) connect(ctx context.Context) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend == nil {
		if c.cfg.RPCURL == "" {
			return nil, ErrRPCURLRequired
		}
		ec, err := ethclient.DialContext(ctx, c.cfg.RPCURL)
		if err != nil {
			return nil, classify("dial", err)
		}
		c.backend = ec
	}

	if c.chainID == nil {
		if c.cfg.ChainID != nil {
			c.chainID = c.cfg.ChainID
		} else {
			id, err := c.backend.ChainID(ctx)
			if err != nil {
				return nil, classify("chain id", err)
			}
			c.chainID = id
		}
	}
	return c.backend, nil
}

// ValidateAddress implements chain.Chain.
func (c *Client) ValidateAddress(address string) error {
	return ValidateChecksumAddress(address)
}

// Balance returns the ETH balance of address. Token balances are not supported.
func (c *Client) Balance(ctx context.Context, address, ticker string) (*chain.Balance, error) {
	if ticker != "" && ticker != Ticker {
		return nil, walleterr.WithDetails(walleterr.ErrNotImplemented, map[string]string{
			"chain":     chain.TypeETH.String(),
			"operation": "balance " + ticker,
		})
	}
	if err := c.ValidateAddress(address); err != nil {
		return nil, err
	}

	b, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	wei, err := b.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, classify("balance", err)
	}
	value, overflow := uint256.FromBig(wei)
	if overflow || wei.Sign() < 0 {
		return nil, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"balance": wei.String()})
	}
	return &chain.Balance{Address: address, Ticker: Ticker, Value: value, Decimals: Decimals}, nil
}

// gasQuote is the gas price and limit for a request.
type gasQuote struct {
	price *big.Int
	limit uint64
}

func (q gasQuote) total() *big.Int {
	return new(big.Int).Mul(q.price, new(big.Int).SetUint64(q.limit))
}

func (c *Client) quote(ctx context.Context, b Backend, req *chain.SendRequest) (gasQuote, error) {
	price, err := b.SuggestGasPrice(ctx)
	if err != nil {
		return gasQuote{}, classify("gas price", err)
	}

	limit := GasLimitTransfer
	if req != nil {
		msg := ethereum.CallMsg{Data: req.CustomData}
		if req.From != "" {
			msg.From = common.HexToAddress(req.From)
		}
		if req.To != "" {
			to := common.HexToAddress(req.To)
			msg.To = &to
		}
		if req.Amount != nil {
			msg.Value = req.Amount.ToBig()
		}
		if est, err := b.EstimateGas(ctx, msg); err == nil && est > 0 {
			limit = est
		} else if err != nil {
			c.logger.Debug().Err(err).Msg("gas estimate failed, using transfer default")
		}
	}
	return gasQuote{price: price, limit: limit}, nil
}

// EstimateFee returns gas price times gas limit for req.
func (c *Client) EstimateFee(ctx context.Context, req *chain.SendRequest) (*chain.FeeEstimate, error) {
	b, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	q, err := c.quote(ctx, b, req)
	if err != nil {
		return nil, err
	}
	total, overflow := uint256.FromBig(q.total())
	if overflow {
		return nil, fmt.Errorf("%w: fee overflows 256 bits", walleterr.ErrInvalidAmount)
	}
	return &chain.FeeEstimate{
		Ticker:       Ticker,
		NetworkFee:   total.Clone(),
		ValidatorFee: new(uint256.Int),
		Total:        total,
		Decimals:     Decimals,
	}, nil
}

// TxStatus reports receipt status and confirmation depth for hash.
func (c *Client) TxStatus(ctx context.Context, hash string) (*chain.TxStatusResult, error) {
	raw := common.FromHex(hash)
	if len(raw) != common.HashLength {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"hash": hash})
	}
	h := common.BytesToHash(raw)

	b, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	out := &chain.TxStatusResult{Hash: h.Hex()}
	receipt, err := b.TransactionReceipt(ctx, h)
	switch {
	case errors.Is(err, ethereum.NotFound):
		// Known to the node but not mined yet.
		_, _, terr := b.TransactionByHash(ctx, h)
		switch {
		case errors.Is(terr, ethereum.NotFound):
			out.Status = chain.StatusNotFound
		case terr != nil:
			return nil, classify("transaction", terr)
		default:
			out.Status = chain.StatusPending
		}
		return out, nil
	case err != nil:
		return nil, classify("receipt", err)
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		out.Status = chain.StatusConfirmed
	} else {
		out.Status = chain.StatusRejected
		out.Reason = "execution reverted"
	}
	if head, herr := b.BlockNumber(ctx); herr == nil && receipt.BlockNumber != nil && head >= receipt.BlockNumber.Uint64() {
		out.Confirmations = head - receipt.BlockNumber.Uint64() + 1
	}

	if c.journal != nil {
		if jerr := c.journal.UpdateStatus(out.Hash, string(out.Status), out.Reason); jerr != nil &&
			!walleterr.Is(jerr, walleterr.ErrTransactionNotFound) {
			c.logger.Warn().Err(jerr).Str("hash", out.Hash).Msg("journal status update failed")
		}
	}
	return out, nil
}

// classify maps a go-ethereum error onto the wallet taxonomy. A JSON-RPC
// error object is the node's verdict; anything else is a transport failure.
func classify(op string, err error) error {
	if errors.Is(err, ethereum.NotFound) {
		return walleterr.WithDetails(walleterr.ErrTransactionNotFound, map[string]string{"op": op})
	}
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return walleterr.WithDetails(walleterr.ErrTxRejected, map[string]string{
			"op":     op,
			"code":   fmt.Sprintf("%d", rpcErr.ErrorCode()),
			"reason": rpcErr.Error(),
		})
	}
	return walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{
		"op":     op,
		"reason": err.Error(),
	})
}
