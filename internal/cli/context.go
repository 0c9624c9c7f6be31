package cli

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/dnawallet/internal/cache"
	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/chain/cell"
	"github.com/mrz1836/dnawallet/internal/chain/eth"
	"github.com/mrz1836/dnawallet/internal/config"
	"github.com/mrz1836/dnawallet/internal/metrics"
	"github.com/mrz1836/dnawallet/internal/output"
	"github.com/mrz1836/dnawallet/internal/rpc"
	"github.com/mrz1836/dnawallet/internal/txstore"
	"github.com/mrz1836/dnawallet/internal/wallet"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// RegistryFactory builds the chains a command can use. Tests replace it.
type RegistryFactory func(cc *CommandContext) (*chain.Registry, error)

//nolint:gochecknoglobals // test seams
var (
	registryFactory RegistryFactory = buildRegistry

	// retryConfig applies to read-only queries; sends are never retried.
	retryConfig = chain.DefaultRetryConfig()
)

// CommandContext holds dependencies for CLI commands. The wallet store,
// journal and chain registry are opened on first use.
type CommandContext struct {
	Cfg     *config.Config
	Log     *config.Logger
	Fmt     *output.Formatter
	Metrics *metrics.Metrics

	wallets  *wallet.Store
	journal  *txstore.Store
	registry *chain.Registry
	balances *cache.BalanceCache
}

type cmdContextKey struct{}

// WithCmdContext stores cc in ctx.
func WithCmdContext(ctx context.Context, cc *CommandContext) context.Context {
	return context.WithValue(ctx, cmdContextKey{}, cc)
}

// GetCmdContext returns the CommandContext of a running command, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// Wallets returns the wallet store of the configured identity.
func (c *CommandContext) Wallets() (*wallet.Store, error) {
	if c.wallets == nil {
		s, err := wallet.NewStore(c.Cfg.WalletRoot(), c.Cfg.Identity, c.Cfg.Network.NetID, c.Log.Component("wallet"))
		if err != nil {
			return nil, err
		}
		c.wallets = s
	}
	return c.wallets, nil
}

// Journal opens the transaction journal.
func (c *CommandContext) Journal() (*txstore.Store, error) {
	if c.journal == nil {
		s, err := txstore.Open(c.Cfg.JournalDir(), c.Log.Component("txstore"))
		if err != nil {
			return nil, err
		}
		c.journal = s
	}
	return c.journal, nil
}

// Balances loads the balance cache. A corrupt file is logged and replaced.
func (c *CommandContext) Balances() *cache.BalanceCache {
	if c.balances == nil {
		b, err := cache.NewFileStorage(c.Cfg.CacheFile()).Load()
		if err != nil {
			c.Log.Warn().Err(err).Msg("loading balance cache")
		}
		if b == nil {
			b = cache.New()
		}
		b.Prune(cache.DefaultMaxAge)
		c.balances = b
	}
	return c.balances
}

// Chain returns the initialized chain of type t.
func (c *CommandContext) Chain(ctx context.Context, t chain.Type) (chain.Chain, error) {
	if c.registry == nil {
		r, err := registryFactory(c)
		if err != nil {
			return nil, err
		}
		c.registry = r
	}
	return c.registry.Init(ctx, t.String())
}

// Close releases the registry and the journal and saves the balance cache.
func (c *CommandContext) Close() {
	if c.balances != nil {
		if err := cache.NewFileStorage(c.Cfg.CacheFile()).Save(c.balances); err != nil {
			c.Log.Warn().Err(err).Msg("saving balance cache")
		}
		c.balances = nil
	}
	if c.registry != nil {
		c.registry.CleanupAll()
		c.registry = nil
	}
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			c.Log.Warn().Err(err).Msg("closing journal")
		}
		c.journal = nil
	}
}

// Decimals returns the native precision of a chain.
func (c *CommandContext) Decimals(t chain.Type) int32 {
	if t == chain.TypeETH {
		return eth.Decimals
	}
	return c.Cfg.Network.Decimals
}

// Ticker returns the native ticker of a chain.
func (c *CommandContext) Ticker(t chain.Type) string {
	if t == chain.TypeETH {
		return eth.Ticker
	}
	return c.Cfg.Network.NativeTicker
}

// buildRegistry registers the cell chain and, when an RPC URL is configured, eth.
func buildRegistry(cc *CommandContext) (*chain.Registry, error) {
	cfg := cc.Cfg
	journal, err := cc.Journal()
	if err != nil {
		return nil, err
	}

	node, err := rpc.New(rpc.Options{
		Endpoints:     cfg.Endpoints(),
		Chain:         chain.TypeCell.String(),
		Timeout:       cfg.Timeout(),
		RatePerSecond: cfg.RPC.RatePerSecond,
		Burst:         cfg.RPC.Burst,
		Metrics:       cc.Metrics,
		Logger:        cc.Log.Logger,
	})
	if err != nil {
		return nil, err
	}

	networkFee, err := cfg.NetworkFee()
	if err != nil {
		return nil, err
	}
	validatorFee, err := cfg.ValidatorFee()
	if err != nil {
		return nil, err
	}

	cellChain, err := cell.New(cell.Config{
		Network:      cfg.Network.Name,
		NetID:        cfg.Network.NetID,
		Ticker:       cfg.Network.NativeTicker,
		Decimals:     cfg.Network.Decimals,
		FeeCollector: cfg.Network.FeeCollector,
		NetworkFee:   networkFee,
		ValidatorFee: validatorFee,
	}, node,
		cell.WithJournal(journal),
		cell.WithMetrics(cc.Metrics),
		cell.WithLogger(cc.Log.Logger),
	)
	if err != nil {
		return nil, err
	}

	reg := chain.NewRegistry(cc.Log.Logger)
	if err := reg.Register(chain.TypeCell.String(), chain.TypeCell, cellChain); err != nil {
		return nil, err
	}

	if cfg.ETH.RPC != "" {
		ethCfg := eth.Config{RPCURL: cfg.ETH.RPC}
		if cfg.ETH.ChainID > 0 {
			ethCfg.ChainID = big.NewInt(cfg.ETH.ChainID)
		}
		ethChain, err := eth.New(ethCfg,
			eth.WithJournal(journal),
			eth.WithMetrics(cc.Metrics),
			eth.WithLogger(cc.Log.Logger),
		)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(chain.TypeETH.String(), chain.TypeETH, ethChain); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// parseChains parses --chain values. "all" selects every chain family.
func parseChains(values []string) ([]chain.Type, error) {
	var out []chain.Type
	seen := map[chain.Type]bool{}
	for _, v := range values {
		if v == "all" {
			return []chain.Type{chain.TypeCell, chain.TypeETH}, nil
		}
		t, ok := chain.ParseType(v)
		if !ok {
			return nil, walleterr.WithSuggestion(
				walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{"chain": v}),
				"use --chain cell, eth or all")
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no chain selected", walleterr.ErrInvalidInput)
	}
	return out, nil
}

// parseChain parses a single --chain value.
func parseChain(v string) (chain.Type, error) {
	t, ok := chain.ParseType(v)
	if !ok {
		return "", walleterr.WithSuggestion(
			walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{"chain": v}),
			"use --chain cell or eth")
	}
	return t, nil
}

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}
