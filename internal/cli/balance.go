package cli

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/mrz1836/dnawallet/internal/cache"
	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/output"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	balanceChains  []string
	balanceTicker  string
	balanceAddress string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance [wallet]",
	Short: "Show wallet balances",
	Long: `Query the balance of a wallet's addresses, or of any address given with --address.

Balance queries are read-only and are retried on transient network errors.`,
	Example: `  dnawallet balance main
  dnawallet balance main --chain cell --ticker KEL
  dnawallet balance --chain eth --address 0x9858EfFD232B4033E47d90003D41EC34EcaEda94`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBalance,
}

// balanceRow is one line of balance output. Cached rows come from the last
// successful query because the network could not be reached.
type balanceRow struct {
	Wallet    string     `json:"wallet,omitempty"`
	Chain     chain.Type `json:"chain"`
	Address   string     `json:"address"`
	Balance   string     `json:"balance"`
	Ticker    string     `json:"ticker"`
	Raw       string     `json:"raw"`
	Cached    bool       `json:"cached,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func runBalance(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	targets, err := balanceTargets(cmd, args)
	if err != nil {
		return err
	}

	rows := make([]balanceRow, 0, len(targets))
	for _, tg := range targets {
		row, err := queryBalance(cmd, tg)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(rows)
	}
	tbl := output.NewTable("CHAIN", "ADDRESS", "BALANCE").AlignRight(2)
	for _, r := range rows {
		bal := r.Balance + " " + r.Ticker
		if r.Cached {
			bal += " (cached " + r.UpdatedAt.Local().Format("2006-01-02 15:04") + ")"
		}
		tbl.AddRow(r.Chain.String(), r.Address, bal)
	}
	return tbl.Render(cc.Fmt.Writer())
}

type balanceTarget struct {
	wallet  string
	chain   chain.Type
	address string
}

// balanceTargets resolves the addresses to query: the explicit --address, or
// every existing wallet of the selected chains.
func balanceTargets(cmd *cobra.Command, args []string) ([]balanceTarget, error) {
	cc := GetCmdContext(cmd)

	types, err := parseChains(balanceChains)
	if err != nil {
		return nil, err
	}

	if balanceAddress != "" {
		if len(args) > 0 {
			return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "give a wallet name or --address, not both")
		}
		if len(types) != 1 {
			return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "--address needs a single --chain")
		}
		return []balanceTarget{{chain: types[0], address: balanceAddress}}, nil
	}
	if len(args) == 0 {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "give a wallet name or --address")
	}

	store, err := cc.Wallets()
	if err != nil {
		return nil, err
	}
	var out []balanceTarget
	for _, t := range types {
		exists, err := store.Exists(t, args[0])
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		w, err := store.Open(t, args[0], nil)
		if err != nil {
			return nil, err
		}
		out = append(out, balanceTarget{wallet: w.Name, chain: t, address: w.Address})
		w.Destroy()
	}
	if len(out) == 0 {
		return nil, walleterr.WithDetails(walleterr.ErrWalletNotFound, map[string]string{"name": args[0]})
	}
	return out, nil
}

func queryBalance(cmd *cobra.Command, tg balanceTarget) (balanceRow, error) {
	cc := GetCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, cc.Cfg.Timeout()*4)
	defer cancel()

	c, err := cc.Chain(ctx, tg.chain)
	if err != nil {
		return balanceRow{}, err
	}
	if err := c.ValidateAddress(tg.address); err != nil {
		return balanceRow{}, err
	}

	bal, err := chain.RetryWithConfig(ctx, retryConfig, func() (*chain.Balance, error) {
		return c.Balance(ctx, tg.address, balanceTicker)
	})
	cc.Metrics.RecordWalletOp("balance", err)
	if err != nil {
		if row, ok := cachedBalance(cc, tg, err); ok {
			return row, nil
		}
		return balanceRow{}, err
	}
	cc.Balances().Put(tg.chain, bal)

	return balanceRow{
		Wallet:  tg.wallet,
		Chain:   tg.chain,
		Address: bal.Address,
		Balance: chain.FormatAmount(bal.Value, bal.Decimals),
		Ticker:  bal.Ticker,
		Raw:     bal.Value.Dec(),
	}, nil
}

// cachedBalance answers from the cache when err is a transient network failure.
func cachedBalance(cc *CommandContext, tg balanceTarget, err error) (balanceRow, bool) {
	if !walleterr.IsTransient(err) {
		return balanceRow{}, false
	}
	ticker := balanceTicker
	if ticker == "" {
		ticker = cc.Ticker(tg.chain)
	}
	e, ok, age := cc.Balances().Get(tg.chain, tg.address, ticker)
	if !ok || age > cache.DefaultMaxAge {
		return balanceRow{}, false
	}
	v, convErr := uint256.FromDecimal(e.Value)
	if convErr != nil {
		return balanceRow{}, false
	}

	output.Warnf("%s unreachable, showing balance from %s ago", tg.chain, age.Round(time.Second))
	cc.Log.Warn().Err(err).Str("chain", tg.chain.String()).Str("address", tg.address).Msg("using cached balance")
	updated := e.UpdatedAt
	return balanceRow{
		Wallet:    tg.wallet,
		Chain:     tg.chain,
		Address:   e.Address,
		Balance:   chain.FormatAmount(v, e.Decimals),
		Ticker:    e.Ticker,
		Raw:       e.Value,
		Cached:    true,
		UpdatedAt: &updated,
	}, true
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	balanceCmd.Flags().StringSliceVar(&balanceChains, "chain", []string{"all"}, chainFlagUsage())
	balanceCmd.Flags().StringVar(&balanceTicker, "ticker", "", "token ticker (default: the chain's native token)")
	balanceCmd.Flags().StringVar(&balanceAddress, "address", "", "query this address instead of a wallet")
	rootCmd.AddCommand(balanceCmd)
}
