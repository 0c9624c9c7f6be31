package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/output"
	"github.com/mrz1836/dnawallet/internal/txstore"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	txChain     string
	txListChain string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Inspect transactions",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txStatusCmd = &cobra.Command{
	Use:   "status <hash>",
	Short: "Query the status of a transaction",
	Example: `  dnawallet tx status 0x3A9F...
  dnawallet tx status 0xabc... --chain eth`,
	Args: cobra.ExactArgs(1),
	RunE: runTxStatus,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions sent from this machine",
	Args:  cobra.NoArgs,
	RunE:  runTxList,
}

func runTxStatus(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	t, err := parseChain(txChain)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, cc.Cfg.Timeout()*4)
	defer cancel()

	c, err := cc.Chain(ctx, t)
	if err != nil {
		return err
	}
	res, err := chain.RetryWithConfig(ctx, retryConfig, func() (*chain.TxStatusResult, error) {
		return c.TxStatus(ctx, args[0])
	})
	if err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(res)
	}
	w := cc.Fmt.Writer()
	out(w, "Hash:   %s\n", res.Hash)
	out(w, "Status: %s\n", res.Status)
	if res.Confirmations > 0 {
		out(w, "Confirmations: %d\n", res.Confirmations)
	}
	if res.Reason != "" {
		out(w, "Reason: %s\n", res.Reason)
	}
	return nil
}

func runTxList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	var chainName string
	if txListChain != "" {
		t, err := parseChain(txListChain)
		if err != nil {
			return err
		}
		chainName = t.String()
	}

	journal, err := cc.Journal()
	if err != nil {
		return err
	}
	recs, err := journal.List(chainName)
	if err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		if recs == nil {
			recs = []*txstore.Record{}
		}
		return cc.Fmt.Print(recs)
	}
	if len(recs) == 0 {
		outln(cc.Fmt.Writer(), "No transactions recorded.")
		return nil
	}
	tbl := output.NewTable("CREATED", "CHAIN", "STATUS", "AMOUNT", "TO", "HASH").AlignRight(3)
	for _, r := range recs {
		tbl.AddRow(r.CreatedAt.Format("2006-01-02 15:04"), r.Chain, r.Status, r.Amount+" "+r.Ticker, r.To, r.Hash)
	}
	return tbl.Render(cc.Fmt.Writer())
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	txStatusCmd.Flags().StringVar(&txChain, "chain", chain.TypeCell.String(), "chain: cell or eth")
	txListCmd.Flags().StringVar(&txListChain, "chain", "", "only this chain")
	txCmd.AddCommand(txStatusCmd, txListCmd)
	rootCmd.AddCommand(txCmd)
}
