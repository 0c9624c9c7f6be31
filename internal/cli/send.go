package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/output"
	"github.com/mrz1836/dnawallet/internal/secure"
	"github.com/mrz1836/dnawallet/internal/wallet"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	sendWallet       string
	sendChain        string
	sendTo           string
	sendAmount       string
	sendValidatorFee string
	sendData         string
	sendDataType     uint16
	sendYes          bool
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send native tokens",
	Long: `Build, sign and submit a transfer of the chain's native token.

The fee is shown before anything is signed. Submission is attempted exactly
once: after a timeout, check the result with 'dnawallet tx status' before
sending again.`,
	Example: `  dnawallet send --wallet main --to <address> --amount 1.5
  dnawallet send --wallet main --chain eth --to 0x... --amount 0.01 --yes`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

// sendResult is the JSON form of a completed send.
type sendResult struct {
	*chain.TransactionResult

	Chain chain.Type `json:"chain"`
}

func runSend(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	t, err := parseChain(sendChain)
	if err != nil {
		return err
	}
	decimals := cc.Decimals(t)
	amount, err := chain.ParseAmount(sendAmount, decimals)
	if err != nil {
		return err
	}

	w, err := unlockWallet(cmd, t, sendWallet)
	if err != nil {
		return err
	}
	defer w.Destroy()

	req := &chain.SendRequest{
		From:      w.Address,
		To:        sendTo,
		Amount:    amount,
		PublicKey: w.PublicKey,
		SigType:   w.SigType,
	}
	if sendValidatorFee != "" {
		if t != chain.TypeCell {
			return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "--fee applies to the cell chain only")
		}
		if req.ValidatorFee, err = chain.ParseAmount(sendValidatorFee, decimals); err != nil {
			return err
		}
	}
	if sendData != "" {
		if t != chain.TypeCell {
			return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "--data applies to the cell chain only")
		}
		req.CustomData = []byte(sendData)
		req.DataType = sendDataType
	}

	ctx, cancel := contextWithTimeout(cmd, cc.Cfg.Timeout()*2)
	defer cancel()

	c, err := cc.Chain(ctx, t)
	if err != nil {
		return err
	}
	if err := req.Validate(c); err != nil {
		return err
	}

	fee, err := c.EstimateFee(ctx, req)
	if err != nil {
		return err
	}

	if !sendYes {
		if cc.Fmt.IsJSON() {
			return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "pass --yes to send in JSON mode")
		}
		wr := cc.Fmt.Writer()
		out(wr, "From:   %s\n", req.From)
		out(wr, "To:     %s\n", req.To)
		out(wr, "Amount: %s %s\n", chain.FormatAmount(amount, decimals), cc.Ticker(t))
		out(wr, "Fee:    %s %s\n", chain.FormatAmount(fee.Total, fee.Decimals), fee.Ticker)
		if !promptConfirmFn(cmd, "Send this transaction?") {
			output.Info("cancelled")
			return nil
		}
	}

	// Send zeroes the key copy; the wallet's own buffer is wiped by Destroy.
	req.PrivateKey = w.PrivateKey.Copy()
	// The chain client records the send metric.
	res, err := c.Send(ctx, req)
	if err != nil {
		cc.Log.Error().Err(err).Str("chain", t.String()).Str("wallet", sendWallet).Msg("send failed")
		return err
	}
	cc.Log.Info().Str("chain", t.String()).Str("hash", res.Hash).Msg("transaction submitted")

	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(sendResult{TransactionResult: res, Chain: t})
	}
	wr := cc.Fmt.Writer()
	out(wr, "Transaction submitted: %s\n", res.Hash)
	out(wr, "Status: %s\n", res.Status)
	return nil
}

// unlockWallet opens a wallet with its private key available, asking for the
// password only when the wallet is protected.
func unlockWallet(cmd *cobra.Command, t chain.Type, name string) (*wallet.ChainWallet, error) {
	cc := GetCmdContext(cmd)
	if name == "" {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "specify the wallet with --wallet")
	}
	store, err := cc.Wallets()
	if err != nil {
		return nil, err
	}

	w, err := store.Open(t, name, nil)
	if err != nil {
		return nil, err
	}
	if !w.Locked() {
		return w, nil
	}

	password, err := readPassword(cmd, fmt.Sprintf("Password for %s wallet %q: ", t, name))
	if err != nil {
		return nil, err
	}
	defer secure.Zero(password)
	return store.Unlock(t, name, password)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	f := sendCmd.Flags()
	f.StringVarP(&sendWallet, "wallet", "w", "", "wallet to send from")
	f.StringVar(&sendChain, "chain", chain.TypeCell.String(), "chain: cell or eth")
	f.StringVar(&sendTo, "to", "", "recipient address")
	f.StringVar(&sendAmount, "amount", "", "amount in whole units, e.g. 1.5")
	f.StringVar(&sendValidatorFee, "fee", "", "validator fee override (cell only)")
	f.StringVar(&sendData, "data", "", "custom data to attach (cell only)")
	f.Uint16Var(&sendDataType, "data-type", 0, "custom data type tag (cell only)")
	f.BoolVarP(&sendYes, "yes", "y", false, "skip the confirmation prompt")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(sendCmd)
}
