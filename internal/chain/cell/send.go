package cell

import (
	"context"
	"fmt"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/pqsig"
	"github.com/mrz1836/dnawallet/internal/rpc"
	"github.com/mrz1836/dnawallet/internal/secure"
	"github.com/mrz1836/dnawallet/internal/txbuilder"
	"github.com/mrz1836/dnawallet/internal/txstore"
	"github.com/mrz1836/dnawallet/internal/utxo"
	"github.com/mrz1836/dnawallet/internal/walletfile"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Send transfers req.Amount of the native token from req.From to req.To.
//
// The transaction is assembled in a local builder that is dropped on any
// failure. req.PrivateKey is zeroed before Send returns. Submission happens
// at most once; a network failure after the request left is reported as
// transient and it is up to the caller to check TxStatus before resending.
func (c *Client) Send(ctx context.Context, req *chain.SendRequest) (result *chain.TransactionResult, err error) {
	if req != nil {
		defer secure.Zero(req.PrivateKey)
	}
	defer func() { c.metrics.RecordWalletOp("send", err) }()

	if err = req.Validate(c); err != nil {
		return nil, err
	}
	if req.Ticker != "" && req.Ticker != c.cfg.Ticker {
		return nil, walleterr.WithDetails(walleterr.ErrNotImplemented, map[string]string{
			"chain":     chain.TypeCell.String(),
			"operation": "send " + req.Ticker,
		})
	}

	sigType := req.SigType
	if sigType == pqsig.SigTypeNull {
		sigType = pqsig.SigTypeDilithium
	}
	scheme, err := pqsig.ForType(sigType)
	if err != nil {
		return nil, err
	}
	if len(req.PrivateKey) == 0 {
		return nil, fmt.Errorf("%w: missing private key", walleterr.ErrInvalidInput)
	}
	if walletfile.DeriveAddress(c.cfg.NetID, sigType, req.PublicKey) != req.From {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
			"reason": "public key does not belong to the sending address",
		})
	}

	fees, err := c.EstimateFee(ctx, req)
	if err != nil {
		return nil, err
	}
	if fees.ValidatorFee.IsZero() {
		return nil, fmt.Errorf("%w: validator fee must be positive", walleterr.ErrInvalidAmount)
	}
	required, err := utxo.Required(req.Amount, fees.NetworkFee, fees.ValidatorFee)
	if err != nil {
		return nil, err
	}

	available, err := c.spendable(ctx, req.From)
	if err != nil {
		return nil, err
	}
	sel, err := utxo.Select(available, required)
	if err != nil {
		return nil, err
	}

	b, err := c.assemble(req, sel, fees)
	if err != nil {
		return nil, err
	}
	if err = b.Sign(scheme, req.PrivateKey, req.PublicKey); err != nil {
		return nil, err
	}

	hash, err := b.Hash()
	if err != nil {
		return nil, err
	}
	body, err := b.MarshalSigned()
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("hash", hash).
		Int("inputs", len(sel.Inputs)).
		Str("amount", req.Amount.Dec()).
		Bool("change", sel.HasChange()).
		Msg("submitting transaction")

	res, submitErr := c.node.Submit(ctx, c.cfg.Network, body)
	if res != nil && res.Hash != "" {
		hash = res.Hash
	}

	result = &chain.TransactionResult{
		Hash:   hash,
		From:   req.From,
		To:     req.To,
		Amount: chain.FormatAmount(req.Amount, c.cfg.Decimals),
		Fee:    chain.FormatAmount(fees.Total, c.cfg.Decimals),
		Ticker: c.cfg.Ticker,
		Status: chain.StatusPending,
	}

	switch {
	case submitErr == nil:
		c.journalSend(result, sel, txstore.StatusPending, "")
		return result, nil
	case walleterr.Is(submitErr, walleterr.ErrTxRejected), walleterr.Is(submitErr, walleterr.ErrTxNotCreated):
		reason := ""
		if res != nil {
			reason = res.Reason
		}
		result.Status = chain.StatusRejected
		c.journalSend(result, sel, txstore.StatusRejected, reason)
		return nil, fmt.Errorf("submit %s: %w", hash, submitErr)
	default:
		// The node may have created the transaction; keep its inputs reserved.
		c.journalSend(result, sel, txstore.StatusPending, "submission outcome unknown")
		return nil, fmt.Errorf("submit %s: %w", hash, submitErr)
	}
}

// assemble appends the items in wire order: inputs, recipient, network fee,
// change, custom data, validator fee.
func (c *Client) assemble(req *chain.SendRequest, sel *utxo.Selection, fees *chain.FeeEstimate) (*txbuilder.Builder, error) {
	b := txbuilder.New(uint64(c.now().Unix())) //nolint:gosec // wall clock is positive

	for _, in := range sel.Inputs {
		if err := b.AddInput(in.TxHash, in.OutIndex); err != nil {
			return nil, err
		}
	}
	if err := b.AddOutput(req.To, req.Amount); err != nil {
		return nil, err
	}
	if !fees.NetworkFee.IsZero() {
		if err := b.AddOutput(c.cfg.FeeCollector, fees.NetworkFee); err != nil {
			return nil, fmt.Errorf("network fee output: %w", err)
		}
	}
	if sel.HasChange() {
		if err := b.AddOutput(req.From, sel.Change); err != nil {
			return nil, fmt.Errorf("change output: %w", err)
		}
	}
	if len(req.CustomData) > 0 {
		if err := b.AddCustomData(req.DataType, req.CustomData); err != nil {
			return nil, err
		}
	}
	if err := b.AddFeeOutput(fees.ValidatorFee); err != nil {
		return nil, fmt.Errorf("validator fee output: %w", err)
	}
	return b, nil
}

// spendable lists the node's outputs for from in node order, minus those
// already spent by journaled pending transactions.
func (c *Client) spendable(ctx context.Context, from string) ([]utxo.UTXO, error) {
	outs, err := c.node.Outputs(ctx, c.cfg.Network, from, c.cfg.Ticker)
	if err != nil {
		return nil, fmt.Errorf("outputs of %s: %w", from, err)
	}
	if len(outs) == 0 {
		return nil, walleterr.WithDetails(walleterr.ErrNoUTXOs, map[string]string{"address": from})
	}

	var reserved map[string]struct{}
	if c.journal != nil {
		if reserved, err = c.journal.PendingSpends(chain.TypeCell.String(), from); err != nil {
			c.logger.Warn().Err(err).Msg("reading journal, pending spends not excluded")
		}
	}

	list := make([]utxo.UTXO, 0, len(outs))
	for _, o := range outs {
		hash, ok := txbuilder.ParseHash(o.TxHash)
		if !ok {
			return nil, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"tx_hash": o.TxHash})
		}
		value, err := rpc.ParseValue(o.Value)
		if err != nil {
			return nil, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"value": o.Value})
		}
		if _, skip := reserved[(txstore.Outpoint{TxHash: o.TxHash, OutIndex: o.OutIndex}).Key()]; skip {
			continue
		}
		list = append(list, utxo.UTXO{TxHash: hash, OutIndex: o.OutIndex, Value: value})
	}
	return list, nil
}

func (c *Client) journalSend(res *chain.TransactionResult, sel *utxo.Selection, status, reason string) {
	if c.journal == nil {
		return
	}
	inputs := make([]txstore.Outpoint, len(sel.Inputs))
	for i, in := range sel.Inputs {
		inputs[i] = txstore.Outpoint{TxHash: txbuilder.FormatHash(in.TxHash), OutIndex: in.OutIndex}
	}
	err := c.journal.Put(&txstore.Record{
		Hash:    res.Hash,
		Chain:   chain.TypeCell.String(),
		Network: c.cfg.Network,
		From:    res.From,
		To:      res.To,
		Amount:  res.Amount,
		Fee:     res.Fee,
		Ticker:  res.Ticker,
		Status:  status,
		Reason:  reason,
		Inputs:  inputs,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("hash", res.Hash).Msg("journal write failed")
	}
}
