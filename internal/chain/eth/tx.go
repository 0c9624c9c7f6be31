package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/secure"
	"github.com/mrz1836/dnawallet/internal/txstore"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// TxParams are the fields of a legacy transaction.
type TxParams struct {
	To       common.Address
	Value    *big.Int
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	Data     []byte
}

// BuildTransaction returns an unsigned legacy transaction.
func BuildTransaction(p *TxParams) *types.Transaction {
	to := p.To
	return types.NewTx(&types.LegacyTx{
		Nonce:    p.Nonce,
		To:       &to,
		Value:    p.Value,
		Gas:      p.GasLimit,
		GasPrice: p.GasPrice,
		Data:     p.Data,
	})
}

// SignTransaction signs tx with EIP-155 replay protection for chainID and
// wipes privateKey.
func SignTransaction(tx *types.Transaction, privateKey []byte, chainID *big.Int) (*types.Transaction, error) {
	defer secure.Zero(privateKey)

	key, err := toECDSA(privateKey)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key)

	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", walleterr.ErrSigningFailed, err)
	}
	return signed, nil
}

// Send builds, signs and broadcasts a value transfer. req.PrivateKey is
// zeroed before Send returns. Broadcast happens at most once.
func (c *Client) Send(ctx context.Context, req *chain.SendRequest) (result *chain.TransactionResult, err error) {
	if req != nil {
		defer secure.Zero(req.PrivateKey)
	}
	defer func() { c.metrics.RecordWalletOp("send", err) }()

	if err = req.Validate(c); err != nil {
		return nil, err
	}
	if req.Ticker != "" && req.Ticker != Ticker {
		return nil, walleterr.WithDetails(walleterr.ErrNotImplemented, map[string]string{
			"chain":     chain.TypeETH.String(),
			"operation": "send " + req.Ticker,
		})
	}
	owner, err := AddressFromKey(req.PrivateKey)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(owner, req.From) {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
			"reason": "private key does not belong to the sending address",
		})
	}

	b, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	q, err := c.quote(ctx, b, req)
	if err != nil {
		return nil, err
	}

	if err = c.checkFunds(ctx, b, req, q); err != nil {
		return nil, err
	}

	nodeNonce, err := b.PendingNonceAt(ctx, common.HexToAddress(req.From))
	if err != nil {
		return nil, classify("nonce", err)
	}
	nonce := c.nonces.Next(req.From, nodeNonce)

	tx := BuildTransaction(&TxParams{
		To:       common.HexToAddress(req.To),
		Value:    req.Amount.ToBig(),
		Nonce:    nonce,
		GasLimit: q.limit,
		GasPrice: q.price,
		Data:     req.CustomData,
	})
	signed, err := SignTransaction(tx, req.PrivateKey, c.chainID)
	if err != nil {
		c.nonces.Reset(req.From)
		return nil, err
	}

	fee, _ := uint256.FromBig(q.total())
	result = &chain.TransactionResult{
		Hash:   signed.Hash().Hex(),
		From:   req.From,
		To:     req.To,
		Amount: chain.FormatAmount(req.Amount, Decimals),
		Fee:    chain.FormatAmount(fee, Decimals),
		Ticker: Ticker,
		Status: chain.StatusPending,
	}

	c.logger.Info().Str("hash", result.Hash).Uint64("nonce", nonce).Msg("broadcasting transaction")
	if err = b.SendTransaction(ctx, signed); err != nil {
		err = classify("send", err)
		if walleterr.Is(err, walleterr.ErrTxRejected) {
			c.nonces.Reset(req.From)
			result.Status = chain.StatusRejected
		}
		c.journalSend(result, err)
		return nil, fmt.Errorf("broadcast %s: %w", result.Hash, err)
	}

	c.journalSend(result, nil)
	return result, nil
}

// checkFunds fails with the shortfall when balance < amount + fee.
func (c *Client) checkFunds(ctx context.Context, b Backend, req *chain.SendRequest, q gasQuote) error {
	wei, err := b.BalanceAt(ctx, common.HexToAddress(req.From), nil)
	if err != nil {
		return classify("balance", err)
	}
	required := new(big.Int).Add(req.Amount.ToBig(), q.total())
	if wei.Cmp(required) >= 0 {
		return nil
	}
	return walleterr.WithDetails(walleterr.ErrInsufficientFunds, map[string]string{
		"required":  required.String(),
		"available": wei.String(),
	})
}

func (c *Client) journalSend(res *chain.TransactionResult, sendErr error) {
	if c.journal == nil {
		return
	}
	rec := &txstore.Record{
		Hash:   res.Hash,
		Chain:  chain.TypeETH.String(),
		From:   res.From,
		To:     res.To,
		Amount: res.Amount,
		Fee:    res.Fee,
		Ticker: res.Ticker,
		Status: string(res.Status),
	}
	if sendErr != nil {
		rec.Reason = sendErr.Error()
	}
	if err := c.journal.Put(rec); err != nil {
		c.logger.Warn().Err(err).Str("hash", res.Hash).Msg("journal write failed")
	}
}
