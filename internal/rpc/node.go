package rpc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/holiman/uint256"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Node methods.
const (
	MethodBalance  = "wallet_balance"
	MethodOutputs  = "wallet_outputs"
	MethodTxCreate = "tx_create"
	MethodTxStatus = "tx_status"
)

// Node submission and status verdicts.
const (
	StatusCreated    = "created"
	StatusNotCreated = "not_created"
	StatusRejected   = "rejected"
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
)

// BalanceResult is the node's view of an address balance in base units.
type BalanceResult struct {
	Address  string `json:"address"`
	Ticker   string `json:"ticker"`
	Value    string `json:"value"`
	Decimals int32  `json:"decimals"`
}

// Output is an unspent output as listed by the node.
type Output struct {
	TxHash   string `json:"tx_hash"`
	OutIndex uint32 `json:"out_index"`
	Value    string `json:"value"`
}

// SubmitResult is the node's answer to a transaction submission.
type SubmitResult struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// StatusResult is the node's view of a submitted transaction.
type StatusResult struct {
	Hash          string `json:"hash"`
	Status        string `json:"status"`
	Confirmations uint64 `json:"confirmations"`
	Reason        string `json:"reason,omitempty"`
}

type addressParams struct {
	Net     string `json:"net"`
	Address string `json:"address"`
	Ticker  string `json:"ticker"`
}

// Balance queries the balance of address for ticker on net.
func (c *Client) Balance(ctx context.Context, net, address, ticker string) (*BalanceResult, error) {
	var res BalanceResult
	if err := c.Call(ctx, MethodBalance, addressParams{Net: net, Address: address, Ticker: ticker}, &res); err != nil {
		return nil, err
	}
	if _, err := ParseValue(res.Value); err != nil {
		return nil, malformed(MethodBalance, "value: "+err.Error())
	}
	return &res, nil
}

// Outputs lists the unspent outputs of address for ticker on net.
func (c *Client) Outputs(ctx context.Context, net, address, ticker string) ([]Output, error) {
	var res []Output
	if err := c.Call(ctx, MethodOutputs, addressParams{Net: net, Address: address, Ticker: ticker}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

type submitParams struct {
	Net string          `json:"net"`
	Tx  json.RawMessage `json:"tx"`
}

// Submit sends a signed transaction in its JSON form. A node answer of
// not_created or rejected is returned as ErrTxNotCreated or ErrTxRejected,
// distinct from any network failure.
func (c *Client) Submit(ctx context.Context, net string, tx json.RawMessage) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.Call(ctx, MethodTxCreate, submitParams{Net: net, Tx: tx}, &res); err != nil {
		return nil, err
	}

	switch strings.ToLower(res.Status) {
	case StatusCreated, "":
		return &res, nil
	case StatusNotCreated:
		return &res, walleterr.WithDetails(walleterr.ErrTxNotCreated, map[string]string{"hash": res.Hash, "reason": res.Reason})
	case StatusRejected:
		return &res, walleterr.WithDetails(walleterr.ErrTxRejected, map[string]string{"hash": res.Hash, "reason": res.Reason})
	default:
		return nil, malformed(MethodTxCreate, "unknown status "+res.Status)
	}
}

type hashParams struct {
	Net  string `json:"net"`
	Hash string `json:"hash"`
}

// TxStatus queries a previously submitted transaction.
func (c *Client) TxStatus(ctx context.Context, net, hash string) (*StatusResult, error) {
	var res StatusResult
	if err := c.Call(ctx, MethodTxStatus, hashParams{Net: net, Hash: hash}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ParseValue decodes a base-unit decimal string as returned by the node.
func ParseValue(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"value": s})
	}
	return v, nil
}
