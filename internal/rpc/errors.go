package rpc

import (
	"fmt"

	"github.com/mrz1836/dnawallet/internal/metrics"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Node error codes carried in the JSON-RPC error object.
const (
	CodeTxRejected   = -32001
	CodeTxNotCreated = -32002
	CodeNotFound     = -32004
)

// ErrRPCFailed is an RPC error object the client has no specific mapping for.
var ErrRPCFailed = &walleterr.WalletError{
	Code:     "RPC_FAILED",
	Message:  "node returned an error",
	ExitCode: walleterr.ExitGeneral,
	Category: walleterr.CategoryNetwork,
}

// Error is the error object of a JSON-RPC response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// classify maps a node error object onto the wallet taxonomy.
func (e *Error) classify() error {
	var sentinel error
	switch e.Code {
	case CodeTxRejected:
		sentinel = walleterr.ErrTxRejected
	case CodeTxNotCreated:
		sentinel = walleterr.ErrTxNotCreated
	case CodeNotFound:
		sentinel = walleterr.ErrTransactionNotFound
	default:
		sentinel = ErrRPCFailed
	}
	return walleterr.WithDetails(sentinel, map[string]string{
		"code":   fmt.Sprintf("%d", e.Code),
		"reason": e.Message,
	})
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case walleterr.Is(err, walleterr.ErrNetworkError):
		return "network"
	case walleterr.Is(err, walleterr.ErrMalformedResponse):
		return "malformed"
	case walleterr.Is(err, walleterr.ErrTxRejected):
		return "rejected"
	case walleterr.Is(err, walleterr.ErrTxNotCreated):
		return "not_created"
	case walleterr.Is(err, walleterr.ErrTransactionNotFound):
		return "not_found"
	default:
		return "error"
	}
}
