// Package chain defines the capability interface every supported blockchain
// implements, the registry callers use to reach them, and amount helpers.
package chain

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/mrz1836/dnawallet/internal/pqsig"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Type identifies a chain family.
type Type string

// Supported chain families.
const (
	TypeCell Type = "cell"
	TypeETH  Type = "eth"
)

// String returns the chain type identifier.
func (t Type) String() string { return string(t) }

// IsValid returns true if the type is a known chain family.
func (t Type) IsValid() bool {
	switch t {
	case TypeCell, TypeETH:
		return true
	default:
		return false
	}
}

// ParseType parses a string into a Type.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	return t, t.IsValid()
}

// Chain is the uniform set of operations a caller can request from any
// registered chain. An implementation that cannot serve an operation returns
// errors.ErrNotImplemented; embed Unsupported to get that behaviour by default.
type Chain interface {
	// Init connects to the network. It is called once by Registry.InitAll.
	Init(ctx context.Context) error
	// Close releases connections. It must be safe to call without Init.
	Close() error

	Balance(ctx context.Context, address, ticker string) (*Balance, error)
	EstimateFee(ctx context.Context, req *SendRequest) (*FeeEstimate, error)
	Send(ctx context.Context, req *SendRequest) (*TransactionResult, error)
	TxStatus(ctx context.Context, hash string) (*TxStatusResult, error)
	ValidateAddress(address string) error
}

// Balance is an amount held by an address.
type Balance struct {
	Address  string
	Ticker   string
	Value    *uint256.Int
	Decimals int32
}

// String renders the balance with its decimals and ticker.
func (b *Balance) String() string {
	return fmt.Sprintf("%s %s", FormatAmount(b.Value, b.Decimals), b.Ticker)
}

// FeeEstimate is the fee a Send with the same request would pay.
type FeeEstimate struct {
	Ticker       string
	NetworkFee   *uint256.Int // paid to the network collector (cell) or gas cost (eth)
	ValidatorFee *uint256.Int // cell only
	Total        *uint256.Int
	Decimals     int32
}

// SendRequest describes a native-asset transfer.
type SendRequest struct {
	From       string
	To         string
	Amount     *uint256.Int
	Ticker     string // empty means the chain's native ticker
	PublicKey  []byte
	PrivateKey []byte // zeroed by Send before returning
	SigType    pqsig.SigType

	// Cell only.
	ValidatorFee *uint256.Int
	CustomData   []byte
	DataType     uint16
}

// Validate checks the fields every chain needs before any network call.
func (r *SendRequest) Validate(v AddressValidator) error {
	if r == nil {
		return fmt.Errorf("%w: nil send request", walleterr.ErrInvalidInput)
	}
	if err := v.ValidateAddress(r.From); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := v.ValidateAddress(r.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	if r.Amount == nil || r.Amount.IsZero() {
		return fmt.Errorf("%w: amount must be positive", walleterr.ErrInvalidAmount)
	}
	return nil
}

// AddressValidator is the address-checking slice of Chain.
type AddressValidator interface {
	ValidateAddress(address string) error
}

// TransactionResult is the outcome of a submitted transaction.
type TransactionResult struct {
	Hash   string `json:"hash"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Fee    string `json:"fee"`
	Ticker string `json:"ticker"`
	Status Status `json:"status"`
}

// Status is a transaction's lifecycle state as seen by the network.
type Status string

// Transaction states.
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusNotFound  Status = "not_found"
)

// TxStatusResult is the answer to a status query.
type TxStatusResult struct {
	Hash          string `json:"hash"`
	Status        Status `json:"status"`
	Confirmations uint64 `json:"confirmations,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Unsupported implements every Chain operation by returning ErrNotImplemented.
type Unsupported struct {
	Chain Type
}

func (u Unsupported) notImplemented(op string) error {
	return walleterr.WithDetails(walleterr.ErrNotImplemented, map[string]string{
		"chain":     u.Chain.String(),
		"operation": op,
	})
}

// Init implements Chain.
func (Unsupported) Init(context.Context) error { return nil }

// Close implements Chain.
func (Unsupported) Close() error { return nil }

// Balance implements Chain.
func (u Unsupported) Balance(context.Context, string, string) (*Balance, error) {
	return nil, u.notImplemented("balance")
}

// EstimateFee implements Chain.
func (u Unsupported) EstimateFee(context.Context, *SendRequest) (*FeeEstimate, error) {
	return nil, u.notImplemented("estimate_fee")
}

// Send implements Chain.
func (u Unsupported) Send(context.Context, *SendRequest) (*TransactionResult, error) {
	return nil, u.notImplemented("send")
}

// TxStatus implements Chain.
func (u Unsupported) TxStatus(context.Context, string) (*TxStatusResult, error) {
	return nil, u.notImplemented("tx_status")
}

// ValidateAddress implements Chain.
func (u Unsupported) ValidateAddress(string) error {
	return u.notImplemented("validate_address")
}
