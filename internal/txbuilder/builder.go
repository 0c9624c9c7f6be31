// Package txbuilder assembles cell chain transactions in their binary wire form.
//
// A transaction is one contiguous buffer:
//
//	ts_created u64 | item_count u32 | item...
//
// Items must be appended in a fixed order: inputs, outputs (recipient,
// network fee, optional change), optional custom data, the validator fee
// output, then the signature. The signature covers SigningBytes, which is
// the buffer with item_count forced to zero; FinalBytes carries the true
// count and the signature item.
package txbuilder

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/holiman/uint256"

	"github.com/mrz1836/dnawallet/internal/pqsig"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Header layout.
const (
	tsOffset    = 0
	countOffset = 8
	HeaderSize  = 12
)

// State is the builder's position in the item order.
type State int

// Builder states.
const (
	StateEmpty State = iota
	StateHasTimestamp
	StateHasInputs
	StateHasOutputs
	StateHasFee
	StateSigned
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateHasTimestamp:
		return "has_timestamp"
	case StateHasInputs:
		return "has_inputs"
	case StateHasOutputs:
		return "has_outputs"
	case StateHasFee:
		return "has_fee"
	case StateSigned:
		return "signed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Builder appends items to a single transaction buffer. A failed append
// leaves the builder unchanged. Builders are not safe for concurrent use.
type Builder struct {
	buf     []byte
	items   []Item
	state   State
	hasData bool
}

// New starts a transaction created at ts (unix seconds).
func New(ts uint64) *Builder {
	b := &Builder{buf: make([]byte, HeaderSize, 512)}
	binary.LittleEndian.PutUint64(b.buf[tsOffset:], ts)
	b.state = StateHasTimestamp
	return b
}

// State returns the current state.
func (b *Builder) State() State { return b.state }

// Timestamp returns the creation timestamp.
func (b *Builder) Timestamp() uint64 { return binary.LittleEndian.Uint64(b.buf[tsOffset:]) }

// Count returns the number of items appended so far.
func (b *Builder) Count() int { return len(b.items) }

// Items returns the appended items in order.
func (b *Builder) Items() []Item {
	out := make([]Item, len(b.items))
	copy(out, b.items)
	return out
}

// AddInput appends an input. Inputs come first.
func (b *Builder) AddInput(prevHash [HashSize]byte, outIndex uint32) error {
	if err := b.expect("input", StateHasTimestamp, StateHasInputs); err != nil {
		return err
	}
	b.push(In{PrevHash: prevHash, OutIndex: outIndex})
	b.state = StateHasInputs
	return nil
}

// AddOutput appends a native-asset output.
func (b *Builder) AddOutput(addr string, value *uint256.Int) error {
	if err := b.checkOutput(addr, value); err != nil {
		return err
	}
	b.push(Out{Value: value.Clone(), Address: addr})
	b.state = StateHasOutputs
	return nil
}

// AddOutputExt appends an output of a non-native asset.
func (b *Builder) AddOutputExt(addr string, value *uint256.Int, ticker string) error {
	if ticker == "" || len(ticker) > TickerSize {
		return fmt.Errorf("%w: ticker must be 1-%d bytes", walleterr.ErrInvalidInput, TickerSize)
	}
	if err := b.checkOutput(addr, value); err != nil {
		return err
	}
	b.push(OutExt{Value: value.Clone(), Ticker: ticker, Address: addr})
	b.state = StateHasOutputs
	return nil
}

func (b *Builder) checkOutput(addr string, value *uint256.Int) error {
	if err := b.expect("output", StateHasInputs, StateHasOutputs); err != nil {
		return err
	}
	if b.hasData {
		return orderError("output", "custom data already added")
	}
	if addr == "" || len(addr) > math.MaxUint16 {
		return fmt.Errorf("%w: output address length %d", walleterr.ErrInvalidAddress, len(addr))
	}
	if value == nil || value.IsZero() {
		return fmt.Errorf("%w: output value must be positive", walleterr.ErrInvalidAmount)
	}
	return nil
}

// AddCustomData appends the single TSD item after the outputs and before the fee.
func (b *Builder) AddCustomData(dataType uint16, data []byte) error {
	if err := b.expect("custom data", StateHasOutputs); err != nil {
		return err
	}
	if b.hasData {
		return orderError("custom data", "already added")
	}
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: custom data too large", walleterr.ErrInvalidInput)
	}
	b.push(TSD{DataType: dataType, Data: append([]byte(nil), data...)})
	b.hasData = true
	return nil
}

// AddFeeOutput appends the validator fee as a conditional output. It must
// follow the outputs and any custom data, and can be added only once.
func (b *Builder) AddFeeOutput(value *uint256.Int) error {
	if err := b.expect("fee output", StateHasOutputs); err != nil {
		return err
	}
	if value == nil || value.IsZero() {
		return fmt.Errorf("%w: validator fee must be positive", walleterr.ErrInvalidAmount)
	}
	b.push(OutCond{Subtype: CondSubtypeFee, Value: value.Clone()})
	b.state = StateHasFee
	return nil
}

// SigningBytes returns a copy of the buffer with item_count zeroed. It is
// available once the fee output is present and until the signature is added.
func (b *Builder) SigningBytes() ([]byte, error) {
	if err := b.expect("signing view", StateHasFee); err != nil {
		return nil, err
	}
	out := append([]byte(nil), b.buf...)
	binary.LittleEndian.PutUint32(out[countOffset:], 0)
	return out, nil
}

// Sign signs the signing view with scheme and appends the signature item.
func (b *Builder) Sign(scheme pqsig.Scheme, priv, pub []byte) error {
	msg, err := b.SigningBytes()
	if err != nil {
		return err
	}
	sig, err := scheme.Sign(priv, msg)
	if err != nil {
		return fmt.Errorf("%w: %w", walleterr.ErrSigningFailed, err)
	}
	return b.AddSignature(scheme.Type(), pub, sig)
}

// AddSignature appends a signature computed elsewhere over SigningBytes.
func (b *Builder) AddSignature(sigType pqsig.SigType, pub, sig []byte) error {
	if err := b.expect("signature", StateHasFee); err != nil {
		return err
	}
	if len(pub) == 0 || len(sig) == 0 {
		return fmt.Errorf("%w: empty public key or signature", walleterr.ErrSigningFailed)
	}
	b.push(Sig{
		SigType:   sigType,
		PublicKey: append([]byte(nil), pub...),
		Signature: append([]byte(nil), sig...),
	})
	b.state = StateSigned
	return nil
}

// FinalBytes returns a copy of the signed transaction with the true item count.
func (b *Builder) FinalBytes() ([]byte, error) {
	if err := b.expect("final bytes", StateSigned); err != nil {
		return nil, err
	}
	return append([]byte(nil), b.buf...), nil
}

// Hash returns the transaction hash of the final bytes.
func (b *Builder) Hash() (string, error) {
	final, err := b.FinalBytes()
	if err != nil {
		return "", err
	}
	return HashBytes(final), nil
}

func (b *Builder) push(it Item) {
	b.buf = it.appendTo(b.buf)
	b.items = append(b.items, it)
	binary.LittleEndian.PutUint32(b.buf[countOffset:], uint32(len(b.items))) //nolint:gosec // bounded by memory
}

func (b *Builder) expect(what string, allowed ...State) error {
	for _, s := range allowed {
		if b.state == s {
			return nil
		}
	}
	return orderError(what, "builder is "+b.state.String())
}

func orderError(what, reason string) error {
	return walleterr.WithDetails(walleterr.ErrItemOrder, map[string]string{
		"item":   what,
		"reason": reason,
	})
}
